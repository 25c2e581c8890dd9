package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	// ErrCollectionNotFound reports a question aimed at a collection that was
	// never ingested.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch reports a query vector whose width does not match
	// the index.
	ErrDimensionMismatch = errors.New("query vector dimension mismatch")
)

// Hit is one retrieved chunk, ready for prompt composition.
type Hit struct {
	Page       int32   `json:"page"`
	ChunkIndex int32   `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Filter narrows search to a metadata subset. Zero values mean no constraint.
type Filter struct {
	Grade   int
	Subject string
}

func (f Filter) expr() string {
	expr := ""
	if f.Grade > 0 {
		expr = fmt.Sprintf("grade == %d", f.Grade)
	}
	if f.Subject != "" {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf(`subject == "%s"`, f.Subject)
	}
	return expr
}

func clampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > 20 {
		return 20
	}
	return k
}

// EmbedQuestion embeds a single question with the same model as ingest, so
// query and index vectors live in the same space.
func EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	vectors, err := ingest.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// Search runs a vector search over one collection. k is clamped to [1, 20].
// Equal scores order by page then chunk index so results are stable.
func Search(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Hit, error) {
	k = clampK(k)

	cli, err := ingest.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	// the collection may have been ingested under an older configured
	// dimension; check against what its schema actually carries
	coll, err := cli.DescribeCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	dim, err := embeddingDim(coll.Schema)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), dim)
	}

	if err := cli.LoadCollection(ctx, collection, false); err != nil {
		return nil, err
	}

	sp, err := milvusentity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, err
	}
	metric := milvusentity.MetricType(config.Cfg.Milvus.IndexHNSWConfig.MetricType)
	results, err := cli.Search(ctx, collection, nil, filter.expr(),
		[]string{"page", "chunk_index", "content"},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		"embedding", metric, k, sp,
		milvusclient.WithSearchQueryConsistencyLevel(milvusentity.ClBounded),
	)
	if err != nil {
		return nil, err
	}

	hits := collectHits(results)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Page != hits[j].Page {
			return hits[i].Page < hits[j].Page
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	logger.WithFields(map[string]interface{}{
		"collection": collection,
		"k":          k,
		"hits":       len(hits),
	}).Debugf("%v: search done", config.ModuleRetriever)
	return hits, nil
}

func embeddingDim(schema *milvusentity.Schema) (int, error) {
	if schema == nil {
		return 0, errors.New("collection has no schema")
	}
	for _, f := range schema.Fields {
		if f.Name != "embedding" {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams[milvusentity.TypeParamDim])
		if err != nil {
			return 0, fmt.Errorf("collection schema carries invalid dim %q", f.TypeParams[milvusentity.TypeParamDim])
		}
		return dim, nil
	}
	return 0, errors.New("collection schema has no embedding field")
}

func collectHits(results []milvusclient.SearchResult) []Hit {
	var hits []Hit
	for _, res := range results {
		var pages *milvusentity.ColumnInt32
		var chunkIdxs *milvusentity.ColumnInt32
		var contents *milvusentity.ColumnVarChar
		for _, field := range res.Fields {
			switch field.Name() {
			case "page":
				pages, _ = field.(*milvusentity.ColumnInt32)
			case "chunk_index":
				chunkIdxs, _ = field.(*milvusentity.ColumnInt32)
			case "content":
				contents, _ = field.(*milvusentity.ColumnVarChar)
			}
		}
		if pages == nil || chunkIdxs == nil || contents == nil {
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			page, err := pages.ValueByIdx(i)
			if err != nil {
				continue
			}
			chunkIdx, err := chunkIdxs.ValueByIdx(i)
			if err != nil {
				continue
			}
			content, err := contents.ValueByIdx(i)
			if err != nil {
				continue
			}
			hits = append(hits, Hit{
				Page:       page,
				ChunkIndex: chunkIdx,
				Content:    content,
				Score:      res.Scores[i],
			})
		}
	}
	return hits
}
