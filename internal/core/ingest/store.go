package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// CollectionName derives the deterministic per-(grade, subject, content)
// collection name. Identical content always maps to the same collection.
func CollectionName(grade int, subject, sourceHash string) string {
	s := strings.ToLower(subject)
	s = strings.NewReplacer(" ", "_", "ı", "i", "ğ", "g", "ü", "u", "ş", "s", "ö", "o", "ç", "c").Replace(s)
	prefix := sourceHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("grade_%d_%s_%s", grade, s, prefix)
}

// Connect opens a Milvus client against the configured address.
func Connect(ctx context.Context) (milvusclient.Client, error) {
	return milvusclient.NewClient(ctx, milvusclient.Config{Address: config.Cfg.Milvus.Address})
}

// HasCollection reports whether the named collection exists.
func HasCollection(ctx context.Context, name string) (bool, error) {
	cli, err := Connect(ctx)
	if err != nil {
		return false, err
	}
	defer cli.Close()
	return cli.HasCollection(ctx, name)
}

// CreateCollection builds the chunk schema and its HNSW index.
func CreateCollection(ctx context.Context, cli milvusclient.Client, name string) error {
	dim := config.Cfg.Milvus.VectorDim
	schema := milvusentity.NewSchema().WithName(name).WithDescription("curriculum chunks")
	schema.WithField(milvusentity.NewField().WithName("id").WithDataType(milvusentity.FieldTypeInt64).WithIsPrimaryKey(true))
	schema.WithField(milvusentity.NewField().WithName("page").WithDataType(milvusentity.FieldTypeInt32))
	schema.WithField(milvusentity.NewField().WithName("chunk_index").WithDataType(milvusentity.FieldTypeInt32))
	schema.WithField(milvusentity.NewField().WithName("grade").WithDataType(milvusentity.FieldTypeInt64))
	schema.WithField(milvusentity.NewField().WithName("subject").WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(64))
	schema.WithField(milvusentity.NewField().WithName("source_hash").WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(64))
	schema.WithField(milvusentity.NewField().WithName("content").WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(8192))
	schema.WithField(milvusentity.NewField().WithName("embedding").WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(dim)))

	if err := cli.CreateCollection(ctx, schema, 2); err != nil {
		return err
	}

	hnsw := config.Cfg.Milvus.IndexHNSWConfig
	idx, err := milvusentity.NewIndexHNSW(milvusentity.MetricType(hnsw.MetricType), hnsw.M, hnsw.EfConstruction)
	if err != nil {
		return err
	}
	return cli.CreateIndex(ctx, name, "embedding", idx, false)
}

// InsertChunks writes chunk rows and their vectors into the collection.
// Primary keys are deterministic from the chunk index so a re-run cannot
// produce duplicate rows.
func InsertChunks(ctx context.Context, cli milvusclient.Client, name string, grade int, subject, sourceHash string, chunks []Chunk, vectors [][]float32) ([]int64, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	dim := config.Cfg.Milvus.VectorDim

	n := len(chunks)
	ids := make([]int64, n)
	pages := make([]int32, n)
	chunkIdxs := make([]int32, n)
	grades := make([]int64, n)
	subjects := make([]string, n)
	hashes := make([]string, n)
	contents := make([]string, n)
	for i, ch := range chunks {
		ids[i] = int64(ch.ChunkIndex)
		pages[i] = ch.PageIndex
		chunkIdxs[i] = ch.ChunkIndex
		grades[i] = int64(grade)
		subjects[i] = subject
		hashes[i] = sourceHash
		contents[i] = ch.Content
	}

	_, err := cli.Insert(ctx, name, "",
		milvusentity.NewColumnInt64("id", ids),
		milvusentity.NewColumnInt32("page", pages),
		milvusentity.NewColumnInt32("chunk_index", chunkIdxs),
		milvusentity.NewColumnInt64("grade", grades),
		milvusentity.NewColumnVarChar("subject", subjects),
		milvusentity.NewColumnVarChar("source_hash", hashes),
		milvusentity.NewColumnVarChar("content", contents),
		milvusentity.NewColumnFloatVector("embedding", dim, vectors),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Flush(ctx, name, false); err != nil {
		return nil, err
	}
	return ids, nil
}

// DropCollection removes the collection entirely.
func DropCollection(ctx context.Context, name string) error {
	cli, err := Connect(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()
	exists, err := cli.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := cli.DropCollection(ctx, name); err != nil {
		return err
	}
	logger.Info("%v: dropped collection %s", config.ModuleMilvus, name)
	return nil
}

// ListCollections returns the names of all chunk collections.
func ListCollections(ctx context.Context) ([]string, error) {
	cli, err := Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()
	cols, err := cli.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if strings.HasPrefix(c.Name, "grade_") {
			names = append(names, c.Name)
		}
	}
	return names, nil
}
