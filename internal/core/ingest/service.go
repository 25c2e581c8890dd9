package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"gorm.io/gorm"
)

// Result is what an ingest run hands back to the caller.
type Result struct {
	DocumentID      uint   `json:"document_id"`
	Collection      string `json:"collection"`
	ChunkCount      int    `json:"chunk_count"`
	AlreadyIngested bool   `json:"already_ingested"`
}

// Service runs the document pipeline: fetch, extract, chunk, embed, index.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func policyFromConfig() ChunkPolicy {
	ing := config.Cfg.Ingest
	return ChunkPolicy{
		TargetChars:  ing.ChunkTargetChars,
		MinChars:     ing.ChunkMinChars,
		MaxChars:     ing.ChunkMaxChars,
		OverlapChars: ing.ChunkOverlap,
	}
}

// Ingest processes one PDF into a dedicated vector collection plus relational
// bookkeeping rows. Re-ingesting identical content is a no-op that returns the
// existing collection. A failure anywhere past collection creation drops the
// collection again so no partial index survives.
func (s *Service) Ingest(ctx context.Context, filePath string, grade int, subject, originalFilename string) (Result, error) {
	localPath, cleanup, err := FetchToLocalTemp(ctx, filePath)
	if err != nil {
		return Result{}, fmt.Errorf("fetch document: %w", err)
	}
	defer cleanup()

	raw, err := os.ReadFile(localPath)
	if err != nil {
		return Result{}, err
	}
	sum := sha256.Sum256(raw)
	sourceHash := hex.EncodeToString(sum[:])
	collection := CollectionName(grade, subject, sourceHash)

	// idempotency: same bytes, same collection, nothing to do
	var existing model.Document
	err = s.db.WithContext(ctx).
		Where("source_hash = ? AND status = ?", sourceHash, "ready").
		First(&existing).Error
	if err == nil {
		logger.Info("%v: document already ingested as %s", config.ModuleIngest, existing.Collection)
		return Result{
			DocumentID:      existing.ID,
			Collection:      existing.Collection,
			ChunkCount:      existing.ChunkCount,
			AlreadyIngested: true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, err
	}

	pages, err := ExtractPDFTextPages(localPath)
	if err != nil {
		return Result{}, err
	}
	chunks := BuildChunks(pages, policyFromConfig())
	if len(chunks) == 0 {
		return Result{}, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	embedCtx := ctx
	if secs := config.Cfg.Ingest.EmbedTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}
	vectors, err := EmbedTexts(embedCtx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}

	cli, err := Connect(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("milvus connect: %w", err)
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return Result{}, err
	}
	if exists {
		// a previous run died mid-way; rebuild from scratch
		if err := cli.DropCollection(ctx, collection); err != nil {
			return Result{}, err
		}
	}
	if err := CreateCollection(ctx, cli, collection); err != nil {
		return Result{}, fmt.Errorf("create collection: %w", err)
	}

	milvusIDs, err := InsertChunks(ctx, cli, collection, grade, subject, sourceHash, chunks, vectors)
	if err != nil {
		_ = cli.DropCollection(ctx, collection)
		return Result{}, fmt.Errorf("index chunks: %w", err)
	}

	doc := model.Document{
		Grade:            grade,
		Subject:          subject,
		SourceHash:       sourceHash,
		OriginalFilename: originalFilename,
		FilePath:         filePath,
		Collection:       collection,
		ChunkCount:       len(chunks),
		Status:           "ready",
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e := tx.Create(&doc).Error; e != nil {
			return e
		}
		rows := make([]model.Chunk, len(chunks))
		for i, ch := range chunks {
			contentSum := sha256.Sum256([]byte(ch.Content))
			rows[i] = model.Chunk{
				DocumentID:  doc.ID,
				Collection:  collection,
				ChunkIndex:  ch.ChunkIndex,
				PageIndex:   ch.PageIndex,
				Content:     ch.Content,
				ContentHash: hex.EncodeToString(contentSum[:]),
				MilvusID:    milvusIDs[i],
				TokenCount:  (len([]rune(ch.Content)) + 3) / 4,
			}
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		_ = cli.DropCollection(ctx, collection)
		return Result{}, fmt.Errorf("persist document: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"collection": collection,
		"grade":      grade,
		"subject":    subject,
		"chunks":     len(chunks),
		"pages":      len(pages),
	}).Infof("%v: document ingested", config.ModuleIngest)

	return Result{DocumentID: doc.ID, Collection: collection, ChunkCount: len(chunks)}, nil
}

// Documents lists ingested documents, optionally filtered by grade and
// subject. Zero grade and empty subject mean no filter.
func (s *Service) Documents(ctx context.Context, grade int, subject string) ([]model.Document, error) {
	q := s.db.WithContext(ctx).Model(&model.Document{})
	if grade > 0 {
		q = q.Where("grade = ?", grade)
	}
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	var docs []model.Document
	if err := q.Order("id DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a document, its chunk rows, and its collection.
func (s *Service) Delete(ctx context.Context, documentID uint) error {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		return err
	}
	if doc.Collection != "" {
		if err := DropCollection(ctx, doc.Collection); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e := tx.Where("document_id = ?", doc.ID).Delete(&model.Chunk{}).Error; e != nil {
			return e
		}
		return tx.Delete(&doc).Error
	})
}
