package miner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/prompt"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"
	s3client "github.com/efezeyus/aiogretmen-sub001/pkg/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

// ErrNoEligibleRows reports a mining window with nothing to export.
var ErrNoEligibleRows = errors.New("no eligible interactions in window")

// Export describes one finished mining run.
type Export struct {
	FileRef      string   `json:"file_ref"`
	ExampleCount int      `json:"example_count"`
	DroppedCount int      `json:"dropped_count"`
	Warnings     []string `json:"warnings,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type exampleMetadata struct {
	Grade    int     `json:"grade"`
	Subject  string  `json:"subject"`
	Topic    string  `json:"topic,omitempty"`
	Mode     string  `json:"mode"`
	Feedback string  `json:"feedback"`
	ModelID  string  `json:"model_id"`
	MinedAt  string  `json:"mined_at"`
	Conf     float64 `json:"confidence"`
}

type trainingExample struct {
	Messages []chatMessage   `json:"messages"`
	Metadata exampleMetadata `json:"metadata"`
}

// Service projects ledger rows into supervised fine-tuning examples.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Mine selects eligible ledger rows in [since, until], writes them as JSONL,
// and flips training_data_generated inside the same transaction as the row
// selection so a row can never be exported twice. Eligible means: answered
// (not failed), not yet exported, and either positive feedback or confidence
// at the configured threshold; negative feedback always excludes.
func (s *Service) Mine(ctx context.Context, since, until time.Time) (Export, error) {
	threshold := config.Cfg.Autolearn.ConfidenceThreshold
	tokenCap := config.Cfg.Autolearn.ExampleTokenCap
	minedAt := time.Now().UTC().Format(time.RFC3339)

	var export Export
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []model.Interaction
		err := tx.
			Where("created_at >= ? AND created_at <= ?", since, until).
			Where("failed = ? AND training_data_generated = ?", false, false).
			Where("user_feedback <> ?", model.FeedbackNegative).
			Where("user_feedback = ? OR confidence >= ?", model.FeedbackPositive, threshold).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNoEligibleRows
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		exported := make([]uint, 0, len(rows))
		dropped := 0
		byScope := map[string]int{}
		for _, row := range rows {
			sys, err := prompt.SystemTemplate(row.Mode, row.Grade, row.Subject, row.Topic)
			if err != nil {
				dropped++
				continue
			}
			ex := trainingExample{
				Messages: []chatMessage{
					{Role: "system", Content: sys},
					{Role: "user", Content: row.PromptText},
					{Role: "assistant", Content: row.ResponseText},
				},
				Metadata: exampleMetadata{
					Grade:    row.Grade,
					Subject:  row.Subject,
					Topic:    row.Topic,
					Mode:     row.Mode,
					Feedback: row.UserFeedback,
					ModelID:  row.ModelID,
					MinedAt:  minedAt,
					Conf:     row.Confidence,
				},
			}
			if incomplete(ex) {
				dropped++
				continue
			}
			if exampleTokens(ex) > tokenCap && tokenCap > 0 {
				dropped++
				continue
			}
			if err := enc.Encode(ex); err != nil {
				return err
			}
			exported = append(exported, row.ID)
			byScope[fmt.Sprintf("%d/%s", row.Grade, row.Subject)]++
		}
		if len(exported) == 0 {
			return ErrNoEligibleRows
		}

		fileRef, err := writeExport(ctx, buf.Bytes(), until)
		if err != nil {
			return err
		}

		warnings := balanceWarnings(byScope, len(exported))
		warningsJSON := ""
		if len(warnings) > 0 {
			raw, _ := json.Marshal(warnings)
			warningsJSON = string(raw)
		}

		if err := tx.Model(&model.Interaction{}).
			Where("id IN ?", exported).
			Update("training_data_generated", true).Error; err != nil {
			return err
		}
		rec := model.TrainingExport{
			FileRef:      fileRef,
			ExampleCount: len(exported),
			DroppedCount: dropped,
			WarningsJSON: warningsJSON,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		export = Export{
			FileRef:      fileRef,
			ExampleCount: len(exported),
			DroppedCount: dropped,
			Warnings:     warnings,
		}
		return nil
	})
	if err != nil {
		return Export{}, err
	}

	logger.WithFields(map[string]interface{}{
		"file":     export.FileRef,
		"examples": export.ExampleCount,
		"dropped":  export.DroppedCount,
	}).Infof("%v: training data exported", config.ModuleMiner)
	return export, nil
}

// incomplete rejects examples with a blank turn; an empty assistant message
// would teach the model to answer with nothing.
func incomplete(ex trainingExample) bool {
	for _, m := range ex.Messages {
		if strings.TrimSpace(m.Content) == "" {
			return true
		}
	}
	return false
}

func exampleTokens(ex trainingExample) int {
	total := 0
	for _, m := range ex.Messages {
		total += prompt.EstimateTokens(m.Content)
	}
	return total
}

// balanceWarnings flags scopes dominating the export. Skewed training sets
// produce models that regress on the underrepresented grades.
func balanceWarnings(byScope map[string]int, total int) []string {
	var warnings []string
	for scope, count := range byScope {
		ratio := float64(count) / float64(total)
		if ratio > 0.6 && len(byScope) > 1 {
			warnings = append(warnings, fmt.Sprintf("scope %s holds %.0f%% of examples", scope, ratio*100))
		}
	}
	if len(byScope) == 1 && total >= 10 {
		for scope := range byScope {
			warnings = append(warnings, fmt.Sprintf("all examples come from scope %s", scope))
		}
	}
	return warnings
}

// writeExport lands the JSONL locally and, when a bucket is configured,
// mirrors it to object storage. The returned ref points at whichever copy is
// authoritative.
func writeExport(ctx context.Context, data []byte, until time.Time) (string, error) {
	name := fmt.Sprintf("training_%s.jsonl", until.UTC().Format("20060102T150405"))
	dir := config.Cfg.Autolearn.ExportDir
	if dir == "" {
		dir = "storage/training"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(dir, name)
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", err
	}

	bucket := config.Cfg.S3.Bucket
	if bucket == "" {
		return local, nil
	}
	cli, err := s3client.GetClient()
	if err != nil {
		logger.Warn("%v: s3 unavailable, keeping local export only: %v", config.ModuleMiner, err)
		return local, nil
	}
	key := "training/" + name
	_, err = cli.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		logger.Warn("%v: s3 upload failed, keeping local export only: %v", config.ModuleMiner, err)
		return local, nil
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
