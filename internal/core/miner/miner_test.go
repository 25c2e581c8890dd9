package miner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Interaction{}, &model.TrainingExport{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func useTempExportDir(t *testing.T) {
	t.Helper()
	orig := config.Cfg.Autolearn
	config.Cfg.Autolearn.ExportDir = t.TempDir()
	config.Cfg.Autolearn.ConfidenceThreshold = 0.7
	config.Cfg.Autolearn.ExampleTokenCap = 2048
	t.Cleanup(func() { config.Cfg.Autolearn = orig })
}

func seedInteraction(t *testing.T, db *gorm.DB, rec model.Interaction) model.Interaction {
	t.Helper()
	if rec.StudentID == "" {
		rec.StudentID = "s1"
	}
	if rec.Grade == 0 {
		rec.Grade = 5
	}
	if rec.Subject == "" {
		rec.Subject = "matematik"
	}
	if rec.Mode == "" {
		rec.Mode = "qa"
	}
	if rec.PromptText == "" {
		rec.PromptText = "Kesir nedir?"
	}
	if rec.UserFeedback == "" {
		rec.UserFeedback = model.FeedbackNone
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().Add(-time.Hour)
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

func TestMine_EligibilityRules(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	seedInteraction(t, db, model.Interaction{ResponseText: "olumlu", UserFeedback: model.FeedbackPositive, Confidence: 0.1})
	seedInteraction(t, db, model.Interaction{ResponseText: "emin", Confidence: 0.9})
	seedInteraction(t, db, model.Interaction{ResponseText: "kararsız", Confidence: 0.3})
	seedInteraction(t, db, model.Interaction{ResponseText: "kötü", UserFeedback: model.FeedbackNegative, Confidence: 0.95})
	seedInteraction(t, db, model.Interaction{Failed: true, Confidence: 0.95})

	export, err := svc.Mine(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if export.ExampleCount != 2 {
		t.Errorf("examples = %d, want 2 (positive feedback + high confidence)", export.ExampleCount)
	}

	raw, err := os.ReadFile(export.FileRef)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	lines := 0
	for scanner.Scan() {
		lines++
		var ex struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Metadata struct {
				Grade   int    `json:"grade"`
				Subject string `json:"subject"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &ex); err != nil {
			t.Fatalf("line %d is not valid json: %v", lines, err)
		}
		if len(ex.Messages) != 3 || ex.Messages[0].Role != "system" || ex.Messages[2].Role != "assistant" {
			t.Errorf("line %d messages malformed: %+v", lines, ex.Messages)
		}
		if !strings.Contains(ex.Messages[0].Content, "5. sınıf") {
			t.Errorf("line %d system prompt misses grade persona", lines)
		}
		if ex.Metadata.Grade != 5 || ex.Metadata.Subject != "matematik" {
			t.Errorf("line %d metadata = %+v", lines, ex.Metadata)
		}
	}
	if lines != 2 {
		t.Errorf("jsonl lines = %d, want 2", lines)
	}
}

func TestMine_SecondRunFindsNothing(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	seedInteraction(t, db, model.Interaction{ResponseText: "a", UserFeedback: model.FeedbackPositive})

	if _, err := svc.Mine(context.Background(), time.Time{}, time.Now()); err != nil {
		t.Fatalf("first mine: %v", err)
	}
	_, err := svc.Mine(context.Background(), time.Time{}, time.Now())
	if !errors.Is(err, ErrNoEligibleRows) {
		t.Fatalf("second mine: got %v, want ErrNoEligibleRows", err)
	}

	// the flag flip is what makes re-export impossible
	var count int64
	if err := db.Model(&model.Interaction{}).Where("training_data_generated = ?", true).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("flagged rows = %d, want 1", count)
	}
}

func TestMine_WindowBounds(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	old := seedInteraction(t, db, model.Interaction{ResponseText: "eski", UserFeedback: model.FeedbackPositive,
		CreatedAt: time.Now().Add(-48 * time.Hour)})
	seedInteraction(t, db, model.Interaction{ResponseText: "yeni", UserFeedback: model.FeedbackPositive,
		CreatedAt: time.Now().Add(-time.Hour)})

	export, err := svc.Mine(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if export.ExampleCount != 1 {
		t.Errorf("examples = %d, want 1 (old row outside window)", export.ExampleCount)
	}

	var oldRow model.Interaction
	if err := db.First(&oldRow, old.ID).Error; err != nil {
		t.Fatal(err)
	}
	if oldRow.TrainingDataGenerated {
		t.Error("row outside the window must not be flagged")
	}
}

func TestMine_WindowUpperBoundInclusive(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	until := time.Now().Truncate(time.Second)
	seedInteraction(t, db, model.Interaction{ResponseText: "sınırda", UserFeedback: model.FeedbackPositive,
		CreatedAt: until})

	export, err := svc.Mine(context.Background(), until.Add(-time.Hour), until)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if export.ExampleCount != 1 {
		t.Errorf("examples = %d, want the row created exactly at the window end", export.ExampleCount)
	}
}

func TestMine_DropsOversizedExamples(t *testing.T) {
	useTempExportDir(t)
	config.Cfg.Autolearn.ExampleTokenCap = 200
	db := newTestDB(t)
	svc := NewService(db)

	seedInteraction(t, db, model.Interaction{ResponseText: "kısa", UserFeedback: model.FeedbackPositive})
	seedInteraction(t, db, model.Interaction{
		ResponseText: strings.Repeat("çok uzun yanıt ", 200),
		UserFeedback: model.FeedbackPositive,
	})

	export, err := svc.Mine(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if export.ExampleCount != 1 || export.DroppedCount != 1 {
		t.Errorf("export = %+v, want one kept and one dropped", export)
	}
}

func TestMine_DropsExamplesWithBlankTurns(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	seedInteraction(t, db, model.Interaction{ResponseText: "dolu yanıt", UserFeedback: model.FeedbackPositive})
	seedInteraction(t, db, model.Interaction{ResponseText: "", UserFeedback: model.FeedbackPositive})
	seedInteraction(t, db, model.Interaction{ResponseText: "   ", UserFeedback: model.FeedbackPositive})

	export, err := svc.Mine(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if export.ExampleCount != 1 || export.DroppedCount != 2 {
		t.Fatalf("export = %+v, want blank answers dropped", export)
	}

	raw, err := os.ReadFile(export.FileRef)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.Contains(string(raw), `"content":""`) {
		t.Error("export contains an empty message turn")
	}
}

func TestMine_BalanceWarnings(t *testing.T) {
	useTempExportDir(t)
	db := newTestDB(t)
	svc := NewService(db)

	for i := 0; i < 9; i++ {
		seedInteraction(t, db, model.Interaction{ResponseText: "a", UserFeedback: model.FeedbackPositive})
	}
	seedInteraction(t, db, model.Interaction{ResponseText: "b", Grade: 6, UserFeedback: model.FeedbackPositive})

	export, err := svc.Mine(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(export.Warnings) == 0 {
		t.Error("expected a balance warning for the dominating scope")
	}
}
