package mastery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.MasteryEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewService(db)
}

func TestDeriveLevel(t *testing.T) {
	cases := []struct {
		score    float64
		attempts int
		want     string
	}{
		{0, 0, model.LevelNotStarted},
		{0.9, 0, model.LevelNotStarted},
		{0.3, 1, model.LevelLearning},
		{0.59, 5, model.LevelLearning},
		{0.6, 1, model.LevelProficient},
		{0.85, 2, model.LevelProficient},
		{0.85, 3, model.LevelMastered},
		{0.95, 10, model.LevelMastered},
	}
	for _, c := range cases {
		if got := DeriveLevel(c.score, c.attempts); got != c.want {
			t.Errorf("DeriveLevel(%v, %d) = %q, want %q", c.score, c.attempts, got, c.want)
		}
	}
}

func TestUpdate_RunningMean(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Update(ctx, "student-1", 5, "matematik", "mat5_kesirler", 0.4, 300)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Score != 0.4 || first.Attempts != 1 {
		t.Errorf("after first update: score=%v attempts=%d", first.Score, first.Attempts)
	}

	second, err := svc.Update(ctx, "student-1", 5, "matematik", "mat5_kesirler", 0.9, 200)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.Score != 0.65 {
		t.Errorf("running mean = %v, want 0.65", second.Score)
	}
	if second.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", second.Attempts)
	}
	if second.TotalTimeS != 500 {
		t.Errorf("total time = %d, want 500", second.TotalTimeS)
	}
	if second.Level != model.LevelProficient {
		t.Errorf("level = %q, want proficient", second.Level)
	}
}

func TestUpdate_RejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s", 5, "matematik", "t", 1.2, 0); !errors.Is(err, ErrScoreOutOfRange) {
		t.Errorf("score 1.2: got %v, want ErrScoreOutOfRange", err)
	}
	if _, err := svc.Update(ctx, "s", 5, "matematik", "t", -0.1, 0); !errors.Is(err, ErrScoreOutOfRange) {
		t.Errorf("score -0.1: got %v, want ErrScoreOutOfRange", err)
	}
	if _, err := svc.Update(ctx, "s", 5, "matematik", "t", 0.5, -1); !errors.Is(err, ErrNegativeTime) {
		t.Errorf("negative time: got %v, want ErrNegativeTime", err)
	}
}

func TestUpdate_ScopesAreIndependent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "s1", 5, "matematik", "topic", 0.8, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, "s1", 5, "fen_bilimleri", "topic", 0.2, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, "s2", 5, "matematik", "topic", 0.5, 0); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.Get(ctx, "s1", 5, "matematik")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Score != 0.8 {
		t.Errorf("s1/matematik entries = %+v", entries)
	}
}

func TestOverall_AttemptsWeighted(t *testing.T) {
	entries := []model.MasteryEntry{
		{Score: 1.0, Attempts: 1},
		{Score: 0.5, Attempts: 3},
	}
	got, ok, err := Overall(entries)
	if err != nil || !ok {
		t.Fatalf("Overall: %v ok=%v", err, ok)
	}
	want := (1.0*1 + 0.5*3) / 4
	if got != want {
		t.Errorf("Overall = %v, want %v", got, want)
	}

	if _, ok, _ := Overall(nil); ok {
		t.Error("Overall over no entries should report undefined")
	}
}
