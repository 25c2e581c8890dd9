package ask

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Interaction{}, &model.ModelMetric{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	h := NewHandler(access.NewGuardWith(true, true), ledger.NewService(db), provider.NewRouterWith(nil, nil), db)
	return h, db
}

func testCaller() access.Caller {
	return access.Caller{ID: "s1", Role: access.RoleStudent, Grade: 5}
}

func testAskRequest() askRequest {
	return askRequest{Grade: 5, Subject: "matematik", Topic: "Kesirler", Question: "Kesir nedir?", Mode: "qa"}
}

func TestRecordAttempts_ThrottledRequestLedgersFailure(t *testing.T) {
	h, db := newTestHandler(t)

	id := h.recordAttempts(context.Background(), testCaller(), testAskRequest(),
		nil, provider.Result{}, provider.ErrRateLimited)
	if id != 0 {
		t.Errorf("success id = %d, want 0 for a refused request", id)
	}

	var rows []model.Interaction
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want exactly 1", len(rows))
	}
	if !rows[0].Failed {
		t.Error("row should be marked failed")
	}
	if rows[0].ErrorKind != "rate_limited" {
		t.Errorf("error_kind = %q, want rate_limited", rows[0].ErrorKind)
	}
	if rows[0].StudentID != "s1" || rows[0].Grade != 5 {
		t.Errorf("row scope = (%s, %d), want (s1, 5)", rows[0].StudentID, rows[0].Grade)
	}
}

func TestRecordAttempts_FallbackChainLedgersEveryTry(t *testing.T) {
	h, db := newTestHandler(t)

	attempts := []provider.Attempt{
		{Provider: "openai", Model: "gpt-4o-mini", Err: context.DeadlineExceeded, Latency: 3 * time.Second},
		{Provider: "deepseek", Model: "deepseek-chat", Latency: 800 * time.Millisecond},
	}
	result := provider.Result{Text: "Kesir, bir bütünün eş parçalarından biridir."}

	id := h.recordAttempts(context.Background(), testCaller(), testAskRequest(), attempts, result, nil)
	if id == 0 {
		t.Fatal("expected a success row id")
	}

	var rows []model.Interaction
	if err := db.Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].Failed || rows[0].ErrorKind != "timeout" {
		t.Errorf("first row = (failed=%v, kind=%q), want failed timeout", rows[0].Failed, rows[0].ErrorKind)
	}
	if rows[1].Failed || rows[1].ResponseText != result.Text {
		t.Errorf("second row should carry the answer, got (failed=%v, text=%q)", rows[1].Failed, rows[1].ResponseText)
	}
	if rows[1].ID != id {
		t.Errorf("returned id = %d, want %d", id, rows[1].ID)
	}
}
