package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	coreingest "github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"github.com/gofiber/fiber/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDocumentsApp(t *testing.T) *fiber.App {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Document{}, &model.Chunk{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	for i, grade := range []int{5, 9} {
		doc := model.Document{
			Grade:      grade,
			Subject:    "matematik",
			SourceHash: fmt.Sprintf("hash-%d", i),
			Collection: fmt.Sprintf("grade_%d_matematik_abc", grade),
			Status:     "ready",
		}
		if err := db.Create(&doc).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	app := fiber.New()
	RegisterRoutes(app, NewHandler(coreingest.NewService(db), access.NewGuardWith(true, true)))
	return app
}

func documentsRequest(role, userGrade string) *http.Request {
	req := httptest.NewRequest("GET", "/documents", nil)
	req.Header.Set(common.HeaderStudentID, "s1")
	req.Header.Set(common.HeaderUserRole, role)
	if userGrade != "" {
		req.Header.Set(common.HeaderUserGrade, userGrade)
	}
	return req
}

func listedGrades(t *testing.T, resp *http.Response) []int {
	t.Helper()
	var body struct {
		Data []model.Document `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	grades := make([]int, len(body.Data))
	for i, d := range body.Data {
		grades[i] = d.Grade
	}
	return grades
}

func TestHandleListDocuments_StudentSeesOwnGradeOnly(t *testing.T) {
	app := newDocumentsApp(t)

	resp, err := app.Test(documentsRequest("student", "5"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	grades := listedGrades(t, resp)
	if len(grades) != 1 || grades[0] != 5 {
		t.Errorf("grades = %v, want only [5]", grades)
	}
}

func TestHandleListDocuments_StaffSeesAllGrades(t *testing.T) {
	app := newDocumentsApp(t)

	resp, err := app.Test(documentsRequest("teacher", ""))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if grades := listedGrades(t, resp); len(grades) != 2 {
		t.Errorf("grades = %v, want both documents", grades)
	}
}

func TestHandleListDocuments_RequiresIdentity(t *testing.T) {
	app := newDocumentsApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/documents", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400 without identity headers", resp.StatusCode)
	}
}
