package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	coreingest "github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

type Handler struct {
	svc   *coreingest.Service
	guard *access.Guard
}

func NewHandler(svc *coreingest.Service, guard *access.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

type ingestRequest struct {
	FilePath string `json:"file_path"`
	Grade    int    `json:"grade"`
	Subject  string `json:"subject"`
	Filename string `json:"filename"`
}

func validScope(grade int, subject string) error {
	if grade < 1 || grade > 12 {
		return errors.New("grade 1-12 aralığında olmalı")
	}
	if subject == "" {
		return errors.New("subject zorunlu")
	}
	return nil
}

// HandleIngest indexes an already-stored PDF (local path or s3:// ref).
func (h *Handler) HandleIngest(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	var req ingestRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestMissingParams, "geçersiz istek gövdesi")
	}
	if req.FilePath == "" {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestMissingParams, "file_path zorunlu")
	}
	if err := validScope(req.Grade, req.Subject); err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestInvalidGrade, err.Error())
	}

	result, err := h.svc.Ingest(c.Context(), req.FilePath, req.Grade, req.Subject, req.Filename)
	if err != nil {
		if errors.Is(err, coreingest.ErrEmptyDocument) {
			return apperror.BadRequest(config.ModuleIngest, c, status.IngestEmptyDocument, "belgeden metin çıkarılamadı")
		}
		return apperror.WriteError(config.ModuleIngest, c, fiber.StatusInternalServerError, status.IngestFailed, "belge işlenemedi", err.Error())
	}

	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "belge işlendi",
		TrackingID: trackingID,
		Data:       result,
	})
}

// HandleUpload accepts a PDF over multipart, stores it, then ingests it.
func (h *Handler) HandleUpload(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestMissingParams, "file alanı zorunlu")
	}
	grade, _ := strconv.Atoi(c.FormValue("grade"))
	subject := c.FormValue("subject")
	if err := validScope(grade, subject); err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestInvalidGrade, err.Error())
	}

	dir := filepath.Join("storage", "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.InternalError(config.ModuleIngest, c, err)
	}
	local := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(fh.Filename)))
	if err := c.SaveFile(fh, local); err != nil {
		return apperror.InternalError(config.ModuleIngest, c, err)
	}

	result, err := h.svc.Ingest(c.Context(), local, grade, subject, fh.Filename)
	if err != nil {
		if errors.Is(err, coreingest.ErrEmptyDocument) {
			return apperror.BadRequest(config.ModuleIngest, c, status.IngestEmptyDocument, "belgeden metin çıkarılamadı")
		}
		return apperror.WriteError(config.ModuleIngest, c, fiber.StatusInternalServerError, status.IngestFailed, "belge işlenemedi", err.Error())
	}

	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "belge yüklendi ve işlendi",
		TrackingID: trackingID,
		Data:       result,
	})
}

// HandleListDocuments lists ingested documents with optional scope filters.
// The listing is narrowed to the caller's grade instead of erroring.
func (h *Handler) HandleListDocuments(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestMissingParams, err.Error())
	}
	grade, _ := strconv.Atoi(c.Query("grade"))
	subject := c.Query("subject")

	docs, err := h.svc.Documents(c.Context(), grade, subject)
	if err != nil {
		return apperror.InternalError(config.ModuleIngest, c, err)
	}
	docs = access.FilterGrades(h.guard, caller, docs, func(d model.Document) int { return d.Grade })
	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "belgeler listelendi",
		TrackingID: trackingID,
		Data:       docs,
	})
}

// HandleDeleteDocument removes a document and its vector collection.
func (h *Handler) HandleDeleteDocument(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.IngestMissingParams, "geçersiz belge id")
	}
	if err := h.svc.Delete(c.Context(), uint(id)); err != nil {
		return apperror.NotFound(config.ModuleIngest, c, status.IngestFailed, "belge bulunamadı veya silinemedi")
	}
	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "belge silindi",
		TrackingID: trackingID,
	})
}
