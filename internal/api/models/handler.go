package models

import (
	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

type Handler struct {
	router *provider.Router
	ledger *ledger.Service
	db     *gorm.DB
}

func NewHandler(router *provider.Router, ledgerSvc *ledger.Service, db *gorm.DB) *Handler {
	return &Handler{router: router, ledger: ledgerSvc, db: db}
}

// HandleList returns the provider table and per-model ledger aggregates.
func (h *Handler) HandleList(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	metrics, err := h.ledger.RecomputeModelMetrics(c.Context())
	if err != nil {
		return apperror.InternalError(config.ModuleLedger, c, err)
	}
	currentProvider, currentModel := h.router.CurrentModel()

	return apperror.Success(config.ModuleProvider, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "modeller listelendi",
		TrackingID: trackingID,
		Data: fiber.Map{
			"providers":        h.router.ModelInfo(),
			"metrics":          metrics,
			"current_provider": currentProvider,
			"current_model":    currentModel,
		},
	})
}

type setCurrentRequest struct {
	ModelID string `json:"model_id"`
}

// knownModel accepts provider defaults, the configured base model, and any
// model a succeeded training job produced.
func (h *Handler) knownModel(c fiber.Ctx, modelID string) (bool, error) {
	if modelID == config.Cfg.Autolearn.BaseModel {
		return true, nil
	}
	for _, e := range h.router.ModelInfo() {
		if e.Model == modelID {
			return true, nil
		}
	}
	var count int64
	err := h.db.WithContext(c.Context()).Model(&model.TrainingJob{}).
		Where("state = ? AND resulting_model = ?", model.JobSucceeded, modelID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HandleSetCurrent manually swaps the serving model (staff only).
func (h *Handler) HandleSetCurrent(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleProvider, c, status.AskMissingParams, err.Error())
	}
	if caller.Role == access.RoleStudent {
		return apperror.Forbidden(config.ModuleAccess, c, status.AccessRoleDenied,
			"model değişikliği yalnızca öğretmen ve yöneticilere açıktır", nil)
	}

	var req setCurrentRequest
	if err := c.Bind().Body(&req); err != nil || req.ModelID == "" {
		return apperror.BadRequest(config.ModuleProvider, c, status.AskMissingParams, "model_id zorunlu")
	}
	known, err := h.knownModel(c, req.ModelID)
	if err != nil {
		return apperror.InternalError(config.ModuleProvider, c, err)
	}
	if !known {
		return apperror.BadRequest(config.ModuleProvider, c, status.TrainUnknownModel, "bilinmeyen model")
	}
	if err := h.router.UpdateCurrentModel(req.ModelID); err != nil {
		return apperror.InternalError(config.ModuleProvider, c, err)
	}

	return apperror.Success(config.ModuleProvider, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "geçerli model güncellendi",
		TrackingID: trackingID,
		Data:       fiber.Map{"model_id": req.ModelID},
	})
}
