package training

import (
	"context"
	"errors"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/trainer"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

type Handler struct {
	trainer *trainer.Service
}

func NewHandler(trainerSvc *trainer.Service) *Handler {
	return &Handler{trainer: trainerSvc}
}

func requireStaff(c fiber.Ctx) (access.Caller, error) {
	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return access.Caller{}, err
	}
	if caller.Role == access.RoleStudent {
		return access.Caller{}, errors.New("bu işlem yalnızca öğretmen ve yöneticilere açıktır")
	}
	return caller, nil
}

// HandleTrigger starts a manual training run. Manual runs skip the interval
// cooldown but never the data floor.
func (h *Handler) HandleTrigger(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	if _, err := requireStaff(c); err != nil {
		return apperror.Forbidden(config.ModuleAccess, c, status.AccessRoleDenied, err.Error(), nil)
	}

	job, err := h.trainer.Trigger(c.Context(), false)
	if err != nil {
		switch {
		case errors.Is(err, trainer.ErrInsufficientData):
			return apperror.BadRequest(config.ModuleTrainer, c, status.TrainInsufficientData, err.Error())
		case errors.Is(err, trainer.ErrJobActive):
			return apperror.Conflict(config.ModuleTrainer, c, status.TrainJobActive, "zaten aktif bir eğitim işi var")
		default:
			return apperror.InternalError(config.ModuleTrainer, c, err)
		}
	}
	go h.trainer.Run(context.Background(), job.JobID)

	return c.Status(fiber.StatusAccepted).JSON(apperror.FiberSuccessMessage{
		Code:       status.Accepted,
		Message:    "eğitim işi başlatıldı",
		TrackingID: trackingID,
		Data:       job,
	})
}

// HandleStatus summarizes the autolearn loop.
func (h *Handler) HandleStatus(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	st, err := h.trainer.GetStatus(c.Context())
	if err != nil {
		return apperror.InternalError(config.ModuleTrainer, c, err)
	}
	return apperror.Success(config.ModuleTrainer, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "eğitim durumu",
		TrackingID: trackingID,
		Data:       st,
	})
}

// HandleJob returns one job by id.
func (h *Handler) HandleJob(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	job, err := h.trainer.Job(c.Context(), c.Params("jobID"))
	if err != nil {
		if errors.Is(err, trainer.ErrJobNotFound) {
			return apperror.NotFound(config.ModuleTrainer, c, status.TrainJobNotFound, "eğitim işi bulunamadı")
		}
		return apperror.InternalError(config.ModuleTrainer, c, err)
	}
	return apperror.Success(config.ModuleTrainer, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "eğitim işi",
		TrackingID: trackingID,
		Data:       job,
	})
}

// HandleCancel moves a non-terminal job to cancelled.
func (h *Handler) HandleCancel(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	if _, err := requireStaff(c); err != nil {
		return apperror.Forbidden(config.ModuleAccess, c, status.AccessRoleDenied, err.Error(), nil)
	}

	err := h.trainer.Cancel(c.Context(), c.Params("jobID"))
	if err != nil {
		switch {
		case errors.Is(err, trainer.ErrJobNotFound):
			return apperror.NotFound(config.ModuleTrainer, c, status.TrainJobNotFound, "eğitim işi bulunamadı")
		case errors.Is(err, trainer.ErrInvalidTransition):
			return apperror.Conflict(config.ModuleTrainer, c, status.TrainInvalidTransition, "iş bu durumdan iptal edilemez")
		default:
			return apperror.InternalError(config.ModuleTrainer, c, err)
		}
	}
	return apperror.Success(config.ModuleTrainer, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "eğitim işi iptal edildi",
		TrackingID: trackingID,
	})
}
