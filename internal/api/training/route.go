package training

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/training/trigger", h.HandleTrigger)
	r.Get("/training/status", h.HandleStatus)
	r.Get("/training/jobs/:jobID", h.HandleJob)
	r.Post("/training/jobs/:jobID/cancel", h.HandleCancel)
}
