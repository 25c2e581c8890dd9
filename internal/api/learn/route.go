package learn

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Get("/plan", h.HandlePlan)
	r.Post("/progress", h.HandleProgress)
	r.Get("/mastery", h.HandleMastery)
	r.Get("/curriculum", h.HandleCurriculum)
}
