package ask

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/ask", h.HandleAsk)
	r.Post("/teach", h.HandleTeach)
	r.Post("/interactions/:id/feedback", h.HandleFeedback)
	r.Get("/interactions", h.HandleInteractions)
}
