package models

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Get("/models", h.HandleList)
	r.Put("/models/current", h.HandleSetCurrent)
}
