package ingest

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/ingest", h.HandleIngest)
	r.Post("/upload", h.HandleUpload)
	r.Get("/documents", h.HandleListDocuments)
	r.Delete("/documents/:id", h.HandleDeleteDocument)
}
