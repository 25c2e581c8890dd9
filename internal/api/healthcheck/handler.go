package healthcheck

import (
	"context"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/database"
	"github.com/efezeyus/aiogretmen-sub001/pkg/ratelimit"

	"github.com/gofiber/fiber/v3"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Milvus   string `json:"milvus"`
	Redis    string `json:"redis"`
}

func check(err error) string {
	if err != nil {
		return "down"
	}
	return "ok"
}

func HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}

	resp.Database = "ok"
	if db, err := database.GetDB(); err != nil {
		resp.Database = "down"
	} else if sqlDB, err := db.DB(); err != nil {
		resp.Database = "down"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		resp.Database = "down"
	}

	cli, err := ingest.Connect(ctx)
	if err == nil {
		cli.Close()
	}
	resp.Milvus = check(err)

	limiter := ratelimit.New()
	resp.Redis = check(limiter.Ping(ctx))

	if resp.Database == "down" || resp.Milvus == "down" {
		resp.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
