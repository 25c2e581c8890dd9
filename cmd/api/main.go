package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	askapi "github.com/efezeyus/aiogretmen-sub001/internal/api/ask"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/healthcheck"
	ingestapi "github.com/efezeyus/aiogretmen-sub001/internal/api/ingest"
	learnapi "github.com/efezeyus/aiogretmen-sub001/internal/api/learn"
	modelsapi "github.com/efezeyus/aiogretmen-sub001/internal/api/models"
	trainingapi "github.com/efezeyus/aiogretmen-sub001/internal/api/training"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/curriculum"
	coreingest "github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/mastery"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/trainer"
	"github.com/efezeyus/aiogretmen-sub001/internal/database"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/internal/middleware"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"
	"github.com/efezeyus/aiogretmen-sub001/pkg/ratelimit"

	"github.com/gofiber/fiber/v3"
)

func main() {
	logger.SetLevel(string(config.Cfg.LogLevel))

	db, err := database.GetDB()
	if err != nil {
		logger.Fatal(err, "%v: connection failed", config.ModuleDatabase)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Fatal(err, "%v: auto migration failed", config.ModuleDatabase)
	}

	// Milvus connectivity check on startup
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	cli, err := coreingest.Connect(ctx)
	cancel()
	if err != nil {
		logger.Error(err, "%v: milvus connect error", config.ModuleMilvus)
	} else {
		cli.Close()
		logger.Info("%v: milvus ok", config.ModuleMilvus)
	}

	limiter := ratelimit.New()
	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	if err := limiter.Ping(ctx); err != nil {
		logger.Warn("%v: redis unreachable, rate limiting fails open: %v", config.ModuleRedis, err)
	}
	cancel()

	graph, err := curriculum.Load()
	if err != nil {
		logger.Fatal(err, "%v: graph failed to load", config.ModuleCurriculum)
	}

	guard := access.NewGuard()
	router := provider.NewRouter(limiter)
	ledgerSvc := ledger.NewService(db)
	masterySvc := mastery.NewService(db)
	ingestSvc := coreingest.NewService(db)
	trainerSvc := trainer.NewService(db, router, trainer.NewFineTuner())

	scheduler := trainer.NewScheduler(db, trainerSvc)
	if err := scheduler.Start(); err != nil {
		logger.Error(err, "%v: scheduler start failed", config.ModuleTrainer)
	}

	app := fiber.New(fiber.Config{
		AppName:     config.Cfg.Server.AppName,
		Concurrency: config.Cfg.Server.Concurrency,
		BodyLimit:   config.Cfg.Server.BodyLimit,
	})
	app.Use(middleware.PanicRecovery())
	app.Use(middleware.ConnectionLimit(middleware.NewConnectionLimiter(config.Cfg.Server.Concurrency)))

	healthcheck.RegisterRoutes(app)
	ingestapi.RegisterRoutes(app, ingestapi.NewHandler(ingestSvc, guard))
	askapi.RegisterRoutes(app, askapi.NewHandler(guard, ledgerSvc, router, db))
	learnapi.RegisterRoutes(app, learnapi.NewHandler(guard, masterySvc, graph))
	trainingapi.RegisterRoutes(app, trainingapi.NewHandler(trainerSvc))
	modelsapi.RegisterRoutes(app, modelsapi.NewHandler(router, ledgerSvc, db))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("%v: shutting down", config.ModuleServer)
		scheduler.Stop()
		if err := app.Shutdown(); err != nil {
			logger.Error(err, "%v: shutdown error", config.ModuleServer)
		}
	}()

	addr := fmt.Sprintf(":%d", config.Cfg.Server.Port)
	if err := app.Listen(addr); err != nil {
		logger.Error(err, "%v: server error", config.ModuleServer)
	}
}
