package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"skill-tracker-progress/config"
	"skill-tracker-progress/database"
	"skill-tracker-progress/handlers"
	"skill-tracker-progress/middleware"
	"skill-tracker-progress/services"
	"skill-tracker-progress/utils"
	"skill-tracker-progress/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	if cfg.ServiceToken == "" {
		log.Fatal("❌ SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer database.Close(db)

	catalog, err := services.LoadCatalogFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("failed to load achievement catalog: ", err)
	}

	clock := clockwork.NewRealClock()
	store := services.NewProgressStore(db, catalog, clock, cfg.TxMaxAttempts)
	evaluator := services.NewEvaluator(store, catalog, clock, cfg.Timezone)

	backfill := workers.NewBackfillScheduler(store)
	if err := backfill.Start(ctx, cfg.BackfillInterval, clock); err != nil {
		log.Fatal(err)
	}
	defer backfill.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "skill-tracker-progress",
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 🔐 every request except the health probe must come through the gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, "/healthz"))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handlers.SetupProgressRoutes(app, store, evaluator, 2*time.Second)
	handlers.SetupAdminRoutes(app, store)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			utils.LogError("Server error: %v", err)
			stop()
		}
	}()

	utils.LogSuccess("Server running on http://localhost:%s", cfg.Port)
	utils.LogInfo("Catalog: %d achievements, streak calendar: %s", catalog.Len(), cfg.Timezone)
	utils.LogInfo("CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	utils.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		utils.LogWarn("Server shutdown: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
