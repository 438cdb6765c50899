package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/mq"
	"github.com/example/storefront/internal/obs"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/worker"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()

	shutdownTracer := obs.InitTracer(cfg.OTelEnabled, "storefront-api", cfg.OTelEndpoint, cfg.Environment)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	db := database.Connect(cfg.DatabaseURL, cfg.SQLLogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uploader := services.NewCloudinaryService(cfg.CloudinaryBaseURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, cfg.CloudinaryFolder)

	if err := services.NewAuthService(db, uploader, cfg.JWTSecret, cfg.TokenExpires).
		EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// Outbox relay: RabbitMQ when configured, in-process dispatch otherwise
	var publisher worker.Publisher
	if cfg.RabbitEnabled() {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("rabbitmq publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
		log.Printf("[Relay] publishing to exchange %s", cfg.RabbitExchange)
	} else {
		publisher = worker.NewDispatcher(db,
			services.NewPushService(cfg.ExpoPushURL, cfg.ExpoAccessToken),
			services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
		)
		log.Println("[Relay] RABBIT_URL not set, dispatching notifications in-process")
	}
	go worker.NewRelay(db, publisher, cfg.OutboxInterval, cfg.OutboxBatch).Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Storefront API",
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	routes.Register(app, db, cfg, uploader)

	go func() {
		log.Printf("Starting server on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
