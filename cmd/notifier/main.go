package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/mq"
	"github.com/example/storefront/internal/obs"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/worker"
)

func main() {
	cfg := config.Load()
	if !cfg.RabbitEnabled() {
		log.Fatal("RABBIT_URL must be set")
	}

	shutdownTracer := obs.InitTracer(cfg.OTelEnabled, "storefront-notifier", cfg.OTelEndpoint, cfg.Environment)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	db := database.Connect(cfg.DatabaseURL, cfg.SQLLogLevel)

	consumer, err := mq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.NotifierQueue, events.Bindings)
	if err != nil {
		log.Fatalf("rabbitmq consumer: %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Deliveries(ctx)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	dispatcher := worker.NewDispatcher(db,
		services.NewPushService(cfg.ExpoPushURL, cfg.ExpoAccessToken),
		services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Consume(ctx, deliveries, dispatcher)
	}()
	log.Printf("[Notifier] consuming %s", cfg.NotifierQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-done:
	}

	cancel()
	log.Println("[Notifier] stopped")
}
