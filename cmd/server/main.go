package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezh-cafe/api/internal/auth"
	"github.com/ezh-cafe/api/internal/config"
	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/dispatch"
	"github.com/ezh-cafe/api/internal/messaging"
	"github.com/ezh-cafe/api/internal/router"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/ezh-cafe/api/internal/telegram"
	"github.com/ezh-cafe/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	var bot dispatch.Bot = telegram.Offline{}
	if b, err := telegram.NewBot(cfg.TelegramAPIURL, cfg.BotToken, &http.Client{Timeout: cfg.DispatchTimeout}); err == nil {
		bot = b
	} else {
		log.Printf("WARN: %v; every order submission will be rejected", err)
	}

	// The hub outlives the HTTP server so requests still draining during
	// Shutdown can publish their events.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	var events service.EventSink = hub
	if cfg.AMQPURL != "" {
		conn, err := messaging.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Unable to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		events = messaging.Fanout{hub, messaging.NewPublisher(conn)}
		log.Printf("Publishing order events to exchange %s", messaging.OrdersExchange)
	}

	dispatcher := dispatch.New(bot, dispatch.Config{
		InvoiceTitle:       cfg.InvoiceTitle,
		InvoiceDescription: cfg.InvoiceDescription,
		ProviderToken:      cfg.PaymentProviderToken,
		StaffChatID:        cfg.StaffChatID,
	})

	r := router.New(cfg, router.Deps{
		Queries:    database.New(pool),
		Pool:       pool,
		Hub:        hub,
		Dispatcher: dispatcher,
		Auth:       auth.NewInitDataValidator(cfg.BotToken, cfg.InitDataMaxAge),
		Events:     events,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}

	stopHub()
	<-hubDone
}
