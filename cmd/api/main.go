package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/digibook-bot/internal/config"
	"github.com/zhouzirui/digibook-bot/internal/handler"
	"github.com/zhouzirui/digibook-bot/internal/handler/widget"
	"github.com/zhouzirui/digibook-bot/internal/service/ask"
	"github.com/zhouzirui/digibook-bot/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	askClient, err := ask.NewClient(ask.Options{
		Endpoint:    cfg.Ask.Endpoint,
		Timeout:     cfg.Ask.Timeout,
		StopOnFinal: cfg.Ask.StopOnFinal,
	})
	if err != nil {
		log.Fatalf("failed to create ask client: %v", err)
	}
	log.Printf("answers will be requested from %s", cfg.Ask.Endpoint)

	conversationOpts := chat.Options{
		Greeting:    cfg.Widget.Greeting,
		ApologyText: cfg.Widget.ApologyText,
	}
	widgetHandler := widget.New(func() *chat.Conversation {
		return chat.NewConversation(askClient, conversationOpts)
	})

	router := handler.NewRouter(widgetHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("DigiBook widget server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
