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
	askhandler "github.com/zhouzirui/digibook-bot/internal/handler/ask"
	"github.com/zhouzirui/digibook-bot/internal/service/ai"
	"github.com/zhouzirui/digibook-bot/internal/service/qa"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var answerer qa.Answerer = qa.NewCanned()
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, answerer)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with canned answers")
		} else {
			answerer = aiService
			log.Println("AI answerer initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, serving canned answers")
	}

	router := handler.NewStubRouter(askhandler.New(answerer, cfg.Stub.StepDelay))

	srv := &http.Server{
		Addr:              cfg.Stub.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("DigiBook QA stub listening on %s", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}
}
