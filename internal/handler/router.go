package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	askhandler "github.com/zhouzirui/digibook-bot/internal/handler/ask"
	"github.com/zhouzirui/digibook-bot/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/digibook-bot/internal/middleware"
	"github.com/zhouzirui/digibook-bot/pkg/utils"
)

// NewRouter wires the widget server routes.
func NewRouter(widgetHandler *widget.Handler) http.Handler {
	r := newBaseRouter()

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth)
		widgetHandler.RegisterRoutes(api)
	})

	return r
}

// NewStubRouter wires the development question-answering endpoint.
func NewStubRouter(askHandler *askhandler.Handler) http.Handler {
	r := newBaseRouter()

	r.Get("/health", handleHealth)
	askHandler.RegisterRoutes(r)

	return r
}

func newBaseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
