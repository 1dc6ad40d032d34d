package ask

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/digibook-bot/internal/model/event"
	"github.com/zhouzirui/digibook-bot/internal/service/qa"
	"github.com/zhouzirui/digibook-bot/pkg/utils"
)

// Handler serves the question-answering stream consumed by the widget.
type Handler struct {
	answerer  qa.Answerer
	stepDelay time.Duration
}

// New creates an answer stream handler. stepDelay spaces out notifications.
func New(answerer qa.Answerer, stepDelay time.Duration) *Handler {
	return &Handler{
		answerer:  answerer,
		stepDelay: stepDelay,
	}
}

// RegisterRoutes mounts POST /ask.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
}

type askRequest struct {
	Query string `json:"query"`
}

type notificationEvent struct {
	Type    event.Type `json:"type"`
	Content string     `json:"content"`
}

type finalEvent struct {
	Type    event.Type `json:"type"`
	Content string     `json:"content,omitempty"`
	Data    qa.Answer  `json:"data"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload askRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Query) == "" {
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	stream, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	log.Printf("[qa] request=%s question=%q", requestID, payload.Query)

	progress := func(step string) {
		if err := stream.Send(notificationEvent{Type: event.TypeNotification, Content: step}); err != nil {
			log.Printf("[qa] request=%s failed to send notification: %v", requestID, err)
			return
		}
		h.pause(ctx)
	}

	answer, err := h.answerer.Answer(ctx, payload.Query, progress)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("[qa] request=%s client went away", requestID)
			return
		}
		log.Printf("[qa] request=%s answer failed: %v", requestID, err)
		finish(stream, requestID, "error event", errorEvent{Type: "error", Content: err.Error()})
		return
	}

	finish(stream, requestID, "final answer", finalEvent{Type: event.TypeFinal, Content: answer.Text, Data: answer})
}

// finish writes the closing event and the done sentinel.
func finish(stream *utils.SSEWriter, requestID, what string, payload interface{}) {
	if err := stream.Send(payload); err != nil {
		log.Printf("[qa] request=%s failed to send %s: %v", requestID, what, err)
		return
	}
	if err := stream.Done(); err != nil {
		log.Printf("[qa] request=%s failed to send done sentinel: %v", requestID, err)
	}
}

func (h *Handler) pause(ctx context.Context) {
	if h.stepDelay <= 0 {
		return
	}
	timer := time.NewTimer(h.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
