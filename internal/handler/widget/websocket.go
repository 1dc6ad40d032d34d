package widget

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	chatservice "github.com/zhouzirui/digibook-bot/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second

	// maxQueuedQuestions bounds questions waiting behind the one in flight.
	maxQueuedQuestions = 16
)

// ConversationFactory starts a fresh conversation for a new page session.
type ConversationFactory func() *chatservice.Conversation

// Handler bridges a browser page session to a conversation over WebSocket.
type Handler struct {
	newConversation ConversationFactory
	upgrader        websocket.Upgrader
}

// New creates a widget handler that opens one conversation per connection.
func New(factory ConversationFactory) *Handler {
	return &Handler{
		newConversation: factory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the widget socket at /ws.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SendMessage asks the conversation a question.
type SendMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// MessageView is a transcript entry with its emphasis pre-split for display.
type MessageView struct {
	chat.Message
	Segments []chat.Segment `json:"segments"`
}

// NotificationView carries the current notification slot; empty clears it.
type NotificationView struct {
	Text string `json:"text"`
}

// TranscriptView is the snapshot sent when a page session opens.
type TranscriptView struct {
	Messages     []MessageView `json:"messages"`
	Notification string        `json:"notification,omitempty"`
}

func newMessageView(msg chat.Message) MessageView {
	return MessageView{Message: msg, Segments: chat.Segments(msg.Text)}
}

// handleWebSocket serves one page session.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[widget] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conv := h.newConversation()
	defer conv.Close()
	sessionID := conv.Session().ID

	updates, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	log.Printf("[widget] page session opened: %s", sessionID)
	defer log.Printf("[widget] page session closed: %s", sessionID)

	// Closing the socket abandons any in-flight answer stream.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errorsOut := make(chan string, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Unblock the reader once nothing more can be written.
		defer conn.Close()
		defer cancel()
		h.writeLoop(ctx, conn, sessionID, snapshot(conv), updates, errorsOut)
	}()

	// Questions are answered one at a time in arrival order.
	questions := make(chan string, maxQueuedQuestions)
	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		for text := range questions {
			if ctx.Err() != nil {
				return
			}
			if err := conv.Send(ctx, text); err != nil {
				if !errors.Is(err, chatservice.ErrClosed) {
					log.Printf("[widget] session=%s send failed: %v", sessionID, err)
				}
				return
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[widget] session=%s read error: %v", sessionID, err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if reason := h.handleMessage(questions, &msg); reason != "" {
			select {
			case errorsOut <- reason:
			default:
			}
		}
	}

	cancel()
	close(questions)
	<-senderDone
	<-writerDone
}

func (h *Handler) handleMessage(questions chan<- string, msg *inboundMessage) string {
	switch msg.Type {
	case "send":
		var payload SendMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return "invalid send payload"
		}
		select {
		case questions <- payload.Text:
			return ""
		default:
			return "too many pending questions"
		}
	default:
		return "unsupported message type: " + msg.Type
	}
}

func snapshot(conv *chatservice.Conversation) TranscriptView {
	messages := conv.Transcript()
	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, newMessageView(msg))
	}
	return TranscriptView{Messages: views, Notification: conv.Notification()}
}

// writeLoop is the only writer on conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sessionID string, initial TranscriptView, updates <-chan chatservice.Update, errorsOut <-chan string) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := writeJSON(conn, outgoingMessage{Type: "transcript", SessionID: sessionID, Data: initial, Timestamp: time.Now().Unix()}); err != nil {
		log.Printf("[widget] session=%s write transcript failed: %v", sessionID, err)
		return
	}

	for {
		var out outgoingMessage
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case reason := <-errorsOut:
			out = outgoingMessage{Type: "error", Data: map[string]string{"message": reason}}
		case update, ok := <-updates:
			if !ok {
				return
			}
			out = outgoingMessage{SessionID: sessionID}
			switch update.Kind {
			case chatservice.UpdateMessage:
				out.Type = "message"
				out.Data = newMessageView(update.Message)
			case chatservice.UpdateNotification:
				out.Type = "notification"
				out.Data = NotificationView{Text: update.Notification}
			default:
				continue
			}
		}

		out.Timestamp = time.Now().Unix()
		if err := writeJSON(conn, out); err != nil {
			log.Printf("[widget] session=%s write %s failed: %v", sessionID, out.Type, err)
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, msg outgoingMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
