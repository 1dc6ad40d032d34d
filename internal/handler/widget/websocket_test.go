package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	"github.com/zhouzirui/digibook-bot/internal/service/ask"
	chatservice "github.com/zhouzirui/digibook-bot/internal/service/chat"
)

type echoAsker struct{}

func (echoAsker) Ask(ctx context.Context, query string, h ask.Handler) error {
	h.OnNotification("Thinking...")
	h.OnFinal(chat.Message{ID: "bot-1", Sender: chat.SenderBot, Text: "You said **" + query + "**"})
	return nil
}

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// slowAsker answers after a short delay so queued questions pile up.
type slowAsker struct{}

func (slowAsker) Ask(ctx context.Context, query string, h ask.Handler) error {
	time.Sleep(time.Millisecond)
	h.OnFinal(chat.Message{Sender: chat.SenderBot, Text: "re: " + query})
	return nil
}

func dialWidget(t *testing.T) (*websocket.Conn, func()) {
	return dialWidgetWith(t, echoAsker{})
}

func dialWidgetWith(t *testing.T, asker chatservice.Asker) (*websocket.Conn, func()) {
	t.Helper()

	h := New(func() *chatservice.Conversation {
		return chatservice.NewConversation(asker, chatservice.Options{Greeting: "Hi!"})
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	server := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial err: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readNext(t *testing.T, conn *websocket.Conn) received {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read err: %v", err)
	}
	return msg
}

func TestWidgetSendsSnapshotOnConnect(t *testing.T) {
	conn, cleanup := dialWidget(t)
	defer cleanup()

	msg := readNext(t, conn)
	if msg.Type != "transcript" || msg.SessionID == "" {
		t.Fatalf("unexpected first message %+v", msg)
	}

	var view TranscriptView
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(view.Messages) != 1 || view.Messages[0].Text != "Hi!" || view.Messages[0].Sender != chat.SenderBot {
		t.Fatalf("unexpected transcript %+v", view)
	}
}

func TestWidgetStreamsConversationUpdates(t *testing.T) {
	conn, cleanup := dialWidget(t)
	defer cleanup()

	readNext(t, conn)

	if err := conn.WriteJSON(map[string]interface{}{
		"type": "send",
		"data": map[string]string{"text": "hello"},
	}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	user := readNext(t, conn)
	var userView MessageView
	if err := json.Unmarshal(user.Data, &userView); err != nil {
		t.Fatalf("decode user message: %v", err)
	}
	if user.Type != "message" || userView.Sender != chat.SenderUser || userView.Text != "hello" {
		t.Fatalf("unexpected user update %+v", user)
	}

	progress := readNext(t, conn)
	var note NotificationView
	_ = json.Unmarshal(progress.Data, &note)
	if progress.Type != "notification" || note.Text != "Thinking..." {
		t.Fatalf("unexpected progress update %+v", progress)
	}

	cleared := readNext(t, conn)
	note = NotificationView{}
	_ = json.Unmarshal(cleared.Data, &note)
	if cleared.Type != "notification" || note.Text != "" {
		t.Fatalf("expected notification to clear, got %+v", cleared)
	}

	bot := readNext(t, conn)
	var botView MessageView
	if err := json.Unmarshal(bot.Data, &botView); err != nil {
		t.Fatalf("decode bot message: %v", err)
	}
	if bot.Type != "message" || botView.Sender != chat.SenderBot {
		t.Fatalf("unexpected bot update %+v", bot)
	}
	if len(botView.Segments) != 2 || !botView.Segments[1].Bold || botView.Segments[1].Text != "hello" {
		t.Fatalf("unexpected segments %+v", botView.Segments)
	}
}

func TestWidgetRejectsUnknownMessageType(t *testing.T) {
	conn, cleanup := dialWidget(t)
	defer cleanup()

	readNext(t, conn)

	if err := conn.WriteJSON(map[string]string{"type": "reset"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	msg := readNext(t, conn)
	if msg.Type != "error" || !strings.Contains(string(msg.Data), "reset") {
		t.Fatalf("unexpected reply %+v", msg)
	}
}

func TestWidgetAnswersQuestionsInArrivalOrder(t *testing.T) {
	conn, cleanup := dialWidgetWith(t, slowAsker{})
	defer cleanup()

	readNext(t, conn)

	const total = 10
	for i := 0; i < total; i++ {
		if err := conn.WriteJSON(map[string]interface{}{
			"type": "send",
			"data": map[string]string{"text": fmt.Sprintf("q%02d", i)},
		}); err != nil {
			t.Fatalf("write err: %v", err)
		}
	}

	var transcript []string
	for len(transcript) < 2*total {
		msg := readNext(t, conn)
		if msg.Type != "message" {
			continue
		}
		var view MessageView
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		transcript = append(transcript, view.Text)
	}

	for i := 0; i < total; i++ {
		q := fmt.Sprintf("q%02d", i)
		if transcript[2*i] != q || transcript[2*i+1] != "re: "+q {
			t.Fatalf("messages out of order: %v", transcript)
		}
	}
}
