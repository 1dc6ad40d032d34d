package ask

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	askclient "github.com/zhouzirui/digibook-bot/internal/service/ask"
	"github.com/zhouzirui/digibook-bot/internal/service/qa"
)

type failingAnswerer struct{}

func (failingAnswerer) Answer(ctx context.Context, question string, progress qa.ProgressFunc) (qa.Answer, error) {
	progress("Understanding your question...")
	return qa.Answer{}, errors.New("database unavailable")
}

func newTestRouter(answerer qa.Answerer) http.Handler {
	r := chi.NewRouter()
	New(answerer, 0).RegisterRoutes(r)
	return r
}

func TestHandleAskRejectsBadRequests(t *testing.T) {
	router := newTestRouter(qa.NewCanned())

	cases := map[string]string{
		"invalid json": `{"query":`,
		"empty query":  `{"query":"   "}`,
		"missing":      `{}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestHandleAskStreamsNotificationsThenFinal(t *testing.T) {
	router := newTestRouter(qa.NewCanned())

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"How many orders shipped this week?"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	body := rec.Body.String()
	notification := strings.Index(body, `"type":"notification"`)
	final := strings.Index(body, `"type":"final"`)
	done := strings.Index(body, "data: [DONE]")
	if notification < 0 || final < 0 || done < 0 {
		t.Fatalf("missing events in stream:\n%s", body)
	}
	if !(notification < final && final < done) {
		t.Fatalf("events out of order:\n%s", body)
	}
	if !strings.Contains(body, `"sql_query":"SELECT status`) {
		t.Fatalf("expected sql in final payload:\n%s", body)
	}
}

func TestHandleAskReportsAnswerFailure(t *testing.T) {
	router := newTestRouter(failingAnswerer{})

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"error"`) || !strings.Contains(body, "database unavailable") {
		t.Fatalf("expected error event:\n%s", body)
	}
	if strings.Contains(body, `"type":"final"`) {
		t.Fatalf("unexpected final event:\n%s", body)
	}
}

func TestAskClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(newTestRouter(qa.NewCanned()))
	defer server.Close()

	client, err := askclient.NewClient(askclient.Options{Endpoint: server.URL + "/", StopOnFinal: true})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}

	var (
		notifications []string
		finals        []chat.Message
	)
	err = client.Ask(context.Background(), "What was revenue this month?", askclient.HandlerFuncs{
		Notification: func(text string) { notifications = append(notifications, text) },
		Final:        func(msg chat.Message) { finals = append(finals, msg) },
	})
	if err != nil {
		t.Fatalf("Ask err: %v", err)
	}

	if len(notifications) != 3 {
		t.Fatalf("expected 3 notifications, got %v", notifications)
	}
	if len(finals) != 1 {
		t.Fatalf("expected one final, got %d", len(finals))
	}
	msg := finals[0]
	if msg.Sender != chat.SenderBot {
		t.Fatalf("unexpected sender %q", msg.Sender)
	}
	if !strings.Contains(msg.Text, "**$48,215.40**") {
		t.Fatalf("unexpected answer %q", msg.Text)
	}
	if !strings.HasPrefix(msg.SQLQuery, "SELECT DATE_TRUNC") {
		t.Fatalf("unexpected sql %q", msg.SQLQuery)
	}
	if len(msg.SuggestedFollowUps) == 0 || msg.ResultPreview == "" {
		t.Fatalf("expected details on final message: %+v", msg)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestHandleAskLogsFailedErrorEvent(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	router := newTestRouter(failingAnswerer{})
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"hello"}`))
	router.ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)

	if !strings.Contains(logs.String(), "failed to send error event: write sse frame: connection reset") {
		t.Fatalf("expected write failure to be logged, got:\n%s", logs.String())
	}
}
