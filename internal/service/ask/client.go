package ask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	"github.com/zhouzirui/digibook-bot/internal/model/event"
	"github.com/zhouzirui/digibook-bot/pkg/sse"
)

var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrNoBody           = errors.New("response has no body")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

const (
	askPath          = "/ask"
	defaultChunkSize = 4096
)

// Handler receives the effects of one answer stream.
type Handler interface {
	// OnNotification replaces any pending progress text.
	OnNotification(text string)
	// OnFinal delivers the answer. It is called at most once per request.
	OnFinal(msg chat.Message)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Notification func(text string)
	Final        func(msg chat.Message)
}

func (h HandlerFuncs) OnNotification(text string) {
	if h.Notification != nil {
		h.Notification(text)
	}
}

func (h HandlerFuncs) OnFinal(msg chat.Message) {
	if h.Final != nil {
		h.Final(msg)
	}
}

// Options configures a Client.
type Options struct {
	// Endpoint is the base URL of the question-answering service.
	Endpoint   string
	HTTPClient *http.Client
	// Timeout bounds a whole request including the stream. Zero means none.
	Timeout time.Duration
	// StopOnFinal closes the stream as soon as the final event is dispatched
	// instead of draining it to the end.
	StopOnFinal bool
	ChunkSize   int
}

// Client posts queries to the answer endpoint and decodes the event stream.
type Client struct {
	askURL      string
	httpClient  *http.Client
	timeout     time.Duration
	stopOnFinal bool
	chunkSize   int
}

// NewClient validates the endpoint and builds a client.
func NewClient(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ask endpoint %q: %w", opts.Endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid ask endpoint %q: scheme must be http or https", opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Client{
		askURL:      endpoint + askPath,
		httpClient:  httpClient,
		timeout:     opts.Timeout,
		stopOnFinal: opts.StopOnFinal,
		chunkSize:   chunkSize,
	}, nil
}

// Ask sends query and dispatches the streamed envelopes to h in stream order.
//
// Malformed lines and unknown event types are dropped. A transport failure is
// returned as an error unless the final event was already dispatched, in
// which case it is only logged.
func (c *Client) Ask(ctx context.Context, query string, h Handler) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, query)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeFailed).Inc()
		return fmt.Errorf("post %s: %w", c.askURL, err)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		requestsTotal.WithLabelValues(outcomeFailed).Inc()
		return ErrNoBody
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues(outcomeFailed).Inc()
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	err = c.consume(resp.Body, h)
	if err != nil {
		requestsTotal.WithLabelValues(outcomeFailed).Inc()
		return err
	}
	requestsTotal.WithLabelValues(outcomeOK).Inc()
	return nil
}

func (c *Client) newRequest(ctx context.Context, query string) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode ask request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.askURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ask request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Content-Type", "application/json")

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(middleware.RequestIDHeader, requestID)
	return req, nil
}

// consume runs the read loop over body.
func (c *Client) consume(body io.Reader, h Handler) error {
	var (
		splitter sse.LineSplitter
		stream   = streamState{handler: h}
		chunk    = make([]byte, c.chunkSize)
	)

	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			for _, line := range splitter.Feed(chunk[:n]) {
				stream.handleLine(line)
				if stream.finalSent && c.stopOnFinal {
					return nil
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			if splitter.Pending() > 0 {
				log.Printf("[ask] discarding %d bytes of unterminated trailing line", splitter.Pending())
			}
			return nil
		}
		if readErr != nil {
			if stream.finalSent {
				log.Printf("[ask] stream read failed after final answer: %v", readErr)
				return nil
			}
			return fmt.Errorf("read answer stream: %w", readErr)
		}
	}
}

// streamState tracks per-request dispatch state.
type streamState struct {
	handler   Handler
	finalSent bool
}

func (s *streamState) handleLine(line string) {
	payload, ok := sse.ParseDataLine(line)
	if !ok {
		return
	}

	env, err := event.Decode([]byte(payload))
	if err != nil {
		droppedLines.Inc()
		return
	}

	switch env.Type {
	case event.TypeNotification:
		// Progress text must not reappear once the answer is shown.
		if s.finalSent {
			return
		}
		eventsTotal.WithLabelValues(string(event.TypeNotification)).Inc()
		s.handler.OnNotification(env.Notification())
	case event.TypeFinal:
		if s.finalSent {
			return
		}
		s.finalSent = true
		eventsTotal.WithLabelValues(string(event.TypeFinal)).Inc()
		s.handler.OnFinal(env.BotMessage())
	default:
		eventsTotal.WithLabelValues("other").Inc()
	}
}
