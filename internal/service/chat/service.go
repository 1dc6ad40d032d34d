package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
	"github.com/zhouzirui/digibook-bot/internal/service/ask"
)

var ErrClosed = errors.New("conversation closed")

// DefaultApology is appended when an answer request fails.
const DefaultApology = "Sorry, there was an error connecting to the server."

const defaultSubscriberBuffer = 64

// Asker streams an answer for one query.
type Asker interface {
	Ask(ctx context.Context, query string, h ask.Handler) error
}

// Options configures a Conversation.
type Options struct {
	// Greeting seeds the transcript with a bot message when non-empty.
	Greeting string
	// ApologyText replaces DefaultApology when set.
	ApologyText string
}

// UpdateKind tells subscribers what changed.
type UpdateKind string

const (
	UpdateMessage      UpdateKind = "message"
	UpdateNotification UpdateKind = "notification"
)

// Update is pushed to subscribers after every state change.
type Update struct {
	Kind         UpdateKind
	Message      chat.Message
	Notification string
}

// Conversation owns the transcript and the notification slot of one widget
// instance. Sends are serialized: a second Send waits for the first request
// to finish.
type Conversation struct {
	asker   Asker
	apology string
	session chat.Session

	sendMu sync.Mutex

	mu           sync.RWMutex
	transcript   []chat.Message
	notification string
	subscribers  map[int]*subscriber
	nextSub      int
	closed       bool
}

// NewConversation starts an empty page session backed by asker.
func NewConversation(asker Asker, opts Options) *Conversation {
	apology := opts.ApologyText
	if apology == "" {
		apology = DefaultApology
	}

	c := &Conversation{
		asker:   asker,
		apology: apology,
		session: chat.Session{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		},
		transcript:  make([]chat.Message, 0, 16),
		subscribers: make(map[int]*subscriber),
	}

	if opts.Greeting != "" {
		c.append(newMessage(chat.SenderBot, opts.Greeting))
	}
	return c
}

// Session returns the page session descriptor.
func (c *Conversation) Session() chat.Session {
	return c.session
}

// Send appends the user's query and streams the answer into the transcript.
//
// Whitespace-only input is ignored. Request failures become a single apology
// message; the only error returned is ErrClosed.
func (c *Conversation) Send(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}

	c.append(newMessage(chat.SenderUser, query))

	err := c.asker.Ask(ctx, query, conversationHandler{c})
	// A stream may end without a final event; progress text must not outlive
	// the request either way.
	c.setNotification("")
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Printf("[chat] session=%s request abandoned: %v", c.session.ID, err)
		return nil
	}

	log.Printf("[chat] session=%s answer request failed: %v", c.session.ID, err)
	c.append(newMessage(chat.SenderBot, c.apology))
	return nil
}

// Transcript returns a copy of the messages in display order.
func (c *Conversation) Transcript() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copied := make([]chat.Message, len(c.transcript))
	copy(copied, c.transcript)
	return copied
}

// Notification returns the pending progress text, or "" when none.
func (c *Conversation) Notification() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notification
}

// Subscribe registers for updates. The returned function unsubscribes and
// closes the channel. A subscriber that falls behind sees consecutive
// notifications merged into the latest one; messages are never dropped.
func (c *Conversation) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch := make(chan Update)
		close(ch)
		return ch, func() {}
	}

	sub := newSubscriber(defaultSubscriberBuffer)
	go sub.run()

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = sub

	var once sync.Once
	return sub.out, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				sub.stop()
			}
		})
	}
}

// Close ends the session and releases all subscribers.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		sub.stop()
	}
}

func (c *Conversation) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conversation) append(msg chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript = append(c.transcript, msg)
	c.publishLocked(Update{Kind: UpdateMessage, Message: msg})
}

func (c *Conversation) setNotification(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notification == text {
		return
	}
	c.notification = text
	c.publishLocked(Update{Kind: UpdateNotification, Notification: text})
}

// deliverFinal clears the notification and appends the answer in one step so
// no reader sees both at once.
func (c *Conversation) deliverFinal(msg chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notification != "" {
		c.notification = ""
		c.publishLocked(Update{Kind: UpdateNotification})
	}
	c.transcript = append(c.transcript, msg)
	c.publishLocked(Update{Kind: UpdateMessage, Message: msg})
}

func (c *Conversation) publishLocked(update Update) {
	for _, sub := range c.subscribers {
		sub.push(update)
	}
}

type conversationHandler struct {
	c *Conversation
}

func (h conversationHandler) OnNotification(text string) {
	h.c.setNotification(text)
}

func (h conversationHandler) OnFinal(msg chat.Message) {
	h.c.deliverFinal(msg)
}

func newMessage(sender chat.Sender, text string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now().UTC(),
	}
}
