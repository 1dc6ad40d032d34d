package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/digibook-bot/internal/model/chat"
)

// Type discriminates stream envelopes.
type Type string

const (
	TypeNotification Type = "notification"
	TypeFinal        Type = "final"
)

// Envelope is the JSON payload carried by one data line of the answer stream.
type Envelope struct {
	Type    Type       `json:"type"`
	Content *string    `json:"content,omitempty"`
	Data    *FinalData `json:"data,omitempty"`

	raw json.RawMessage
}

// FinalData holds the answer attachments of a final envelope.
type FinalData struct {
	Answer             *string  `json:"answer,omitempty"`
	SQLQuery           string   `json:"sql_query,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	QueryResult        string   `json:"query_result,omitempty"`
}

// finalWire tolerates shape drift in the optional final fields.
type finalWire struct {
	Answer             json.RawMessage `json:"answer"`
	SQLQuery           json.RawMessage `json:"sql_query"`
	SuggestedQuestions json.RawMessage `json:"suggested_questions"`
	QueryResult        json.RawMessage `json:"query_result"`
}

type envelopeWire struct {
	Type    Type            `json:"type"`
	Content json.RawMessage `json:"content"`
	Data    json.RawMessage `json:"data"`
}

// Decode parses one envelope. Only a payload that is not a JSON object is an
// error; unexpected field shapes are dropped instead.
func Decode(payload []byte) (Envelope, error) {
	var wire envelopeWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		Type:    wire.Type,
		Content: optionalString(wire.Content),
		raw:     append(json.RawMessage(nil), payload...),
	}

	if len(wire.Data) > 0 {
		var data finalWire
		if err := json.Unmarshal(wire.Data, &data); err == nil {
			env.Data = &FinalData{
				Answer:             optionalString(data.Answer),
				SQLQuery:           stringOrEmpty(data.SQLQuery),
				SuggestedQuestions: stringList(data.SuggestedQuestions),
				QueryResult:        stringOrEmpty(data.QueryResult),
			}
		}
	}

	return env, nil
}

// Notification returns the progress text of a notification envelope.
func (e Envelope) Notification() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}

// BotMessage converts a final envelope into a transcript message. The text is
// data.answer, then the top-level content, then the envelope itself as JSON.
func (e Envelope) BotMessage() chat.Message {
	msg := chat.Message{
		ID:        uuid.NewString(),
		Sender:    chat.SenderBot,
		Text:      e.answerText(),
		CreatedAt: time.Now().UTC(),
	}

	if e.Data != nil {
		msg.SQLQuery = e.Data.SQLQuery
		msg.SuggestedFollowUps = e.Data.SuggestedQuestions
		msg.ResultPreview = e.Data.QueryResult
	}
	return msg
}

func (e Envelope) answerText() string {
	if e.Data != nil && e.Data.Answer != nil {
		return *e.Data.Answer
	}
	if e.Content != nil {
		return *e.Content
	}
	if len(e.raw) > 0 {
		return string(e.raw)
	}

	dump, err := json.Marshal(e)
	if err != nil {
		return string(e.Type)
	}
	return string(dump)
}

func optionalString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func stringOrEmpty(raw json.RawMessage) string {
	if s := optionalString(raw); s != nil {
		return *s
	}
	return ""
}

// stringList keeps suggestions only when they arrive as an array of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}
