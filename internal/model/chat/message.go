package chat

import "time"

// Sender identifies who authored a transcript entry. It is fixed at creation.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Message is one entry of the widget transcript.
//
// SQLQuery, SuggestedFollowUps and ResultPreview are only ever set on bot
// messages built from a final event.
type Message struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text"`
	Sender             Sender    `json:"sender"`
	SQLQuery           string    `json:"sqlQuery,omitempty"`
	SuggestedFollowUps []string  `json:"suggestedFollowUps,omitempty"`
	ResultPreview      string    `json:"resultPreview,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HasDetails reports whether the message carries any answer attachments.
func (m Message) HasDetails() bool {
	return m.SQLQuery != "" || len(m.SuggestedFollowUps) > 0 || m.ResultPreview != ""
}
