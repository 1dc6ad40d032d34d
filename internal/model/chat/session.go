package chat

import "time"

// Session captures one page session of the widget. Its transcript lives only
// as long as the session does.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
