package chat

import "time"

// Session captures the transient conversation bound to one open websocket.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
