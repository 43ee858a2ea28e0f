package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side mirror of an issued session cookie. It lives in
// Redis under a TTL equal to the cookie lifetime; deleting it revokes the
// cookie immediately.
type Session struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
