package models

import "time"

// Session represents a login session backed by an opaque bearer token.
// Sessions expire after a fixed lifetime and are never revoked early; the
// identity gate simply stops honouring them once expires_at has passed.
// Several sessions for the same user may coexist.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AuthToken  string    `json:"-"`
	ClientIP   string    `json:"client_ip,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is past its lifetime at the given
// instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
