package database

import (
	"context"
	"fmt"

	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// SessionRepository handles Session rows.
type SessionRepository struct {
	store     store.Store
	allocator *IDAllocator
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(s store.Store, allocator *IDAllocator) *SessionRepository {
	return &SessionRepository{store: s, allocator: allocator}
}

// CreateSession persists a new session row and returns it with its ID.
func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	id, err := r.allocator.Allocate(ctx, TableSession, PrefixSession, DefaultIDWidth, func(id string) store.Row {
		session.ID = id
		return sessionToRow(session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.ID = id
	return session, nil
}

// GetByToken retrieves a session by its bearer token, or nil if no session
// carries that token. Expiry is the caller's concern; sessions are never
// physically revoked.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	rows, err := r.store.FindRows(ctx, TableSession, func(row store.Row) bool {
		return row["auth_token"] == token
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToSession(rows[0])
}

func sessionToRow(s *models.Session) store.Row {
	return store.Row{
		"id":          s.ID,
		"user_id":     s.UserID,
		"auth_token":  s.AuthToken,
		"client_ip":   s.ClientIP,
		"device_name": s.DeviceName,
		"browser":     s.Browser,
		"created_at":  formatTimestamp(s.CreatedAt),
		"expires_at":  formatTimestamp(s.ExpiresAt),
	}
}

func rowToSession(row store.Row) (*models.Session, error) {
	rd := newRowReader(row)
	session := &models.Session{
		ID:         rd.str("id"),
		UserID:     rd.str("user_id"),
		AuthToken:  rd.str("auth_token"),
		ClientIP:   rd.str("client_ip"),
		DeviceName: rd.str("device_name"),
		Browser:    rd.str("browser"),
		CreatedAt:  rd.timestamp("created_at"),
		ExpiresAt:  rd.timestamp("expires_at"),
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed session row %s: %w", row.ID(), rd.err)
	}
	return session, nil
}
