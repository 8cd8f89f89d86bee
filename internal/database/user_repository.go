package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skytrip/travel-booking-backend/internal/models"
	"github.com/skytrip/travel-booking-backend/internal/store"
)

// UserRepository handles User rows.
type UserRepository struct {
	store     store.Store
	allocator *IDAllocator
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(s store.Store, allocator *IDAllocator) *UserRepository {
	return &UserRepository{store: s, allocator: allocator}
}

// CreateUser persists a new user and returns it with its allocated ID.
// Email uniqueness is checked by scan before the append; the store has no
// secondary unique index, so a concurrent duplicate registration is
// tolerated the same way the original system tolerated it.
func (r *UserRepository) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (*models.User, error) {
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := r.allocator.Allocate(ctx, TableUser, PrefixUser, DefaultIDWidth, func(id string) store.Row {
		user.ID = id
		return userToRow(user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return user, nil
}

// GetByEmail retrieves a user by email, or nil if absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rows, err := r.store.FindRows(ctx, TableUser, func(row store.Row) bool {
		return strings.ToLower(row["email"]) == email
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToUser(rows[0])
}

// GetByID retrieves a user by ID, or nil if absent.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	row, err := store.FindRowByID(ctx, r.store, TableUser, userID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return rowToUser(row)
}

// TouchLastLogin updates the user's last-login marker.
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	err := r.store.UpdateRow(ctx, TableUser, userID, store.Row{
		"last_login": formatTimestamp(at),
	})
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func userToRow(u *models.User) store.Row {
	row := store.Row{
		"id":            u.ID,
		"email":         strings.ToLower(strings.TrimSpace(u.Email)),
		"password_hash": u.PasswordHash,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"created_at":    formatTimestamp(u.CreatedAt),
	}
	if u.LastLoginAt != nil {
		row["last_login"] = formatTimestamp(*u.LastLoginAt)
	}
	return row
}

func rowToUser(row store.Row) (*models.User, error) {
	rd := newRowReader(row)
	user := &models.User{
		ID:           rd.str("id"),
		Email:        rd.str("email"),
		PasswordHash: rd.str("password_hash"),
		FirstName:    rd.str("first_name"),
		LastName:     rd.str("last_name"),
		CreatedAt:    rd.timestamp("created_at"),
	}
	if row["last_login"] != "" {
		t := rd.timestamp("last_login")
		user.LastLoginAt = &t
	}
	if rd.err != nil {
		return nil, fmt.Errorf("malformed user row %s: %w", row.ID(), rd.err)
	}
	return user, nil
}
