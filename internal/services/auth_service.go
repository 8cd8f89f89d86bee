package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"github.com/skytrip/travel-booking-backend/internal/database"
	"github.com/skytrip/travel-booking-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the identity gate: it turns credentials into sessions and
// bearer tokens into user identifiers. The engine core never sees raw
// credentials — only the resolved user ID this service hands out.
type AuthService struct {
	userRepo    *database.UserRepository
	sessionRepo *database.SessionRepository
	bcryptCost  int
	sessionTTL  time.Duration
	logger      *logrus.Logger
}

// NewAuthService creates a new AuthService. sessionTTL is the fixed session
// lifetime (7 days in the default configuration).
func NewAuthService(
	userRepo *database.UserRepository,
	sessionRepo *database.SessionRepository,
	bcryptCost int,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		bcryptCost:  bcryptCost,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// ClientMeta carries per-request client details recorded on the session.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Register creates a new account and an initial session.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest, meta ClientMeta) (*models.AuthResponse, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, newError(KindInvalidState, "user with email %s already exists", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, req.Email, string(hash), req.FirstName, req.LastName)
	if err != nil {
		return nil, mapStoreError(err)
	}

	session, err := s.issueSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return &models.AuthResponse{
		AuthToken: session.AuthToken,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Login verifies credentials, issues a fresh session and updates the user's
// last-login marker. Invalid email and invalid password are reported
// identically.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, meta ClientMeta) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, newError(KindUnauthorized, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("Login failed: bad password")
		return nil, newError(KindUnauthorized, "invalid email or password")
	}

	session, err := s.issueSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, session.CreatedAt); err != nil {
		// Last-login is a marker, not state the engine depends on.
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.ID,
	}).Info("User logged in")

	return &models.AuthResponse{
		AuthToken: session.AuthToken,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// ResolveUser validates a bearer token and returns the owning user ID.
// Expired or unknown tokens resolve to an unauthorized error; expired
// sessions are left in place, they are simply no longer honoured.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (string, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	if session == nil || session.IsExpired(time.Now()) {
		return "", newError(KindUnauthorized, "invalid or expired session token")
	}
	return session.UserID, nil
}

func (s *AuthService) issueSession(ctx context.Context, userID string, meta ClientMeta) (*models.Session, error) {
	token, err := generateAuthToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		UserID:    userID,
		AuthToken: token,
		ClientIP:  meta.IP,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if meta.UserAgent != "" {
		ua := user_agent.New(meta.UserAgent)
		browser, version := ua.Browser()
		session.Browser = browser + " " + version
		session.DeviceName = ua.OS()
	}

	created, err := s.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return created, nil
}

// generateAuthToken returns a 32-byte random bearer token, URL-safe
// base64-encoded and with no internal structure.
func generateAuthToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// mapStoreError classifies persistence failures from the repositories:
// errors already carrying a kind pass through untouched, exhausted ID
// allocation keeps its own retryable kind, and everything else is reported
// as the store being unavailable.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	if isAllocationExhausted(err) {
		return newError(KindAllocationExhausted, "could not allocate identifier: %v", err)
	}
	return newError(KindStoreUnavailable, "store operation failed: %v", err)
}
