package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cyberlaw-advisor/backend/internal/store"
)

// CookieName is the session cookie carrying the token.
const CookieName = "session"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned when no live session backs a token.
	ErrUnauthenticated = errors.New("login required")
	// ErrMissingFields is returned when registration lacks a username, email or password.
	ErrMissingFields = errors.New("username, email and password are required")
)

// Service registers users and issues sessions.
type Service struct {
	db   *store.Database
	ttl  time.Duration
	cost int
	now  func() time.Time
}

// NewService builds a Service. Non-positive ttl defaults to 24h.
func NewService(db *store.Database, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{db: db, ttl: ttl, cost: bcrypt.DefaultCost, now: time.Now}
}

// TTL reports how long issued sessions live.
func (s *Service) TTL() time.Duration { return s.ttl }

// HashPassword returns a bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates an account. It returns store.ErrDuplicate when the username or email is taken.
func (s *Service) Register(username, email, password string) (*store.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &store.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.db.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(email, password string) (*store.User, *store.Session, error) {
	user, err := s.db.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	session := &store.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.CreateSession(session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return user, session, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(token string) (*store.User, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrUnauthenticated
	}
	session, err := s.db.FindSession(token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	user, err := s.db.FindUserByID(session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Logout ends the session for token.
func (s *Service) Logout(token string) error {
	if token == "" {
		return nil
	}
	return s.db.DeleteSession(token)
}
