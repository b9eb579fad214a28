// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"accounts/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the stored password hash did not
	// match the provided password.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// DefaultSessionTTL is the fixed session lifetime used when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// hashCost is the bcrypt work factor for newly stored passwords.
const hashCost = 10

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidationError reports a rejected registration field. The message is safe
// to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthService handles registration, credential verification and session
// management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	ttl      time.Duration
}

// NewAuthService creates a new authentication service. A non-positive ttl
// falls back to DefaultSessionTTL.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
	}
}

// Register validates the fields, hashes the password and persists a new
// user. Uniqueness collisions surface as domain.ErrDuplicateIdentity. The
// returned record never carries the password hash.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" || !usernamePattern.MatchString(username) {
		return nil, &ValidationError{Field: "username", Message: "Username may only contain letters, numbers and underscores"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, email, string(hash))
	if err != nil {
		return nil, err
	}
	return withoutHash(user), nil
}

// FindUserByUsername retrieves a user by exact, case-sensitive username.
func (s *AuthService) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return withoutHash(user), nil
}

// VerifyUser checks the password against the stored hash and returns the
// user with the hash stripped. An unknown username and a wrong password
// yield distinct errors; callers that face clients must not tell them apart.
func (s *AuthService) VerifyUser(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return withoutHash(user), nil
}

// Login verifies the credentials and mints a session for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	user, err := s.VerifyUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, user)
}

// LoginWithUser creates a session for an already authenticated user (e.g.
// via SSO), provisioning the account on first login.
func (s *AuthService) LoginWithUser(ctx context.Context, username string) (*domain.Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Empty hash: the account can never pass password login.
		user, err = s.users.Create(ctx, username, username, "")
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			// Lost a provisioning race; the row exists now.
			user, err = s.users.GetByUsername(ctx, username)
		}
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}
	return s.createSession(ctx, user)
}

// CurrentSession returns the session for the token if it exists and has not
// expired. Expired sessions are evicted lazily here rather than by a
// background sweep.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Logout destroys the session. Deleting an absent token is not an error.
// Logout also sweeps any other expired sessions; reads only evict the one
// token they touch, so this keeps abandoned rows from piling up.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	_ = s.sessions.DeleteExpired(ctx)
	return nil
}

func (s *AuthService) createSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	now := time.Now()
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session.UserID, session.Username, session.Token, session.ExpiresAt); err != nil {
		return nil, err
	}
	return session, nil
}

func withoutHash(u *domain.User) *domain.User {
	stripped := *u
	stripped.PasswordHash = ""
	return &stripped
}
