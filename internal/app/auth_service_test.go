package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"accounts/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	createFn        func(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, email, passwordHash)
	}
	return &domain.User{ID: 1, Username: username, Email: email, PasswordHash: passwordHash}, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, username, token string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, username, token string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, username, token, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

func TestAuthService_Register_Success(t *testing.T) {
	ctx := context.Background()

	var storedHash string
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
			storedHash = passwordHash
			return &domain.User{ID: 1, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	user, err := svc.Register(ctx, "alice", "a@x.com", "secret1")

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "alice" || user.Email != "a@x.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.PasswordHash != "" {
		t.Error("returned user must not carry the password hash")
	}
	if storedHash == "" || storedHash == "secret1" {
		t.Fatalf("password must be stored as a hash, got %q", storedHash)
	}

	// Round-trip: the stored hash verifies the original password and
	// rejects any other.
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("secret1")); err != nil {
		t.Errorf("stored hash does not verify the password: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("other")); err == nil {
		t.Error("stored hash verified a wrong password")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{}, 0)

	tests := []struct {
		name     string
		username string
		email    string
		field    string
	}{
		{"empty username", "", "a@x.com", "username"},
		{"username with spaces", "al ice", "a@x.com", "username"},
		{"username with symbols", "alice!", "a@x.com", "username"},
		{"invalid email", "alice", "not-an-email", "email"},
		{"empty email", "alice", "", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, "secret1")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
			return nil, domain.ErrDuplicateIdentity
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	_, err := svc.Register(ctx, "alice", "a@x.com", "secret1")
	if !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Errorf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestAuthService_VerifyUser(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username != "alice" {
				return nil, nil
			}
			return &domain.User{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: string(hash)}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)

	user, err := svc.VerifyUser(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("verified user must not carry the password hash")
	}

	if _, err := svc.VerifyUser(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.VerifyUser(ctx, "bob", "secret1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Login_MintsSession(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 7, Username: "alice", PasswordHash: string(hash)}, nil
		},
	}

	var gotExpiry time.Time
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, username, token string, expiresAt time.Time) error {
			if userID != 7 {
				t.Errorf("expected userID 7, got %d", userID)
			}
			if username != "alice" {
				t.Errorf("expected username alice, got %q", username)
			}
			if token == "" {
				t.Error("token should not be empty")
			}
			gotExpiry = expiresAt
			return nil
		},
	}

	svc := NewAuthService(users, sessions, 0)
	before := time.Now()
	session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}

	want := before.Add(DefaultSessionTTL)
	if gotExpiry.Before(want.Add(-time.Minute)) || gotExpiry.After(want.Add(time.Minute)) {
		t.Errorf("expiry %v not within a minute of %v", gotExpiry, want)
	}
}

func TestAuthService_Login_DistinctTokens(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "alice", PasswordHash: string(hash)}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	a, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Token == b.Token {
		t.Error("two logins produced the same session token")
	}
}

func TestAuthService_CurrentSession_Valid(t *testing.T) {
	ctx := context.Background()

	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				Username:  "alice",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, 0)
	session, err := svc.CurrentSession(ctx, "sometoken")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Username != "alice" || session.UserID != 1 {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestAuthService_CurrentSession_Expired(t *testing.T) {
	ctx := context.Background()

	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				Username:  "alice",
				ExpiresAt: time.Now().Add(-time.Hour),
			}, nil
		},
		deleteFn: func(ctx context.Context, token string) error {
			deleted = true
			return nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, 0)
	_, err := svc.CurrentSession(ctx, "expiredtoken")
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if !deleted {
		t.Error("expected expired session to be evicted")
	}
}

func TestAuthService_CurrentSession_Absent(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{}, 0)
	_, err := svc.CurrentSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthService_Logout_AbsentTokenIsNotAnError(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{}, 0)
	if err := svc.Logout(context.Background(), "never-existed"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestAuthService_Logout_SweepsExpiredSessions(t *testing.T) {
	swept := false
	sessions := &mockSessionRepo{
		deleteExpiredFn: func(ctx context.Context) error {
			swept = true
			return nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, 0)
	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !swept {
		t.Error("expected logout to sweep expired sessions")
	}
}

func TestAuthService_Logout_SweepFailureIsSwallowed(t *testing.T) {
	deleted := false
	sessions := &mockSessionRepo{
		deleteFn: func(ctx context.Context, token string) error {
			deleted = true
			return nil
		},
		deleteExpiredFn: func(ctx context.Context) error {
			return errors.New("sweep failed")
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, 0)
	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Errorf("sweep failure must not fail logout, got %v", err)
	}
	if !deleted {
		t.Error("expected the session itself to be deleted")
	}
}

func TestAuthService_LoginWithUser_Provisions(t *testing.T) {
	ctx := context.Background()

	created := false
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
			created = true
			if passwordHash != "" {
				t.Error("SSO-provisioned user must have an empty password hash")
			}
			return &domain.User{ID: 2, Username: username, Email: email}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	session, err := svc.LoginWithUser(ctx, "sso@x.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created {
		t.Error("expected user to be provisioned")
	}
	if session.UserID != 2 || session.Username != "sso@x.com" {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestAuthService_LoginWithUser_ProvisionRace(t *testing.T) {
	ctx := context.Background()

	calls := 0
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &domain.User{ID: 3, Username: username}, nil
		},
		createFn: func(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
			return nil, domain.ErrDuplicateIdentity
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	session, err := svc.LoginWithUser(ctx, "sso@x.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.UserID != 3 {
		t.Errorf("expected userID 3, got %d", session.UserID)
	}
}

func TestAuthService_EmptyHashNeverVerifies(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "sso@x.com", PasswordHash: ""}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0)
	if _, err := svc.VerifyUser(ctx, "sso@x.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
