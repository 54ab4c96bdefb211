package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"zone_controller/internal/models"
)

// mockAuthRepo is a lightweight in-test mock for repository.Authorization.
type mockAuthRepo struct {
	CreateFn        func(username, hash string) (int, error)
	GetByUsernameFn func(username string) (*models.User, error)

	createCalls []struct {
		username string
		hash     string
	}
	getCalls []string
}

func (m *mockAuthRepo) Create(_ context.Context, username, hash string) (int, error) {
	m.createCalls = append(m.createCalls, struct {
		username string
		hash     string
	}{username: username, hash: hash})
	return m.CreateFn(username, hash)
}

func (m *mockAuthRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.getCalls = append(m.getCalls, username)
	return m.GetByUsernameFn(username)
}

var testAuthCfg = AuthConfig{SigningKey: "test-signing-key", TokenTTL: time.Hour}

func TestAuthService_SignUp_SuccessHashesPasswordAndCallsRepo(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (int, error) { return 42, nil },
	}
	svc := NewAuthService(mock, testAuthCfg)

	id, err := svc.SignUp(context.Background(), "alice", "s3cr3t")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if len(mock.createCalls) != 1 {
		t.Fatalf("expected 1 Create call, got %d", len(mock.createCalls))
	}
	call := mock.createCalls[0]
	if call.hash == "s3cr3t" {
		t.Errorf("expected hashed password not equal to raw password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(call.hash), []byte("s3cr3t")); err != nil {
		t.Errorf("stored hash does not verify with original password: %v", err)
	}
}

func TestAuthService_SignUp_EmptyPassword(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (int, error) {
			t.Fatal("Create should not be called for empty password")
			return 0, nil
		},
	}
	if _, err := NewAuthService(mock, testAuthCfg).SignUp(context.Background(), "bob", "   "); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword for empty password, got %v", err)
	}
}

func TestAuthService_GenerateToken(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword failed: %v", err)
	}
	hash := string(raw)

	tests := []struct {
		name     string
		user     *models.User
		repoErr  error
		password string
		wantErr  error
	}{
		{name: "success", user: &models.User{ID: 7, Username: "diana", PasswordHash: hash}, password: "letmein"},
		{name: "user not found", password: "pw", wantErr: ErrUserNotFound},
		{name: "wrong password", user: &models.User{ID: 1, Username: "diana", PasswordHash: hash}, password: "wrong", wantErr: ErrInvalidPassword},
		{name: "repo error", repoErr: errBoom, password: "pw", wantErr: errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAuthRepo{
				GetByUsernameFn: func(string) (*models.User, error) { return tt.user, tt.repoErr },
			}
			svc := NewAuthService(mock, testAuthCfg)

			token, err := svc.GenerateToken(context.Background(), "diana", tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateToken returned error: %v", err)
			}
			uid, err := svc.ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken failed: %v", err)
			}
			if uid != tt.user.ID {
				t.Fatalf("expected user id %d from token, got %d", tt.user.ID, uid)
			}
		})
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, testAuthCfg)
	now := time.Now()

	type claimsFn func(*Claims)
	sign := func(method jwt.SigningMethod, key any, edit claimsFn) string {
		t.Helper()
		c := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    TokenIssuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			UserID: 5,
		}
		if edit != nil {
			edit(c)
		}
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString failed: %v", err)
		}
		return s
	}
	key := []byte(testAuthCfg.SigningKey)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	if uid, err := svc.ParseToken(sign(jwt.SigningMethodHS256, key, nil)); err != nil || uid != 5 {
		t.Fatalf("baseline token: uid=%d err=%v", uid, err)
	}

	tests := map[string]string{
		"malformed":      "not-a-jwt",
		"other key":      sign(jwt.SigningMethodHS256, []byte("different-key"), nil),
		"expired":        sign(jwt.SigningMethodHS256, key, func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute)) }),
		"no expiry":      sign(jwt.SigningMethodHS256, key, func(c *Claims) { c.ExpiresAt = nil }),
		"other issuer":   sign(jwt.SigningMethodHS256, key, func(c *Claims) { c.Issuer = "furnace" }),
		"no user id":     sign(jwt.SigningMethodHS256, key, func(c *Claims) { c.UserID = 0 }),
		"hs512":          sign(jwt.SigningMethodHS512, key, nil),
		"unexpected alg": sign(jwt.SigningMethodRS256, rsaKey, nil),
	}
	for name, token := range tests {
		token := token
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestAuthService_NoSigningKey(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, AuthConfig{})
	if _, err := svc.issueToken(1, time.Now()); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("issueToken err = %v, want ErrNoSigningKey", err)
	}
	if _, err := svc.ParseToken("x.y.z"); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("ParseToken err = %v, want ErrNoSigningKey", err)
	}
}
