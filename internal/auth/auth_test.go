package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/store"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword(hash, "wrong horse") {
		t.Fatalf("expected wrong password to fail")
	}
	if VerifyPassword("not-a-hash", "correct horse") {
		t.Fatalf("malformed hash must not verify")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected empty password to be rejected")
	}
}

func newTokens(t *testing.T) *TokenService {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc, err := NewTokenService(key, time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func TestTokenIssueAndVerify(t *testing.T) {
	svc := newTokens(t)
	token, err := svc.Issue("u1", "a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(token, "v4.local.") {
		t.Fatalf("expected v4.local token, got %q", token)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := newTokens(t)
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("token from another key must not verify")
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Verify(token); err == nil {
		t.Fatalf("expired token must not verify")
	}
	if _, err := NewTokenService("abc", time.Hour); err == nil {
		t.Fatalf("expected short key to be rejected")
	}
}

func newAuthority(t *testing.T) *Authority {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return NewAuthority(st, newTokens(t))
}

func TestRegisterLoginVerify(t *testing.T) {
	a := newAuthority(t)
	ctx := context.Background()

	res, err := a.Register(ctx, RegisterRequest{Email: " Ash@Example.com ", Password: "pikachu", DisplayName: "Ash"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" || res.User.Email != "ash@example.com" || res.User.PasswordHash != "" {
		t.Fatalf("unexpected register result %+v", res)
	}

	_, err = a.Register(ctx, RegisterRequest{Email: "ash@example.com", Password: "another", DisplayName: "Ash2"})
	if !errors.Is(err, model.ErrDuplicateAccount) {
		t.Fatalf("expected duplicate account, got %v", err)
	}

	login, err := a.Login(ctx, LoginRequest{Email: "ASH@example.com", Password: "pikachu"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := a.Verify(ctx, login.Token)
	if err != nil || user.ID != res.User.ID {
		t.Fatalf("verify: %+v err=%v", user, err)
	}

	if _, err := a.Login(ctx, LoginRequest{Email: "ash@example.com", Password: "nope"}); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := a.Login(ctx, LoginRequest{Email: "misty@example.com", Password: "nope"}); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
	if _, err := a.Verify(ctx, "garbage"); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := a.Verify(ctx, ""); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
}

func TestRegisterValidates(t *testing.T) {
	a := newAuthority(t)
	_, err := a.Register(context.Background(), RegisterRequest{Email: "not-an-email", Password: "123", DisplayName: ""})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, want := range []string{"email", "password", "displayname"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
