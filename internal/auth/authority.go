// Package auth manages accounts, password hashes and bearer tokens.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/typerush/internal/model"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	UserByEmail(ctx context.Context, email string) (model.User, bool, error)
	UserByID(ctx context.Context, id string) (model.User, bool, error)
}

// RegisterRequest is the payload of an account registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=1024"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=32"`
}

// LoginRequest is the payload of a login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Authority registers accounts, checks credentials and verifies tokens.
type Authority struct {
	users  UserStore
	tokens *TokenService
	now    func() time.Time
}

// NewAuthority creates an Authority.
func NewAuthority(users UserStore, tokens *TokenService) *Authority {
	return &Authority{users: users, tokens: tokens, now: time.Now}
}

// Register creates an account and signs it in.
func (a *Authority) Register(ctx context.Context, req RegisterRequest) (model.AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := model.ValidateStruct(req); err != nil {
		return model.AuthResult{}, err
	}
	if _, taken, err := a.users.UserByEmail(ctx, req.Email); err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to look up account: %w", err)
	} else if taken {
		return model.AuthResult{}, fmt.Errorf("%w: %s", model.ErrDuplicateAccount, req.Email)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC().Truncate(time.Millisecond),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return model.AuthResult{}, err
	}
	return a.signIn(user)
}

// Login checks credentials. Unknown emails and wrong passwords fail the same way.
func (a *Authority) Login(ctx context.Context, req LoginRequest) (model.AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := model.ValidateStruct(req); err != nil {
		return model.AuthResult{}, err
	}
	user, ok, err := a.users.UserByEmail(ctx, req.Email)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to look up account: %w", err)
	}
	if !ok || !VerifyPassword(user.PasswordHash, req.Password) {
		return model.AuthResult{}, model.ErrInvalidCredentials
	}
	return a.signIn(user)
}

// Verify resolves a bearer token to its account.
func (a *Authority) Verify(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, model.ErrUnauthorized
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}
	user, ok, err := a.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to look up account: %w", err)
	}
	if !ok {
		return model.User{}, fmt.Errorf("%w: account no longer exists", model.ErrUnauthorized)
	}
	return user, nil
}

func (a *Authority) signIn(user model.User) (model.AuthResult, error) {
	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return model.AuthResult{}, err
	}
	user.PasswordHash = ""
	return model.AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
