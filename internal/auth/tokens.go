package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	tokenIssuer   = "typerush-server"
	tokenAudience = "typerush-client"

	keyBytesSize = 32
	keyHexSize   = 64
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims are the fields carried by an access token.
type Claims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// TokenService issues and verifies PASETO v4.local bearer tokens.
type TokenService struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewTokenService builds a token service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string, ttl time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("token key must be exactly %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for token key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create token key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{key: key, ttl: ttl, now: time.Now}, nil
}

// GenerateKey returns a random hex-encoded token key.
func GenerateKey() (string, error) {
	raw := make([]byte, keyBytesSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// Issue creates a token for the user.
func (s *TokenService) Issue(userID, email string) (string, error) {
	now := s.now()
	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(userID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	jti, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	token.SetJti(jti)
	if err := token.Set("email", email); err != nil {
		return "", fmt.Errorf("set email claim: %w", err)
	}
	return token.V4Encrypt(s.key, nil), nil
}

// Verify decrypts a token and checks its issuer, audience and validity window.
func (s *TokenService) Verify(raw string) (Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, raw, nil)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	sub, err := token.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token subject: %w", err)
	}
	exp, err := token.GetExpiration()
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token expiry: %w", err)
	}
	var email string
	if err := token.Get("email", &email); err != nil {
		return Claims{}, fmt.Errorf("invalid token email: %w", err)
	}
	return Claims{UserID: sub, Email: email, ExpiresAt: exp}, nil
}
