// Package token issues opaque API tokens and reads them from requests.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// DefaultSize is the number of random bytes in a token; hex encoding doubles it to 40 chars.
const DefaultSize = 20

var (
	// ErrMissingHeader is returned when the request carries no Authorization header.
	ErrMissingHeader = errors.New("authorization header missing")
	// ErrInvalidHeader is returned when the Authorization header is not "Token <key>" or "Bearer <key>".
	ErrInvalidHeader = errors.New("invalid authorization header format")
)

// Token generates and extracts opaque API tokens.
type Token struct {
	Size int // Random bytes per token
}

// Opt configures Token.
type Opt func(*Token)

// WithSize overrides the number of random bytes per token.
func WithSize(size int) Opt {
	return func(t *Token) {
		if size > 0 {
			t.Size = size
		}
	}
}

// New creates a new Token instance
func New(opts ...Opt) *Token {
	t := &Token{Size: DefaultSize}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Generate returns a new random hex encoded token key.
func (t *Token) Generate(ctx context.Context) (string, error) {
	b := make([]byte, t.Size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetTokenFromRequest extracts the token key from the Authorization header.
// Both the "Token" and "Bearer" schemes are accepted, case-insensitively.
func (t *Token) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingHeader
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 {
		return "", ErrInvalidHeader
	}

	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1], nil
	default:
		return "", ErrInvalidHeader
	}
}
