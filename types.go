package credauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the persistence capability the flows consume. Lookups are
// exact match on username; inserts report whether the backing store
// acknowledged the write. Implementations should enforce username
// uniqueness themselves and return ErrUsernameTaken on violation, which
// closes the check-then-insert race between concurrent signups.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	InsertUser(ctx context.Context, user *User) (bool, error)
}

// AuthPayload is the decoded signup/signin request body. The transport
// layer rejects malformed payloads before the flows see them.
type AuthPayload interface {
	GetUsername() string
	GetPassword() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() string
	GetTokenExpiresIn() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetContextKey() string
}

// TokenConfigFromConfig builds the immutable TokenConfig used by every
// token operation. A missing signing key is a configuration error and
// should abort startup.
func TokenConfigFromConfig(cfg Config) (TokenConfig, error) {
	if cfg.GetSigningKey() == "" {
		return TokenConfig{}, ErrMissingSigningSecret
	}

	expiresIn := cfg.GetTokenExpiresIn()
	if expiresIn <= 0 {
		expiresIn = 365 * 24 * time.Hour
	}

	return TokenConfig{
		Issuer:    cfg.GetIssuer(),
		Audience:  cfg.GetAudience(),
		ExpiresIn: expiresIn,
		Secret:    []byte(cfg.GetSigningKey()),
	}, nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
