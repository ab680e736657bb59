package credauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimUserID is the claim name carrying the authenticated user's id.
const ClaimUserID = "userId"

// AuthClaims represents the validated claim set extracted from a token
type AuthClaims interface {
	Subject() string
	UserID() string
	Claim(name string) (string, bool)
	Issuer() string
	Audience() []string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID   string            `json:"userId,omitempty"`
	Extra map[string]string `json:"cla,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user id claim, falling back to the subject
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Claim looks up a named custom claim embedded in the token payload
func (c *JWTClaims) Claim(name string) (string, bool) {
	if name == ClaimUserID {
		return c.UID, c.UID != ""
	}
	value, ok := c.Extra[name]
	return value, ok
}

// Issuer returns the issuer claim
func (c *JWTClaims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

// Audience returns the audience claim values
func (c *JWTClaims) Audience() []string {
	return c.RegisteredClaims.Audience
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
