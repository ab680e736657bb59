package credauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenConfig holds the signing parameters for bearer tokens. It is built
// once at process start and shared read-only by every token operation.
type TokenConfig struct {
	Issuer    string
	Audience  string
	ExpiresIn time.Duration
	Secret    []byte
}

// TokenClaim is a single name/value pair embedded in a token payload
type TokenClaim struct {
	Name  string
	Value string
}

// UserIDClaim builds the userId claim minted on signin
func UserIDClaim(userID string) TokenClaim {
	return TokenClaim{Name: ClaimUserID, Value: userID}
}

// TokenService mints and validates signed bearer tokens
type TokenService interface {
	Generate(config TokenConfig, claims ...TokenClaim) (string, error)
	Validate(token string, config TokenConfig) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface with HS256 JWTs
type TokenServiceImpl struct {
	logger Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{logger: logger}
}

// Generate creates a signed JWT carrying the config's issuer, audience,
// and expiry plus every supplied claim
func (ts *TokenServiceImpl) Generate(config TokenConfig, tokenClaims ...TokenClaim) (string, error) {
	if len(config.Secret) == 0 {
		return "", ErrMissingSigningSecret
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.Issuer,
			Audience:  jwt.ClaimStrings{config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.ExpiresIn)),
		},
	}

	for _, claim := range tokenClaims {
		if claim.Name == ClaimUserID {
			claims.UID = claim.Value
			claims.RegisteredClaims.Subject = claim.Value
			continue
		}
		if claims.Extra == nil {
			claims.Extra = map[string]string{}
		}
		claims.Extra[claim.Name] = claim.Value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(config.Secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses the token, verifies the signature against the config's
// secret, and checks issuer, audience, and expiry. Every rejected token
// comes back as an auth-category error; invalid tokens are an expected
// outcome, never a panic.
func (ts *TokenServiceImpl) Validate(tokenString string, config TokenConfig) (AuthClaims, error) {
	if len(config.Secret) == 0 {
		return nil, ErrMissingSigningSecret
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if config.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return config.Secret, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}
