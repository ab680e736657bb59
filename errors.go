package credauth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status.
const (
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeUsernameBlank      = "USERNAME_BLANK"
	TextCodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	TextCodeInsertFailed       = "INSERT_FAILED"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeMissingSecret      = "MISSING_SIGNING_SECRET"
)

// ErrUsernameTaken is returned when a signup hits an existing username
var ErrUsernameTaken = errors.New("username taken", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeUsernameTaken)

// ErrUsernameBlank is returned when a signup carries a blank username
var ErrUsernameBlank = errors.New("username blank", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeUsernameBlank)

// ErrPasswordTooShort is returned when a signup password is blank or under
// the minimum length
var ErrPasswordTooShort = errors.New("password too short", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodePasswordTooShort)

// ErrInsertNotAcknowledged is returned when the store did not acknowledge
// the user insert
var ErrInsertNotAcknowledged = errors.New("insert failed", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeInsertFailed)

// ErrInvalidCredentials is the single error for unknown-username and
// wrong-password signins. The message is deliberately generic so callers
// cannot enumerate usernames; both paths must return this exact value.
var ErrInvalidCredentials = errors.New("incorrect username or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrUserNotFound is the store-level miss for an exact username lookup
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is the error for expired bearer tokens
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers undecodable, unsigned, and wrong-signature tokens
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrMissingSigningSecret means the token signing secret was empty or unset.
// This is a configuration failure and should abort startup, not a request.
var ErrMissingSigningSecret = errors.New("token signing secret is not configured", errors.CategoryOperation).
	WithTextCode(TextCodeMissingSecret)

// IsConflict reports whether err belongs to the conflict class (duplicate
// username or unacknowledged insert)
func IsConflict(err error) bool {
	return hasCategory(err, errors.CategoryConflict)
}

// IsInvalidInput reports whether err belongs to the invalid-input class
func IsInvalidInput(err error) bool {
	return hasCategory(err, errors.CategoryValidation)
}

// IsUnauthorized reports whether err belongs to the unauthorized class
// (bad credentials or a rejected token)
func IsUnauthorized(err error) bool {
	return hasCategory(err, errors.CategoryAuth)
}

// IsConfigurationError reports whether err is a startup configuration error
func IsConfigurationError(err error) bool {
	return hasCategory(err, errors.CategoryOperation)
}

func hasCategory(err error, category errors.Category) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == category
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
