package credauth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// MinPasswordLength is the smallest password accepted at signup.
const MinPasswordLength = 6

// AuthFlow composes the user store, the hashing service, and the token
// service into the signup and signin request flows. It carries no mutable
// state of its own and is safe for concurrent use.
type AuthFlow struct {
	store            UserStore
	hasher           HashingService
	tokens           TokenService
	config           TokenConfig
	logger           Logger
	deterministicIDs bool
}

// NewAuthFlow returns a new AuthFlow
func NewAuthFlow(store UserStore, hasher HashingService, tokens TokenService, config TokenConfig) *AuthFlow {
	return &AuthFlow{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		config: config,
		logger: defLogger{},
	}
}

func (f *AuthFlow) WithLogger(logger Logger) *AuthFlow {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithDeterministicIDs derives user ids from the username instead of
// random UUIDs, for deployments that need stable ids across rebuilds.
func (f *AuthFlow) WithDeterministicIDs() *AuthFlow {
	f.deterministicIDs = true
	return f
}

// SignUp registers a new user. Checks run in a fixed order and the first
// failure wins: username lookup, blank username, short password, hash,
// insert, write acknowledgment. The lookup deliberately runs before the
// format checks to stay behavior-compatible with existing deployments.
// No token is issued on signup; signin is a separate step.
func (f *AuthFlow) SignUp(ctx context.Context, payload AuthPayload) (*User, error) {
	username := payload.GetUsername()
	password := payload.GetPassword()

	if _, err := f.lookupUser(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := validation.Validate(strings.TrimSpace(username), validation.Required); err != nil {
		return nil, ErrUsernameBlank
	}

	if err := validation.Validate(strings.TrimSpace(password), validation.Required); err != nil {
		return nil, ErrPasswordTooShort
	}

	if err := validation.Validate(password, validation.Length(MinPasswordLength, 0)); err != nil {
		return nil, ErrPasswordTooShort
	}

	saltedHash, err := f.hasher.GenerateSaltedHash(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := NewUser(username, saltedHash)
	if f.deterministicIDs {
		if id, err := hashid.NewUUID(username); err == nil {
			user.ID = id
		}
	}

	acknowledged, err := f.store.InsertUser(ctx, user)
	if err != nil {
		if IsConflict(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}
	if !acknowledged {
		return nil, ErrInsertNotAcknowledged
	}

	return user, nil
}

// SignIn verifies the credentials and mints a bearer token whose userId
// claim is the stored user's id. Unknown usernames and wrong passwords
// yield the same ErrInvalidCredentials so callers cannot tell them apart.
func (f *AuthFlow) SignIn(ctx context.Context, payload AuthPayload) (string, error) {
	user, err := f.lookupUser(ctx, payload.GetUsername())
	if err != nil {
		if isNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !f.hasher.Verify(payload.GetPassword(), user.SaltedHash()) {
		return "", ErrInvalidCredentials
	}

	token, err := f.tokens.Generate(f.config, UserIDClaim(user.ID.String()))
	if err != nil {
		f.logger.Error("SignIn token generation failed: %s", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate token")
	}

	return token, nil
}

// VerifyToken validates a bearer token against the flow's token config
// and returns its claims. Used by the authenticated-route guard.
func (f *AuthFlow) VerifyToken(token string) (AuthClaims, error) {
	return f.tokens.Validate(token, f.config)
}

func (f *AuthFlow) lookupUser(ctx context.Context, username string) (*User, error) {
	user, err := f.store.GetUserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		f.logger.Error("user lookup failed: %s", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.IsNotFound(err)
}
