package credauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	credauth "github.com/averix/go-credauth"
)

// MockUserStore implements credauth.UserStore for testing
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByUsername(ctx context.Context, username string) (*credauth.User, error) {
	args := m.Called(ctx, username)
	if user := args.Get(0); user != nil {
		return user.(*credauth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) InsertUser(ctx context.Context, user *credauth.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

type testPayload struct {
	username string
	password string
}

func (p testPayload) GetUsername() string { return p.username }
func (p testPayload) GetPassword() string { return p.password }

func newTestFlow(store credauth.UserStore) *credauth.AuthFlow {
	return credauth.NewAuthFlow(
		store,
		credauth.NewSHA256Hashing(),
		credauth.NewTokenService(nil),
		credauth.TokenConfig{
			Issuer:    "test-issuer",
			Audience:  "test-audience",
			ExpiresIn: time.Hour,
			Secret:    []byte("test-signing-key"),
		},
	)
}

func storedUser(t *testing.T, username, password string) *credauth.User {
	t.Helper()

	hasher := credauth.NewSHA256Hashing()
	saltedHash, err := hasher.GenerateSaltedHash(password)
	require.NoError(t, err)

	return credauth.NewUser(username, saltedHash)
}

func TestAuthFlow_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and stores only the salted hash", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", ctx, mock.AnythingOfType("*credauth.User")).Return(true, nil)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "walter", user.Username)
		assert.NotEmpty(t, user.ID)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEmpty(t, user.Salt)
		assert.NotEqual(t, "heisenberg", user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, "heisenberg")

		store.AssertExpectations(t)
	})

	t.Run("rejects a taken username", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(storedUser(t, "walter", "heisenberg"), nil)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrUsernameTaken)
		assert.True(t, credauth.IsConflict(err))
		store.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("taken username wins over invalid password", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(storedUser(t, "walter", "heisenberg"), nil)

		flow := newTestFlow(store)

		// the password is too short as well; availability is checked first
		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "abc"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrUsernameTaken)
	})

	t.Run("rejects a blank username", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "   ").Return(nil, credauth.ErrUserNotFound)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "   ", password: "long-enough"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrUsernameBlank)
		assert.True(t, credauth.IsInvalidInput(err))
		store.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("rejects a short password", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "abc"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrPasswordTooShort)
		assert.True(t, credauth.IsInvalidInput(err))
		store.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("rejects a whitespace-only password", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)

		flow := newTestFlow(store)

		// six spaces satisfies the length rule but is still blank
		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "      "})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrPasswordTooShort)
		assert.True(t, credauth.IsInvalidInput(err))
		store.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("accepts a password at the minimum length", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", ctx, mock.AnythingOfType("*credauth.User")).Return(true, nil)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "123456"})

		assert.NoError(t, err)
		assert.NotNil(t, user)
	})

	t.Run("propagates store lookup failures", func(t *testing.T) {
		store := &MockUserStore{}
		boom := errors.New("connection reset")
		store.On("GetUserByUsername", ctx, "walter").Return(nil, boom)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})

		assert.Nil(t, user)
		assert.Error(t, err)
		store.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("reports conflict when insert loses the race", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", ctx, mock.AnythingOfType("*credauth.User")).Return(false, credauth.ErrUsernameTaken)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrUsernameTaken)
	})

	t.Run("reports unacknowledged inserts", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", ctx, mock.AnythingOfType("*credauth.User")).Return(false, nil)

		flow := newTestFlow(store)

		user, err := flow.SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, credauth.ErrInsertNotAcknowledged)
	})

	t.Run("deterministic ids derive from the username", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, mock.Anything).Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", ctx, mock.AnythingOfType("*credauth.User")).Return(true, nil)

		first, err := newTestFlow(store).WithDeterministicIDs().
			SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})
		require.NoError(t, err)

		second, err := newTestFlow(store).WithDeterministicIDs().
			SignUp(ctx, testPayload{username: "walter", password: "heisenberg"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
	})
}

func TestAuthFlow_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a token that validates with the user id", func(t *testing.T) {
		user := storedUser(t, "walter", "heisenberg")

		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(user, nil)

		flow := newTestFlow(store)

		token, err := flow.SignIn(ctx, testPayload{username: "walter", password: "heisenberg"})

		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := flow.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())
	})

	t.Run("rejects an unknown user", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "gustavo").Return(nil, credauth.ErrUserNotFound)

		flow := newTestFlow(store)

		token, err := flow.SignIn(ctx, testPayload{username: "gustavo", password: "heisenberg"})

		assert.Empty(t, token)
		assert.ErrorIs(t, err, credauth.ErrInvalidCredentials)
		assert.True(t, credauth.IsUnauthorized(err))
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "walter").Return(storedUser(t, "walter", "heisenberg"), nil)

		flow := newTestFlow(store)

		token, err := flow.SignIn(ctx, testPayload{username: "walter", password: "not-the-password"})

		assert.Empty(t, token)
		assert.ErrorIs(t, err, credauth.ErrInvalidCredentials)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", ctx, "gustavo").Return(nil, credauth.ErrUserNotFound)
		store.On("GetUserByUsername", ctx, "walter").Return(storedUser(t, "walter", "heisenberg"), nil)

		flow := newTestFlow(store)

		_, unknownErr := flow.SignIn(ctx, testPayload{username: "gustavo", password: "heisenberg"})
		_, wrongErr := flow.SignIn(ctx, testPayload{username: "walter", password: "not-the-password"})

		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})
}

func TestAuthFlow_VerifyToken(t *testing.T) {
	ctx := context.Background()
	user := storedUser(t, "walter", "heisenberg")

	store := &MockUserStore{}
	store.On("GetUserByUsername", ctx, "walter").Return(user, nil)

	flow := newTestFlow(store)

	t.Run("rejects garbage tokens", func(t *testing.T) {
		claims, err := flow.VerifyToken("not.a.token")

		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("rejects tokens signed by another flow", func(t *testing.T) {
		other := credauth.NewAuthFlow(
			store,
			credauth.NewSHA256Hashing(),
			credauth.NewTokenService(nil),
			credauth.TokenConfig{
				Issuer:    "test-issuer",
				Audience:  "test-audience",
				ExpiresIn: time.Hour,
				Secret:    []byte("a-different-key"),
			},
		)

		token, err := other.SignIn(ctx, testPayload{username: "walter", password: "heisenberg"})
		require.NoError(t, err)

		claims, err := flow.VerifyToken(token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}
