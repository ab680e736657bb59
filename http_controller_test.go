package credauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	credauth "github.com/averix/go-credauth"
)

func newTestController(store credauth.UserStore) *credauth.AuthController {
	return credauth.NewAuthController(
		credauth.WithControllerFlow(newTestFlow(store)),
	)
}

func bindPayload(ctx *router.MockContext, username, password string) {
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*credauth.AuthRequest)
		payload.Username = username
		payload.Password = password
	}).Return(nil)
}

func TestAuthControllerSignUpPost(t *testing.T) {
	t.Run("returns the new user without credential material", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", mock.Anything, "walter").Return(nil, credauth.ErrUserNotFound)
		store.On("InsertUser", mock.Anything, mock.AnythingOfType("*credauth.User")).Return(true, nil)

		controller := newTestController(store)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindPayload(ctx, "walter", "heisenberg")

		var payload map[string]any
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.SignUpPost(ctx)
		require.NoError(t, err)
		require.Equal(t, "walter", payload["username"])
		require.NotEmpty(t, payload["id"])
		require.NotContains(t, payload, "password")
		require.NotContains(t, payload, "token")
	})

	t.Run("responds 409 for a taken username", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", mock.Anything, "walter").
			Return(storedUser(t, "walter", "heisenberg"), nil)

		controller := newTestController(store)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindPayload(ctx, "walter", "heisenberg")

		var payload map[string]any
		ctx.On("JSON", router.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.SignUpPost(ctx)
		require.NoError(t, err)
		require.Equal(t, "username taken", payload["error"])
		require.Equal(t, credauth.TextCodeUsernameTaken, payload["text_code"])
	})

	t.Run("responds 400 for a short password", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", mock.Anything, "walter").Return(nil, credauth.ErrUserNotFound)

		controller := newTestController(store)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindPayload(ctx, "walter", "abc")

		var payload map[string]any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		err := controller.SignUpPost(ctx)
		require.NoError(t, err)
		require.Equal(t, credauth.TextCodePasswordTooShort, payload["text_code"])
	})
}

func TestAuthControllerSignInPost(t *testing.T) {
	t.Run("returns a bearer token", func(t *testing.T) {
		user := storedUser(t, "walter", "heisenberg")

		store := &MockUserStore{}
		store.On("GetUserByUsername", mock.Anything, "walter").Return(user, nil)

		controller := newTestController(store)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		bindPayload(ctx, "walter", "heisenberg")

		var response credauth.AuthResponse
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			response = args.Get(1).(credauth.AuthResponse)
		}).Return(nil)

		err := controller.SignInPost(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, response.Token)
	})

	t.Run("responds 401 with the generic message for bad credentials", func(t *testing.T) {
		store := &MockUserStore{}
		store.On("GetUserByUsername", mock.Anything, "walter").
			Return(storedUser(t, "walter", "heisenberg"), nil)
		store.On("GetUserByUsername", mock.Anything, "gustavo").
			Return(nil, credauth.ErrUserNotFound)

		controller := newTestController(store)

		run := func(username, password string) map[string]any {
			ctx := router.NewMockContext()
			ctx.On("Context").Return(context.Background())
			bindPayload(ctx, username, password)

			var payload map[string]any
			ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
				payload = args.Get(1).(map[string]any)
			}).Return(nil)

			require.NoError(t, controller.SignInPost(ctx))
			return payload
		}

		wrongPassword := run("walter", "not-the-password")
		unknownUser := run("gustavo", "heisenberg")

		// both failure modes must be indistinguishable
		require.Equal(t, "incorrect username or password", wrongPassword["error"])
		require.Equal(t, wrongPassword, unknownUser)
	})
}

func TestAuthControllerSecretShow(t *testing.T) {
	t.Run("echoes the userId claim placed by the guard", func(t *testing.T) {
		store := &MockUserStore{}
		controller := newTestController(store)

		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = &credauth.JWTClaims{UID: "user-123"}

		var payload map[string]string
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]string)
		}).Return(nil)

		err := controller.SecretShow(ctx)
		require.NoError(t, err)
		require.Equal(t, "user-123", payload["userId"])
	})

	t.Run("responds 401 without claims", func(t *testing.T) {
		store := &MockUserStore{}
		controller := newTestController(store)

		ctx := router.NewMockContext()

		var status int
		ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			status = args.Int(0)
		}).Return(nil)

		err := controller.SecretShow(ctx)
		require.NoError(t, err)
		require.Equal(t, router.StatusUnauthorized, status)
	})
}

func TestAuthControllerAuthenticate(t *testing.T) {
	store := &MockUserStore{}
	controller := newTestController(store)

	ctx := router.NewMockContext()

	var payload map[string]string
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.Authenticate(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", payload["status"])
}

func TestAuthControllerConfigWiring(t *testing.T) {
	store := &MockUserStore{}
	flow := newTestFlow(store)

	controller := credauth.NewAuthController(
		credauth.WithControllerFlow(flow),
		credauth.WithControllerConfig(staticConfig{
			tokenLookup: "query:token",
			contextKey:  "identity",
		}),
	)

	require.Equal(t, "query:token", controller.TokenLookup)
	require.Equal(t, "identity", controller.ContextKey)
	// empty config values keep the defaults
	require.Equal(t, "", controller.AuthScheme)

	token, err := credauth.NewTokenService(nil).Generate(
		credauth.TokenConfig{
			Issuer:    "test-issuer",
			Audience:  "test-audience",
			ExpiresIn: time.Hour,
			Secret:    []byte("test-signing-key"),
		},
		credauth.UserIDClaim("user-9"),
	)
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.QueriesM["token"] = token
	ctx.On("Locals", "identity", mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("SetContext", mock.Anything).Return().Maybe()

	handler := controller.ProtectedRoute()(func(c router.Context) error {
		return c.Next()
	})

	require.NoError(t, handler(ctx))
	require.True(t, ctx.NextCalled)
}
