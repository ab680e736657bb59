package credauth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/averix/go-credauth/middleware/jwtware"
)

// AuthRequest is the decoded signup/signin payload. The transport layer
// rejects bodies that fail to decode before the flows run; field-level
// rules live in the flow so the check order is preserved.
type AuthRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// GetUsername returns the username
func (r AuthRequest) GetUsername() string {
	return r.Username
}

// GetPassword will return the password
func (r AuthRequest) GetPassword() string {
	return r.Password
}

// AuthResponse carries the bearer token minted on signin
type AuthResponse struct {
	Token string `json:"token"`
}

type AuthControllerRoutes struct {
	SignUp       string
	SignIn       string
	Authenticate string
	Secret       string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Flow         *AuthFlow
	Routes       *AuthControllerRoutes
	ContextKey   string
	TokenLookup  string
	AuthScheme   string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerFlow(flow *AuthFlow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Flow = flow
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = routes
		return c
	}
}

// WithControllerConfig carries the token lookup, auth scheme, and context
// key from the application config into the guard middleware.
func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if v := cfg.GetTokenLookup(); v != "" {
			c.TokenLookup = v
		}
		if v := cfg.GetAuthScheme(); v != "" {
			c.AuthScheme = v
		}
		if v := cfg.GetContextKey(); v != "" {
			c.ContextKey = v
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		ContextKey:   "user",
		Routes: &AuthControllerRoutes{
			SignUp:       "/signup",
			SignIn:       "/signin",
			Authenticate: "/authenticate",
			Secret:       "/secret",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Flow == nil {
		panic("Missing AuthFlow in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the signup/signin routes plus the two guarded
// routes behind the controller's token middleware.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)
	protected := controller.ProtectedRoute()

	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	app.Post(controller.Routes.SignIn, controller.SignInPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Authenticate, controller.Authenticate, protected).
		SetName("authenticate.get")

	app.Get(controller.Routes.Secret, controller.SecretShow, protected).
		SetName("secret.get")
}

// ProtectedRoute returns the guard middleware wired to the flow's token
// validation, so the guard and signin agree on issuer, audience, and
// expiry.
func (a *AuthController) ProtectedRoute() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:  a.ContextKey,
		TokenLookup: a.TokenLookup,
		AuthScheme:  a.AuthScheme,
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := a.Flow.VerifyToken(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
		ErrorHandler: func(ctx router.Context, err error) error {
			return a.ErrorHandler(ctx, asAuthError(err))
		},
	})
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(AuthRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Error parsing signup payload: %s", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse request body"))
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"operation": "signup",
			"username":  payload.Username,
		}))
	}

	user, err := a.Flow.SignUp(ctx.Context(), payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"id":       user.ID.String(),
		"username": user.Username,
	})
}

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(AuthRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Error parsing signin payload: %s", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse request body"))
	}

	token, err := a.Flow.SignIn(ctx.Context(), payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, AuthResponse{Token: token})
}

// Authenticate is the guarded no-op used by clients to probe whether
// their token is still valid.
func (a *AuthController) Authenticate(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "ok",
	})
}

// SecretShow echoes the userId claim extracted by the guard.
func (a *AuthController) SecretShow(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		ClaimUserID: claims.UserID(),
	})
}

// asAuthError folds middleware extraction/validation failures into the
// unauthorized class so the response shape stays uniform.
func asAuthError(err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}
	return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
		WithCode(errors.CodeUnauthorized).
		WithTextCode(ErrTokenMalformed.TextCode)
}

// defaultErrHandler maps outcome categories to the statuses API callers
// expect: 400 invalid input, 409 conflict, 401 unauthorized.
func defaultErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred")
	}

	status := router.StatusInternalServerError
	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		status = router.StatusBadRequest
	case errors.CategoryConflict:
		status = router.StatusConflict
	case errors.CategoryAuth:
		status = router.StatusUnauthorized
	case errors.CategoryNotFound:
		status = router.StatusNotFound
	}

	return ctx.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
