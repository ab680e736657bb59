package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/averix/go-credauth"
	"github.com/averix/go-credauth/mongostore"
)

// Config holds runtime settings for the auth service process.
type Config struct {
	Port           string
	SigningKey     string
	Issuer         string
	Audience       string
	TokenExpiresIn time.Duration
	TokenLookup    string
	AuthScheme     string
	ContextKey     string
	StoreBackend   string // sqlite or mongo
	SQLiteDSN      string
	MongoURI       string
	MongoDatabase  string
}

func (c Config) GetSigningKey() string              { return c.SigningKey }
func (c Config) GetIssuer() string                  { return c.Issuer }
func (c Config) GetAudience() string                { return c.Audience }
func (c Config) GetTokenExpiresIn() time.Duration   { return c.TokenExpiresIn }
func (c Config) GetTokenLookup() string             { return c.TokenLookup }
func (c Config) GetAuthScheme() string              { return c.AuthScheme }
func (c Config) GetContextKey() string              { return c.ContextKey }

// Load populates Config from environment variables with sane defaults.
// The signing key has no default on purpose: startup fails without one.
func Load() Config {
	return Config{
		Port:           firstNonEmpty(os.Getenv("PORT"), "8080"),
		SigningKey:     os.Getenv("JWT_SECRET"),
		Issuer:         firstNonEmpty(os.Getenv("JWT_ISSUER"), "http://0.0.0.0:8080"),
		Audience:       firstNonEmpty(os.Getenv("JWT_AUDIENCE"), "users"),
		TokenExpiresIn: durationFromEnv("TOKEN_EXPIRES_IN", 365*24*time.Hour),
		TokenLookup:    firstNonEmpty(os.Getenv("TOKEN_LOOKUP"), "header:Authorization"),
		AuthScheme:     firstNonEmpty(os.Getenv("AUTH_SCHEME"), "Bearer"),
		ContextKey:     firstNonEmpty(os.Getenv("CONTEXT_KEY"), "user"),
		StoreBackend:   firstNonEmpty(os.Getenv("STORE_BACKEND"), "sqlite"),
		SQLiteDSN:      firstNonEmpty(os.Getenv("SQLITE_DSN"), "file:credauth.db?cache=shared"),
		MongoURI:       firstNonEmpty(os.Getenv("MONGO_URI"), mongoURIFromParts()),
		MongoDatabase:  firstNonEmpty(os.Getenv("MONGO_DB"), "credauth"),
	}
}

// mongoURIFromParts assembles a connection string from MONGO_USER/MONGO_PW
// and the cluster host when no full URI is given.
func mongoURIFromParts() string {
	user := os.Getenv("MONGO_USER")
	pw := os.Getenv("MONGO_PW")
	host := os.Getenv("MONGO_HOST")
	if user == "" || pw == "" || host == "" {
		return ""
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority", user, pw, host)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// durationFromEnv reads a duration from env var name, falling back to
// defaultVal when empty or invalid.
func durationFromEnv(name string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

type persistenceConfig struct {
	dsn string
}

func (p persistenceConfig) GetDSN() string { return p.dsn }

func (p persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := Load()
	ctx := context.Background()

	tokenConfig, err := credauth.TokenConfigFromConfig(cfg)
	if err != nil {
		log.Fatalf("auth configuration: %s", err)
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store setup: %s", err)
	}
	defer cleanup()

	flow := credauth.NewAuthFlow(
		store,
		credauth.NewSHA256Hashing(),
		credauth.NewTokenService(nil),
		tokenConfig,
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	credauth.RegisterAuthRoutes(srv.Router(),
		credauth.WithControllerFlow(flow),
		credauth.WithControllerConfig(cfg),
		credauth.WithControllerRoutes(&credauth.AuthControllerRoutes{
			SignUp:       "/auth/signup",
			SignIn:       "/auth/signin",
			Authenticate: "/auth/authenticate",
			Secret:       "/auth/secret",
		}),
	)

	srv.Serve(":" + cfg.Port)

	WaitExitSignal()
}

// buildStore selects and initializes the user store backend. The cleanup
// function releases whatever the backend holds open.
func buildStore(ctx context.Context, cfg Config) (credauth.UserStore, func(), error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "mongo":
		store, err := mongostore.New(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close(context.Background()) }, nil
	default:
		db, err := sqliteDB(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		repos := credauth.NewRepositoryManager(db)
		repos.MustValidate()
		return repos.Users(), func() { db.Close() }, nil
	}
}

// sqliteDB opens the embedded database and brings the schema up to date.
func sqliteDB(ctx context.Context, dsn string) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*credauth.User)(nil))

	client, err := persistence.New(persistenceConfig{dsn: dsn}, db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		credauth.GetMigrationsFS(),
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
