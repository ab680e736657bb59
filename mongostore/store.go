// Package mongostore provides a MongoDB backed user store. It satisfies
// the credauth.UserStore interface, with uniqueness enforced by a unique
// index on the username field.
package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-errors"

	"github.com/averix/go-credauth"
)

const defaultConnectTimeout = 10 * time.Second

type Config struct {
	URI        string
	Database   string
	Collection string
}

func (c Config) collection() string {
	if c.Collection == "" {
		return "users"
	}
	return c.Collection
}

// Store persists users in a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// userDocument is the on-disk shape of a user record.
type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	Salt         string    `bson:"salt"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// New connects to MongoDB, ensures the unique username index, and
// returns a ready store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("missing mongo URI", errors.CategoryOperation)
	}

	if cfg.Database == "" {
		return nil, errors.New("missing mongo database name", errors.CategoryOperation)
	}

	cctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to connect to mongo")
	}

	if err := client.Ping(cctx, nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to ping mongo")
	}

	store := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.collection()),
	}

	if err := store.ensureIndexes(cctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureIndexes creates the unique username index. The index is what
// makes concurrent signups for the same name safe.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create username index")
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*credauth.User, error) {
	var doc userDocument

	err := s.collection.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, credauth.ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}

	return docToUser(doc)
}

func (s *Store) InsertUser(ctx context.Context, user *credauth.User) (bool, error) {
	now := time.Now()

	doc := userDocument{
		ID:           user.ID.String(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Salt:         user.Salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, credauth.ErrUsernameTaken
		}
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	return result.InsertedID != nil, nil
}

func docToUser(doc userDocument) (*credauth.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "malformed user id in store")
	}

	return &credauth.User{
		ID:           id,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		Salt:         doc.Salt,
		CreatedAt:    &doc.CreatedAt,
		UpdatedAt:    &doc.UpdatedAt,
	}, nil
}
