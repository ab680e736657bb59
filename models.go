package credauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. The id is generated at creation and never
// reused; the username is unique across all users. Only the salted hash
// is persisted, never the plaintext, and neither hash nor salt is ever
// serialized into responses.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Salt          string     `bun:"salt,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// NewUser builds a user record from registration inputs
func NewUser(username string, saltedHash SaltedHash) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: saltedHash.Hash,
		Salt:         saltedHash.Salt,
	}
}

// SaltedHash reassembles the stored credential pair for verification
func (u *User) SaltedHash() SaltedHash {
	return SaltedHash{Hash: u.PasswordHash, Salt: u.Salt}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
