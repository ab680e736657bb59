package credauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"github.com/goliatone/go-errors"
)

// saltLength is the raw salt size in bytes (256 bits of entropy).
const saltLength = 32

// SaltedHash pairs a password digest with the random salt it was derived
// from. Both values are hex encoded and safe to persist; the plaintext
// never is.
type SaltedHash struct {
	Hash string
	Salt string
}

// HashingService derives and verifies salted one-way password hashes.
// Implementations must generate a fresh unpredictable salt per call and
// compare digests in constant time.
type HashingService interface {
	GenerateSaltedHash(plaintext string) (SaltedHash, error)
	Verify(plaintext string, saltedHash SaltedHash) bool
}

// SHA256Hashing computes SHA-256(salt || plaintext). This matches the
// reference deployments this package has to stay hash-compatible with.
// It is a fast hash, not an adaptive KDF; use Argon2Hashing unless you
// need to verify records written by an existing SHA-256 deployment.
type SHA256Hashing struct{}

var _ HashingService = SHA256Hashing{}

// NewSHA256Hashing returns the reference-compatible hashing service
func NewSHA256Hashing() SHA256Hashing {
	return SHA256Hashing{}
}

// GenerateSaltedHash generates a fresh random salt and derives the digest
func (s SHA256Hashing) GenerateSaltedHash(plaintext string) (SaltedHash, error) {
	salt, err := generateSalt()
	if err != nil {
		return SaltedHash{}, err
	}

	return SaltedHash{
		Hash: s.digest(plaintext, salt),
		Salt: salt,
	}, nil
}

// Verify recomputes the digest from the stored salt and compares in
// constant time
func (s SHA256Hashing) Verify(plaintext string, saltedHash SaltedHash) bool {
	computed := s.digest(plaintext, saltedHash.Salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(saltedHash.Hash)) == 1
}

func (s SHA256Hashing) digest(plaintext, salt string) string {
	sum := sha256.Sum256([]byte(salt + plaintext))
	return hex.EncodeToString(sum[:])
}

func generateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate password salt")
	}
	return hex.EncodeToString(salt), nil
}
