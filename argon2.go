package credauth

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2Params tune the Argon2id key derivation. The zero value is not
// usable; start from DefaultArgon2Params.
type Argon2Params struct {
	Time        uint32
	MemoryKB    uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 low-memory recommendation.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:        3,
		MemoryKB:    64 * 1024,
		Parallelism: 4,
		KeyLength:   32,
	}
}

// Argon2Hashing is the recommended HashingService: a memory-hard KDF over
// the same {hash, salt} contract as SHA256Hashing, so the store schema and
// verification flow are unchanged. Records written by one implementation
// cannot be verified by the other.
type Argon2Hashing struct {
	params Argon2Params
}

var _ HashingService = Argon2Hashing{}

// NewArgon2Hashing returns an Argon2id hashing service. Zero fields in
// params fall back to the defaults.
func NewArgon2Hashing(params Argon2Params) Argon2Hashing {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.MemoryKB == 0 {
		params.MemoryKB = def.MemoryKB
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	return Argon2Hashing{params: params}
}

// GenerateSaltedHash generates a fresh random salt and derives the key
func (a Argon2Hashing) GenerateSaltedHash(plaintext string) (SaltedHash, error) {
	salt, err := generateSalt()
	if err != nil {
		return SaltedHash{}, err
	}

	return SaltedHash{
		Hash: a.derive(plaintext, salt),
		Salt: salt,
	}, nil
}

// Verify re-derives the key from the stored salt and compares in
// constant time
func (a Argon2Hashing) Verify(plaintext string, saltedHash SaltedHash) bool {
	computed := a.derive(plaintext, saltedHash.Salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(saltedHash.Hash)) == 1
}

func (a Argon2Hashing) derive(plaintext, salt string) string {
	key := argon2.IDKey(
		[]byte(plaintext),
		[]byte(salt),
		a.params.Time,
		a.params.MemoryKB,
		a.params.Parallelism,
		a.params.KeyLength,
	)
	return hex.EncodeToString(key)
}
