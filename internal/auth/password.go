// internal/auth/password.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("malformed password hash")
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

// Argon2 is a set of argon2id cost parameters. Stored hashes carry their own
// parameters, so changing DefaultArgon2 only affects new accounts.
type Argon2 struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

var DefaultArgon2 = Argon2{
	Memory:  64 * 1024,
	Time:    5,
	Threads: uint8(min(max(runtime.NumCPU()/2, 1), 255)),
	SaltLen: 16,
	KeyLen:  32,
}

var b64 = base64.RawStdEncoding

// HashPassword hashes password with DefaultArgon2.
func HashPassword(password string) (string, error) {
	return DefaultArgon2.Hash(password)
}

// Hash returns the PHC-style encoding $argon2id$v=..$m=..,t=..,p=..$salt$key.
func (a Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, a.Time, a.Memory, a.Threads, a.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches encoded. Anything that does
// not parse is ErrInvalidHash.
func VerifyPassword(password, encoded string) (bool, error) {
	a, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, a.Time, a.Memory, a.Threads, a.KeyLen)
	return subtle.ConstantTimeCompare(key, got) == 1, nil
}

func parseHash(encoded string) (a Argon2, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return a, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return a, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return a, nil, nil, ErrIncompatibleVersion
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &a.Memory, &a.Time, &a.Threads); err != nil {
		return a, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if salt, err = b64.Strict().DecodeString(parts[4]); err != nil {
		return a, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if key, err = b64.Strict().DecodeString(parts[5]); err != nil {
		return a, nil, nil, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	a.SaltLen, a.KeyLen = uint32(len(salt)), uint32(len(key))
	return a, salt, key, nil
}
