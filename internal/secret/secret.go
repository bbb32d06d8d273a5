package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// MustNew generates a new cryptographically secure byte array of length len and returns its URL-safe base64
// representation + the hash of that representation (see Hash)
func MustNew(len int) (string, string) {
	bytes := make([]byte, len)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}

	raw := base64.RawURLEncoding.EncodeToString(bytes)
	return raw, Hash(raw)
}

// Hash returns the hex encoded SHA256 hash of the given raw secret
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
