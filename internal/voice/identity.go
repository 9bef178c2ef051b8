package voice

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Identity is the cryptographic identity presented to the server. Counter is
// the security level reached for Key.
type Identity struct {
	Counter uint64
	Key     []byte
}

// NewIdentity generates a fresh P-256 identity at level zero.
func NewIdentity() (Identity, error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to generate identity key: %w", err)
	}
	return Identity{Key: key.Bytes()}, nil
}

// ParseIdentity parses the canonical form "{counter}V{base64 key}".
func ParseIdentity(s string) (Identity, error) {
	counter, key, ok := strings.Cut(s, "V")
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing separator", ErrInvalidIdentity)
	}
	n, err := strconv.ParseUint(counter, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad counter %q", ErrInvalidIdentity, counter)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad key: %v", ErrInvalidIdentity, err)
	}
	if len(raw) == 0 {
		return Identity{}, fmt.Errorf("%w: empty key", ErrInvalidIdentity)
	}
	return Identity{Counter: n, Key: raw}, nil
}

func (id Identity) String() string {
	return strconv.FormatUint(id.Counter, 10) + "V" + base64.StdEncoding.EncodeToString(id.Key)
}

func parseOrCreateIdentity(s string) (Identity, error) {
	if s == "" {
		return NewIdentity()
	}
	return ParseIdentity(s)
}
