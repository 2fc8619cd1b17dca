// Package security hashes account passwords with Argon2id. Hashes use the
// PHC string layout: $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

var b64 = base64.RawStdEncoding

type argonParams struct {
	memory  uint32
	passes  uint32
	lanes   uint8
	saltLen uint32
	keyLen  uint32
}

// weaker reports whether hashes made with p fall short of want.
func (p argonParams) weaker(want argonParams) bool {
	return p.memory < want.memory || p.passes < want.passes || p.lanes != want.lanes || p.keyLen < want.keyLen
}

// Hasher hashes new passwords with the configured cost and verifies hashes
// made under any earlier cost.
type Hasher struct {
	params argonParams
}

func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: argonParams{
		memory:  clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		passes:  clamp(cfg.ArgonTime, 1, 10),
		lanes:   uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:  clamp(cfg.ArgonKeyLen, 16, 64),
	}}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	p := h.params
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.passes, p.lanes, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify compares password with encoded in constant time. stale is set on a
// match whose hash was made with a weaker cost than the hasher's, so the
// caller can store a fresh Hash.
func (h *Hasher) Verify(password, encoded string) (match, stale bool, err error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, p.keyLen)
	if subtle.ConstantTimeCompare(key, got) != 1 {
		return false, false, nil
	}
	return true, p.weaker(h.params), nil
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var p argonParams
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.lanes); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.passes == 0 || p.lanes == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen, p.keyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}
