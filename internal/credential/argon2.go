// Package credential hashes and verifies local login passwords.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"

	"github.com/secretwall/internal/domain"
)

// Params configures Argon2id hashing
type Params struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     uint32
}

// DefaultParams returns the parameters used when none are configured
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

// Argon2id implements domain.PasswordHasher
type Argon2id struct {
	params Params
}

var _ domain.PasswordHasher = (*Argon2id)(nil)

// NewArgon2id creates a hasher; zero-valued fields fall back to DefaultParams
func NewArgon2id(p Params) *Argon2id {
	d := DefaultParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Parallelism == 0 {
		p.Parallelism = d.Parallelism
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return &Argon2id{params: p}
}

// Hash derives a credential from password with a fresh random salt.
// Format of Hash: $argon2id$v=19$m=65536,t=1,p=4$<keyB64>
func (a *Argon2id) Hash(password string) (domain.Credential, error) {
	if len(password) == 0 {
		return domain.Credential{}, errors.Errorf("password is required")
	}
	salt := make([]byte, a.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return domain.Credential{}, errors.Wrap(err, "generate salt")
	}
	p := a.params
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return domain.Credential{
		Hash: fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s",
			p.MemoryKiB, p.Time, p.Parallelism, base64.RawStdEncoding.EncodeToString(dk)),
		Salt: base64.RawStdEncoding.EncodeToString(salt),
	}, nil
}

// Verify checks password against cred in constant time. A malformed credential
// is an error; a mismatch is (false, nil).
func (a *Argon2id) Verify(password string, cred domain.Credential) (bool, error) {
	p, key, err := parseHash(cred.Hash)
	if err != nil {
		return false, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(cred.Salt)
	if err != nil {
		return false, errors.Wrap(err, "decode salt")
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(dk, key) == 1, nil
}

// NeedsRehash reports whether cred was produced with different parameters
func (a *Argon2id) NeedsRehash(cred domain.Credential) bool {
	p, key, err := parseHash(cred.Hash)
	if err != nil {
		return true
	}
	return p.Time != a.params.Time || p.MemoryKiB != a.params.MemoryKiB ||
		p.Parallelism != a.params.Parallelism || uint32(len(key)) != a.params.KeyLen
}

func parseHash(encoded string) (Params, []byte, error) {
	var out Params
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return out, nil, errors.Errorf("unsupported password hash format")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return out, nil, errors.Errorf("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return out, nil, errors.Errorf("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return out, nil, errors.Errorf("invalid argon2id parameter %q", kv)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, errors.Wrap(err, "parse memory")
			}
			out.MemoryKiB = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, errors.Wrap(err, "parse time")
			}
			out.Time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return out, nil, errors.Wrap(err, "parse parallelism")
			}
			out.Parallelism = uint8(n)
		}
	}
	if out.MemoryKiB == 0 || out.Time == 0 || out.Parallelism == 0 {
		return out, nil, errors.Errorf("argon2id parameters m, t and p must all be positive")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return out, nil, errors.Wrap(err, "decode key")
	}
	if len(key) == 0 {
		return out, nil, errors.Errorf("argon2id hash has no key")
	}
	out.KeyLen = uint32(len(key))
	return out, key, nil
}
