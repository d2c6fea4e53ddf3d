package security

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidKey = errors.New("invalid api key")

// KeyVerifier checks presented API keys against the configured secret.
type KeyVerifier interface {
	Verify(presented string) error
	Enabled() bool
}

type keyVerifier struct {
	secret []byte
	hashed bool
}

// NewKeyVerifier accepts either a plain key or a bcrypt hash of one.
// An empty secret disables verification.
func NewKeyVerifier(secret string) KeyVerifier {
	secret = strings.TrimSpace(secret)
	return &keyVerifier{
		secret: []byte(secret),
		hashed: isBcryptHash(secret),
	}
}

func (v *keyVerifier) Enabled() bool {
	return len(v.secret) > 0
}

func (v *keyVerifier) Verify(presented string) error {
	if !v.Enabled() {
		return nil
	}
	if presented == "" {
		return ErrInvalidKey
	}
	if v.hashed {
		if err := bcrypt.CompareHashAndPassword(v.secret, []byte(presented)); err != nil {
			return ErrInvalidKey
		}
		return nil
	}
	if subtle.ConstantTimeCompare(v.secret, []byte(presented)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// HashKey produces a bcrypt hash suitable for the api key setting.
func HashKey(key string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
