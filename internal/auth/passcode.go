package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadPasscode is returned for a wrong or unconfigured staff passcode.
var ErrBadPasscode = errors.New("invalid passcode")

// Passcode checks the shared staff passcode against a bcrypt hash.
type Passcode struct {
	hash []byte
}

// NewPasscode prefers a stored bcrypt hash and otherwise hashes plain at
// startup. With neither set every check fails.
func NewPasscode(plain, hash string) (*Passcode, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
		return &Passcode{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &Passcode{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Passcode{hash: h}, nil
}

// Check compares input with the configured passcode.
func (p *Passcode) Check(input string) error {
	if p == nil || len(p.hash) == 0 || input == "" {
		return ErrBadPasscode
	}
	if err := bcrypt.CompareHashAndPassword(p.hash, []byte(input)); err != nil {
		return ErrBadPasscode
	}
	return nil
}
