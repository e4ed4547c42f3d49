package irc

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordChecker verifies the shared connection password.
type passwordChecker interface {
	Match(candidate string) bool
}

type plainPassword []byte

func (p plainPassword) Match(candidate string) bool {
	return subtle.ConstantTimeCompare(p, []byte(candidate)) == 1
}

type bcryptPassword []byte

func (p bcryptPassword) Match(candidate string) bool {
	return bcrypt.CompareHashAndPassword(p, []byte(candidate)) == nil
}

// newPasswordChecker returns a checker for password, which is a bcrypt hash
// when hashed is set.
func newPasswordChecker(password string, hashed bool) (passwordChecker, error) {
	if !hashed {
		return plainPassword(password), nil
	}
	if _, err := bcrypt.Cost([]byte(password)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt password hash: %w", err)
	}
	return bcryptPassword(password), nil
}
