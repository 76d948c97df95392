package services

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	PolicyBasic  = "basic"
	PolicyStrict = "strict"

	basicMinLength  = 6
	strictMinLength = 8
)

// PasswordPolicy decides whether a password is strong enough to store.
type PasswordPolicy struct {
	strict bool
}

// NewPasswordPolicy returns the named policy. Unknown names are rejected.
func NewPasswordPolicy(name string) (PasswordPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyBasic:
		return PasswordPolicy{}, nil
	case PolicyStrict:
		return PasswordPolicy{strict: true}, nil
	default:
		return PasswordPolicy{}, fmt.Errorf("unknown password policy %q", name)
	}
}

// Check returns ErrWeakPassword when password does not satisfy the policy.
func (p PasswordPolicy) Check(password string) error {
	length := len([]rune(password))
	if !p.strict {
		if length < basicMinLength {
			return ErrWeakPassword
		}
		return nil
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSpecial = true
		}
	}
	if length < strictMinLength || !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}
	return nil
}

// checkPassword applies the policy and, when confirm is set, requires it to
// match password.
func (p PasswordPolicy) checkPassword(password string, confirm *string) error {
	if err := p.Check(password); err != nil {
		return err
	}
	if confirm != nil && *confirm != password {
		return ErrPasswordMismatch
	}
	return nil
}
