package services

import "errors"

var (
	// ErrInvalidCredentials is the single outcome of every failed token check.
	ErrInvalidCredentials = errors.New("could not validate credentials")

	// ErrIncorrectLogin is returned when a username/password pair does not match.
	ErrIncorrectLogin = errors.New("incorrect username or password")

	// ErrForbidden is returned when a user acts on an account that is not theirs.
	ErrForbidden = errors.New("not enough permissions")

	ErrWeakPassword     = errors.New("weak password")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidState     = errors.New("invalid todo state")
)
