package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the response never reveals which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotMatch           = errors.New("email and name do not match")
)
