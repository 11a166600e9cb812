package auth

import "errors"

var (
	ErrEmptyToken     = errors.New("auth: empty token")
	ErrEmptySecret    = errors.New("auth: empty secret")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrInvalidRole    = errors.New("auth: invalid role")
	ErrInvalidMethod  = errors.New("auth: invalid signing method")
	ErrSystemMismatch = errors.New("auth: system mismatch")
)
