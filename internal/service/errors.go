package service

import "errors"

var (
	ErrValidation       = errors.New("missing required field")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateSession = errors.New("session or room id already taken")
	ErrAuthentication   = errors.New("authentication failed")
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrInternalServer   = errors.New("internal server error")
)
