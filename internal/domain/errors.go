package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMissingIdentifier = errors.New("token id or market id required")
	ErrProviderFetch     = errors.New("provider fetch failed")
	ErrMissingComplement = errors.New("complement token unavailable")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrLockHeld          = errors.New("lock held by another process")
)
