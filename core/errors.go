package core

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedChain   = errors.New("unsupported chain")
	ErrNotFoundOrExpired  = errors.New("authentication not found or expired")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNotFound           = errors.New("key not found")
	ErrInvalidTTL         = errors.New("invalid ttl")
	ErrChallengeNotIssued = errors.New("challenge not issued, expired or already used")
)
