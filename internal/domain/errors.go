package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrNoBondsLoaded        = errors.New("no bonds loaded")
	ErrMarketClosed         = errors.New("market closed")
	ErrNoQuote              = errors.New("no price available")
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrInvalidOrder         = errors.New("invalid order parameters")
	ErrInvalidPIN           = errors.New("invalid pin")
	ErrGameLocked           = errors.New("game configuration is locked")
	ErrVersionConflict      = errors.New("snapshot version conflict")
	ErrLockHeld             = errors.New("lock already held")
)
