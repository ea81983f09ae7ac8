package service

import "errors"

var (
	ErrInvalidTimeFormat     = errors.New("invalid time format, expected H:MM or HH:MM")
	ErrInvalidTime           = errors.New("time out of range")
	ErrDuplicateSubscription = errors.New("subscription already active")
	ErrNotScheduled          = errors.New("no active subscription")
	ErrStorageUnavailable    = errors.New("subscription storage unavailable")
	// ErrRegistryInconsistency means the store and the armed jobs disagree after a
	// partial failure. It is never repaired automatically.
	ErrRegistryInconsistency = errors.New("subscription store and job registry disagree")
)
