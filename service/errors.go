package service

import "errors"

// Authorization errors
var (
	ErrNotOwner    = errors.New("caller is not the owner")
	ErrNotProvider = errors.New("caller is not an authorized provider")
)

// Availability errors
var (
	ErrPaused        = errors.New("system is paused")
	ErrAlreadyPaused = errors.New("system is already paused")
)

// Pacing errors
var (
	ErrCooldownActive   = errors.New("cooldown has not elapsed")
	ErrCooldownTooShort = errors.New("cooldown below minimum floor")
)

// Lifecycle errors
var (
	ErrUnknownMonster = errors.New("monster does not exist")
	ErrUnknownBatch   = errors.New("batch does not exist")
	ErrBatchClosed    = errors.New("batch is closed")
	ErrBatchFull      = errors.New("batch is at capacity")
	ErrEmptyBatch     = errors.New("batch has no attacks")
)

// Integrity errors
var (
	ErrUninitializedValue = errors.New("confidential attribute is not initialized")
	ErrUnknownRequest     = errors.New("unknown decryption request")
	ErrAlreadyProcessed   = errors.New("decryption request already processed")
	ErrStaleReveal        = errors.New("state changed since reveal was requested")
	ErrProofInvalid       = errors.New("decryption proof verification failed")
)
