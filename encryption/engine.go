package encryption

import "errors"

// ErrUninitialized is returned when an engine operation receives a
// handle that was never produced by the engine. An uninitialized handle
// never behaves as a silent zero.
var ErrUninitialized = errors.New("confidential value is not initialized")

// ErrUnsupportedOperation is returned by engines that do not implement
// the full homomorphic capability set.
var ErrUnsupportedOperation = errors.New("operation not supported by this engine")

// ConfidentialValue is an opaque ciphertext handle for an unsigned
// integer. The zero value is uninitialized; handles are only ever
// produced and interpreted by an Engine.
type ConfidentialValue struct {
	Handle []byte `json:"handle,omitempty"`
}

// ConfidentialBool is an opaque ciphertext handle for a boolean,
// produced by Engine.Equals and consumed by Engine.Select.
type ConfidentialBool struct {
	Handle []byte `json:"handle,omitempty"`
}

// Engine is the homomorphic evaluation strategy over confidential
// values. The combat core never branches on plaintext; every comparison
// and conditional runs through these operations. Engines that cannot
// evaluate comparisons report it via SupportsComparison and return
// ErrUnsupportedOperation from Equals and Select.
type Engine interface {
	// Identity information
	Name() string
	SupportsComparison() bool

	// Handle management
	EncryptZero() ConfidentialValue
	IsInitialized(value ConfidentialValue) bool
	ExportHandle(value ConfidentialValue) []byte

	// Homomorphic operations
	Add(a, b ConfidentialValue) (ConfidentialValue, error)
	Multiply(a, b ConfidentialValue) (ConfidentialValue, error)
	Equals(a, b ConfidentialValue) (ConfidentialBool, error)
	Select(cond ConfidentialBool, a, b ConfidentialValue) (ConfidentialValue, error)

	// Trusted-side operations. EncryptUint64 is used by clients and
	// tests to produce inputs; DecryptUint64 belongs to the decryption
	// oracle side of the trust boundary and is never called by the core.
	EncryptUint64(value uint64) (ConfidentialValue, error)
	DecryptUint64(value ConfidentialValue) (uint64, error)
}

// Normalize replaces an uninitialized handle with the engine's
// encrypted zero. Initialized handles pass through untouched.
func Normalize(engine Engine, value ConfidentialValue) ConfidentialValue {
	if engine.IsInitialized(value) {
		return value
	}
	return engine.EncryptZero()
}
