package encryption

import (
	"encoding/binary"
	"fmt"
)

// PlaintextEngine implements Engine with no encryption at all: the
// handle carries the big-endian integer directly. It exists so the
// aggregation algorithm can be unit-tested without a confidential
// computation backend and must never be used outside tests.
type PlaintextEngine struct{}

func NewPlaintextEngine() *PlaintextEngine {
	return &PlaintextEngine{}
}

func (e *PlaintextEngine) Name() string {
	return "Plaintext"
}

func (e *PlaintextEngine) SupportsComparison() bool {
	return true
}

func (e *PlaintextEngine) EncryptZero() ConfidentialValue {
	v, _ := e.EncryptUint64(0)
	return v
}

func (e *PlaintextEngine) IsInitialized(value ConfidentialValue) bool {
	return len(value.Handle) == 8
}

func (e *PlaintextEngine) ExportHandle(value ConfidentialValue) []byte {
	out := make([]byte, len(value.Handle))
	copy(out, value.Handle)
	return out
}

func (e *PlaintextEngine) Add(a, b ConfidentialValue) (ConfidentialValue, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return ConfidentialValue{}, err
	}
	return e.wrap(x + y), nil
}

func (e *PlaintextEngine) Multiply(a, b ConfidentialValue) (ConfidentialValue, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return ConfidentialValue{}, err
	}
	return e.wrap(x * y), nil
}

func (e *PlaintextEngine) Equals(a, b ConfidentialValue) (ConfidentialBool, error) {
	x, y, err := e.pair(a, b)
	if err != nil {
		return ConfidentialBool{}, err
	}
	if x == y {
		return ConfidentialBool{Handle: []byte{1}}, nil
	}
	return ConfidentialBool{Handle: []byte{0}}, nil
}

func (e *PlaintextEngine) Select(cond ConfidentialBool, a, b ConfidentialValue) (ConfidentialValue, error) {
	if len(cond.Handle) != 1 {
		return ConfidentialValue{}, ErrUninitialized
	}
	if !e.IsInitialized(a) || !e.IsInitialized(b) {
		return ConfidentialValue{}, ErrUninitialized
	}
	if cond.Handle[0] != 0 {
		return a, nil
	}
	return b, nil
}

func (e *PlaintextEngine) EncryptUint64(value uint64) (ConfidentialValue, error) {
	return e.wrap(value), nil
}

func (e *PlaintextEngine) DecryptUint64(value ConfidentialValue) (uint64, error) {
	if !e.IsInitialized(value) {
		return 0, ErrUninitialized
	}
	return binary.BigEndian.Uint64(value.Handle), nil
}

func (e *PlaintextEngine) pair(a, b ConfidentialValue) (uint64, uint64, error) {
	if !e.IsInitialized(a) || !e.IsInitialized(b) {
		return 0, 0, fmt.Errorf("plaintext engine: %w", ErrUninitialized)
	}
	return binary.BigEndian.Uint64(a.Handle), binary.BigEndian.Uint64(b.Handle), nil
}

func (e *PlaintextEngine) wrap(value uint64) ConfidentialValue {
	handle := make([]byte, 8)
	binary.BigEndian.PutUint64(handle, value)
	return ConfidentialValue{Handle: handle}
}
