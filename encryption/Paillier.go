package encryption

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/roasbeef/go-go-gadget-paillier"
)

// PaillierEngine adapts the Paillier cryptosystem to the Engine
// interface. Paillier is additively homomorphic only: Add is real
// ciphertext arithmetic, while Multiply, Equals and Select report
// ErrUnsupportedOperation. The combat core therefore rejects it at
// construction, but it remains available for additive-only aggregation
// over the same handle type.
//
// Paillier encryption is randomized, so handles are not deterministic
// per logical value; that is acceptable because no fingerprint is ever
// computed over Paillier handles.
type PaillierEngine struct {
	keySize    int
	privateKey *paillier.PrivateKey
	publicKey  *paillier.PublicKey
}

// NewPaillierEngine generates a fresh key pair of the given size.
func NewPaillierEngine(keySize int) (*PaillierEngine, error) {
	privateKey, err := paillier.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Paillier key: %v", err)
	}

	return &PaillierEngine{
		keySize:    keySize,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

// Name returns the name of the encryption scheme
func (p *PaillierEngine) Name() string {
	return fmt.Sprintf("Paillier-%d", p.keySize)
}

// KeySize returns the key size in bits
func (p *PaillierEngine) KeySize() int {
	return p.keySize
}

// SupportsComparison reports that Paillier cannot evaluate the
// encrypted equality and select operations.
func (p *PaillierEngine) SupportsComparison() bool {
	return false
}

func (p *PaillierEngine) EncryptZero() ConfidentialValue {
	v, err := p.EncryptUint64(0)
	if err != nil {
		return ConfidentialValue{}
	}
	return v
}

func (p *PaillierEngine) IsInitialized(value ConfidentialValue) bool {
	return len(value.Handle) > 0
}

func (p *PaillierEngine) ExportHandle(value ConfidentialValue) []byte {
	out := make([]byte, len(value.Handle))
	copy(out, value.Handle)
	return out
}

// Add performs homomorphic addition of two ciphertexts
func (p *PaillierEngine) Add(a, b ConfidentialValue) (ConfidentialValue, error) {
	if !p.IsInitialized(a) || !p.IsInitialized(b) {
		return ConfidentialValue{}, ErrUninitialized
	}

	sum := paillier.AddCipher(p.publicKey, a.Handle, b.Handle)
	return ConfidentialValue{Handle: sum}, nil
}

// Multiply returns an error as Paillier doesn't support homomorphic multiplication
func (p *PaillierEngine) Multiply(a, b ConfidentialValue) (ConfidentialValue, error) {
	return ConfidentialValue{}, fmt.Errorf("paillier multiply: %w", ErrUnsupportedOperation)
}

func (p *PaillierEngine) Equals(a, b ConfidentialValue) (ConfidentialBool, error) {
	return ConfidentialBool{}, fmt.Errorf("paillier equals: %w", ErrUnsupportedOperation)
}

func (p *PaillierEngine) Select(cond ConfidentialBool, a, b ConfidentialValue) (ConfidentialValue, error) {
	return ConfidentialValue{}, fmt.Errorf("paillier select: %w", ErrUnsupportedOperation)
}

func (p *PaillierEngine) EncryptUint64(value uint64) (ConfidentialValue, error) {
	plaintext := new(big.Int).SetUint64(value).Bytes()
	if len(plaintext) == 0 {
		plaintext = []byte{0}
	}

	ciphertext, err := paillier.Encrypt(p.publicKey, plaintext)
	if err != nil {
		return ConfidentialValue{}, fmt.Errorf("paillier encryption failed: %w", err)
	}
	return ConfidentialValue{Handle: ciphertext}, nil
}

func (p *PaillierEngine) DecryptUint64(value ConfidentialValue) (uint64, error) {
	if !p.IsInitialized(value) {
		return 0, ErrUninitialized
	}

	plaintext, err := paillier.Decrypt(p.privateKey, value.Handle)
	if err != nil {
		return 0, fmt.Errorf("paillier decryption failed: %w", err)
	}

	return new(big.Int).SetBytes(plaintext).Uint64(), nil
}
