package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const sealedNonceSize = 12

// SealedEngine implements Engine by sealing every value with AES-GCM
// under an instance-specific key and evaluating operations inside the
// process, the way an in-memory enclave stand-in would. It provides
// confidentiality at rest and in transit but no hardware guarantees.
//
// Nonces are derived from an HMAC of the plaintext so sealing is
// deterministic: the same logical value always produces the same
// handle on the same instance, which is what the reveal protocol's
// state fingerprint relies on.
type SealedEngine struct {
	aead     cipher.AEAD
	nonceKey []byte
}

// NewSealedEngine derives the sealing keys from a 32-byte instance
// secret. The same secret must be supplied across restarts or handles
// persisted by earlier runs become undecryptable.
func NewSealedEngine(secret []byte) (*SealedEngine, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("sealed engine requires a 32-byte secret, got %d", len(secret))
	}

	block, err := aes.NewCipher(deriveKey(secret, "mh-seal"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealing cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &SealedEngine{
		aead:     aead,
		nonceKey: deriveKey(secret, "mh-nonce"),
	}, nil
}

// GenerateSealingSecret produces a fresh 32-byte instance secret.
func GenerateSealingSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate sealing secret: %w", err)
	}
	return secret, nil
}

func deriveKey(secret []byte, label string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(label))
	return h.Sum(nil)
}

func (e *SealedEngine) Name() string {
	return "Sealed-AESGCM"
}

func (e *SealedEngine) SupportsComparison() bool {
	return true
}

func (e *SealedEngine) EncryptZero() ConfidentialValue {
	v, _ := e.EncryptUint64(0)
	return v
}

func (e *SealedEngine) IsInitialized(value ConfidentialValue) bool {
	_, err := e.unsealUint64(value)
	return err == nil
}

func (e *SealedEngine) ExportHandle(value ConfidentialValue) []byte {
	out := make([]byte, len(value.Handle))
	copy(out, value.Handle)
	return out
}

func (e *SealedEngine) Add(a, b ConfidentialValue) (ConfidentialValue, error) {
	x, y, err := e.unsealPair(a, b)
	if err != nil {
		return ConfidentialValue{}, err
	}
	return e.EncryptUint64(x + y)
}

func (e *SealedEngine) Multiply(a, b ConfidentialValue) (ConfidentialValue, error) {
	x, y, err := e.unsealPair(a, b)
	if err != nil {
		return ConfidentialValue{}, err
	}
	return e.EncryptUint64(x * y)
}

func (e *SealedEngine) Equals(a, b ConfidentialValue) (ConfidentialBool, error) {
	x, y, err := e.unsealPair(a, b)
	if err != nil {
		return ConfidentialBool{}, err
	}
	result := byte(0)
	if x == y {
		result = 1
	}
	handle, err := e.seal([]byte{result}, "bool")
	if err != nil {
		return ConfidentialBool{}, err
	}
	return ConfidentialBool{Handle: handle}, nil
}

func (e *SealedEngine) Select(cond ConfidentialBool, a, b ConfidentialValue) (ConfidentialValue, error) {
	plain, err := e.unseal(cond.Handle, "bool")
	if err != nil || len(plain) != 1 {
		return ConfidentialValue{}, ErrUninitialized
	}
	if !e.IsInitialized(a) || !e.IsInitialized(b) {
		return ConfidentialValue{}, ErrUninitialized
	}
	if plain[0] != 0 {
		return a, nil
	}
	return b, nil
}

func (e *SealedEngine) EncryptUint64(value uint64) (ConfidentialValue, error) {
	plain := make([]byte, 8)
	binary.BigEndian.PutUint64(plain, value)

	handle, err := e.seal(plain, "uint64")
	if err != nil {
		return ConfidentialValue{}, err
	}
	return ConfidentialValue{Handle: handle}, nil
}

func (e *SealedEngine) DecryptUint64(value ConfidentialValue) (uint64, error) {
	return e.unsealUint64(value)
}

func (e *SealedEngine) seal(plain []byte, label string) ([]byte, error) {
	h := hmac.New(sha256.New, e.nonceKey)
	h.Write([]byte(label))
	h.Write(plain)
	nonce := h.Sum(nil)[:sealedNonceSize]

	return e.aead.Seal(nonce, nonce, plain, []byte(label)), nil
}

func (e *SealedEngine) unseal(handle []byte, label string) ([]byte, error) {
	if len(handle) <= sealedNonceSize {
		return nil, ErrUninitialized
	}

	nonce, ciphertext := handle[:sealedNonceSize], handle[sealedNonceSize:]
	plain, err := e.aead.Open(nil, nonce, ciphertext, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("failed to unseal value: %w", ErrUninitialized)
	}
	return plain, nil
}

func (e *SealedEngine) unsealUint64(value ConfidentialValue) (uint64, error) {
	plain, err := e.unseal(value.Handle, "uint64")
	if err != nil {
		return 0, err
	}
	if len(plain) != 8 {
		return 0, ErrUninitialized
	}
	return binary.BigEndian.Uint64(plain), nil
}

func (e *SealedEngine) unsealPair(a, b ConfidentialValue) (uint64, uint64, error) {
	x, err := e.unsealUint64(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := e.unsealUint64(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
