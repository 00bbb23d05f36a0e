package encryption

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// CryptoService bundles the conventional (non-homomorphic) primitives
// the core needs: Keccak-256 hashing for identities and fingerprints,
// and ECDSA signing and recovery for oracle proofs.
type CryptoService struct{}

func NewCryptoService() *CryptoService {
	return &CryptoService{}
}

// GenerateKeyPair generates a new ECDSA key pair
func (cs *CryptoService) GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Sign creates a digital signature of a digest using private key
func (cs *CryptoService) Sign(digest []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(digest, privateKey)
}

// RecoverAddress recovers the signer address from a digest and signature.
func (cs *CryptoService) RecoverAddress(digest, signature []byte) (common.Address, error) {
	sigPublicKey, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*sigPublicKey), nil
}

// VerifySignature checks that signature over digest was produced by the
// key behind the given address.
func (cs *CryptoService) VerifySignature(digest, signature []byte, signer common.Address) bool {
	recovered, err := cs.RecoverAddress(digest, signature)
	if err != nil {
		return false
	}
	return recovered == signer
}

// Keccak256 computes Keccak-256 hash
func (cs *CryptoService) Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// ParsePrivateKey parses a hex-encoded ECDSA private key, with or
// without a "0x" prefix.
func ParsePrivateKey(keyStr string) (*ecdsa.PrivateKey, error) {
	keyStr = strings.TrimPrefix(keyStr, "0x")

	keyBytes, err := hex.DecodeString(keyStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex string: %w", err)
	}

	privateKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return privateKey, nil
}
