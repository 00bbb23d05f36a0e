package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
)

// MaxBatchAttacks bounds the number of attacks a single batch accepts.
// The bound caps the homomorphic reduction cost at reveal time and the
// decryption payload shipped to the oracle.
const MaxBatchAttacks = 10

// Monster holds the confidential attributes of a registered monster.
// Attribute handles are opaque ciphertexts; only the reveal protocol
// ever turns derived values back into plaintext.
type Monster struct {
	ID            string                      `json:"id"`
	Health        encryption.ConfidentialValue `json:"health"`
	Attack        encryption.ConfidentialValue `json:"attack"`
	Defense       encryption.ConfidentialValue `json:"defense"`
	Weakness      encryption.ConfidentialValue `json:"weakness"`
	SchemeVersion uint32                      `json:"scheme_version"`
	RegisteredBy  common.Address              `json:"registered_by"`
	CreatedAt     int64                       `json:"created_at"`
}

// Attack is a single confidential damage contribution. Immutable once
// appended to a batch.
type Attack struct {
	Magnitude  encryption.ConfidentialValue `json:"magnitude"`
	Element    encryption.ConfidentialValue `json:"element"`
	RecordedAt int64                       `json:"recorded_at"`
}

// AttackBatch is a bounded, insertion-ordered collection of attacks
// against one monster.
type AttackBatch struct {
	ID        string   `json:"id"`
	MonsterID string   `json:"monster_id"`
	Attacks   []Attack `json:"attacks"`
	CreatedAt int64    `json:"created_at"`
	Closed    bool     `json:"closed"`
}

// Full reports whether the batch has reached capacity.
func (b *AttackBatch) Full() bool {
	return len(b.Attacks) >= MaxBatchAttacks
}

// DecryptionContext pins an outstanding reveal request to the state it
// was computed from. Keyed by the oracle-assigned request ID.
type DecryptionContext struct {
	RequestID        string `json:"request_id"`
	SchemeVersion    uint32 `json:"scheme_version"`
	MonsterID        string `json:"monster_id"`
	BatchID          string `json:"batch_id"`
	StateFingerprint []byte `json:"state_fingerprint"`
	Processed        bool   `json:"processed"`
	RequestedAt      int64  `json:"requested_at"`
	RevealedDamage   uint64 `json:"revealed_damage,omitempty"`
}
