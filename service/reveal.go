package service

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/models"
)

// RequestReveal aggregates a batch's confidential damage under
// encryption, submits the aggregate handle to the decryption oracle and
// records a pending decryption context bound to the current state
// fingerprint. Returns the oracle-assigned request ID.
//
// The batch and monster stay fully mutable while the request is in
// flight; the fingerprint check in OnRevealCallback, not a lock, is
// what protects the reveal against interleaved mutation.
func (hs *HuntService) RequestReveal(caller common.Address, monsterID, batchID string) (string, error) {
	start := time.Now()
	if err := hs.gate(caller, true); err != nil {
		return "", err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	monster, ok := hs.monsters[monsterID]
	if !ok {
		return "", ErrUnknownMonster
	}
	batch, ok := hs.batches[batchID]
	if !ok || batch.MonsterID != monsterID {
		return "", ErrUnknownBatch
	}
	if len(batch.Attacks) == 0 {
		return "", ErrEmptyBatch
	}

	aggregate, err := hs.aggregateDamage(monster, batch)
	if err != nil {
		return "", err
	}

	handle := hs.engine.ExportHandle(aggregate)
	fingerprint := hs.stateFingerprint(handle)

	requestID, err := hs.oracle.Submit([][]byte{handle})
	if err != nil {
		return "", fmt.Errorf("failed to submit decryption request: %w", err)
	}

	hs.contexts[requestID] = &models.DecryptionContext{
		RequestID:        requestID,
		SchemeVersion:    monster.SchemeVersion,
		MonsterID:        monsterID,
		BatchID:          batchID,
		StateFingerprint: fingerprint,
		RequestedAt:      hs.now().Unix(),
	}

	if err := hs.store.SaveContexts(hs.contexts); err != nil {
		return "", fmt.Errorf("failed to persist decryption context: %w", err)
	}

	hs.publish(models.Event{Type: models.EventRevealRequested, Caller: caller.Hex(), MonsterID: monsterID, BatchID: batchID, RequestID: requestID})
	hs.metrics.RecordRevealRequested(time.Since(start))

	hs.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"monster_id": monsterID,
		"batch_id":   batchID,
	}).Info("reveal requested")

	return requestID, nil
}

// OnRevealCallback finalizes a pending reveal. Invoked by the oracle
// only; it carries no caller identity and is gated by integrity checks
// alone. Every failure leaves the context Pending and unchanged, so a
// mutated state can still be revealed through a brand-new request.
func (hs *HuntService) OnRevealCallback(requestID string, cleartext, proof []byte) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	ctx, ok := hs.contexts[requestID]
	if !ok {
		return ErrUnknownRequest
	}
	if ctx.Processed {
		hs.metrics.RecordRevealRejected()
		return ErrAlreadyProcessed
	}

	// Staleness guard: re-derive the aggregate from current storage and
	// require the fingerprint recorded at request time.
	monster, ok := hs.monsters[ctx.MonsterID]
	if !ok {
		hs.metrics.RecordRevealRejected()
		return ErrStaleReveal
	}
	batch, ok := hs.batches[ctx.BatchID]
	if !ok || len(batch.Attacks) == 0 {
		hs.metrics.RecordRevealRejected()
		return ErrStaleReveal
	}

	aggregate, err := hs.aggregateDamage(monster, batch)
	if err != nil {
		hs.metrics.RecordRevealRejected()
		return ErrStaleReveal
	}

	fingerprint := hs.stateFingerprint(hs.engine.ExportHandle(aggregate))
	if !bytes.Equal(fingerprint, ctx.StateFingerprint) {
		hs.metrics.RecordRevealRejected()
		hs.log.WithField("request_id", requestID).Warn("reveal rejected, state fingerprint mismatch")
		return ErrStaleReveal
	}

	if !hs.oracle.Verify(requestID, cleartext, proof) {
		hs.metrics.RecordRevealRejected()
		return ErrProofInvalid
	}
	if len(cleartext) != 8 {
		hs.metrics.RecordRevealRejected()
		return ErrProofInvalid
	}

	ctx.Processed = true
	ctx.RevealedDamage = binary.BigEndian.Uint64(cleartext)

	if err := hs.store.SaveContexts(hs.contexts); err != nil {
		// Roll back so the context is not half-finalized in memory.
		ctx.Processed = false
		ctx.RevealedDamage = 0
		return fmt.Errorf("failed to persist decryption context: %w", err)
	}

	hs.publish(models.Event{Type: models.EventDamageRevealed, MonsterID: ctx.MonsterID, BatchID: ctx.BatchID, RequestID: requestID, Damage: ctx.RevealedDamage})
	hs.metrics.RecordRevealCompleted()

	hs.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"damage":     ctx.RevealedDamage,
	}).Info("damage revealed")

	return nil
}

// aggregateDamage folds a batch into one confidential total:
// each attack contributes magnitude doubled when its element matches
// the monster's weakness. Both the comparison and the doubling run
// under encryption; no plaintext element or weakness is ever inspected.
func (hs *HuntService) aggregateDamage(monster *models.Monster, batch *models.AttackBatch) (encryption.ConfidentialValue, error) {
	if !hs.engine.IsInitialized(monster.Weakness) {
		return encryption.ConfidentialValue{}, ErrUninitializedValue
	}

	double, err := hs.engine.EncryptUint64(2)
	if err != nil {
		return encryption.ConfidentialValue{}, err
	}
	single, err := hs.engine.EncryptUint64(1)
	if err != nil {
		return encryption.ConfidentialValue{}, err
	}

	total := hs.engine.EncryptZero()
	for _, attack := range batch.Attacks {
		if !hs.engine.IsInitialized(attack.Magnitude) || !hs.engine.IsInitialized(attack.Element) {
			return encryption.ConfidentialValue{}, ErrUninitializedValue
		}

		critical, err := hs.engine.Equals(attack.Element, monster.Weakness)
		if err != nil {
			return encryption.ConfidentialValue{}, err
		}
		multiplier, err := hs.engine.Select(critical, double, single)
		if err != nil {
			return encryption.ConfidentialValue{}, err
		}
		scaled, err := hs.engine.Multiply(attack.Magnitude, multiplier)
		if err != nil {
			return encryption.ConfidentialValue{}, err
		}
		total, err = hs.engine.Add(total, scaled)
		if err != nil {
			return encryption.ConfidentialValue{}, err
		}
	}

	return total, nil
}

// stateFingerprint binds an aggregate handle to this deployment
// instance, preventing cross-instance replay of decryption results.
func (hs *HuntService) stateFingerprint(handle []byte) []byte {
	return hs.cryptoService.Keccak256(handle, hs.instanceID)
}
