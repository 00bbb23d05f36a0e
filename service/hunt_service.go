package service

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/models"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/oracle"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/storage"
)

// CurrentSchemeVersion pins the attribute-encoding scheme stamped onto
// newly registered monsters. Bumped only when the engine's handle
// encoding changes; existing records keep the version they were
// created under.
const CurrentSchemeVersion uint32 = 1

// HuntService owns every registry of the combat core: monsters,
// attack batches, decryption contexts and pacing state. All mutating
// entry points run under one mutex, which supplies the total ordering
// the reveal protocol's fingerprint check assumes.
type HuntService struct {
	access  *AccessControl
	pacing  *PacingGuard
	events  *EventBus
	metrics *MetricsCollector

	engine        encryption.Engine
	cryptoService *encryption.CryptoService
	oracle        oracle.Oracle
	store         *storage.JSONStore

	mu       sync.RWMutex
	monsters map[string]*models.Monster
	batches  map[string]*models.AttackBatch
	contexts map[string]*models.DecryptionContext

	instanceID    []byte
	schemeVersion uint32
	now           func() time.Time
	log           *logrus.Entry
}

// Config carries the collaborators and settings for a HuntService.
type Config struct {
	Owner       common.Address
	Cooldown    time.Duration
	Engine      encryption.Engine
	Oracle      oracle.Oracle
	StoragePath string
	Logger      *logrus.Logger
}

type instanceIdentity struct {
	InstanceID string `json:"instance_id"`
	CreatedAt  int64  `json:"created_at"`
}

func NewHuntService(cfg Config) (*HuntService, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if !cfg.Engine.SupportsComparison() {
		return nil, fmt.Errorf("engine %s cannot evaluate the weakness rule", cfg.Engine.Name())
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("decryption oracle is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	access, err := NewAccessControl(cfg.Owner, cfg.Cooldown)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewJSONStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	monsters, err := store.LoadMonsters()
	if err != nil {
		return nil, err
	}
	batches, err := store.LoadBatches()
	if err != nil {
		return nil, err
	}
	contexts, err := store.LoadContexts()
	if err != nil {
		return nil, err
	}

	instanceID, err := loadOrGenerateInstanceID(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to setup instance identity: %v", err)
	}

	hs := &HuntService{
		access:        access,
		pacing:        NewPacingGuard(),
		events:        NewEventBus(cfg.Logger),
		metrics:       NewMetricsCollector(),
		engine:        cfg.Engine,
		cryptoService: encryption.NewCryptoService(),
		oracle:        cfg.Oracle,
		store:         store,
		monsters:      monsters,
		batches:       batches,
		contexts:      contexts,
		instanceID:    instanceID,
		schemeVersion: CurrentSchemeVersion,
		now:           time.Now,
		log:           cfg.Logger.WithField("component", "hunt"),
	}

	return hs, nil
}

// loadOrGenerateInstanceID keeps a random per-deployment identity under
// the storage dir. The identity salts monster IDs and binds state
// fingerprints to this instance so a reveal can never be replayed
// against another deployment.
func loadOrGenerateInstanceID(storagePath string) ([]byte, error) {
	path := filepath.Join(storagePath, "instance_identity.json")

	if data, err := os.ReadFile(path); err == nil {
		var identity instanceIdentity
		if err := json.Unmarshal(data, &identity); err != nil {
			return nil, fmt.Errorf("failed to parse instance identity: %v", err)
		}
		return hex.DecodeString(identity.InstanceID)
	}

	secret, err := encryption.GenerateSealingSecret()
	if err != nil {
		return nil, err
	}

	identity := instanceIdentity{
		InstanceID: hex.EncodeToString(secret),
		CreatedAt:  time.Now().Unix(),
	}
	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instance identity: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save instance identity: %v", err)
	}

	return secret, nil
}

// Events exposes the notification bus for external observers.
func (hs *HuntService) Events() *EventBus {
	return hs.events
}

// Metrics returns the current operation metrics.
func (hs *HuntService) Metrics() MetricsResponse {
	return hs.metrics.Snapshot()
}

// Access exposes the access-control state for read-only inspection.
func (hs *HuntService) Access() *AccessControl {
	return hs.access
}

// Engine returns the homomorphic engine this deployment runs on.
// Callers may use it to encrypt inputs; decryption stays behind the
// oracle boundary.
func (hs *HuntService) Engine() encryption.Engine {
	return hs.engine
}

// Admin operations. Owner-gated only; the emergency stop must stay
// operable while the system is paused.

func (hs *HuntService) AddProvider(caller, provider common.Address) error {
	if err := hs.access.AddProvider(caller, provider); err != nil {
		return err
	}
	hs.publish(models.Event{Type: models.EventProviderAdded, Caller: provider.Hex()})
	return nil
}

func (hs *HuntService) RemoveProvider(caller, provider common.Address) error {
	if err := hs.access.RemoveProvider(caller, provider); err != nil {
		return err
	}
	hs.publish(models.Event{Type: models.EventProviderRemoved, Caller: provider.Hex()})
	return nil
}

func (hs *HuntService) Pause(caller common.Address) error {
	if err := hs.access.Pause(caller); err != nil {
		return err
	}
	hs.publish(models.Event{Type: models.EventPaused, Caller: caller.Hex()})
	return nil
}

func (hs *HuntService) Unpause(caller common.Address) error {
	if err := hs.access.Unpause(caller); err != nil {
		return err
	}
	hs.publish(models.Event{Type: models.EventUnpaused, Caller: caller.Hex()})
	return nil
}

func (hs *HuntService) SetCooldown(caller common.Address, cooldown time.Duration) error {
	return hs.access.SetCooldown(caller, cooldown)
}

// RegisterMonster stores a new monster with normalized confidential
// attributes and returns its identifier.
func (hs *HuntService) RegisterMonster(caller common.Address, health, attack, defense, weakness encryption.ConfidentialValue) (string, error) {
	start := time.Now()
	if err := hs.gate(caller, true); err != nil {
		return "", err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	now := hs.now()
	id := hs.monsterID(caller, now)

	monster := &models.Monster{
		ID:            id,
		Health:        encryption.Normalize(hs.engine, health),
		Attack:        encryption.Normalize(hs.engine, attack),
		Defense:       encryption.Normalize(hs.engine, defense),
		Weakness:      encryption.Normalize(hs.engine, weakness),
		SchemeVersion: hs.schemeVersion,
		RegisteredBy:  caller,
		CreatedAt:     now.Unix(),
	}
	hs.monsters[id] = monster

	if err := hs.store.SaveMonsters(hs.monsters); err != nil {
		return "", fmt.Errorf("failed to persist monster registry: %w", err)
	}

	hs.publish(models.Event{Type: models.EventMonsterRegistered, Caller: caller.Hex(), MonsterID: id})
	hs.metrics.RecordRegistration(time.Since(start))

	hs.log.WithFields(logrus.Fields{
		"monster_id": id,
		"provider":   caller.Hex(),
	}).Info("monster registered")

	return id, nil
}

// OpenBatch allocates a new attack batch for the given monster.
func (hs *HuntService) OpenBatch(caller common.Address, monsterID string) (string, error) {
	if err := hs.gate(caller, true); err != nil {
		return "", err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	monster, ok := hs.monsters[monsterID]
	if !ok {
		return "", ErrUnknownMonster
	}
	// A health attribute equal to the encrypted-zero sentinel marks a
	// record that was never really populated.
	if hs.isEncryptedZero(monster.Health) {
		return "", ErrUnknownMonster
	}

	batch := &models.AttackBatch{
		ID:        uuid.New().String(),
		MonsterID: monsterID,
		Attacks:   make([]models.Attack, 0, models.MaxBatchAttacks),
		CreatedAt: hs.now().Unix(),
	}
	hs.batches[batch.ID] = batch

	if err := hs.store.SaveBatches(hs.batches); err != nil {
		return "", fmt.Errorf("failed to persist batch ledger: %w", err)
	}

	hs.publish(models.Event{Type: models.EventBatchOpened, Caller: caller.Hex(), MonsterID: monsterID, BatchID: batch.ID})
	return batch.ID, nil
}

// CloseBatch marks a batch closed. Closing an already-closed batch
// succeeds without further effect.
func (hs *HuntService) CloseBatch(caller common.Address, batchID string) error {
	if err := hs.gate(caller, true); err != nil {
		return err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	batch, ok := hs.batches[batchID]
	if !ok {
		return ErrUnknownBatch
	}

	batch.Closed = true

	if err := hs.store.SaveBatches(hs.batches); err != nil {
		return fmt.Errorf("failed to persist batch ledger: %w", err)
	}

	hs.publish(models.Event{Type: models.EventBatchClosed, Caller: caller.Hex(), MonsterID: batch.MonsterID, BatchID: batchID})
	return nil
}

// SubmitAttack appends a confidential attack to an open batch. Any
// caller may contribute, subject to pause and pacing.
func (hs *HuntService) SubmitAttack(caller common.Address, monsterID, batchID string, magnitude, element encryption.ConfidentialValue) error {
	start := time.Now()
	if err := hs.gate(caller, false); err != nil {
		return err
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	monster, ok := hs.monsters[monsterID]
	if !ok {
		return ErrUnknownMonster
	}
	batch, ok := hs.batches[batchID]
	if !ok || batch.MonsterID != monsterID {
		return ErrUnknownBatch
	}
	if batch.Closed {
		return ErrBatchClosed
	}
	if batch.Full() {
		return ErrBatchFull
	}
	if !hs.engine.IsInitialized(monster.Health) || !hs.engine.IsInitialized(monster.Weakness) {
		return ErrUninitializedValue
	}

	batch.Attacks = append(batch.Attacks, models.Attack{
		Magnitude:  encryption.Normalize(hs.engine, magnitude),
		Element:    encryption.Normalize(hs.engine, element),
		RecordedAt: hs.now().Unix(),
	})

	if err := hs.store.SaveBatches(hs.batches); err != nil {
		return fmt.Errorf("failed to persist batch ledger: %w", err)
	}

	hs.publish(models.Event{Type: models.EventAttackSubmitted, Caller: caller.Hex(), MonsterID: monsterID, BatchID: batchID})
	hs.metrics.RecordAttack(time.Since(start))
	return nil
}

// GetMonster returns a copy of the monster record.
func (hs *HuntService) GetMonster(monsterID string) (models.Monster, error) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	monster, ok := hs.monsters[monsterID]
	if !ok {
		return models.Monster{}, ErrUnknownMonster
	}
	return *monster, nil
}

// GetBatch returns a copy of the batch record.
func (hs *HuntService) GetBatch(batchID string) (models.AttackBatch, error) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	batch, ok := hs.batches[batchID]
	if !ok {
		return models.AttackBatch{}, ErrUnknownBatch
	}

	out := *batch
	out.Attacks = make([]models.Attack, len(batch.Attacks))
	copy(out.Attacks, batch.Attacks)
	return out, nil
}

// GetContext returns a copy of the decryption context for a request.
func (hs *HuntService) GetContext(requestID string) (models.DecryptionContext, error) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	ctx, ok := hs.contexts[requestID]
	if !ok {
		return models.DecryptionContext{}, ErrUnknownRequest
	}

	out := *ctx
	out.StateFingerprint = append([]byte(nil), ctx.StateFingerprint...)
	return out, nil
}

// Status summarizes the core's registries.
type Status struct {
	Engine        string `json:"engine"`
	SchemeVersion uint32 `json:"scheme_version"`
	Paused        bool   `json:"paused"`
	Monsters      int    `json:"monsters"`
	Batches       int    `json:"batches"`
	PendingReveal int    `json:"pending_reveals"`
}

func (hs *HuntService) Status() Status {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	pending := 0
	for _, ctx := range hs.contexts {
		if !ctx.Processed {
			pending++
		}
	}

	return Status{
		Engine:        hs.engine.Name(),
		SchemeVersion: hs.schemeVersion,
		Paused:        hs.access.Paused(),
		Monsters:      len(hs.monsters),
		Batches:       len(hs.batches),
		PendingReveal: pending,
	}
}

// gate applies the shared entry checks in the required order:
// authorization, emergency stop, pacing. The pacing stamp survives any
// later failure of the operation.
func (hs *HuntService) gate(caller common.Address, providerOnly bool) error {
	if providerOnly && !hs.access.IsProvider(caller) {
		return ErrNotProvider
	}
	if hs.access.Paused() {
		return ErrPaused
	}
	return hs.pacing.Reserve(caller, hs.access.Cooldown())
}

// monsterID derives a monster identity from the registration moment and
// caller, salted with the instance identity so outsiders cannot predict
// it while auditors holding the record can reproduce it.
func (hs *HuntService) monsterID(caller common.Address, at time.Time) string {
	nanos := make([]byte, 8)
	binary.BigEndian.PutUint64(nanos, uint64(at.UnixNano()))
	return hexutil.Encode(hs.cryptoService.Keccak256(hs.instanceID, caller.Bytes(), nanos))
}

func (hs *HuntService) isEncryptedZero(value encryption.ConfidentialValue) bool {
	return bytes.Equal(hs.engine.ExportHandle(value), hs.engine.ExportHandle(hs.engine.EncryptZero()))
}

func (hs *HuntService) publish(event models.Event) {
	event.Timestamp = hs.now().Unix()
	hs.events.Publish(event)
}
