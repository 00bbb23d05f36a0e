package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/models"
)

func TestJSONStoreStartsEmpty(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	monsters, err := store.LoadMonsters()
	require.NoError(t, err)
	require.Empty(t, monsters)

	batches, err := store.LoadBatches()
	require.NoError(t, err)
	require.Empty(t, batches)

	contexts, err := store.LoadContexts()
	require.NoError(t, err)
	require.Empty(t, contexts)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	require.NoError(t, err)

	engine := encryption.NewPlaintextEngine()
	health, err := engine.EncryptUint64(100)
	require.NoError(t, err)

	monsters := map[string]*models.Monster{
		"0xabc": {
			ID:            "0xabc",
			Health:        health,
			Attack:        engine.EncryptZero(),
			Defense:       engine.EncryptZero(),
			Weakness:      engine.EncryptZero(),
			SchemeVersion: 1,
			RegisteredBy:  common.HexToAddress("0x01"),
			CreatedAt:     42,
		},
	}
	require.NoError(t, store.SaveMonsters(monsters))

	batches := map[string]*models.AttackBatch{
		"batch-1": {
			ID:        "batch-1",
			MonsterID: "0xabc",
			Attacks: []models.Attack{
				{Magnitude: health, Element: engine.EncryptZero(), RecordedAt: 43},
			},
			CreatedAt: 43,
			Closed:    true,
		},
	}
	require.NoError(t, store.SaveBatches(batches))

	contexts := map[string]*models.DecryptionContext{
		"req-1": {
			RequestID:        "req-1",
			SchemeVersion:    1,
			MonsterID:        "0xabc",
			BatchID:          "batch-1",
			StateFingerprint: []byte{1, 2, 3},
			Processed:        true,
			RevealedDamage:   30,
		},
	}
	require.NoError(t, store.SaveContexts(contexts))

	// Reload through a fresh store, as a restart would.
	reopened, err := NewJSONStore(dir)
	require.NoError(t, err)

	loadedMonsters, err := reopened.LoadMonsters()
	require.NoError(t, err)
	require.Len(t, loadedMonsters, 1)
	require.Equal(t, monsters["0xabc"].Health, loadedMonsters["0xabc"].Health)
	require.Equal(t, monsters["0xabc"].RegisteredBy, loadedMonsters["0xabc"].RegisteredBy)

	loadedBatches, err := reopened.LoadBatches()
	require.NoError(t, err)
	require.Len(t, loadedBatches, 1)
	require.True(t, loadedBatches["batch-1"].Closed)
	require.Len(t, loadedBatches["batch-1"].Attacks, 1)

	loadedContexts, err := reopened.LoadContexts()
	require.NoError(t, err)
	require.Len(t, loadedContexts, 1)
	require.Equal(t, uint64(30), loadedContexts["req-1"].RevealedDamage)
	require.Equal(t, []byte{1, 2, 3}, loadedContexts["req-1"].StateFingerprint)
}

func TestJSONStoreOverwritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveContexts(map[string]*models.DecryptionContext{
		"req-1": {RequestID: "req-1"},
		"req-2": {RequestID: "req-2"},
	}))
	require.NoError(t, store.SaveContexts(map[string]*models.DecryptionContext{
		"req-1": {RequestID: "req-1", Processed: true},
	}))

	contexts, err := store.LoadContexts()
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	require.True(t, contexts["req-1"].Processed)
}
