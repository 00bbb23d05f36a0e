package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/models"
)

const (
	monstersFile = "monsters.json"
	batchesFile  = "batches.json"
	contextsFile = "contexts.json"
)

// JSONStore persists the combat core's registries as JSON snapshots
// under a base directory. Writes go to a temporary file first and are
// renamed into place so a crash never leaves a half-written registry.
type JSONStore struct {
	basePath string
	mu       sync.Mutex
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}

	return &JSONStore{basePath: basePath}, nil
}

func (s *JSONStore) SaveMonsters(monsters map[string]*models.Monster) error {
	return s.saveSnapshot(monstersFile, monsters)
}

func (s *JSONStore) LoadMonsters() (map[string]*models.Monster, error) {
	monsters := make(map[string]*models.Monster)
	if err := s.loadSnapshot(monstersFile, &monsters); err != nil {
		return nil, err
	}
	return monsters, nil
}

func (s *JSONStore) SaveBatches(batches map[string]*models.AttackBatch) error {
	return s.saveSnapshot(batchesFile, batches)
}

func (s *JSONStore) LoadBatches() (map[string]*models.AttackBatch, error) {
	batches := make(map[string]*models.AttackBatch)
	if err := s.loadSnapshot(batchesFile, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *JSONStore) SaveContexts(contexts map[string]*models.DecryptionContext) error {
	return s.saveSnapshot(contextsFile, contexts)
}

func (s *JSONStore) LoadContexts() (map[string]*models.DecryptionContext, error) {
	contexts := make(map[string]*models.DecryptionContext)
	if err := s.loadSnapshot(contextsFile, &contexts); err != nil {
		return nil, err
	}
	return contexts, nil
}

func (s *JSONStore) saveSnapshot(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %v", name, err)
	}

	path := filepath.Join(s.basePath, name)

	// Write to temporary file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v", name, err)
	}

	// Atomic rename to ensure consistency
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) // Clean up temp file if rename fails
		return fmt.Errorf("failed to save %s: %v", name, err)
	}

	return nil
}

func (s *JSONStore) loadSnapshot(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %v", name, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %v", name, err)
	}

	return nil
}
