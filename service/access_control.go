package service

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MinCooldown is the floor below which the pacing interval can never be
// configured.
const MinCooldown = 10 * time.Second

// DefaultCooldown is the pacing interval used when none is configured.
const DefaultCooldown = 30 * time.Second

// AccessControl tracks the owner, the provider set, the emergency-stop
// flag and the pacing interval. The owner is fixed at construction.
type AccessControl struct {
	owner     common.Address
	providers map[common.Address]bool
	paused    bool
	cooldown  time.Duration
	mu        sync.RWMutex
}

func NewAccessControl(owner common.Address, cooldown time.Duration) (*AccessControl, error) {
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	if cooldown < MinCooldown {
		return nil, ErrCooldownTooShort
	}

	return &AccessControl{
		owner:     owner,
		providers: make(map[common.Address]bool),
		cooldown:  cooldown,
	}, nil
}

func (ac *AccessControl) Owner() common.Address {
	return ac.owner
}

// IsProvider reports whether addr may perform provider-gated
// operations. The owner is always authorized.
func (ac *AccessControl) IsProvider(addr common.Address) bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return addr == ac.owner || ac.providers[addr]
}

func (ac *AccessControl) Paused() bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.paused
}

func (ac *AccessControl) Cooldown() time.Duration {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.cooldown
}

func (ac *AccessControl) AddProvider(caller, provider common.Address) error {
	if err := ac.requireOwner(caller); err != nil {
		return err
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.providers[provider] = true
	return nil
}

func (ac *AccessControl) RemoveProvider(caller, provider common.Address) error {
	if err := ac.requireOwner(caller); err != nil {
		return err
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	delete(ac.providers, provider)
	return nil
}

// Pause sets the emergency stop. Pausing an already-paused system is an
// error; the double call signals confused operator tooling.
func (ac *AccessControl) Pause(caller common.Address) error {
	if err := ac.requireOwner(caller); err != nil {
		return err
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.paused {
		return ErrAlreadyPaused
	}
	ac.paused = true
	return nil
}

// Unpause clears the emergency stop. Unpausing a running system is a
// no-op.
func (ac *AccessControl) Unpause(caller common.Address) error {
	if err := ac.requireOwner(caller); err != nil {
		return err
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.paused = false
	return nil
}

func (ac *AccessControl) SetCooldown(caller common.Address, cooldown time.Duration) error {
	if err := ac.requireOwner(caller); err != nil {
		return err
	}
	if cooldown < MinCooldown {
		return ErrCooldownTooShort
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.cooldown = cooldown
	return nil
}

func (ac *AccessControl) requireOwner(caller common.Address) error {
	if caller != ac.owner {
		return ErrNotOwner
	}
	return nil
}
