package service

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PacingGuard enforces a per-caller cooldown across every gated
// operation. Reserve rejects callers still inside their cooldown and
// otherwise stamps the caller immediately, before the operation's main
// effect runs. The stamp is kept even when the operation later fails:
// a failed attempt still consumes the caller's pacing budget, which is
// the intended anti-spam behavior and must not be reordered.
type PacingGuard struct {
	mu         sync.Mutex
	lastAction map[common.Address]time.Time
	now        func() time.Time
}

func NewPacingGuard() *PacingGuard {
	return &PacingGuard{
		lastAction: make(map[common.Address]time.Time),
		now:        time.Now,
	}
}

// Reserve checks the caller's cooldown and, if it has elapsed, records
// the attempt.
func (pg *PacingGuard) Reserve(caller common.Address, cooldown time.Duration) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	now := pg.now()
	if last, ok := pg.lastAction[caller]; ok && now.Before(last.Add(cooldown)) {
		return ErrCooldownActive
	}

	pg.lastAction[caller] = now
	return nil
}

// LastAction returns the caller's most recent stamped attempt.
func (pg *PacingGuard) LastAction(caller common.Address) (time.Time, bool) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	last, ok := pg.lastAction[caller]
	return last, ok
}
