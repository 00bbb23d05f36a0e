package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestPacingGuardEnforcesCooldown(t *testing.T) {
	clock := newFakeClock()
	guard := NewPacingGuard()
	guard.now = clock.Now

	require.NoError(t, guard.Reserve(testHunter, MinCooldown))
	require.ErrorIs(t, guard.Reserve(testHunter, MinCooldown), ErrCooldownActive)

	clock.Advance(MinCooldown)
	require.NoError(t, guard.Reserve(testHunter, MinCooldown))
}

func TestPacingGuardIsPerCaller(t *testing.T) {
	clock := newFakeClock()
	guard := NewPacingGuard()
	guard.now = clock.Now

	require.NoError(t, guard.Reserve(testHunter, MinCooldown))
	require.NoError(t, guard.Reserve(testProvider, MinCooldown))
	require.ErrorIs(t, guard.Reserve(testHunter, MinCooldown), ErrCooldownActive)
}

func TestPacingGuardStampsOnReserve(t *testing.T) {
	clock := newFakeClock()
	guard := NewPacingGuard()
	guard.now = clock.Now

	_, stamped := guard.LastAction(testHunter)
	require.False(t, stamped)

	require.NoError(t, guard.Reserve(testHunter, MinCooldown))
	last, stamped := guard.LastAction(testHunter)
	require.True(t, stamped)
	require.Equal(t, clock.Now(), last)
}
