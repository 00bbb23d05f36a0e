package service

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	testOwner    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testProvider = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testHunter   = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func newTestAccessControl(t *testing.T) *AccessControl {
	t.Helper()
	ac, err := NewAccessControl(testOwner, MinCooldown)
	require.NoError(t, err)
	return ac
}

func TestAccessControlRejectsShortCooldown(t *testing.T) {
	_, err := NewAccessControl(testOwner, time.Second)
	require.ErrorIs(t, err, ErrCooldownTooShort)

	// Zero means "use the default", not "no cooldown".
	ac, err := NewAccessControl(testOwner, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultCooldown, ac.Cooldown())
}

func TestAccessControlProviderManagement(t *testing.T) {
	ac := newTestAccessControl(t)

	require.False(t, ac.IsProvider(testProvider))
	require.ErrorIs(t, ac.AddProvider(testHunter, testProvider), ErrNotOwner)

	require.NoError(t, ac.AddProvider(testOwner, testProvider))
	require.True(t, ac.IsProvider(testProvider))

	require.ErrorIs(t, ac.RemoveProvider(testProvider, testProvider), ErrNotOwner)
	require.NoError(t, ac.RemoveProvider(testOwner, testProvider))
	require.False(t, ac.IsProvider(testProvider))
}

func TestAccessControlOwnerIsAlwaysProvider(t *testing.T) {
	ac := newTestAccessControl(t)
	require.True(t, ac.IsProvider(testOwner))
}

func TestAccessControlPauseSemantics(t *testing.T) {
	ac := newTestAccessControl(t)

	require.ErrorIs(t, ac.Pause(testHunter), ErrNotOwner)
	require.False(t, ac.Paused())

	require.NoError(t, ac.Pause(testOwner))
	require.True(t, ac.Paused())

	// Double pause is an operator error; double unpause is not.
	require.ErrorIs(t, ac.Pause(testOwner), ErrAlreadyPaused)

	require.NoError(t, ac.Unpause(testOwner))
	require.False(t, ac.Paused())
	require.NoError(t, ac.Unpause(testOwner))
}

func TestAccessControlSetCooldown(t *testing.T) {
	ac := newTestAccessControl(t)

	require.ErrorIs(t, ac.SetCooldown(testHunter, time.Minute), ErrNotOwner)
	require.ErrorIs(t, ac.SetCooldown(testOwner, MinCooldown-time.Second), ErrCooldownTooShort)

	require.NoError(t, ac.SetCooldown(testOwner, time.Minute))
	require.Equal(t, time.Minute, ac.Cooldown())
}
