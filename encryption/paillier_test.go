package encryption

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Small key keeps the test fast; real deployments use 2048 bits.
const testPaillierKeySize = 512

func TestPaillierEngineAdditiveHomomorphism(t *testing.T) {
	engine, err := NewPaillierEngine(testPaillierKeySize)
	require.NoError(t, err)

	a, err := engine.EncryptUint64(1500)
	require.NoError(t, err)
	b, err := engine.EncryptUint64(42)
	require.NoError(t, err)

	sum, err := engine.Add(a, b)
	require.NoError(t, err)

	value, err := engine.DecryptUint64(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(1542), value)
}

func TestPaillierEngineEncryptZero(t *testing.T) {
	engine, err := NewPaillierEngine(testPaillierKeySize)
	require.NoError(t, err)

	zero := engine.EncryptZero()
	require.True(t, engine.IsInitialized(zero))

	value, err := engine.DecryptUint64(zero)
	require.NoError(t, err)
	require.Equal(t, uint64(0), value)
}

func TestPaillierEngineReportsMissingCapabilities(t *testing.T) {
	engine, err := NewPaillierEngine(testPaillierKeySize)
	require.NoError(t, err)

	require.False(t, engine.SupportsComparison())

	a, _ := engine.EncryptUint64(2)
	b, _ := engine.EncryptUint64(3)

	_, err = engine.Multiply(a, b)
	require.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = engine.Equals(a, b)
	require.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = engine.Select(ConfidentialBool{}, a, b)
	require.ErrorIs(t, err, ErrUnsupportedOperation)
}
