package oracle

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
)

type callbackResult struct {
	requestID string
	cleartext []byte
	proof     []byte
}

func newTestOracle(t *testing.T) (*LocalOracle, *encryption.PlaintextEngine, chan callbackResult) {
	t.Helper()

	engine := encryption.NewPlaintextEngine()
	cryptoService := encryption.NewCryptoService()
	key, err := cryptoService.GenerateKeyPair()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	o := NewLocalOracle(engine, key, logger)
	results := make(chan callbackResult, 4)
	o.SetCallback(func(requestID string, cleartext, proof []byte) error {
		results <- callbackResult{requestID: requestID, cleartext: cleartext, proof: proof}
		return nil
	})
	o.Start()
	t.Cleanup(o.Stop)

	return o, engine, results
}

func awaitResult(t *testing.T, results chan callbackResult) callbackResult {
	t.Helper()

	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decryption callback")
		return callbackResult{}
	}
}

func TestLocalOracleDecryptsAndSigns(t *testing.T) {
	o, engine, results := newTestOracle(t)

	value, err := engine.EncryptUint64(42)
	require.NoError(t, err)

	requestID, err := o.Submit([][]byte{engine.ExportHandle(value)})
	require.NoError(t, err)

	result := awaitResult(t, results)
	require.Equal(t, requestID, result.requestID)
	require.Len(t, result.cleartext, 8)
	require.Equal(t, uint64(42), binary.BigEndian.Uint64(result.cleartext))

	require.True(t, o.Verify(requestID, result.cleartext, result.proof))
}

func TestLocalOracleVerifyRejectsTampering(t *testing.T) {
	o, engine, results := newTestOracle(t)

	value, _ := engine.EncryptUint64(7)
	requestID, err := o.Submit([][]byte{engine.ExportHandle(value)})
	require.NoError(t, err)

	result := awaitResult(t, results)

	tampered := append([]byte(nil), result.cleartext...)
	tampered[7]++
	require.False(t, o.Verify(requestID, tampered, result.proof))

	require.False(t, o.Verify("unknown-request", result.cleartext, result.proof))
}

func TestLocalOracleRejectsEmptySubmission(t *testing.T) {
	o, _, _ := newTestOracle(t)

	_, err := o.Submit(nil)
	require.Error(t, err)
}
