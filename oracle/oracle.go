// Package oracle implements the asynchronous decryption boundary: the
// core submits opaque ciphertext handles and later receives exactly one
// callback per submission carrying the cleartext and a verifiable proof.
package oracle

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
)

// Oracle is the contract the combat core requires from a decryption
// service. Submit is asynchronous: it returns a request ID immediately
// and triggers exactly one later callback for that ID. Verify checks
// that a (cleartext, proof) pair authenticates the handles submitted
// under the given request ID.
type Oracle interface {
	Submit(handles [][]byte) (string, error)
	Verify(requestID string, cleartext, proof []byte) bool
}

// Callback receives the result of an accepted submission. Errors are
// the receiver's to report; the oracle only logs them.
type Callback func(requestID string, cleartext, proof []byte) error

type submission struct {
	requestID string
	handles   [][]byte
}

// LocalOracle is an in-process oracle: a single worker goroutine
// decrypts submitted handles with a trusted engine reference, signs the
// result with the oracle's ECDSA key and delivers the callback. It
// plays the role a threshold-decryption network would fill in a real
// deployment.
type LocalOracle struct {
	engine        encryption.Engine
	cryptoService *encryption.CryptoService
	signingKey    *ecdsa.PrivateKey
	address       common.Address
	callback      Callback

	mu          sync.Mutex
	submissions map[string][][]byte

	requestCh  chan submission
	shutdownCh chan struct{}
	wg         sync.WaitGroup

	log *logrus.Entry
}

// NewLocalOracle creates a stopped oracle. SetCallback must be called
// before Start; submissions made while no callback is registered are
// dropped with a warning.
func NewLocalOracle(engine encryption.Engine, signingKey *ecdsa.PrivateKey, logger *logrus.Logger) *LocalOracle {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &LocalOracle{
		engine:        engine,
		cryptoService: encryption.NewCryptoService(),
		signingKey:    signingKey,
		address:       crypto.PubkeyToAddress(signingKey.PublicKey),
		submissions:   make(map[string][][]byte),
		requestCh:     make(chan submission, 64),
		shutdownCh:    make(chan struct{}),
		log:           logger.WithField("component", "oracle"),
	}
}

// Address returns the address proofs are signed under.
func (o *LocalOracle) Address() common.Address {
	return o.address
}

// SetCallback registers the receiver for decryption results.
func (o *LocalOracle) SetCallback(cb Callback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callback = cb
}

// Start begins processing queued submissions.
func (o *LocalOracle) Start() {
	o.wg.Add(1)
	go o.worker()
}

// Stop gracefully shuts down the worker. Pending submissions drain
// before Stop returns.
func (o *LocalOracle) Stop() {
	close(o.shutdownCh)
	o.wg.Wait()
}

// Submit queues handles for decryption and returns the assigned
// request ID.
func (o *LocalOracle) Submit(handles [][]byte) (string, error) {
	if len(handles) == 0 {
		return "", fmt.Errorf("nothing to decrypt")
	}

	copied := make([][]byte, len(handles))
	for i, h := range handles {
		copied[i] = append([]byte(nil), h...)
	}

	requestID := uuid.New().String()

	o.mu.Lock()
	o.submissions[requestID] = copied
	o.mu.Unlock()

	select {
	case o.requestCh <- submission{requestID: requestID, handles: copied}:
		return requestID, nil
	default:
		o.mu.Lock()
		delete(o.submissions, requestID)
		o.mu.Unlock()
		return "", fmt.Errorf("decryption queue is full")
	}
}

// Verify checks that cleartext and proof belong to the handles
// submitted under requestID and were signed by this oracle.
func (o *LocalOracle) Verify(requestID string, cleartext, proof []byte) bool {
	o.mu.Lock()
	handles, ok := o.submissions[requestID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	digest := proofDigest(o.cryptoService, requestID, handles, cleartext)
	return o.cryptoService.VerifySignature(digest, proof, o.address)
}

func (o *LocalOracle) worker() {
	defer o.wg.Done()

	for {
		select {
		case <-o.shutdownCh:
			// Drain what is already queued, then exit.
			for {
				select {
				case req := <-o.requestCh:
					o.process(req)
				default:
					return
				}
			}
		case req := <-o.requestCh:
			o.process(req)
		}
	}
}

func (o *LocalOracle) process(req submission) {
	o.mu.Lock()
	cb := o.callback
	o.mu.Unlock()

	if cb == nil {
		o.log.WithField("request_id", req.requestID).Warn("no callback registered, dropping decryption result")
		return
	}

	var total uint64
	for _, handle := range req.handles {
		value, err := o.engine.DecryptUint64(encryption.ConfidentialValue{Handle: handle})
		if err != nil {
			o.log.WithFields(logrus.Fields{
				"request_id": req.requestID,
				"error":      err,
			}).Error("failed to decrypt submitted handle")
			return
		}
		total += value
	}

	cleartext := make([]byte, 8)
	binary.BigEndian.PutUint64(cleartext, total)

	digest := proofDigest(o.cryptoService, req.requestID, req.handles, cleartext)
	proof, err := o.cryptoService.Sign(digest, o.signingKey)
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"request_id": req.requestID,
			"error":      err,
		}).Error("failed to sign decryption proof")
		return
	}

	if err := cb(req.requestID, cleartext, proof); err != nil {
		o.log.WithFields(logrus.Fields{
			"request_id": req.requestID,
			"error":      err,
		}).Warn("decryption callback rejected")
	}
}

func proofDigest(cs *encryption.CryptoService, requestID string, handles [][]byte, cleartext []byte) []byte {
	parts := make([][]byte, 0, len(handles)+2)
	parts = append(parts, []byte(requestID))
	parts = append(parts, handles...)
	parts = append(parts, cleartext)
	return cs.Keccak256(parts...)
}
