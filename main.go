package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/valeriezlewisr/Monster-Hunter-FHE/encryption"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/oracle"
	"github.com/valeriezlewisr/Monster-Hunter-FHE/service"
)

type Config struct {
	StorageDir string
	Port       int
	Cooldown   time.Duration
	Engine     string
	LogLevel   string
}

type Server struct {
	hunt *service.HuntService
	log  *logrus.Logger
}

type RegisterMonsterRequest struct {
	Caller   string `json:"caller"`
	Health   uint64 `json:"health"`
	Attack   uint64 `json:"attack"`
	Defense  uint64 `json:"defense"`
	Weakness uint64 `json:"weakness"`
}

type OpenBatchRequest struct {
	Caller    string `json:"caller"`
	MonsterID string `json:"monster_id"`
}

type CloseBatchRequest struct {
	Caller  string `json:"caller"`
	BatchID string `json:"batch_id"`
}

type SubmitAttackRequest struct {
	Caller    string `json:"caller"`
	MonsterID string `json:"monster_id"`
	BatchID   string `json:"batch_id"`
	Magnitude uint64 `json:"magnitude"`
	Element   uint64 `json:"element"`
}

type RequestRevealRequest struct {
	Caller    string `json:"caller"`
	MonsterID string `json:"monster_id"`
	BatchID   string `json:"batch_id"`
}

type ProviderRequest struct {
	Caller   string `json:"caller"`
	Provider string `json:"provider"`
}

type PauseRequest struct {
	Caller string `json:"caller"`
}

type CooldownRequest struct {
	Caller          string `json:"caller"`
	CooldownSeconds int64  `json:"cooldown_seconds"`
}

type OwnerCredentials struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	Address    string `json:"address"`
}

func main() {
	config := parseFlags()

	logger := logrus.New()
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		logger.Fatalf("Invalid log level %q: %v", config.LogLevel, err)
	}
	logger.SetLevel(level)

	if err := os.MkdirAll(config.StorageDir, 0755); err != nil {
		logger.Fatalf("Failed to setup storage: %v", err)
	}

	ownerKey, err := loadOrGenerateKey(config.StorageDir, "owner_credentials.json")
	if err != nil {
		logger.Fatalf("Failed to setup owner key: %v", err)
	}
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	logger.WithField("owner", owner.Hex()).Info("owner identity loaded")

	engine, err := buildEngine(config.Engine, config.StorageDir, logger)
	if err != nil {
		logger.Fatalf("Failed to build engine: %v", err)
	}

	oracleKey, err := loadOrGenerateKey(config.StorageDir, "oracle_credentials.json")
	if err != nil {
		logger.Fatalf("Failed to setup oracle key: %v", err)
	}
	decryptionOracle := oracle.NewLocalOracle(engine, oracleKey, logger)

	hunt, err := service.NewHuntService(service.Config{
		Owner:       owner,
		Cooldown:    config.Cooldown,
		Engine:      engine,
		Oracle:      decryptionOracle,
		StoragePath: config.StorageDir,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize hunt service: %v", err)
	}

	decryptionOracle.SetCallback(hunt.OnRevealCallback)
	decryptionOracle.Start()

	// Mirror successful state changes into the log for observers that
	// do not subscribe themselves.
	go func() {
		for event := range hunt.Events().Subscribe() {
			logger.WithFields(logrus.Fields{
				"type":       event.Type,
				"monster_id": event.MonsterID,
				"batch_id":   event.BatchID,
				"request_id": event.RequestID,
			}).Debug("event")
		}
	}()

	server := &Server{hunt: hunt, log: logger}

	http.HandleFunc("/api/monsters/register", server.handleRegisterMonster)
	http.HandleFunc("/api/batches/open", server.handleOpenBatch)
	http.HandleFunc("/api/batches/close", server.handleCloseBatch)
	http.HandleFunc("/api/attacks/submit", server.handleSubmitAttack)
	http.HandleFunc("/api/reveals/request", server.handleRequestReveal)
	http.HandleFunc("/api/reveals/result", server.handleRevealResult)
	http.HandleFunc("/api/status", server.handleStatus)
	http.HandleFunc("/api/metrics", server.handleMetrics)

	// Admin
	http.HandleFunc("/api/admin/providers/add", server.handleAddProvider)
	http.HandleFunc("/api/admin/providers/remove", server.handleRemoveProvider)
	http.HandleFunc("/api/admin/pause", server.handlePause)
	http.HandleFunc("/api/admin/unpause", server.handleUnpause)
	http.HandleFunc("/api/admin/cooldown", server.handleSetCooldown)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on port %d...", config.Port)
		serverChan <- http.ListenAndServe(fmt.Sprintf(":%d", config.Port), nil)
	}()

	select {
	case err := <-serverChan:
		logger.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
		decryptionOracle.Stop()
		hunt.Events().Close()
		logger.Info("Server shutdown completed")
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.StorageDir, "storage", "data", "Directory for registry storage")
	flag.IntVar(&config.Port, "port", 8080, "Server port")
	flag.DurationVar(&config.Cooldown, "cooldown", service.DefaultCooldown, "Per-caller action cooldown")
	flag.StringVar(&config.Engine, "engine", "sealed", "Homomorphic engine (sealed, plaintext, paillier)")
	flag.StringVar(&config.LogLevel, "loglevel", "info", "Log level")

	flag.Parse()
	return config
}

func buildEngine(name, storageDir string, logger *logrus.Logger) (encryption.Engine, error) {
	switch name {
	case "sealed":
		secret, err := loadOrGenerateSealingSecret(storageDir)
		if err != nil {
			return nil, err
		}
		return encryption.NewSealedEngine(secret)
	case "plaintext":
		logger.Warn("plaintext engine selected, confidential values are NOT protected")
		return encryption.NewPlaintextEngine(), nil
	case "paillier":
		return encryption.NewPaillierEngine(2048)
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

func loadOrGenerateKey(storageDir, filename string) (*ecdsa.PrivateKey, error) {
	path := filepath.Join(storageDir, filename)

	if data, err := os.ReadFile(path); err == nil {
		var creds OwnerCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %v", err)
		}
		return encryption.ParsePrivateKey(creds.PrivateKey)
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %v", err)
	}

	creds := OwnerCredentials{
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credentials: %v", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %v", err)
	}

	return privateKey, nil
}

func loadOrGenerateSealingSecret(storageDir string) ([]byte, error) {
	path := filepath.Join(storageDir, "engine_secret.json")

	if data, err := os.ReadFile(path); err == nil {
		var stored struct {
			Secret string `json:"secret"`
		}
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("failed to parse engine secret: %v", err)
		}
		return hexutil.Decode(stored.Secret)
	}

	secret, err := encryption.GenerateSealingSecret()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(struct {
		Secret string `json:"secret"`
	}{Secret: hexutil.Encode(secret)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine secret: %v", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save engine secret: %v", err)
	}

	return secret, nil
}

func (s *Server) handleRegisterMonster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterMonsterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	values, err := s.encryptAll(req.Health, req.Attack, req.Defense, req.Weakness)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	monsterID, err := s.hunt.RegisterMonster(caller, values[0], values[1], values[2], values[3])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]string{"monster_id": monsterID})
}

func (s *Server) handleOpenBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OpenBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batchID, err := s.hunt.OpenBatch(caller, req.MonsterID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]string{"batch_id": batchID})
}

func (s *Server) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CloseBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.hunt.CloseBatch(caller, req.BatchID); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleSubmitAttack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitAttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	values, err := s.encryptAll(req.Magnitude, req.Element)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.hunt.SubmitAttack(caller, req.MonsterID, req.BatchID, values[0], values[1]); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleRequestReveal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RequestRevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestID, err := s.hunt.RequestReveal(caller, req.MonsterID, req.BatchID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]string{"request_id": requestID})
}

func (s *Server) handleRevealResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Missing request_id", http.StatusBadRequest)
		return
	}

	ctx, err := s.hunt.GetContext(requestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.hunt.Status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.hunt.Metrics())
}

func (s *Server) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	s.handleProviderChange(w, r, s.hunt.AddProvider)
}

func (s *Server) handleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	s.handleProviderChange(w, r, s.hunt.RemoveProvider)
}

func (s *Server) handleProviderChange(w http.ResponseWriter, r *http.Request, change func(common.Address, common.Address) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	provider, err := parseCaller(req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := change(caller, provider); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handlePauseChange(w, r, s.hunt.Pause)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.handlePauseChange(w, r, s.hunt.Unpause)
}

func (s *Server) handlePauseChange(w http.ResponseWriter, r *http.Request, change func(common.Address) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := change(caller); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	caller, err := parseCaller(req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.hunt.SetCooldown(caller, time.Duration(req.CooldownSeconds)*time.Second); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"success": true})
}

// encryptAll encrypts plaintext inputs server-side. Producing
// ciphertexts client-side is a deployment concern; this surface trusts
// its transport the same way the engine's key holder must be trusted.
func (s *Server) encryptAll(values ...uint64) ([]encryption.ConfidentialValue, error) {
	out := make([]encryption.ConfidentialValue, len(values))
	for i, v := range values {
		encrypted, err := s.hunt.Engine().EncryptUint64(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt input: %w", err)
		}
		out[i] = encrypted
	}
	return out, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), httpStatus(err))
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotProvider):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrUnknownMonster), errors.Is(err, service.ErrUnknownBatch), errors.Is(err, service.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBatchClosed), errors.Is(err, service.ErrBatchFull),
		errors.Is(err, service.ErrEmptyBatch), errors.Is(err, service.ErrAlreadyPaused),
		errors.Is(err, service.ErrCooldownTooShort):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUninitializedValue), errors.Is(err, service.ErrStaleReveal),
		errors.Is(err, service.ErrProofInvalid), errors.Is(err, service.ErrAlreadyProcessed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseCaller(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid caller address %q", addr)
	}
	return common.HexToAddress(addr), nil
}
