package designsession

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

const defaultSessionKey = "snapcase_design_context"

var errMissingStorage = errors.New("designsession: storage adapter is required")

// Storage abstracts the medium holding the serialized context. The memory
// adapter backs tests and server-side sessions; a browser-storage adapter is
// the production client equivalent.
type Storage interface {
	Read(key string) ([]byte, error)
	Write(key string, value []byte) error
	Delete(key string) error
}

// StoreConfig bundles the dependencies of a session store.
type StoreConfig struct {
	Storage Storage
	Key     string
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Store owns read-modify-write access to one session's design context.
// Every accessor degrades to nil when the medium is unavailable or holds
// garbage; session loss must never break the funnel.
type Store struct {
	storage Storage
	key     string
	clock   func() time.Time
	logger  *zap.Logger
}

// NewStore constructs a session store with sane defaults.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, errMissingStorage
	}
	key := cfg.Key
	if key == "" {
		key = defaultSessionKey
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: cfg.Storage, key: key, clock: clock, logger: logger}, nil
}

// Load returns the current context, or nil when none exists or the medium
// cannot be read.
func (s *Store) Load() *Context {
	raw, err := s.storage.Read(s.key)
	if err != nil {
		s.logger.Warn("design context read failed", zap.Error(err))
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	var current Context
	if err := json.Unmarshal(raw, &current); err != nil {
		s.logger.Warn("design context corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return &current
}

// Save merges the patch over the stored context (or an empty one) and writes
// the result back. Returns nil when the medium is unavailable.
func (s *Store) Save(patch Patch) *Context {
	current := Context{}
	if loaded := s.Load(); loaded != nil {
		current = *loaded
	}

	next := Merge(current, patch, s.clock())
	raw, err := json.Marshal(next)
	if err != nil {
		s.logger.Warn("design context marshal failed", zap.Error(err))
		return nil
	}
	if err := s.storage.Write(s.key, raw); err != nil {
		s.logger.Warn("design context write failed", zap.Error(err))
		return nil
	}
	return &next
}

// Clear discards the session context.
func (s *Store) Clear() {
	if err := s.storage.Delete(s.key); err != nil {
		s.logger.Warn("design context delete failed", zap.Error(err))
	}
}

// MarkCheckoutAttempt stamps the checkout-attempt time on top of an optional
// patch; it is Save with the attempt timestamp always set.
func (s *Store) MarkCheckoutAttempt(patch Patch) *Context {
	attemptedAt := s.clock().Unix()
	patch.LastCheckoutAttemptAt = &attemptedAt
	return s.Save(patch)
}
