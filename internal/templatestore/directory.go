package templatestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a saved template stays resolvable. After expiry the
// client must re-save its design in the editor.
const DefaultTTL = 12 * time.Hour

var (
	errMissingBackend           = errors.New("templatestore: backend is required")
	errMissingVariantID         = errors.New("templatestore: variant id must be positive")
	errMissingExternalProductID = errors.New("templatestore: external product id is required")
)

// Backend is the key-value capability behind the directory. The memory
// backend serves tests and single-instance deployments; the Redis backend
// serves shared deployments where registry state must outlive one process.
type Backend interface {
	Get(ctx context.Context, storeID string) (Record, bool, error)
	LookupProduct(ctx context.Context, externalProductID string) (Record, bool, error)
	Put(ctx context.Context, record Record, ttl time.Duration) error
	PurgeExpired(ctx context.Context, cutoff time.Time) error
}

// UpsertInput describes one template save from the editor.
type UpsertInput struct {
	TemplateStoreID   string
	TemplateID        string
	VariantID         int64
	ExternalProductID string
	DesignURL         string
	PrintfulFileID    string
	PrintfulFileURL   string
}

// DirectoryConfig bundles the dependencies of a Directory.
type DirectoryConfig struct {
	Backend    Backend
	TTL        time.Duration
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Directory maps opaque template store ids to provider template identities,
// with a secondary index by external product id for create/edit-mode
// resolution. Contents are best-effort: losing them degrades UX, never money.
type Directory struct {
	backend    Backend
	ttl        time.Duration
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewDirectory constructs a Directory with sane defaults.
func NewDirectory(cfg DirectoryConfig) (*Directory, error) {
	if cfg.Backend == nil {
		return nil, errMissingBackend
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		backend:    cfg.Backend,
		ttl:        ttl,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// Upsert registers a template save. A caller-supplied store id overwrites
// that specific record; otherwise a fresh opaque id is generated. The
// secondary index always ends up pointing at this newest record.
func (d *Directory) Upsert(ctx context.Context, input UpsertInput) (Record, error) {
	if input.VariantID <= 0 {
		return Record{}, errMissingVariantID
	}
	if strings.TrimSpace(input.ExternalProductID) == "" {
		return Record{}, errMissingExternalProductID
	}

	storeID := strings.TrimSpace(input.TemplateStoreID)
	if storeID == "" {
		generated, err := d.idProvider.NewID()
		if err != nil {
			return Record{}, fmt.Errorf("templatestore: id generation failed: %w", err)
		}
		storeID = generated
	}

	record := Record{
		TemplateStoreID:   storeID,
		TemplateID:        strings.TrimSpace(input.TemplateID),
		VariantID:         input.VariantID,
		ExternalProductID: strings.TrimSpace(input.ExternalProductID),
		DesignURL:         strings.TrimSpace(input.DesignURL),
		PrintfulFileID:    strings.TrimSpace(input.PrintfulFileID),
		PrintfulFileURL:   strings.TrimSpace(input.PrintfulFileURL),
		CreatedAtSeconds:  d.clock().Unix(),
	}

	if err := d.backend.Put(ctx, record, d.ttl); err != nil {
		return Record{}, fmt.Errorf("templatestore: put failed: %w", err)
	}

	d.logger.Debug("template registered",
		zap.String("template_store_id", record.TemplateStoreID),
		zap.String("external_product_id", record.ExternalProductID),
		zap.Int64("variant_id", record.VariantID))
	return record, nil
}

// Get resolves a store id, returning nil when the record is absent or
// expired. Expired entries are purged lazily before the lookup.
func (d *Directory) Get(ctx context.Context, storeID string) (*Record, error) {
	now := d.clock()
	d.purge(ctx, now)

	record, ok, err := d.backend.Get(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("templatestore: get failed: %w", err)
	}
	if !ok || record.expired(now, d.ttl) {
		return nil, nil
	}
	return &record, nil
}

// GetByExternalProductID resolves the most recently registered live record
// for a product, or nil when none exists.
func (d *Directory) GetByExternalProductID(ctx context.Context, externalProductID string) (*Record, error) {
	now := d.clock()
	d.purge(ctx, now)

	record, ok, err := d.backend.LookupProduct(ctx, externalProductID)
	if err != nil {
		return nil, fmt.Errorf("templatestore: product lookup failed: %w", err)
	}
	if !ok || record.expired(now, d.ttl) {
		return nil, nil
	}
	return &record, nil
}

func (d *Directory) purge(ctx context.Context, now time.Time) {
	if err := d.backend.PurgeExpired(ctx, now.Add(-d.ttl)); err != nil {
		d.logger.Warn("template purge failed", zap.Error(err))
	}
}
