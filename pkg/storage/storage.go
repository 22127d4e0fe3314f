package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/vjranagit/healthdash/pkg/types"
)

// TierSnapshot names the badger-backed cache tier
const TierSnapshot = "snapshot"

const keyPrefix = "dashboard/"

// Config holds snapshot store configuration
type Config struct {
	// Path of the store directory; empty keeps the store in memory
	Path             string
	TTL              time.Duration
	CompressionLevel int
}

// DefaultConfig returns default snapshot store configuration
func DefaultConfig() *Config {
	return &Config{
		Path:             "",
		TTL:              24 * time.Hour,
		CompressionLevel: 3,
	}
}

// SnapshotStore keeps computed dashboards in BadgerDB keyed by content hash.
// Entries expire after the configured TTL.
type SnapshotStore struct {
	cfg    *Config
	db     *badger.DB
	codec  *Codec
	logger *zap.Logger
}

// NewSnapshotStore opens the store
func NewSnapshotStore(cfg *Config, logger *zap.Logger) (*SnapshotStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &SnapshotStore{
		cfg:    cfg,
		db:     db,
		codec:  codec,
		logger: logger,
	}, nil
}

type tablePayload struct {
	Title       string `json:"title"`
	DateColumn  string `json:"date_column"`
	ValueColumn string `json:"value_column"`
	Count       int    `json:"count"`
	Dates       []byte `json:"dates"`
	Values      []byte `json:"values"`
}

type snapshotPayload struct {
	StoredAt  time.Time    `json:"stored_at"`
	Steps     tablePayload `json:"steps"`
	HeartRate tablePayload `json:"heart_rate"`
}

// Save writes a dashboard under key
func (s *SnapshotStore) Save(key string, d *types.Dashboard) error {
	payload := snapshotPayload{
		StoredAt:  time.Now().UTC(),
		Steps:     s.encodeTable(d.Steps),
		HeartRate: s.encodeTable(d.HeartRate),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), data)
		if s.cfg.TTL > 0 {
			entry = entry.WithTTL(s.cfg.TTL)
		}
		return txn.SetEntry(entry)
	})
}

// Load reads the dashboard stored under key. found is false when the key is
// absent or expired.
func (s *SnapshotStore) Load(key string) (d *types.Dashboard, found bool, err error) {
	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	steps, err := s.decodeTable(payload.Steps)
	if err != nil {
		return nil, false, err
	}
	heart, err := s.decodeTable(payload.HeartRate)
	if err != nil {
		return nil, false, err
	}

	return &types.Dashboard{Steps: steps, HeartRate: heart}, true, nil
}

// Delete removes the snapshot under key
func (s *SnapshotStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
}

// Get implements health.Cache. Read failures are logged and reported as misses.
func (s *SnapshotStore) Get(key string) (*types.Dashboard, string, bool) {
	d, found, err := s.Load(key)
	if err != nil {
		s.logger.Warn("Snapshot read failed", zap.String("key", key), zap.Error(err))
		return nil, TierSnapshot, false
	}
	return d, TierSnapshot, found
}

// Put implements health.Cache. Write failures are logged.
func (s *SnapshotStore) Put(key string, d *types.Dashboard) {
	if err := s.Save(key, d); err != nil {
		s.logger.Warn("Snapshot write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close closes the store
func (s *SnapshotStore) Close() error {
	s.codec.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SnapshotStore) encodeTable(t types.Table) tablePayload {
	dates, values := s.codec.EncodeRows(t.Rows)
	return tablePayload{
		Title:       t.Title,
		DateColumn:  t.DateColumn,
		ValueColumn: t.ValueColumn,
		Count:       len(t.Rows),
		Dates:       dates,
		Values:      values,
	}
}

func (s *SnapshotStore) decodeTable(p tablePayload) (types.Table, error) {
	rows, err := s.codec.DecodeRows(p.Dates, p.Values, p.Count)
	if err != nil {
		return types.Table{}, fmt.Errorf("failed to decode %s: %w", p.Title, err)
	}
	return types.Table{
		Title:       p.Title,
		DateColumn:  p.DateColumn,
		ValueColumn: p.ValueColumn,
		Rows:        rows,
	}, nil
}

// Tiered consults a fast cache before a slower one and backfills the fast
// tier on a slow hit
type Tiered struct {
	fast *ResultCache
	slow *SnapshotStore
}

// NewTiered combines the two tiers; slow may be nil
func NewTiered(fast *ResultCache, slow *SnapshotStore) *Tiered {
	return &Tiered{fast: fast, slow: slow}
}

func (t *Tiered) Get(key string) (*types.Dashboard, string, bool) {
	if d, tier, ok := t.fast.Get(key); ok {
		return d, tier, true
	}
	if t.slow == nil {
		return nil, TierMemory, false
	}
	d, tier, ok := t.slow.Get(key)
	if ok {
		t.fast.Put(key, d)
	}
	return d, tier, ok
}

func (t *Tiered) Put(key string, d *types.Dashboard) {
	t.fast.Put(key, d)
	if t.slow != nil {
		t.slow.Put(key, d)
	}
}
