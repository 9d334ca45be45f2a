// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checkpoint persists serialized mixture states in an embedded
// BadgerDB, so an inference run can be resumed by another process holding
// an equivalent ModelDefinition.
//
// Each Save appends an immutable entry under a run name; Load returns the
// newest entry for a run. Blobs are stored as produced by State.Serialize
// and verified by sha256 on the way back out.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sentinel errors for the checkpoint package.
var (
	// ErrNotFound indicates no entry exists for the run.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorrupted indicates stored data failed its integrity check.
	ErrCorrupted = errors.New("checkpoint corrupted: content hash mismatch")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("checkpoint store is closed")

	// ErrBadRun indicates an empty or malformed run name.
	ErrBadRun = errors.New("invalid run name")
)

var (
	saveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mixturekit_checkpoint_save_duration_seconds",
		Help:    "Time to persist a serialized state",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mixturekit_checkpoint_load_duration_seconds",
		Help:    "Time to load a serialized state",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mixturekit_checkpoint_operations_total",
		Help: "Total checkpoint operations by type and status",
	}, []string{"operation", "status"})

	blobSizeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mixturekit_checkpoint_blob_size_bytes",
		Help: "Size of the most recently saved blob per run",
	}, []string{"run"})
)

// Entry describes one persisted checkpoint.
type Entry struct {
	ID        string    `json:"id"` // uuid
	Run       string    `json:"run"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
	Checksum  string    `json:"checksum"` // sha256 hex of the blob
}

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives store and BadgerDB logs. Nil disables BadgerDB's
	// internal logging.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: no disk, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a badger-backed checkpoint store.
//
// Thread Safety: safe for concurrent use; BadgerDB provides transactional
// isolation.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	closed bool
}

// Open creates or opens a checkpoint store with the given configuration.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("config: path is required for on-disk stores")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database. Safe to call once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func metaKey(run string, at time.Time) []byte {
	return []byte(fmt.Sprintf("meta/%s/%020d", run, at.UnixNano()))
}

func dataKey(run string, at time.Time) []byte {
	return []byte(fmt.Sprintf("data/%s/%020d", run, at.UnixNano()))
}

func checkRun(run string) error {
	if run == "" || strings.ContainsAny(run, "/\x00") {
		return fmt.Errorf("run %q: %w", run, ErrBadRun)
	}
	return nil
}

// Save appends blob as a new checkpoint entry under run.
func (s *Store) Save(ctx context.Context, run string, blob []byte) (Entry, error) {
	start := time.Now()
	if s.closed {
		return Entry{}, ErrClosed
	}
	if err := checkRun(run); err != nil {
		return Entry{}, err
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	sum := sha256.Sum256(blob)
	entry := Entry{
		ID:        uuid.NewString(),
		Run:       run,
		CreatedAt: time.Now().UTC(),
		Size:      len(blob),
		Checksum:  hex.EncodeToString(sum[:]),
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(run, entry.CreatedAt), blob); err != nil {
			return err
		}
		return txn.Set(metaKey(run, entry.CreatedAt), meta)
	})
	if err != nil {
		saveDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		operationsTotal.WithLabelValues("save", "error").Inc()
		return Entry{}, fmt.Errorf("save checkpoint: %w", err)
	}

	saveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues("save", "ok").Inc()
	blobSizeGauge.WithLabelValues(run).Set(float64(len(blob)))
	s.logger.Debug("checkpoint saved",
		"run", run, "id", entry.ID, "size", entry.Size)
	return entry, nil
}

// Load returns the newest blob and entry for run.
func (s *Store) Load(ctx context.Context, run string) ([]byte, Entry, error) {
	start := time.Now()
	if s.closed {
		return nil, Entry{}, ErrClosed
	}
	if err := checkRun(run); err != nil {
		return nil, Entry{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Entry{}, err
	}

	var entry Entry
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		latest, err := latestMeta(txn, run)
		if err != nil {
			return err
		}
		entry = latest
		item, err := txn.Get(dataKey(run, entry.CreatedAt))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		loadDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		operationsTotal.WithLabelValues("load", "error").Inc()
		if errors.Is(err, badger.ErrKeyNotFound) || errors.Is(err, ErrNotFound) {
			return nil, Entry{}, fmt.Errorf("run %q: %w", run, ErrNotFound)
		}
		return nil, Entry{}, fmt.Errorf("load checkpoint: %w", err)
	}

	sum := sha256.Sum256(blob)
	if hex.EncodeToString(sum[:]) != entry.Checksum {
		operationsTotal.WithLabelValues("load", "corrupted").Inc()
		return nil, Entry{}, fmt.Errorf("run %q entry %s: %w", run, entry.ID, ErrCorrupted)
	}

	loadDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues("load", "ok").Inc()
	s.logger.Debug("checkpoint loaded",
		"run", run, "id", entry.ID, "size", entry.Size)
	return blob, entry, nil
}

// List returns every entry in the store, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("meta/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("decode entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		operationsTotal.WithLabelValues("list", "error").Inc()
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	operationsTotal.WithLabelValues("list", "ok").Inc()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// latestMeta scans run's meta prefix and returns the newest entry.
func latestMeta(txn *badger.Txn, run string) (Entry, error) {
	prefix := []byte("meta/" + run + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var latest Entry
	found := false
	for it.Rewind(); it.Valid(); it.Next() {
		raw, err := it.Item().ValueCopy(nil)
		if err != nil {
			return Entry{}, err
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return Entry{}, fmt.Errorf("decode entry %s: %w", it.Item().Key(), err)
		}
		// Keys are zero-padded nanos, so the last one wins.
		latest = e
		found = true
	}
	if !found {
		return Entry{}, ErrNotFound
	}
	return latest, nil
}
