// Package store provides key-value persistence for read-along calibration
// data, backed by BadgerDB.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned by a Backend when a key does not exist.
var ErrKeyNotFound = errors.New("store: key not found")

// Backend is the raw key-value surface the store runs on. The default
// implementation is BadgerDB; tests substitute failing backends to exercise
// the write-failure recovery paths.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Keys returns all keys with the given prefix in lexicographic order.
	Keys(prefix []byte) ([]string, error)
	Close() error
}

// Store wraps a Backend with calibration-record semantics.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New opens a BadgerDB-backed store at the given path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Calibration writes are small and must survive crashes

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := NewWithBackend(&badgerBackend{db: db}, logger)
	s.logger.Info("Badger database opened successfully", "path", path)
	return s, nil
}

// NewWithBackend creates a store over an arbitrary backend.
func NewWithBackend(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{backend: backend, logger: logger}
}

// Close gracefully closes the underlying backend.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.backend.Close()
}

// badgerBackend implements Backend over a Badger database.
type badgerBackend struct {
	db *badger.DB
}

func (b *badgerBackend) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (b *badgerBackend) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerBackend) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerBackend) Keys(prefix []byte) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (b *badgerBackend) Close() error {
	return b.db.Close()
}
