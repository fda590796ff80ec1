// Package storage persists workspace state in an embedded badger database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/utils"
)

const (
	keySeparator = ":"
	stateDirMode = 0o755
)

// OpenDatabase opens (creating if needed) a badger database in directory.
// Badger's own log lines are routed through logger at debug level and above.
func OpenDatabase(directory string, logger *zap.Logger) (*badger.DB, error) {
	if directory == "" {
		return nil, errors.New("state directory is empty")
	}
	if err := os.MkdirAll(directory, stateDirMode); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", directory, err)
	}
	options := badger.DefaultOptions(directory).WithLogger(newBadgerLogger(logger))
	database, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", directory, err)
	}
	return database, nil
}

// OpenInMemoryDatabase opens a badger database that never touches disk.
func OpenInMemoryDatabase() (*badger.DB, error) {
	options := badger.DefaultOptions("").WithInMemory(true)
	options.Logger = nil
	database, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open in-memory state database: %w", err)
	}
	return database, nil
}

// BadgerStore stores JSON values under "<prefix>:<id>" keys.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore returns a store scoped to prefix.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{db: db, prefix: prefix}
}

func (store *BadgerStore) makeKey(id string) []byte {
	return []byte(store.prefix + keySeparator + id)
}

func (store *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), store.prefix+keySeparator)
}

// Put marshals value as JSON and stores it under id, replacing any previous value.
func (store *BadgerStore) Put(id string, value interface{}) error {
	if id == "" {
		return errors.New("entry ID cannot be empty")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling entry %s: %w", id, err)
	}
	return store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(store.makeKey(id), data)
	})
}

// Get decodes the value stored under id into target. It reports false when id is absent.
func (store *BadgerStore) Get(id string, target interface{}) (bool, error) {
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(store.makeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, target)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading entry %s: %w", id, err)
	}
	return true, nil
}

// Delete removes id. Deleting an absent id is not an error.
func (store *BadgerStore) Delete(id string) error {
	return store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(store.makeKey(id))
	})
}

// Keys lists every id stored under the prefix.
func (store *BadgerStore) Keys() ([]string, error) {
	var ids []string
	err := store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = []byte(store.prefix + keySeparator)
		iterator := txn.NewIterator(options)
		defer iterator.Close()
		for iterator.Rewind(); iterator.Valid(); iterator.Next() {
			ids = append(ids, store.stripPrefix(iterator.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s entries: %w", store.prefix, err)
	}
	return ids, nil
}

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) badgerLogger {
	return badgerLogger{sugar: utils.LoggerOrNop(logger).Named("badger").Sugar()}
}

func (logger badgerLogger) Errorf(format string, arguments ...interface{}) {
	logger.sugar.Errorf(strings.TrimSpace(format), arguments...)
}

func (logger badgerLogger) Warningf(format string, arguments ...interface{}) {
	logger.sugar.Warnf(strings.TrimSpace(format), arguments...)
}

func (logger badgerLogger) Infof(format string, arguments ...interface{}) {
	logger.sugar.Debugf(strings.TrimSpace(format), arguments...)
}

func (logger badgerLogger) Debugf(format string, arguments ...interface{}) {
	logger.sugar.Debugf(strings.TrimSpace(format), arguments...)
}

var _ badger.Logger = badgerLogger{}
