package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Reader exposes point lookups against a consistent view of the store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Txn is a read-write unit of work. Writes become visible to other readers
// only once the enclosing Update returns without error.
type Txn interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Database is a generic interface for a key-value store.
// This allows the ledger to use any database backend (in-memory or persistent).
//
// Update runs fn inside an exclusive write transaction: if fn returns an error
// nothing it wrote is persisted. Write transactions are serialised.
type Database interface {
	Reader
	View(fn func(Reader) error) error
	Update(fn func(Txn) error) error
	Close()
}

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Open creates or opens the database for the named backend. The path is
// ignored for the in-memory backend.
func Open(backend, path string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemDB(), nil
	case BackendLevelDB:
		return NewLevelDB(path)
	case BackendBolt:
		return NewBoltDB(path)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.get(key)
}

func (db *MemDB) get(key []byte) ([]byte, error) {
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

// View runs fn while holding the read lock.
func (db *MemDB) View(fn func(Reader) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(memView{db: db})
}

// Update buffers writes in an overlay and applies them only when fn succeeds.
func (db *MemDB) Update(fn func(Txn) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	txn := &memTxn{db: db, writes: make(map[string][]byte), deletes: make(map[string]struct{})}
	if err := fn(txn); err != nil {
		return err
	}
	for key := range txn.deletes {
		delete(db.data, key)
	}
	for key, value := range txn.writes {
		db.data[key] = value
	}
	return nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

type memView struct{ db *MemDB }

func (v memView) Get(key []byte) ([]byte, error) { return v.db.get(key) }

func (v memView) Has(key []byte) (bool, error) {
	_, ok := v.db.data[string(key)]
	return ok, nil
}

type memTxn struct {
	db      *MemDB
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (t *memTxn) Get(key []byte) ([]byte, error) {
	k := string(key)
	if value, ok := t.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := t.deletes[k]; ok {
		return nil, ErrNotFound
	}
	return t.db.get(key)
}

func (t *memTxn) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *memTxn) Put(key, value []byte) error {
	k := string(key)
	delete(t.deletes, k)
	t.writes[k] = append([]byte(nil), value...)
	return nil
}

func (t *memTxn) Delete(key []byte) error {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
	return nil
}
