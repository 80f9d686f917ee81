package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// --- Persistent DB (for mainnet) ---

// LevelDB is a persistent key-value store using LevelDB. Write transactions
// use leveldb's OpenTransaction, which blocks other writers until the
// transaction is committed or discarded.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// NewMemLevelDB opens a LevelDB instance backed by memory storage.
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Has reports whether the key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

// View runs fn against a point-in-time snapshot.
func (ldb *LevelDB) View(fn func(Reader) error) error {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()
	return fn(levelSnapshot{snap: snap})
}

// Update runs fn inside a leveldb transaction and commits it on success.
func (ldb *LevelDB) Update(fn func(Txn) error) error {
	tr, err := ldb.db.OpenTransaction()
	if err != nil {
		return err
	}
	if err := fn(levelTxn{tr: tr}); err != nil {
		tr.Discard()
		return err
	}
	return tr.Commit()
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

type levelSnapshot struct{ snap *leveldb.Snapshot }

func (s levelSnapshot) Get(key []byte) ([]byte, error) {
	value, err := s.snap.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s levelSnapshot) Has(key []byte) (bool, error) { return s.snap.Has(key, nil) }

type levelTxn struct{ tr *leveldb.Transaction }

func (t levelTxn) Get(key []byte) ([]byte, error) {
	value, err := t.tr.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (t levelTxn) Has(key []byte) (bool, error) { return t.tr.Has(key, nil) }

func (t levelTxn) Put(key, value []byte) error { return t.tr.Put(key, value, nil) }

func (t levelTxn) Delete(key []byte) error { return t.tr.Delete(key, nil) }
