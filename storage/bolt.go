package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketLedger = []byte("ledger")

// BoltDB stores every key in a single bucket of a bbolt file.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (and initialises) the bbolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLedger)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.View(func(r Reader) error {
		value, err := r.Get(key)
		out = value
		return err
	})
	return out, err
}

func (b *BoltDB) Has(key []byte) (bool, error) {
	var ok bool
	err := b.View(func(r Reader) error {
		var err error
		ok, err = r.Has(key)
		return err
	})
	return ok, err
}

func (b *BoltDB) View(fn func(Reader) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketLedger)
		if bucket == nil {
			return fmt.Errorf("storage: bucket %s missing", bucketLedger)
		}
		return fn(boltTxn{bucket: bucket})
	})
}

// Update maps directly onto bbolt's read-write transaction, which rolls back
// when fn returns an error.
func (b *BoltDB) Update(fn func(Txn) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketLedger)
		if bucket == nil {
			return fmt.Errorf("storage: bucket %s missing", bucketLedger)
		}
		return fn(boltTxn{bucket: bucket})
	})
}

// Close releases the underlying Bolt database handle.
func (b *BoltDB) Close() {
	if b == nil || b.db == nil {
		return
	}
	_ = b.db.Close()
}

type boltTxn struct{ bucket *bolt.Bucket }

// Get copies the value out because bbolt memory is only valid inside the tx.
func (t boltTxn) Get(key []byte) ([]byte, error) {
	value := t.bucket.Get(key)
	if value == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (t boltTxn) Has(key []byte) (bool, error) { return t.bucket.Get(key) != nil, nil }

func (t boltTxn) Put(key, value []byte) error { return t.bucket.Put(key, value) }

func (t boltTxn) Delete(key []byte) error { return t.bucket.Delete(key) }
