package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
	"otcescrow/storage"
)

var (
	ErrAccountExists    = errors.New("state: account already exists")
	ErrAccountNotFound  = errors.New("state: account not found")
	ErrAlreadyProcessed = errors.New("state: transaction already processed")
	ErrReadOnly         = errors.New("state: manager is read-only")
)

var (
	accountPrefix   = []byte("account:")
	processedPrefix = []byte("tx:")
)

// Manager reads and writes ledger accounts within a single storage
// transaction. A manager built with NewReader rejects writes.
type Manager struct {
	r storage.Reader
	w storage.Txn
}

// NewManager creates a state manager operating on the provided transaction.
func NewManager(txn storage.Txn) *Manager {
	return &Manager{r: txn, w: txn}
}

// NewReader creates a read-only manager.
func NewReader(r storage.Reader) *Manager {
	return &Manager{r: r}
}

func accountKey(addr solana.PublicKey) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func processedKey(id [32]byte) []byte {
	buf := make([]byte, len(processedPrefix)+len(id))
	copy(buf, processedPrefix)
	copy(buf[len(processedPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

// GetAccount loads the account stored at addr.
func (m *Manager) GetAccount(addr solana.PublicKey) (*types.Account, error) {
	data, err := m.r.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	acc := new(types.Account)
	if err := rlp.DecodeBytes(data, acc); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	return acc, nil
}

// Exists reports whether an account is stored at addr.
func (m *Manager) Exists(addr solana.PublicKey) (bool, error) {
	return m.r.Has(accountKey(addr))
}

// CreateAccount stores a new account and refuses to overwrite an existing one.
func (m *Manager) CreateAccount(addr solana.PublicKey, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	exists, err := m.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	return m.PutAccount(addr, acc)
}

// PutAccount writes the account, replacing any previous value.
func (m *Manager) PutAccount(addr solana.PublicKey, acc *types.Account) error {
	if m.w == nil {
		return ErrReadOnly
	}
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	encoded, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	return m.w.Put(accountKey(addr), encoded)
}

// Processed reports whether the transaction id was already committed.
func (m *Manager) Processed(id [32]byte) (bool, error) {
	return m.r.Has(processedKey(id))
}

// MarkProcessed records the transaction id, failing if it was seen before.
func (m *Manager) MarkProcessed(id [32]byte) error {
	if m.w == nil {
		return ErrReadOnly
	}
	seen, err := m.Processed(id)
	if err != nil {
		return err
	}
	if seen {
		return ErrAlreadyProcessed
	}
	return m.w.Put(processedKey(id), []byte{1})
}
