package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

var (
	ErrInvalidInstruction = errors.New("token: invalid instruction")
	ErrNotTokenAccount    = errors.New("token: account not owned by token program")
	ErrUninitialized      = errors.New("token: account not initialized")
	ErrAlreadyInitialized = errors.New("token: account already initialized")
	ErrMintMismatch       = errors.New("token: mint mismatch")
	ErrOwnerMismatch      = errors.New("token: authority does not own source account")
	ErrInsufficientFunds  = errors.New("token: insufficient funds")
	ErrOverflow           = errors.New("token: amount overflow")
	ErrMintAuthority      = errors.New("token: invalid mint authority")
)

// Mint describes a token type. Every token account references exactly one
// mint; balances of different mints never mix.
type Mint struct {
	Authority solana.PublicKey
	Decimals  uint8
	Supply    uint64
}

// Account holds a balance of a single mint on behalf of Owner. Only Owner
// (a key or a program-derived address) may authorise debits.
type Account struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func decodeMint(data []byte) (*Mint, error) {
	if len(data) == 0 {
		return nil, ErrUninitialized
	}
	mint := new(Mint)
	if err := rlp.DecodeBytes(data, mint); err != nil {
		return nil, fmt.Errorf("token: decode mint: %w", err)
	}
	return mint, nil
}

func decodeAccount(data []byte) (*Account, error) {
	if len(data) == 0 {
		return nil, ErrUninitialized
	}
	acc := new(Account)
	if err := rlp.DecodeBytes(data, acc); err != nil {
		return nil, fmt.Errorf("token: decode account: %w", err)
	}
	return acc, nil
}

// LoadMint decodes a ledger account as a mint owned by programID.
func LoadMint(programID solana.PublicKey, acc *types.Account) (*Mint, error) {
	if !acc.OwnedBy(programID) {
		return nil, ErrNotTokenAccount
	}
	return decodeMint(acc.Data)
}

// LoadAccount decodes a ledger account as a token account owned by programID.
func LoadAccount(programID solana.PublicKey, acc *types.Account) (*Account, error) {
	if !acc.OwnedBy(programID) {
		return nil, ErrNotTokenAccount
	}
	return decodeAccount(acc.Data)
}
