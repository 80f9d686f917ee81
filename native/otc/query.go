package otc

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
	"otcescrow/native/token"
)

// AccountReader reads committed ledger accounts. *runtime.Runtime satisfies
// it.
type AccountReader interface {
	Account(addr solana.PublicKey) (*types.Account, error)
}

// GetOrder loads and validates the order stored at addr.
func GetOrder(r AccountReader, programID, addr solana.PublicKey) (*Order, error) {
	acc, err := r.Account(addr)
	if err != nil {
		return nil, err
	}
	if !acc.OwnedBy(programID) {
		return nil, fmt.Errorf("%w: %s is not owned by the escrow program", ErrInvalidAccountData, addr)
	}
	order, err := DecodeOrder(acc.Data)
	if err != nil {
		return nil, err
	}
	if err := VerifyOrderAddress(programID, addr, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByID resolves the order address for (maker, orderID) and loads it.
func GetOrderByID(r AccountReader, programID, maker solana.PublicKey, orderID uint64) (solana.PublicKey, *Order, error) {
	addr, _, err := FindOrderAddress(programID, maker, orderID)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	order, err := GetOrder(r, programID, addr)
	return addr, order, err
}

// GetEscrow returns the holding account of the order at addr.
func GetEscrow(r AccountReader, programID, tokenProgram, order solana.PublicKey) (solana.PublicKey, *token.Account, error) {
	addr, _, err := FindEscrowAddress(programID, order)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	acc, err := r.Account(addr)
	if err != nil {
		return addr, nil, err
	}
	holding, err := token.LoadAccount(tokenProgram, acc)
	return addr, holding, err
}
