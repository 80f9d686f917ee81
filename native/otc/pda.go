package otc

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	orderSeedPrefix  = []byte("order")
	escrowSeedPrefix = []byte("escrow")
)

func orderSeeds(maker solana.PublicKey, orderID uint64) [][]byte {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, orderID)
	return [][]byte{orderSeedPrefix, maker.Bytes(), id}
}

func orderSignerSeeds(order *Order) [][]byte {
	return append(orderSeeds(order.Maker, order.OrderID), []byte{order.Bump})
}

func escrowSeeds(order solana.PublicKey) [][]byte {
	return [][]byte{escrowSeedPrefix, order.Bytes()}
}

// FindOrderAddress returns the canonical order address for (maker, orderID)
// and its bump. Nobody holds a private key for the result.
func FindOrderAddress(programID, maker solana.PublicKey, orderID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(orderSeeds(maker, orderID), programID)
}

// CreateOrderAddress recomputes the order address from a known bump.
func CreateOrderAddress(programID, maker solana.PublicKey, orderID uint64, bump uint8) (solana.PublicKey, error) {
	seeds := append(orderSeeds(maker, orderID), []byte{bump})
	addr, err := solana.CreateProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrSeedsMismatch, err)
	}
	return addr, nil
}

// VerifyOrderAddress fails closed unless the stored fields of order
// reconstruct exactly the address it was loaded from.
func VerifyOrderAddress(programID, addr solana.PublicKey, order *Order) error {
	derived, err := CreateOrderAddress(programID, order.Maker, order.OrderID, order.Bump)
	if err != nil {
		return err
	}
	if !derived.Equals(addr) {
		return fmt.Errorf("%w: order %s derives %s", ErrSeedsMismatch, addr, derived)
	}
	return nil
}

// FindEscrowAddress returns the holding account address for an order.
func FindEscrowAddress(programID, order solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(escrowSeeds(order), programID)
}
