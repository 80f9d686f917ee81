package otc

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// OrderSize is the encoded size of an order record.
	OrderSize = 32 + 8 + 32 + 8 + 32 + 8 + 1 + 1
	// OrderAccountSize includes the account discriminator.
	OrderAccountSize = 8 + OrderSize
)

var orderDiscriminator = bin.SighashTypeID("account", "Order")

// Order is the persisted record of one offer. Identity and amount fields are
// fixed at creation; IsActive flips to false exactly once, on fill or
// cancellation.
type Order struct {
	Maker        solana.PublicKey
	OrderID      uint64
	TokenOffer   solana.PublicKey
	AmountOffer  uint64
	TokenWanted  solana.PublicKey
	AmountWanted uint64
	IsActive     bool
	Bump         uint8
}

// Clone returns a copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// MarshalBinary encodes the order as discriminator followed by the
// little-endian record.
func (o *Order) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, OrderAccountSize))
	buf.Write(orderDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(o); err != nil {
		return nil, fmt.Errorf("otc: encode order: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeOrder parses account data written by MarshalBinary.
func DecodeOrder(data []byte) (*Order, error) {
	if len(data) != OrderAccountSize {
		return nil, fmt.Errorf("%w: order data is %d bytes, want %d", ErrInvalidAccountData, len(data), OrderAccountSize)
	}
	if !bytes.Equal(data[:8], orderDiscriminator[:]) {
		return nil, fmt.Errorf("%w: not an order account", ErrInvalidAccountData)
	}
	order := new(Order)
	if err := bin.NewBorshDecoder(data[8:]).Decode(order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return order, nil
}
