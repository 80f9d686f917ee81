package events

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

const (
	// TypeTransfer is emitted for every token balance movement.
	TypeTransfer = "token.transfer"
)

type Transfer struct {
	Mint      solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"mint":      e.Mint.String(),
		"from":      e.From.String(),
		"to":        e.To.String(),
		"authority": e.Authority.String(),
		"amount":    strconv.FormatUint(e.Amount, 10),
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
