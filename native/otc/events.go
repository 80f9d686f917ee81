package otc

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

const (
	EventTypeOrderCreated   = "otc.order.created"
	EventTypeOrderFilled    = "otc.order.filled"
	EventTypeOrderCancelled = "otc.order.cancelled"
)

// NewOrderCreatedEvent returns the payload emitted when an order is opened
// and its offer escrowed.
func NewOrderCreatedEvent(addr solana.PublicKey, o *Order) *types.Event {
	return newOrderEvent(EventTypeOrderCreated, addr, o, nil)
}

// NewOrderFilledEvent returns the payload emitted when a taker settles an
// order.
func NewOrderFilledEvent(addr solana.PublicKey, o *Order, taker solana.PublicKey) *types.Event {
	return newOrderEvent(EventTypeOrderFilled, addr, o, map[string]string{"taker": taker.String()})
}

// NewOrderCancelledEvent returns the payload emitted when the maker reclaims
// the escrowed offer.
func NewOrderCancelledEvent(addr solana.PublicKey, o *Order) *types.Event {
	return newOrderEvent(EventTypeOrderCancelled, addr, o, nil)
}

func newOrderEvent(eventType string, addr solana.PublicKey, o *Order, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["order"] = addr.String()
	attrs["maker"] = o.Maker.String()
	attrs["orderId"] = strconv.FormatUint(o.OrderID, 10)
	attrs["tokenOffer"] = o.TokenOffer.String()
	attrs["amountOffer"] = strconv.FormatUint(o.AmountOffer, 10)
	attrs["tokenWanted"] = o.TokenWanted.String()
	attrs["amountWanted"] = strconv.FormatUint(o.AmountWanted, 10)
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
