package otc

import (
	"bytes"
	"fmt"
	"log/slog"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/runtime"
	"otcescrow/observability"
)

// Operation names used in logs and metrics.
const (
	OpCreate  = "create_order"
	OpExecute = "execute_order"
	OpCancel  = "cancel_order"
)

// Program is the escrow program. It custodies offered tokens in holding
// accounts controlled by each order's derived address, and releases them
// only by a complete fill or by the maker's cancellation.
type Program struct {
	id           solana.PublicKey
	tokenProgram solana.PublicKey
}

// New returns the escrow program registered under id, settling through the
// token program at tokenProgram.
func New(id, tokenProgram solana.PublicKey) *Program {
	return &Program{id: id, tokenProgram: tokenProgram}
}

func (p *Program) ID() solana.PublicKey { return p.id }
func (p *Program) Name() string         { return "otc" }

// TokenProgram returns the token program the escrow settles through.
func (p *Program) TokenProgram() solana.PublicKey { return p.tokenProgram }

// Process dispatches one escrow instruction.
func (p *Program) Process(ctx *runtime.InvokeContext, data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: missing discriminator", ErrInvalidInstruction)
	}
	var (
		op  string
		err error
	)
	disc, args := data[:8], data[8:]
	switch {
	case bytes.Equal(disc, createOrderDiscriminator[:]):
		op = OpCreate
		var a CreateOrderArgs
		if len(args) != createOrderArgsSize {
			err = fmt.Errorf("%w: create_order args are %d bytes", ErrInvalidInstruction, len(args))
		} else if derr := bin.NewBorshDecoder(args).Decode(&a); derr != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidInstruction, derr)
		} else {
			err = p.createOrder(ctx, a)
		}
	case bytes.Equal(disc, executeOrderDiscriminator[:]):
		op = OpExecute
		if len(args) != 0 {
			err = fmt.Errorf("%w: execute_order takes no arguments", ErrInvalidInstruction)
		} else {
			err = p.executeOrder(ctx)
		}
	case bytes.Equal(disc, cancelOrderDiscriminator[:]):
		op = OpCancel
		if len(args) != 0 {
			err = fmt.Errorf("%w: cancel_order takes no arguments", ErrInvalidInstruction)
		} else {
			err = p.cancelOrder(ctx)
		}
	default:
		return fmt.Errorf("%w: unknown discriminator %x", ErrInvalidInstruction, disc)
	}
	observability.OTC().RecordOperation(op, reason(err))
	if err != nil {
		ctx.Logger().Debug("escrow instruction failed", slog.String("operation", op), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func accountKeys(ctx *runtime.InvokeContext, want int) ([]solana.PublicKey, error) {
	metas := ctx.Accounts()
	if len(metas) < want {
		return nil, fmt.Errorf("%w: %w: need %d accounts, have %d", ErrInvalidInstruction, runtime.ErrNotEnoughAccounts, want, len(metas))
	}
	keys := make([]solana.PublicKey, want)
	for i := range keys {
		keys[i] = metas[i].PublicKey
	}
	return keys, nil
}

func (p *Program) checkTokenProgram(addr solana.PublicKey) error {
	if !addr.Equals(p.tokenProgram) {
		return fmt.Errorf("%w: %s", ErrWrongTokenProgram, addr)
	}
	return nil
}
