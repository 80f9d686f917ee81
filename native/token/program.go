package token

import (
	"fmt"
	"log/slog"
	"math/bits"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/events"
	"otcescrow/core/runtime"
	"otcescrow/core/types"
)

const (
	// TypeMintTo is emitted when new units are issued.
	TypeMintTo = "token.mint_to"
)

// Program is the token ledger: it creates mints and token accounts and moves
// balances between accounts of the same mint.
type Program struct {
	id solana.PublicKey
}

// New returns the token program registered under id.
func New(id solana.PublicKey) *Program {
	return &Program{id: id}
}

func (p *Program) ID() solana.PublicKey { return p.id }
func (p *Program) Name() string         { return "token" }

// Process dispatches one token instruction.
func (p *Program) Process(ctx *runtime.InvokeContext, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty instruction", ErrInvalidInstruction)
	}
	tag, args := data[0], data[1:]
	switch tag {
	case InstructionInitializeMint:
		var a initializeMintArgs
		if err := decode(args, 33, &a); err != nil {
			return err
		}
		return p.initializeMint(ctx, a)
	case InstructionInitializeAccount:
		var a initializeAccountArgs
		if err := decode(args, 32, &a); err != nil {
			return err
		}
		return p.initializeAccount(ctx, a)
	case InstructionMintTo:
		var a amountArgs
		if err := decode(args, 8, &a); err != nil {
			return err
		}
		return p.mintTo(ctx, a.Amount)
	case InstructionTransfer:
		var a amountArgs
		if err := decode(args, 8, &a); err != nil {
			return err
		}
		return p.transfer(ctx, a.Amount)
	default:
		return fmt.Errorf("%w: unknown tag %d", ErrInvalidInstruction, tag)
	}
}

func (p *Program) initializeMint(ctx *runtime.InvokeContext, args initializeMintArgs) error {
	mintMeta, err := ctx.Account(0)
	if err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(&Mint{Authority: args.Authority, Decimals: args.Decimals})
	if err != nil {
		return err
	}
	if err := ctx.CreateAccount(mintMeta.PublicKey, p.id, data, nil); err != nil {
		return err
	}
	ctx.Logger().Debug("mint initialised",
		slog.String("mint", mintMeta.PublicKey.String()),
		slog.Int("decimals", int(args.Decimals)))
	return nil
}

// initializeAccount either creates a fresh signed account or fills in an
// empty account another program already created for the token program.
func (p *Program) initializeAccount(ctx *runtime.InvokeContext, args initializeAccountArgs) error {
	accMeta, err := ctx.Account(0)
	if err != nil {
		return err
	}
	mintMeta, err := ctx.Account(1)
	if err != nil {
		return err
	}
	mintAcc, err := ctx.Load(mintMeta.PublicKey)
	if err != nil {
		return err
	}
	if _, err := LoadMint(p.id, mintAcc); err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(&Account{Mint: mintMeta.PublicKey, Owner: args.Owner})
	if err != nil {
		return err
	}
	exists, err := ctx.Exists(accMeta.PublicKey)
	if err != nil {
		return err
	}
	if !exists {
		return ctx.CreateAccount(accMeta.PublicKey, p.id, data, nil)
	}
	current, err := ctx.Load(accMeta.PublicKey)
	if err != nil {
		return err
	}
	if !current.OwnedBy(p.id) {
		return ErrNotTokenAccount
	}
	if len(current.Data) != 0 {
		return ErrAlreadyInitialized
	}
	return ctx.Store(accMeta.PublicKey, data)
}

func (p *Program) mintTo(ctx *runtime.InvokeContext, amount uint64) error {
	mintMeta, err := ctx.Account(0)
	if err != nil {
		return err
	}
	destMeta, err := ctx.Account(1)
	if err != nil {
		return err
	}
	authMeta, err := ctx.Account(2)
	if err != nil {
		return err
	}
	mintAcc, err := ctx.Load(mintMeta.PublicKey)
	if err != nil {
		return err
	}
	mint, err := LoadMint(p.id, mintAcc)
	if err != nil {
		return err
	}
	if !mint.Authority.Equals(authMeta.PublicKey) || !ctx.IsSigner(authMeta.PublicKey) {
		return ErrMintAuthority
	}
	dest, err := p.loadTokenAccount(ctx, destMeta.PublicKey)
	if err != nil {
		return err
	}
	if !dest.Mint.Equals(mintMeta.PublicKey) {
		return ErrMintMismatch
	}
	supply, carry := bits.Add64(mint.Supply, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	balance, carry := bits.Add64(dest.Amount, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	mint.Supply = supply
	dest.Amount = balance
	if err := p.storeMint(ctx, mintMeta.PublicKey, mint); err != nil {
		return err
	}
	if err := p.storeAccount(ctx, destMeta.PublicKey, dest); err != nil {
		return err
	}
	ctx.Emit(&types.Event{Type: TypeMintTo, Attributes: map[string]string{
		"mint":   mintMeta.PublicKey.String(),
		"to":     destMeta.PublicKey.String(),
		"amount": strconv.FormatUint(amount, 10),
	}})
	return nil
}

// transfer moves amount from source to destination. Both accounts must hold
// the same mint and the authority must be the source's owner and a signer
// (directly or as a derived address of the calling program).
func (p *Program) transfer(ctx *runtime.InvokeContext, amount uint64) error {
	srcMeta, err := ctx.Account(0)
	if err != nil {
		return err
	}
	dstMeta, err := ctx.Account(1)
	if err != nil {
		return err
	}
	authMeta, err := ctx.Account(2)
	if err != nil {
		return err
	}
	src, err := p.loadTokenAccount(ctx, srcMeta.PublicKey)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dst, err := p.loadTokenAccount(ctx, dstMeta.PublicKey)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !src.Mint.Equals(dst.Mint) {
		return ErrMintMismatch
	}
	if !src.Owner.Equals(authMeta.PublicKey) {
		return ErrOwnerMismatch
	}
	if !ctx.IsSigner(authMeta.PublicKey) {
		return fmt.Errorf("%w: %s", runtime.ErrMissingSignature, authMeta.PublicKey)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Amount, amount)
	}
	if !srcMeta.PublicKey.Equals(dstMeta.PublicKey) {
		balance, carry := bits.Add64(dst.Amount, amount, 0)
		if carry != 0 {
			return ErrOverflow
		}
		src.Amount -= amount
		dst.Amount = balance
		if err := p.storeAccount(ctx, srcMeta.PublicKey, src); err != nil {
			return err
		}
		if err := p.storeAccount(ctx, dstMeta.PublicKey, dst); err != nil {
			return err
		}
	}
	ctx.Emit(events.Transfer{
		Mint:      src.Mint,
		From:      srcMeta.PublicKey,
		To:        dstMeta.PublicKey,
		Authority: authMeta.PublicKey,
		Amount:    amount,
	}.Event())
	return nil
}

func (p *Program) loadTokenAccount(ctx *runtime.InvokeContext, addr solana.PublicKey) (*Account, error) {
	acc, err := ctx.Load(addr)
	if err != nil {
		return nil, err
	}
	return LoadAccount(p.id, acc)
}

func (p *Program) storeAccount(ctx *runtime.InvokeContext, addr solana.PublicKey, acc *Account) error {
	data, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	return ctx.Store(addr, data)
}

func (p *Program) storeMint(ctx *runtime.InvokeContext, addr solana.PublicKey, mint *Mint) error {
	data, err := rlp.EncodeToBytes(mint)
	if err != nil {
		return err
	}
	return ctx.Store(addr, data)
}
