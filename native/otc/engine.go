package otc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"otcescrow/core/runtime"
	"otcescrow/core/state"
	"otcescrow/native/token"
	"otcescrow/observability"
)

func (p *Program) loadOrder(ctx *runtime.InvokeContext, addr solana.PublicKey) (*Order, error) {
	acc, err := ctx.Load(addr)
	if err != nil {
		return nil, err
	}
	if !acc.OwnedBy(p.id) {
		return nil, fmt.Errorf("%w: %s is not owned by the escrow program", ErrInvalidAccountData, addr)
	}
	order, err := DecodeOrder(acc.Data)
	if err != nil {
		return nil, err
	}
	if err := VerifyOrderAddress(p.id, addr, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (p *Program) storeOrder(ctx *runtime.InvokeContext, addr solana.PublicKey, order *Order) error {
	data, err := order.MarshalBinary()
	if err != nil {
		return err
	}
	return ctx.Store(addr, data)
}

func (p *Program) loadTokenAccount(ctx *runtime.InvokeContext, addr solana.PublicKey) (*token.Account, error) {
	acc, err := ctx.Load(addr)
	if err != nil {
		return nil, err
	}
	return token.LoadAccount(p.tokenProgram, acc)
}

func (p *Program) checkEscrowAddress(order, escrow solana.PublicKey) (uint8, error) {
	derived, bump, err := FindEscrowAddress(p.id, order)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSeedsMismatch, err)
	}
	if !derived.Equals(escrow) {
		return 0, fmt.Errorf("%w: escrow account %s, want %s", ErrSeedsMismatch, escrow, derived)
	}
	return bump, nil
}

// createOrder opens an order: it writes the record at the derived order
// address, creates the holding account owned by that address and moves the
// offered amount into it.
func (p *Program) createOrder(ctx *runtime.InvokeContext, args CreateOrderArgs) error {
	keys, err := accountKeys(ctx, createAccountCount)
	if err != nil {
		return err
	}
	orderAddr := keys[createOrderAccount]
	maker := keys[createMaker]
	makerToken := keys[createMakerTokenAccount]
	offerMint := keys[createOfferMint]
	escrow := keys[createEscrowAccount]
	if err := p.checkTokenProgram(keys[createTokenProgram]); err != nil {
		return err
	}
	if !ctx.IsSigner(maker) {
		return fmt.Errorf("%w: maker %s", runtime.ErrMissingSignature, maker)
	}
	if args.AmountOffer == 0 || args.AmountWanted == 0 {
		return ErrZeroAmount
	}
	if args.TokenWanted.Equals(offerMint) {
		return ErrSameToken
	}
	mintAcc, err := ctx.Load(offerMint)
	if err != nil {
		return err
	}
	if _, err := token.LoadMint(p.tokenProgram, mintAcc); err != nil {
		return fmt.Errorf("offer mint: %w", err)
	}
	source, err := p.loadTokenAccount(ctx, makerToken)
	if err != nil {
		return fmt.Errorf("maker token account: %w", err)
	}
	if !source.Mint.Equals(offerMint) {
		return fmt.Errorf("%w: maker token account holds %s, offer is %s", ErrWrongMint, source.Mint, offerMint)
	}

	derived, bump, err := FindOrderAddress(p.id, maker, args.OrderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSeedsMismatch, err)
	}
	if !derived.Equals(orderAddr) {
		return fmt.Errorf("%w: order account %s, want %s", ErrSeedsMismatch, orderAddr, derived)
	}
	escrowBump, err := p.checkEscrowAddress(orderAddr, escrow)
	if err != nil {
		return err
	}

	order := &Order{
		Maker:        maker,
		OrderID:      args.OrderID,
		TokenOffer:   offerMint,
		AmountOffer:  args.AmountOffer,
		TokenWanted:  args.TokenWanted,
		AmountWanted: args.AmountWanted,
		IsActive:     true,
		Bump:         bump,
	}
	data, err := order.MarshalBinary()
	if err != nil {
		return err
	}
	if err := ctx.CreateAccount(orderAddr, p.id, data, orderSignerSeeds(order)); err != nil {
		if errors.Is(err, state.ErrAccountExists) {
			return fmt.Errorf("%w: %w", ErrOrderExists, err)
		}
		return err
	}
	escrowSigner := append(escrowSeeds(orderAddr), []byte{escrowBump})
	if err := ctx.CreateAccount(escrow, p.tokenProgram, nil, escrowSigner); err != nil {
		if errors.Is(err, state.ErrAccountExists) {
			return fmt.Errorf("%w: %w", ErrOrderExists, err)
		}
		return err
	}
	if err := ctx.Invoke(token.NewInitializeAccountInstruction(p.tokenProgram, escrow, offerMint, orderAddr, false)); err != nil {
		return fmt.Errorf("initialise escrow account: %w", err)
	}
	if err := ctx.Invoke(token.NewTransferInstruction(p.tokenProgram, makerToken, escrow, maker, args.AmountOffer)); err != nil {
		return fmt.Errorf("escrow offer: %w", err)
	}

	ctx.Emit(NewOrderCreatedEvent(orderAddr, order))
	ctx.Logger().Info("order created",
		slog.String("order", orderAddr.String()),
		slog.String("maker", maker.String()),
		slog.Uint64("order_id", args.OrderID),
		slog.Uint64("amount_offer", args.AmountOffer),
		slog.Uint64("amount_wanted", args.AmountWanted))
	return nil
}

// executeOrder settles an active order in full: the taker pays the maker the
// wanted amount, the holding account pays the taker the offered amount under
// the order's derived authority, and the order is closed.
func (p *Program) executeOrder(ctx *runtime.InvokeContext) error {
	keys, err := accountKeys(ctx, executeAccountCount)
	if err != nil {
		return err
	}
	orderAddr := keys[executeOrderAccount]
	taker := keys[executeTaker]
	takerToken := keys[executeTakerTokenAccount]
	takerOffer := keys[executeTakerOfferAccount]
	makerWanted := keys[executeMakerWantedAccount]
	escrow := keys[executeEscrowAccount]
	if err := p.checkTokenProgram(keys[executeTokenProgram]); err != nil {
		return err
	}

	order, err := p.loadOrder(ctx, orderAddr)
	if err != nil {
		return err
	}
	if !ctx.IsSigner(taker) {
		return fmt.Errorf("%w: taker %s", runtime.ErrMissingSignature, taker)
	}
	if !order.IsActive {
		return ErrOrderNotActive
	}
	payer, err := p.loadTokenAccount(ctx, takerToken)
	if err != nil {
		return fmt.Errorf("taker token account: %w", err)
	}
	if !payer.Mint.Equals(order.TokenWanted) {
		return fmt.Errorf("%w: taker token account holds %s, order wants %s", ErrWrongMint, payer.Mint, order.TokenWanted)
	}
	receiver, err := p.loadTokenAccount(ctx, takerOffer)
	if err != nil {
		return fmt.Errorf("taker offer account: %w", err)
	}
	if !receiver.Mint.Equals(order.TokenOffer) {
		return fmt.Errorf("%w: taker offer account holds %s, order offers %s", ErrWrongMint, receiver.Mint, order.TokenOffer)
	}
	proceeds, err := p.loadTokenAccount(ctx, makerWanted)
	if err != nil {
		return fmt.Errorf("maker wanted account: %w", err)
	}
	if !proceeds.Mint.Equals(order.TokenWanted) {
		return fmt.Errorf("%w: maker wanted account holds %s, order wants %s", ErrWrongMint, proceeds.Mint, order.TokenWanted)
	}
	if !proceeds.Owner.Equals(order.Maker) {
		return fmt.Errorf("%w: maker wanted account owned by %s", ErrWrongRecipient, proceeds.Owner)
	}
	if _, err := p.checkEscrowAddress(orderAddr, escrow); err != nil {
		return err
	}
	if takerOffer.Equals(escrow) {
		return fmt.Errorf("%w: taker offer account is the escrow account", ErrWrongRecipient)
	}

	if err := ctx.Invoke(token.NewTransferInstruction(p.tokenProgram, takerToken, makerWanted, taker, order.AmountWanted)); err != nil {
		return fmt.Errorf("pay maker: %w", err)
	}
	release := token.NewTransferInstruction(p.tokenProgram, escrow, takerOffer, orderAddr, order.AmountOffer)
	if err := ctx.InvokeSigned(release, orderSignerSeeds(order)); err != nil {
		return fmt.Errorf("release escrow: %w", err)
	}
	order.IsActive = false
	if err := p.storeOrder(ctx, orderAddr, order); err != nil {
		return err
	}

	ctx.Emit(NewOrderFilledEvent(orderAddr, order, taker))
	observability.OTC().RecordSettlement("filled", order.AmountOffer)
	ctx.Logger().Info("order filled",
		slog.String("order", orderAddr.String()),
		slog.String("taker", taker.String()))
	return nil
}

// cancelOrder returns the escrowed offer to the maker and closes the order.
// Authorisation is checked before activity so that a stranger is told they
// are unauthorised whatever the order's state.
func (p *Program) cancelOrder(ctx *runtime.InvokeContext) error {
	keys, err := accountKeys(ctx, cancelAccountCount)
	if err != nil {
		return err
	}
	orderAddr := keys[cancelOrderAccount]
	maker := keys[cancelMaker]
	makerToken := keys[cancelMakerTokenAccount]
	escrow := keys[cancelEscrowAccount]
	if err := p.checkTokenProgram(keys[cancelTokenProgram]); err != nil {
		return err
	}

	order, err := p.loadOrder(ctx, orderAddr)
	if err != nil {
		return err
	}
	if !maker.Equals(order.Maker) || !ctx.IsSigner(maker) {
		return ErrUnauthorized
	}
	if !order.IsActive {
		return ErrOrderNotActive
	}
	refund, err := p.loadTokenAccount(ctx, makerToken)
	if err != nil {
		return fmt.Errorf("maker token account: %w", err)
	}
	if !refund.Mint.Equals(order.TokenOffer) {
		return fmt.Errorf("%w: maker token account holds %s, order offers %s", ErrWrongMint, refund.Mint, order.TokenOffer)
	}
	if !refund.Owner.Equals(order.Maker) {
		return fmt.Errorf("%w: maker token account owned by %s", ErrWrongRecipient, refund.Owner)
	}
	if _, err := p.checkEscrowAddress(orderAddr, escrow); err != nil {
		return err
	}

	release := token.NewTransferInstruction(p.tokenProgram, escrow, makerToken, orderAddr, order.AmountOffer)
	if err := ctx.InvokeSigned(release, orderSignerSeeds(order)); err != nil {
		return fmt.Errorf("refund escrow: %w", err)
	}
	order.IsActive = false
	if err := p.storeOrder(ctx, orderAddr, order); err != nil {
		return err
	}

	ctx.Emit(NewOrderCancelledEvent(orderAddr, order))
	observability.OTC().RecordSettlement("cancelled", order.AmountOffer)
	ctx.Logger().Info("order cancelled", slog.String("order", orderAddr.String()))
	return nil
}
