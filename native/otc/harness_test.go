package otc

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"otcescrow/core/events"
	"otcescrow/core/runtime"
	"otcescrow/core/types"
	"otcescrow/native/token"
	"otcescrow/storage"
)

var tokenProgramID = token.DefaultProgramID

type harness struct {
	t         *testing.T
	rt        *runtime.Runtime
	events    *events.Collector
	authority solana.PrivateKey

	mu    sync.Mutex
	nonce uint64
}

type party struct {
	key      solana.PrivateKey
	accounts map[solana.PublicKey]solana.PublicKey
}

func (p *party) pub() solana.PublicKey { return p.key.PublicKey() }

// account returns the party's token account for mint.
func (p *party) account(mint solana.PublicKey) solana.PublicKey { return p.accounts[mint] }

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	collector := &events.Collector{}
	rt := runtime.New(db, runtime.WithEmitter(collector))
	require.NoError(t, rt.Register(token.New(tokenProgramID)))
	require.NoError(t, rt.Register(New(DefaultProgramID, tokenProgramID)))
	h := &harness{t: t, rt: rt, events: collector}
	h.authority = h.key()
	return h
}

func (h *harness) key() solana.PrivateKey {
	h.t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(h.t, err)
	return key
}

func (h *harness) nextNonce() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nonce++
	return h.nonce
}

func (h *harness) tx(signers []solana.PrivateKey, ixs ...*types.Instruction) *types.Transaction {
	h.t.Helper()
	tx := &types.Transaction{Nonce: h.nextNonce(), Instructions: ixs}
	require.NoError(h.t, tx.Sign(signers...))
	return tx
}

func (h *harness) submit(signers []solana.PrivateKey, ixs ...*types.Instruction) error {
	h.t.Helper()
	_, err := h.rt.Submit(context.Background(), h.tx(signers, ixs...))
	return err
}

func (h *harness) mint() solana.PublicKey {
	h.t.Helper()
	mint := h.key()
	require.NoError(h.t, h.submit([]solana.PrivateKey{mint},
		token.NewInitializeMintInstruction(tokenProgramID, mint.PublicKey(), h.authority.PublicKey(), 0)))
	return mint.PublicKey()
}

func (h *harness) tokenAccount(mint, owner solana.PublicKey, amount uint64) solana.PublicKey {
	h.t.Helper()
	acc := h.key()
	require.NoError(h.t, h.submit([]solana.PrivateKey{acc},
		token.NewInitializeAccountInstruction(tokenProgramID, acc.PublicKey(), mint, owner, true)))
	if amount > 0 {
		require.NoError(h.t, h.submit([]solana.PrivateKey{h.authority},
			token.NewMintToInstruction(tokenProgramID, mint, acc.PublicKey(), h.authority.PublicKey(), amount)))
	}
	return acc.PublicKey()
}

// party creates a key holding one funded token account per entry of balances.
func (h *harness) party(balances map[solana.PublicKey]uint64) *party {
	h.t.Helper()
	p := &party{key: h.key(), accounts: make(map[solana.PublicKey]solana.PublicKey)}
	for mint, amount := range balances {
		p.accounts[mint] = h.tokenAccount(mint, p.pub(), amount)
	}
	return p
}

func (h *harness) balance(addr solana.PublicKey) uint64 {
	h.t.Helper()
	raw, err := h.rt.Account(addr)
	require.NoError(h.t, err)
	acc, err := token.LoadAccount(tokenProgramID, raw)
	require.NoError(h.t, err)
	return acc.Amount
}

func (h *harness) createIx(maker *party, offerMint, wantedMint solana.PublicKey, orderID, offer, wanted uint64) (*types.Instruction, solana.PublicKey) {
	h.t.Helper()
	ix, order, err := NewCreateOrderInstruction(CreateOrderParams{
		ProgramID:         DefaultProgramID,
		TokenProgramID:    tokenProgramID,
		Maker:             maker.pub(),
		MakerTokenAccount: maker.account(offerMint),
		OfferMint:         offerMint,
		Args: CreateOrderArgs{
			OrderID:      orderID,
			AmountOffer:  offer,
			TokenWanted:  wantedMint,
			AmountWanted: wanted,
		},
	})
	require.NoError(h.t, err)
	return ix, order
}

func (h *harness) createOrder(maker *party, offerMint, wantedMint solana.PublicKey, orderID, offer, wanted uint64) (solana.PublicKey, error) {
	h.t.Helper()
	ix, order := h.createIx(maker, offerMint, wantedMint, orderID, offer, wanted)
	return order, h.submit([]solana.PrivateKey{maker.key}, ix)
}

func (h *harness) executeIx(order solana.PublicKey, taker *party, takerToken, takerOffer, makerWanted solana.PublicKey) *types.Instruction {
	h.t.Helper()
	ix, err := NewExecuteOrderInstruction(ExecuteOrderParams{
		ProgramID:          DefaultProgramID,
		TokenProgramID:     tokenProgramID,
		Order:              order,
		Taker:              taker.pub(),
		TakerTokenAccount:  takerToken,
		TakerOfferAccount:  takerOffer,
		MakerWantedAccount: makerWanted,
	})
	require.NoError(h.t, err)
	return ix
}

func (h *harness) execute(order solana.PublicKey, taker *party, takerToken, takerOffer, makerWanted solana.PublicKey) error {
	h.t.Helper()
	return h.submit([]solana.PrivateKey{taker.key}, h.executeIx(order, taker, takerToken, takerOffer, makerWanted))
}

func (h *harness) cancelIx(order solana.PublicKey, caller *party, destination solana.PublicKey) *types.Instruction {
	h.t.Helper()
	ix, err := NewCancelOrderInstruction(CancelOrderParams{
		ProgramID:         DefaultProgramID,
		TokenProgramID:    tokenProgramID,
		Order:             order,
		Maker:             caller.pub(),
		MakerTokenAccount: destination,
	})
	require.NoError(h.t, err)
	return ix
}

func (h *harness) cancel(order solana.PublicKey, caller *party, destination solana.PublicKey) error {
	h.t.Helper()
	return h.submit([]solana.PrivateKey{caller.key}, h.cancelIx(order, caller, destination))
}

func (h *harness) order(addr solana.PublicKey) *Order {
	h.t.Helper()
	order, err := GetOrder(h.rt, DefaultProgramID, addr)
	require.NoError(h.t, err)
	return order
}

func (h *harness) escrowBalance(order solana.PublicKey) uint64 {
	h.t.Helper()
	_, holding, err := GetEscrow(h.rt, DefaultProgramID, tokenProgramID, order)
	require.NoError(h.t, err)
	return holding.Amount
}
