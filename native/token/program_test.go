package token

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"otcescrow/core/events"
	"otcescrow/core/runtime"
	"otcescrow/core/types"
	"otcescrow/storage"
)

type ledger struct {
	t      *testing.T
	rt     *runtime.Runtime
	events *events.Collector
	nonce  uint64
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	collector := &events.Collector{}
	rt := runtime.New(db, runtime.WithEmitter(collector))
	require.NoError(t, rt.Register(New(DefaultProgramID)))
	return &ledger{t: t, rt: rt, events: collector}
}

func (l *ledger) submit(signers []solana.PrivateKey, ixs ...*types.Instruction) error {
	l.t.Helper()
	l.nonce++
	tx := &types.Transaction{Nonce: l.nonce, Instructions: ixs}
	require.NoError(l.t, tx.Sign(signers...))
	_, err := l.rt.Submit(context.Background(), tx)
	return err
}

func (l *ledger) key() solana.PrivateKey {
	l.t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(l.t, err)
	return key
}

func (l *ledger) mint(authority solana.PrivateKey) solana.PublicKey {
	l.t.Helper()
	mint := l.key()
	require.NoError(l.t, l.submit([]solana.PrivateKey{mint, authority},
		NewInitializeMintInstruction(DefaultProgramID, mint.PublicKey(), authority.PublicKey(), 6)))
	return mint.PublicKey()
}

func (l *ledger) account(mint, owner solana.PublicKey) solana.PublicKey {
	l.t.Helper()
	acc := l.key()
	require.NoError(l.t, l.submit([]solana.PrivateKey{acc},
		NewInitializeAccountInstruction(DefaultProgramID, acc.PublicKey(), mint, owner, true)))
	return acc.PublicKey()
}

func (l *ledger) balance(addr solana.PublicKey) uint64 {
	l.t.Helper()
	raw, err := l.rt.Account(addr)
	require.NoError(l.t, err)
	acc, err := LoadAccount(DefaultProgramID, raw)
	require.NoError(l.t, err)
	return acc.Amount
}

func TestMintToAndTransfer(t *testing.T) {
	l := newLedger(t)
	authority := l.key()
	alice := l.key()
	bob := l.key()

	mint := l.mint(authority)
	aliceAcc := l.account(mint, alice.PublicKey())
	bobAcc := l.account(mint, bob.PublicKey())

	require.NoError(t, l.submit([]solana.PrivateKey{authority},
		NewMintToInstruction(DefaultProgramID, mint, aliceAcc, authority.PublicKey(), 1_000)))
	require.NoError(t, l.submit([]solana.PrivateKey{alice},
		NewTransferInstruction(DefaultProgramID, aliceAcc, bobAcc, alice.PublicKey(), 400)))

	require.Equal(t, uint64(600), l.balance(aliceAcc))
	require.Equal(t, uint64(400), l.balance(bobAcc))

	raw, err := l.rt.Account(mint)
	require.NoError(t, err)
	m, err := LoadMint(DefaultProgramID, raw)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), m.Supply)
	require.Equal(t, uint8(6), m.Decimals)

	transfers := l.events.OfType(events.TypeTransfer)
	require.Len(t, transfers, 1)
	evt := transfers[0].(*types.Event)
	require.Equal(t, "400", evt.Attributes["amount"])
	require.Len(t, l.events.OfType(TypeMintTo), 1)
}

func TestTransferRejections(t *testing.T) {
	l := newLedger(t)
	authority := l.key()
	alice := l.key()
	bob := l.key()

	mintA := l.mint(authority)
	mintB := l.mint(authority)
	aliceA := l.account(mintA, alice.PublicKey())
	bobA := l.account(mintA, bob.PublicKey())
	bobB := l.account(mintB, bob.PublicKey())
	require.NoError(t, l.submit([]solana.PrivateKey{authority},
		NewMintToInstruction(DefaultProgramID, mintA, aliceA, authority.PublicKey(), 100)))

	cases := []struct {
		name    string
		ix      *types.Instruction
		signers []solana.PrivateKey
		err     error
	}{
		{"mint mismatch", NewTransferInstruction(DefaultProgramID, aliceA, bobB, alice.PublicKey(), 1), []solana.PrivateKey{alice}, ErrMintMismatch},
		{"wrong owner", NewTransferInstruction(DefaultProgramID, aliceA, bobA, bob.PublicKey(), 1), []solana.PrivateKey{bob}, ErrOwnerMismatch},
		{"insufficient", NewTransferInstruction(DefaultProgramID, aliceA, bobA, alice.PublicKey(), 101), []solana.PrivateKey{alice}, ErrInsufficientFunds},
		{"unsigned", NewTransferInstruction(DefaultProgramID, aliceA, bobA, alice.PublicKey(), 1), nil, runtime.ErrMissingSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, l.submit(tc.signers, tc.ix), tc.err)
			require.Equal(t, uint64(100), l.balance(aliceA))
			require.Zero(t, l.balance(bobA))
		})
	}
}

func TestSelfTransferKeepsBalance(t *testing.T) {
	l := newLedger(t)
	authority := l.key()
	alice := l.key()
	mint := l.mint(authority)
	acc := l.account(mint, alice.PublicKey())
	require.NoError(t, l.submit([]solana.PrivateKey{authority},
		NewMintToInstruction(DefaultProgramID, mint, acc, authority.PublicKey(), 50)))

	require.NoError(t, l.submit([]solana.PrivateKey{alice},
		NewTransferInstruction(DefaultProgramID, acc, acc, alice.PublicKey(), 50)))
	require.Equal(t, uint64(50), l.balance(acc))
}

func TestMintToGuards(t *testing.T) {
	l := newLedger(t)
	authority := l.key()
	impostor := l.key()
	alice := l.key()
	mint := l.mint(authority)
	acc := l.account(mint, alice.PublicKey())

	err := l.submit([]solana.PrivateKey{impostor},
		NewMintToInstruction(DefaultProgramID, mint, acc, impostor.PublicKey(), 1))
	require.ErrorIs(t, err, ErrMintAuthority)

	require.NoError(t, l.submit([]solana.PrivateKey{authority},
		NewMintToInstruction(DefaultProgramID, mint, acc, authority.PublicKey(), math.MaxUint64)))
	err = l.submit([]solana.PrivateKey{authority},
		NewMintToInstruction(DefaultProgramID, mint, acc, authority.PublicKey(), 1))
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, uint64(math.MaxUint64), l.balance(acc))
}

func TestInitializeAccountTwiceFails(t *testing.T) {
	l := newLedger(t)
	authority := l.key()
	mint := l.mint(authority)
	acc := l.key()
	ix := NewInitializeAccountInstruction(DefaultProgramID, acc.PublicKey(), mint, authority.PublicKey(), true)
	require.NoError(t, l.submit([]solana.PrivateKey{acc}, ix))
	require.Error(t, l.submit([]solana.PrivateKey{acc}, ix))
}

func TestInitializeAccountRequiresMint(t *testing.T) {
	l := newLedger(t)
	acc := l.key()
	notMint := l.key().PublicKey()
	err := l.submit([]solana.PrivateKey{acc},
		NewInitializeAccountInstruction(DefaultProgramID, acc.PublicKey(), notMint, acc.PublicKey(), true))
	require.Error(t, err)
	_, err = l.rt.Account(acc.PublicKey())
	require.Error(t, err)
}

func TestProcessRejectsMalformedData(t *testing.T) {
	l := newLedger(t)
	alice := l.key()
	for _, data := range [][]byte{nil, {InstructionTransfer, 1, 2}, {0xff}} {
		err := l.submit([]solana.PrivateKey{alice}, &types.Instruction{
			ProgramID: DefaultProgramID,
			Accounts:  solana.AccountMetaSlice{solana.NewAccountMeta(alice.PublicKey(), false, true)},
			Data:      data,
		})
		require.ErrorIs(t, err, ErrInvalidInstruction)
	}
}
