package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"otcescrow/core/events"
	"otcescrow/core/types"
	"otcescrow/storage"
)

var errBoom = errors.New("boom")

const (
	opCreateSigned byte = iota
	opCreateDerived
	opStore
	opStoreThenFail
	opNestedStore
	opNestedDerivedSigner
)

// boxProgram is a minimal program used to exercise the runtime contract.
type boxProgram struct{ id solana.PublicKey }

func (p *boxProgram) ID() solana.PublicKey { return p.id }
func (p *boxProgram) Name() string         { return "box" }

func (p *boxProgram) Process(ctx *InvokeContext, data []byte) error {
	if len(data) == 0 {
		return errors.New("box: empty instruction")
	}
	target, err := ctx.Account(0)
	if err != nil {
		return err
	}
	switch data[0] {
	case opCreateSigned:
		err = ctx.CreateAccount(target.PublicKey, p.id, data[1:], nil)
	case opCreateDerived:
		err = ctx.CreateAccount(target.PublicKey, p.id, nil, [][]byte{[]byte("box"), {data[1]}})
	case opStore:
		err = ctx.Store(target.PublicKey, data[1:])
	case opStoreThenFail:
		if err := ctx.Store(target.PublicKey, data[1:]); err != nil {
			return err
		}
		return errBoom
	case opNestedStore:
		err = ctx.Invoke(&types.Instruction{
			ProgramID: p.id,
			Accounts:  solana.AccountMetaSlice{solana.NewAccountMeta(target.PublicKey, true, false)},
			Data:      append([]byte{opStore}, data[1:]...),
		})
	case opNestedDerivedSigner:
		derived := ctx.Accounts()[1].PublicKey
		err = ctx.InvokeSigned(&types.Instruction{
			ProgramID: p.id,
			Accounts: solana.AccountMetaSlice{
				solana.NewAccountMeta(derived, true, true),
			},
			Data: []byte{opStore, 0x42},
		}, [][]byte{[]byte("box"), {data[1]}})
	default:
		return errors.New("box: unknown op")
	}
	if err != nil {
		return err
	}
	ctx.Emit(&types.Event{Type: "box.touched", Attributes: map[string]string{"account": target.PublicKey.String()}})
	return nil
}

type fixture struct {
	rt      *Runtime
	program *boxProgram
	events  *events.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	collector := &events.Collector{}
	rt := New(db, WithEmitter(collector))
	program := &boxProgram{id: solana.NewWallet().PublicKey()}
	require.NoError(t, rt.Register(program))
	return &fixture{rt: rt, program: program, events: collector}
}

func (f *fixture) ix(data []byte, metas ...*solana.AccountMeta) *types.Instruction {
	return &types.Instruction{ProgramID: f.program.id, Accounts: metas, Data: data}
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func submit(t *testing.T, f *fixture, nonce uint64, signers []solana.PrivateKey, ixs ...*types.Instruction) (*types.Receipt, error) {
	t.Helper()
	tx := &types.Transaction{Nonce: nonce, Instructions: ixs}
	require.NoError(t, tx.Sign(signers...))
	return f.rt.Submit(context.Background(), tx)
}

func TestSubmitCommitsAndEmits(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	addr := key.PublicKey()

	receipt, err := submit(t, f, 1, []solana.PrivateKey{key},
		f.ix([]byte{opCreateSigned, 0x01}, solana.NewAccountMeta(addr, true, true)))
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	require.Len(t, f.events.OfType("box.touched"), 1)

	acc, err := f.rt.Account(addr)
	require.NoError(t, err)
	require.True(t, acc.OwnedBy(f.program.id))
	require.Equal(t, []byte{0x01}, acc.Data)
}

func TestSubmitRollsBackEveryInstructionOnFailure(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	addr := key.PublicKey()
	_, err := submit(t, f, 1, []solana.PrivateKey{key},
		f.ix([]byte{opCreateSigned, 0x01}, solana.NewAccountMeta(addr, true, true)))
	require.NoError(t, err)

	_, err = submit(t, f, 2, nil,
		f.ix([]byte{opStore, 0x02}, solana.NewAccountMeta(addr, true, false)),
		f.ix([]byte{opStoreThenFail, 0x03}, solana.NewAccountMeta(addr, true, false)),
	)
	require.ErrorIs(t, err, errBoom)

	acc, err := f.rt.Account(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, acc.Data)
	require.Len(t, f.events.Events(), 1, "failed transactions must not publish events")
}

func TestSubmitRejectsReplay(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	tx := &types.Transaction{Nonce: 7, Instructions: []*types.Instruction{
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(key.PublicKey(), true, true)),
	}}
	require.NoError(t, tx.Sign(key))
	_, err := f.rt.Submit(context.Background(), tx)
	require.NoError(t, err)
	_, err = f.rt.Submit(context.Background(), tx)
	require.Error(t, err)
}

func TestSubmitRequiresDeclaredSignatures(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	_, err := submit(t, f, 1, nil,
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(key.PublicKey(), true, true)))
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestSubmitRejectsForgedSignature(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	other := newKey(t)
	tx := &types.Transaction{Nonce: 1, Instructions: []*types.Instruction{
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(key.PublicKey(), true, true)),
	}}
	require.NoError(t, tx.Sign(other))
	tx.Signatures[0].Signer = key.PublicKey()
	_, err := f.rt.Submit(context.Background(), tx)
	require.ErrorIs(t, err, types.ErrInvalidSignature)
}

func TestCreateAccountWithoutSignatureFails(t *testing.T) {
	f := newFixture(t)
	addr := newKey(t).PublicKey()
	_, err := submit(t, f, 1, nil,
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(addr, true, false)))
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestCreateDerivedAccount(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte("box")}, f.program.id)
	require.NoError(t, err)

	_, err = submit(t, f, 1, nil, f.ix([]byte{opCreateDerived, bump}, solana.NewAccountMeta(addr, true, false)))
	require.NoError(t, err)

	_, err = submit(t, f, 2, nil, f.ix([]byte{opCreateDerived, bump}, solana.NewAccountMeta(addr, true, false)))
	require.Error(t, err, "derived accounts cannot be created twice")
}

func TestCreateDerivedAccountWrongBumpFailsClosed(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte("box")}, f.program.id)
	require.NoError(t, err)

	_, err = submit(t, f, 1, nil, f.ix([]byte{opCreateDerived, bump - 1}, solana.NewAccountMeta(addr, true, false)))
	require.ErrorIs(t, err, ErrInvalidSeeds)

	_, err = f.rt.Account(addr)
	require.Error(t, err)
}

func TestStoreRequiresWritableDeclaration(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	addr := key.PublicKey()
	_, err := submit(t, f, 1, []solana.PrivateKey{key},
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(addr, true, true)))
	require.NoError(t, err)

	_, err = submit(t, f, 2, nil, f.ix([]byte{opStore, 0x09}, solana.NewAccountMeta(addr, false, false)))
	require.ErrorIs(t, err, ErrReadonlyAccount)
}

func TestStoreRejectsForeignOwner(t *testing.T) {
	f := newFixture(t)
	other := &boxProgram{id: solana.NewWallet().PublicKey()}
	require.NoError(t, f.rt.Register(other))

	key := newKey(t)
	addr := key.PublicKey()
	_, err := submit(t, f, 1, []solana.PrivateKey{key},
		&types.Instruction{ProgramID: other.id, Accounts: solana.AccountMetaSlice{solana.NewAccountMeta(addr, true, true)}, Data: []byte{opCreateSigned}})
	require.NoError(t, err)

	_, err = submit(t, f, 2, nil, f.ix([]byte{opStore, 0x01}, solana.NewAccountMeta(addr, true, false)))
	require.ErrorIs(t, err, ErrIllegalOwner)
}

func TestNestedInvokeCannotEscalateWritable(t *testing.T) {
	f := newFixture(t)
	key := newKey(t)
	addr := key.PublicKey()
	_, err := submit(t, f, 1, []solana.PrivateKey{key},
		f.ix([]byte{opCreateSigned}, solana.NewAccountMeta(addr, true, true)))
	require.NoError(t, err)

	_, err = submit(t, f, 2, nil, f.ix([]byte{opNestedStore, 0x05}, solana.NewAccountMeta(addr, false, false)))
	require.ErrorIs(t, err, ErrPrivilegeEscalation)

	_, err = submit(t, f, 3, nil, f.ix([]byte{opNestedStore, 0x05}, solana.NewAccountMeta(addr, true, false)))
	require.NoError(t, err)
	acc, err := f.rt.Account(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05}, acc.Data)
}

func TestNestedInvokeDerivedSigner(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte("box")}, f.program.id)
	require.NoError(t, err)
	_, err = submit(t, f, 1, nil, f.ix([]byte{opCreateDerived, bump}, solana.NewAccountMeta(addr, true, false)))
	require.NoError(t, err)

	payer := newKey(t)
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(payer.PublicKey(), false, true),
		solana.NewAccountMeta(addr, true, false),
	}
	_, err = submit(t, f, 2, []solana.PrivateKey{payer}, f.ix([]byte{opNestedDerivedSigner, bump - 1}, metas...))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrInvalidSeeds),
		"wrong bump must not confer signer status: %v", err)

	_, err = submit(t, f, 3, []solana.PrivateKey{payer}, f.ix([]byte{opNestedDerivedSigner, bump}, metas...))
	require.NoError(t, err)
	acc, err := f.rt.Account(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x42}, acc.Data)
}

func TestUnknownProgram(t *testing.T) {
	f := newFixture(t)
	_, err := submit(t, f, 1, nil, &types.Instruction{ProgramID: solana.NewWallet().PublicKey(), Data: []byte{0}})
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestRegisterTwiceFails(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.rt.Register(f.program), ErrProgramRegistered)
}
