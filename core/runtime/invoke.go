package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

// InvokeContext is the view a program gets of the ledger while processing one
// instruction. Every read or write must name an account the instruction
// declared.
type InvokeContext struct {
	ctx      context.Context
	rt       *Runtime
	state    stateAccess
	program  solana.PublicKey
	accounts solana.AccountMetaSlice
	signers  map[solana.PublicKey]struct{}
	depth    int
	events   *[]*types.Event
}

type stateAccess interface {
	GetAccount(addr solana.PublicKey) (*types.Account, error)
	Exists(addr solana.PublicKey) (bool, error)
	CreateAccount(addr solana.PublicKey, acc *types.Account) error
	PutAccount(addr solana.PublicKey, acc *types.Account) error
}

// Context returns the context of the enclosing Submit call.
func (c *InvokeContext) Context() context.Context { return c.ctx }

// ProgramID returns the program currently executing.
func (c *InvokeContext) ProgramID() solana.PublicKey { return c.program }

// Accounts returns the account metas declared for the instruction.
func (c *InvokeContext) Accounts() solana.AccountMetaSlice { return c.accounts }

// Logger returns the runtime logger scoped to the executing program.
func (c *InvokeContext) Logger() *slog.Logger {
	return c.rt.logger.With(slog.String("program", c.program.String()))
}

// Account returns the i-th declared account meta.
func (c *InvokeContext) Account(i int) (*solana.AccountMeta, error) {
	if i < 0 || i >= len(c.accounts) {
		return nil, fmt.Errorf("%w: need index %d, have %d", ErrNotEnoughAccounts, i, len(c.accounts))
	}
	return c.accounts[i], nil
}

func (c *InvokeContext) meta(addr solana.PublicKey) (*solana.AccountMeta, bool) {
	for _, meta := range c.accounts {
		if meta.PublicKey.Equals(addr) {
			return meta, true
		}
	}
	return nil, false
}

func (c *InvokeContext) writable(addr solana.PublicKey) error {
	meta, ok := c.meta(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	if !meta.IsWritable {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, addr)
	}
	return nil
}

// IsSigner reports whether addr signed the instruction, either directly or as
// a derived address proven by the calling program's seeds.
func (c *InvokeContext) IsSigner(addr solana.PublicKey) bool {
	meta, ok := c.meta(addr)
	if !ok || !meta.IsSigner {
		return false
	}
	_, ok = c.signers[addr]
	return ok
}

// Load returns a copy of a declared account.
func (c *InvokeContext) Load(addr solana.PublicKey) (*types.Account, error) {
	if _, ok := c.meta(addr); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	return c.state.GetAccount(addr)
}

// Exists reports whether a declared account has been created.
func (c *InvokeContext) Exists(addr solana.PublicKey) (bool, error) {
	if _, ok := c.meta(addr); !ok {
		return false, fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	return c.state.Exists(addr)
}

// CreateAccount creates addr with the given owner and initial data. The new
// address must either sign the instruction or, when seeds are supplied, be
// exactly the address those seeds derive under the executing program. The
// call fails if the account already exists.
func (c *InvokeContext) CreateAccount(addr, owner solana.PublicKey, data []byte, seeds [][]byte) error {
	if err := c.writable(addr); err != nil {
		return err
	}
	if seeds != nil {
		derived, err := solana.CreateProgramAddress(seeds, c.program)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		if !derived.Equals(addr) {
			return fmt.Errorf("%w: derived %s, want %s", ErrInvalidSeeds, derived, addr)
		}
	} else if !c.IsSigner(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return c.state.CreateAccount(addr, &types.Account{Owner: owner, Data: append([]byte(nil), data...)})
}

// Store replaces the data of an account owned by the executing program.
func (c *InvokeContext) Store(addr solana.PublicKey, data []byte) error {
	if err := c.writable(addr); err != nil {
		return err
	}
	acc, err := c.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !acc.OwnedBy(c.program) {
		return fmt.Errorf("%w: %s owned by %s", ErrIllegalOwner, addr, acc.Owner)
	}
	acc.Data = append([]byte(nil), data...)
	return c.state.PutAccount(addr, acc)
}

// Emit buffers an event. Buffered events are published only if the whole
// transaction commits.
func (c *InvokeContext) Emit(evt *types.Event) {
	if evt == nil || c.events == nil {
		return
	}
	*c.events = append(*c.events, evt)
}

// Invoke calls another program with the signer privileges of this instruction.
func (c *InvokeContext) Invoke(ix *types.Instruction) error {
	return c.InvokeSigned(ix)
}

// InvokeSigned calls another program. Each entry of signerSeeds is the full
// seed list (bump included) of an address derived from the executing
// program; the runtime recomputes every address and grants it signer status
// for the nested call only.
func (c *InvokeContext) InvokeSigned(ix *types.Instruction, signerSeeds ...[][]byte) error {
	if ix == nil {
		return fmt.Errorf("runtime: nil instruction")
	}
	if c.depth+1 > maxInvokeDepth {
		return ErrCallDepth
	}
	signers := make(map[solana.PublicKey]struct{}, len(c.accounts)+len(signerSeeds))
	for _, meta := range c.accounts {
		if c.IsSigner(meta.PublicKey) {
			signers[meta.PublicKey] = struct{}{}
		}
	}
	for _, seeds := range signerSeeds {
		derived, err := solana.CreateProgramAddress(seeds, c.program)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		signers[derived] = struct{}{}
	}
	for _, meta := range ix.Accounts {
		if meta == nil {
			return fmt.Errorf("runtime: nil account meta")
		}
		outer, ok := c.meta(meta.PublicKey)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUndeclaredAccount, meta.PublicKey)
		}
		if meta.IsWritable && !outer.IsWritable {
			return fmt.Errorf("%w: %s is read-only", ErrPrivilegeEscalation, meta.PublicKey)
		}
	}
	nested := &InvokeContext{
		ctx:      c.ctx,
		rt:       c.rt,
		state:    c.state,
		program:  ix.ProgramID,
		accounts: ix.Accounts,
		signers:  signers,
		depth:    c.depth + 1,
		events:   c.events,
	}
	return c.rt.execute(nested, ix)
}
