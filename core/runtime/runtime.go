package runtime

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"otcescrow/core/events"
	"otcescrow/core/state"
	"otcescrow/core/types"
	"otcescrow/observability"
	"otcescrow/storage"
)

const maxInvokeDepth = 4

// Program is on-ledger logic addressed by its ID. Process receives the raw
// instruction data and the accounts declared for it.
type Program interface {
	ID() solana.PublicKey
	Name() string
	Process(ctx *InvokeContext, data []byte) error
}

// Runtime executes transactions against a storage backend. Every transaction
// runs inside one storage write transaction, so it either fully applies or
// leaves no trace, and conflicting transactions are serialised by the
// backend's single-writer discipline.
type Runtime struct {
	db       storage.Database
	mu       sync.RWMutex
	programs map[solana.PublicKey]Program
	emitter  events.Emitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option customises a Runtime.
type Option func(*Runtime)

// WithEmitter configures where committed events are published.
func WithEmitter(emitter events.Emitter) Option {
	return func(r *Runtime) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

// WithLogger configures the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a runtime over db with no programs registered.
func New(db storage.Database, opts ...Option) *Runtime {
	r := &Runtime{
		db:       db,
		programs: make(map[solana.PublicKey]Program),
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("otcescrow/core/runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "runtime"))
	return r
}

// Register makes a program invocable.
func (r *Runtime) Register(p Program) error {
	if p == nil {
		return fmt.Errorf("runtime: nil program")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[p.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrProgramRegistered, p.ID())
	}
	r.programs[p.ID()] = p
	return nil
}

func (r *Runtime) program(id solana.PublicKey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// Submit verifies, executes and commits tx. On any error no state changes and
// no events are published.
func (r *Runtime) Submit(ctx context.Context, tx *types.Transaction) (receipt *types.Receipt, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "runtime.Submit")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.Runtime().ObserveTransaction(err, time.Since(start))
	}()

	id, err := tx.ID()
	if err != nil {
		return nil, err
	}
	txID := hex.EncodeToString(id[:])
	span.SetAttributes(
		attribute.String("tx.id", txID),
		attribute.Int("tx.instructions", len(tx.Instructions)),
	)
	signers, err := tx.VerifySignatures()
	if err != nil {
		return nil, err
	}

	var emitted []*types.Event
	err = r.db.Update(func(txn storage.Txn) error {
		mgr := state.NewManager(txn)
		if err := mgr.MarkProcessed(id); err != nil {
			return err
		}
		for i, ix := range tx.Instructions {
			if err := ctx.Err(); err != nil {
				return err
			}
			invoke := &InvokeContext{
				ctx:      ctx,
				rt:       r,
				state:    mgr,
				program:  ix.ProgramID,
				accounts: ix.Accounts,
				signers:  signers,
				events:   &emitted,
			}
			if err := r.execute(invoke, ix); err != nil {
				return fmt.Errorf("instruction %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("transaction rejected", slog.String("tx", txID), slog.String("error", err.Error()))
		return nil, err
	}

	for _, evt := range emitted {
		r.emitter.Emit(evt)
		observability.Events().RecordEvent(evt.Type)
	}
	r.logger.Debug("transaction committed", slog.String("tx", txID), slog.Int("events", len(emitted)))
	return &types.Receipt{ID: id, Events: emitted}, nil
}

func (r *Runtime) execute(invoke *InvokeContext, ix *types.Instruction) error {
	if ix == nil {
		return fmt.Errorf("runtime: nil instruction")
	}
	program, ok := r.program(ix.ProgramID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID)
	}
	for _, meta := range ix.Accounts {
		if meta == nil {
			return fmt.Errorf("runtime: nil account meta")
		}
		if !meta.IsSigner {
			continue
		}
		if _, ok := invoke.signers[meta.PublicKey]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingSignature, meta.PublicKey)
		}
	}
	err := program.Process(invoke, ix.Data)
	observability.Runtime().ObserveInstruction(program.Name(), err)
	return err
}

// View runs fn against a read-only snapshot of the ledger.
func (r *Runtime) View(fn func(*state.Manager) error) error {
	return r.db.View(func(reader storage.Reader) error {
		return fn(state.NewReader(reader))
	})
}

// Account returns a copy of the account stored at addr.
func (r *Runtime) Account(addr solana.PublicKey) (*types.Account, error) {
	var out *types.Account
	err := r.View(func(mgr *state.Manager) error {
		acc, err := mgr.GetAccount(addr)
		out = acc
		return err
	})
	return out, err
}
