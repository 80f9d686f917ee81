package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/blake3"
)

var (
	// ErrInvalidSignature is returned when a signature does not verify over the
	// transaction message.
	ErrInvalidSignature = errors.New("types: invalid transaction signature")
	// ErrNoInstructions is returned for transactions with nothing to execute.
	ErrNoInstructions = errors.New("types: transaction has no instructions")
)

// Instruction is a single program invocation. Accounts lists every account the
// program may touch together with its writable/signer requirements.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  solana.AccountMetaSlice
	Data      []byte
}

// TxSignature pairs a signer with its ed25519 signature over the message.
type TxSignature struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

// Transaction groups instructions that execute atomically: either every
// instruction succeeds and all writes commit, or none of them take effect.
type Transaction struct {
	// Nonce distinguishes otherwise identical transactions; the runtime
	// refuses to process the same message twice.
	Nonce        uint64
	Instructions []*Instruction
	Signatures   []TxSignature
}

// Receipt describes a committed transaction.
type Receipt struct {
	ID     [32]byte
	Events []*Event
}

type messageMeta struct {
	Key      [32]byte
	Writable bool
	Signer   bool
}

type messageInstruction struct {
	Program  [32]byte
	Accounts []messageMeta
	Data     []byte
}

type message struct {
	Nonce        uint64
	Instructions []messageInstruction
}

// Message returns the canonical RLP encoding that signers commit to.
func (tx *Transaction) Message() ([]byte, error) {
	if tx == nil || len(tx.Instructions) == 0 {
		return nil, ErrNoInstructions
	}
	msg := message{Nonce: tx.Nonce, Instructions: make([]messageInstruction, 0, len(tx.Instructions))}
	for i, ix := range tx.Instructions {
		if ix == nil {
			return nil, fmt.Errorf("types: instruction %d is nil", i)
		}
		metas := make([]messageMeta, 0, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			if meta == nil {
				return nil, fmt.Errorf("types: instruction %d has nil account meta", i)
			}
			metas = append(metas, messageMeta{Key: meta.PublicKey, Writable: meta.IsWritable, Signer: meta.IsSigner})
		}
		msg.Instructions = append(msg.Instructions, messageInstruction{Program: ix.ProgramID, Accounts: metas, Data: ix.Data})
	}
	return rlp.EncodeToBytes(&msg)
}

// ID returns the blake3 digest of the message.
func (tx *Transaction) ID() ([32]byte, error) {
	msg, err := tx.Message()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(msg), nil
}

// Sign appends a signature for each key. Keys that already signed are skipped.
func (tx *Transaction) Sign(keys ...solana.PrivateKey) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	for _, key := range keys {
		signer := key.PublicKey()
		if tx.signedBy(signer) {
			continue
		}
		sig, err := key.Sign(msg)
		if err != nil {
			return fmt.Errorf("types: sign as %s: %w", signer, err)
		}
		tx.Signatures = append(tx.Signatures, TxSignature{Signer: signer, Signature: sig})
	}
	return nil
}

func (tx *Transaction) signedBy(pk solana.PublicKey) bool {
	for _, sig := range tx.Signatures {
		if sig.Signer.Equals(pk) {
			return true
		}
	}
	return false
}

// VerifySignatures checks every attached signature and returns the set of
// authenticated signers.
func (tx *Transaction) VerifySignatures() (map[solana.PublicKey]struct{}, error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	signers := make(map[solana.PublicKey]struct{}, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !sig.Signature.Verify(sig.Signer, msg) {
			return nil, fmt.Errorf("%w: signer %s", ErrInvalidSignature, sig.Signer)
		}
		signers[sig.Signer] = struct{}{}
	}
	return signers, nil
}
