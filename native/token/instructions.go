package token

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

// Instruction tags follow the SPL token numbering.
const (
	InstructionInitializeMint    byte = 0
	InstructionInitializeAccount byte = 1
	InstructionTransfer          byte = 3
	InstructionMintTo            byte = 7
)

// DefaultProgramID is the address the token program is registered under
// unless configured otherwise.
var DefaultProgramID = solana.TokenProgramID

type initializeMintArgs struct {
	Decimals  uint8
	Authority solana.PublicKey
}

type initializeAccountArgs struct {
	Owner solana.PublicKey
}

type amountArgs struct {
	Amount uint64
}

func encode(tag byte, args interface{}) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(tag)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		// fixed-width argument structs cannot fail to encode
		panic(fmt.Sprintf("token: encode instruction %d: %v", tag, err))
	}
	return buf.Bytes()
}

func decode(data []byte, size int, out interface{}) error {
	if len(data) != size {
		return fmt.Errorf("%w: want %d argument bytes, got %d", ErrInvalidInstruction, size, len(data))
	}
	if err := bin.NewBorshDecoder(data).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	return nil
}

// NewInitializeMintInstruction creates and initialises mint. The mint key must
// sign the transaction.
func NewInitializeMintInstruction(programID, mint, authority solana.PublicKey, decimals uint8) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(mint, true, true),
		},
		Data: encode(InstructionInitializeMint, &initializeMintArgs{Decimals: decimals, Authority: authority}),
	}
}

// NewInitializeAccountInstruction creates a token account of mint held for
// owner. A fresh account key must sign; an account pre-created for the token
// program by another program is initialised in place.
func NewInitializeAccountInstruction(programID, account, mint, owner solana.PublicKey, signer bool) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(account, true, signer),
			solana.NewAccountMeta(mint, false, false),
		},
		Data: encode(InstructionInitializeAccount, &initializeAccountArgs{Owner: owner}),
	}
}

// NewMintToInstruction issues amount new units into destination.
func NewMintToInstruction(programID, mint, destination, authority solana.PublicKey, amount uint64) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(mint, true, false),
			solana.NewAccountMeta(destination, true, false),
			solana.NewAccountMeta(authority, false, true),
		},
		Data: encode(InstructionMintTo, &amountArgs{Amount: amount}),
	}
}

// NewTransferInstruction moves amount units from source to destination,
// authorised by the owner of source.
func NewTransferInstruction(programID, source, destination, authority solana.PublicKey, amount uint64) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(source, true, false),
			solana.NewAccountMeta(destination, true, false),
			solana.NewAccountMeta(authority, false, true),
		},
		Data: encode(InstructionTransfer, &amountArgs{Amount: amount}),
	}
}
