package otc

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"otcescrow/core/types"
)

// DefaultProgramID is the address the escrow program is registered under
// unless configured otherwise.
var DefaultProgramID = solana.MustPublicKeyFromBase58("oTCEscrow1111111111111111111111111111111111")

var (
	createOrderDiscriminator  = bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, "create_order")
	executeOrderDiscriminator = bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, "execute_order")
	cancelOrderDiscriminator  = bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, "cancel_order")
)

// Account positions per instruction.
const (
	createOrderAccount = iota
	createMaker
	createMakerTokenAccount
	createOfferMint
	createEscrowAccount
	createTokenProgram
	createAccountCount
)

const (
	executeOrderAccount = iota
	executeTaker
	executeTakerTokenAccount
	executeTakerOfferAccount
	executeMakerWantedAccount
	executeEscrowAccount
	executeTokenProgram
	executeAccountCount
)

const (
	cancelOrderAccount = iota
	cancelMaker
	cancelMakerTokenAccount
	cancelEscrowAccount
	cancelTokenProgram
	cancelAccountCount
)

// CreateOrderArgs are the arguments of create_order.
type CreateOrderArgs struct {
	OrderID      uint64
	AmountOffer  uint64
	TokenWanted  solana.PublicKey
	AmountWanted uint64
}

const createOrderArgsSize = 8 + 8 + 32 + 8

func encodeInstruction(discriminator bin.TypeID, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("otc: encode instruction: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// CreateOrderParams names the accounts and terms of a new order.
type CreateOrderParams struct {
	ProgramID         solana.PublicKey
	TokenProgramID    solana.PublicKey
	Maker             solana.PublicKey
	MakerTokenAccount solana.PublicKey
	OfferMint         solana.PublicKey
	Args              CreateOrderArgs
}

// NewCreateOrderInstruction derives the order and holding addresses and
// builds the create_order instruction. It returns the order address too.
func NewCreateOrderInstruction(p CreateOrderParams) (*types.Instruction, solana.PublicKey, error) {
	order, _, err := FindOrderAddress(p.ProgramID, p.Maker, p.Args.OrderID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	escrow, _, err := FindEscrowAddress(p.ProgramID, order)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	data, err := encodeInstruction(createOrderDiscriminator, &p.Args)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return &types.Instruction{
		ProgramID: p.ProgramID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(order, true, false),
			solana.NewAccountMeta(p.Maker, true, true),
			solana.NewAccountMeta(p.MakerTokenAccount, true, false),
			solana.NewAccountMeta(p.OfferMint, false, false),
			solana.NewAccountMeta(escrow, true, false),
			solana.NewAccountMeta(p.TokenProgramID, false, false),
		},
		Data: data,
	}, order, nil
}

// ExecuteOrderParams names the accounts used to fill an order.
type ExecuteOrderParams struct {
	ProgramID          solana.PublicKey
	TokenProgramID     solana.PublicKey
	Order              solana.PublicKey
	Taker              solana.PublicKey
	TakerTokenAccount  solana.PublicKey
	TakerOfferAccount  solana.PublicKey
	MakerWantedAccount solana.PublicKey
}

// NewExecuteOrderInstruction builds execute_order for an existing order.
func NewExecuteOrderInstruction(p ExecuteOrderParams) (*types.Instruction, error) {
	escrow, _, err := FindEscrowAddress(p.ProgramID, p.Order)
	if err != nil {
		return nil, err
	}
	data, err := encodeInstruction(executeOrderDiscriminator, nil)
	if err != nil {
		return nil, err
	}
	return &types.Instruction{
		ProgramID: p.ProgramID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(p.Order, true, false),
			solana.NewAccountMeta(p.Taker, false, true),
			solana.NewAccountMeta(p.TakerTokenAccount, true, false),
			solana.NewAccountMeta(p.TakerOfferAccount, true, false),
			solana.NewAccountMeta(p.MakerWantedAccount, true, false),
			solana.NewAccountMeta(escrow, true, false),
			solana.NewAccountMeta(p.TokenProgramID, false, false),
		},
		Data: data,
	}, nil
}

// CancelOrderParams names the accounts used to cancel an order.
type CancelOrderParams struct {
	ProgramID         solana.PublicKey
	TokenProgramID    solana.PublicKey
	Order             solana.PublicKey
	Maker             solana.PublicKey
	MakerTokenAccount solana.PublicKey
}

// NewCancelOrderInstruction builds cancel_order for an existing order.
func NewCancelOrderInstruction(p CancelOrderParams) (*types.Instruction, error) {
	escrow, _, err := FindEscrowAddress(p.ProgramID, p.Order)
	if err != nil {
		return nil, err
	}
	data, err := encodeInstruction(cancelOrderDiscriminator, nil)
	if err != nil {
		return nil, err
	}
	return &types.Instruction{
		ProgramID: p.ProgramID,
		Accounts: solana.AccountMetaSlice{
			solana.NewAccountMeta(p.Order, true, false),
			solana.NewAccountMeta(p.Maker, false, true),
			solana.NewAccountMeta(p.MakerTokenAccount, true, false),
			solana.NewAccountMeta(escrow, true, false),
			solana.NewAccountMeta(p.TokenProgramID, false, false),
		},
		Data: data,
	}, nil
}
