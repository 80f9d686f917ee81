package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"otcescrow/native/otc"
)

type orderView struct {
	Address      string `json:"address"`
	Maker        string `json:"maker"`
	OrderID      uint64 `json:"orderId"`
	TokenOffer   string `json:"tokenOffer"`
	AmountOffer  uint64 `json:"amountOffer"`
	TokenWanted  string `json:"tokenWanted"`
	AmountWanted uint64 `json:"amountWanted"`
	Active       bool   `json:"active"`
	Escrow       string `json:"escrow"`
	Escrowed     uint64 `json:"escrowed"`
}

func runOrderCommand(env *cliEnv, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.stderr, usage())
		return 1
	}
	switch args[0] {
	case "create":
		return runOrderCreate(env, args[1:])
	case "execute":
		return runOrderExecute(env, args[1:])
	case "cancel":
		return runOrderCancel(env, args[1:])
	case "show":
		return runOrderShow(env, args[1:])
	default:
		fmt.Fprintf(env.stderr, "Unknown order subcommand: %s\n", args[0])
		fmt.Fprintln(env.stderr, usage())
		return 1
	}
}

func runOrderCreate(env *cliEnv, args []string) int {
	fs := newFlagSet("order create", env.stderr)
	var (
		makerPath    string
		orderID      uint64
		offerMintRaw string
		fromRaw      string
		amountOffer  uint64
		wantedRaw    string
		amountWanted uint64
	)
	fs.StringVar(&makerPath, "maker", "", "maker key file")
	fs.Uint64Var(&orderID, "order-id", 0, "order identifier, unique per maker")
	fs.StringVar(&offerMintRaw, "offer-mint", "", "mint of the offered token")
	fs.StringVar(&fromRaw, "from", "", "maker token account funding the offer")
	fs.Uint64Var(&amountOffer, "amount-offer", 0, "units offered")
	fs.StringVar(&wantedRaw, "wanted-mint", "", "mint of the wanted token")
	fs.Uint64Var(&amountWanted, "amount-wanted", 0, "units wanted")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	offerMint, err := parseAddress("offer-mint", offerMintRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	from, err := parseAddress("from", fromRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	wanted, err := parseAddress("wanted-mint", wantedRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	maker, err := a.loadKey(makerPath)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix, order, err := otc.NewCreateOrderInstruction(otc.CreateOrderParams{
		ProgramID:         a.programID,
		TokenProgramID:    a.tokenProgramID,
		Maker:             maker.PublicKey(),
		MakerTokenAccount: from,
		OfferMint:         offerMint,
		Args: otc.CreateOrderArgs{
			OrderID:      orderID,
			AmountOffer:  amountOffer,
			TokenWanted:  wanted,
			AmountWanted: amountWanted,
		},
	})
	if err != nil {
		return printFailure(env.stderr, err)
	}
	if _, err := a.submit(ctx, []solana.PrivateKey{maker}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	fmt.Fprintln(env.stdout, order.String())
	return 0
}

func runOrderExecute(env *cliEnv, args []string) int {
	fs := newFlagSet("order execute", env.stderr)
	var (
		takerPath  string
		orderRaw   string
		payFromRaw string
		receiveRaw string
		makerRaw   string
	)
	fs.StringVar(&takerPath, "taker", "", "taker key file")
	fs.StringVar(&orderRaw, "order", "", "order address")
	fs.StringVar(&payFromRaw, "pay-from", "", "taker account holding the wanted token")
	fs.StringVar(&receiveRaw, "receive-to", "", "taker account receiving the offered token")
	fs.StringVar(&makerRaw, "maker-account", "", "maker account receiving the wanted token")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	order, err := parseAddress("order", orderRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	payFrom, err := parseAddress("pay-from", payFromRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	receive, err := parseAddress("receive-to", receiveRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	makerAccount, err := parseAddress("maker-account", makerRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	taker, err := a.loadKey(takerPath)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix, err := otc.NewExecuteOrderInstruction(otc.ExecuteOrderParams{
		ProgramID:          a.programID,
		TokenProgramID:     a.tokenProgramID,
		Order:              order,
		Taker:              taker.PublicKey(),
		TakerTokenAccount:  payFrom,
		TakerOfferAccount:  receive,
		MakerWantedAccount: makerAccount,
	})
	if err != nil {
		return printFailure(env.stderr, err)
	}
	if _, err := a.submit(ctx, []solana.PrivateKey{taker}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	return 0
}

func runOrderCancel(env *cliEnv, args []string) int {
	fs := newFlagSet("order cancel", env.stderr)
	var (
		makerPath string
		orderRaw  string
		refundRaw string
	)
	fs.StringVar(&makerPath, "maker", "", "maker key file")
	fs.StringVar(&orderRaw, "order", "", "order address")
	fs.StringVar(&refundRaw, "refund-to", "", "maker account receiving the escrowed token")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	order, err := parseAddress("order", orderRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	refund, err := parseAddress("refund-to", refundRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	maker, err := a.loadKey(makerPath)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix, err := otc.NewCancelOrderInstruction(otc.CancelOrderParams{
		ProgramID:         a.programID,
		TokenProgramID:    a.tokenProgramID,
		Order:             order,
		Maker:             maker.PublicKey(),
		MakerTokenAccount: refund,
	})
	if err != nil {
		return printFailure(env.stderr, err)
	}
	if _, err := a.submit(ctx, []solana.PrivateKey{maker}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	return 0
}

func runOrderShow(env *cliEnv, args []string) int {
	fs := newFlagSet("order show", env.stderr)
	var (
		orderRaw string
		makerRaw string
		orderID  uint64
	)
	fs.StringVar(&orderRaw, "order", "", "order address")
	fs.StringVar(&makerRaw, "maker", "", "maker address, with --order-id")
	fs.Uint64Var(&orderID, "order-id", 0, "order identifier, with --maker")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}

	a, err := env.open(context.Background())
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()

	var (
		addr  solana.PublicKey
		order *otc.Order
	)
	if orderRaw != "" {
		if addr, err = parseAddress("order", orderRaw); err != nil {
			return printError(env.stderr, err.Error())
		}
		order, err = otc.GetOrder(a.rt, a.programID, addr)
	} else {
		maker, perr := parseAddress("maker", makerRaw)
		if perr != nil {
			return printError(env.stderr, "--order or --maker with --order-id is required")
		}
		addr, order, err = otc.GetOrderByID(a.rt, a.programID, maker, orderID)
	}
	if err != nil {
		return printFailure(env.stderr, err)
	}
	escrow, holding, err := otc.GetEscrow(a.rt, a.programID, a.tokenProgramID, addr)
	if err != nil {
		return printFailure(env.stderr, err)
	}

	view := orderView{
		Address:      addr.String(),
		Maker:        order.Maker.String(),
		OrderID:      order.OrderID,
		TokenOffer:   order.TokenOffer.String(),
		AmountOffer:  order.AmountOffer,
		TokenWanted:  order.TokenWanted.String(),
		AmountWanted: order.AmountWanted,
		Active:       order.IsActive,
		Escrow:       escrow.String(),
		Escrowed:     holding.Amount,
	}
	enc := json.NewEncoder(env.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return printFailure(env.stderr, err)
	}
	return 0
}
