package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"otcescrow/crypto"
	"otcescrow/native/token"
)

func runMintCommand(env *cliEnv, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.stderr, usage())
		return 1
	}
	switch args[0] {
	case "create":
		return runMintCreate(env, args[1:])
	case "to":
		return runMintTo(env, args[1:])
	default:
		fmt.Fprintf(env.stderr, "Unknown mint subcommand: %s\n", args[0])
		return 1
	}
}

func runMintCreate(env *cliEnv, args []string) int {
	fs := newFlagSet("mint create", env.stderr)
	var (
		authorityPath string
		decimals      uint
	)
	fs.StringVar(&authorityPath, "authority", "", "key file of the mint authority")
	fs.UintVar(&decimals, "decimals", 6, "display decimals")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	if decimals > 255 {
		return printError(env.stderr, "--decimals must be <= 255")
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	authority, err := a.loadKey(authorityPath)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	mintKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix := token.NewInitializeMintInstruction(a.tokenProgramID, mintKey.PublicKey(), authority.PublicKey(), uint8(decimals))
	if _, err := a.submit(ctx, []solana.PrivateKey{mintKey}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	fmt.Fprintln(env.stdout, mintKey.PublicKey().String())
	return 0
}

func runMintTo(env *cliEnv, args []string) int {
	fs := newFlagSet("mint to", env.stderr)
	var (
		authorityPath string
		mintRaw       string
		toRaw         string
		amount        uint64
	)
	fs.StringVar(&authorityPath, "authority", "", "key file of the mint authority")
	fs.StringVar(&mintRaw, "mint", "", "mint address")
	fs.StringVar(&toRaw, "to", "", "destination token account")
	fs.Uint64Var(&amount, "amount", 0, "units to issue")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	mint, err := parseAddress("mint", mintRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	to, err := parseAddress("to", toRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	authority, err := a.loadKey(authorityPath)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix := token.NewMintToInstruction(a.tokenProgramID, mint, to, authority.PublicKey(), amount)
	if _, err := a.submit(ctx, []solana.PrivateKey{authority}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	return 0
}

func runAccountCommand(env *cliEnv, args []string) int {
	if len(args) == 0 || args[0] != "create" {
		fmt.Fprintln(env.stderr, usage())
		return 1
	}
	fs := newFlagSet("account create", env.stderr)
	var (
		mintRaw  string
		ownerRaw string
		ownerKey string
	)
	fs.StringVar(&mintRaw, "mint", "", "mint the account holds")
	fs.StringVar(&ownerRaw, "owner", "", "owner address")
	fs.StringVar(&ownerKey, "owner-key", "", "key file whose public key owns the account")
	if err := parseFlags(fs, args[1:]); err != nil {
		return printError(env.stderr, err.Error())
	}
	mint, err := parseAddress("mint", mintRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}
	if (ownerRaw == "") == (ownerKey == "") {
		return printError(env.stderr, "exactly one of --owner or --owner-key is required")
	}

	ctx := context.Background()
	a, err := env.open(ctx)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	var owner solana.PublicKey
	if ownerKey != "" {
		key, err := a.loadKey(ownerKey)
		if err != nil {
			return printFailure(env.stderr, err)
		}
		owner = key.PublicKey()
	} else if owner, err = parseAddress("owner", ownerRaw); err != nil {
		return printError(env.stderr, err.Error())
	}

	accountKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printFailure(env.stderr, err)
	}
	ix := token.NewInitializeAccountInstruction(a.tokenProgramID, accountKey.PublicKey(), mint, owner, true)
	if _, err := a.submit(ctx, []solana.PrivateKey{accountKey}, ix); err != nil {
		return printFailure(env.stderr, err)
	}
	fmt.Fprintln(env.stdout, accountKey.PublicKey().String())
	return 0
}

func runBalance(env *cliEnv, args []string) int {
	fs := newFlagSet("balance", env.stderr)
	var accountRaw string
	fs.StringVar(&accountRaw, "account", "", "token account address")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	addr, err := parseAddress("account", accountRaw)
	if err != nil {
		return printError(env.stderr, err.Error())
	}

	a, err := env.open(context.Background())
	if err != nil {
		return printFailure(env.stderr, err)
	}
	defer a.close()
	raw, err := a.rt.Account(addr)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	acc, err := token.LoadAccount(a.tokenProgramID, raw)
	if err != nil {
		return printFailure(env.stderr, err)
	}
	fmt.Fprintln(env.stdout, acc.Amount)
	return 0
}
