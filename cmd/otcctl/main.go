package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"otcescrow/native/otc"
)

const defaultConfigPath = "otc.toml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("otcctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	configPath := fs.String("config", defaultConfigPath, "path to the TOML or YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	env := &cliEnv{configPath: *configPath, stdout: stdout, stderr: stderr}
	switch rest[0] {
	case "keygen":
		return runKeygen(env, rest[1:])
	case "mint":
		return runMintCommand(env, rest[1:])
	case "account":
		return runAccountCommand(env, rest[1:])
	case "balance":
		return runBalance(env, rest[1:])
	case "order":
		return runOrderCommand(env, rest[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: otcctl [--config path] <command> [flags]",
		"",
		"Commands:",
		"  keygen          --out <file> [--plain] [--light-kdf]",
		"  mint create     --authority <key> [--decimals n]",
		"  mint to         --authority <key> --mint <addr> --to <account> --amount <n>",
		"  account create  --mint <addr> (--owner <addr> | --owner-key <key>)",
		"  balance         --account <addr>",
		"  order create    --maker <key> --order-id <n> --offer-mint <addr> --from <account> --amount-offer <n> --wanted-mint <addr> --amount-wanted <n>",
		"  order execute   --taker <key> --order <addr> --pay-from <account> --receive-to <account> --maker-account <account>",
		"  order cancel    --maker <key> --order <addr> --refund-to <account>",
		"  order show      (--order <addr> | --maker <addr> --order-id <n>)",
	}, "\n")
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage())
	}
	return fs
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

// printFailure reports err, naming the program error code when the escrow
// program raised it.
func printFailure(w io.Writer, err error) int {
	if code, ok := otc.Code(err); ok {
		fmt.Fprintf(w, "Error: program error %d (%s): %v\n", code.Code, code.Name, err)
		return 1
	}
	return printError(w, err.Error())
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.New("unexpected positional arguments")
	}
	return nil
}
