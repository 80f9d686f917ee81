package main

import (
	"fmt"

	"otcescrow/cmd/internal/passphrase"
	"otcescrow/crypto"
)

func runKeygen(env *cliEnv, args []string) int {
	fs := newFlagSet("keygen", env.stderr)
	var (
		out      string
		plain    bool
		lightKDF bool
	)
	fs.StringVar(&out, "out", "", "file to write the new key to")
	fs.BoolVar(&plain, "plain", false, "write an unencrypted solana-keygen file")
	fs.BoolVar(&lightKDF, "light-kdf", false, "use cheaper scrypt parameters")
	if err := parseFlags(fs, args); err != nil {
		return printError(env.stderr, err.Error())
	}
	if out == "" {
		return printError(env.stderr, "--out is required")
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printFailure(env.stderr, err)
	}
	if plain {
		err = crypto.SaveKeygenFile(out, key)
	} else {
		cfg, cerr := env.loadConfig()
		if cerr != nil {
			return printFailure(env.stderr, cerr)
		}
		pass, perr := passphrase.NewSource(cfg.KeystorePassphraseEnv, true).Get()
		if perr != nil {
			return printFailure(env.stderr, perr)
		}
		kdf := crypto.StandardKDF
		if lightKDF {
			kdf = crypto.LightKDF
		}
		err = crypto.SaveToKeystore(out, key, pass, kdf)
	}
	if err != nil {
		return printFailure(env.stderr, err)
	}
	fmt.Fprintln(env.stdout, key.PublicKey().String())
	return 0
}
