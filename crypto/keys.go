package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

// GeneratePrivateKey returns a fresh ed25519 key.
func GeneratePrivateKey() (solana.PrivateKey, error) {
	return solana.NewRandomPrivateKey()
}

// SaveKeygenFile writes key in the solana-keygen JSON format (a plain byte
// array). The file is unencrypted and created with 0600 permissions.
func SaveKeygenFile(path string, key solana.PrivateKey) error {
	if len(key) != 64 {
		return errors.New("crypto: invalid private key")
	}
	if path == "" {
		return errors.New("crypto: empty key path")
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// IsKeygenFile reports whether path holds an unencrypted solana-keygen key
// rather than a keystore.
func IsKeygenFile(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return isKeygenJSON(raw), nil
}

func isKeygenJSON(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// LoadKey reads either an encrypted keystore or a solana-keygen file. The
// passphrase is only consulted for keystores.
func LoadKey(path, passphrase string) (solana.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isKeygenJSON(raw) {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("crypto: read keygen file: %w", err)
		}
		return key, nil
	}
	return decryptKeystore(raw, passphrase)
}
