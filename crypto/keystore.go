package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/gagliardetto/solana-go"
)

const keystoreVersion = 3

var ErrAddressMismatch = errors.New("crypto: keystore address does not match key")

type keystoreFile struct {
	Address string              `json:"address"`
	Crypto  keystore.CryptoJSON `json:"crypto"`
	Version int                 `json:"version"`
}

// KDFParams selects the scrypt cost of a keystore.
type KDFParams struct {
	N int
	P int
}

var (
	StandardKDF = KDFParams{N: keystore.StandardScryptN, P: keystore.StandardScryptP}
	LightKDF    = KDFParams{N: keystore.LightScryptN, P: keystore.LightScryptP}
)

// SaveToKeystore encrypts the ed25519 seed of key into a v3 keystore file at
// path. Parent directories are created with 0700 permissions and the file is
// replaced atomically.
func SaveToKeystore(path string, key solana.PrivateKey, passphrase string, kdf KDFParams) error {
	if len(key) != ed25519.PrivateKeySize {
		return errors.New("crypto: invalid private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	seed := ed25519.PrivateKey(key).Seed()
	cryptoJSON, err := keystore.EncryptDataV3(seed, []byte(passphrase), kdf.N, kdf.P)
	if err != nil {
		return fmt.Errorf("crypto: encrypt keystore: %w", err)
	}
	raw, err := json.MarshalIndent(keystoreFile{
		Address: key.PublicKey().String(),
		Crypto:  cryptoJSON,
		Version: keystoreVersion,
	}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "keystore-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts a v3 keystore file using the supplied passphrase.
func LoadFromKeystore(path, passphrase string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decryptKeystore(raw, passphrase)
}

func decryptKeystore(raw []byte, passphrase string) (solana.PrivateKey, error) {
	var file keystoreFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("crypto: parse keystore: %w", err)
	}
	if file.Version != keystoreVersion {
		return nil, fmt.Errorf("crypto: unsupported keystore version %d", file.Version)
	}
	seed, err := keystore.DecryptDataV3(file.Crypto, passphrase)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("crypto: keystore holds no ed25519 seed")
	}
	key := solana.PrivateKey(ed25519.NewKeyFromSeed(seed))
	if file.Address != "" && file.Address != key.PublicKey().String() {
		return nil, ErrAddressMismatch
	}
	return key, nil
}
