package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"

	"otcescrow/cmd/internal/passphrase"
	"otcescrow/config"
	"otcescrow/core/runtime"
	"otcescrow/core/types"
	"otcescrow/crypto"
	"otcescrow/native/otc"
	"otcescrow/native/token"
	"otcescrow/observability/logging"
	telemetry "otcescrow/observability/otel"
	"otcescrow/storage"
)

const serviceName = "otcctl"

// nextNonce distinguishes otherwise identical transactions.
var nextNonce = func() uint64 { return uint64(time.Now().UnixNano()) }

type cliEnv struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

// app is an opened ledger with both programs registered.
type app struct {
	cfg            *config.Config
	logger         *slog.Logger
	db             storage.Database
	rt             *runtime.Runtime
	programID      solana.PublicKey
	tokenProgramID solana.PublicKey
	passphrase     *passphrase.Source
	closers        []func() error
}

func (env *cliEnv) loadConfig() (*config.Config, error) {
	return config.Load(env.configPath)
}

func (env *cliEnv) open(ctx context.Context) (*app, error) {
	cfg, err := env.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logCloser := logging.Setup(serviceName, cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Writer:     env.stderr,
	})
	a := &app{cfg: cfg, logger: logger, closers: []func() error{logCloser.Close}}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			Traces:      cfg.Telemetry.Traces,
			Metrics:     cfg.Telemetry.Metrics,
			Interval:    cfg.Telemetry.Interval.Duration,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(ctx)
		})
	}

	a.programID, a.tokenProgramID, err = cfg.Programs()
	if err != nil {
		a.close()
		return nil, err
	}
	db, err := storage.Open(cfg.Backend, ledgerPath(cfg))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() error { db.Close(); return nil })

	a.rt = runtime.New(db, runtime.WithLogger(logger))
	if err := a.rt.Register(token.New(a.tokenProgramID)); err != nil {
		a.close()
		return nil, err
	}
	if err := a.rt.Register(otc.New(a.programID, a.tokenProgramID)); err != nil {
		a.close()
		return nil, err
	}
	a.passphrase = passphrase.NewSource(cfg.KeystorePassphraseEnv, false)
	logger.Debug("ledger opened",
		slog.String("backend", cfg.Backend),
		logging.MaskField("data_dir", cfg.DataDir))
	return a, nil
}

func ledgerPath(cfg *config.Config) string {
	switch cfg.Backend {
	case storage.BackendBolt:
		return filepath.Join(cfg.DataDir, "ledger.db")
	default:
		return filepath.Join(cfg.DataDir, "ledger")
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("shutdown step failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// loadKey reads a keystore or keygen file, prompting for a passphrase only
// when the file is an encrypted keystore.
func (a *app) loadKey(path string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("key file required")
	}
	plain, err := crypto.IsKeygenFile(path)
	if err != nil {
		return nil, err
	}
	var pass string
	if !plain {
		if pass, err = a.passphrase.Get(); err != nil {
			return nil, err
		}
	}
	key, err := crypto.LoadKey(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", filepath.Base(path), err)
	}
	return key, nil
}

func (a *app) submit(ctx context.Context, signers []solana.PrivateKey, ixs ...*types.Instruction) (*types.Receipt, error) {
	tx := &types.Transaction{Nonce: nextNonce(), Instructions: ixs}
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	return a.rt.Submit(ctx, tx)
}

func parseAddress(flagName, raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", flagName)
	}
	addr, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--%s: %w", flagName, err)
	}
	return addr, nil
}
