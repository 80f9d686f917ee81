package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case "memory", "leveldb", "bolt":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Backend != "memory" && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required for %s backend", c.Backend)
	}
	programID, tokenProgramID, err := c.Programs()
	if err != nil {
		return err
	}
	if programID.Equals(tokenProgramID) {
		return fmt.Errorf("config: ProgramID and TokenProgramID must differ")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("config: log rotation limits must not be negative")
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("config: telemetry enabled without endpoint")
	}
	if c.Telemetry.Interval.Duration < 0 {
		return fmt.Errorf("config: telemetry interval must not be negative")
	}
	return nil
}

// Programs parses the configured program addresses.
func (c *Config) Programs() (programID, tokenProgramID solana.PublicKey, err error) {
	programID, err = solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return programID, tokenProgramID, fmt.Errorf("config: invalid ProgramID: %w", err)
	}
	tokenProgramID, err = solana.PublicKeyFromBase58(c.TokenProgramID)
	if err != nil {
		return programID, tokenProgramID, fmt.Errorf("config: invalid TokenProgramID: %w", err)
	}
	return programID, tokenProgramID, nil
}
