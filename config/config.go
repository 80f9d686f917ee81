package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProgramID      = "oTCEscrow1111111111111111111111111111111111"
	DefaultTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	DefaultPassphraseEnv  = "OTC_KEYSTORE_PASSPHRASE"
)

type Config struct {
	DataDir               string          `toml:"DataDir" yaml:"data_dir"`
	Backend               string          `toml:"Backend" yaml:"backend"`
	Environment           string          `toml:"Environment" yaml:"environment"`
	ProgramID             string          `toml:"ProgramID" yaml:"program_id"`
	TokenProgramID        string          `toml:"TokenProgramID" yaml:"token_program_id"`
	KeystoreDir           string          `toml:"KeystoreDir" yaml:"keystore_dir"`
	KeystorePassphraseEnv string          `toml:"KeystorePassphraseEnv" yaml:"keystore_passphrase_env"`
	Log                   LogConfig       `toml:"Log" yaml:"log"`
	Telemetry             TelemetryConfig `toml:"Telemetry" yaml:"telemetry"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		DataDir:               "./otc-data",
		Backend:               "leveldb",
		Environment:           "dev",
		ProgramID:             DefaultProgramID,
		TokenProgramID:        DefaultTokenProgramID,
		KeystoreDir:           "./otc-data/keys",
		KeystorePassphraseEnv: DefaultPassphraseEnv,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Traces:   true,
			Metrics:  true,
			Interval: Duration{Duration: 15 * time.Second},
		},
	}
}

// Load loads the configuration from the given path. A missing TOML file is
// created with defaults; files ending in .yaml or .yml are parsed as YAML and
// must exist.
func Load(path string) (*Config, error) {
	yamlFile := isYAML(path)
	if _, err := os.Stat(path); os.IsNotExist(err) && !yamlFile {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	if yamlFile {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown field %s in %s", undecoded[0], path)
		}
	}

	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalise() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Environment = strings.TrimSpace(c.Environment)
	c.ProgramID = strings.TrimSpace(c.ProgramID)
	c.TokenProgramID = strings.TrimSpace(c.TokenProgramID)
	if c.ProgramID == "" {
		c.ProgramID = DefaultProgramID
	}
	if c.TokenProgramID == "" {
		c.TokenProgramID = DefaultTokenProgramID
	}
	if strings.TrimSpace(c.KeystorePassphraseEnv) == "" {
		c.KeystorePassphraseEnv = DefaultPassphraseEnv
	}
	if c.KeystoreDir == "" && c.DataDir != "" {
		c.KeystoreDir = filepath.Join(c.DataDir, "keys")
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
