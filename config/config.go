// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/doginals-go/chain"
	"github.com/bitfsorg/doginals-go/logging"
	"github.com/bitfsorg/doginals-go/network"
	"github.com/bitfsorg/doginals-go/retry"
	"github.com/bitfsorg/doginals-go/reward"
)

// EnvPrefix prefixes every environment override, so chain.fee_rate is
// read from DOGINALS_CHAIN_FEE_RATE.
const EnvPrefix = "DOGINALS"

// ConfigFileName is the file name used inside the data directory.
const ConfigFileName = "config.yaml"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all doginals configuration.
type Config struct {
	DataDir    string            `mapstructure:"data_dir" yaml:"data_dir"`
	ListenAddr string            `mapstructure:"listen_addr" yaml:"listen_addr"`
	Network    string            `mapstructure:"network" yaml:"network"`
	Log        logging.Config    `mapstructure:"log" yaml:"log"`
	RPC        network.RPCConfig `mapstructure:"rpc" yaml:"rpc"`
	Wallet     WalletConfig      `mapstructure:"wallet" yaml:"wallet"`
	Chain      ChainConfig       `mapstructure:"chain" yaml:"chain"`
	Reward     reward.Config     `mapstructure:"reward" yaml:"reward"`
	Retry      retry.Policy      `mapstructure:"retry" yaml:"retry"`
}

// WalletConfig locates the encrypted seed and the key account to fund from.
type WalletConfig struct {
	SeedFile    string `mapstructure:"seed_file" yaml:"seed_file"`
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"`
	Account     uint32 `mapstructure:"account" yaml:"account"`
}

// ChainConfig is the planner policy plus envelope chunking and pacing.
type ChainConfig struct {
	ChunkSize      int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	chain.Policy   `mapstructure:",squash" yaml:",inline"`
	BroadcastDelay time.Duration `mapstructure:"broadcast_delay" yaml:"broadcast_delay"`
}

// DefaultDataDir returns ~/.doginals, or .doginals when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".doginals"
	}
	return filepath.Join(home, ".doginals")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// SeedPath returns the seed file, defaulting to dataDir/wallet.seed.
func (c *Config) SeedPath() string {
	if c.Wallet.SeedFile != "" {
		return c.Wallet.SeedFile
	}
	return filepath.Join(c.DataDir, "wallet.seed")
}

// JournalPath returns the bolt database holding the job journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "jobs.db")
}

// PayloadDir returns the directory of the content-addressed payload store.
func (c *Config) PayloadDir() string {
	return filepath.Join(c.DataDir, "payloads")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	v := newViper()
	cfg, err := decode(v)
	if err != nil {
		// defaults.yaml is compiled in.
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults. A .env file
// next to it and DOGINALS_* environment variables take precedence over the
// file.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		// Load does not override variables already set.
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	v := newViper()
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# doginals configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultsYAML)); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("rpc.password", EnvPrefix+"_RPC_PASSWORD", network.EnvRPCPass)
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	if cfg.RPC.Network == "" {
		cfg.RPC.Network = cfg.Network
	}
	return cfg, nil
}
