// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"ListenAddr", cfg.ListenAddr, ":8080"},
		{"Network", cfg.Network, "mainnet"},
		{"LogLevel", cfg.Log.Level, "info"},
		{"LogFile", cfg.Log.File, ""},
		{"ChunkSize", cfg.Chain.ChunkSize, 520},
		{"MaxPayloadPerTx", cfg.Chain.MaxPayloadPerTx, 1500},
		{"Dust", cfg.Chain.Dust, uint64(100000)},
		{"FeeRate", cfg.Chain.FeeRate, uint64(1000000)},
		{"MaxInputsPerTx", cfg.Chain.MaxInputsPerTx, 10},
		{"MaxChainLength", cfg.Chain.MaxChainLength, 25},
		{"BroadcastDelay", cfg.Chain.BroadcastDelay, 2 * time.Second},
		{"TargetFiat", cfg.Reward.TargetFiat, 4.20},
		{"Pair", cfg.Reward.Pair, "DOGE/USD"},
		{"CacheTTL", cfg.Reward.CacheTTL, 5 * time.Minute},
		{"MaxStale", cfg.Reward.MaxStale, time.Hour},
		{"FallbackPrice", cfg.Reward.FallbackPrice, 0.27},
		{"Precision", cfg.Reward.Precision, 2},
		{"RetryAttempts", cfg.Retry.MaxAttempts, 3},
		{"RPCTimeout", cfg.RPC.Timeout, 30 * time.Second},
		{"RPCNetwork", cfg.RPC.Network, "mainnet"},
		{"PasswordEnv", cfg.Wallet.PasswordEnv, "DOGINALS_WALLET_PASSWORD"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
}

func TestConfigDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"

	if got := cfg.SeedPath(); got != filepath.Join("/data", "wallet.seed") {
		t.Errorf("SeedPath = %q", got)
	}
	cfg.Wallet.SeedFile = "/secure/seed"
	if got := cfg.SeedPath(); got != "/secure/seed" {
		t.Errorf("SeedPath with override = %q", got)
	}
	if got := cfg.JournalPath(); got != filepath.Join("/data", "jobs.db") {
		t.Errorf("JournalPath = %q", got)
	}
	if got := cfg.PayloadDir(); got != filepath.Join("/data", "payloads") {
		t.Errorf("PayloadDir = %q", got)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := DefaultConfig()
	original.DataDir = "/tmp/test-doginals"
	original.ListenAddr = ":9000"
	original.Network = "testnet"
	original.Log.Level = "debug"
	original.Log.File = "/tmp/doginals.log"
	original.Chain.MaxPayloadPerTx = 900
	original.Chain.BroadcastDelay = 500 * time.Millisecond
	original.Reward.TargetFiat = 6.9
	original.Wallet.Account = 2

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DataDir", loaded.DataDir, original.DataDir},
		{"ListenAddr", loaded.ListenAddr, original.ListenAddr},
		{"Network", loaded.Network, original.Network},
		{"LogLevel", loaded.Log.Level, original.Log.Level},
		{"LogFile", loaded.Log.File, original.Log.File},
		{"MaxPayloadPerTx", loaded.Chain.MaxPayloadPerTx, 900},
		{"BroadcastDelay", loaded.Chain.BroadcastDelay, 500 * time.Millisecond},
		{"TargetFiat", loaded.Reward.TargetFiat, 6.9},
		{"Account", loaded.Wallet.Account, uint32(2)},
		{"CacheTTL", loaded.Reward.CacheTTL, 5 * time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

func TestSaveConfig_OutputContainsSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# doginals configuration") {
		t.Error("saved config should start with the header comment")
	}
	keys := []string{"data_dir:", "listen_addr:", "network:", "log:", "rpc:", "wallet:",
		"chain:", "max_payload_per_tx:", "reward:", "target_fiat:", "retry:"}
	for _, key := range keys {
		if !strings.Contains(content, key) {
			t.Errorf("saved config should contain key %q", key)
		}
	}
	if !strings.Contains(content, "broadcast_delay: 2s") {
		t.Error("durations should be written in Go duration syntax")
	}
}

// ---------------------------------------------------------------------------
// LoadConfig tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("network: [unterminated\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig bad yaml: got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `# partial file
network: testnet

log:
  level: debug
chain:
  fee_rate: 2000000
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want %q", cfg.Network, "testnet")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Chain.FeeRate != 2000000 {
		t.Errorf("Chain.FeeRate = %d, want 2000000", cfg.Chain.FeeRate)
	}
	// Unset fields should retain defaults.
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want default %q", cfg.ListenAddr, ":8080")
	}
	if cfg.Chain.Dust != 100000 {
		t.Errorf("Chain.Dust = %d, want default 100000", cfg.Chain.Dust)
	}
	if cfg.Log.MaxSize != 100 {
		t.Errorf("Log.MaxSize = %d, want default 100", cfg.Log.MaxSize)
	}
}

func TestLoadConfigUnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := "futurekey: futurevalue\nnetwork: regtest\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig with unknown key: %v", err)
	}
	if cfg.Network != "regtest" {
		t.Errorf("Network = %q, want %q", cfg.Network, "regtest")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := "network: testnet\nrpc:\n  url: http://file:44555\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOGINALS_RPC_URL", "http://env:44555")
	t.Setenv("DOGINALS_RPC_PASS", "hunter2")
	t.Setenv("DOGINALS_CHAIN_MAX_PAYLOAD_PER_TX", "700")
	t.Setenv("DOGINALS_REWARD_TARGET_FIAT", "1.5")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.RPC.URL != "http://env:44555" {
		t.Errorf("RPC.URL = %q, want env override", cfg.RPC.URL)
	}
	if cfg.RPC.Password != "hunter2" {
		t.Errorf("RPC.Password = %q, want value of DOGINALS_RPC_PASS", cfg.RPC.Password)
	}
	if cfg.Chain.MaxPayloadPerTx != 700 {
		t.Errorf("Chain.MaxPayloadPerTx = %d, want 700", cfg.Chain.MaxPayloadPerTx)
	}
	if cfg.Reward.TargetFiat != 1.5 {
		t.Errorf("Reward.TargetFiat = %v, want 1.5", cfg.Reward.TargetFiat)
	}
	if cfg.RPC.Network != "testnet" {
		t.Errorf("RPC.Network = %q, want network inherited from top level", cfg.RPC.Network)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("network: testnet\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOGINALS_LISTEN_ADDR=:7070\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable process-wide; make sure it is cleared.
	t.Setenv("DOGINALS_LISTEN_ADDR", "")
	os.Unsetenv("DOGINALS_LISTEN_ADDR")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want value from .env", cfg.ListenAddr)
	}
}

func TestLoadConfig_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("cannot test permission denial as root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("network: testnet\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(path, 0600) })

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig on unreadable file: expected error, got nil")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("LoadConfig on unreadable file should not return ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"empty_datadir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"bad_network", func(c *Config) { c.Network = "devnet" }, ErrInvalidNetwork},
		{"empty_network", func(c *Config) { c.Network = "" }, ErrInvalidNetwork},
		{"bad_listen_addr", func(c *Config) { c.ListenAddr = "not-a-valid-addr" }, ErrInvalidListenAddr},
		{"empty_listen_addr", func(c *Config) { c.ListenAddr = "" }, ErrInvalidListenAddr},
		{"bad_loglevel", func(c *Config) { c.Log.Level = "verbose" }, ErrInvalidLogLevel},
		{"zero_chunk", func(c *Config) { c.Chain.ChunkSize = 0 }, ErrInvalidChain},
		{"oversized_chunk", func(c *Config) { c.Chain.ChunkSize = 521 }, ErrInvalidChain},
		{"negative_payload", func(c *Config) { c.Chain.MaxPayloadPerTx = -1 }, ErrInvalidChain},
		{"dust_below_relay", func(c *Config) { c.Chain.Dust = 1 }, ErrInvalidChain},
		{"negative_delay", func(c *Config) { c.Chain.BroadcastDelay = -time.Second }, ErrInvalidChain},
		{"zero_fiat", func(c *Config) { c.Reward.TargetFiat = 0 }, ErrInvalidReward},
		{"zero_fallback", func(c *Config) { c.Reward.FallbackPrice = 0 }, ErrInvalidReward},
		{"bad_precision", func(c *Config) { c.Reward.Precision = 9 }, ErrInvalidReward},
		{"bad_pair", func(c *Config) { c.Reward.Pair = "DOGEUSD" }, ErrInvalidReward},
		{"stale_shorter_than_ttl", func(c *Config) { c.Reward.MaxStale = time.Minute }, ErrInvalidReward},
		{"zero_attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidRetry},
		{"shrinking_backoff", func(c *Config) { c.Retry.Multiplier = 0.5 }, ErrInvalidRetry},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigValidNetworks(t *testing.T) {
	for _, network := range []string{"mainnet", "testnet", "regtest"} {
		cfg := DefaultConfig()
		cfg.Network = network
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("ValidateConfig with network %q: %v", network, err)
		}
	}
}

func TestValidateConfig_LogLevelCaseInsensitive(t *testing.T) {
	levels := []string{"INFO", "Debug", "WARN", "Error", "dEbUg"}
	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Log.Level = level
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with Log.Level %q: %v", level, err)
			}
		})
	}
}

func TestValidateConfig_ValidListenAddrVariants(t *testing.T) {
	addrs := []string{
		"127.0.0.1:80",
		"0.0.0.0:443",
		":8080",
		"localhost:3000",
		"[::1]:8080",
	}
	for _, addr := range addrs {
		t.Run(addr, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ListenAddr = addr
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with ListenAddr %q: %v", addr, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/.doginals")
	want := filepath.Join("/home/user/.doginals", "config.yaml")
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

func TestConfigPath_WithTrailingSlash(t *testing.T) {
	got := ConfigPath("/foo/")
	want := filepath.Join("/foo", "config.yaml")
	if got != want {
		t.Errorf("ConfigPath(%q) = %q, want %q", "/foo/", got, want)
	}
}

func TestDefaultDataDir_EndsWith_DotDoginals(t *testing.T) {
	dir := DefaultDataDir()
	if !strings.HasSuffix(dir, ".doginals") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".doginals")
	}
}
