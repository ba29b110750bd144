package network

import (
	"fmt"
	"time"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string        `mapstructure:"url" yaml:"url" json:"url"`
	User     string        `mapstructure:"user" yaml:"user" json:"user"`
	Password string        `mapstructure:"password" yaml:"password" json:"-"`
	Network  string        `mapstructure:"network" yaml:"network,omitempty" json:"network"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty" json:"timeout"`
}

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "DOGINALS_RPC_URL"
	EnvRPCUser = "DOGINALS_RPC_USER"
	EnvRPCPass = "DOGINALS_RPC_PASS"
)

// NetworkPresets contains default RPC configurations for local Dogecoin
// Core nodes. Mainnet is intentionally omitted to require explicit configuration.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "doginals", Password: "doginals"},
	"testnet": {URL: "http://localhost:44555", User: "doginals", Password: "doginals"},
}

// ResolveConfig merges RPC configuration from three sources with decreasing priority:
//  1. CLI flags or config file (highest priority)
//  2. Environment variables (DOGINALS_RPC_URL, DOGINALS_RPC_USER, DOGINALS_RPC_PASS)
//  3. Network presets (lowest priority, regtest/testnet only)
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if env != nil {
		if v, ok := env[EnvRPCURL]; ok && v != "" {
			result.URL = v
		}
		if v, ok := env[EnvRPCUser]; ok && v != "" {
			result.User = v
		}
		if v, ok := env[EnvRPCPass]; ok && v != "" {
			result.Password = v
		}
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
		if flags.Timeout > 0 {
			result.Timeout = flags.Timeout
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit RPC configuration (set rpc.url, %s, or config file)", network, EnvRPCURL)
	}

	return &result, nil
}
