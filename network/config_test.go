package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkPresets(t *testing.T) {
	tests := []struct {
		name    string
		network string
		url     string
		user    string
	}{
		{"regtest defaults", "regtest", "http://localhost:18332", "doginals"},
		{"testnet defaults", "testnet", "http://localhost:44555", "doginals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, ok := NetworkPresets[tt.network]
			require.True(t, ok, "preset should exist for %s", tt.network)
			assert.Equal(t, tt.url, preset.URL)
			assert.Equal(t, tt.user, preset.User)
		})
	}
}

func TestMainnetHasNoPreset(t *testing.T) {
	_, ok := NetworkPresets["mainnet"]
	assert.False(t, ok, "mainnet should not have a default preset")

	_, err := ResolveConfig(nil, nil, "mainnet")
	assert.Error(t, err)
}

func TestResolveConfigLayers(t *testing.T) {
	env := map[string]string{
		EnvRPCURL:  "http://env:22555",
		EnvRPCUser: "envuser",
		EnvRPCPass: "envpass",
	}

	t.Run("env over preset", func(t *testing.T) {
		cfg, err := ResolveConfig(nil, env, "regtest")
		require.NoError(t, err)
		assert.Equal(t, "http://env:22555", cfg.URL)
		assert.Equal(t, "envuser", cfg.User)
		assert.Equal(t, "envpass", cfg.Password)
		assert.Equal(t, "regtest", cfg.Network)
	})

	t.Run("flags over env", func(t *testing.T) {
		flags := &RPCConfig{URL: "http://flag:1", Timeout: 5 * time.Second}
		cfg, err := ResolveConfig(flags, env, "mainnet")
		require.NoError(t, err)
		assert.Equal(t, "http://flag:1", cfg.URL)
		assert.Equal(t, "envuser", cfg.User)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("empty env values ignored", func(t *testing.T) {
		cfg, err := ResolveConfig(nil, map[string]string{EnvRPCURL: ""}, "testnet")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:44555", cfg.URL)
	})
}
