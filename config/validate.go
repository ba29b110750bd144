// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bitfsorg/doginals-go/envelope"
	"github.com/bitfsorg/doginals-go/reward"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return ErrInvalidLogLevel
	}

	if err := validateChain(cfg.Chain); err != nil {
		return err
	}

	if err := validateReward(cfg.Reward); err != nil {
		return err
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidRetry)
	}
	if cfg.Retry.Multiplier != 0 && cfg.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier must be >= 1", ErrInvalidRetry)
	}

	return nil
}

func validateChain(c ChainConfig) error {
	if c.ChunkSize < 1 || c.ChunkSize > envelope.DefaultChunkSize {
		return fmt.Errorf("%w: chunk_size must be in [1, %d]", ErrInvalidChain, envelope.DefaultChunkSize)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}
	if c.BroadcastDelay < 0 {
		return fmt.Errorf("%w: broadcast_delay must not be negative", ErrInvalidChain)
	}
	return nil
}

func validateReward(r reward.Config) error {
	if r.TargetFiat <= 0 {
		return fmt.Errorf("%w: target_fiat must be positive", ErrInvalidReward)
	}
	if r.FallbackPrice <= 0 {
		return fmt.Errorf("%w: fallback_price must be positive", ErrInvalidReward)
	}
	if r.Precision < 0 || r.Precision > 8 {
		return fmt.Errorf("%w: precision must be in [0, 8]", ErrInvalidReward)
	}
	if _, err := reward.ParsePair(r.Pair); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReward, err)
	}
	if r.MaxStale < r.CacheTTL {
		return fmt.Errorf("%w: max_stale must not be shorter than cache_ttl", ErrInvalidReward)
	}
	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
