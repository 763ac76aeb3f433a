package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
)

// Config carries the on-chain protocol parameters loaded at process start.
// Values are TOML so operators can diff parameter changes in review.
type Config struct {
	Lending LendingConfig `toml:"lending"`
	Swap    SwapConfig    `toml:"swap"`
}

// LendingConfig parameterises the lending engine.
type LendingConfig struct {
	CloseFactorBps uint64 `toml:"CloseFactorBps"`
}

// SwapConfig parameterises the swap router defaults.
type SwapConfig struct {
	DefaultSlippageBps uint64   `toml:"DefaultSlippageBps"`
	MaxSlippageBps     uint64   `toml:"MaxSlippageBps"`
	SwapEnabled        bool     `toml:"SwapEnabled"`
	LiquidityEnabled   bool     `toml:"LiquidityEnabled"`
	AutoSwapThreshold  *big.Int `toml:"AutoSwapThreshold"`
}

// Default returns the protocol parameters shipped with the reference
// deployment.
func Default() *Config {
	return &Config{
		Lending: LendingConfig{CloseFactorBps: 5_000},
		Swap: SwapConfig{
			DefaultSlippageBps: 100,
			MaxSlippageBps:     1_000,
			SwapEnabled:        true,
			LiquidityEnabled:   true,
			AutoSwapThreshold:  big.NewInt(10_000),
		},
	}
}

// Load reads the parameter file at path, falling back to defaults when the
// file does not exist, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects parameter combinations the engines cannot honour.
func (c *Config) Validate() error {
	if c.Lending.CloseFactorBps == 0 || c.Lending.CloseFactorBps > 10_000 {
		return fmt.Errorf("lending.CloseFactorBps must be in (0, 10000], got %d", c.Lending.CloseFactorBps)
	}
	if c.Swap.MaxSlippageBps >= 10_000 {
		return fmt.Errorf("swap.MaxSlippageBps must be below 10000, got %d", c.Swap.MaxSlippageBps)
	}
	if c.Swap.DefaultSlippageBps > c.Swap.MaxSlippageBps {
		return fmt.Errorf("swap.DefaultSlippageBps %d exceeds swap.MaxSlippageBps %d",
			c.Swap.DefaultSlippageBps, c.Swap.MaxSlippageBps)
	}
	if c.Swap.AutoSwapThreshold != nil && c.Swap.AutoSwapThreshold.Sign() < 0 {
		return fmt.Errorf("swap.AutoSwapThreshold must not be negative")
	}
	return nil
}
