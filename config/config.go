// Package config loads the service binary's configuration from an
// optional YAML file, with environment variables overriding any value
// present in the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for the scanner/API/submitter
// service.
type Config struct {
	// Preset names the capacity preset: "production" or "test".
	Preset string `yaml:"preset"`

	// BeaconURL is the beacon node's base URL.
	BeaconURL string `yaml:"beacon_url"`
	// PollInterval is how often the scanner polls the beacon node.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SlotsPerEpoch is the slot count the scanner uses to turn a
	// finalized epoch into a slot number; the preset's own value is not
	// consulted.
	SlotsPerEpoch uint64 `yaml:"slots_per_epoch"`

	// ListenAddr is the API server's bind address.
	ListenAddr string `yaml:"listen_addr"`
	// MaxSlotsBehind is the health-check threshold.
	MaxSlotsBehind uint64 `yaml:"max_slots_behind"`

	// RPCURL is the execution-layer RPC URL the submitter uses.
	RPCURL string `yaml:"rpc_url"`
	// ContractAddress is the consolidation-incentives contract address.
	ContractAddress string `yaml:"contract_address"`
	// PrivateKey is the hex-encoded signing key (no 0x prefix). Leave
	// empty to run the submitter read-only.
	PrivateKey string `yaml:"private_key"`
	// MaxGasPriceGwei caps the gas price the submitter will pay.
	MaxGasPriceGwei uint64 `yaml:"max_gas_price_gwei"`
	// Confirmations is how many confirmations to wait for after
	// submitting a claim (0 = don't wait).
	Confirmations uint64 `yaml:"confirmations"`
}

// Default returns the configuration the original service ships with:
// a local beacon node, a 5s poll interval, and a read-only submitter.
func Default() Config {
	return Config{
		Preset:          "production",
		BeaconURL:       "http://localhost:5052",
		PollInterval:    5 * time.Second,
		SlotsPerEpoch:   16,
		ListenAddr:      ":8080",
		MaxSlotsBehind:  64,
		MaxGasPriceGwei: 100,
		Confirmations:   1,
	}
}

// Load reads a YAML config file at path (if path is non-empty and the
// file exists), starting from Default(), then applies environment
// variable overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONSOLIDATION_PRESET"); v != "" {
		cfg.Preset = v
	}
	if v := os.Getenv("CONSOLIDATION_BEACON_URL"); v != "" {
		cfg.BeaconURL = v
	}
	if v := os.Getenv("CONSOLIDATION_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("CONSOLIDATION_SLOTS_PER_EPOCH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.SlotsPerEpoch = n
		}
	}
	if v := os.Getenv("CONSOLIDATION_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CONSOLIDATION_MAX_SLOTS_BEHIND"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MaxSlotsBehind = n
		}
	}
	if v := os.Getenv("CONSOLIDATION_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("CONSOLIDATION_CONTRACT_ADDRESS"); v != "" {
		cfg.ContractAddress = v
	}
	if v := os.Getenv("CONSOLIDATION_PRIVATE_KEY"); v != "" {
		cfg.PrivateKey = v
	}
	if v := os.Getenv("CONSOLIDATION_MAX_GAS_PRICE_GWEI"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MaxGasPriceGwei = n
		}
	}
	if v := os.Getenv("CONSOLIDATION_CONFIRMATIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Confirmations = n
		}
	}
}
