package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string            `yaml:"chain_id"`
	Alloc   map[string]uint64 `yaml:"alloc"` // pubkey hex → initial balance
}

// TLSConfig holds PEM paths for mutual-TLS P2P transport.
type TLSConfig struct {
	CACert   string `yaml:"ca_cert" env:"JANKEN_TLS_CA_CERT"`
	NodeCert string `yaml:"node_cert" env:"JANKEN_TLS_NODE_CERT"`
	NodeKey  string `yaml:"node_key" env:"JANKEN_TLS_NODE_KEY"`
}

// SeedPeer identifies a peer to dial at startup.
type SeedPeer struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config holds all node configuration. Values come from the YAML file first,
// then JANKEN_* environment variables override.
type Config struct {
	NodeID       string        `yaml:"node_id" env:"JANKEN_NODE_ID"`
	DataDir      string        `yaml:"data_dir" env:"JANKEN_DATA_DIR"`
	RPCPort      int           `yaml:"rpc_port" env:"JANKEN_RPC_PORT"`
	P2PPort      int           `yaml:"p2p_port" env:"JANKEN_P2P_PORT"`
	MaxBlockTxs  int           `yaml:"max_block_txs"` // max transactions per block; 0 → 500
	LogLevel     string        `yaml:"log_level" env:"JANKEN_LOG_LEVEL"`
	LogFormat    string        `yaml:"log_format" env:"JANKEN_LOG_FORMAT"` // "json" or "console"
	RPCAuthToken string        `yaml:"rpc_auth_token" env:"JANKEN_RPC_AUTH_TOKEN"`
	Validators   []string      `yaml:"validators"` // authorised proposer pubkey hexes
	SeedPeers    []SeedPeer    `yaml:"seed_peers"`
	TLS          *TLSConfig    `yaml:"tls"`
	Genesis      GenesisConfig `yaml:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		DataDir:     "./data",
		RPCPort:     8545,
		P2PPort:     30303,
		MaxBlockTxs: 500,
		LogLevel:    "info",
		LogFormat:   "console",
		Genesis: GenesisConfig{
			ChainID: "janken-dev",
			Alloc:   map[string]uint64{},
		},
	}
}

// Load reads a YAML config file from path and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
