// Package config loads a chatnode's cluster and timing configuration. A
// fixed peer table is naturally a file rather than a long flag string,
// so this layers a YAML cluster file (viper) under environment overrides
// (caarlos0/env) under explicit flags, in that precedence order.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Peer is one member of the fixed, start-of-day peer table.
type Peer struct {
	ID       string `yaml:"id"`
	PeerAddr string `yaml:"peer_addr"`
	ClientAddr string `yaml:"client_addr"`
}

// Timing holds the Raft timer parameters. Separated from Config so tests
// can construct aggressive timings without going through file/env loading.
type Timing struct {
	ElectionTimeoutMin time.Duration `yaml:"election_timeout_min" env:"CHAT_ELECTION_TIMEOUT_MIN"`
	ElectionTimeoutMax time.Duration `yaml:"election_timeout_max" env:"CHAT_ELECTION_TIMEOUT_MAX"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval" env:"CHAT_HEARTBEAT_INTERVAL"`
}

// Config is the fully resolved configuration for one chatnode process.
type Config struct {
	NodeID            string `yaml:"node_id" env:"CHAT_NODE_ID"`
	DataDir           string `yaml:"data_dir" env:"CHAT_DATA_DIR"`
	Peers             []Peer `yaml:"peers"`
	Timing            Timing `yaml:"timing"`
	SnapshotThreshold int    `yaml:"snapshot_threshold" env:"CHAT_SNAPSHOT_THRESHOLD"`
	MailboxCapacity   int    `yaml:"mailbox_capacity" env:"CHAT_MAILBOX_CAPACITY"`
	MetricsAddr       string `yaml:"metrics_addr" env:"CHAT_METRICS_ADDR"`
	LogFormat         string `yaml:"log_format" env:"CHAT_LOG_FORMAT"`
}

// Default returns the baseline configuration with conservative timer
// values suitable for a single-node dry run.
func Default(nodeID string) *Config {
	return &Config{
		NodeID:  nodeID,
		DataDir: fmt.Sprintf("./data/%s", nodeID),
		Timing: Timing{
			ElectionTimeoutMin: 500 * time.Millisecond,
			ElectionTimeoutMax: 1000 * time.Millisecond,
			HeartbeatInterval:  50 * time.Millisecond,
		},
		SnapshotThreshold: 1000,
		MailboxCapacity:   256,
		LogFormat:         "console",
	}
}

// Load reads a YAML cluster file via viper, then overlays process
// environment variables via caarlos0/env, then applies a non-empty nodeID
// flag value, returning the merged Config.
func Load(path string, nodeID string) (*Config, error) {
	cfg := Default(nodeID)

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading cluster config %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parsing cluster config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if nodeID != "" {
		cfg.NodeID = nodeID
	}

	return cfg, nil
}

// PeerAddrs returns a nodeID->peerAddr map excluding self, the shape
// raft.Config.Peers expects.
func (c *Config) PeerAddrs() map[string]string {
	out := make(map[string]string, len(c.Peers))
	for _, p := range c.Peers {
		if p.ID == c.NodeID {
			continue
		}
		out[p.ID] = p.PeerAddr
	}
	return out
}

// ClientAddrOf returns the client-facing address advertised for a peer, used
// by cmd/chatnode to find the address its own client service listens on.
func (c *Config) ClientAddrOf(nodeID string) (string, bool) {
	for _, p := range c.Peers {
		if p.ID == nodeID {
			return p.ClientAddr, true
		}
	}
	return "", false
}
