package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/southpawdb/southpaw/consistency"
)

// a time.Duration that unmarshals from values like "500ms" or "3h"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// a peer known at startup
type Seed struct {
	Name string `yaml:"name"`
	Addr string `yaml:"addr"`
	Rack string `yaml:"rack"`
}

type Config struct {
	Name       string `yaml:"name"`
	ListenAddr string `yaml:"listen_addr"`
	Rack       string `yaml:"rack"`
	DataDir    string `yaml:"data_dir"`

	ReplicationFactor  int               `yaml:"replication_factor"`
	TokensPerNode      int               `yaml:"tokens_per_node"`
	DefaultConsistency consistency.Level `yaml:"default_consistency"`

	RequestTimeout     Duration `yaml:"request_timeout"`
	HeartbeatInterval  Duration `yaml:"heartbeat_interval"`
	HeartbeatThreshold int      `yaml:"heartbeat_threshold"`
	HintRetention      Duration `yaml:"hint_retention"`

	StatsdAddr string `yaml:"statsd_addr"`

	Seeds []Seed `yaml:"seeds"`
}

// the defaults a field falls back to when the file leaves it unset
func DefaultConfig() Config {
	return Config{
		ListenAddr:         "127.0.0.1:9745",
		DataDir:            "data",
		ReplicationFactor:  3,
		TokensPerNode:      256,
		DefaultConsistency: consistency.CONSISTENCY_QUORUM,
		RequestTimeout:     Duration(time.Second * 10),
		HeartbeatInterval:  Duration(time.Second),
		HeartbeatThreshold: 5,
		HintRetention:      Duration(time.Hour * 3),
	}
}

func Load(path string) (Config, error) {
	conf := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, "reading config file %v", path)
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "parsing config file %v", path)
	}
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.ReplicationFactor < 1 {
		return fmt.Errorf("replication_factor must be at least 1, got %v", c.ReplicationFactor)
	}
	if c.TokensPerNode < 1 {
		return fmt.Errorf("tokens_per_node must be at least 1, got %v", c.TokensPerNode)
	}
	if _, err := consistency.ParseLevel(string(c.DefaultConsistency)); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.HeartbeatThreshold < 1 {
		return fmt.Errorf("heartbeat_threshold must be at least 1, got %v", c.HeartbeatThreshold)
	}
	if c.HintRetention <= 0 {
		return fmt.Errorf("hint_retention must be positive, got %v", c.HintRetention)
	}
	for i, seed := range c.Seeds {
		if seed.Name == "" || seed.Addr == "" {
			return fmt.Errorf("seed %v needs both a name and an addr", i)
		}
	}
	return nil
}
