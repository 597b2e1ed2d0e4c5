package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/southpawdb/southpaw/consistency"
	"github.com/southpawdb/southpaw/testhelpers"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coordinatord.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name: node1
listen_addr: 10.0.0.1:9745
rack: r1
data_dir: /var/lib/southpaw
replication_factor: 5
tokens_per_node: 64
default_consistency: ALL
request_timeout: 2s
heartbeat_interval: 500ms
heartbeat_threshold: 3
hint_retention: 1h
statsd_addr: 10.0.0.2:8125
seeds:
  - name: node2
    addr: 10.0.0.3:9745
    rack: r2
`)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testhelpers.AssertEqual(t, "name", "node1", conf.Name)
	testhelpers.AssertEqual(t, "listen addr", "10.0.0.1:9745", conf.ListenAddr)
	testhelpers.AssertEqual(t, "rack", "r1", conf.Rack)
	testhelpers.AssertEqual(t, "data dir", "/var/lib/southpaw", conf.DataDir)
	testhelpers.AssertEqual(t, "replication factor", 5, conf.ReplicationFactor)
	testhelpers.AssertEqual(t, "tokens per node", 64, conf.TokensPerNode)
	testhelpers.AssertEqual(t, "default consistency", consistency.CONSISTENCY_ALL, conf.DefaultConsistency)
	testhelpers.AssertEqual(t, "request timeout", time.Second*2, conf.RequestTimeout.Duration())
	testhelpers.AssertEqual(t, "heartbeat interval", time.Millisecond*500, conf.HeartbeatInterval.Duration())
	testhelpers.AssertEqual(t, "heartbeat threshold", 3, conf.HeartbeatThreshold)
	testhelpers.AssertEqual(t, "hint retention", time.Hour, conf.HintRetention.Duration())
	testhelpers.AssertEqual(t, "statsd addr", "10.0.0.2:8125", conf.StatsdAddr)
	testhelpers.AssertEqual(t, "num seeds", 1, len(conf.Seeds))
	testhelpers.AssertEqual(t, "seed name", "node2", conf.Seeds[0].Name)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "name: node1\n")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defaults := DefaultConfig()
	testhelpers.AssertEqual(t, "listen addr", defaults.ListenAddr, conf.ListenAddr)
	testhelpers.AssertEqual(t, "replication factor", defaults.ReplicationFactor, conf.ReplicationFactor)
	testhelpers.AssertEqual(t, "tokens per node", defaults.TokensPerNode, conf.TokensPerNode)
	testhelpers.AssertEqual(t, "default consistency", defaults.DefaultConsistency, conf.DefaultConsistency)
	testhelpers.AssertEqual(t, "hint retention", defaults.HintRetention, conf.HintRetention)
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing name", func(c *Config) { c.Name = "" }},
		{"missing listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"zero replication factor", func(c *Config) { c.ReplicationFactor = 0 }},
		{"zero tokens per node", func(c *Config) { c.TokensPerNode = 0 }},
		{"bad consistency level", func(c *Config) { c.DefaultConsistency = "MOST" }},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero heartbeat interval", func(c *Config) { c.HeartbeatInterval = 0 }},
		{"zero heartbeat threshold", func(c *Config) { c.HeartbeatThreshold = 0 }},
		{"zero hint retention", func(c *Config) { c.HintRetention = 0 }},
		{"seed without addr", func(c *Config) { c.Seeds = []Seed{{Name: "node2"}} }},
	}

	for _, test := range tests {
		conf := DefaultConfig()
		conf.Name = "node1"
		test.modify(&conf)
		if err := conf.Validate(); err == nil {
			t.Errorf("%v: expected a validation error", test.name)
		}
	}
}
