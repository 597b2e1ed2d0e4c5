package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
	"github.com/google/uuid"
	logging "github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/southpawdb/southpaw/cluster"
	"github.com/southpawdb/southpaw/config"
	"github.com/southpawdb/southpaw/hints"
	"github.com/southpawdb/southpaw/message"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
	"github.com/southpawdb/southpaw/storage"
	"github.com/southpawdb/southpaw/transport"
)

var logger = logging.MustGetLogger("coordinatord")

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coordinatord",
		Short: "partitioned, replicated key value storage node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "coordinatord.yaml", "path to the config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARNING, ERROR)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// node ids are derived from node names, so every member computes
// the same id for a peer without an id exchange
func nodeIdFor(name string) node.NodeId {
	return node.NodeId(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())
}

// virtual node tokens are derived from the node name, so every
// member computes the same ring without a token exchange
func tokensFor(p partitioner.Partitioner, name string, count int) []partitioner.Token {
	tokens := make([]partitioner.Token, count)
	for i := range tokens {
		tokens[i] = p.GetToken(fmt.Sprintf("%v-%v", name, i))
	}
	return tokens
}

func run() error {
	level, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level, "")

	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var stats statsd.Statter
	if conf.StatsdAddr != "" {
		stats, err = statsd.NewClientWithConfig(&statsd.ClientConfig{
			Address: conf.StatsdAddr,
			Prefix:  "southpaw." + conf.Name,
		})
		if err != nil {
			return err
		}
		defer stats.Close()
	}

	part := partitioner.NewMurmur3Partitioner()
	localId := nodeIdFor(conf.Name)

	c, err := cluster.NewCluster(cluster.Options{
		Name:               conf.Name,
		Addr:               conf.ListenAddr,
		Rack:               conf.Rack,
		NodeId:             localId,
		Tokens:             tokensFor(part, conf.Name, conf.TokensPerNode),
		Partitioner:        part,
		ReplicationFactor:  conf.ReplicationFactor,
		RequestTimeout:     conf.RequestTimeout.Duration(),
		HeartbeatInterval:  conf.HeartbeatInterval.Duration(),
		HeartbeatThreshold: conf.HeartbeatThreshold,
		HintRetention:      conf.HintRetention.Duration(),
		Engine:             storage.NewPebbleEngine(filepath.Join(conf.DataDir, "db")),
		HintStore:          hints.NewPebbleStore(filepath.Join(conf.DataDir, "hints")),
		Stats:              stats,
	})
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	server := transport.NewPeerServer(conf.ListenAddr, c.Service())
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	sender := transport.NewTCPSender(10, conf.RequestTimeout.Duration())
	defer sender.Close()

	for _, seed := range conf.Seeds {
		peer := cluster.NewRemoteNode(nodeIdFor(seed.Name), seed.Name, seed.Addr, seed.Rack, sender)
		if err := c.AddNode(peer, tokensFor(part, seed.Name, conf.TokensPerNode)); err != nil {
			return err
		}
	}

	stopHeartbeats := make(chan struct{})
	go heartbeatLoop(c, sender, conf, localId, stopHeartbeats)
	defer close(stopHeartbeats)

	logger.Infof("node %v (%v) up on %v, rf=%v", conf.Name, localId, conf.ListenAddr, conf.ReplicationFactor)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("received %v, shutting down", sig)
	return nil
}

// announces liveness to every seed each interval and records the
// responses in the local failure detector
func heartbeatLoop(c *cluster.Cluster, sender *transport.TCPSender, conf config.Config, localId node.NodeId, stop chan struct{}) {
	interval := conf.HeartbeatInterval.Duration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Heartbeat(localId)
			for _, seed := range conf.Seeds {
				seed := seed
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), interval)
					defer cancel()
					response, err := sender.SendMessage(ctx, seed.Addr, &message.HeartbeatRequest{NodeId: string(localId)})
					if err != nil {
						logger.Debugf("heartbeat to %v failed: %v", seed.Name, err)
						return
					}
					if heartbeat, ok := response.(*message.HeartbeatResponse); ok {
						c.Heartbeat(node.NodeId(heartbeat.NodeId))
					}
				}()
			}
		case <-stop:
			return
		}
	}
}
