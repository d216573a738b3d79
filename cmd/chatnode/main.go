// Command chatnode runs one replica of the chat service: durable store,
// chat state machine, consensus module, and both RPC façades, wired up
// and torn down in dependency order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vzdtic/chat-raft/internal/auth"
	"github.com/vzdtic/chat-raft/internal/chatlog"
	"github.com/vzdtic/chat-raft/internal/config"
	"github.com/vzdtic/chat-raft/pkg/chatstate"
	"github.com/vzdtic/chat-raft/pkg/raft"
	"github.com/vzdtic/chat-raft/pkg/session"
	"github.com/vzdtic/chat-raft/pkg/transport/grpcclient"
	"github.com/vzdtic/chat-raft/pkg/transport/grpcpeer"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "chatnode", Short: "fault-tolerant replicated chat node"}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the chatnode build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath, nodeID string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start this node and join its configured cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, nodeID)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the cluster YAML config")
	cmd.Flags().StringVar(&nodeID, "node-id", "", "override this node's ID from the config file")
	return cmd
}

func runServe(configPath, nodeID string) error {
	cfg, err := config.Load(configPath, nodeID)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logger *chatlog.Logger
	if cfg.LogFormat == "json" {
		logger = chatlog.NewJSON(os.Stderr, cfg.NodeID, "chatnode")
	} else {
		logger = chatlog.New(os.Stderr, cfg.NodeID, "chatnode")
	}

	reg := prometheus.NewRegistry()
	metrics := raft.NewCollector(reg, cfg.NodeID)

	csm := chatstate.New()

	peerTransport := grpcpeer.New(peerAddrOf(cfg), cfg.PeerAddrs())

	raftCfg := &raft.Config{
		NodeID:             cfg.NodeID,
		Peers:              cfg.PeerAddrs(),
		ElectionTimeoutMin: cfg.Timing.ElectionTimeoutMin,
		ElectionTimeoutMax: cfg.Timing.ElectionTimeoutMax,
		HeartbeatInterval:  cfg.Timing.HeartbeatInterval,
		DataDir:            cfg.DataDir,
		SnapshotThreshold:  cfg.SnapshotThreshold,
	}

	node, err := raft.New(raftCfg, peerTransport, csm, logger, metrics)
	if err != nil {
		return fmt.Errorf("create raft node: %w", err)
	}
	peerTransport.SetHandler(node)

	if err := peerTransport.Start(); err != nil {
		return fmt.Errorf("start peer transport: %w", err)
	}
	node.Start()

	sessions := session.NewRegistry(cfg.MailboxCapacity)
	hasher := auth.NewReferenceHasher(func() string { return session.NewConnectionID() })

	clientAddr, _ := cfg.ClientAddrOf(cfg.NodeID)
	clientServer := grpcclient.New(node, csm, sessions, hasher)
	if err := clientServer.Start(clientAddr); err != nil {
		return fmt.Errorf("start client transport: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	logger.Printf("chatnode %s serving peer=%s client=%s", cfg.NodeID, peerAddrOf(cfg), clientAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Printf("shutting down")
	clientServer.Stop()
	peerTransport.Stop()
	node.Stop()
	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	return nil
}

func peerAddrOf(cfg *config.Config) string {
	for _, p := range cfg.Peers {
		if p.ID == cfg.NodeID {
			return p.PeerAddr
		}
	}
	return ""
}
