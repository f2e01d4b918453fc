// Command discv5node runs the protocol-level service layer of a discv5
// node: the routing table, the iterative lookup engine, and the reactor
// that drives them against a session service.
//
// Usage:
//
//	discv5node [flags]
//
// Flags:
//
//	--port          UDP listening port (default: 30303)
//	--bootnodes     comma-separated list of enode:// bootstrap URLs
//	--alpha         lookup parallelism (default: 3)
//	--verbosity     log level 0-4 (default: 2)
//	--metrics-addr  address to serve Prometheus metrics on, e.g. :6060
//	--version       print version and exit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethnode/discv5/crypto"
	ourlog "github.com/ethnode/discv5/log"
	"github.com/ethnode/discv5/metrics"
	"github.com/ethnode/discv5/p2p/bootstrap"
	"github.com/ethnode/discv5/p2p/discover"
	"github.com/ethnode/discv5/p2p/enr"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

// Config bundles the node's runtime configuration.
type Config struct {
	Port        int
	Bootnodes   string
	Alpha       int
	Verbosity   int
	MetricsAddr string
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Port:        30303,
		Bootnodes:   "",
		Alpha:       discover.DefaultAlpha,
		Verbosity:   2,
		MetricsAddr: "",
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It takes CLI
// arguments without the program name so it can be exercised in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	logger := ourlog.New(verbosityToLevel(cfg.Verbosity))
	ourlog.SetDefault(logger)
	l := logger.Module("main")

	key, err := crypto.GenerateKey()
	if err != nil {
		l.Error("failed to generate node key", "err", err)
		return 1
	}
	record := &enr.Record{}
	record.SetSeq(1)
	enr.SetIP(record, net.ParseIP("0.0.0.0"))
	enr.SetUDP(record, uint16(cfg.Port))
	if err := enr.SignENR(record, key); err != nil {
		l.Error("failed to sign node record", "err", err)
		return 1
	}
	self := discover.FromENR(record)

	l.Info("discv5node starting", "version", version, "port", cfg.Port, "alpha", cfg.Alpha, "id", self.ID)

	table := discover.NewTable(self.ID)

	registry := metrics.DefaultRegistry
	session := newNullSession(self)
	reactor := discover.New(self, table, session, discover.Config{Alpha: cfg.Alpha, Registry: registry})

	if cfg.Bootnodes != "" {
		bootnodes := bootstrap.NewList()
		urls := strings.Split(cfg.Bootnodes, ",")
		if err := bootnodes.ParseAndAdd(urls); err != nil {
			l.Error("failed to parse bootnodes", "err", err)
			return 1
		}
		bootstrap.Seed(reactor, bootnodes)
		l.Info("seeded bootstrap nodes", "count", bootnodes.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		exp := metrics.NewPrometheusExporter(registry, metrics.PrometheusConfig{Namespace: "discv5", EnableRuntime: true})
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: exp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				l.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
		l.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	if err := reactor.Start(ctx); err != nil {
		l.Error("failed to start reactor", "err", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	l.Info("received signal, shutting down", "signal", sig.String())

	reactor.Stop()
	l.Info("shutdown complete")
	return 0
}

// parseFlags parses CLI arguments into a Config. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (Config, bool, int) {
	cfg := DefaultConfig()
	fs := newFlagSet(&cfg)

	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}

	if *showVersion {
		fmt.Printf("discv5node %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	return cfg, false, 0
}

func newFlagSet(cfg *Config) *flagSet {
	fs := newCustomFlagSet("discv5node")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "UDP listening port")
	fs.StringVar(&cfg.Bootnodes, "bootnodes", cfg.Bootnodes, "comma-separated enode:// bootstrap URLs")
	fs.IntVar(&cfg.Alpha, "alpha", cfg.Alpha, "lookup parallelism")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-4 (0=error, 4=debug)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve Prometheus metrics on, e.g. :6060 (disabled if empty)")
	return fs
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
