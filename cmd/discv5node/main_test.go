package main

import (
	"testing"

	"github.com/ethnode/discv5/p2p/discover"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, exit, code := parseFlags([]string{})
	if exit {
		t.Fatalf("unexpected exit with code %d", code)
	}

	defaults := DefaultConfig()
	if cfg.Port != defaults.Port {
		t.Errorf("Port = %d, want %d", cfg.Port, defaults.Port)
	}
	if cfg.Bootnodes != "" {
		t.Errorf("Bootnodes = %q, want empty", cfg.Bootnodes)
	}
	if cfg.Alpha != discover.DefaultAlpha {
		t.Errorf("Alpha = %d, want %d", cfg.Alpha, discover.DefaultAlpha)
	}
	if cfg.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", cfg.Verbosity)
	}
}

func TestParseFlagsAllFlags(t *testing.T) {
	args := []string{
		"-port", "30500",
		"-bootnodes", "enode://aa@127.0.0.1:30303,enode://bb@127.0.0.1:30304",
		"-alpha", "5",
		"-verbosity", "4",
	}

	cfg, exit, _ := parseFlags(args)
	if exit {
		t.Fatal("unexpected exit")
	}
	if cfg.Port != 30500 {
		t.Errorf("Port = %d, want 30500", cfg.Port)
	}
	if cfg.Bootnodes != "enode://aa@127.0.0.1:30303,enode://bb@127.0.0.1:30304" {
		t.Errorf("Bootnodes = %q", cfg.Bootnodes)
	}
	if cfg.Alpha != 5 {
		t.Errorf("Alpha = %d, want 5", cfg.Alpha)
	}
	if cfg.Verbosity != 4 {
		t.Errorf("Verbosity = %d, want 4", cfg.Verbosity)
	}
}

func TestParseFlagsMetricsAddr(t *testing.T) {
	cfg, exit, _ := parseFlags([]string{"-metrics-addr", ":6060"})
	if exit {
		t.Fatal("unexpected exit")
	}
	if cfg.MetricsAddr != ":6060" {
		t.Errorf("MetricsAddr = %q, want :6060", cfg.MetricsAddr)
	}
}

func TestParseFlagsDoubleDash(t *testing.T) {
	args := []string{"--port", "30600", "--alpha", "7"}
	cfg, exit, _ := parseFlags(args)
	if exit {
		t.Fatal("unexpected exit")
	}
	if cfg.Port != 30600 {
		t.Errorf("Port = %d, want 30600", cfg.Port)
	}
	if cfg.Alpha != 7 {
		t.Errorf("Alpha = %d, want 7", cfg.Alpha)
	}
}

func TestParseFlagsVersion(t *testing.T) {
	cfg, exit, code := parseFlags([]string{"-version"})
	if !exit {
		t.Fatal("expected exit on -version")
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	_ = cfg
}

func TestParseFlagsUnknownFlag(t *testing.T) {
	_, exit, code := parseFlags([]string{"-does-not-exist"})
	if !exit {
		t.Fatal("expected exit for unknown flag")
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "ERROR"},
		{1, "WARN"},
		{2, "INFO"},
		{3, "DEBUG"},
		{9, "DEBUG"},
	}
	for _, c := range cases {
		if got := verbosityToLevel(c.in).String(); got != c.want {
			t.Errorf("verbosityToLevel(%d) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestRunWithBadBootnode(t *testing.T) {
	code := run([]string{"-bootnodes", "not-an-enode-url"})
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}
