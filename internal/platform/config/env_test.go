package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Addr    string        `env:"TASKS_TEST_ADDR" envDefault:"localhost:8080"`
	Timeout time.Duration `env:"TASKS_TEST_TIMEOUT" envDefault:"2s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "localhost:8080")
	}
	if cfg.Timeout != 2*time.Second {
		t.Fatalf("timeout = %v, want 2s", cfg.Timeout)
	}
}

func TestParseEnvReadsProcessEnvironment(t *testing.T) {
	t.Setenv("TASKS_TEST_ADDR", "0.0.0.0:9000")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, "0.0.0.0:9000")
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("TASKS_TEST_TIMEOUT", "soon")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvMapIgnoresProcessEnvironment(t *testing.T) {
	t.Setenv("TASKS_TEST_ADDR", "from-process:1")

	var cfg envTestConfig
	if err := ParseEnvMap(&cfg, map[string]string{"TASKS_TEST_TIMEOUT": "5s"}); err != nil {
		t.Fatalf("parse env map: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Fatalf("addr = %q, want default", cfg.Addr)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
}
