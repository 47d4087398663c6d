package tasksvc

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GRPCAddr != ":8083" || cfg.RetryMax != 3 || cfg.RetryTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	t.Setenv("AUTH_ADDR", "localhost:8081")
	t.Setenv("RETRY_TIMEOUT", "2s")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AuthAddr != "localhost:8081" || cfg.RetryTimeout != 2*time.Second {
		t.Fatalf("unexpected overrides %+v", cfg)
	}

	t.Setenv("RETRY_MAX", "many")
	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
