package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := &appConfig{
		listenAddr:      ":4000",
		logFormat:       "text",
		logLevel:        "info",
		metricsAddr:     "",
		maxClients:      0,
		logMetricsEvery: 0,
		mdnsEnable:      false,
		mdnsName:        "",
	}

	os.Setenv("CHAT_SERVER_LISTEN", ":5000")
	os.Setenv("CHAT_SERVER_MAX_CLIENTS", "50")
	os.Setenv("CHAT_SERVER_MDNS_ENABLE", "true")
	os.Setenv("CHAT_SERVER_LOG_METRICS_INTERVAL", "5s")
	t.Cleanup(func() {
		os.Unsetenv("CHAT_SERVER_LISTEN")
		os.Unsetenv("CHAT_SERVER_MAX_CLIENTS")
		os.Unsetenv("CHAT_SERVER_MDNS_ENABLE")
		os.Unsetenv("CHAT_SERVER_LOG_METRICS_INTERVAL")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.listenAddr != ":5000" {
		t.Fatalf("expected listen override, got %q", base.listenAddr)
	}
	if base.maxClients != 50 {
		t.Fatalf("expected maxClients 50 got %d", base.maxClients)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", base.logMetricsEvery)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{listenAddr: ":4000"}
	os.Setenv("CHAT_SERVER_LISTEN", ":5000")
	t.Cleanup(func() { os.Unsetenv("CHAT_SERVER_LISTEN") })
	// Simulate user passed -listen flag (so env should be ignored)
	if err := applyEnvOverrides(base, map[string]struct{}{"listen": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.listenAddr != ":4000" {
		t.Fatalf("expected listen unchanged :4000 got %q", base.listenAddr)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := &appConfig{maxClients: 10}
	os.Setenv("CHAT_SERVER_MAX_CLIENTS", "notint")
	t.Cleanup(func() { os.Unsetenv("CHAT_SERVER_MAX_CLIENTS") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
	if base.maxClients != 10 {
		t.Fatalf("expected maxClients unchanged, got %d", base.maxClients)
	}
}
