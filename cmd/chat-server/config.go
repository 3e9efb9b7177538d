package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	maxClients      int
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":4000", "TCP listen address")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous clients (0 = unlimited)")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default chat-server-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.listenAddr = *listen
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.maxClients = *maxClients
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open listeners, only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.listenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.logMetricsEvery < 0 {
		return fmt.Errorf("log-metrics-interval must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps CHAT_SERVER_* environment variables to config
// fields unless a corresponding flag was explicitly set. Empty values are
// ignored. Duration accepts Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["listen"]; !ok {
		if v, ok := get("CHAT_SERVER_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("CHAT_SERVER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("CHAT_SERVER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CHAT_SERVER_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("CHAT_SERVER_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CHAT_SERVER_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("CHAT_SERVER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CHAT_SERVER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("CHAT_SERVER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("CHAT_SERVER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
