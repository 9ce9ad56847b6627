// Package config loads coordinator and worker agent settings from YAML
// files and environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Agent transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Logging selects the slog handler built by NewLogger.
type Logging struct {
	Level  string `yaml:"log_level"`
	Format string `yaml:"log_format"` // text or json
}

// NewLogger builds a logger writing to w.
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if l.Level != "" {
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log_format: unknown format %q", l.Format)
	}
}

// CoordinatorConfig configures cmd/coordinator.
type CoordinatorConfig struct {
	HTTPAddr               string        `yaml:"http_addr"`
	GRPCAddr               string        `yaml:"grpc_addr"` // empty disables gRPC
	LogMaxEntries          int           `yaml:"log_max_entries"`
	RequireAvailableToPoll bool          `yaml:"require_available_to_poll"`
	EventsInterval         time.Duration `yaml:"events_interval"`
	Logging                `yaml:",inline"`
}

// DefaultCoordinator returns the built-in coordinator settings.
func DefaultCoordinator() CoordinatorConfig {
	return CoordinatorConfig{
		HTTPAddr:       ":5000",
		GRPCAddr:       ":5001",
		LogMaxEntries:  5000,
		EventsInterval: time.Second,
		Logging:        Logging{Level: "info", Format: "text"},
	}
}

// LoadCoordinator reads path (skipped when empty) over the defaults and
// applies environment overrides.
func LoadCoordinator(path string) (*CoordinatorConfig, error) {
	cfg := DefaultCoordinator()
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := os.LookupEnv("GRPC_ADDR"); ok {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field.
func (c *CoordinatorConfig) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.LogMaxEntries < 1 {
		errs = append(errs, errors.New("log_max_entries must be positive"))
	}
	if c.EventsInterval <= 0 {
		errs = append(errs, errors.New("events_interval must be positive"))
	}
	return joinInvalid(errs)
}

// RendererConfig describes the render binary the agent launches.
type RendererConfig struct {
	Binary    string   `yaml:"binary"`
	ExtraArgs []string `yaml:"extra_args"`
}

// AgentConfig configures cmd/worker.
type AgentConfig struct {
	ID                  string         `yaml:"id"`
	Name                string         `yaml:"name"`
	CoordinatorURL      string         `yaml:"coordinator_url"`
	Transport           string         `yaml:"transport"`
	GRPCAddr            string         `yaml:"grpc_addr"`
	Available           bool           `yaml:"available"`
	HeartbeatInterval   time.Duration  `yaml:"heartbeat_interval"`
	IdleInterval        time.Duration  `yaml:"idle_interval"`
	UnavailableInterval time.Duration  `yaml:"unavailable_interval"`
	ErrorBackoff        time.Duration  `yaml:"error_backoff"`
	RequestTimeout      time.Duration  `yaml:"request_timeout"`
	FrameWindow         int            `yaml:"frame_window"`
	Renderer            RendererConfig `yaml:"renderer"`
	Logging             `yaml:",inline"`
}

// DefaultAgent returns the built-in agent settings. The id defaults to
// worker-<hostname>.
func DefaultAgent() AgentConfig {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "localhost"
	}
	return AgentConfig{
		ID:                  "worker-" + hostname,
		CoordinatorURL:      "http://localhost:5000",
		Transport:           TransportHTTP,
		GRPCAddr:            "localhost:5001",
		Available:           true,
		HeartbeatInterval:   2 * time.Second,
		IdleInterval:        800 * time.Millisecond,
		UnavailableInterval: time.Second,
		ErrorBackoff:        2 * time.Second,
		RequestTimeout:      4 * time.Second,
		FrameWindow:         8,
		Renderer:            RendererConfig{Binary: "blender"},
		Logging:             Logging{Level: "info", Format: "text"},
	}
}

// LoadAgent reads path (skipped when empty) over the defaults and applies
// environment overrides. An empty name falls back to the id.
func LoadAgent(path string) (*AgentConfig, error) {
	cfg := DefaultAgent()
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("WORKER_ID"); v != "" {
		cfg.ID = v
	}
	if v := os.Getenv("WORKER_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("COORDINATOR_URL"); v != "" {
		cfg.CoordinatorURL = v
	}
	if v := os.Getenv("COORDINATOR_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field.
func (c *AgentConfig) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	switch c.Transport {
	case TransportHTTP:
		if c.CoordinatorURL == "" {
			errs = append(errs, errors.New("coordinator_url is required for http transport"))
		}
	case TransportGRPC:
		if c.GRPCAddr == "" {
			errs = append(errs, errors.New("grpc_addr is required for grpc transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport must be %q or %q, got %q", TransportHTTP, TransportGRPC, c.Transport))
	}
	for name, d := range map[string]time.Duration{
		"heartbeat_interval":   c.HeartbeatInterval,
		"idle_interval":        c.IdleInterval,
		"unavailable_interval": c.UnavailableInterval,
		"error_backoff":        c.ErrorBackoff,
		"request_timeout":      c.RequestTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.FrameWindow < 1 {
		errs = append(errs, errors.New("frame_window must be positive"))
	}
	if c.Renderer.Binary == "" {
		errs = append(errs, errors.New("renderer.binary is required"))
	}
	return joinInvalid(errs)
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

func joinInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func readFile(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
