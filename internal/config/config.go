// Package config loads daemon settings from flags, falling back to
// environment variables and then to built-in defaults.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSocketPath      = "/tmp/xyron-core.sock"
	DefaultSocketMode      = os.FileMode(0o777)
	DefaultMaxConns        = 1024
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultMaxRequestBytes = 64 << 10
	DefaultMetricsInterval = 10 * time.Second
	DefaultLogLevel        = "info"
)

// Environment variable names. Each one supplies the default of the flag of
// the same meaning.
const (
	EnvSocket          = "XYRON_SOCKET"
	EnvGRPCSocket      = "XYRON_GRPC_SOCKET"
	EnvSocketMode      = "XYRON_SOCKET_MODE"
	EnvMaxConns        = "XYRON_MAX_CONNS"
	EnvReadTimeout     = "XYRON_READ_TIMEOUT"
	EnvWriteTimeout    = "XYRON_WRITE_TIMEOUT"
	EnvMaxRequestBytes = "XYRON_MAX_REQUEST_BYTES"
	EnvMetricsInterval = "XYRON_METRICS_INTERVAL"
	EnvLogLevel        = "XYRON_LOG_LEVEL"
	EnvLogJSON         = "XYRON_LOG_JSON"
)

// Config holds the daemon settings.
type Config struct {
	SocketPath      string
	GRPCSocketPath  string // empty disables the gRPC listener
	SocketMode      os.FileMode
	MaxConns        int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBytes int64
	MetricsInterval time.Duration
	LogLevel        string
	LogJSON         bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SocketPath:      DefaultSocketPath,
		SocketMode:      DefaultSocketMode,
		MaxConns:        DefaultMaxConns,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		MaxRequestBytes: DefaultMaxRequestBytes,
		MetricsInterval: DefaultMetricsInterval,
		LogLevel:        DefaultLogLevel,
	}
}

// FromEnv overlays the environment onto Default. getenv nil means os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if v := getenv(EnvSocket); v != "" {
		cfg.SocketPath = v
	}
	if v := getenv(EnvGRPCSocket); v != "" {
		cfg.GRPCSocketPath = v
	}
	if v := getenv(EnvSocketMode); v != "" {
		m, err := parseMode(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvSocketMode)
		}
		cfg.SocketMode = m
	}
	if v := getenv(EnvMaxConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvMaxConns)
		}
		cfg.MaxConns = n
	}
	if v := getenv(EnvReadTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvReadTimeout)
		}
		cfg.ReadTimeout = d
	}
	if v := getenv(EnvWriteTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvWriteTimeout)
		}
		cfg.WriteTimeout = d
	}
	if v := getenv(EnvMaxRequestBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvMaxRequestBytes)
		}
		cfg.MaxRequestBytes = n
	}
	if v := getenv(EnvMetricsInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvMetricsInterval)
		}
		cfg.MetricsInterval = d
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(EnvLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, EnvLogJSON)
		}
		cfg.LogJSON = b
	}
	return cfg, nil
}

// Load parses args into a Config. Flags override the environment, which
// overrides the defaults. Usage and parse errors go to errOut.
func Load(name string, args []string, getenv func(string) string, errOut io.Writer) (Config, error) {
	cfg, err := FromEnv(getenv)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: environment")
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if errOut != nil {
		fs.SetOutput(errOut)
	}
	fs.StringVar(&cfg.SocketPath, "socket", cfg.SocketPath, "Unix socket path for JSON requests ("+EnvSocket+")")
	fs.StringVar(&cfg.GRPCSocketPath, "grpc-socket", cfg.GRPCSocketPath, "Unix socket path for the gRPC service; empty disables it ("+EnvGRPCSocket+")")
	fs.Var((*modeValue)(&cfg.SocketMode), "socket-mode", "Permission bits applied to the socket files, octal ("+EnvSocketMode+")")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum connections handled at once ("+EnvMaxConns+")")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Deadline for reading a request ("+EnvReadTimeout+")")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for writing a response ("+EnvWriteTimeout+")")
	fs.Int64Var(&cfg.MaxRequestBytes, "max-request-bytes", cfg.MaxRequestBytes, "Maximum request document size ("+EnvMaxRequestBytes+")")
	fs.DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Metrics report period ("+EnvMetricsInterval+")")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace|debug|info|warn|error ("+EnvLogLevel+")")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Emit JSON log lines ("+EnvLogJSON+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 0 {
		return Config{}, fmt.Errorf("config: unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SocketPath) == "" {
		return errors.New("config: socket path is required")
	}
	if c.GRPCSocketPath != "" && c.GRPCSocketPath == c.SocketPath {
		return errors.New("config: grpc socket must differ from socket")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("config: max conns must be positive, got %d", c.MaxConns)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("config: max request bytes must be positive, got %d", c.MaxRequestBytes)
	}
	if c.MetricsInterval <= 0 {
		return errors.New("config: metrics interval must be positive")
	}
	if c.SocketMode&^os.ModePerm != 0 {
		return fmt.Errorf("config: socket mode %o has non-permission bits", uint32(c.SocketMode))
	}
	return nil
}

func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(n), nil
}

type modeValue os.FileMode

func (m *modeValue) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%04o", uint32(*m))
}

func (m *modeValue) Set(s string) error {
	v, err := parseMode(s)
	if err != nil {
		return err
	}
	*m = modeValue(v)
	return nil
}
