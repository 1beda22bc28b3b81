package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/pubsubcluster/fanout/log"
	"github.com/pubsubcluster/fanout/validation"
)

// Config holds the process configuration: the port this frontend listens
// on, the cluster topology (if any), and the ambient logging/event-bus
// settings from §6.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	NATS   NATSConfig   `koanf:"nats"`

	// NumBackends and BackendPorts are read outside the koanf struct tree:
	// BACKEND{i}_PORT is a dynamically indexed list, not a single path, so
	// it is resolved directly against the environment after the layered
	// load below rather than through koanf's Unmarshal.
	NumBackends  int
	BackendPorts []string

	k      *koanf.Koanf
	logger log.Logger
}

// ServerConfig holds this process's own listen address.
type ServerConfig struct {
	Port string `koanf:"port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `koanf:"level"`
}

// NATSConfig holds the optional cluster-event-bus connection. Absence of
// URL never changes pub/sub behavior: it only gates the NoopBroker vs. a
// live NATS broker (§2 item 10).
type NATSConfig struct {
	URL string `koanf:"url"`
}

// Option configures Config during initialization.
type Option func(*configOptions) error

type configOptions struct {
	prefix       string
	file         string
	defaults     map[string]interface{}
	envExpansion bool
}

// WithPrefix sets the environment variable prefix (e.g. "FANOUT_"). The
// default, unprefixed env provider below is what the wire spec's bare
// `PORT`/`NUM_BACKENDS`/`BACKEND{i}_PORT`/`LOG_LEVEL`/`NATS_URL` names rely
// on; WithPrefix is for embedding this service's config loader inside a
// larger process that needs to namespace it.
func WithPrefix(prefix string) Option {
	return func(opts *configOptions) error {
		opts.prefix = prefix
		return nil
	}
}

// WithFile loads configuration from an optional YAML file.
func WithFile(path string) Option {
	return func(opts *configOptions) error {
		opts.file = path
		return nil
	}
}

// WithDefaults provides default values via a map; a key given here takes
// precedence over the baseline default for the same key below.
func WithDefaults(defaults map[string]interface{}) Option {
	return func(opts *configOptions) error {
		opts.defaults = defaults
		return nil
	}
}

// WithEnvExpansion enables ${VAR} expansion when parsing the YAML file.
func WithEnvExpansion() Option {
	return func(opts *configOptions) error {
		opts.envExpansion = true
		return nil
	}
}

// New loads configuration in the layered order defaults → optional YAML
// file → environment, per §6.
func New(logger log.Logger, opts ...Option) (*Config, error) {
	cfg := &Config{
		logger: logger,
		k:      koanf.New("."),
	}

	options := &configOptions{
		defaults: make(map[string]interface{}),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	baselineDefaults := map[string]interface{}{
		"server.port": "8080",
		"log.level":   "info",
		"nats.url":    "",
	}
	for k, v := range baselineDefaults {
		if _, exists := options.defaults[k]; !exists {
			options.defaults[k] = v
		}
	}

	if err := cfg.k.Load(confmap.Provider(options.defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if options.file != "" {
		raw, err := os.ReadFile(options.file)
		if err != nil {
			logger.Debugf("config file not found: %s (using defaults)", options.file)
		} else {
			if options.envExpansion {
				raw = []byte(os.ExpandEnv(string(raw)))
			}
			if err := cfg.k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			logger.Debugf("loaded config from file: %s", options.file)
		}
	}

	if err := cfg.k.Load(env.Provider(options.prefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, options.prefix)
		switch s {
		case "PORT":
			return "server.port"
		case "LOG_LEVEL":
			return "log.level"
		case "NATS_URL":
			return "nats.url"
		default:
			return ""
		}
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.NumBackends, cfg.BackendPorts = loadBackendTopology(options.prefix)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Infof("configuration loaded: port=%s log=%s num_backends=%d",
		cfg.Server.Port, cfg.Log.Level, cfg.NumBackends)

	return cfg, nil
}

// loadBackendTopology reads NUM_BACKENDS and BACKEND{i}_PORT directly from
// the environment. These don't fit koanf's static struct unmarshal since
// the key count is only known once NUM_BACKENDS itself is read.
func loadBackendTopology(prefix string) (int, []string) {
	raw := os.Getenv(prefix + "NUM_BACKENDS")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, nil
	}

	ports := make([]string, n)
	for i := 0; i < n; i++ {
		ports[i] = os.Getenv(fmt.Sprintf("%sBACKEND%d_PORT", prefix, i))
	}
	return n, ports
}

// GetString returns the string value for the given path.
func (c *Config) GetString(path string) string {
	return c.k.String(path)
}

// GetInt returns the int value for the given path.
func (c *Config) GetInt(path string) int {
	return c.k.Int(path)
}

// GetBool returns the bool value for the given path.
func (c *Config) GetBool(path string) bool {
	return c.k.Bool(path)
}

// GetFloat returns the float64 value for the given path.
func (c *Config) GetFloat(path string) float64 {
	return c.k.Float64(path)
}

// GetDuration parses and returns a time.Duration for the given path.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	s := c.k.String(path)
	if s == "" {
		return 0, fmt.Errorf("no value found for path: %s", path)
	}
	return time.ParseDuration(s)
}

// Exists returns true if the given path exists in the configuration.
func (c *Config) Exists(path string) bool {
	return c.k.Exists(path)
}

// Clustered reports whether this process should run as a clustered
// frontend (HashBackend over N ProxyBackends) rather than single-node, per
// §4.7's mode-selection rule.
func (c *Config) Clustered() bool {
	return c.NumBackends > 1 || (c.NumBackends == 1 && c.BackendPorts[0] != "")
}

// Validate validates the configuration, accumulating every violation
// (rather than failing on the first) via the shared validation toolkit.
func (c *Config) Validate() error {
	errs := validation.Combine(
		validation.ValidatorFunc(func() validation.ValidationErrors {
			var e validation.ValidationErrors
			if err := validation.RequiredString("server.port", c.Server.Port); err.Field != "" {
				e.AddError(err)
			}
			return e
		}),
		validation.ValidatorFunc(func() validation.ValidationErrors {
			var e validation.ValidationErrors
			if err := validation.StringOneOf("log.level", c.Log.Level, []string{"debug", "info", "error"}); err.Field != "" {
				e.AddError(err)
			}
			return e
		}),
		validation.ValidatorFunc(func() validation.ValidationErrors {
			var e validation.ValidationErrors
			for i, port := range c.BackendPorts {
				if err := validation.RequiredString(fmt.Sprintf("BACKEND%d_PORT", i), port); err.Field != "" {
					e.AddError(err)
				}
			}
			return e
		}),
	)

	if errs.HasErrors() {
		return fmt.Errorf("%s", errs.Error())
	}

	c.logger.Debugf("configuration validated successfully")

	return nil
}
