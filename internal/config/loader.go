package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults] to fields left empty.
const (
	DefaultListenAddr        = ":8080"
	DefaultFuzzyThreshold    = 0.80
	DefaultPhoneticThreshold = 0.70
	DefaultExchange          = "orders_topic"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields of cfg with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Resolver.FuzzyThreshold == 0 {
		cfg.Resolver.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.Resolver.PhoneticThreshold == 0 {
		cfg.Resolver.PhoneticThreshold = DefaultPhoneticThreshold
	}
	if cfg.Resolver.ModificationScope == "" {
		cfg.Resolver.ModificationScope = ScopeLastItem
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = CatalogMemory
	}
	if cfg.Submit.Exchange == "" {
		cfg.Submit.Exchange = DefaultExchange
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Resolver
	res := cfg.Resolver
	if res.FuzzyThreshold < 0 || res.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("resolver.fuzzy_threshold %.2f is out of range (0, 1]", res.FuzzyThreshold))
	}
	if res.PhoneticThreshold < 0 || res.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("resolver.phonetic_threshold %.2f is out of range (0, 1]", res.PhoneticThreshold))
	}
	if res.ModificationScope != "" && !res.ModificationScope.IsValid() {
		errs = append(errs, fmt.Errorf("resolver.modification_scope %q is invalid; valid values: last_item, phrase", res.ModificationScope))
	}
	if res.FuzzyThreshold > 0 && res.FuzzyThreshold < 0.5 {
		slog.Warn("resolver.fuzzy_threshold is very low; unrelated words may resolve to menu items",
			"fuzzy_threshold", res.FuzzyThreshold,
		)
	}

	// Catalog
	switch cfg.Catalog.Source {
	case "":
	case CatalogMemory:
		if cfg.Catalog.MenuPath == "" {
			errs = append(errs, errors.New("catalog.menu_path is required when source is memory"))
		}
		if cfg.Catalog.PostgresDSN != "" {
			slog.Warn("catalog.postgres_dsn is ignored when source is memory")
		}
	case CatalogPostgres:
		if cfg.Catalog.PostgresDSN == "" {
			errs = append(errs, errors.New("catalog.postgres_dsn is required when source is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q is invalid; valid values: memory, postgres", cfg.Catalog.Source))
	}

	// Submit
	if u := cfg.Submit.AMQPURL; u != "" {
		if !strings.HasPrefix(u, "amqp://") && !strings.HasPrefix(u, "amqps://") {
			errs = append(errs, fmt.Errorf("submit.amqp_url %q must use the amqp:// or amqps:// scheme", redactURL(u)))
		}
	} else {
		slog.Warn("submit.amqp_url is empty; order submission is disabled")
	}

	// Telemetry
	if r := cfg.Telemetry.TraceSampleRatio; r != nil && (*r < 0 || *r > 1) {
		errs = append(errs, fmt.Errorf("telemetry.trace_sample_ratio %.2f is out of range [0, 1]", *r))
	}

	return errors.Join(errs...)
}

// redactURL hides the userinfo part of a URL so credentials never reach logs
// or error messages.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return u
}
