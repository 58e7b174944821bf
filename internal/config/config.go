package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-gateway/internal/domain/product"
	"github.com/oshokin/update-gateway/internal/logger"
)

// Config holds the gateway settings.
type Config struct {
	// ListenAddress is the address of the public HTTP listener.
	ListenAddress string `yaml:"listen_addr"`
	// HealthAddress is the address of the gRPC health listener; empty disables it.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// PublicURL is the origin used in manifest download URLs.
	// Empty means it is derived from each request.
	PublicURL string `yaml:"public_url,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format"`
	// Channels lists named channels recognized for every product.
	// Empty means DefaultChannels.
	Channels []string `yaml:"channels,omitempty"`
	// Upstream configures access to the release host.
	Upstream Upstream `yaml:"upstream"`
	// Products maps product identifiers to their repositories.
	Products map[string]*Product `yaml:"products,omitempty"`
}

// Upstream configures the release host API.
type Upstream struct {
	// APIURL is the REST API root.
	APIURL string `yaml:"api_url"`
	// Timeout bounds API calls and the time to the first byte of a download.
	Timeout time.Duration `yaml:"timeout"`
	// MaxPages bounds how many pages of releases are listed.
	MaxPages int `yaml:"max_pages"`
}

// Product is one configured repository.
type Product struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	// Token is the upstream credential. Prefer <PRODUCT>_TOKEN over storing it in the file.
	Token    string   `yaml:"token,omitempty"`
	Channels []string `yaml:"channels,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for gateway settings.
	DefaultConfigFilename = "update-gateway.yaml"

	// DefaultListenAddress matches the classic ADDRESS/PORT defaults.
	DefaultListenAddress = "0.0.0.0:8080"

	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultTimeout is the default duration for upstream calls and health probes.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxPages is the default number of release pages listed.
	DefaultMaxPages = 3

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultChannels returns the channels recognized when neither the file nor CHANNELS lists any.
// Their prefixed assets never reach stable clients.
func DefaultChannels() []string {
	return []string{"beta", "alpha", "nightly"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoProducts is returned when neither the file nor the environment declares a product.
	errNoProducts = errors.New("no products configured")
	// errBadLogLevel is returned for unknown log levels.
	errBadLogLevel = errors.New("unknown log level")
	// errBadPublicURL is returned when the public URL is not an absolute http(s) URL.
	errBadPublicURL = errors.New("public url must be an absolute http or https url")
)

// Load reads the settings from path, overlays the process environment and validates the result.
// A missing file is not an error when path is empty, so the gateway can run from environment alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		contents = nil
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	return Parse(contents, os.Environ())
}

// Parse decodes YAML contents, applies the environment overlay and validates the result.
func Parse(contents []byte, environ []string) (*Config, error) {
	cfg := new(Config)

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	ApplyEnv(cfg, environ)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold tokens.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.HealthAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	if cfg.PublicURL != "" {
		u, err := url.Parse(cfg.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", errBadPublicURL, cfg.PublicURL)
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errBadLogLevel, cfg.LogLevel)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = logger.FormatConsole
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}

	if cfg.Upstream.APIURL == "" {
		cfg.Upstream.APIURL = DefaultAPIURL
	}

	if _, err := url.ParseRequestURI(cfg.Upstream.APIURL); err != nil {
		return fmt.Errorf("invalid upstream api url: %w", err)
	}

	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = DefaultTimeout
	}

	if cfg.Upstream.MaxPages <= 0 {
		cfg.Upstream.MaxPages = DefaultMaxPages
	}

	if len(cfg.Products) == 0 {
		return errNoProducts
	}

	// Registry construction validates each product definition.
	if _, err := cfg.Registry(); err != nil {
		return err
	}

	return nil
}

// ProductList converts the configured products into domain values, sorted by identifier.
func (c *Config) ProductList() []product.Product {
	ids := make([]string, 0, len(c.Products))
	for id := range c.Products {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	result := make([]product.Product, 0, len(ids))

	for _, id := range ids {
		p := c.Products[id]
		if p == nil {
			p = new(Product)
		}

		result = append(result, product.Product{
			ID:         id,
			Owner:      p.Owner,
			Repo:       p.Repo,
			Credential: product.Credential(p.Token),
			Channels:   p.Channels,
		})
	}

	return result
}

// Registry builds the immutable product registry.
func (c *Config) Registry() (*product.Registry, error) {
	registry, err := product.NewRegistry(c.ProductList())
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}

	return registry, nil
}

// Sample returns a starter configuration with defaults and one example product without a token.
func Sample() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		HealthAddress: "127.0.0.1:8081",
		LogLevel:      "info",
		LogFormat:     "console",
		Channels:      []string{"beta"},
		Upstream: Upstream{
			APIURL:   DefaultAPIURL,
			Timeout:  DefaultTimeout,
			MaxPages: DefaultMaxPages,
		},
		Products: map[string]*Product{
			"myapp": {Owner: "acme", Repo: "myapp"},
		},
	}
}
