package config

import (
	"net"
	"strings"
)

// Environment variable names and suffixes.
const (
	envAddress   = "ADDRESS"
	envPort      = "PORT"
	envPublicURL = "PUBLIC_URL"
	envLogLevel  = "LOG_LEVEL"
	envChannels  = "CHANNELS"

	suffixToken    = "_TOKEN"
	suffixOwner    = "_OWNER"
	suffixRepo     = "_REPO"
	suffixChannels = "_CHANNELS"

	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

// ApplyEnv overlays environ (KEY=VALUE pairs, as from os.Environ) onto cfg.
//
// A product is declared by <PRODUCT>_TOKEN together with <PRODUCT>_OWNER and
// <PRODUCT>_REPO; the identifier is the lower-cased prefix. Variables for a
// product already present in the file override its fields individually.
func ApplyEnv(cfg *Config, environ []string) {
	env := make(map[string]string, len(environ))

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok && key != "" {
			env[key] = value
		}
	}

	applyListenAddress(cfg, env)

	if v := env[envPublicURL]; v != "" {
		cfg.PublicURL = v
	}

	if v := env[envLogLevel]; v != "" {
		cfg.LogLevel = v
	}

	if channels := splitList(env[envChannels]); len(channels) > 0 {
		cfg.Channels = channels
	}

	applyProducts(cfg, env)
}

// applyListenAddress honors ADDRESS and PORT, each defaulting independently.
func applyListenAddress(cfg *Config, env map[string]string) {
	host, hasHost := env[envAddress]
	port, hasPort := env[envPort]

	if !hasHost && !hasPort {
		return
	}

	currentHost, currentPort, err := net.SplitHostPort(cfg.ListenAddress)
	if err != nil {
		currentHost, currentPort = defaultHost, defaultPort
	}

	if !hasHost || host == "" {
		host = currentHost
	}

	if !hasPort || port == "" {
		port = currentPort
	}

	cfg.ListenAddress = net.JoinHostPort(host, port)
}

func applyProducts(cfg *Config, env map[string]string) {
	for key, token := range env {
		prefix, ok := strings.CutSuffix(key, suffixToken)
		if !ok || prefix == "" {
			continue
		}

		id := strings.ToLower(prefix)
		existing := cfg.lookupProduct(id)

		owner, repo := env[prefix+suffixOwner], env[prefix+suffixRepo]
		if existing == nil && (owner == "" || repo == "") {
			// Incomplete declarations are ignored, like unrelated *_TOKEN variables.
			continue
		}

		if existing == nil {
			if cfg.Products == nil {
				cfg.Products = make(map[string]*Product)
			}

			existing = new(Product)
			cfg.Products[id] = existing
		}

		existing.Token = token

		if owner != "" {
			existing.Owner = owner
		}

		if repo != "" {
			existing.Repo = repo
		}

		if channels := splitList(env[prefix+suffixChannels]); len(channels) > 0 {
			existing.Channels = channels
		}
	}
}

// lookupProduct finds a product by identifier, ignoring case.
func (c *Config) lookupProduct(id string) *Product {
	for key, p := range c.Products {
		if strings.EqualFold(key, id) {
			if p == nil {
				p = new(Product)
				c.Products[key] = p
			}

			return p
		}
	}

	return nil
}

func splitList(s string) []string {
	var result []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}
