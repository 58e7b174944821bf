package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-gateway/internal/domain/product"
)

const sampleConfig = `
listen_addr: "127.0.0.1:9000"
health_addr: "127.0.0.1:9001"
public_url: "https://updates.example.com"
log_level: debug
channels: [beta, alpha]
upstream:
  timeout: 5s
  max_pages: 2
products:
  MyApp:
    owner: acme
    repo: myapp
    token: file-token
    channels: [fas2]
`

// TestParseAppliesDefaults fills in every optional setting.
func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("products: {myapp: {owner: acme, repo: myapp, token: t}}"), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Empty(t, cfg.HealthAddress)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.Equal(t, DefaultAPIURL, cfg.Upstream.APIURL)
	require.Equal(t, DefaultTimeout, cfg.Upstream.Timeout)
	require.Equal(t, DefaultMaxPages, cfg.Upstream.MaxPages)
	require.Equal(t, DefaultChannels(), cfg.Channels)
}

// TestParseFile decodes every field of the YAML layout.
func TestParseFile(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sampleConfig), nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, "127.0.0.1:9001", cfg.HealthAddress)
	require.Equal(t, "https://updates.example.com", cfg.PublicURL)
	require.Equal(t, []string{"beta", "alpha"}, cfg.Channels)
	require.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	require.Equal(t, 2, cfg.Upstream.MaxPages)

	registry, err := cfg.Registry()
	require.NoError(t, err)

	p, err := registry.Lookup("myapp")
	require.NoError(t, err)
	require.Equal(t, "acme/myapp", p.Slug())
	require.Equal(t, product.Credential("file-token"), p.Credential)
	require.Equal(t, []string{"fas2"}, p.Channels)
}

// TestApplyEnvDeclaresProducts discovers products from *_TOKEN/_OWNER/_REPO triples.
func TestApplyEnvDeclaresProducts(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil, []string{
		"MYAPP_TOKEN=env-token",
		"MYAPP_OWNER=acme",
		"MYAPP_REPO=myapp",
		"MYAPP_CHANNELS=beta, nightly",
		"GITHUB_TOKEN=unrelated",
		"ADDRESS=127.0.0.1",
		"PORT=8181",
		"PUBLIC_URL=http://localhost:8181",
		"LOG_LEVEL=warn",
		"CHANNELS=beta,rc",
	})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8181", cfg.ListenAddress)
	require.Equal(t, "http://localhost:8181", cfg.PublicURL)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, []string{"beta", "rc"}, cfg.Channels)
	require.Len(t, cfg.Products, 1)

	p := cfg.Products["myapp"]
	require.NotNil(t, p)
	require.Equal(t, "acme", p.Owner)
	require.Equal(t, "myapp", p.Repo)
	require.Equal(t, "env-token", p.Token)
	require.Equal(t, []string{"beta", "nightly"}, p.Channels)
}

// TestApplyEnvOverridesFile lets the environment replace file values field by field.
func TestApplyEnvOverridesFile(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(sampleConfig), []string{"MYAPP_TOKEN=rotated", "PORT=7000"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.ListenAddress)
	require.Len(t, cfg.Products, 1)

	p := cfg.Products["MyApp"]
	require.Equal(t, "rotated", p.Token)
	require.Equal(t, "acme", p.Owner)
	require.Equal(t, []string{"fas2"}, p.Channels)
}

// TestValidate rejects malformed settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{Products: map[string]*Product{"myapp": {Owner: "acme", Repo: "myapp", Token: "t"}}}
	}

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
	require.ErrorIs(t, Validate(new(Config)), errNoProducts)
	require.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.ListenAddress = "no-port"
	require.Error(t, Validate(cfg))

	cfg = valid()
	cfg.HealthAddress = "bad"
	require.Error(t, Validate(cfg))

	cfg = valid()
	cfg.PublicURL = "updates.example.com"
	require.ErrorIs(t, Validate(cfg), errBadPublicURL)

	cfg = valid()
	cfg.LogLevel = "verbose"
	require.ErrorIs(t, Validate(cfg), errBadLogLevel)

	cfg = valid()
	cfg.Products["myapp"].Token = ""
	require.ErrorIs(t, Validate(cfg), product.ErrInvalidProduct)

	cfg = valid()
	cfg.Products["MYAPP"] = &Product{Owner: "acme", Repo: "other", Token: "t"}
	require.Error(t, Validate(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg, err := Parse([]byte(sampleConfig), nil)
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := Parse(contents, nil)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

// TestLoadMissingExplicitFile fails when the named file does not exist.
func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestSampleNeedsTokenFromEnvironment keeps secrets out of the starter file.
func TestSampleNeedsTokenFromEnvironment(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, Save(path, Sample()))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "token")

	_, err = Parse(contents, nil)
	require.ErrorIs(t, err, product.ErrInvalidProduct)

	cfg, err := Parse(contents, []string{"MYAPP_TOKEN=from-env"})
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Products["myapp"].Token)
}
