// Package config loads the answergrid TOML configuration file and turns
// it into the typed structures the services consume. Secrets never live
// in the file itself: fields ending in _env name the environment variable
// that holds the value.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// Config is the full decoded configuration file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Resolver ResolverConfig `toml:"resolver"`
	Tenants  []TenantConfig `toml:"tenants"`
}

// ServerConfig configures the HTTP ingress.
type ServerConfig struct {
	// Addr is the listen address, defaulting to ":8080".
	Addr string `toml:"addr"`

	// WebhookSecretEnv names the env var holding the shared webhook
	// signing secret. Empty (or an unset variable) means unsigned mode.
	WebhookSecretEnv string `toml:"webhook_secret_env"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	// Backend is "sqlite" or "memory". Defaults to "sqlite".
	Backend string `toml:"backend"`

	// DataDir is where the SQLite database lives. Empty uses the
	// store's default under the home directory.
	DataDir string `toml:"data_dir"`
}

// OpenAIConfig configures the embedding and generation adapters.
type OpenAIConfig struct {
	// APIKeyEnv names the env var holding the API key. Defaults to
	// "OPENAI_API_KEY".
	APIKeyEnv string `toml:"api_key_env"`

	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string `toml:"base_url"`

	// RequestsPerSecond throttles outbound API calls. Zero uses the
	// adapter default.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ResolverConfig configures tenant identifier resolution.
type ResolverConfig struct {
	// DemoMode routes unknown aliases to DefaultTenant instead of
	// failing. Warned about on startup and on every fallback.
	DemoMode bool `toml:"demo_mode"`

	// DefaultTenant is the canonical id unknown aliases fall back to
	// when demo mode is on.
	DefaultTenant string `toml:"default_tenant"`
}

// TenantConfig declares one tenant, its alias and its connectors.
type TenantConfig struct {
	ID         string            `toml:"id"`
	Slug       string            `toml:"slug"`
	Settings   SettingsConfig    `toml:"settings"`
	Connectors []ConnectorConfig `toml:"connectors"`
}

// SettingsConfig holds per-tenant model and retrieval tuning. Unset
// fields fall back to the domain defaults.
type SettingsConfig struct {
	EmbeddingModel string  `toml:"embedding_model"`
	ChatModel      string  `toml:"chat_model"`
	RetrievalLimit int     `toml:"retrieval_limit"`
	ScoreThreshold float64 `toml:"score_threshold"`
}

// ConnectorConfig declares one external source for a tenant.
type ConnectorConfig struct {
	Kind     string `toml:"kind"`
	Endpoint string `toml:"endpoint"`

	// APIKeyEnv and WebhookSecretEnv name env vars; the values are
	// resolved at load time and never written back.
	APIKeyEnv        string `toml:"api_key_env"`
	WebhookSecretEnv string `toml:"webhook_secret_env"`

	// PollIntervalSeconds overrides the scheduler default for this
	// connector.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath returns ~/.answergrid/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".answergrid", "config.toml"), nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage backend %q: %w", c.Storage.Backend, domain.ErrInvalidInput)
	}

	seenIDs := make(map[string]struct{}, len(c.Tenants))
	seenSlugs := make(map[string]struct{}, len(c.Tenants))
	for _, t := range c.Tenants {
		if !domain.IsCanonical(t.ID) {
			return fmt.Errorf("tenant id %q is not canonical: %w", t.ID, domain.ErrInvalidInput)
		}
		if _, dup := seenIDs[t.ID]; dup {
			return fmt.Errorf("duplicate tenant id %q: %w", t.ID, domain.ErrInvalidInput)
		}
		seenIDs[t.ID] = struct{}{}

		if t.Slug != "" {
			if _, dup := seenSlugs[t.Slug]; dup {
				return fmt.Errorf("duplicate tenant slug %q: %w", t.Slug, domain.ErrInvalidInput)
			}
			seenSlugs[t.Slug] = struct{}{}
		}

		for _, conn := range t.Connectors {
			if !domain.SourceKind(conn.Kind).IsValid() {
				return fmt.Errorf("tenant %q connector kind %q: %w", t.ID, conn.Kind, domain.ErrInvalidInput)
			}
			if conn.Endpoint == "" && conn.Kind != string(domain.SourceManualUpload) {
				return fmt.Errorf("tenant %q connector %q has no endpoint: %w", t.ID, conn.Kind, domain.ErrInvalidInput)
			}
		}
	}

	if c.Resolver.DemoMode {
		if c.Resolver.DefaultTenant == "" {
			return fmt.Errorf("demo mode needs a default tenant: %w", domain.ErrInvalidInput)
		}
		if _, ok := seenIDs[c.Resolver.DefaultTenant]; !ok {
			return fmt.Errorf("default tenant %q is not declared: %w", c.Resolver.DefaultTenant, domain.ErrInvalidInput)
		}
	}
	return nil
}

// WebhookSecret resolves the shared webhook signing secret from the
// environment. Empty means unsigned mode.
func (c *Config) WebhookSecret() string {
	if c.Server.WebhookSecretEnv == "" {
		return ""
	}
	return os.Getenv(c.Server.WebhookSecretEnv)
}

// OpenAIKey resolves the OpenAI API key from the environment.
func (c *Config) OpenAIKey() string {
	return os.Getenv(c.OpenAI.APIKeyEnv)
}

// BuildTenants materialises the declared tenants as domain values, with
// connector credentials resolved from the environment.
func (c *Config) BuildTenants() []domain.Tenant {
	tenants := make([]domain.Tenant, 0, len(c.Tenants))
	for _, tc := range c.Tenants {
		tenant := domain.Tenant{
			ID:   domain.TenantID(tc.ID),
			Slug: tc.Slug,
			Settings: domain.TenantSettings{
				EmbeddingModel: tc.Settings.EmbeddingModel,
				ChatModel:      tc.Settings.ChatModel,
				RetrievalLimit: tc.Settings.RetrievalLimit,
				ScoreThreshold: tc.Settings.ScoreThreshold,
			},
			Connectors: make(map[domain.SourceKind]domain.ConnectorConfig, len(tc.Connectors)),
		}
		for _, conn := range tc.Connectors {
			kind := domain.SourceKind(conn.Kind)
			tenant.Connectors[kind] = domain.ConnectorConfig{
				Kind:          kind,
				Endpoint:      conn.Endpoint,
				APIKey:        os.Getenv(conn.APIKeyEnv),
				WebhookSecret: os.Getenv(conn.WebhookSecretEnv),
				PollInterval:  conn.PollIntervalSeconds,
			}
		}
		tenants = append(tenants, tenant)
	}
	return tenants
}

// BuildRoutingTable builds the alias snapshot at a given version.
func (c *Config) BuildRoutingTable(version int64) *domain.RoutingTable {
	aliases := make(map[string]domain.TenantID, len(c.Tenants))
	for _, t := range c.Tenants {
		if t.Slug != "" {
			aliases[t.Slug] = domain.TenantID(t.ID)
		}
	}
	return &domain.RoutingTable{
		Version:       version,
		Aliases:       aliases,
		DefaultTenant: domain.TenantID(c.Resolver.DefaultTenant),
	}
}
