package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// SessionSecret signs the session-id cookie.
	// Generate with: openssl rand -base64 32
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	// UseCasesPath points to the curated use-case metadata file.
	UseCasesPath string `yaml:"usecases_path" env:"USECASES_PATH" env-default:"usecases.yaml"`

	// SupportContact is suggested to users when the assistant cannot answer.
	SupportContact string `yaml:"support_contact" env:"SUPPORT_CONTACT" env-default:""`

	// CompanyEmailDomain restricts who may file bug reports.
	CompanyEmailDomain string `yaml:"company_email_domain" env:"COMPANY_EMAIL_DOMAIN" env-default:"example"`

	// AuditTimezone is the fixed timezone for audit timestamps.
	AuditTimezone string `yaml:"audit_timezone" env:"AUDIT_TIMEZONE" env-default:"Europe/Lisbon"`

	// SchemaCacheTTLMinutes bounds how long built schema contexts are reused.
	SchemaCacheTTLMinutes int `yaml:"schema_cache_ttl_minutes" env:"SCHEMA_CACHE_TTL_MINUTES" env-default:"60"`

	// AI model endpoint configuration
	AI AIConfig `yaml:"ai"`

	// Warehouse connection configuration
	Warehouse WarehouseConfig `yaml:"warehouse"`

	// Audit store table layout
	Audit AuditConfig `yaml:"audit"`
}

// AIConfig holds completion-provider configuration.
type AIConfig struct {
	// Provider selects the completion provider: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	// Endpoint overrides the provider base URL. Empty uses the provider default.
	Endpoint     string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`
	Model        string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o"`
	APIKey       string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Organization string `yaml:"organization" env:"AI_ORGANIZATION" env-default:""`
}

// WarehouseConfig holds warehouse connection settings.
// Type selects the adapter; the remaining fields are interpreted per adapter.
type WarehouseConfig struct {
	Type string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"snowflake"`

	// Snowflake account identifier (e.g. "org-account"). Ignored by other adapters.
	Account string `yaml:"account" env:"WAREHOUSE_ACCOUNT" env-default:""`
	// Host/Port for postgres and mssql adapters.
	Host string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"0"`

	User     string `yaml:"user" env:"WAREHOUSE_USER"`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"WAREHOUSE_DATABASE"`
	Schema   string `yaml:"schema" env:"WAREHOUSE_SCHEMA" env-default:"PUBLIC"`

	// Snowflake-only: compute warehouse and role.
	Warehouse string `yaml:"warehouse" env:"WAREHOUSE_WAREHOUSE" env-default:""`
	Role      string `yaml:"role" env:"WAREHOUSE_ROLE" env-default:""`

	// Postgres-only.
	SSLMode string `yaml:"ssl_mode" env:"WAREHOUSE_SSL_MODE" env-default:"disable"`
}

// AuditConfig holds the audit store table layout.
// The audit tables live in the same warehouse the assistant queries.
type AuditConfig struct {
	Database         string `yaml:"database" env:"AUDIT_DATABASE"`
	Schema           string `yaml:"schema" env:"AUDIT_SCHEMA"`
	ChatHistoryTable string `yaml:"chat_history_table" env:"AUDIT_CHAT_HISTORY_TABLE" env-default:"CHAT_HISTORY"`
	BugReportsTable  string `yaml:"bug_reports_table" env:"AUDIT_BUG_REPORTS_TABLE" env-default:"BUG_REPORTS"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported ai provider: %q", c.AI.Provider)
	}

	if c.SchemaCacheTTLMinutes <= 0 {
		return fmt.Errorf("schema_cache_ttl_minutes must be positive, got %d", c.SchemaCacheTTLMinutes)
	}

	if _, err := time.LoadLocation(c.AuditTimezone); err != nil {
		return fmt.Errorf("invalid audit_timezone %q: %w", c.AuditTimezone, err)
	}

	return nil
}

// SchemaCacheTTL returns the schema cache TTL as a duration.
func (c *Config) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheTTLMinutes) * time.Minute
}

// AuditLocation returns the configured audit timezone.
// Validate has already checked the name resolves.
func (c *Config) AuditLocation() *time.Location {
	loc, err := time.LoadLocation(c.AuditTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
