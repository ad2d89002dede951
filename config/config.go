package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"badgereq/badge"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyServerPort           = "server.port"
	KeyServerRequestTimeout = "server.request_timeout"
	KeyServerSessionTTL     = "server.session_ttl"
	KeyServerSendRateLimit  = "server.send_rate_limit"
	KeyLogFormat            = "log.format"
	KeyLogLevel             = "log.level"
	KeyDatabaseDriver       = "database.driver"
	KeyDatabasePath         = "database.path"
	KeyDatabaseDSN          = "database.dsn"
	KeyDatabaseSupabaseURL  = "database.supabase_url"
	KeyDatabaseSupabaseKey  = "database.supabase_key"
	KeyDatabaseTable        = "database.table"
	KeyMailBaseURL          = "mail.base_url"
	KeyMailAPIKey           = "mail.api_key"
	KeyMailFrom             = "mail.from"
	KeyMailTo               = "mail.to"
	KeyMailTimeout          = "mail.timeout"
	KeyCompanies            = "companies"

	EnvPrefix = "BADGEREQ"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
	Database  DatabaseConfig `mapstructure:"database"`
	Mail      MailConfig     `mapstructure:"mail"`
	Companies []string       `mapstructure:"companies" validate:"required,min=1,unique,dive,required"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	// SendRateLimit is the number of send requests allowed per client per minute.
	SendRateLimit int `mapstructure:"send_rate_limit" validate:"gte=0"`
}

type LogConfig struct {
	Format string `mapstructure:"format" validate:"oneof=text json"`
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=sqlite postgres supabase"`
	Path        string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	SupabaseURL string `mapstructure:"supabase_url" validate:"required_if=Driver supabase"`
	SupabaseKey string `mapstructure:"supabase_key" validate:"required_if=Driver supabase"`
	Table       string `mapstructure:"table"`
}

type MailConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	From    string        `mapstructure:"from"`
	To      string        `mapstructure:"to"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// CompanyList returns the configured companies as domain values.
func (c Config) CompanyList() []badge.Company {
	out := make([]badge.Company, 0, len(c.Companies))
	for _, name := range c.Companies {
		out = append(out, badge.Company(strings.TrimSpace(name)))
	}
	return out
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// BindEnv makes every key readable from BADGEREQ_* variables and accepts the
// unprefixed Resend and PORT variables as fallbacks.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		KeyServerPort:  "PORT",
		KeyMailAPIKey:  "RESEND_API_KEY",
		KeyMailFrom:    "RESEND_FROM",
		KeyMailTo:      "RESEND_TEST_TO",
		KeyDatabaseDSN: "DATABASE_URL",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# badgereq configuration
server:
  port: 3000
  request_timeout: 15s
  session_ttl: 2h
  send_rate_limit: 10

log:
  format: text
  level: info

database:
  driver: sqlite   # sqlite | postgres | supabase
  path: badgereq.db
  dsn: ""
  supabase_url: ""
  supabase_key: ""
  table: badge_requests

mail:
  base_url: "https://api.resend.com"
  api_key: ""      # or RESEND_API_KEY
  from: ""         # or RESEND_FROM
  to: ""           # or RESEND_TEST_TO
  timeout: 10s

companies:
  - Link
  - Impact
  - Other
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateCompanies(cfg.Companies); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerPort, 3000)
	v.SetDefault(KeyServerRequestTimeout, 15*time.Second)
	v.SetDefault(KeyServerSessionTTL, 2*time.Hour)
	v.SetDefault(KeyServerSendRateLimit, 10)
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDatabaseDriver, DriverSQLite)
	v.SetDefault(KeyDatabasePath, "badgereq.db")
	v.SetDefault(KeyDatabaseDSN, "")
	v.SetDefault(KeyDatabaseSupabaseURL, "")
	v.SetDefault(KeyDatabaseSupabaseKey, "")
	v.SetDefault(KeyDatabaseTable, "badge_requests")
	v.SetDefault(KeyMailBaseURL, "https://api.resend.com")
	v.SetDefault(KeyMailAPIKey, "")
	v.SetDefault(KeyMailFrom, "")
	v.SetDefault(KeyMailTo, "")
	v.SetDefault(KeyMailTimeout, 10*time.Second)
	v.SetDefault(KeyCompanies, []string{
		string(badge.CompanyLink),
		string(badge.CompanyImpact),
		string(badge.CompanyOther),
	})
}

// validateCompanies rejects names that differ only in case or surrounding space.
func validateCompanies(companies []string) error {
	seen := make(map[string]struct{}, len(companies))
	for i, company := range companies {
		name := strings.TrimSpace(company)
		if name == "" {
			return fmt.Errorf("validation failed: companies[%d] is empty", i)
		}
		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("validation failed: duplicate company %q", name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
