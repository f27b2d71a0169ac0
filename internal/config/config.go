// Package config assembles the immutable runtime configuration from
// environment variables and an optional acctd.yaml file. The struct is built
// once at startup and passed explicitly; nothing reads viper after Load
// returns.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Environment string

	DB      DB
	Auth    Auth
	SSO     SSO
	Compose Compose
	Server  Server
}

// DB holds SQL Server connection settings. The connection string is
// assembled ODBC-style from these parts.
type DB struct {
	Server   string
	Database string
	User     string
	Password string
	// Auth selects the authentication mode: "sql" for user/password,
	// "windows" for integrated security.
	Auth    string
	Encrypt bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Auth holds token and cookie settings.
type Auth struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SecureCookie    bool
	SameSite        string
}

// SSO holds the F5-style header trust settings used outside the local
// environment.
type SSO struct {
	UserHeader         string
	GroupsHeader       string
	GroupsDelimiter    string
	AdminGroup         string
	DirectorGroup      string
	UnderwriterGroup   string
	SharedSecretHeader string
	SharedSecret       string
}

// Compose holds the Outlook compose-link settings.
type Compose struct {
	Enabled         bool
	BaseURL         string
	MaxRecipients   int
	AllowedDomains  []string
	SubjectTemplate string
	BodyTemplate    string
}

// Server holds HTTP listener settings.
type Server struct {
	Host            string
	Port            int
	CORSOrigins     []string
	LoginRateLimit  int
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// IsLocal reports whether local credential login applies instead of SSO
// headers.
func (c Config) IsLocal() bool {
	return strings.TrimSpace(strings.ToLower(c.Environment)) == "local"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "local")

	v.SetDefault("db.auth", "sql")
	v.SetDefault("db.encrypt", true)
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "5m")
	v.SetDefault("db.conn_max_idle_time", "5m")

	v.SetDefault("auth.access_token_validity", 30)
	v.SetDefault("auth.refresh_token_validity", 1440)
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.same_site", "lax")

	v.SetDefault("sso.user_header", "X-Forwarded-User")
	v.SetDefault("sso.groups_header", "X-Forwarded-Groups")
	v.SetDefault("sso.groups_delimiter", ",")
	v.SetDefault("sso.shared_secret_header", "X-SSO-Secret")

	v.SetDefault("compose.enabled", true)
	v.SetDefault("compose.base_url", "https://outlook.office.com/mail/deeplink/compose")
	v.SetDefault("compose.max_recipients", 50)
	v.SetDefault("compose.subject_template", "Loss Run Report Distribution")
	v.SetDefault("compose.body_template", "Hi,\n\nPlease see the loss run report.\n\nThanks,")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.login_rate_limit", 10)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_size", 10*1024*1024)
}

// Load builds a Config from the given viper instance, applying defaults and
// validating the settings the process cannot run without. Token validity
// settings are minutes, matching the legacy deployment environment.
func Load(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		Environment: v.GetString("environment"),
		DB: DB{
			Server:          v.GetString("db.server"),
			Database:        v.GetString("db.name"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			Auth:            strings.ToLower(v.GetString("db.auth")),
			Encrypt:         v.GetBool("db.encrypt"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db.conn_max_idle_time"),
		},
		Auth: Auth{
			SecretKey:       v.GetString("auth.secret_key"),
			AccessTokenTTL:  time.Duration(v.GetInt("auth.access_token_validity")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("auth.refresh_token_validity")) * time.Minute,
			SecureCookie:    v.GetBool("auth.secure_cookie"),
			SameSite:        strings.ToLower(v.GetString("auth.same_site")),
		},
		SSO: SSO{
			UserHeader:         v.GetString("sso.user_header"),
			GroupsHeader:       v.GetString("sso.groups_header"),
			GroupsDelimiter:    v.GetString("sso.groups_delimiter"),
			AdminGroup:         v.GetString("sso.admin_group"),
			DirectorGroup:      v.GetString("sso.director_group"),
			UnderwriterGroup:   v.GetString("sso.underwriter_group"),
			SharedSecretHeader: v.GetString("sso.shared_secret_header"),
			SharedSecret:       v.GetString("sso.shared_secret"),
		},
		Compose: Compose{
			Enabled:         v.GetBool("compose.enabled"),
			BaseURL:         v.GetString("compose.base_url"),
			MaxRecipients:   v.GetInt("compose.max_recipients"),
			AllowedDomains:  splitList(v.GetString("compose.allowed_domains")),
			SubjectTemplate: v.GetString("compose.subject_template"),
			BodyTemplate:    v.GetString("compose.body_template"),
		},
		Server: Server{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			LoginRateLimit:  v.GetInt("server.login_rate_limit"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("server.max_body_size"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}
	if c.DB.Server == "" {
		return fmt.Errorf("db.server is required")
	}
	if c.DB.Database == "" {
		return fmt.Errorf("db.name is required")
	}
	switch c.DB.Auth {
	case "sql", "windows":
	default:
		return fmt.Errorf("db.auth must be \"sql\" or \"windows\", got %q", c.DB.Auth)
	}
	switch c.Auth.SameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("auth.same_site must be lax, strict, or none, got %q", c.Auth.SameSite)
	}
	return nil
}

// splitList parses a comma-separated env value into a trimmed slice.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
