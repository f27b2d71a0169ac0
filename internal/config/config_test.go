package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func minimalViper() *viper.Viper {
	v := viper.New()
	v.Set("auth.secret_key", "test-secret")
	v.Set("db.server", "sqlhost")
	v.Set("db.name", "AcctDB")
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(minimalViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.IsLocal() {
		t.Error("default environment should be local")
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Auth.SameSite != "lax" {
		t.Errorf("SameSite = %q", cfg.Auth.SameSite)
	}
	if cfg.DB.Auth != "sql" {
		t.Errorf("DB.Auth = %q", cfg.DB.Auth)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Compose.MaxRecipients != 50 {
		t.Errorf("MaxRecipients = %d", cfg.Compose.MaxRecipients)
	}
	if cfg.SSO.GroupsDelimiter != "," {
		t.Errorf("GroupsDelimiter = %q", cfg.SSO.GroupsDelimiter)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	v := minimalViper()
	v.Set("auth.secret_key", "")
	_, err := Load(v)
	if err == nil || !strings.Contains(err.Error(), "secret_key") {
		t.Errorf("expected secret_key error, got %v", err)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	v := minimalViper()
	v.Set("db.server", "")
	if _, err := Load(v); err == nil {
		t.Error("expected error for missing db.server")
	}

	v = minimalViper()
	v.Set("db.name", "")
	if _, err := Load(v); err == nil {
		t.Error("expected error for missing db.name")
	}
}

func TestLoadValidatesEnums(t *testing.T) {
	v := minimalViper()
	v.Set("db.auth", "kerberos")
	if _, err := Load(v); err == nil {
		t.Error("expected error for unknown db.auth mode")
	}

	v = minimalViper()
	v.Set("auth.same_site", "sometimes")
	if _, err := Load(v); err == nil {
		t.Error("expected error for unknown same_site value")
	}
}

func TestLoadParsesAllowedDomains(t *testing.T) {
	v := minimalViper()
	v.Set("compose.allowed_domains", "example.com, corp.example.com ,")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Compose.AllowedDomains) != 2 {
		t.Fatalf("AllowedDomains = %v", cfg.Compose.AllowedDomains)
	}
	if cfg.Compose.AllowedDomains[1] != "corp.example.com" {
		t.Errorf("AllowedDomains[1] = %q", cfg.Compose.AllowedDomains[1])
	}
}

func TestIsLocalNormalizes(t *testing.T) {
	v := minimalViper()
	v.Set("environment", "  LOCAL ")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsLocal() {
		t.Error("environment LOCAL (padded) should count as local")
	}

	v = minimalViper()
	v.Set("environment", "production")
	cfg, err = Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IsLocal() {
		t.Error("production should not be local")
	}
}
