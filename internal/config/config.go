// Package config handles loading and validation of session configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/shopspring/decimal"
	"golang.org/x/mod/semver"

	"shopsync/internal/model"
)

// Defaults applied when a setting is absent.
const (
	DefaultAPIBaseURL = "http://localhost:8000/api"
	DefaultTimeout    = 10 * time.Second
)

// Config holds all service configuration.
// Environment determines whether the store config loads from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	ClientID   string

	// StatePath is the SQLite file backing the persistent scope.
	// Empty keeps all state in memory.
	StatePath string

	// Store-specific configuration (loaded from secrets in production)
	Store StoreConfig
}

// StoreConfig describes the remote store the session synchronizes with.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	APIBaseURL string `json:"api_base_url"`
	CatalogURL string `json:"catalog_url,omitempty"` // Defaults to APIBaseURL

	// Timeout is a Go duration string, e.g. "10s".
	Timeout string `json:"timeout,omitempty"`

	// TLSFingerprint sends requests through the browser-fingerprint transport.
	TLSFingerprint bool `json:"tls_fingerprint,omitempty"`

	// MinAPIVersion is the oldest API-Version the session expects.
	MinAPIVersion string `json:"min_api_version,omitempty"`

	Currency    string           `json:"currency,omitempty"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all fields and returns an error if any are malformed.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		ClientID:    os.Getenv("CLIENT_ID"),
		StatePath:   os.Getenv("STATE_PATH"),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.ClientID == "" {
			return nil, fmt.Errorf("CLIENT_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string      `json:"port"`
		Environment string      `json:"environment"`
		LogLevel    string      `json:"log_level"`
		ClientID    string      `json:"client_id"`
		StatePath   string      `json:"state_path"`
		Store       StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		ClientID:    fileConfig.ClientID,
		StatePath:   fileConfig.StatePath,
		Store:       fileConfig.Store,
	}

	if cfg.Store.APIBaseURL == "" {
		return nil, fmt.Errorf("store.api_base_url is required")
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches the store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{client_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.ClientID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads the store config from individual environment variables.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		APIBaseURL:    envOrDefault("API_BASE_URL", DefaultAPIBaseURL),
		CatalogURL:    os.Getenv("CATALOG_URL"),
		Timeout:       os.Getenv("API_TIMEOUT"),
		MinAPIVersion: os.Getenv("MIN_API_VERSION"),
		Currency:      os.Getenv("CURRENCY"),
	}

	if raw := os.Getenv("TLS_FINGERPRINT"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parsing TLS_FINGERPRINT: %w", err)
		}
		c.Store.TLSFingerprint = on
	}

	if raw := os.Getenv("DELIVERY_FEE"); raw != "" {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parsing DELIVERY_FEE: %w", err)
		}
		c.Store.DeliveryFee = &fee
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Store.APIBaseURL = strings.TrimSuffix(c.Store.APIBaseURL, "/")
	c.Store.CatalogURL = strings.TrimSuffix(c.Store.CatalogURL, "/")
	if c.Store.CatalogURL == "" {
		c.Store.CatalogURL = c.Store.APIBaseURL
	}
	if c.Store.Currency == "" {
		c.Store.Currency = model.DefaultCurrency
	}
	if c.Store.DeliveryFee == nil {
		fee := decimal.NewFromInt(model.DefaultDeliveryFee)
		c.Store.DeliveryFee = &fee
	}
}

// validate checks that every configured value is well-formed.
func (c *Config) validate() error {
	if err := checkURL("api_base_url", c.Store.APIBaseURL); err != nil {
		return err
	}
	if err := checkURL("catalog_url", c.Store.CatalogURL); err != nil {
		return err
	}

	if c.Store.Timeout != "" {
		d, err := time.ParseDuration(c.Store.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.Store.Timeout)
		}
	}

	if v := c.Store.MinAPIVersion; v != "" && !semver.IsValid(normalizeVersion(v)) {
		return fmt.Errorf("min_api_version %q is not a semantic version", v)
	}

	if c.Store.DeliveryFee != nil && c.Store.DeliveryFee.IsNegative() {
		return fmt.Errorf("delivery_fee cannot be negative")
	}
	return nil
}

// RequestTimeout returns the configured remote timeout, or DefaultTimeout.
func (s StoreConfig) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultTimeout
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
