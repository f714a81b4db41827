package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rafalsk/botan/internal/retry"
	"github.com/rafalsk/botan/internal/spec"
	"github.com/rafalsk/botan/internal/weight"
)

type Config struct {
	// Provider forces a provider for every construction; empty lets the
	// registries choose by weight.
	Provider string

	WeightsFile     string // YAML weight table merged over the defaults
	WeightOverrides string // "provider=n,provider=n", applied last

	PublishSpec   string // publisher spec, e.g. "Stdout" or "File(/var/lib/digests)"
	DigestWorkers int

	Azure AzureConfig

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64
	RetryEnableJitter bool
}

type AzureConfig struct {
	Account   string
	Container string
	Endpoint  string // optional, defaults to https://<account>.blob.core.windows.net/
	SASToken  string

	ClientID     string
	ClientSecret string
	TenantID     string
}

// Enabled reports whether enough is configured to register the Azure publisher.
func (a AzureConfig) Enabled() bool {
	return a.Account != "" && a.Container != ""
}

// Load reads config from environment variables, applies defaults and validates.
func Load() (Config, error) {
	get := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return def
	}

	parseInt := func(key string, def int) int {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
				return n
			}
		}
		return def
	}

	parseDur := func(key string, def time.Duration) time.Duration {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		}
		return def
	}

	parseFloat := func(key string, def float64) float64 {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
		return def
	}

	parseBool := func(key string, def bool) bool {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "y", "on":
				return true
			case "0", "false", "no", "n", "off":
				return false
			}
		}
		return def
	}

	cfg := Config{
		Provider:        get("ALGO_PROVIDER", ""),
		WeightsFile:     get("ALGO_WEIGHTS_FILE", ""),
		WeightOverrides: get("ALGO_WEIGHTS", ""),

		PublishSpec:   get("PUBLISH_SPEC", "Stdout"),
		DigestWorkers: parseInt("DIGEST_WORKERS", 4),

		Azure: AzureConfig{
			Account:      get("AZURE_STORAGE_ACCOUNT", ""),
			Container:    get("AZURE_STORAGE_CONTAINER", ""),
			Endpoint:     get("AZURE_BLOB_ENDPOINT", ""),
			SASToken:     get("AZURE_STORAGE_SAS", ""),
			ClientID:     get("AZURE_CLIENT_ID", ""),
			ClientSecret: get("AZURE_CLIENT_SECRET", ""),
			TenantID:     get("AZURE_TENANT_ID", ""),
		},

		RetryMaxAttempts:  parseInt("RETRY_MAX_ATTEMPTS", retry.Default.MaxAttempts),
		RetryInitialDelay: parseDur("RETRY_INITIAL_DELAY", retry.Default.InitialDelay),
		RetryMaxDelay:     parseDur("RETRY_MAX_DELAY", retry.Default.MaxDelay),
		RetryMultiplier:   parseFloat("RETRY_MULTIPLIER", retry.Default.Multiplier),
		RetryEnableJitter: parseBool("RETRY_JITTER", retry.Default.Jitter),
	}
	if cfg.PublishSpec == "" {
		cfg.PublishSpec = "Stdout"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := spec.Parse(c.PublishSpec); err != nil {
		return fmt.Errorf("PUBLISH_SPEC: %w", err)
	}
	if (c.Azure.Account == "") != (c.Azure.Container == "") {
		return errors.New("azure: AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER must be set together")
	}
	// SAS, service principal or ambient credentials are all accepted; a
	// partial service principal is a mistake.
	sp := []string{c.Azure.ClientID, c.Azure.ClientSecret, c.Azure.TenantID}
	set := 0
	for _, v := range sp {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(sp) {
		return errors.New("azure: AZURE_CLIENT_ID, AZURE_CLIENT_SECRET and AZURE_TENANT_ID must be set together")
	}
	return nil
}

// Weights builds the provider weight table: defaults, then the YAML file,
// then the inline overrides.
func (c Config) Weights() (*weight.Table, error) {
	t := weight.Default()
	if c.WeightsFile != "" {
		if err := t.LoadFile(c.WeightsFile); err != nil {
			return nil, err
		}
	}
	if c.WeightOverrides != "" {
		if err := t.ApplyOverrides(c.WeightOverrides); err != nil {
			return nil, fmt.Errorf("ALGO_WEIGHTS: %w", err)
		}
	}
	return t, nil
}

// RetryOptions converts retry-related config values to retry.Options.
func (c Config) RetryOptions() retry.Options {
	return retry.Options{
		MaxAttempts:  c.RetryMaxAttempts,
		InitialDelay: c.RetryInitialDelay,
		MaxDelay:     c.RetryMaxDelay,
		Multiplier:   c.RetryMultiplier,
		Jitter:       c.RetryEnableJitter,
	}
}
