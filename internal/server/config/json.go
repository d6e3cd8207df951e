package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/blogapi/internal/flagx"
)

// jsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Durations are expressed in the same shorthand the environment uses
// ("15m", "2h", bare seconds); window lengths are integers in milliseconds.
// After unmarshalling, set fields are copied into the runtime Config.
type jsonConfig struct {
	EndpointAddr *string `json:"endpoint_addr"`
	DatabaseDSN  *string `json:"database_dsn"`
	Environment  *string `json:"environment"`
	SecretKey    *string `json:"secret_key"`
	TokenTTL     *string `json:"token_ttl"`
	TrustProxy   *bool   `json:"trust_proxy"`

	RateGeneralWindowMs *int64 `json:"rate_general_window_ms"`
	RateGeneralMax      *int   `json:"rate_general_max"`
	RateAuthWindowMs    *int64 `json:"rate_auth_window_ms"`
	RateAuthMax         *int   `json:"rate_auth_max"`
	RateCreateWindowMs  *int64 `json:"rate_create_window_ms"`
	RateCreateMax       *int   `json:"rate_create_max"`

	UploadDir      *string `json:"upload_dir"`
	MaxUploadBytes *int64  `json:"max_upload_bytes"`
	WorkerSlots    *int64  `json:"worker_slots"`

	CoverStore     *string `json:"cover_store"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`
}

// parseJSON loads configuration values from an optional JSON file into the
// provided Config. The file path comes from the -c/-config flags, falling
// back to the CONFIG environment variable; when neither is set, no file is
// loaded. Unlike the env/flag overlays, a present but unreadable or invalid
// file is an error: a half-applied config file must not silently fall back
// to defaults.
func parseJSON(config *Config) error {
	path := flagx.JsonConfigFlags()
	if path == "" {
		path = os.Getenv("CONFIG")
	}
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	setString := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	setWindow := func(src *int64, dst *time.Duration) {
		if src != nil && *src > 0 {
			*dst = time.Duration(*src) * time.Millisecond
		}
	}

	setString(c.EndpointAddr, &config.EndpointAddr)
	setString(c.DatabaseDSN, &config.DatabaseDSN)
	setString(c.Environment, &config.Environment)
	setString(c.SecretKey, &config.SecretKey)
	if c.TokenTTL != nil {
		d, err := ParseTTL(*c.TokenTTL)
		if err != nil {
			return fmt.Errorf("config file %s: token_ttl: %w", path, err)
		}
		config.TokenTTL = d
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}

	setWindow(c.RateGeneralWindowMs, &config.RateGeneralWindow)
	setWindow(c.RateAuthWindowMs, &config.RateAuthWindow)
	setWindow(c.RateCreateWindowMs, &config.RateCreateWindow)
	if c.RateGeneralMax != nil {
		config.RateGeneralMax = *c.RateGeneralMax
	}
	if c.RateAuthMax != nil {
		config.RateAuthMax = *c.RateAuthMax
	}
	if c.RateCreateMax != nil {
		config.RateCreateMax = *c.RateCreateMax
	}

	setString(c.UploadDir, &config.UploadDir)
	if c.MaxUploadBytes != nil && *c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.WorkerSlots != nil && *c.WorkerSlots > 0 {
		config.WorkerSlots = *c.WorkerSlots
	}

	setString(c.CoverStore, &config.CoverStore)
	setString(c.S3RootUser, &config.S3RootUser)
	setString(c.S3RootPassword, &config.S3RootPassword)
	setString(c.S3Bucket, &config.S3Bucket)
	setString(c.S3Region, &config.S3Region)
	setString(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	return nil
}
