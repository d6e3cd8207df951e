package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays values from environment variables. Secrets only come in
// through here or the JSON file; there is no secret flag, so command lines
// and process listings never carry it.
//
// Recognized variables:
//
//	ADDRESS                     HTTP bind address
//	DATABASE_DSN                PostgreSQL DSN
//	APP_ENV                     development | production | test
//	JWT_KEY                     signing secret
//	JWT_TTL                     token lifetime shorthand (15m, 2h, 3600)
//	TRUST_PROXY                 "true" to trust X-Forwarded-For
//	RATE_GENERAL_WINDOW_MS / RATE_GENERAL_MAX
//	RATE_AUTH_WINDOW_MS    / RATE_AUTH_MAX
//	RATE_CREATE_WINDOW_MS  / RATE_CREATE_MAX
//	UPLOAD_DIR                  cover storage root (fs store)
//	MAX_UPLOAD_BYTES            upload size ceiling
//	WORKER_SLOTS                bound on concurrent bcrypt/codec work
//	COVER_STORE                 fs | s3
//	S3_ROOT_USER / S3_ROOT_PASSWORD / S3_BUCKET / S3_REGION / S3_BASE_ENDPOINT
func parseEnv(config *Config) {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setWindowMs := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				*dst = time.Duration(n) * time.Millisecond
			}
		}
	}

	setString("ADDRESS", &config.EndpointAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("APP_ENV", &config.Environment)
	setString("JWT_KEY", &config.SecretKey)
	if v, ok := os.LookupEnv("JWT_TTL"); ok {
		if d, err := ParseTTL(v); err == nil {
			config.TokenTTL = d
		}
	}
	setBool("TRUST_PROXY", &config.TrustProxy)

	setWindowMs("RATE_GENERAL_WINDOW_MS", &config.RateGeneralWindow)
	setInt("RATE_GENERAL_MAX", &config.RateGeneralMax)
	setWindowMs("RATE_AUTH_WINDOW_MS", &config.RateAuthWindow)
	setInt("RATE_AUTH_MAX", &config.RateAuthMax)
	setWindowMs("RATE_CREATE_WINDOW_MS", &config.RateCreateWindow)
	setInt("RATE_CREATE_MAX", &config.RateCreateMax)

	setString("UPLOAD_DIR", &config.UploadDir)
	if v, ok := os.LookupEnv("MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			config.MaxUploadBytes = n
		}
	}

	if v, ok := os.LookupEnv("WORKER_SLOTS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			config.WorkerSlots = n
		}
	}

	setString("COVER_STORE", &config.CoverStore)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}
