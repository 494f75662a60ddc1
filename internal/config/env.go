package config

import (
	"os"
	"strconv"
)

// EnvPrefix is prepended to every recognised environment variable.
const EnvPrefix = "LOADVERDICT_"

// LoadFromEnv overrides cfg from environment variables. Values that fail to
// parse are ignored.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv(EnvPrefix + "RESULTS_DIR"); v != "" {
		cfg.Efficiency.ResultsDir = v
	}

	// Thresholds
	setFloat(EnvPrefix+"ERR_THRESHOLD", &cfg.Saturation.Thresholds.ErrorPct)
	setFloat(EnvPrefix+"P99_THRESHOLD", &cfg.Saturation.Thresholds.P99Ms)

	// Efficiency
	setFloat(EnvPrefix+"BASELINE_POWER", &cfg.Efficiency.BaselinePowerW)
	setFloat(EnvPrefix+"HOURLY_COST", &cfg.Efficiency.HourlyCostUSD)

	if v := os.Getenv(EnvPrefix + "CHARTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reporting.Charts = b
		}
	}

	// Publishing
	cfg.Publish.Bucket = GetEnvOrDefault(EnvPrefix+"S3_BUCKET", cfg.Publish.Bucket)
	cfg.Publish.Prefix = GetEnvOrDefault(EnvPrefix+"S3_PREFIX", cfg.Publish.Prefix)
	cfg.Publish.Endpoint = GetEnvOrDefault(EnvPrefix+"S3_ENDPOINT", cfg.Publish.Endpoint)
	cfg.Publish.Region = GetEnvOrDefault(EnvPrefix+"S3_REGION", cfg.Publish.Region)
	cfg.Publish.AccessKey = GetEnvOrDefault(EnvPrefix+"S3_ACCESS_KEY", cfg.Publish.AccessKey)
	cfg.Publish.SecretKey = GetEnvOrDefault(EnvPrefix+"S3_SECRET_KEY", cfg.Publish.SecretKey)
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}
