package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/flagx"
	"github.com/dmitrijs2005/drawkeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration,
// which accepts both "1s" strings and integer nanoseconds. Absent or zero
// fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	RedisAddr         string         `json:"redis_addr"`
	RedisPassword     string         `json:"redis_password"`
	RedisDB           int            `json:"redis_db"`
	WorkerConcurrency int            `json:"worker_concurrency"`
	SubmitTimeout     timex.Duration `json:"submit_timeout"`

	TranslationBaseURL      string         `json:"translation_base_url"`
	TranslationClientID     string         `json:"translation_client_id"`
	TranslationClientSecret string         `json:"translation_client_secret"`
	TranslationBucketKey    string         `json:"translation_bucket_key"`
	TranslationFormat       string         `json:"translation_format"`
	TranslationViews        []string       `json:"translation_views"`
	TranslationTimeout      timex.Duration `json:"translation_timeout"`
	TranslationRetries      *int           `json:"translation_retries"`
	TokenSafetyMargin       timex.Duration `json:"token_safety_margin"`

	MaxUploadSize   int64          `json:"max_upload_size"`
	SignedURLTTL    timex.Duration `json:"signed_url_ttl"`
	SweepInterval   timex.Duration `json:"sweep_interval"`
	StuckThreshold  timex.Duration `json:"stuck_threshold"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// parseJson overlays values from the JSON file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	if c.WorkerConcurrency != 0 {
		config.WorkerConcurrency = c.WorkerConcurrency
	}
	setDuration(&config.SubmitTimeout, c.SubmitTimeout)

	setString(&config.TranslationBaseURL, c.TranslationBaseURL)
	setString(&config.TranslationClientID, c.TranslationClientID)
	setString(&config.TranslationClientSecret, c.TranslationClientSecret)
	setString(&config.TranslationBucketKey, c.TranslationBucketKey)
	setString(&config.TranslationFormat, c.TranslationFormat)
	if len(c.TranslationViews) > 0 {
		config.TranslationViews = c.TranslationViews
	}
	setDuration(&config.TranslationTimeout, c.TranslationTimeout)
	if c.TranslationRetries != nil {
		config.TranslationRetries = *c.TranslationRetries
	}
	setDuration(&config.TokenSafetyMargin, c.TokenSafetyMargin)

	if c.MaxUploadSize != 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setDuration(&config.SignedURLTTL, c.SignedURLTTL)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setDuration(&config.StuckThreshold, c.StuckThreshold)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
