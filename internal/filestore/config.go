package filestore

import (
	"os"
	"strconv"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvEndpoint  = "SQLCONTEXT_S3_ENDPOINT"
	EnvAccessKey = "SQLCONTEXT_S3_ACCESS_KEY"
	EnvSecretKey = "SQLCONTEXT_S3_SECRET_KEY"
	EnvUseSSL    = "SQLCONTEXT_S3_USE_SSL"
	EnvRegion    = "SQLCONTEXT_S3_REGION"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO, "s3.amazonaws.com" for AWS.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
	}
}

// ConfigFromEnv builds a Config from the SQLCONTEXT_S3_* variables.
// The endpoint defaults to AWS S3 over TLS.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig(os.Getenv(EnvEndpoint), os.Getenv(EnvAccessKey), os.Getenv(EnvSecretKey))
	cfg.Region = os.Getenv(EnvRegion)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "s3.amazonaws.com"
		cfg.UseSSL = true
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvUseSSL)); err == nil {
		cfg.UseSSL = v
	}
	return cfg
}
