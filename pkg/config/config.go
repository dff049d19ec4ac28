// Package config loads the environment-variable configuration the CLI
// reads when a subcommand needs more than its flags: which
// constitution hashes are accepted, which blob store backend to
// persist evidence bundles to, and where to send OTel telemetry.
package config

import "os"

// Config holds CLI-wide configuration, loaded from the environment so
// a single binary behaves differently in CI, a shared scanner
// deployment, or a developer's laptop without a rebuild.
type Config struct {
	LogLevel string

	// DatabaseURL, when set, backs the bundle metadata registry
	// (pkg/registry) and the SQL-backed contention index
	// (pkg/contention.SQLIndex) with Postgres instead of the CLI's
	// default sqlite file.
	DatabaseURL string

	// RedisAddr, when set, backs the shared contention index
	// (pkg/contention.RedisIndex) instead of the Postgres or default
	// sqlite index.
	RedisAddr string

	// BlobStoreBackend selects where Build's output is written:
	// "fs" (default), "s3", or "gcs".
	BlobStoreBackend string
	BlobStoreBucket  string
	BlobStorePrefix  string

	OTLPEndpoint      string
	ObservabilityOn   bool
	ConstitutionRegistryPath string
}

// Load reads Config from the environment, applying the CLI's
// single-user-friendly defaults.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	blobBackend := os.Getenv("PACTAUDIT_BLOBSTORE")
	if blobBackend == "" {
		blobBackend = "fs"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:                 logLevel,
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		BlobStoreBackend:         blobBackend,
		BlobStoreBucket:          os.Getenv("PACTAUDIT_BLOBSTORE_BUCKET"),
		BlobStorePrefix:          os.Getenv("PACTAUDIT_BLOBSTORE_PREFIX"),
		OTLPEndpoint:             otlpEndpoint,
		ObservabilityOn:          os.Getenv("PACTAUDIT_OTEL") == "true",
		ConstitutionRegistryPath: os.Getenv("PACTAUDIT_CONSTITUTION_REGISTRY"),
	}
}
