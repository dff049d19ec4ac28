package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pactaudit/pactaudit/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PACTAUDIT_BLOBSTORE", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("PACTAUDIT_OTEL", "")

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "fs", cfg.BlobStoreBackend)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.False(t, cfg.ObservabilityOn)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/db")
	t.Setenv("PACTAUDIT_BLOBSTORE", "s3")
	t.Setenv("PACTAUDIT_BLOBSTORE_BUCKET", "pactaudit-bundles")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")
	t.Setenv("PACTAUDIT_OTEL", "true")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "s3", cfg.BlobStoreBackend)
	assert.Equal(t, "pactaudit-bundles", cfg.BlobStoreBucket)
	assert.Equal(t, "otel-collector:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.ObservabilityOn)
}
