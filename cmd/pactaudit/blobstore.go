package main

import (
	"context"
	"fmt"

	"github.com/pactaudit/pactaudit/pkg/config"
	"github.com/pactaudit/pactaudit/pkg/evidence"
)

// blobStoreFromConfig picks the blob store backend named by cfg, using
// out as the filesystem directory (fs backend) or object key prefix
// (s3/gcs backends, where the bucket itself comes from cfg).
func blobStoreFromConfig(ctx context.Context, cfg *config.Config, out string) (evidence.BlobStore, error) {
	switch cfg.BlobStoreBackend {
	case "", "fs":
		return evidence.NewFSBlobStore(out), nil
	case "s3":
		return evidence.NewS3BlobStore(ctx, cfg.BlobStoreBucket, joinPrefix(cfg.BlobStorePrefix, out), 20)
	case "gcs":
		return evidence.NewGCSBlobStore(ctx, cfg.BlobStoreBucket, joinPrefix(cfg.BlobStorePrefix, out), 20)
	default:
		return nil, fmt.Errorf("unknown blob store backend %q", cfg.BlobStoreBackend)
	}
}

func joinPrefix(base, sub string) string {
	if base == "" {
		return sub
	}
	if sub == "" {
		return base
	}
	return base + "/" + sub
}
