// Package registry persists evidence bundle manifests (C11) so a
// caller can look up what was generated for a transcript without
// re-reading the blob store: which bundle_ids exist, which view each
// one represents, and when it was generated.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pactaudit/pactaudit/pkg/evidence"
)

// ErrBundleNotFound is returned when a lookup finds no matching record.
var ErrBundleNotFound = errors.New("registry: bundle not found")

// BundleRegistry persists evidence.Manifest records.
type BundleRegistry struct {
	db *sql.DB
}

func NewBundleRegistry(db *sql.DB) *BundleRegistry {
	return &BundleRegistry{db: db}
}

const bundleRegistrySchema = `
CREATE TABLE IF NOT EXISTS evidence_bundles (
	bundle_id TEXT PRIMARY KEY,
	transcript_id TEXT NOT NULL,
	view TEXT NOT NULL,
	constitution_hash TEXT NOT NULL,
	generated_at_ms BIGINT NOT NULL,
	manifest_json JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS evidence_bundles_transcript_idx ON evidence_bundles (transcript_id);
`

// Init creates the schema if it does not already exist.
func (r *BundleRegistry) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, bundleRegistrySchema)
	return err
}

// Record upserts a manifest, keyed by its bundle_id.
func (r *BundleRegistry) Record(ctx context.Context, m *evidence.Manifest) error {
	if m == nil {
		return errors.New("registry: nil manifest")
	}
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("registry: marshal manifest: %w", err)
	}
	query := `
		INSERT INTO evidence_bundles (bundle_id, transcript_id, view, constitution_hash, generated_at_ms, manifest_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bundle_id) DO UPDATE
		SET transcript_id = $2, view = $3, constitution_hash = $4, generated_at_ms = $5, manifest_json = $6
	`
	_, err = r.db.ExecContext(ctx, query, m.BundleID, m.TranscriptID, string(m.View), m.ConstitutionHash, m.GeneratedAtMs, manifestJSON)
	return err
}

// Get returns the manifest for a bundle_id.
func (r *BundleRegistry) Get(ctx context.Context, bundleID string) (*evidence.Manifest, error) {
	var manifestJSON []byte
	err := r.db.QueryRowContext(ctx, "SELECT manifest_json FROM evidence_bundles WHERE bundle_id = $1", bundleID).Scan(&manifestJSON)
	if err == sql.ErrNoRows {
		return nil, ErrBundleNotFound
	}
	if err != nil {
		return nil, err
	}
	var m evidence.Manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("registry: unmarshal manifest: %w", err)
	}
	return &m, nil
}

// ListByTranscript returns every bundle generated for a transcript,
// most recently generated first.
func (r *BundleRegistry) ListByTranscript(ctx context.Context, transcriptID string) ([]*evidence.Manifest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT manifest_json FROM evidence_bundles WHERE transcript_id = $1 ORDER BY generated_at_ms DESC",
		transcriptID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []*evidence.Manifest
	for rows.Next() {
		var manifestJSON []byte
		if err := rows.Scan(&manifestJSON); err != nil {
			return nil, err
		}
		var m evidence.Manifest
		if err := json.Unmarshal(manifestJSON, &m); err != nil {
			return nil, fmt.Errorf("registry: unmarshal manifest: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
