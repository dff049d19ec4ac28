package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	_ "github.com/lib/pq"

	"github.com/pactaudit/pactaudit/pkg/audit"
	"github.com/pactaudit/pactaudit/pkg/config"
	"github.com/pactaudit/pactaudit/pkg/evidence"
	"github.com/pactaudit/pactaudit/pkg/observability"
	"github.com/pactaudit/pactaudit/pkg/registry"
)

func runEvidenceBundleCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evidence-bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "directory to write the bundle into (required)")
	view := fs.String("view", "internal", "view to render: internal, partner, or auditor")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || *out == "" {
		fmt.Fprintln(stderr, "usage: pactaudit evidence-bundle <transcript.json> --out <dir> [--view internal|partner|auditor]")
		return 1
	}

	v, err := parseView(*view)
	if err != nil {
		return fail(stderr, "%v", err)
	}

	t, err := readTranscript(fs.Arg(0))
	if err != nil {
		return fail(stderr, "%v", err)
	}

	cfg := config.Load()
	var bundle *evidence.Bundle
	runErr := instrumentedRun(audit.EventBundle, "evidence-bundle", fs.Arg(0), func(ctx context.Context) ([]attribute.KeyValue, error) {
		var err error
		bundle, err = evidence.Build(evidence.BuildInput{Transcript: t, View: v})
		if err != nil {
			return nil, fmt.Errorf("build bundle: %w", err)
		}

		store, err := blobStoreFromConfig(ctx, cfg, *out)
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		if err := bundle.Persist(ctx, store); err != nil {
			return nil, fmt.Errorf("persist bundle: %w", err)
		}

		if err := recordBundleIfConfigured(ctx, cfg, bundle.Manifest); err != nil {
			return nil, fmt.Errorf("record bundle: %w", err)
		}

		return observability.BundleOperation(bundle.Manifest.TranscriptID, bundle.Manifest.BundleID, string(bundle.Manifest.View)), nil
	})
	if runErr != nil {
		return fail(stderr, "%v", runErr)
	}

	if err := writeJSONStdout(stdout, bundle.Manifest); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}

// recordBundleIfConfigured records the manifest in the shared bundle
// registry when DATABASE_URL is set. It is a no-op for the common
// single-user case of a bare filesystem blob store.
func recordBundleIfConfigured(ctx context.Context, cfg *config.Config, m *evidence.Manifest) error {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reg := registry.NewBundleRegistry(db)
	if err := reg.Init(ctx); err != nil {
		return fmt.Errorf("init registry schema: %w", err)
	}
	return reg.Record(ctx, m)
}

func parseView(s string) (evidence.View, error) {
	switch evidence.View(s) {
	case evidence.ViewInternal, evidence.ViewPartner, evidence.ViewAuditor:
		return evidence.View(s), nil
	default:
		return "", fmt.Errorf("unknown view %q (want internal, partner, or auditor)", s)
	}
}
