package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pactaudit/pactaudit/pkg/evidence"
)

// runAuditorPackCmd builds an auditor-view evidence bundle and zips it
// into a single portable file, so the bundle can leave the blob store
// as one artifact.
func runAuditorPackCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auditor-pack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "path to write the .zip pack to (required)")
	view := fs.String("view", "auditor", "view to render: internal, partner, or auditor")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || *out == "" {
		fmt.Fprintln(stderr, "usage: pactaudit auditor-pack <transcript.json> --out <pack.zip> [--view auditor]")
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

	bundle, err := evidence.Build(evidence.BuildInput{Transcript: t, View: v})
	if err != nil {
		return fail(stderr, "build bundle: %v", err)
	}

	stagingDir, err := os.MkdirTemp("", "pactaudit-pack-*")
	if err != nil {
		return fail(stderr, "create staging dir: %v", err)
	}
	defer os.RemoveAll(stagingDir)

	ctx := context.Background()
	store := evidence.NewFSBlobStore(stagingDir)
	if err := bundle.Persist(ctx, store); err != nil {
		return fail(stderr, "persist bundle: %v", err)
	}
	if err := zipBundle(ctx, store, *out); err != nil {
		return fail(stderr, "zip bundle: %v", err)
	}

	if err := writeJSONStdout(stdout, bundle.Manifest); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}
