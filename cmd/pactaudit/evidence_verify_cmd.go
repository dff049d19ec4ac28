package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pactaudit/pactaudit/pkg/audit"
	"github.com/pactaudit/pactaudit/pkg/evidence"
	"github.com/pactaudit/pactaudit/pkg/observability"
	"github.com/pactaudit/pactaudit/pkg/verifier"
)

func runEvidenceVerifyCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evidence-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	allowNonstandard := fs.Bool("allow-nonstandard", false, "accept constitution hashes outside the default registry")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit evidence-verify <bundle-dir> [--allow-nonstandard]")
		return 1
	}
	bundleDir := fs.Arg(0)

	var report *verifier.Report
	runErr := instrumentedRun(audit.EventVerify, "evidence-verify", bundleDir, func(ctx context.Context) ([]attribute.KeyValue, error) {
		store := evidence.NewFSBlobStore(bundleDir)
		var err error
		report, err = verifier.VerifyBundle(ctx, store, verifier.Options{AllowNonstandard: *allowNonstandard})
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		return observability.VerifyOperation(report.OK, report.ChecksumsOK, report.RecomputeOK), nil
	})
	if runErr != nil {
		return fail(stderr, "%v", runErr)
	}

	if err := writeJSONStdout(stdout, report); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	if !report.OK {
		return 1
	}
	return 0
}
