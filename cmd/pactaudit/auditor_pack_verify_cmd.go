package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pactaudit/pactaudit/pkg/evidence"
	"github.com/pactaudit/pactaudit/pkg/verifier"
)

// runAuditorPackVerifyCmd unzips a pack produced by auditor-pack and
// runs the same C12 verification as evidence-verify against it.
func runAuditorPackVerifyCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auditor-pack-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	allowNonstandard := fs.Bool("allow-nonstandard", false, "accept constitution hashes outside the default registry")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit auditor-pack-verify <pack.zip> [--allow-nonstandard]")
		return 1
	}

	stagingDir, err := os.MkdirTemp("", "pactaudit-unpack-*")
	if err != nil {
		return fail(stderr, "create staging dir: %v", err)
	}
	defer os.RemoveAll(stagingDir)

	if err := unzipBundle(fs.Arg(0), stagingDir); err != nil {
		return fail(stderr, "unzip pack: %v", err)
	}

	store := evidence.NewFSBlobStore(stagingDir)
	report, err := verifier.VerifyBundle(context.Background(), store, verifier.Options{AllowNonstandard: *allowNonstandard})
	if err != nil {
		return fail(stderr, "verify: %v", err)
	}

	if err := writeJSONStdout(stdout, report); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	if !report.OK {
		return 1
	}
	return 0
}
