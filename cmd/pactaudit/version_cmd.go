package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/pactaudit/pactaudit/pkg/evidence"
	"github.com/pactaudit/pactaudit/pkg/passport"
	"github.com/pactaudit/pactaudit/pkg/verifier"
)

// buildVersion is overridden at link time with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func runVersionCmd(args []string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "pactaudit %s (%s)\n", buildVersion, runtime.Version())
	fmt.Fprintf(stdout, "  evidence bundle format: %s\n", evidence.ManifestVersion)
	fmt.Fprintf(stdout, "  evidence tool version:  %s\n", evidence.ToolVersion)
	fmt.Fprintf(stdout, "  verifier format:        %s\n", verifier.VerifierVersion)
	fmt.Fprintf(stdout, "  passport format:        %s\n", passport.Version)
	return 0
}
