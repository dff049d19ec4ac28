package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pactaudit/pactaudit/pkg/passport"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// stringListFlag collects repeated occurrences of a flag into a slice,
// e.g. --transcripts-dir a --transcripts-dir b.
type stringListFlag []string

func (s *stringListFlag) String() string { return strings.Join(*s, ",") }
func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runPassportRecomputeCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("passport-recompute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var dirs stringListFlag
	fs.Var(&dirs, "transcripts-dir", "directory of transcript JSON files to fold in (repeatable)")
	out := fs.String("out", "", "write registry JSON to this file instead of stdout")
	signer := fs.String("signer", "", "limit output to this signer public key (base58)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if len(dirs) == 0 {
		fmt.Fprintln(stderr, "usage: pactaudit passport-recompute --transcripts-dir <dir> [--transcripts-dir <dir> ...] [--signer <b58>] [--out file]")
		return 1
	}

	var transcripts []*transcript.Transcript
	for _, dir := range dirs {
		paths, err := transcriptFilesInDir(dir)
		if err != nil {
			return fail(stderr, "%v", err)
		}
		for _, p := range paths {
			t, err := readTranscript(p)
			if err != nil {
				return fail(stderr, "%v", err)
			}
			transcripts = append(transcripts, t)
		}
	}

	registry, err := passport.Recompute(transcripts)
	if err != nil {
		return fail(stderr, "passport recompute: %v", err)
	}

	if *signer != "" {
		registry = filterRegistryBySigner(registry, *signer)
	}

	if *out != "" {
		if err := writeJSONFile(*out, registry); err != nil {
			return fail(stderr, "write %s: %v", *out, err)
		}
		return 0
	}
	if err := writeJSONStdout(stdout, registry); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}

func filterRegistryBySigner(reg *passport.Registry, signer string) *passport.Registry {
	filtered := &passport.Registry{Version: reg.Version}
	for _, s := range reg.Signers {
		if s.SignerPublicKeyB58 == signer {
			filtered.Signers = append(filtered.Signers, s)
		}
	}
	return filtered
}
