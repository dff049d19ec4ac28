package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/insurer"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

func runInsurerSummaryCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("insurer-summary", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit insurer-summary <transcript.json>")
		return 1
	}

	t, err := readTranscript(fs.Arg(0))
	if err != nil {
		return fail(stderr, "%v", err)
	}

	rep, err := replay.Replay(t)
	if err != nil {
		return fail(stderr, "replay: %v", err)
	}
	judgment, err := dbl.Judge(t, rep)
	if err != nil {
		return fail(stderr, "judge: %v", err)
	}
	summary, err := insurer.Render(rep, judgment, judgment.PassportImpact, insurer.DefaultRiskFlags)
	if err != nil {
		return fail(stderr, "insurer summary: %v", err)
	}

	if err := writeJSONStdout(stdout, summary); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}
