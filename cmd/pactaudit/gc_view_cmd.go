package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/gcview"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

func runGCViewCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gc-view", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit gc-view <transcript.json>")
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
	view := gcview.Render(t, rep, judgment, nil)

	if err := writeJSONStdout(stdout, view); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}
