package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pactaudit/pactaudit/pkg/audit"
	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/observability"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

func runJudgeCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("judge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "", "write judgment JSON to this file instead of stdout")
	human := fs.Bool("human", false, "also write a narrative summary to stderr")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit judge <transcript.json> [--out file] [--human]")
		return 1
	}
	path := fs.Arg(0)

	t, err := readTranscript(path)
	if err != nil {
		return fail(stderr, "%v", err)
	}

	var judgment *dbl.Judgment
	runErr := instrumentedRun(audit.EventJudge, "judge", path, func(ctx context.Context) ([]attribute.KeyValue, error) {
		rep, err := replay.Replay(t)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		judgment, err = dbl.Judge(t, rep)
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}
		return observability.JudgmentOperation(t.TranscriptID, string(judgment.DBLDetermination), string(judgment.RequiredNextActor), judgment.RequiredAction, judgment.Confidence), nil
	})
	if runErr != nil {
		return fail(stderr, "%v", runErr)
	}

	if *human {
		fmt.Fprintf(stderr, "determination: %s (confidence %.2f)\n", judgment.DBLDetermination, judgment.Confidence)
		fmt.Fprintf(stderr, "required next actor: %s — %s\n", judgment.RequiredNextActor, judgment.RequiredAction)
		fmt.Fprintf(stderr, "recommendation: %s\n", judgment.Recommendation)
	}

	if *out != "" {
		if err := writeJSONFile(*out, judgment); err != nil {
			return fail(stderr, "write %s: %v", *out, err)
		}
		return 0
	}
	if err := writeJSONStdout(stdout, judgment); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}
