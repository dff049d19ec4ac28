package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pactaudit/pactaudit/pkg/audit"
	"github.com/pactaudit/pactaudit/pkg/observability"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	allowCompromised := fs.Bool("allow-compromised", false, "treat PARTIAL integrity as success when only FINAL_HASH_MISMATCH is present")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pactaudit replay <transcript.json> [--allow-compromised]")
		return 1
	}
	path := fs.Arg(0)

	t, err := readTranscript(path)
	if err != nil {
		return fail(stderr, "%v", err)
	}

	var result *replay.Result
	runErr := instrumentedRun(audit.EventReplay, "replay", path, func(ctx context.Context) ([]attribute.KeyValue, error) {
		var err error
		result, err = replay.Replay(t)
		if err != nil {
			return nil, err
		}
		return observability.ReplayOperation(t.TranscriptID, string(result.IntegrityStatus), int64(result.RoundsVerified)), nil
	})
	if runErr != nil {
		return fail(stderr, "replay: %v", runErr)
	}

	if err := writeJSONStdout(stdout, result); err != nil {
		return fail(stderr, "write output: %v", err)
	}

	if result.IntegrityStatus == replay.StatusValid {
		return 0
	}
	if *allowCompromised && result.IntegrityStatus == replay.StatusPartial && onlyFinalHashMismatch(result) {
		return 0
	}
	return 1
}

func onlyFinalHashMismatch(result *replay.Result) bool {
	for _, e := range result.Errors {
		if e.Type != replay.ErrFinalHashMismatch {
			return false
		}
	}
	return len(result.Errors) > 0
}
