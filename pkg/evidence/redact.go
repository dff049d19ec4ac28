package evidence

import (
	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// redactableFields are the transcript-level fields a partner or
// auditor view never receives verbatim: they let an outside party
// correlate this negotiation against others sharing the same policy
// or strategy, which internal review does not need to guard against.
var redactableFields = []string{"policy_hash", "strategy_hash"}

// redact returns a copy of t for view, with redactableFields replaced
// by a deterministic, unlinkable substitute when view is not
// ViewInternal, plus the RedactedField list describing what changed.
// The substitute is derived from the transcript_id and field path
// only — never from the original value — so it cannot be reversed
// even by an auditor who also holds other bundles from the same
// transcript family.
func redact(t *transcript.Transcript, view View) (*transcript.Transcript, []RedactedField) {
	if view == ViewInternal {
		cp := *t
		return &cp, nil
	}

	out := *t
	var fields []RedactedField
	for _, path := range redactableFields {
		sub := substituteFor(t.TranscriptID, path)
		switch path {
		case "policy_hash":
			out.PolicyHash = sub
		case "strategy_hash":
			out.StrategyHash = sub
		}
		fields = append(fields, RedactedField{Path: path, Substitute: sub})
	}
	return &out, fields
}

func substituteFor(transcriptID, path string) string {
	h := canon.HashBytes([]byte("pactaudit-redact/1:" + transcriptID + ":" + path))
	return "redacted:" + h
}
