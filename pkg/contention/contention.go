// Package contention implements the contention scanner (C10): compute
// an intent fingerprint per transcript, group by fingerprint, and flag
// any group in which two or more members committed as a DOUBLE_COMMIT.
package contention

import (
	"context"
	"fmt"
	"sort"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

type Classification string

const (
	Single       Classification = "SINGLE"
	DoubleCommit Classification = "DOUBLE_COMMIT"
)

// Group is one fingerprint's membership, sorted for deterministic
// output across runs and across file-iteration order.
type Group struct {
	Fingerprint    string         `json:"fingerprint"`
	TranscriptIDs  []string       `json:"transcript_ids"`
	Classification Classification `json:"classification"`
}

// Report is the full scan output, sorted by fingerprint.
type Report struct {
	Version string  `json:"version"`
	Groups  []Group `json:"groups"`
}

const ReportVersion = "contention-report/1.0"

// Fingerprint computes intent_fingerprint = SHA256(canonical({intent_type,
// scope, constraints}) + buyer_signer_public_key + policy_hash).
func Fingerprint(t *transcript.Transcript, scope, constraints map[string]interface{}) (string, error) {
	core, err := canon.Canonicalize(map[string]interface{}{
		"intent_type": t.IntentType,
		"scope":       scope,
		"constraints": constraints,
	})
	if err != nil {
		return "", fmt.Errorf("contention: canonicalize fingerprint core: %w", err)
	}
	buyerKey := buyerSignerPublicKey(t)
	payload := append(append([]byte{}, core...), []byte(buyerKey+t.PolicyHash)...)
	return canon.HashBytes(payload), nil
}

// buyerSignerPublicKey is round 0's signer public key: by convention
// the buyer opens the negotiation with the INTENT round.
func buyerSignerPublicKey(t *transcript.Transcript) string {
	if len(t.Rounds) == 0 {
		return ""
	}
	return t.Rounds[0].PublicKeyB58
}

// isNonAbortTerminal reports whether a transcript reached a terminal
// state that was not an ABORT/REJECT — i.e. it committed.
func isNonAbortTerminal(t *transcript.Transcript) bool {
	if len(t.Rounds) == 0 {
		return false
	}
	last := t.Rounds[len(t.Rounds)-1]
	switch last.RoundType {
	case "ABORT", "REJECT":
		return false
	case "ACCEPT", "ADMIN_FREEZE", "ADMIN_RESUME":
		return true
	default:
		return t.FailureEvent == nil
	}
}

// Input is one transcript to scan, with the scope/constraints that
// feed the fingerprint (not part of the transcript's own wire schema).
type Input struct {
	Transcript  *transcript.Transcript
	Scope       map[string]interface{}
	Constraints map[string]interface{}
}

// Scan groups inputs by intent fingerprint and flags DOUBLE_COMMIT
// groups, recording every membership into idx along the way so a
// shared index accumulates state across repeated scans.
func Scan(ctx context.Context, idx FingerprintIndex, inputs []Input) (*Report, error) {
	for _, in := range inputs {
		fp, err := Fingerprint(in.Transcript, in.Scope, in.Constraints)
		if err != nil {
			return nil, err
		}
		if err := idx.Record(ctx, fp, in.Transcript.TranscriptID); err != nil {
			return nil, fmt.Errorf("contention: record %s: %w", in.Transcript.TranscriptID, err)
		}
	}

	committed := make(map[string]map[string]bool)
	for _, in := range inputs {
		if !isNonAbortTerminal(in.Transcript) {
			continue
		}
		fp, err := Fingerprint(in.Transcript, in.Scope, in.Constraints)
		if err != nil {
			return nil, err
		}
		if committed[fp] == nil {
			committed[fp] = make(map[string]bool)
		}
		committed[fp][in.Transcript.TranscriptID] = true
	}

	fingerprints, err := idx.Fingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("contention: list fingerprints: %w", err)
	}

	groups := make([]Group, 0, len(fingerprints))
	for _, fp := range fingerprints {
		members, err := idx.Members(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("contention: members of %s: %w", fp, err)
		}
		sort.Strings(members)

		classification := Single
		if len(committedMembers(committed[fp])) >= 2 {
			classification = DoubleCommit
		}

		groups = append(groups, Group{
			Fingerprint:    fp,
			TranscriptIDs:  members,
			Classification: classification,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Fingerprint < groups[j].Fingerprint })

	return &Report{Version: ReportVersion, Groups: groups}, nil
}

func committedMembers(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
