// Package passport merges the per-transcript passportImpact deltas
// the resolver (C7) produces into a per-signer registry: how a single
// agent's public key has fared, cumulatively, across every transcript
// it appears in.
//
// Attribution convention. A transcript names a fault domain (BUYER,
// PROVIDER, ...), not a signer. Per the intent-fingerprint convention
// used for double-commit detection (round 0 opens the negotiation, so
// its signer is the buyer), this package treats round 0's signer as
// the buyer and the first differing signer as the provider. A
// BUYER_AT_FAULT (or BUYER_RAIL_AT_FAULT) determination debits the
// buyer signer; PROVIDER_AT_FAULT (or PROVIDER_RAIL_AT_FAULT) debits
// the provider signer; NO_FAULT credits both parties, since a
// successful round is a joint outcome neither party achieves alone.
// Rail-at-fault determinations are attributed to the counterparty the
// rail acts on behalf of, since this module does not model rail
// operators as independent signers.
package passport

import (
	"fmt"
	"sort"

	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/insurer"
	"github.com/pactaudit/pactaudit/pkg/replay"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

const Version = "passport-recompute/1.0"

// SignerRecord is one signer's cumulative standing.
type SignerRecord struct {
	SignerPublicKeyB58 string   `json:"signer_public_key_b58"`
	CumulativeImpact   float64  `json:"cumulative_impact"`
	TranscriptCount    int      `json:"transcript_count"`
	Tier               string   `json:"tier"`
	TranscriptIDs      []string `json:"transcript_ids"`
}

// Registry is the sorted per-signer output of Recompute.
type Registry struct {
	Version string         `json:"version"`
	Signers []SignerRecord `json:"signers"`
}

// Recompute merges transcripts deterministically: transcripts are
// processed in the given order, and a duplicate transcript_id is
// skipped (first-occurrence-wins), so concatenating multiple
// directories with overlapping contents is safe.
func Recompute(transcripts []*transcript.Transcript) (*Registry, error) {
	seen := make(map[string]bool)
	acc := make(map[string]*SignerRecord)

	for _, t := range transcripts {
		if t == nil || seen[t.TranscriptID] {
			continue
		}
		seen[t.TranscriptID] = true

		rep, err := replay.Replay(t)
		if err != nil {
			return nil, fmt.Errorf("passport: replay %s: %w", t.TranscriptID, err)
		}
		j, err := dbl.Judge(t, rep)
		if err != nil {
			return nil, fmt.Errorf("passport: judge %s: %w", t.TranscriptID, err)
		}

		buyer, provider := partySigners(t)
		applyImpact(acc, buyer, provider, j, t.TranscriptID)
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	signers := make([]SignerRecord, 0, len(ids))
	for _, id := range ids {
		r := acc[id]
		sort.Strings(r.TranscriptIDs)
		r.Tier = string(insurer.TierFromPassportDelta(r.CumulativeImpact))
		signers = append(signers, *r)
	}

	return &Registry{Version: Version, Signers: signers}, nil
}

func applyImpact(acc map[string]*SignerRecord, buyer, provider string, j *dbl.Judgment, transcriptID string) {
	switch j.DBLDetermination {
	case dbl.NoFault:
		credit(acc, buyer, j.PassportImpact, transcriptID)
		credit(acc, provider, j.PassportImpact, transcriptID)
	case dbl.BuyerAtFault, dbl.BuyerRailAtFault:
		credit(acc, buyer, j.PassportImpact, transcriptID)
	case dbl.ProviderAtFault, dbl.ProviderRailAtFault:
		credit(acc, provider, j.PassportImpact, transcriptID)
	default:
		// Indeterminate / IndeterminateTamper: passportImpact is 0.0
		// per the gating rule, so there is nothing to attribute.
	}
}

func credit(acc map[string]*SignerRecord, signer string, delta float64, transcriptID string) {
	if signer == "" {
		return
	}
	r, ok := acc[signer]
	if !ok {
		r = &SignerRecord{SignerPublicKeyB58: signer}
		acc[signer] = r
	}
	r.CumulativeImpact += delta
	r.TranscriptCount++
	r.TranscriptIDs = append(r.TranscriptIDs, transcriptID)
}

// partySigners returns round 0's signer as the buyer and the first
// round signed by a different key as the provider, mirroring
// pkg/contention's buyer-signer convention.
func partySigners(t *transcript.Transcript) (buyer, provider string) {
	if len(t.Rounds) == 0 {
		return "", ""
	}
	buyer = t.Rounds[0].PublicKeyB58
	for _, r := range t.Rounds[1:] {
		if r.PublicKeyB58 != buyer {
			return buyer, r.PublicKeyB58
		}
	}
	return buyer, ""
}
