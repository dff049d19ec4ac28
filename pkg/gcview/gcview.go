// Package gcview renders the reviewer-facing JSON summary (C8):
// judgment, integrity, and constitution status composed into a single
// artifact with a plain-language executive narrative, suitable for
// counsel and underwriters who never touch the raw transcript.
package gcview

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pactaudit/pactaudit/pkg/constitution"
	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/replay"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

const Version = "gc-view/1.0"

// ConstitutionStatus reports the rulebook the judgment was evaluated
// under, independent of what the transcript itself claims.
type ConstitutionStatus struct {
	Hash        string `json:"hash"`
	Accepted    bool   `json:"accepted"`
	NonStandard bool   `json:"non_standard,omitempty"`
}

// ExecutiveSummary is the plain-language front matter.
type ExecutiveSummary struct {
	Status              string `json:"status"`
	Narrative           string `json:"narrative"`
	MoneyMoved          bool   `json:"money_moved"`
	SettlementAttempted bool   `json:"settlement_attempted"`
}

// JudgmentSummary is the subset of the Judgment Artifact a reviewer
// needs inline, without duplicating the full judgment document that
// ships alongside it in the same bundle.
type JudgmentSummary struct {
	Status            dbl.Status        `json:"status"`
	Determination     dbl.Determination `json:"determination"`
	RequiredNextActor dbl.Actor         `json:"requiredNextActor"`
	RequiredAction    string            `json:"requiredAction"`
	Confidence        float64           `json:"confidence"`
	PassportImpact    float64           `json:"passportImpact"`
}

// View is the rendered reviewer document.
type View struct {
	Version          string              `json:"version"`
	TranscriptID     string              `json:"transcript_id"`
	Constitution     ConstitutionStatus  `json:"constitution"`
	IntegrityStatus  replay.IntegrityStatus `json:"integrity_status"`
	ExecutiveSummary ExecutiveSummary    `json:"executive_summary"`
	Judgment         JudgmentSummary     `json:"judgment"`
	RulesApplied     []string            `json:"rules_applied"`
}

// Render composes a View from a transcript, its replay result, and its
// judgment, against the constitution reg (nil uses the default
// registry).
func Render(t *transcript.Transcript, rep *replay.Result, j *dbl.Judgment, reg *constitution.Registry) *View {
	loaded := constitution.Load(constitution.DefaultText(), reg)

	status := executiveStatus(j, rep)
	narrative := narrate(rep, j)

	return &View{
		Version:      Version,
		TranscriptID: t.TranscriptID,
		Constitution: ConstitutionStatus{
			Hash:        loaded.Hash,
			Accepted:    loaded.Accepted,
			NonStandard: loaded.NonStandard,
		},
		IntegrityStatus: rep.IntegrityStatus,
		ExecutiveSummary: ExecutiveSummary{
			Status:              status,
			Narrative:           narrative,
			MoneyMoved:          moneyMoved(t),
			SettlementAttempted: settlementAttempted(t),
		},
		Judgment: JudgmentSummary{
			Status:            j.Status,
			Determination:     j.DBLDetermination,
			RequiredNextActor: j.RequiredNextActor,
			RequiredAction:    j.RequiredAction,
			Confidence:        j.Confidence,
			PassportImpact:    j.PassportImpact,
		},
		RulesApplied: rulesApplied(t, rep),
	}
}

// executiveStatus implements the PACT-420/421 precedence rule: those
// two codes are pre-cryptographic failures and are reported before
// integrity is even consulted.
func executiveStatus(j *dbl.Judgment, rep *replay.Result) string {
	if j.FailureCode != nil {
		switch *j.FailureCode {
		case "PACT-420":
			return "PROVIDER_UNREACHABLE"
		case "PACT-421":
			return "API_MISMATCH"
		}
	}
	switch rep.IntegrityStatus {
	case replay.StatusValid:
		return "CLEAN"
	case replay.StatusPartial:
		return "PARTIAL"
	default:
		return "TAMPERED_OR_INVALID"
	}
}

// moneyMoved is true only for a completed ACCEPT with no subsequent
// failure event, or an explicit settlement-commit marker.
func moneyMoved(t *transcript.Transcript) bool {
	hasAccept := false
	for _, r := range t.Rounds {
		if r.RoundType == "ACCEPT" {
			hasAccept = true
		}
		if v, ok := r.ContentSummary["settlement_commit"]; ok {
			if committed, ok := v.(bool); ok && committed {
				return true
			}
		}
	}
	return hasAccept && t.FailureEvent == nil
}

func settlementAttempted(t *transcript.Transcript) bool {
	for _, r := range t.Rounds {
		if r.RoundType == "ACCEPT" {
			return true
		}
	}
	return t.FailureEvent != nil && t.FailureEvent.Stage == "settlement"
}

// rulesApplied is derived from which verification steps actually ran
// and is always sorted, per the output-determinism requirement.
func rulesApplied(t *transcript.Transcript, rep *replay.Result) []string {
	rules := map[string]bool{"DET-1": true, "GC-1": true, "CONST-1": true}
	if rep.HashChainVerifications > 0 {
		rules["HASH-1"] = true
	}
	if rep.SignatureVerifications > 0 {
		rules["SIG-1"] = true
	}
	if t.FinalHash != "" {
		rules["FIN-1"] = true
	}
	out := make([]string, 0, len(rules))
	for r := range rules {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

var narrator = message.NewPrinter(language.English)

func narrate(rep *replay.Result, j *dbl.Judgment) string {
	base := narrator.Sprintf("%d round(s) verified, %d signature(s) confirmed.", rep.RoundsVerified, rep.SignatureVerifications)
	switch j.DBLDetermination {
	case dbl.NoFault:
		return base + " No fault found; negotiation concluded cleanly."
	case dbl.Indeterminate, dbl.IndeterminateTamper:
		return base + " Evidence is insufficient for a fault determination."
	default:
		return base + " A party is at fault under " + string(j.DBLDetermination) + "."
	}
}
