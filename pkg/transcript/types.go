// Package transcript defines the wire types for a pact-transcript/4.0
// negotiation transcript: signed rounds, the failure event claim, and
// the transcript envelope itself.
package transcript

import "encoding/json"

// Version is the only transcript_version this module accepts for
// structural validation purposes.
const Version = "pact-transcript/4.0"

// SignatureScheme is the only signature scheme a round's signature may
// declare.
const SignatureScheme = "ed25519"

// Signature is the per-round detached signature block: the same shape
// as an Envelope signature, plus the hash it was computed over and the
// declared scheme.
type Signature struct {
	SignerPublicKeyB58 string `json:"signer_public_key_b58"`
	SignatureB58       string `json:"signature_b58"`
	SignedHash         string `json:"signed_hash"`
	Scheme             string `json:"scheme"`
}

// Round is a single signed round of the negotiation.
type Round struct {
	RoundNumber       int                    `json:"round_number"`
	RoundType         string                 `json:"round_type"`
	MessageHash       string                 `json:"message_hash"`
	EnvelopeHash      string                 `json:"envelope_hash"`
	Signature         Signature              `json:"signature"`
	TimestampMs       int64                  `json:"timestamp_ms"`
	PreviousRoundHash string                 `json:"previous_round_hash"`
	RoundHash         string                 `json:"round_hash"`
	AgentID           string                 `json:"agent_id"`
	PublicKeyB58      string                 `json:"public_key_b58"`
	ContentSummary    map[string]interface{} `json:"content_summary,omitempty"`
}

// FailureEvent is an untrusted claim attached to a transcript: its
// EvidenceRefs and TranscriptHash are claims, never proofs, and must
// never be promoted into a judgment's trusted evidenceRefs.
type FailureEvent struct {
	Code           string   `json:"code"`
	Stage          string   `json:"stage"`
	FaultDomain    string   `json:"fault_domain,omitempty"`
	Terminality    string   `json:"terminality"` // "terminal" | "non_terminal"
	EvidenceRefs   []string `json:"evidence_refs,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
	TranscriptHash string   `json:"transcript_hash,omitempty"`
}

// Transcript is a complete pact-transcript/4.0 negotiation record.
type Transcript struct {
	TranscriptVersion    string                 `json:"transcript_version"`
	TranscriptID         string                 `json:"transcript_id"`
	IntentID             string                 `json:"intent_id"`
	IntentType           string                 `json:"intent_type"`
	CreatedAtMs          int64                  `json:"created_at_ms"`
	PolicyHash           string                 `json:"policy_hash"`
	StrategyHash         string                 `json:"strategy_hash"`
	IdentitySnapshotHash string                 `json:"identity_snapshot_hash"`
	Rounds               []Round                `json:"rounds"`
	FailureEvent         *FailureEvent          `json:"failure_event,omitempty"`
	FinalHash            string                 `json:"final_hash,omitempty"`
	ArbiterDecisionRef   string                 `json:"arbiter_decision_ref,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// ToGeneric round-trips v through encoding/json to obtain a
// map[string]interface{} suitable for canon.Canonicalize and for
// dropping a single field prior to hashing.
func ToGeneric(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
