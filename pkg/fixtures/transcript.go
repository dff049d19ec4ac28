package fixtures

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pactaudit/pactaudit/pkg/canon"
	"github.com/pactaudit/pactaudit/pkg/crypto"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

// RoundSpec describes one round to forward-construct. MessageHash and
// EnvelopeHash are caller-supplied since nothing downstream recomputes
// them; a fixed placeholder is fine unless a test exercises them
// directly.
type RoundSpec struct {
	RoundType      string
	AgentName      string // fixtures.DeriveSigner identity and agent_id
	TimestampMs    int64
	MessageHash    string
	EnvelopeHash   string
	ContentSummary map[string]interface{}
}

// TranscriptSpec is the full input to BuildTranscript.
type TranscriptSpec struct {
	TranscriptID         string
	IntentID             string
	IntentType           string
	CreatedAtMs          int64
	PolicyHash           string
	StrategyHash         string
	IdentitySnapshotHash string
	Rounds               []RoundSpec
	FailureEvent         *transcript.FailureEvent
	SkipFinalHash        bool // omit final_hash entirely, for C5's optional-container-hash path
}

// BuildTranscript forward-constructs a fully signed, hash-chained
// transcript from spec, mirroring replay.Engine.Replay's verification
// algorithm exactly so the result passes it. Round identities are
// derived deterministically via DeriveSigner(round.AgentName).
func BuildTranscript(spec TranscriptSpec) (*transcript.Transcript, error) {
	genesisSum := sha256.Sum256([]byte(spec.IntentID + ":" + strconv.FormatInt(spec.CreatedAtMs, 10)))
	previousHash := hex.EncodeToString(genesisSum[:])

	rounds := make([]transcript.Round, 0, len(spec.Rounds))
	for i, rs := range spec.Rounds {
		signer, err := DeriveSigner(rs.AgentName)
		if err != nil {
			return nil, fmt.Errorf("fixtures: round %d: %w", i, err)
		}

		round := transcript.Round{
			RoundNumber:       i,
			RoundType:         rs.RoundType,
			MessageHash:       rs.MessageHash,
			EnvelopeHash:      rs.EnvelopeHash,
			TimestampMs:       rs.TimestampMs,
			PreviousRoundHash: previousHash,
			AgentID:           rs.AgentName,
			PublicKeyB58:      signer.PublicKeyB58(),
			ContentSummary:    rs.ContentSummary,
		}

		// round_hash commits to content only (round_hash and signature
		// both excluded from its own domain; see replay.Engine.Replay).
		roundMap, err := transcript.ToGeneric(round)
		if err != nil {
			return nil, fmt.Errorf("fixtures: round %d: %w", i, err)
		}
		roundHash, err := canon.Hash(canon.WithoutFields(roundMap, "round_hash", "signature"))
		if err != nil {
			return nil, fmt.Errorf("fixtures: round %d: hash round_hash domain: %w", i, err)
		}
		round.RoundHash = roundHash

		// signature binds to the now-fixed round_hash: recompute the
		// generic form with round_hash present, drop only signature.
		roundMap, err = transcript.ToGeneric(round)
		if err != nil {
			return nil, fmt.Errorf("fixtures: round %d: %w", i, err)
		}
		sigDomainHash, err := canon.Hash(canon.WithoutFields(roundMap, "signature"))
		if err != nil {
			return nil, fmt.Errorf("fixtures: round %d: hash signature domain: %w", i, err)
		}
		sigB58 := signer.SignB58([]byte(sigDomainHash))
		round.Signature = transcript.Signature{
			SignerPublicKeyB58: signer.PublicKeyB58(),
			SignatureB58:       sigB58,
			SignedHash:         sigDomainHash,
			Scheme:             transcript.SignatureScheme,
		}

		rounds = append(rounds, round)
		previousHash = round.RoundHash
	}

	t := &transcript.Transcript{
		TranscriptVersion:    transcript.Version,
		TranscriptID:         spec.TranscriptID,
		IntentID:             spec.IntentID,
		IntentType:           spec.IntentType,
		CreatedAtMs:          spec.CreatedAtMs,
		PolicyHash:           spec.PolicyHash,
		StrategyHash:         spec.StrategyHash,
		IdentitySnapshotHash: spec.IdentitySnapshotHash,
		Rounds:               rounds,
		FailureEvent:         spec.FailureEvent,
	}

	if spec.SkipFinalHash {
		return t, nil
	}

	tMap, err := transcript.ToGeneric(t)
	if err != nil {
		return nil, fmt.Errorf("fixtures: hash container: %w", err)
	}
	finalHash, err := canon.Hash(canon.WithoutField(tMap, "final_hash"))
	if err != nil {
		return nil, fmt.Errorf("fixtures: hash container: %w", err)
	}
	t.FinalHash = finalHash

	return t, nil
}
