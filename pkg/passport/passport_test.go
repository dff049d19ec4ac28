package passport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/fixtures"
	"github.com/pactaudit/pactaudit/pkg/passport"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

func buildHappyPath(t *testing.T, id string) *transcript.Transcript {
	t.Helper()
	tr, err := fixtures.BuildTranscript(fixtures.TranscriptSpec{
		TranscriptID:         id,
		IntentID:             "intent-" + id,
		IntentType:           "swap",
		CreatedAtMs:          1000000000000,
		PolicyHash:           "policy-abc",
		StrategyHash:         "strategy-def",
		IdentitySnapshotHash: "identity-ghi",
		Rounds: []fixtures.RoundSpec{
			{RoundType: "INTENT", AgentName: "buyer-1", TimestampMs: 1000000000000, MessageHash: "m0", EnvelopeHash: "e0"},
			{RoundType: "ASK", AgentName: "provider-1", TimestampMs: 1000000001000, MessageHash: "m1", EnvelopeHash: "e1"},
			{RoundType: "ACCEPT", AgentName: "buyer-1", TimestampMs: 1000000002000, MessageHash: "m2", EnvelopeHash: "e2"},
		},
	})
	require.NoError(t, err)
	return tr
}

func TestRecompute_CreditsBothPartiesOnNoFault(t *testing.T) {
	tr := buildHappyPath(t, "t-passport-1")
	reg, err := passport.Recompute([]*transcript.Transcript{tr})
	require.NoError(t, err)
	require.Len(t, reg.Signers, 2)
	for _, s := range reg.Signers {
		require.InDelta(t, 0.01, s.CumulativeImpact, 1e-9)
		require.Equal(t, []string{"t-passport-1"}, s.TranscriptIDs)
	}
}

func TestRecompute_FirstOccurrenceWinsOnDuplicateID(t *testing.T) {
	tr1 := buildHappyPath(t, "t-dup")
	tr2 := buildHappyPath(t, "t-dup")
	reg, err := passport.Recompute([]*transcript.Transcript{tr1, tr2})
	require.NoError(t, err)
	for _, s := range reg.Signers {
		require.Equal(t, 1, s.TranscriptCount)
	}
}

func TestRecompute_SortedBySignerKey(t *testing.T) {
	tr := buildHappyPath(t, "t-passport-2")
	reg, err := passport.Recompute([]*transcript.Transcript{tr})
	require.NoError(t, err)
	require.True(t, reg.Signers[0].SignerPublicKeyB58 < reg.Signers[1].SignerPublicKeyB58)
}
