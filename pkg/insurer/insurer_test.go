package insurer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/dbl"
	"github.com/pactaudit/pactaudit/pkg/fixtures"
	"github.com/pactaudit/pactaudit/pkg/insurer"
	"github.com/pactaudit/pactaudit/pkg/replay"
	"github.com/pactaudit/pactaudit/pkg/transcript"
)

func happySpec() fixtures.TranscriptSpec {
	return fixtures.TranscriptSpec{
		TranscriptID:         "t-1",
		IntentID:             "intent-success1-test",
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
	}
}

func buildAndJudge(t *testing.T, spec fixtures.TranscriptSpec) (*replay.Result, *dbl.Judgment) {
	t.Helper()
	tr, err := fixtures.BuildTranscript(spec)
	require.NoError(t, err)
	rep, err := replay.Replay(tr)
	require.NoError(t, err)
	j, err := dbl.Judge(tr, rep)
	require.NoError(t, err)
	return rep, j
}

func TestDecideNoFaultIsCovered(t *testing.T) {
	rep, j := buildAndJudge(t, happySpec())
	assert.Equal(t, insurer.Covered, insurer.Decide(rep, j))
}

func TestDecideProviderAtFaultIsCoveredWithSurcharge(t *testing.T) {
	spec := happySpec()
	spec.FailureEvent = &transcript.FailureEvent{Code: "PACT-330", Stage: "contention", Terminality: "terminal"}
	rep, j := buildAndJudge(t, spec)
	assert.Equal(t, insurer.CoveredWithSurcharge, insurer.Decide(rep, j))
}

func TestDecideDeadlockRequiresEscrow(t *testing.T) {
	spec := happySpec()
	spec.FailureEvent = &transcript.FailureEvent{Code: "PACT-303", Stage: "deadlock", Terminality: "non_terminal"}
	rep, j := buildAndJudge(t, spec)
	assert.Equal(t, insurer.EscrowRequired, insurer.Decide(rep, j))
}

func TestDecideDoubleCommitIsExcluded(t *testing.T) {
	spec := happySpec()
	spec.FailureEvent = &transcript.FailureEvent{Code: "PACT-331", Stage: "contention", Terminality: "terminal"}
	rep, j := buildAndJudge(t, spec)
	assert.Equal(t, insurer.Excluded, insurer.Decide(rep, j))
}

func TestDecideBrokenIntegrityIsExcluded(t *testing.T) {
	spec := happySpec()
	tr, err := fixtures.BuildTranscript(spec)
	require.NoError(t, err)
	tr.Rounds[1].PreviousRoundHash = "tampered"
	rep, err := replay.Replay(tr)
	require.NoError(t, err)
	j, err := dbl.Judge(tr, rep)
	require.NoError(t, err)

	assert.Equal(t, insurer.Excluded, insurer.Decide(rep, j))
}

func TestTierFromPassportDelta(t *testing.T) {
	assert.Equal(t, insurer.TierA, insurer.TierFromPassportDelta(0.25))
	assert.Equal(t, insurer.TierB, insurer.TierFromPassportDelta(0.01))
	assert.Equal(t, insurer.TierB, insurer.TierFromPassportDelta(0.0))
	assert.Equal(t, insurer.TierC, insurer.TierFromPassportDelta(-0.05))
	assert.Equal(t, insurer.TierD, insurer.TierFromPassportDelta(-0.15))
}

func TestEvaluateRiskFlagsSkipsBrokenExpressionsAndSorts(t *testing.T) {
	rep, j := buildAndJudge(t, happySpec())
	flags := []insurer.RiskFlag{
		{Name: "Z_ALWAYS_TRUE", Expression: "true"},
		{Name: "BROKEN", Expression: "not valid cel +++"},
		{Name: "A_ALWAYS_TRUE", Expression: "true"},
	}
	names, err := insurer.EvaluateRiskFlags(rep, j, flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"A_ALWAYS_TRUE", "Z_ALWAYS_TRUE"}, names)
}

func TestRenderProducesRationale(t *testing.T) {
	rep, j := buildAndJudge(t, happySpec())
	summary, err := insurer.Render(rep, j, 0.01, nil)
	require.NoError(t, err)
	assert.Equal(t, insurer.Covered, summary.Coverage)
	assert.NotEmpty(t, summary.Rationale)
}
