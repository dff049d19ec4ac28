package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/crypto"
	"github.com/pactaudit/pactaudit/pkg/fixtures"
	"github.com/pactaudit/pactaudit/pkg/replay"
)

func scenario1Spec() fixtures.TranscriptSpec {
	return fixtures.TranscriptSpec{
		TranscriptID:         "t-success1",
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

func TestReplayScenario1MatchesGenesisHash(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)

	assert.Equal(t, "ee7e4e8263cfcd2d25783caa3dfff65e2dcb609c65024b7079fd1a5d96084eb4", tr.Rounds[0].PreviousRoundHash)
}

func TestReplayScenario1IsValid(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)

	res, err := replay.Replay(tr)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, replay.StatusValid, res.IntegrityStatus)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.LastValidRound)
	assert.Equal(t, tr.Rounds[2].RoundHash, res.LastValidHash)
	assert.Equal(t, 3, res.RoundsVerified)
	assert.Equal(t, 3, res.HashChainVerifications)
	assert.Equal(t, 3, res.SignatureVerifications)
}

func TestReplayDetectsBrokenHashChain(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)

	tr.Rounds[1].PreviousRoundHash = "tampered"

	res, err := replay.Replay(tr)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, replay.StatusInvalid, res.IntegrityStatus)
	assert.Equal(t, 0, res.LastValidRound)

	found := false
	for _, e := range res.Errors {
		if e.Type == replay.ErrHashChainBroken {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReplayDetectsSignatureTamper(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)

	tr.Rounds[2].Signature.SignatureB58 = tr.Rounds[0].Signature.SignatureB58

	res, err := replay.Replay(tr)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, replay.StatusInvalid, res.IntegrityStatus)
	assert.Equal(t, 1, res.LastValidRound)

	var sigErr *replay.Error
	for i := range res.Errors {
		if res.Errors[i].Type == replay.ErrSignatureInvalid {
			sigErr = &res.Errors[i]
		}
	}
	require.NotNil(t, sigErr)
	require.NotNil(t, sigErr.RoundNumber)
	assert.Equal(t, 2, *sigErr.RoundNumber)
}

func TestReplayDetectsNonMonotonicTimestampAsPartial(t *testing.T) {
	spec := scenario1Spec()
	// Round 2 regresses behind round 1's timestamp but the chain and
	// signatures are built correctly over this content, isolating the
	// monotonicity check from a hash-chain break.
	spec.Rounds[2].TimestampMs = spec.Rounds[0].TimestampMs

	tr, err := fixtures.BuildTranscript(spec)
	require.NoError(t, err)

	res, err := replay.Replay(tr)
	require.NoError(t, err)

	assert.False(t, res.OK)
	assert.Equal(t, replay.StatusPartial, res.IntegrityStatus)
	assert.Equal(t, 2, res.LastValidRound)

	found := false
	for _, e := range res.Errors {
		if e.Type == replay.ErrTimestampNonMonotonic {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReplayRejectsEmptyRoundsWithoutFailureEvent(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)
	tr.Rounds = nil

	res, err := replay.Replay(tr)
	require.NoError(t, err)

	assert.Equal(t, replay.StatusInvalid, res.IntegrityStatus)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, replay.ErrInvalidStructure, res.Errors[0].Type)
}

func TestReplayWithAsyncHasherMatchesSync(t *testing.T) {
	tr, err := fixtures.BuildTranscript(scenario1Spec())
	require.NoError(t, err)

	syncRes, err := replay.Replay(tr)
	require.NoError(t, err)

	engine := replay.NewEngineWithAsyncHasher(crypto.NewChannelAsyncHasher(crypto.NewSyncHasher()))
	asyncRes, err := engine.Replay(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, syncRes.IntegrityStatus, asyncRes.IntegrityStatus)
	assert.Equal(t, syncRes.LastValidRound, asyncRes.LastValidRound)
}
