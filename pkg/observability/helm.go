// Package observability provides pactaudit-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pactaudit-specific semantic convention attributes.
var (
	// Transcript attributes
	AttrTranscriptID = attribute.Key("pactaudit.transcript.id")
	AttrIntentID     = attribute.Key("pactaudit.intent.id")
	AttrIntentType   = attribute.Key("pactaudit.intent.type")

	// Replay attributes
	AttrIntegrityStatus = attribute.Key("pactaudit.replay.integrity_status")
	AttrRoundsVerified  = attribute.Key("pactaudit.replay.rounds_verified")

	// Judgment attributes
	AttrDetermination  = attribute.Key("pactaudit.judgment.determination")
	AttrConfidence     = attribute.Key("pactaudit.judgment.confidence")
	AttrRequiredActor  = attribute.Key("pactaudit.judgment.required_next_actor")
	AttrRequiredAction = attribute.Key("pactaudit.judgment.required_action")

	// Bundle attributes
	AttrBundleID    = attribute.Key("pactaudit.bundle.id")
	AttrBundleView  = attribute.Key("pactaudit.bundle.view")
	AttrVerifyOK    = attribute.Key("pactaudit.verify.ok")
	AttrRecomputeOK = attribute.Key("pactaudit.verify.recompute_ok")
	AttrChecksumsOK = attribute.Key("pactaudit.verify.checksums_ok")

	// Crypto attributes
	AttrCryptoAlgorithm = attribute.Key("pactaudit.crypto.algorithm")
	AttrCryptoOperation = attribute.Key("pactaudit.crypto.operation")
	AttrCryptoKeyID     = attribute.Key("pactaudit.crypto.key_id")
)

// ReplayOperation creates attributes for a replay (C5) run.
func ReplayOperation(transcriptID, integrityStatus string, roundsVerified int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTranscriptID.String(transcriptID),
		AttrIntegrityStatus.String(integrityStatus),
		AttrRoundsVerified.Int64(roundsVerified),
	}
}

// JudgmentOperation creates attributes for a judge (C7) run.
func JudgmentOperation(transcriptID, determination, requiredActor, requiredAction string, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTranscriptID.String(transcriptID),
		AttrDetermination.String(determination),
		AttrConfidence.Float64(confidence),
		AttrRequiredActor.String(requiredActor),
		AttrRequiredAction.String(requiredAction),
	}
}

// BundleOperation creates attributes for an evidence-bundle (C11) build.
func BundleOperation(transcriptID, bundleID, view string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTranscriptID.String(transcriptID),
		AttrBundleID.String(bundleID),
		AttrBundleView.String(view),
	}
}

// VerifyOperation creates attributes for a bundle verifier (C12) run.
func VerifyOperation(ok, checksumsOK, recomputeOK bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrVerifyOK.Bool(ok),
		AttrChecksumsOK.Bool(checksumsOK),
		AttrRecomputeOK.Bool(recomputeOK),
	}
}

// CryptoOperation creates attributes for cryptographic operations
// (signature verification, hash-chain checks).
func CryptoOperation(algorithm, operation, keyID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCryptoAlgorithm.String(algorithm),
		AttrCryptoOperation.String(operation),
		AttrCryptoKeyID.String(keyID),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
