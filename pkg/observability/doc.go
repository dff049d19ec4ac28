// Package observability provides OpenTelemetry tracing and metrics for
// the pactaudit CLI. It wraps each operation (replay, judge,
// evidence-bundle, evidence-verify) in a span plus RED metrics so a
// collector can show request rate, error rate, and latency per
// operation.
//
// Initialize at process startup:
//
//	p, err := observability.New(ctx, observability.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// Wrap an operation:
//
//	ctx, done := p.TrackOperation(ctx, "replay", observability.ReplayOperation(id, status, rounds)...)
//	result, err := replay.Replay(t)
//	done(err)
//
// Create spans manually:
//
//	ctx, span := p.StartSpan(ctx, "operation_name")
//	defer span.End()
package observability
