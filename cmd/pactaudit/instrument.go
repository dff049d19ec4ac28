package main

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pactaudit/pactaudit/pkg/audit"
	"github.com/pactaudit/pactaudit/pkg/config"
	"github.com/pactaudit/pactaudit/pkg/observability"
)

// instrumentedRun starts an observability span and records an audit
// log entry around a command's body, honoring PACTAUDIT_OTEL and
// OTEL_EXPORTER_OTLP_ENDPOINT from the environment. fn runs its own work
// and returns the attributes describing what happened (known only once
// it has run) alongside any error. The returned error is recorded on
// the span and in the audit entry but never changes the command's own
// exit code decision.
func instrumentedRun(eventType audit.EventType, action, resource string, fn func(ctx context.Context) ([]attribute.KeyValue, error)) error {
	cfg := config.Load()
	ctx := context.Background()

	obsCfg := observability.DefaultConfig()
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	obsCfg.Enabled = cfg.ObservabilityOn

	provider, provErr := observability.New(ctx, obsCfg)
	var endSpan func(error)
	if provErr == nil {
		defer provider.Shutdown(ctx)
		ctx, endSpan = provider.TrackOperation(ctx, action)
	}

	attrs, runErr := fn(ctx)
	if endSpan != nil {
		if s := observability.SpanFromContext(ctx); s != nil {
			s.SetAttributes(attrs...)
		}
		endSpan(runErr)
	}

	logger := audit.NewLogger()
	metadata := map[string]interface{}{}
	if runErr != nil {
		metadata["error"] = runErr.Error()
	}
	_ = logger.Record(ctx, eventType, action, resource, metadata)

	return runErr
}
