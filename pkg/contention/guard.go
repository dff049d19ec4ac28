package contention

import (
	"context"
	"fmt"

	"github.com/pactaudit/pactaudit/pkg/kernel"
)

// GuardedIndex wraps a FingerprintIndex with a per-fingerprint
// backpressure policy, so a single fingerprint recorded at an unusual
// volume cannot starve a shared contention index that other
// fingerprints depend on.
type GuardedIndex struct {
	inner  FingerprintIndex
	store  kernel.LimiterStore
	policy kernel.BackpressurePolicy
}

// NewGuardedIndex wraps inner, denying Record calls for a fingerprint
// once that fingerprint exceeds policy.
func NewGuardedIndex(inner FingerprintIndex, store kernel.LimiterStore, policy kernel.BackpressurePolicy) *GuardedIndex {
	return &GuardedIndex{inner: inner, store: store, policy: policy}
}

func (g *GuardedIndex) Record(ctx context.Context, fingerprint, transcriptID string) error {
	allowed, err := g.store.Allow(ctx, fingerprint, g.policy, 1)
	if err != nil {
		return fmt.Errorf("contention: backpressure check: %w", err)
	}
	if !allowed {
		return fmt.Errorf("contention: rate limit exceeded for fingerprint %q", fingerprint)
	}
	return g.inner.Record(ctx, fingerprint, transcriptID)
}

func (g *GuardedIndex) Members(ctx context.Context, fingerprint string) ([]string, error) {
	return g.inner.Members(ctx, fingerprint)
}

func (g *GuardedIndex) Fingerprints(ctx context.Context) ([]string, error) {
	return g.inner.Fingerprints(ctx)
}
