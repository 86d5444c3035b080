package cache

import (
	"go.uber.org/zap"
)

// Tiered composes L1 over L2. Reads check L1 first; an L2 hit is
// promoted into L1 before returning. A total miss returns false and the
// caller computes and calls Set.
type Tiered struct {
	l1       *L1
	l2       *L2
	policies Policies
	logger   *zap.Logger
}

// NewTiered creates the two-tier cache. l2 may be nil, leaving an
// L1-only cache (used by some tests). Nil policies get the defaults.
func NewTiered(l1 *L1, l2 *L2, policies Policies, logger *zap.Logger) *Tiered {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tiered{l1: l1, l2: l2, policies: policies, logger: logger}
}

// Get returns the cached payload for key, consulting L1 then L2.
func (t *Tiered) Get(key string, category Category) ([]byte, bool) {
	if payload, ok := t.l1.Get(key); ok {
		return payload, true
	}
	if t.l2 == nil {
		return nil, false
	}
	payload, ok := t.l2.Get(key)
	if !ok {
		return nil, false
	}
	t.l1.Set(key, payload, category, t.policies[category].L1)
	return payload, true
}

// Set stores payload in both tiers under the category's TTL policy.
func (t *Tiered) Set(key string, payload []byte, category Category) {
	policy := t.policies[category]
	t.l1.Set(key, payload, category, policy.L1)
	if t.l2 != nil {
		t.l2.Set(key, payload, policy.L2)
	}
}
