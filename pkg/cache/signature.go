// Package cache implements the two-tier cache: a fast sharded in-process
// LRU in front of a durable badger store, keyed by a normalized request
// signature.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category determines the TTL policy applied to an entry.
type Category string

const (
	// CategoryStatic covers raw catalog/definition/dependency lookups.
	// Static entries never expire by time: the package identity embedded
	// in the signature is the invalidation unit, so a new export simply
	// keys new entries.
	CategoryStatic Category = "static"

	// CategoryAnalysis covers derived-analysis results, which reflect a
	// point-in-time scan and decay quickly.
	CategoryAnalysis Category = "analysis"
)

// TTLPolicy holds the per-tier expiry windows for one category.
// A zero duration means no time-based expiry.
type TTLPolicy struct {
	L1 time.Duration
	L2 time.Duration
}

// Policies maps categories to their TTL windows.
type Policies map[Category]TTLPolicy

// DefaultPolicies returns the standard category split: static entries
// live as long as the package, analysis entries for minutes.
func DefaultPolicies() Policies {
	return Policies{
		CategoryStatic:   {L1: 0, L2: 0},
		CategoryAnalysis: {L1: 5 * time.Minute, L2: 30 * time.Minute},
	}
}

// Signature builds a stable cache key from an operation name, the owning
// package identity, and all call parameters. Parameter order does not
// affect the result.
func Signature(packageID, operation string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(packageID)
	b.WriteByte('|')
	b.WriteString(operation)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
