// Package budget enforces the per-response size ceiling: it estimates
// the serialized token cost of candidate payloads, trims list-valued
// fields to fit, and provides the compact columnar encoding for
// homogeneous lists. Batching decides which slice of data is a
// candidate; budgeting decides whether even that slice must shrink.
package budget

import (
	"encoding/json"
	"reflect"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// bytesPerToken is the serialization-to-token heuristic: roughly four
// bytes of JSON per token.
const bytesPerToken = 4

// compactMinRecords is the array length at which the columnar encoding
// starts paying for its header. Below it, verbose wins.
const compactMinRecords = 5

// Budgeter estimates and enforces a response token ceiling.
type Budgeter struct {
	maxTokens int
}

// New creates a budgeter with the given token ceiling.
func New(maxTokens int) *Budgeter {
	if maxTokens <= 0 {
		maxTokens = 6000
	}
	return &Budgeter{maxTokens: maxTokens}
}

// MaxTokens returns the configured ceiling.
func (b *Budgeter) MaxTokens() int { return b.maxTokens }

// EstimateTokens returns the estimated token cost of v under the given
// encoding. The compact encoding costs roughly half the verbose one, but
// only pays off for arrays of at least compactMinRecords records; for
// anything else the verbose estimate is returned unchanged.
func (b *Budgeter) EstimateTokens(v any, enc models.Encoding) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	tokens := (len(data) + bytesPerToken - 1) / bytesPerToken

	if enc == models.EncodingCompact && compactBeneficial(v) {
		tokens /= 2
	}
	return tokens
}

// compactBeneficial reports whether v is an array-shaped value long
// enough for the columnar encoding to help. Single objects and deeply
// nested structures stay verbose.
func compactBeneficial(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice && rv.Len() >= compactMinRecords
}
