package budget

import (
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// envelopeReserveTokens is held back for the status/error/metadata
// fields of every response; those are always preserved in full.
const envelopeReserveTokens = 100

// FitList computes how many items of an itemCount-long list fit the
// remaining budget, estimating per-item cost from a sample item. The
// returned truncated flag is true whenever the kept count is smaller
// than itemCount; callers must surface it together with the original
// count so the caller can narrow and retry.
func (b *Budgeter) FitList(itemCount int, sampleItem any, enc models.Encoding) (keep int, truncated bool) {
	if itemCount == 0 {
		return 0, false
	}

	perItem := b.EstimateTokens(sampleItem, models.EncodingVerbose)
	if perItem == 0 {
		perItem = 1
	}

	available := b.maxTokens - envelopeReserveTokens
	maxItems := available / perItem

	// The compact discount only holds when the kept list itself stays
	// columnar; below compactMinRecords the encoder falls back to
	// verbose, so the verbose estimate governs.
	if enc == models.EncodingCompact && itemCount >= compactMinRecords {
		compactPerItem := (perItem + 1) / 2
		if n := available / compactPerItem; n >= compactMinRecords {
			maxItems = n
		}
	}
	if maxItems >= itemCount {
		return itemCount, false
	}
	if maxItems < 1 {
		maxItems = 1
	}
	return maxItems, true
}

// Annotate records a truncation outcome on a response metadata block:
// the honest flag plus the recoverable original count.
func Annotate(meta *models.ResponseMeta, originalCount, kept int) {
	if kept < originalCount {
		meta.Truncated = true
		meta.OriginalCount = originalCount
	} else {
		meta.Truncated = false
	}
}
