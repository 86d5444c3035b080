package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogEntry is the denormalized, display-ready view of an Object plus
// fields computed at export time. Entries are generated once per export
// and read-only thereafter.
type CatalogEntry struct {
	ID            string     `json:"id"`
	Type          ObjectType `json:"type"`
	Name          string     `json:"name"`
	TableName     string     `json:"table_name,omitempty"`
	DisplayFolder string     `json:"display_folder,omitempty"`
	IsHidden      bool       `json:"is_hidden,omitempty"`

	// Computed at export time from the dependency index.
	ComplexityScore int  `json:"complexity_score"`
	DependsOnCount  int  `json:"depends_on_count"`
	UsedByCount     int  `json:"used_by_count"`
	IsUnused        bool `json:"is_unused"`

	// UsedInVisuals is advisory metadata from the source model; it never
	// affects IsUnused.
	UsedInVisuals bool `json:"used_in_visuals,omitempty"`

	// Provider statistics; nil means unavailable, not zero.
	RowCount      *int64 `json:"row_count,omitempty"`
	DistinctCount *int64 `json:"distinct_count,omitempty"`

	// EstimatedBytes is a rough in-engine memory cost computed from
	// cardinality statistics. Nil when statistics were unavailable.
	EstimatedBytes *int64 `json:"estimated_bytes,omitempty"`
}

// PackageMetadata is the summary layer of an exported package
// (analysis/metadata.json) plus the identity record (package.json).
type PackageMetadata struct {
	PackageID  uuid.UUID `json:"package_id"`
	CreatedAt  time.Time `json:"created_at"`
	SourceName string    `json:"source_name"`

	ObjectCounts map[ObjectType]int `json:"object_counts"`
	EdgeCount    int                `json:"edge_count"`
	CycleCount   int                `json:"cycle_count"`
	OrphanCount  int                `json:"orphan_count"`

	// SampleOutcomes records per-table sample extraction results when
	// sampling was enabled. Partial failure is reported, not fatal.
	SampleOutcomes []SampleOutcome `json:"sample_outcomes,omitempty"`
}

// SampleOutcome is the per-table result of sample-row extraction.
type SampleOutcome struct {
	TableName string `json:"table_name"`
	RowCount  int    `json:"row_count"`
	Error     string `json:"error,omitempty"`
}

// DependencyFile is the serialized dependency layer
// (analysis/dependencies.json): both adjacency directions plus the
// cycle and orphan findings from the graph build.
type DependencyFile struct {
	Forward map[string][]DependencyEdge `json:"forward"`
	Reverse map[string][]string         `json:"reverse"`
	Cycles  [][]string                  `json:"cycles"`
	Orphans []string                    `json:"orphans"`
}

// SampleFile is one table's sampled rows (samples/<table>.json.gz).
type SampleFile struct {
	TableName string   `json:"table_name"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
}
