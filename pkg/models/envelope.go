package models

// Encoding selects the serialization shape of list-valued results.
type Encoding string

const (
	// EncodingVerbose is the self-describing object-per-record shape.
	EncodingVerbose Encoding = "verbose"
	// EncodingCompact is the columnar shape: field names stated once in a
	// header, then one row of values per record.
	EncodingCompact Encoding = "compact"
)

// BatchInfo describes which deterministic page of a larger candidate set
// a response carries. BatchNumber is 1-indexed.
type BatchInfo struct {
	BatchNumber  int  `json:"batch_number"`
	BatchSize    int  `json:"batch_size"`
	TotalItems   int  `json:"total_items"`
	TotalBatches int  `json:"total_batches"`
	HasMore      bool `json:"has_more"`
}

// ResponseMeta is the shared metadata block of every query envelope.
type ResponseMeta struct {
	Truncated     bool       `json:"truncated"`
	OriginalCount int        `json:"original_count,omitempty"`
	Batch         *BatchInfo `json:"batch_info,omitempty"`
	Encoding      Encoding   `json:"encoding,omitempty"`
}

// ErrorInfo carries a stable category tag plus a remediation hint for
// every user-visible failure.
type ErrorInfo struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

// Envelope is the uniform wrapper every query entry point returns.
type Envelope struct {
	Success  bool         `json:"success"`
	Error    *ErrorInfo   `json:"error,omitempty"`
	Metadata ResponseMeta `json:"metadata"`
}

// MetadataResult answers read_metadata.
type MetadataResult struct {
	Envelope
	Package *PackageMetadata `json:"data,omitempty"`
}

// ObjectListResult answers find_objects. Exactly one of Objects or
// Columnar is populated, per the requested encoding.
type ObjectListResult struct {
	Envelope
	Objects  []CatalogEntry `json:"data,omitempty"`
	Columnar *ColumnarList  `json:"data_compact,omitempty"`
}

// ColumnarList is the compact columnar shape: the field schema named once,
// followed by one row of values per record.
type ColumnarList struct {
	Fields []string `json:"fields"`
	Rows   [][]any  `json:"rows"`
}

// DefinitionResult answers get_object_definition: the entry, its raw
// definition body, and its immediate dependency neighborhood.
type DefinitionResult struct {
	Envelope
	Object     *CatalogEntry `json:"data,omitempty"`
	Definition string        `json:"definition,omitempty"`
	DependsOn  []string      `json:"depends_on,omitempty"`
	UsedBy     []string      `json:"used_by,omitempty"`
}

// DependencyTraversal answers analyze_dependencies.
type DependencyTraversal struct {
	Envelope
	Root      string   `json:"root,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Objects   []string `json:"data,omitempty"`
	MaxDepth  int      `json:"max_depth,omitempty"`
}

// Finding is one item produced by a derived-analysis scan.
type Finding struct {
	ObjectID string `json:"object_id"`
	Focus    string `json:"focus"`
	Severity string `json:"severity,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// AnalysisResult answers analyze.
type AnalysisResult struct {
	Envelope
	FocusAreas []string  `json:"focus_areas,omitempty"`
	Findings   []Finding `json:"data,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

// SampleRowsResult answers get_sample_rows.
type SampleRowsResult struct {
	Envelope
	TableName string        `json:"table_name,omitempty"`
	Columns   []string      `json:"columns,omitempty"`
	Rows      [][]any       `json:"rows,omitempty"`
	Columnar  *ColumnarList `json:"data_compact,omitempty"`
}
