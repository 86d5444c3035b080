package models

// ObjectType identifies the kind of a semantic-model object.
type ObjectType string

const (
	ObjectTypeTable        ObjectType = "table"
	ObjectTypeColumn       ObjectType = "column"
	ObjectTypeMetric       ObjectType = "metric"
	ObjectTypeRelationship ObjectType = "relationship"
	ObjectTypeRole         ObjectType = "role"
)

// ValidObjectType reports whether s names a known object type.
func ValidObjectType(s string) bool {
	switch ObjectType(s) {
	case ObjectTypeTable, ObjectTypeColumn, ObjectTypeMetric, ObjectTypeRelationship, ObjectTypeRole:
		return true
	}
	return false
}

// ObjectStatistics holds provider-supplied statistics for an object.
// Nil pointer fields mean the provider could not supply the value.
type ObjectStatistics struct {
	RowCount      *int64 `json:"row_count,omitempty"`
	DistinctCount *int64 `json:"distinct_count,omitempty"`
}

// RelationshipEndpoints holds the structural endpoints of a relationship
// object, supplied directly by the Model Provider rather than parsed from
// a definition body.
type RelationshipEndpoints struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	IsActive   bool   `json:"is_active"`
}

// Object is an immutable snapshot of a named entity in the source model,
// taken at export time. Re-exporting produces new, independent snapshots.
type Object struct {
	// ID is the stable identifier, e.g. "table:Sales",
	// "column:Sales.Amount", "metric:Total Sales".
	ID string `json:"id"`

	Type ObjectType `json:"type"`
	Name string     `json:"name"`

	// TableName is the owning table for columns, metrics with a home
	// table, and role filters. Empty where not applicable.
	TableName string `json:"table_name,omitempty"`

	// Definition is the free-text expression/source body, where defined.
	Definition string `json:"definition,omitempty"`

	// DisplayFolder is the display-grouping label from the source model.
	DisplayFolder string `json:"display_folder,omitempty"`

	IsHidden bool `json:"is_hidden,omitempty"`

	Statistics *ObjectStatistics `json:"statistics,omitempty"`

	// Endpoints is populated for relationship objects only.
	Endpoints *RelationshipEndpoints `json:"endpoints,omitempty"`
}

// ObjectID builds the stable identifier for an object. Columns are
// qualified by their owning table; every other type is qualified by its
// type tag alone.
func ObjectID(t ObjectType, tableName, name string) string {
	if t == ObjectTypeColumn && tableName != "" {
		return string(t) + ":" + tableName + "." + name
	}
	return string(t) + ":" + name
}

// EdgeKind classifies a dependency edge.
type EdgeKind string

const (
	EdgeReferencesColumn  EdgeKind = "references-column"
	EdgeReferencesMetric  EdgeKind = "references-metric"
	EdgeParticipatesInRel EdgeKind = "participates-in-relationship"
	EdgeFilteredByRole    EdgeKind = "filtered-by-role"
)

// DependencyEdge is a directed, derived relation between two objects.
// Edges are never authored; they exist only in the dependency indices
// and the exported dependencies file.
type DependencyEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}
