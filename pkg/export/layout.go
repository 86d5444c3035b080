// Package export transforms an in-memory object list plus its dependency
// index into the durable three-layer package: an opaque definitions
// tree, the structured analysis files, and the compressed sample store.
// Packages are immutable once published; a re-export writes a new one.
package export

import (
	"path/filepath"
	"strings"
)

// On-disk layout of one package directory.
const (
	IdentityFile = "package.json"

	DefinitionsDir  = "definitions"
	TableDefsSubdir = "tables"

	AnalysisDir      = "analysis"
	MetadataFile     = "metadata.json"
	CatalogFile      = "catalog.json"
	DependenciesFile = "dependencies.json"

	SamplesDir = "samples"
)

// Shared definition units: one file each for metrics, relationships,
// and roles, alongside the per-table units.
const (
	MetricsUnit       = "metrics"
	RelationshipsUnit = "relationships"
	RolesUnit         = "roles"
)

// PackageDir returns the directory of a published package.
func PackageDir(root, packageID string) string {
	return filepath.Join(root, packageID)
}

// StagingDir returns the hidden staging location a package is written to
// before the atomic publish rename.
func StagingDir(root, packageID string) string {
	return filepath.Join(root, ".staging-"+packageID)
}

// SampleFileName returns the compressed sample unit name for a table.
func SampleFileName(tableName string) string {
	return safeFileName(tableName) + ".json.gz"
}

// TableDefFileName returns the definition unit name for a table.
func TableDefFileName(tableName string) string {
	return safeFileName(tableName) + ".txt"
}

// safeFileName replaces path-hostile characters in an object name.
func safeFileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return r.Replace(name)
}
