// Package query answers metadata, search, definition, dependency, and
// derived-analysis queries against one exported package, composing
// deterministic batching with response budgeting in that order.
package query

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/semlens-inc/semlens-engine/pkg/apperrors"
	"github.com/semlens-inc/semlens-engine/pkg/export"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Handle is one package opened for reading. Each analysis layer is read
// from storage on first access and kept resident for the handle's
// lifetime; a layer is never re-read.
type Handle struct {
	id  string
	dir string

	catalogOnce sync.Once
	catalog     []models.CatalogEntry
	catalogErr  error

	depsOnce sync.Once
	deps     *models.DependencyFile
	depsErr  error

	metaOnce sync.Once
	meta     *models.PackageMetadata
	metaErr  error

	mu          sync.Mutex
	samples     map[string]*models.SampleFile
	definitions map[string]string
}

// OpenHandle opens a package directory for reading. A missing package
// is a fatal, immediately-reported error.
func OpenHandle(root, packageID string) (*Handle, error) {
	dir := export.PackageDir(root, packageID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &apperrors.Error{
			Category: apperrors.CategoryNotFound,
			Message:  fmt.Sprintf("package %q not found under %s", packageID, root),
			Hint:     "run export to produce a package, or check the package id",
			Err:      apperrors.ErrPackageNotFound,
		}
	}
	return &Handle{
		id:          packageID,
		dir:         dir,
		samples:     make(map[string]*models.SampleFile),
		definitions: make(map[string]string),
	}, nil
}

// ID returns the package identifier.
func (h *Handle) ID() string { return h.id }

// Catalog returns the catalog layer, loading it on first access.
func (h *Handle) Catalog() ([]models.CatalogEntry, error) {
	h.catalogOnce.Do(func() {
		path := filepath.Join(h.dir, export.AnalysisDir, export.CatalogFile)
		data, err := os.ReadFile(path)
		if err != nil {
			h.catalogErr = fmt.Errorf("read catalog layer: %w", err)
			return
		}
		if err := json.Unmarshal(data, &h.catalog); err != nil {
			h.catalogErr = apperrors.Corrupt("catalog", path, err)
		}
	})
	return h.catalog, h.catalogErr
}

// Dependencies returns the dependency layer, loading it on first access.
func (h *Handle) Dependencies() (*models.DependencyFile, error) {
	h.depsOnce.Do(func() {
		path := filepath.Join(h.dir, export.AnalysisDir, export.DependenciesFile)
		data, err := os.ReadFile(path)
		if err != nil {
			h.depsErr = fmt.Errorf("read dependency layer: %w", err)
			return
		}
		var deps models.DependencyFile
		if err := json.Unmarshal(data, &deps); err != nil {
			h.depsErr = apperrors.Corrupt("dependencies", path, err)
			return
		}
		h.deps = &deps
	})
	return h.deps, h.depsErr
}

// Metadata returns the summary layer, loading it on first access.
func (h *Handle) Metadata() (*models.PackageMetadata, error) {
	h.metaOnce.Do(func() {
		path := filepath.Join(h.dir, export.AnalysisDir, export.MetadataFile)
		data, err := os.ReadFile(path)
		if err != nil {
			h.metaErr = fmt.Errorf("read metadata layer: %w", err)
			return
		}
		var meta models.PackageMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			h.metaErr = apperrors.Corrupt("metadata", path, err)
			return
		}
		h.meta = &meta
	})
	return h.meta, h.metaErr
}

// Samples returns one table's sample unit, reading and decompressing it
// on first access.
func (h *Handle) Samples(tableName string) (*models.SampleFile, error) {
	h.mu.Lock()
	if sf, ok := h.samples[tableName]; ok {
		h.mu.Unlock()
		return sf, nil
	}
	h.mu.Unlock()

	path := filepath.Join(h.dir, export.SamplesDir, export.SampleFileName(tableName))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("sample unit for table", tableName)
		}
		return nil, fmt.Errorf("open sample unit %s: %w", tableName, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperrors.Corrupt("samples", path, err)
	}
	defer gz.Close()

	var sf models.SampleFile
	if err := json.NewDecoder(gz).Decode(&sf); err != nil {
		return nil, apperrors.Corrupt("samples", path, err)
	}

	h.mu.Lock()
	h.samples[tableName] = &sf
	h.mu.Unlock()
	return &sf, nil
}

// Definition returns one object's raw definition body from the
// definitions tree: the table unit for tables, or the object's section
// of the shared unit for metrics, relationships, and roles.
func (h *Handle) Definition(entry *models.CatalogEntry) (string, error) {
	key := entry.ID
	h.mu.Lock()
	if def, ok := h.definitions[key]; ok {
		h.mu.Unlock()
		return def, nil
	}
	h.mu.Unlock()

	var def string
	var err error
	switch entry.Type {
	case models.ObjectTypeTable:
		path := filepath.Join(h.dir, export.DefinitionsDir, export.TableDefsSubdir, export.TableDefFileName(entry.Name))
		var data []byte
		data, err = os.ReadFile(path)
		def = string(data)
	case models.ObjectTypeColumn:
		// Columns have no definition body of their own.
		return "", nil
	default:
		def, err = h.sharedUnitSection(entry)
	}
	if err != nil {
		return "", fmt.Errorf("read definition of %s: %w", entry.ID, err)
	}

	h.mu.Lock()
	h.definitions[key] = def
	h.mu.Unlock()
	return def, nil
}

// sharedUnitSection extracts one object's section from its shared
// definitions unit, delimited by the unit's comment headers.
func (h *Handle) sharedUnitSection(entry *models.CatalogEntry) (string, error) {
	var unit, kind string
	switch entry.Type {
	case models.ObjectTypeMetric:
		unit, kind = export.MetricsUnit, "metric"
	case models.ObjectTypeRelationship:
		unit, kind = export.RelationshipsUnit, "relationship"
	case models.ObjectTypeRole:
		unit, kind = export.RolesUnit, "role"
	default:
		return "", nil
	}

	path := filepath.Join(h.dir, export.DefinitionsDir, unit+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("-- %s: %s", kind, entry.Name)
	sectionPrefix := fmt.Sprintf("-- %s: ", kind)

	// A section runs from its header line to the next header line, not to
	// the next blank line: definition bodies may themselves contain blank
	// lines and must round-trip intact.
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		rest, ok := strings.CutPrefix(line, header)
		if !ok {
			continue
		}
		// Guard against a name that prefixes another object's name: the
		// header must end here or continue with the owning-table suffix.
		if rest != "" && !strings.HasPrefix(rest, " (") {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(lines[j], sectionPrefix) {
				end = j
				break
			}
		}
		return strings.TrimRight(strings.Join(lines[i+1:end], "\n"), "\n"), nil
	}
	return "", nil
}
