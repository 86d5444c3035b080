package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// DefinitionSink receives the opaque definition bodies for the
// source-of-truth layer. The package builder never interprets the text
// it hands over.
type DefinitionSink interface {
	// WriteTableUnit writes one table's definition unit.
	WriteTableUnit(tableName, body string) error
	// WriteSharedUnit writes one of the shared units (metrics,
	// relationships, roles).
	WriteSharedUnit(unit, body string) error
}

// fsSink writes the definitions tree under a directory.
type fsSink struct {
	dir string
}

func newFSSink(dir string) (*fsSink, error) {
	if err := os.MkdirAll(filepath.Join(dir, TableDefsSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("create definitions tree: %w", err)
	}
	return &fsSink{dir: dir}, nil
}

func (s *fsSink) WriteTableUnit(tableName, body string) error {
	path := filepath.Join(s.dir, TableDefsSubdir, TableDefFileName(tableName))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write table unit %s: %w", tableName, err)
	}
	return nil
}

func (s *fsSink) WriteSharedUnit(unit, body string) error {
	path := filepath.Join(s.dir, unit+".txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write shared unit %s: %w", unit, err)
	}
	return nil
}

// writeDefinitions renders the definitions tree: one unit per table
// (its column listing plus any table expression) and the three shared
// units. Any sink failure here is fatal for the whole build.
func writeDefinitions(sink DefinitionSink, objects []models.Object) error {
	columnsByTable := make(map[string][]string)
	var metrics, relationships, roles strings.Builder
	var tableOrder []string
	tableBodies := make(map[string]string)

	for i := range objects {
		obj := &objects[i]
		switch obj.Type {
		case models.ObjectTypeTable:
			tableOrder = append(tableOrder, obj.Name)
			tableBodies[obj.Name] = obj.Definition
		case models.ObjectTypeColumn:
			columnsByTable[obj.TableName] = append(columnsByTable[obj.TableName], obj.Name)
		case models.ObjectTypeMetric:
			fmt.Fprintf(&metrics, "-- metric: %s\n%s\n\n", obj.Name, obj.Definition)
		case models.ObjectTypeRelationship:
			if ep := obj.Endpoints; ep != nil {
				fmt.Fprintf(&relationships, "-- relationship: %s\n%s.%s -> %s.%s (active=%t)\n\n",
					obj.Name, ep.FromTable, ep.FromColumn, ep.ToTable, ep.ToColumn, ep.IsActive)
			}
		case models.ObjectTypeRole:
			fmt.Fprintf(&roles, "-- role: %s (table %s)\n%s\n\n", obj.Name, obj.TableName, obj.Definition)
		}
	}

	for _, table := range tableOrder {
		var body strings.Builder
		if def := tableBodies[table]; def != "" {
			body.WriteString(def)
			body.WriteString("\n\n")
		}
		fmt.Fprintf(&body, "-- columns of %s\n", table)
		for _, col := range columnsByTable[table] {
			body.WriteString(col)
			body.WriteByte('\n')
		}
		if err := sink.WriteTableUnit(table, body.String()); err != nil {
			return err
		}
	}

	if err := sink.WriteSharedUnit(MetricsUnit, metrics.String()); err != nil {
		return err
	}
	if err := sink.WriteSharedUnit(RelationshipsUnit, relationships.String()); err != nil {
		return err
	}
	return sink.WriteSharedUnit(RolesUnit, roles.String())
}
