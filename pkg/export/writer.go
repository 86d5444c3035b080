package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// writeJSONFile marshals v in one buffer and writes it. Used below the
// streaming threshold and for small files.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeCatalogStreaming writes the catalog array element-by-element to
// bound peak memory. At hundreds of tables this is a requirement, not
// an optimization.
func writeCatalogStreaming(path string, entries []models.CatalogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("[\n"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := range entries {
		data, err := json.Marshal(&entries[i])
		if err != nil {
			return fmt.Errorf("marshal catalog entry %s: %w", entries[i].ID, err)
		}
		if i > 0 {
			if _, err := w.WriteString(",\n"); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if _, err := w.WriteString("\n]\n"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// writeDependenciesStreaming writes the dependency file with its two
// map-valued sections emitted entry-by-entry, in sorted key order.
func writeDependenciesStreaming(path string, dep *models.DependencyFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	writeMapSection := func(name string, keys []string, value func(k string) any) error {
		if _, err := fmt.Fprintf(w, "%q:{", name); err != nil {
			return err
		}
		for i, k := range keys {
			data, err := json.Marshal(value(k))
			if err != nil {
				return err
			}
			if i > 0 {
				if _, err := w.WriteString(","); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%q:%s", k, data); err != nil {
				return err
			}
		}
		_, err := w.WriteString("}")
		return err
	}

	forwardKeys := sortedKeys(dep.Forward)
	reverseKeys := sortedKeys(dep.Reverse)

	if _, err := w.WriteString("{"); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writeMapSection("forward", forwardKeys, func(k string) any { return dep.Forward[k] }); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := w.WriteString(","); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writeMapSection("reverse", reverseKeys, func(k string) any { return dep.Reverse[k] }); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	cycles, err := json.Marshal(dep.Cycles)
	if err != nil {
		return fmt.Errorf("marshal cycles: %w", err)
	}
	orphans, err := json.Marshal(dep.Orphans)
	if err != nil {
		return fmt.Errorf("marshal orphans: %w", err)
	}
	if _, err := fmt.Fprintf(w, ",%q:%s,%q:%s}", "cycles", cycles, "orphans", orphans); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
