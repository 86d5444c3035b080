package budget

import (
	"encoding/json"
	"sort"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Columnar re-encodes a slice of records into the compact columnar
// shape: the field schema named once, then one row of values per record.
// It returns false when the encoding is not beneficial: fewer than
// compactMinRecords records, or records whose field sets differ.
func Columnar(items any) (*models.ColumnarList, bool) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, false
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false
	}
	if len(records) < compactMinRecords {
		return nil, false
	}

	// Field schema from the first record; every record must match it.
	fields := make([]string, 0, len(records[0]))
	for k := range records[0] {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, rec := range records[1:] {
		if len(rec) != len(fields) {
			return nil, false
		}
		for _, f := range fields {
			if _, ok := rec[f]; !ok {
				return nil, false
			}
		}
	}

	out := &models.ColumnarList{Fields: fields, Rows: make([][]any, len(records))}
	for i, rec := range records {
		row := make([]any, len(fields))
		for j, f := range fields {
			row[j] = rec[f]
		}
		out.Rows[i] = row
	}
	return out, true
}
