package query

import (
	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// GetSampleRows returns up to maxRows sampled rows for one table from
// the package's compressed sample store.
func (e *Engine) GetSampleRows(packageID, tableName string, maxRows int, enc models.Encoding) *models.SampleRowsResult {
	result := &models.SampleRowsResult{}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	sample, err := h.Samples(tableName)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	rows := sample.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	requested := len(rows)
	keep := requested
	if requested > 0 {
		keep, _ = e.budgeter.FitList(requested, rows[0], enc)
	}
	rows = rows[:keep]

	result.Envelope = okMeta(models.EncodingVerbose)
	budget.Annotate(&result.Envelope.Metadata, requested, keep)
	result.TableName = sample.TableName
	result.Columns = sample.Columns

	if enc == models.EncodingCompact && len(rows) >= 5 {
		// Sample rows are already columnar by construction.
		result.Columnar = &models.ColumnarList{Fields: sample.Columns, Rows: rows}
		result.Envelope.Metadata.Encoding = models.EncodingCompact
		return result
	}
	result.Rows = rows
	return result
}
