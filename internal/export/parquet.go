package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

// Parquet encodes a result with one optional UTF8 column per result
// column. Cells are stringified the same way as the CSV export; SQL NULL
// becomes a parquet null.
func Parquet(result warehouse.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	group := parquet.Group{}
	for _, column := range result.Columns {
		group[column] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("query_result", group)

	records := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, column := range result.Columns {
			if i < len(row) && row[i] != nil {
				record[column] = CellString(row[i])
			}
		}
		records = append(records, record)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]any](buf, schema)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
