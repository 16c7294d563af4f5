package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

// CSV encodes a result as UTF-8 RFC 4180 bytes: a header row of column
// names in original order, then exactly one record per result row. No
// synthetic index column is emitted.
func CSV(result warehouse.Result) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = CellString(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
