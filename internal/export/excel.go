package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

const sheetName = "Sheet1"

// Excel encodes a result as a single-sheet xlsx workbook. The one sheet is
// named "Sheet1" with a header row of column names and no index column.
func Excel(result warehouse.Result) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	header := make([]any, len(result.Columns))
	for i, column := range result.Columns {
		header[i] = column
	}
	if err := file.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write sheet header: %w", err)
	}

	cells := make([]any, len(result.Columns))
	for rowIndex, row := range result.Rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) && row[i] != nil {
				cells[i] = row[i]
			}
		}
		anchor, err := excelize.CoordinatesToCellName(1, rowIndex+2)
		if err != nil {
			return nil, fmt.Errorf("locate sheet row: %w", err)
		}
		if err := file.SetSheetRow(sheetName, anchor, &cells); err != nil {
			return nil, fmt.Errorf("write sheet row: %w", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
