// Package export encodes a warehouse result table into downloadable byte
// buffers. Results are derived, never cached: every export re-encodes from
// a freshly executed result.
package export

import (
	"fmt"
	"time"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatExcel   Format = "xlsx"
	FormatParquet Format = "parquet"
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatCSV, FormatExcel, FormatParquet:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", value)
	}
}

func Formats() []Format {
	return []Format{FormatCSV, FormatExcel, FormatParquet}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Filename() string {
	return "query_results." + string(f)
}

func Encode(format Format, result warehouse.Result) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(result)
	case FormatExcel:
		return Excel(result)
	case FormatParquet:
		return Parquet(result)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// CellString renders one result cell the way every export format shows it:
// SQL NULL is empty, byte strings are text, timestamps are RFC 3339.
func CellString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(typed)
	}
}
