package sink

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/baderkha/fb-bronze/pkg/migrate/table"
	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

// EncodeCSV : renders rows in the csv dialect read by COPY ... WITH (FORMAT csv).
// NULL is an unquoted empty field, every text value is quoted so an empty
// string stays distinguishable from NULL. Rows are sanitized first.
func EncodeCSV(columns int, rows []table.Row) ([]byte, error) {
	var buf bytes.Buffer
	for i, row := range rows {
		if len(row) != columns {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), columns)
		}
		values, err := colmap.ConvertRow(colmap.FirebirdToText, colmap.Sanitize(row))
		if err != nil {
			return nil, fmt.Errorf("row %d : %w", i+1, err)
		}
		for j, v := range values {
			if j > 0 {
				buf.WriteByte(',')
			}
			if v == nil {
				continue
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(*v, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
