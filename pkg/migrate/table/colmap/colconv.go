// package colmap
//
// maps column values between the source and the text only bronze target
package colmap

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type : column mapping type
type Type string

const (
	// FirebirdToText : firebird driver scalar -> postgres TEXT
	FirebirdToText Type = "FIREBIRD_TEXT"
)

// text forms of the firebird temporal types
const (
	TimestampLayout   = "2006-01-02 15:04:05.999999999"
	TimestampTZLayout = "2006-01-02 15:04:05.999999999-07:00"
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04:05.999999999"
	TimeTZLayout      = "15:04:05.999999999-07:00"
)

// Date : a DATE column value, rendered without a time part
type Date time.Time

// TimeOfDay : a TIME column value, the driver puts it on year 0
type TimeOfDay time.Time

// TimeOfDayTZ : a TIME WITH TIME ZONE column value
type TimeOfDayTZ time.Time

// TimestampTZ : a TIMESTAMP WITH TIME ZONE column value
type TimestampTZ time.Time

// Sanitize : returns a copy of the row with NUL characters removed from string values.
// Every other value, nil included, is passed through untouched.
func Sanitize(row []any) []any {
	res := make([]any, len(row))
	for i, v := range row {
		if s, ok := v.(string); ok {
			res[i] = strings.ReplaceAll(s, "\x00", "")
			continue
		}
		res[i] = v
	}
	return res
}

// Convert : renders a value as text for the target, nil means NULL.
// If the value has no text form it errors out
func Convert(t Type, v any) (*string, error) {
	if t != FirebirdToText {
		return nil, fmt.Errorf("Unsupported type %s", t)
	}
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = val
	case []byte:
		s = string(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case int32:
		s = strconv.FormatInt(int64(val), 10)
	case int16:
		s = strconv.FormatInt(int64(val), 10)
	case int:
		s = strconv.Itoa(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(val)
	case time.Time:
		s = val.Format(TimestampLayout)
	case Date:
		s = time.Time(val).Format(DateLayout)
	case TimeOfDay:
		s = time.Time(val).Format(TimeLayout)
	case TimeOfDayTZ:
		s = time.Time(val).Format(TimeTZLayout)
	case TimestampTZ:
		s = time.Time(val).Format(TimestampTZLayout)
	case fmt.Stringer:
		// decimals
		s = val.String()
	default:
		return nil, fmt.Errorf("This value of type %T does not have a text mapping", v)
	}
	return &s, nil
}

// ConvertRow : converts every value of a row, stops at the first value without a text form
func ConvertRow(t Type, row []any) ([]*string, error) {
	res := make([]*string, len(row))
	for i, v := range row {
		s, err := Convert(t, v)
		if err != nil {
			return nil, fmt.Errorf("column %d : %w", i+1, err)
		}
		res[i] = s
	}
	return res, nil
}
