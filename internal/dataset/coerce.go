package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common timestamp formats accepted for datetime columns
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// ParseTimestamp parses s with the accepted formats. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CoerceTime converts a cell to a timestamp. Empty cells coerce to nil.
func CoerceTime(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		return x, nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil, nil
		}
		return *x, nil
	case string:
		if strings.TrimSpace(x) == "" || strings.EqualFold(x, "NaT") {
			return nil, nil
		}
		return ParseTimestamp(x)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to timestamp", v)
	}
}

// CoerceString converts a cell to its string form. nil becomes "".
func CoerceString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Key returns a comparable key for a cell value, used for set membership and
// grouping. Timestamps compare by instant regardless of location.
func Key(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "\x00nil"
	case time.Time:
		return "t:" + strconv.FormatInt(x.UnixNano(), 10)
	case string:
		return "s:" + x
	default:
		return "v:" + fmt.Sprint(v)
	}
}
