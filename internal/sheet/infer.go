package sheet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// inferSampleLimit caps how many non-blank values are examined per column.
const inferSampleLimit = 50

var boolLiteralRe = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
var boolTrueRe = regexp.MustCompile(`(?i)^(true|yes|1)$`)

// dateLayouts are tried in order when classifying and parsing date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// inferColumnType classifies a column from up to inferSampleLimit
// non-blank sampled values, in strict precedence order: boolean, then
// integer, then float, then date, then string. A column with no
// non-blank samples defaults to string.
func inferColumnType(values []string) DataType {
	isBool, isInt, isFloat, isDate := true, true, true, true
	sampled := 0

	for _, raw := range values {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		sampled++

		if !boolLiteralRe.MatchString(s) {
			isBool = false
		}
		if n, err := strconv.ParseFloat(s, 64); err != nil {
			isInt, isFloat = false, false
		} else if n != math.Trunc(n) {
			isInt = false
		}
		if _, ok := parseDate(s); !ok {
			isDate = false
		}

		if sampled >= inferSampleLimit {
			break
		}
	}

	if sampled == 0 {
		return TypeString
	}
	switch {
	case isBool:
		return TypeBoolean
	case isInt:
		return TypeInteger
	case isFloat:
		return TypeFloat
	case isDate:
		return TypeDate
	default:
		return TypeString
	}
}

// parseCell coerces one raw cell to its inferred type. Blank cells are
// null; a value that fails type-specific coercion is null rather than
// fatal, so one bad cell never sinks a whole file.
func parseCell(raw string, t DataType) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	switch t {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return nil
	case TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	case TypeBoolean:
		return boolTrueRe.MatchString(s)
	case TypeDate:
		if d, ok := parseDate(s); ok {
			return d
		}
		return nil
	default:
		return s
	}
}
