package core

// convert.go provides type conversion for loosely typed source values.
//
// Source drivers hand back whatever the container stored: SQLite and ODBC return
// int64, float64, string, []byte or time.Time, and some exports keep amounts as
// text with locale separators ("1.234,56"). These functions normalize such values
// into the destination column types. Amounts go through shopspring/decimal so
// text parsing does not accumulate binary rounding before the final float64.

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"20060102",
}

// ToDecimal converts a source value to a decimal.
// Empty text converts to zero.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int8:
		return decimal.NewFromInt(int64(x)), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint8:
		return decimal.NewFromInt(int64(x)), nil
	case uint16:
		return decimal.NewFromInt(int64(x)), nil
	case uint32:
		return decimal.NewFromInt(int64(x)), nil
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	default:
		return decimal.Zero, fmt.Errorf("%w: cannot convert %T to number", ErrInvalidValue, v)
	}
}

// ToFloat converts a source value to float64.
func ToFloat(v any) (float64, error) {
	d, err := ToDecimal(v)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// ToInt converts a source value to int64, rounding fractional values.
func ToInt(v any) (int64, error) {
	d, err := ToDecimal(v)
	if err != nil {
		return 0, err
	}
	return d.Round(0).IntPart(), nil
}

// ToText converts a source value to text. Integral floats lose their
// fractional part so 2.0123456789e10 becomes "20123456789".
func ToText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case float64:
		return decimal.NewFromFloat(x).String()
	case float32:
		return decimal.NewFromFloat32(x).String()
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// ToTime converts a source value to a nullable timestamp.
// Nil and empty text are null; unparseable text is an error.
func ToTime(v any) (sql.NullTime, error) {
	switch x := v.(type) {
	case nil:
		return sql.NullTime{}, nil
	case time.Time:
		if x.IsZero() {
			return sql.NullTime{}, nil
		}
		return sql.NullTime{Time: x, Valid: true}, nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	default:
		return sql.NullTime{}, fmt.Errorf("%w: cannot convert %T to date", ErrInvalidValue, v)
	}
}

// ParseYear returns the fiscal year held by v. Accepts "2020", 2020 and 2020.0.
func ParseYear(v any) (int, bool) {
	s := ToText(v)
	if s == "" {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = cleanNumeric(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid number %q", ErrInvalidValue, s)
	}
	return d, nil
}

// cleanNumeric strips currency symbols and normalizes thousands and decimal
// separators. Both "1,234.56" and "1.234,56" become "1234.56".
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal point.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A lone comma followed by three digits groups thousands.
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	if negative {
		s = "-" + s
	}
	return s
}

func parseTime(s string) (sql.NullTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t, Valid: true}, nil
		}
	}
	return sql.NullTime{}, fmt.Errorf("%w: invalid date %q", ErrInvalidValue, s)
}
