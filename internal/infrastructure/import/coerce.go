package fileimport

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Day-first layouts are tried before month-first ones
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"2-1-2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM", "3pm", "3 PM"}

var (
	trueTokens  = []string{"true", "yes", "1", "y", "on", "enabled", "active"}
	falseTokens = []string{"false", "no", "0", "n", "off", "disabled", "inactive"}

	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
)

// ParseDate accepts ISO, day-first numeric (D/M/Y, D.M.Y, D-M-Y), Y/M/D and
// written month formats. The result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, coercionError("date", value, "empty value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, coercionError("date", value, "use YYYY-MM-DD or DD/MM/YYYY")
}

// ParseTimeOfDay returns the value normalised to HH:MM
func ParseTimeOfDay(value string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return "", coercionError("time", value, "empty value")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(strings.ToUpper(layout), v); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", coercionError("time", value, "use HH:MM")
}

// ParseBool treats an empty value as false
func ParseBool(value string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false, nil
	}
	for _, t := range trueTokens {
		if v == t {
			return true, nil
		}
	}
	for _, f := range falseTokens {
		if v == f {
			return false, nil
		}
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n != 0, nil
	}
	return false, coercionError("boolean", value, "use yes or no")
}

// ParseInt strips thousand separators. Fractional values are rejected.
func ParseInt(value string) (int, error) {
	v := stripSeparators(value)
	if v == "" {
		return 0, coercionError("integer", value, "empty value")
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, coercionError("integer", value, "")
	}
	return int(f), nil
}

// ParseDecimal strips currency symbols and thousand separators
func ParseDecimal(value string) (decimal.Decimal, error) {
	v := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, value)
	v = stripSeparators(v)
	for _, code := range []string{"EUR", "GBP", "USD", "NGN"} {
		v = strings.TrimSuffix(strings.TrimPrefix(v, code), code)
	}
	if v == "" {
		return decimal.Zero, coercionError("decimal", value, "empty value")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, coercionError("decimal", value, "")
	}
	return d, nil
}

func stripSeparators(value string) string {
	return strings.NewReplacer(",", "", " ", "", " ", "").Replace(strings.TrimSpace(value))
}

// ParseEmail lower-cases and validates an address
func ParseEmail(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if !emailPattern.MatchString(v) {
		return "", coercionError("email", value, "invalid email format")
	}
	return v, nil
}

// ParsePhone keeps digits and a leading plus. Irish national numbers
// (leading 0) and 00-prefixed international numbers become +E.164.
func ParsePhone(value string) (string, error) {
	v := strings.TrimSpace(value)
	var b strings.Builder
	for i, r := range v {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	digits := strings.TrimPrefix(cleaned, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", coercionError("phone number", value, "expected 7 to 15 digits")
	}
	switch {
	case strings.HasPrefix(cleaned, "+"):
		return cleaned, nil
	case strings.HasPrefix(cleaned, "00"):
		return "+" + cleaned[2:], nil
	case strings.HasPrefix(cleaned, "0") && len(cleaned) >= 9 && len(cleaned) <= 10:
		return "+353" + cleaned[1:], nil
	default:
		return cleaned, nil
	}
}

// ParseEnum matches value case-insensitively against allowed values, then
// against aliases (keys lower case). The canonical spelling is returned.
func ParseEnum(value string, allowed []string, aliases map[string]string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", coercionError("value", value, "empty value")
	}
	for _, a := range allowed {
		if strings.ToLower(a) == v {
			return a, nil
		}
	}
	if canonical, ok := aliases[v]; ok {
		return canonical, nil
	}
	return "", coercionError("value", value, fmt.Sprintf("expected one of %s", strings.Join(allowed, ", ")))
}
