package prize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTITY NORMALIZER
// =============================================================================

// Spreadsheet exports write some characters as _xHHHH_.
var escapePattern = regexp.MustCompile(`_x([0-9a-fA-F]{4})_`)

// Normalize canonicalizes an agent code, manager code or text cell so that
// equality comparisons survive spreadsheet export artifacts.
//
//	nil, NaN         -> ""
//	12345.0          -> "12345"
//	"12345.0"        -> "12345"
//	"_x0033_1 23"    -> "3123"
//	" ab12 "         -> "AB12"
func Normalize(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case float64:
		s = formatFloat(v)
	case float32:
		s = formatFloat(float64(v))
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case decimal.Decimal:
		s = v.String()
	case interface{ String() string }:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}

	s = decodeEscapes(s)
	s = stripSpace(s)
	s = dropIntegralFraction(s)
	return strings.ToUpper(s)
}

// CodesEqual compares two codes by canonical form. Empty codes never match.
func CodesEqual(a, b any) bool {
	ca := Normalize(a)
	return ca != "" && ca == Normalize(b)
}

// DisplayText cleans a cell for display: escapes decoded, ends trimmed,
// case and inner spacing preserved.
func DisplayText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(decodeEscapes(v))
	default:
		// Numbers still come back as their canonical code text.
		return Normalize(v)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decodeEscapes(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	return escapePattern.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseUint(m[2:6], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(n))
	})
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// dropIntegralFraction turns "123.0" / "123.00" into "123" when the
// integer part is all digits. Text read from CSV keeps the float suffix
// that numeric coercion introduced upstream.
func dropIntegralFraction(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 {
		return s
	}
	intPart, frac := s[:dot], s[dot+1:]
	if frac == "" || strings.Trim(frac, "0") != "" {
		return s
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return s
		}
	}
	return intPart
}

// =============================================================================
// MANAGER MATCHING
// =============================================================================

// MatchMode selects how a manager code is compared against the manager
// column of a row.
type MatchMode string

const (
	// MatchExact requires identical canonical forms.
	MatchExact MatchMode = "exact"

	// MatchContains accepts rows whose canonical manager cell contains the
	// canonical query. It tolerates export prefixes and suffixes but lets
	// "123" match "4123".
	MatchContains MatchMode = "contains"
)

// ParseMatchMode reads a mode name; anything unrecognized is MatchExact.
func ParseMatchMode(s string) MatchMode {
	if MatchMode(strings.ToLower(strings.TrimSpace(s))) == MatchContains {
		return MatchContains
	}
	return MatchExact
}

// ManagerMatch reports whether cell matches query under mode, and whether the
// match relied on containment (i.e. would have failed an exact comparison).
func ManagerMatch(mode MatchMode, cell, query any) (matched, relaxed bool) {
	c, q := Normalize(cell), Normalize(query)
	if c == "" || q == "" {
		return false, false
	}
	if c == q {
		return true, false
	}
	if mode == MatchContains && strings.Contains(c, q) {
		return true, true
	}
	return false, false
}
