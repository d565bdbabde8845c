package frame

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Kind identifies the runtime type of a single cell.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
	KindBool
)

// Value is one cell of a Frame. The zero value is a null cell.
type Value struct {
	kind Kind
	str  string
	num  float64
	ts   time.Time
	b    bool
}

// Null returns a null cell.
func Null() Value { return Value{} }

// Str returns a string cell.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Num returns a numeric cell.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Time returns a timestamp cell.
func Time(t time.Time) Value { return Value{kind: KindTime, ts: t} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Infer converts a raw text cell into a typed value. Empty text becomes
// null; text that parses as a plain float becomes numeric; everything else
// stays a string. Thousands separators are deliberately not stripped here,
// that is the strip_thousands cleanup flag's job.
func Infer(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Num(f)
	}
	return Str(raw)
}

// Kind returns the cell's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric value and whether the cell is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Timestamp returns the time value and whether the cell is a timestamp.
func (v Value) Timestamp() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.ts, true
}

// String renders the cell for display and CSV output. Null renders empty,
// numbers drop trailing zeros, timestamps use ISO dates.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTime:
		return v.ts.Format("2006-01-02")
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// AsNumber attempts numeric coercion of the cell. Strings must parse as a
// plain float; timestamps and booleans do not coerce.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006-Jan",
	"Jan-2006",
	"Jan 2006",
	"2006 Jan",
	"January 2006",
	"2006-January",
	"2006-01",
	"01-2006",
}

// AsTime attempts date coercion. String cells are tried against a fixed set
// of layouts, with month names normalized to title case first so labels like
// "2024-jan" produced by merged period headers still parse.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.ts, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return time.Time{}, false
		}
		candidates := []string{s, titleCaseWords(s)}
		for _, c := range candidates {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, c); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}

// titleCaseWords upper-cases the first letter of each alphabetic run so
// month tokens match Go's reference layouts.
func titleCaseWords(s string) string {
	var b strings.Builder
	startOfWord := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if startOfWord {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			startOfWord = false
		} else {
			b.WriteRune(r)
			startOfWord = true
		}
	}
	return b.String()
}
