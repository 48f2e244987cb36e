package query

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/types"
)

// TicksPerDay is the number of 100ns ticks in a day. Time values are
// compared as ticks since midnight.
const TicksPerDay int64 = 24 * ticksPerHour

const (
	ticksPerSecond int64 = 10_000_000
	ticksPerMinute       = 60 * ticksPerSecond
	ticksPerHour         = 60 * ticksPerMinute
)

// Open bounds of date and datetime ranges.
var (
	MinDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// DateLayout is the DA value format.
const DateLayout = "20060102"

// DT formats, most specific first.
var dateTimeLayouts = []string{
	"20060102150405.999999",
	"20060102150405",
	"200601021504",
	"2006010215",
	"20060102",
	"200601",
	"2006",
}

// Same formats with a UTC offset. Values matching them are rejected with a
// dedicated message.
var dateTimeOffsetLayouts = func() []string {
	layouts := make([]string, len(dateTimeLayouts))
	for i, layout := range dateTimeLayouts {
		layouts[i] = layout + "-0700"
	}
	return layouts
}()

type valueParser func(tag types.QueryTag, name, raw string, ranged bool) (Condition, error)

var valueParsers = map[dicom.VR]valueParser{
	dicom.VR_DA: parseDate,
	dicom.VR_DT: parseDateTime,
	dicom.VR_TM: parseTime,

	dicom.VR_AE: parseString,
	dicom.VR_AS: parseString,
	dicom.VR_CS: parseString,
	dicom.VR_DS: parseString,
	dicom.VR_IS: parseString,
	dicom.VR_LO: parseString,
	dicom.VR_PN: parseString,
	dicom.VR_SH: parseString,
	dicom.VR_UI: parseString,

	dicom.VR_SL: parseLong,
	dicom.VR_SS: parseLong,
	dicom.VR_UL: parseLong,
	dicom.VR_US: parseLong,
	dicom.VR_SV: parseLong,
	dicom.VR_UV: parseLong,

	dicom.VR_FL: parseDouble,
	dicom.VR_FD: parseDouble,
}

// IsQueryableVR reports whether filters on attributes of vr can be compiled.
func IsQueryableVR(vr dicom.VR) bool {
	_, ok := valueParsers[vr]
	return ok
}

// ParseDateTime parses a DT value without UTC offset.
func ParseDateTime(s string) (time.Time, bool) {
	return parseLayouts(dateTimeLayouts, s)
}

// parseValue converts the raw value of a filter on tag. name is the
// parameter key, used in error messages.
func parseValue(tag types.QueryTag, name, raw string, fuzzy bool) (Condition, error) {
	parser, ok := valueParsers[tag.VR]
	if !ok {
		return nil, errors.NewQueryParseError(errors.KindUnknownAttribute, name, errors.MsgUnknownQueryParameter, name)
	}
	if fuzzy && tag.VR == dicom.VR_PN {
		return parseFuzzy(tag, name, raw)
	}
	return parser(tag, name, raw, isRangeEligible(tag))
}

func parseString(tag types.QueryTag, _, raw string, _ bool) (Condition, error) {
	return NewSingleValueMatch(tag, raw), nil
}

func parseLong(tag types.QueryTag, name, raw string, _ bool) (Condition, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, malformed(name, errors.MsgInvalidLong, name, raw)
	}
	return NewSingleValueMatch(tag, v), nil
}

func parseDouble(tag types.QueryTag, name, raw string, _ bool) (Condition, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, malformed(name, errors.MsgInvalidDouble, name, raw)
	}
	return NewSingleValueMatch(tag, v), nil
}

func parseFuzzy(tag types.QueryTag, name, raw string) (Condition, error) {
	if strings.ContainsRune(raw, '"') {
		return nil, malformed(name, errors.MsgFuzzyUnsupportedChar, raw, name, '"')
	}
	value := strings.Join(strings.Fields(strings.ReplaceAll(raw, "^", " ")), " ")
	if value == "" {
		return nil, errors.NewQueryParseError(errors.KindEmptyValue, name, errors.MsgEmptyAttributeValue, name)
	}
	return NewFuzzyMatch(tag, value), nil
}

func parseDate(tag types.QueryTag, name, raw string, ranged bool) (Condition, error) {
	return parseTemporal(tag, name, raw, ranged, MinDate, MaxDate, func(s string) (time.Time, error) {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, malformed(name, errors.MsgInvalidDate, name, s)
		}
		return t, nil
	})
}

func parseDateTime(tag types.QueryTag, name, raw string, ranged bool) (Condition, error) {
	if hasNegativeOffset(raw) {
		return nil, malformed(name, errors.MsgDateTimeOffset, name, raw)
	}
	return parseTemporal(tag, name, raw, ranged, MinDate, MaxDate, func(s string) (time.Time, error) {
		if t, ok := parseLayouts(dateTimeLayouts, s); ok {
			return t, nil
		}
		if _, ok := parseLayouts(dateTimeOffsetLayouts, s); ok {
			return time.Time{}, malformed(name, errors.MsgDateTimeOffset, name, s)
		}
		return time.Time{}, malformed(name, errors.MsgInvalidDateTime, name, s)
	})
}

func parseTime(tag types.QueryTag, name, raw string, ranged bool) (Condition, error) {
	return parseTemporal(tag, name, raw, ranged, 0, TicksPerDay, func(s string) (int64, error) {
		ticks, ok := ParseTicks(s)
		if !ok {
			return 0, malformed(name, errors.MsgInvalidTime, name, s)
		}
		return ticks, nil
	})
}

// parseTemporal parses either a single value or, for range-eligible tags, a
// "min-max" range where one side may be empty.
func parseTemporal[T time.Time | int64](tag types.QueryTag, name, raw string, ranged bool, lower, upper T, parse func(string) (T, error)) (Condition, error) {
	if ranged {
		if lo, hi, ok := splitRange(raw); ok {
			if lo == "" && hi == "" {
				return nil, malformed(name, errors.MsgEmptyRange, name)
			}
			start, end := lower, upper
			var err error
			if lo != "" {
				if start, err = parse(lo); err != nil {
					return nil, err
				}
			}
			if hi != "" {
				if end, err = parse(hi); err != nil {
					return nil, err
				}
			}
			if after(start, end) {
				return nil, malformed(name, errors.MsgInvalidRange, raw, name)
			}
			return NewRangeMatch(tag, start, end), nil
		}
	}

	v, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return NewSingleValueMatch(tag, v), nil
}

func after[T time.Time | int64](a, b T) bool {
	switch x := any(a).(type) {
	case time.Time:
		return x.After(any(b).(time.Time))
	case int64:
		return x > any(b).(int64)
	}
	return false
}

// hasNegativeOffset reports whether raw is a DT value carrying a "-HHMM"
// UTC offset, which would otherwise split as a range ending in a year. The
// value must include at least the hour and the offset must lie within
// [-1200, -0000].
func hasNegativeOffset(raw string) bool {
	value, offset, ok := strings.Cut(raw, "-")
	if !ok || len(offset) != 4 || !isDigits(offset) || len(value) < len("2006010215") {
		return false
	}
	hh, _ := strconv.Atoi(offset[:2])
	mm, _ := strconv.Atoi(offset[2:])
	if hh > 12 || mm > 59 {
		return false
	}
	_, ok = parseLayouts(dateTimeLayouts, value)
	return ok
}

// splitRange splits on exactly one '-'.
func splitRange(raw string) (string, string, bool) {
	if strings.Count(raw, "-") != 1 {
		return "", "", false
	}
	lo, hi, _ := strings.Cut(raw, "-")
	return strings.TrimSpace(lo), strings.TrimSpace(hi), true
}

func parseLayouts(layouts []string, s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTicks converts a TM value, HH[MM[SS[.F{1,6}]]], to 100ns ticks since
// midnight.
func ParseTicks(s string) (int64, bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	switch len(whole) {
	case 2, 4, 6:
	default:
		return 0, false
	}
	if hasFrac && (len(whole) != 6 || len(frac) == 0 || len(frac) > 6) {
		return 0, false
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, false
	}

	hours, _ := strconv.ParseInt(whole[0:2], 10, 64)
	if hours > 23 {
		return 0, false
	}
	ticks := hours * ticksPerHour

	if len(whole) >= 4 {
		minutes, _ := strconv.ParseInt(whole[2:4], 10, 64)
		if minutes > 59 {
			return 0, false
		}
		ticks += minutes * ticksPerMinute
	}
	if len(whole) == 6 {
		seconds, _ := strconv.ParseInt(whole[4:6], 10, 64)
		if seconds > 59 {
			return 0, false
		}
		ticks += seconds * ticksPerSecond
	}
	if hasFrac {
		// seven fractional digits per second at 100ns resolution
		f, _ := strconv.ParseInt(frac+strings.Repeat("0", 7-len(frac)), 10, 64)
		ticks += f
	}
	return ticks, true
}

// FormatTicks renders ticks since midnight as HHMMSS.FFFFFF.
func FormatTicks(ticks int64) string {
	h := ticks / ticksPerHour
	m := ticks % ticksPerHour / ticksPerMinute
	s := ticks % ticksPerMinute / ticksPerSecond
	us := ticks % ticksPerSecond / 10
	return pad(h, 2) + pad(m, 2) + pad(s, 2) + "." + pad(us, 6)
}

func pad(v int64, width int) string {
	s := strconv.FormatInt(v, 10)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func malformed(name, format string, args ...interface{}) error {
	return errors.NewQueryParseError(errors.KindMalformedValue, name, format, args...)
}
