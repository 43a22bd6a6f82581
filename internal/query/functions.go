package query

import (
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrMismatchedDatetime is surfaced through SQLite when a time function
// receives a value that is not an RFC 3339 datetime string.
var ErrMismatchedDatetime = errors.New("mismatched: expect rfc3339 datetime string")

// scalarFuncs maps every registered scalar function name to its pure
// implementation. All datetime inputs are RFC 3339, the format commit
// datetimes are normalized to at the CSV boundary.
var scalarFuncs = map[string]any{
	"year":              udfYear,
	"month":             udfMonth,
	"weekday":           udfWeekday,
	"week":              udfWeeknum,
	"weeknum":           udfWeeknum,
	"hour":              udfHour,
	"period":            udfPeriod,
	"timestamp":         udfTimestamp,
	"timezone":          udfTimezone,
	"duration":          udfDuration,
	"time_format":       udfTimeFormat,
	"timestamp_rfc3339": udfTimestampRFC3339,
}

func parseDatetime(datetime string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, datetime)
	if err != nil {
		return time.Time{}, ErrMismatchedDatetime
	}

	return t, nil
}

// udfYear returns the calendar year of an RFC 3339 datetime.
func udfYear(datetime string) (int64, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return 0, err
	}

	return int64(t.Year()), nil
}

// udfMonth returns the month (1-12) of an RFC 3339 datetime.
func udfMonth(datetime string) (int64, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return 0, err
	}

	return int64(t.Month()), nil
}

// udfWeekday returns the three-letter English weekday abbreviation.
func udfWeekday(datetime string) (string, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return "", err
	}

	return t.Format("Mon"), nil
}

// udfWeeknum returns the number of days from Monday, 0-6.
func udfWeeknum(datetime string) (int64, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return 0, err
	}

	// time.Weekday counts from Sunday; shift so Monday is 0.
	return int64((t.Weekday() + 6) % 7), nil
}

// udfHour returns the hour of day, 0-23.
func udfHour(datetime string) (int64, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return 0, err
	}

	return int64(t.Hour()), nil
}

// Period boundaries, inclusive hours.
const (
	morningStart   = 8
	afternoonStart = 12
	eveningStart   = 19
)

// udfPeriod buckets the hour of day into Midnight, Morning, Afternoon,
// or Evening.
func udfPeriod(datetime string) (string, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return "", err
	}

	switch hour := t.Hour(); {
	case hour < morningStart:
		return "Midnight", nil
	case hour < afternoonStart:
		return "Morning", nil
	case hour < eveningStart:
		return "Afternoon", nil
	default:
		return "Evening", nil
	}
}

// udfTimestamp returns the Unix seconds of an RFC 3339 datetime.
func udfTimestamp(datetime string) (int64, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return 0, err
	}

	return t.Unix(), nil
}

// udfTimezone returns the UTC offset of an RFC 3339 datetime, e.g. "+08:00".
func udfTimezone(datetime string) (string, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return "", err
	}

	return t.Format("-07:00"), nil
}

// udfDuration humanizes the distance between now and a Unix timestamp.
func udfDuration(ts int64) string {
	return humanize.Time(time.Unix(ts, 0))
}

// udfTimeFormat renders an RFC 3339 datetime with a strftime-style format.
func udfTimeFormat(datetime, format string) (string, error) {
	t, err := parseDatetime(datetime)
	if err != nil {
		return "", err
	}

	return t.Format(strftimeLayout(format)), nil
}

// udfTimestampRFC3339 converts Unix seconds back to an RFC 3339 datetime
// in UTC; the inverse of udfTimestamp.
func udfTimestampRFC3339(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// strftimeDirectives maps strftime directives to Go reference-time tokens.
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'p': "PM",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// strftimeLayout translates a strftime format string into a Go time layout.
// Unknown directives pass through verbatim.
func strftimeLayout(format string) string {
	var sb strings.Builder

	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			sb.WriteByte(format[i])

			continue
		}

		i++

		directive, ok := strftimeDirectives[format[i]]
		if !ok {
			sb.WriteByte('%')
			sb.WriteByte(format[i])

			continue
		}

		sb.WriteString(directive)
	}

	return sb.String()
}
