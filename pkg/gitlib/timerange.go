package gitlib

import "time"

// CommitWindowStep is the width of one commit-extraction window.
const CommitWindowStep = 120 * 24 * time.Hour

// dayFormat renders window endpoints for `git log --since/--before`.
const dayFormat = "2006-01-02"

// TimeRange is a (since, before) date pair bounding one `git log`
// invocation. Both fields empty means "full history, no date bounds".
type TimeRange struct {
	Since  string
	Before string
}

// IsUnbounded reports whether the range asks for full history.
func (r TimeRange) IsUnbounded() bool {
	return r.Since == "" && r.Before == ""
}

// CalcRange partitions [start, end] into consecutive windows of the given
// step, plus a final short window covering the remainder. Endpoints are
// Unix seconds; windows are formatted as UTC dates. Degenerate inputs
// (no full window and a collapsed remainder) yield the single unbounded
// sentinel range.
func CalcRange(step time.Duration, start, end int64) []TimeRange {
	var ranges []TimeRange

	stepSecs := int64(step / time.Second)

	cursor := start
	for cursor+stepSecs <= end {
		ranges = append(ranges, TimeRange{
			Since:  formatDay(cursor),
			Before: formatDay(cursor + stepSecs),
		})
		cursor += stepSecs
	}

	if cursor < end {
		ranges = append(ranges, TimeRange{
			Since:  formatDay(cursor),
			Before: formatDay(end),
		})
	}

	if len(ranges) == 0 {
		return []TimeRange{{}}
	}

	if len(ranges) == 1 && ranges[0].Since == ranges[0].Before {
		return []TimeRange{{}}
	}

	return ranges
}

func formatDay(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dayFormat)
}
