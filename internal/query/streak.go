package query

import (
	"sort"
	"time"
)

// secondsPerDay is the streak ratio: integer division by it collapses
// same-day timestamps.
const secondsPerDay = 3600 * 24

// streakDayFormat renders streak boundary days.
const streakDayFormat = "2006-01-02"

// aggregateFuncs maps every registered aggregate name to its state
// constructor.
var aggregateFuncs = map[string]any{
	"active_days":          newActiveDays,
	"active_longest_count": newActiveLongestCount,
	"active_longest_start": newActiveLongestStart,
	"active_longest_end":   newActiveLongestEnd,
}

// timeInput is the list-valued intermediate state shared by all streak
// aggregates: the Unix second of every input datetime. Unparseable rows
// are skipped so one malformed datetime never poisons the aggregate.
type timeInput struct {
	data []int64
}

func (t *timeInput) step(datetime string) {
	parsed, err := time.Parse(time.RFC3339, datetime)
	if err != nil {
		return
	}

	t.data = append(t.data, parsed.Unix())
}

// calcLongest computes the longest run of consecutive periods with a
// linear two-pointer sweep over sorted data. It returns the run length in
// periods and the first and last timestamps of the run. Ties keep the
// earliest run.
func calcLongest(data []int64, ratio int64) (count, start, end int64) {
	if len(data) == 0 {
		return 0, 0, 0
	}

	if len(data) == 1 {
		return 1, data[0], data[0]
	}

	var (
		curr  int64 = 1
		best  int64
		l, r  int
		bestL int
		bestR int
	)

	for i := 0; i < len(data)-1; i++ {
		k := data[i+1]/ratio - data[i]/ratio

		switch k {
		case 0, 1:
			r = i + 1
			curr += k
		default:
			if curr > best {
				best = curr
				bestL, bestR = l, r
			}

			l = i + 1
			r = i + 1
			curr = 1
		}
	}

	if curr > best {
		return curr, data[l], data[r]
	}

	return best, data[bestL], data[bestR]
}

// longest sorts the collected state and runs the sweep with the daily ratio.
func (t *timeInput) longest() (count, start, end int64) {
	sort.Slice(t.data, func(i, j int) bool { return t.data[i] < t.data[j] })

	return calcLongest(t.data, secondsPerDay)
}

func formatStreakDay(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(streakDayFormat)
}

// activeDays counts distinct UTC calendar days with at least one input row.
type activeDays struct {
	timeInput
}

func newActiveDays() *activeDays { return &activeDays{} }

// Step accumulates one datetime.
func (a *activeDays) Step(datetime string) { a.step(datetime) }

// Done returns the distinct day count.
func (a *activeDays) Done() int64 {
	days := make(map[string]struct{}, len(a.data))
	for _, ts := range a.data {
		days[formatStreakDay(ts)] = struct{}{}
	}

	return int64(len(days))
}

// activeLongestCount returns the length in days of the longest run of
// consecutive active calendar days.
type activeLongestCount struct {
	timeInput
}

func newActiveLongestCount() *activeLongestCount { return &activeLongestCount{} }

// Step accumulates one datetime.
func (a *activeLongestCount) Step(datetime string) { a.step(datetime) }

// Done projects the run length.
func (a *activeLongestCount) Done() int64 {
	count, _, _ := a.longest()

	return count
}

// activeLongestStart returns the first day of the longest run.
type activeLongestStart struct {
	timeInput
}

func newActiveLongestStart() *activeLongestStart { return &activeLongestStart{} }

// Step accumulates one datetime.
func (a *activeLongestStart) Step(datetime string) { a.step(datetime) }

// Done projects the run start day.
func (a *activeLongestStart) Done() string {
	if len(a.data) == 0 {
		return ""
	}

	_, start, _ := a.longest()

	return formatStreakDay(start)
}

// activeLongestEnd returns the last active day of the longest run.
type activeLongestEnd struct {
	timeInput
}

func newActiveLongestEnd() *activeLongestEnd { return &activeLongestEnd{} }

// Step accumulates one datetime.
func (a *activeLongestEnd) Step(datetime string) { a.step(datetime) }

// Done projects the run end day.
func (a *activeLongestEnd) Done() string {
	if len(a.data) == 0 {
		return ""
	}

	_, _, end := a.longest()

	return formatStreakDay(end)
}
