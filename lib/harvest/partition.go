package harvest

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateRange is an inclusive range of calendar days. The hour and smaller
// components of From/To are ignored by all range math.
type DateRange struct {
	From time.Time
	To   time.Time
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: day(from), To: day(to)}
}

// utcDay rebuilds the calendar date in UTC so that range math counts
// days rather than 24 hour intervals. Midnight-to-midnight durations in
// a zone with DST are not whole multiples of 24 hours.
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Days() int {
	return int(utcDay(r.To).Sub(utcDay(r.From)).Hours()/24) + 1
}

// AtFloor reports whether the range is a single day, the minimum
// granularity the portal's date filters can express.
func (r DateRange) AtFloor() bool {
	return r.Days() <= 1
}

// Bisect splits the range at its midpoint into two disjoint halves whose
// union is the receiver. Must not be called on a single-day range.
func (r DateRange) Bisect() (DateRange, DateRange) {
	days := r.Days()
	if days < 2 {
		panic("bisecting a single-day range")
	}
	mid := day(r.From).AddDate(0, 0, days/2)
	left := DateRange{From: day(r.From), To: mid.AddDate(0, 0, -1)}
	right := DateRange{From: mid, To: day(r.To)}
	return left, right
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// Category is an enumerable filter dimension of the source, e.g. a known
// roster of hearing officers. Fixing a category to each of its values in
// turn partitions a query exactly, without having to guess split points.
type Category struct {
	Name   string
	Values []string
}

// LogicalQuery describes the full dataset wanted from the source. It is
// immutable for the duration of a harvest run.
type LogicalQuery struct {
	Range      DateRange
	Categories []Category
	// Filters are free-text parameters passed to the source verbatim,
	// they never participate in subdivision.
	Filters map[string]string
}

// Root returns the partition covering the entire logical query.
// Categories without values cannot subdivide anything and are dropped.
func (q LogicalQuery) Root() Partition {
	var unfixed []Category
	for _, cat := range q.Categories {
		if len(cat.Values) > 0 {
			unfixed = append(unfixed, cat)
		}
	}
	return Partition{
		Range:   q.Range,
		Fixed:   map[string]string{},
		Filters: q.Filters,
		unfixed: unfixed,
	}
}

// Partition is a concrete sub-query derived from a LogicalQuery by fixing
// categorical dimensions and/or narrowing the date range. Partitions
// produced by one subdivision step are disjoint and cover their parent.
type Partition struct {
	Range   DateRange
	Fixed   map[string]string
	Filters map[string]string

	unfixed []Category
}

// NextCategory returns the next un-fixed enumerable dimension, if any.
func (p Partition) NextCategory() (Category, bool) {
	if len(p.unfixed) == 0 {
		return Category{}, false
	}
	return p.unfixed[0], true
}

// Enumerate fixes the next category to each of its values, producing one
// child partition per value.
func (p Partition) Enumerate() []Partition {
	cat := p.unfixed[0]
	children := make([]Partition, len(cat.Values))
	for i, value := range cat.Values {
		fixed := make(map[string]string, len(p.Fixed)+1)
		for k, v := range p.Fixed {
			fixed[k] = v
		}
		fixed[cat.Name] = value
		children[i] = Partition{
			Range:   p.Range,
			Fixed:   fixed,
			Filters: p.Filters,
			unfixed: p.unfixed[1:],
		}
	}
	return children
}

// Bisect splits the partition's date range at its midpoint.
func (p Partition) Bisect() (Partition, Partition) {
	left, right := p.Range.Bisect()
	a := p
	a.Range = left
	b := p
	b.Range = right
	return a, b
}

// Label renders a stable human-readable identity for diagnostics.
func (p Partition) Label() string {
	var parts []string
	parts = append(parts, p.Range.String())

	keys := make([]string, 0, len(p.Fixed))
	for k := range p.Fixed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, p.Fixed[k]))
	}
	return strings.Join(parts, " ")
}
