package harvest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"courtharvest-backend/lib/timezone"
)

func TestDateRangeBisect(t *testing.T) {
	testCases := []struct {
		days          int
		expectedLeft  int
		expectedRight int
	}{
		{days: 2, expectedLeft: 1, expectedRight: 1},
		{days: 3, expectedLeft: 1, expectedRight: 2},
		{days: 10, expectedLeft: 5, expectedRight: 5},
		{days: 31, expectedLeft: 15, expectedRight: 16},
	}

	for _, tc := range testCases {
		r := NewDateRange(testDay(1), testDay(tc.days))
		left, right := r.Bisect()

		require.Equal(t, tc.expectedLeft, left.Days(), "days=%d", tc.days)
		require.Equal(t, tc.expectedRight, right.Days(), "days=%d", tc.days)
		// adjacency: no gap, no overlap
		require.Equal(t, left.To.AddDate(0, 0, 1), right.From, "days=%d", tc.days)
		require.Equal(t, r.From, left.From)
		require.Equal(t, r.To, right.To)
	}
}

// The court's timezone observes DST, so the midnight-to-midnight span
// across a transition is 23 or 25 hours. Day counts are calendar counts
// and must not shrink or grow with the clock change.
func TestDateRangeDaysAcrossDST(t *testing.T) {
	loc := timezone.Location

	// 2026-03-08 is the spring-forward day, a 23 hour day
	spring := NewDateRange(
		time.Date(2026, 3, 8, 0, 0, 0, 0, loc),
		time.Date(2026, 3, 9, 0, 0, 0, 0, loc),
	)
	require.Equal(t, 2, spring.Days())
	require.False(t, spring.AtFloor())

	left, right := spring.Bisect()
	require.Equal(t, 1, left.Days())
	require.Equal(t, 1, right.Days())
	require.True(t, left.AtFloor())
	require.True(t, right.AtFloor())

	// 2026-11-01 is the fall-back day, a 25 hour day
	fall := NewDateRange(
		time.Date(2026, 10, 31, 0, 0, 0, 0, loc),
		time.Date(2026, 11, 2, 0, 0, 0, 0, loc),
	)
	require.Equal(t, 3, fall.Days())
}

// Property: at every subdivision step the children are pairwise disjoint
// and their union covers the parent exactly.
func TestBisectDisjointCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		start := time.Date(2020+rng.Intn(10), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		days := 2 + rng.Intn(400)
		r := NewDateRange(start, start.AddDate(0, 0, days-1))

		left, right := r.Bisect()
		require.Equal(t, r.Days(), left.Days()+right.Days())
		require.True(t, left.To.Before(right.From))

		// every day of the parent lands in exactly one child
		for d := 0; d < r.Days(); d++ {
			cur := r.From.AddDate(0, 0, d)
			inLeft := !cur.Before(left.From) && !cur.After(left.To)
			inRight := !cur.Before(right.From) && !cur.After(right.To)
			require.True(t, inLeft != inRight, "day %s", cur)
		}
	}
}

func TestPartitionEnumerate(t *testing.T) {
	query := LogicalQuery{
		Range: NewDateRange(testDay(1), testDay(30)),
		Categories: []Category{
			{Name: "officer", Values: []string{"A", "B"}},
			{Name: "division", Values: []string{"1", "2", "3"}},
		},
		Filters: map[string]string{"court_type": "22"},
	}

	root := query.Root()
	cat, ok := root.NextCategory()
	require.True(t, ok)
	require.Equal(t, "officer", cat.Name)

	children := root.Enumerate()
	require.Len(t, children, 2)

	expectedFixed := []map[string]string{
		{"officer": "A"},
		{"officer": "B"},
	}
	for i, child := range children {
		if diff := cmp.Diff(expectedFixed[i], child.Fixed); diff != "" {
			t.Fatal(diff)
		}
		require.Equal(t, root.Range, child.Range)
		require.Equal(t, "22", child.Filters["court_type"])

		// the next dimension is still available for deeper subdivision
		next, ok := child.NextCategory()
		require.True(t, ok)
		require.Equal(t, "division", next.Name)
	}

	// grandchildren fix both dimensions without sharing maps
	grandchildren := children[0].Enumerate()
	require.Len(t, grandchildren, 3)
	require.Equal(t, "A", grandchildren[1].Fixed["officer"])
	require.Equal(t, "2", grandchildren[1].Fixed["division"])
	require.Equal(t, "A", children[0].Fixed["officer"])
	_, hasDivision := children[0].Fixed["division"]
	require.False(t, hasDivision)

	_, ok = grandchildren[0].NextCategory()
	require.False(t, ok)
}

func TestPartitionBisectKeepsFixed(t *testing.T) {
	root := officerQuery(NewDateRange(testDay(1), testDay(10)), "A").Root()
	child := root.Enumerate()[0]

	left, right := child.Bisect()
	require.Equal(t, "A", left.Fixed["officer"])
	require.Equal(t, "A", right.Fixed["officer"])
	require.True(t, left.Range.To.Before(right.Range.From))
}

func TestPartitionLabelStable(t *testing.T) {
	p := Partition{
		Range: NewDateRange(testDay(1), testDay(2)),
		Fixed: map[string]string{"officer": "A", "division": "1"},
	}
	// map order must not leak into the label
	require.Equal(t, p.Label(), p.Label())
	require.Equal(t, "2026-03-01..2026-03-02 division=1 officer=A", p.Label())
}
