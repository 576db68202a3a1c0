package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedVisits checks in one visitor per entry, checking out those with a
// non-zero stay.
func seedVisits(t *testing.T, store *Store, entries []struct {
	first   string
	company string
	checkIn time.Time
	stay    time.Duration
}) {
	t.Helper()

	for _, e := range entries {
		params := CreateVisitParams{
			FirstName:     e.first,
			LastName:      "Visitor",
			Category:      "Guest",
			Purpose:       "Meeting",
			Destination:   "Lobby",
			Company:       e.company,
			PersonVisited: "Reception",
			CheckInTime:   e.checkIn,
		}
		record, err := store.CreateVisit(params)
		require.NoError(t, err)
		if e.stay > 0 {
			_, err = store.CheckOut(record.ID, e.checkIn.Add(e.stay))
			require.NoError(t, err)
		}
	}
}

// noonToday pins seeded check-ins to midday so offsets of a few hours never
// cross a date boundary while the test runs.
func noonToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
}

func TestActiveVisitorsOrdering(t *testing.T) {
	store := newTestStore(t)
	now := noonToday()

	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"Early", "", now.Add(-3 * time.Hour), 0},
		{"Gone", "", now.Add(-2 * time.Hour), time.Hour},
		{"Late", "", now.Add(-1 * time.Hour), 0},
	})

	active, err := store.ActiveVisitors()
	require.NoError(t, err)
	require.Len(t, active, 2)

	// Most recent check-in first, checked-out visitors excluded.
	assert.Equal(t, "Late Visitor", active[0].Name)
	assert.Equal(t, "Early Visitor", active[1].Name)
}

func TestTodaysHistoryIncludesBothStatuses(t *testing.T) {
	store := newTestStore(t)
	now := noonToday()
	yesterday := now.AddDate(0, 0, -1)

	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"Old", "", yesterday, time.Hour},
		{"Done", "", now.Add(-4 * time.Hour), time.Hour},
		{"Here", "", now.Add(-1 * time.Hour), 0},
	})

	today, err := store.TodaysHistory()
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "Here Visitor", today[0].Name)
	assert.Equal(t, "Done Visitor", today[1].Name)
}

func TestRecordsBetweenIsInclusive(t *testing.T) {
	store := newTestStore(t)

	day := func(d int) time.Time {
		return time.Date(2025, 11, d, 12, 0, 0, 0, time.Local)
	}
	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"First", "", day(3), time.Hour},
		{"Second", "", day(5), time.Hour},
		{"Third", "", day(7), time.Hour},
	})

	records, err := store.RecordsBetween(day(3), day(5))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Second Visitor", records[0].Name)
	assert.Equal(t, "First Visitor", records[1].Name)
}

func TestSearchRecords(t *testing.T) {
	store := newTestStore(t)
	now := noonToday()

	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"Alice", "Acme Pte Ltd", now.Add(-3 * time.Hour), time.Hour},
		{"Bob", "Globex", now.Add(-2 * time.Hour), 0},
		{"Alicia", "acme holdings", now.Add(-1 * time.Hour), 0},
	})

	t.Run("Name substring, case-insensitive", func(t *testing.T) {
		records, total, err := store.SearchRecords(SearchParams{Name: "aliC"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, records, 2)
	})

	t.Run("Company substring, case-insensitive", func(t *testing.T) {
		records, total, err := store.SearchRecords(SearchParams{Company: "ACME"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, records, 2)
	})

	t.Run("Paging keeps the unpaged total", func(t *testing.T) {
		records, total, err := store.SearchRecords(SearchParams{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, records, 1)
		assert.Equal(t, "Bob Visitor", records[0].Name)
	})
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	now := noonToday()

	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"Done", "", now.Add(-5 * time.Hour), 60 * time.Minute},
		{"Also", "", now.Add(-4 * time.Hour), 120 * time.Minute},
		{"Here", "", now.Add(-1 * time.Hour), 0},
	})

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveCount)
	assert.Equal(t, int64(3), stats.TodaysCheckIns)
	assert.InDelta(t, 90.0, stats.AverageDuration, 0.01)
}

func TestDailyCheckInsSince(t *testing.T) {
	store := newTestStore(t)

	day := func(d int) time.Time {
		return time.Date(2025, 11, d, 10, 0, 0, 0, time.Local)
	}
	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"A", "", day(3), time.Hour},
		{"B", "", day(3).Add(time.Hour), time.Hour},
		{"C", "", day(4), time.Hour},
	})

	counts, err := store.DailyCheckInsSince(day(1))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(2), counts[0].Count)
	assert.Equal(t, int64(1), counts[1].Count)
	assert.Less(t, counts[0].Day, counts[1].Day)
}

func TestDailyCheckInsBucketOnLocalDay(t *testing.T) {
	store := newTestStore(t)
	sgt := time.FixedZone("SGT", 8*60*60)

	// A pre-08:00 check-in falls on the previous UTC day; it must still be
	// counted under its own local day.
	seedVisits(t, store, []struct {
		first   string
		company string
		checkIn time.Time
		stay    time.Duration
	}{
		{"Dawn", "", time.Date(2025, 11, 6, 2, 0, 0, 0, sgt), time.Hour},
		{"Noon", "", time.Date(2025, 11, 6, 12, 0, 0, 0, sgt), time.Hour},
		{"Next", "", time.Date(2025, 11, 7, 3, 0, 0, 0, sgt), 0},
	})

	counts, err := store.DailyCheckInsSince(time.Date(2025, 11, 1, 0, 0, 0, 0, sgt))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "2025-11-06", counts[0].Day)
	assert.Equal(t, int64(2), counts[0].Count)
	assert.Equal(t, "2025-11-07", counts[1].Day)
	assert.Equal(t, int64(1), counts[1].Count)
}
