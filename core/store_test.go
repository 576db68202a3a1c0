package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams(checkIn time.Time) CreateVisitParams {
	return CreateVisitParams{
		NRIC:          "S1234567A",
		HpNo:          "91234567",
		FirstName:     "Alice",
		LastName:      "Tan",
		Category:      "Contractor",
		Purpose:       "Maintenance",
		Destination:   "Level 3",
		Company:       "Acme Pte Ltd",
		PersonVisited: "Bob Lee",
		CheckInTime:   checkIn,
	}
}

func TestCreateVisit(t *testing.T) {
	store := newTestStore(t)
	checkIn := time.Date(2025, 11, 6, 9, 0, 0, 0, time.Local)

	record, err := store.CreateVisit(validParams(checkIn))
	require.NoError(t, err)

	assert.NotZero(t, record.ID)
	assert.Equal(t, "Alice Tan", record.Name)
	require.NotNil(t, record.PassNumber)
	assert.Equal(t, "VMS-20251106-0001", *record.PassNumber)
	assert.Nil(t, record.CheckOutTime)
	assert.Nil(t, record.Duration)
	assert.True(t, record.Active())
}

func TestCreateVisitValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*CreateVisitParams)
		field  string
	}{
		{
			name:   "Missing first name",
			mutate: func(p *CreateVisitParams) { p.FirstName = "  " },
			field:  "firstName",
		},
		{
			name:   "Missing last name",
			mutate: func(p *CreateVisitParams) { p.LastName = "" },
			field:  "lastName",
		},
		{
			name:   "Missing category",
			mutate: func(p *CreateVisitParams) { p.Category = "" },
			field:  "category",
		},
		{
			name:   "Missing purpose",
			mutate: func(p *CreateVisitParams) { p.Purpose = "" },
			field:  "purpose",
		},
		{
			name:   "Missing destination",
			mutate: func(p *CreateVisitParams) { p.Destination = "" },
			field:  "destination",
		},
		{
			name:   "Missing person visited",
			mutate: func(p *CreateVisitParams) { p.PersonVisited = "" },
			field:  "personVisited",
		},
		{
			name:   "Malformed NRIC",
			mutate: func(p *CreateVisitParams) { p.NRIC = "X123" },
			field:  "nric",
		},
		{
			name:   "Malformed HP number",
			mutate: func(p *CreateVisitParams) { p.HpNo = "123" },
			field:  "hpNo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams(time.Now())
			// distinct identifiers so the active-visit guard never fires first
			params.NRIC = "S7654321B"
			params.HpNo = "98765432"
			tt.mutate(&params)

			_, err := store.CreateVisit(params)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPassNumbersAreSequentialPerDay(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2025, 11, 6, 8, 0, 0, 0, time.Local)

	for i := 0; i < 3; i++ {
		params := validParams(day.Add(time.Duration(i) * time.Hour))
		params.NRIC = ""
		params.HpNo = ""
		record, err := store.CreateVisit(params)
		require.NoError(t, err)
		require.NotNil(t, record.PassNumber)
		assert.Equal(t, NextPassNumber(day, int64(i)), *record.PassNumber)
	}

	// A new day restarts the sequence at 0001.
	nextDay := validParams(day.AddDate(0, 0, 1))
	nextDay.NRIC = ""
	nextDay.HpNo = ""
	record, err := store.CreateVisit(nextDay)
	require.NoError(t, err)
	assert.Equal(t, "VMS-20251107-0001", *record.PassNumber)
}

func TestCreateVisitBlocksActiveDuplicate(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateVisit(validParams(time.Now()))
	require.NoError(t, err)

	_, err = store.CreateVisit(validParams(time.Now()))
	assert.ErrorIs(t, err, ErrActiveVisit)

	open, err := store.HasActiveVisit("S1234567A", "")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCreateVisitBlocksBlacklisted(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddToBlacklist("91234567", "banned after incident")
	require.NoError(t, err)

	_, err = store.CreateVisit(validParams(time.Now()))
	assert.ErrorIs(t, err, ErrBlacklisted)
}

func TestCheckOut(t *testing.T) {
	store := newTestStore(t)
	checkIn := time.Date(2025, 11, 6, 9, 0, 0, 0, time.Local)

	record, err := store.CreateVisit(validParams(checkIn))
	require.NoError(t, err)

	t.Run("Closes the visit", func(t *testing.T) {
		out, err := store.CheckOut(record.ID, checkIn.Add(510*time.Minute))
		require.NoError(t, err)

		require.NotNil(t, out.CheckOutTime)
		require.NotNil(t, out.Duration)
		assert.Equal(t, int64(510), *out.Duration)
		assert.False(t, out.Active())
	})

	t.Run("Replay is rejected without changes", func(t *testing.T) {
		_, err := store.CheckOut(record.ID, checkIn.Add(600*time.Minute))
		assert.ErrorIs(t, err, ErrAlreadyCheckedOut)

		found, _, err := store.SearchRecords(SearchParams{Name: "Alice"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, int64(510), *found[0].Duration)
	})

	t.Run("Unknown id", func(t *testing.T) {
		_, err := store.CheckOut(9999, time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCheckOutBeforeCheckInRejected(t *testing.T) {
	store := newTestStore(t)
	checkIn := time.Date(2025, 11, 6, 9, 0, 0, 0, time.Local)

	record, err := store.CreateVisit(validParams(checkIn))
	require.NoError(t, err)

	_, err = store.CheckOut(record.ID, checkIn.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidRange)

	// Record must be left active and untouched.
	active, err := store.ActiveVisitors()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Nil(t, active[0].CheckOutTime)
	assert.Nil(t, active[0].Duration)
}

func TestDurationNullIffActive(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateVisit(validParams(time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	second := validParams(time.Now().Add(-30 * time.Minute))
	second.NRIC = "S7654321B"
	second.HpNo = "98765432"
	_, err = store.CreateVisit(second)
	require.NoError(t, err)

	_, err = store.CheckOut(first.ID, time.Now())
	require.NoError(t, err)

	records, _, err := store.SearchRecords(SearchParams{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, r.CheckOutTime == nil, r.Duration == nil)
	}
}

func TestFindExistingVisitor(t *testing.T) {
	store := newTestStore(t)

	older := validParams(time.Now().Add(-2 * time.Hour))
	record, err := store.CreateVisit(older)
	require.NoError(t, err)
	_, err = store.CheckOut(record.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	newer := validParams(time.Now())
	newer.Company = "New Employer Pte Ltd"
	_, err = store.CreateVisit(newer)
	require.NoError(t, err)

	t.Run("Case-insensitive, most recent wins", func(t *testing.T) {
		found, err := store.FindExistingVisitor("aLiCe", "TAN")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.NotNil(t, found.Company)
		assert.Equal(t, "New Employer Pte Ltd", *found.Company)
	})

	t.Run("No match", func(t *testing.T) {
		found, err := store.FindExistingVisitor("Nobody", "Here")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestFindRecentCompletedVisit(t *testing.T) {
	store := newTestStore(t)

	record, err := store.CreateVisit(validParams(time.Now().Add(-2 * time.Hour)))
	require.NoError(t, err)

	// Active visit is not a prefill candidate.
	found, err := store.FindRecentCompletedVisit("S1234567A", "")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = store.CheckOut(record.ID, time.Now())
	require.NoError(t, err)

	found, err = store.FindRecentCompletedVisit("s1234567a", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice Tan", found.Name)
}

func TestUpsertLicense(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertLicense("sealed-one", "AA:BB:CC:DD:EE:FF", true))
	require.NoError(t, store.UpsertLicense("sealed-two", "AA:BB:CC:DD:EE:FF", false))

	license, err := store.License()
	require.NoError(t, err)
	require.NotNil(t, license)
	assert.Equal(t, int64(LicenseRecordID), license.ID)
	assert.Equal(t, "sealed-two", license.LicenseKey)
	assert.False(t, license.IsActive)

	require.NoError(t, store.SetLicenseActive(true))
	license, err = store.License()
	require.NoError(t, err)
	assert.True(t, license.IsActive)
}

func TestVerifyDeviceBinding(t *testing.T) {
	store := newTestStore(t)

	t.Run("First run seeds an inactive row", func(t *testing.T) {
		wiped, err := store.VerifyDeviceBinding("AA:BB:CC:DD:EE:FF")
		require.NoError(t, err)
		assert.False(t, wiped)

		license, err := store.License()
		require.NoError(t, err)
		require.NotNil(t, license)
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", license.DeviceMAC)
		assert.False(t, license.IsActive)
	})

	t.Run("Same device is a no-op", func(t *testing.T) {
		_, err := store.CreateVisit(validParams(time.Now()))
		require.NoError(t, err)

		wiped, err := store.VerifyDeviceBinding("AA:BB:CC:DD:EE:FF")
		require.NoError(t, err)
		assert.False(t, wiped)

		records, _, err := store.SearchRecords(SearchParams{})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("Copied database is wiped and rebound", func(t *testing.T) {
		wiped, err := store.VerifyDeviceBinding("11:22:33:44:55:66")
		require.NoError(t, err)
		assert.True(t, wiped)

		records, _, err := store.SearchRecords(SearchParams{})
		require.NoError(t, err)
		assert.Empty(t, records)

		license, err := store.License()
		require.NoError(t, err)
		assert.Equal(t, "11:22:33:44:55:66", license.DeviceMAC)
	})
}

func TestBlacklist(t *testing.T) {
	store := newTestStore(t)

	record, err := store.CreateVisit(validParams(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	_, err = store.CheckOut(record.ID, time.Now())
	require.NoError(t, err)

	entry, err := store.AddToBlacklist("91234567", "unescorted in restricted area")
	require.NoError(t, err)
	require.NotNil(t, entry.Name)
	assert.Equal(t, "Alice Tan", *entry.Name)

	barred, err := store.IsBlacklisted("91234567")
	require.NoError(t, err)
	assert.True(t, barred)

	entries, err := store.Blacklist()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.RemoveFromBlacklist("91234567"))
	barred, err = store.IsBlacklisted("91234567")
	require.NoError(t, err)
	assert.False(t, barred)
}

func TestImportBlacklist(t *testing.T) {
	store := newTestStore(t)

	added, skipped, err := store.ImportBlacklist([][]string{
		{"91234567", "incident"},
		{"not-a-number", "bad row"},
		{"98765432"},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)

	entries, err := store.Blacklist()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
