package core

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Canned read views over the register. These are pure filters and orderings;
// all derived fields were computed at write time.

// ActiveVisitors returns everyone currently on premises, most recent
// check-in first.
func (s *Store) ActiveVisitors() ([]VisitorRecord, error) {
	var records []VisitorRecord
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.
			Where("check_out_time IS NULL").
			Order("check_in_time DESC").
			Find(&records).Error
	})
	return records, err
}

// TodaysHistory returns every record checked in today, any status.
func (s *Store) TodaysHistory() ([]VisitorRecord, error) {
	now := time.Now()
	return s.RecordsBetween(now, now)
}

// RecordsBetween returns records whose check-in date falls within the
// inclusive [start, end] calendar-day range, most recent first.
func (s *Store) RecordsBetween(start, end time.Time) ([]VisitorRecord, error) {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dayEnd := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	var records []VisitorRecord
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.
			Where("check_in_time >= ? AND check_in_time < ?", dayStart, dayEnd).
			Order("check_in_time DESC").
			Find(&records).Error
	})
	return records, err
}

// SearchParams narrows SearchRecords. Zero dates mean no range bound; empty
// strings mean no substring filter. Limit 0 means no paging.
type SearchParams struct {
	Start   time.Time
	End     time.Time
	Name    string
	Company string
	Limit   int
	Offset  int
}

// SearchRecords returns matching records plus the unpaged total. Name and
// company filters are case-insensitive containment matches.
func (s *Store) SearchRecords(p SearchParams) ([]VisitorRecord, int64, error) {
	var records []VisitorRecord
	var total int64

	err := s.dm.Exec(func(db *gorm.DB) error {
		query := db.Model(&VisitorRecord{})

		if !p.Start.IsZero() {
			dayStart := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, p.Start.Location())
			query = query.Where("check_in_time >= ?", dayStart)
		}
		if !p.End.IsZero() {
			dayEnd := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, p.End.Location()).AddDate(0, 0, 1)
			query = query.Where("check_in_time < ?", dayEnd)
		}
		if name := strings.TrimSpace(p.Name); name != "" {
			query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
		}
		if company := strings.TrimSpace(p.Company); company != "" {
			query = query.Where("LOWER(company) LIKE ?", "%"+strings.ToLower(company)+"%")
		}

		if err := query.Count(&total).Error; err != nil {
			return err
		}

		query = query.Order("check_in_time DESC")
		if p.Limit > 0 {
			query = query.Limit(p.Limit).Offset(p.Offset)
		}
		return query.Find(&records).Error
	})
	return records, total, err
}

// DashboardStats is the at-a-glance summary shown on the kiosk dashboard.
type DashboardStats struct {
	ActiveCount     int64   `json:"activeCount"`
	TodaysCheckIns  int64   `json:"todaysCheckIns"`
	AverageDuration float64 `json:"averageDuration"` // minutes, completed visits only
}

func (s *Store) Stats() (DashboardStats, error) {
	var stats DashboardStats
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	err := s.dm.Exec(func(db *gorm.DB) error {
		if err := db.Model(&VisitorRecord{}).
			Where("check_out_time IS NULL").
			Count(&stats.ActiveCount).Error; err != nil {
			return err
		}
		if err := db.Model(&VisitorRecord{}).
			Where("check_in_time >= ?", dayStart).
			Count(&stats.TodaysCheckIns).Error; err != nil {
			return err
		}

		var avg *float64
		if err := db.Model(&VisitorRecord{}).
			Where("duration IS NOT NULL").
			Select("AVG(duration)").
			Scan(&avg).Error; err != nil {
			return err
		}
		if avg != nil {
			stats.AverageDuration = *avg
		}
		return nil
	})
	return stats, err
}

// DailyCount is one day's check-in total.
type DailyCount struct {
	Day   string `json:"day"` // yyyy-MM-dd
	Count int64  `json:"count"`
}

// DailyCheckInsSince returns per-day check-in counts from the given day
// onward, ascending, bucketed on the calendar day in from's location. The
// dashboard feeds it the first of the current month.
//
// SQLite's DATE() normalizes offset-suffixed timestamps to UTC, which would
// shift early-morning check-ins onto the previous day, so the grouping
// happens here rather than in SQL.
func (s *Store) DailyCheckInsSince(from time.Time) ([]DailyCount, error) {
	loc := from.Location()
	dayStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	var checkIns []time.Time
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.Model(&VisitorRecord{}).
			Where("check_in_time >= ?", dayStart).
			Order("check_in_time").
			Pluck("check_in_time", &checkIns).Error
	})
	if err != nil {
		return nil, err
	}

	var counts []DailyCount
	var prev time.Time
	for _, t := range checkIns {
		t = t.In(loc)
		if len(counts) > 0 && SameCalendarDay(prev, t) {
			counts[len(counts)-1].Count++
		} else {
			counts = append(counts, DailyCount{Day: t.Format("2006-01-02"), Count: 1})
		}
		prev = t
	}
	return counts, nil
}
