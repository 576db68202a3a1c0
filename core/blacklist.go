package core

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddToBlacklist bars an HP number, snapshotting name and NRIC from the most
// recent completed visit when one exists. Re-adding an existing number just
// refreshes the entry.
func (s *Store) AddToBlacklist(hpNo, reason string) (*BlacklistEntry, error) {
	hpNo = strings.TrimSpace(hpNo)
	if hpNo == "" {
		return nil, missingField("hpNo")
	}
	if !ValidHpNo(hpNo) {
		return nil, invalidField("hpNo", "expected 8 digits")
	}

	entry := BlacklistEntry{
		HpNo:      hpNo,
		Reason:    optional(reason),
		CreatedAt: time.Now(),
	}
	if visit, err := s.FindRecentCompletedVisit("", hpNo); err != nil {
		return nil, err
	} else if visit != nil {
		entry.Name = &visit.Name
		entry.NRIC = visit.NRIC
	}

	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hp_no"}},
			UpdateAll: true,
		}).Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// RemoveFromBlacklist whitelists an HP number again. Removing an unknown
// number is a no-op.
func (s *Store) RemoveFromBlacklist(hpNo string) error {
	return s.dm.Exec(func(db *gorm.DB) error {
		return db.Where("hp_no = ?", hpNo).Delete(&BlacklistEntry{}).Error
	})
}

// IsBlacklisted reports whether the HP number is barred from checking in.
func (s *Store) IsBlacklisted(hpNo string) (bool, error) {
	if hpNo == "" {
		return false, nil
	}
	var count int64
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.Model(&BlacklistEntry{}).Where("hp_no = ?", hpNo).Count(&count).Error
	})
	return count > 0, err
}

// Blacklist returns all barred HP numbers, newest first.
func (s *Store) Blacklist() ([]BlacklistEntry, error) {
	var entries []BlacklistEntry
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.Order("created_at DESC").Find(&entries).Error
	})
	return entries, err
}

// ImportBlacklist bulk-adds rows of (hp_no, reason) pairs, as parsed from a
// CSV file. Malformed numbers are skipped and counted, not fatal.
func (s *Store) ImportBlacklist(rows [][]string) (added, skipped int, err error) {
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		hpNo := strings.TrimSpace(row[0])
		reason := ""
		if len(row) > 1 {
			reason = strings.TrimSpace(row[1])
		}
		if !ValidHpNo(hpNo) {
			skipped++
			continue
		}
		if _, err := s.AddToBlacklist(hpNo, reason); err != nil {
			return added, skipped, err
		}
		added++
	}
	return added, skipped, nil
}
