package core

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	nricPattern = regexp.MustCompile(`^[STFG][0-9]{7}[A-Z]$`)
	hpPattern   = regexp.MustCompile(`^[0-9]{8}$`)
)

// ValidNRIC reports whether s is a well-formed (uppercased) NRIC.
func ValidNRIC(s string) bool {
	return nricPattern.MatchString(strings.ToUpper(s))
}

// ValidHpNo reports whether s is an 8-digit HP number.
func ValidHpNo(s string) bool {
	return hpPattern.MatchString(s)
}

// Store translates visit lifecycle operations into persisted state. It owns
// the rows exclusively; records handed out are detached copies.
type Store struct {
	dm *DatabaseManager
}

func NewStore(dm *DatabaseManager) *Store {
	return &Store{dm: dm}
}

// CreateVisitParams carries the operator-entered fields for a check-in.
// CheckInTime zero means "now".
type CreateVisitParams struct {
	NRIC          string
	HpNo          string
	FirstName     string
	LastName      string
	Category      string
	Purpose       string
	Destination   string
	Company       string
	VehicleNumber string
	IDNumber      string
	Remarks       string
	PersonVisited string
	CheckInTime   time.Time
}

func (p *CreateVisitParams) validate() error {
	required := []struct {
		value string
		field string
	}{
		{p.FirstName, "firstName"},
		{p.LastName, "lastName"},
		{p.Category, "category"},
		{p.Purpose, "purpose"},
		{p.Destination, "destination"},
		{p.PersonVisited, "personVisited"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return missingField(r.field)
		}
	}
	if p.NRIC != "" && !ValidNRIC(p.NRIC) {
		return invalidField("nric", "expected format S1234567A")
	}
	if p.HpNo != "" && !ValidHpNo(p.HpNo) {
		return invalidField("hpNo", "expected 8 digits")
	}
	return nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// CreateVisit validates the fields, derives name and pass number and persists
// the new active record. The day-scoped pass count and the insert run in one
// transaction so concurrent check-ins cannot mint duplicate pass numbers.
func (s *Store) CreateVisit(p CreateVisitParams) (*VisitorRecord, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	nric := strings.ToUpper(strings.TrimSpace(p.NRIC))
	checkIn := p.CheckInTime
	if checkIn.IsZero() {
		checkIn = time.Now()
	}

	record := VisitorRecord{
		NRIC:          optional(nric),
		HpNo:          optional(p.HpNo),
		FirstName:     strings.TrimSpace(p.FirstName),
		LastName:      strings.TrimSpace(p.LastName),
		Name:          ComposeName(p.FirstName, p.LastName),
		Category:      strings.TrimSpace(p.Category),
		Purpose:       strings.TrimSpace(p.Purpose),
		Destination:   strings.TrimSpace(p.Destination),
		Company:       optional(p.Company),
		VehicleNumber: optional(p.VehicleNumber),
		IDNumber:      optional(p.IDNumber),
		Remarks:       optional(p.Remarks),
		PersonVisited: strings.TrimSpace(p.PersonVisited),
		CheckInTime:   checkIn,
		CreatedAt:     time.Now(),
	}

	err := s.dm.Tx(func(tx *gorm.DB) error {
		if p.HpNo != "" {
			var barred int64
			if err := tx.Model(&BlacklistEntry{}).Where("hp_no = ?", p.HpNo).Count(&barred).Error; err != nil {
				return err
			}
			if barred > 0 {
				return ErrBlacklisted
			}
		}

		if nric != "" || p.HpNo != "" {
			open, err := hasActiveVisit(tx, nric, p.HpNo)
			if err != nil {
				return err
			}
			if open {
				return ErrActiveVisit
			}
		}

		count, err := countCheckInsOn(tx, checkIn)
		if err != nil {
			return err
		}
		pass := NextPassNumber(checkIn, count)
		record.PassNumber = &pass

		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// countCheckInsOn counts records whose check-in falls on the same calendar
// day as t, in local time. Must run inside the caller's transaction.
func countCheckInsOn(tx *gorm.DB, t time.Time) (int64, error) {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := tx.Model(&VisitorRecord{}).
		Where("check_in_time >= ? AND check_in_time < ?", dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func hasActiveVisit(tx *gorm.DB, nric, hpNo string) (bool, error) {
	query := tx.Model(&VisitorRecord{}).Where("check_out_time IS NULL")
	switch {
	case nric != "" && hpNo != "":
		query = query.Where("nric = ? OR hp_no = ?", nric, hpNo)
	case nric != "":
		query = query.Where("nric = ?", nric)
	default:
		query = query.Where("hp_no = ?", hpNo)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasActiveVisit reports whether the NRIC or HP number has an open visit.
// Used by the registration flow to block a duplicate check-in up front.
func (s *Store) HasActiveVisit(nric, hpNo string) (bool, error) {
	if nric == "" && hpNo == "" {
		return false, nil
	}
	var open bool
	err := s.dm.Exec(func(db *gorm.DB) error {
		var err error
		open, err = hasActiveVisit(db, strings.ToUpper(nric), hpNo)
		return err
	})
	return open, err
}

// CheckOut closes an active visit: sets check-out time and duration in a
// single update. Checkout is terminal; a second call is ErrAlreadyCheckedOut
// and leaves the record untouched.
func (s *Store) CheckOut(id int64, checkOutTime time.Time) (*VisitorRecord, error) {
	if checkOutTime.IsZero() {
		checkOutTime = time.Now()
	}

	var record VisitorRecord
	err := s.dm.Tx(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if record.CheckOutTime != nil {
			return ErrAlreadyCheckedOut
		}

		minutes, err := ComputeDuration(record.CheckInTime, checkOutTime)
		if err != nil {
			return err
		}

		record.CheckOutTime = &checkOutTime
		record.Duration = &minutes
		return tx.Model(&VisitorRecord{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"check_out_time": checkOutTime,
				"duration":       minutes,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindExistingVisitor returns the most recent record matching both names,
// case-insensitively. It carries the visitor's last-known contact details for
// pre-filling a new check-in, not the state of any open visit.
func (s *Store) FindExistingVisitor(firstName, lastName string) (*VisitorRecord, error) {
	var record VisitorRecord
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.
			Where("LOWER(first_name) = ? AND LOWER(last_name) = ?",
				strings.ToLower(strings.TrimSpace(firstName)),
				strings.ToLower(strings.TrimSpace(lastName))).
			Order("created_at DESC, id DESC").
			First(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindRecentCompletedVisit returns the most recent completed visit for the
// NRIC and/or HP number, the lookup the registration form uses to auto-fill
// details for returning visitors.
func (s *Store) FindRecentCompletedVisit(nric, hpNo string) (*VisitorRecord, error) {
	if nric == "" && hpNo == "" {
		return nil, nil
	}

	var record VisitorRecord
	err := s.dm.Exec(func(db *gorm.DB) error {
		query := db.Where("check_out_time IS NOT NULL")
		switch {
		case nric != "" && hpNo != "":
			query = query.Where("nric = ? OR hp_no = ?", strings.ToUpper(nric), hpNo)
		case nric != "":
			query = query.Where("nric = ?", strings.ToUpper(nric))
		default:
			query = query.Where("hp_no = ?", hpNo)
		}
		return query.Order("check_in_time DESC").First(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertLicense writes the singleton license row, always at the fixed id,
// replacing whatever was there.
func (s *Store) UpsertLicense(licenseKey, deviceMAC string, isActive bool) error {
	return s.dm.Exec(func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&LicenseRecord{
			ID:             LicenseRecordID,
			LicenseKey:     licenseKey,
			DeviceMAC:      deviceMAC,
			ActivationDate: time.Now(),
			IsActive:       isActive,
		}).Error
	})
}

// License returns the singleton license row, or nil when none was written.
func (s *Store) License() (*LicenseRecord, error) {
	var record LicenseRecord
	err := s.dm.Exec(func(db *gorm.DB) error {
		return db.First(&record, LicenseRecordID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SetLicenseActive flips the activation flag on the singleton row. Used by
// the logout/login-with-key flow.
func (s *Store) SetLicenseActive(active bool) error {
	return s.dm.Exec(func(db *gorm.DB) error {
		return db.Model(&LicenseRecord{}).
			Where("id = ?", LicenseRecordID).
			Update("is_active", active).Error
	})
}

// VerifyDeviceBinding compares the stored device MAC with the machine's. A
// missing row is seeded with an empty, inactive license. A mismatch means the
// database file was copied from another machine: visitor logs are wiped and
// the row rebound, per the register's anti-copy policy. Runs once at startup.
func (s *Store) VerifyDeviceBinding(currentMAC string) (wiped bool, err error) {
	existing, err := s.License()
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, s.UpsertLicense("", currentMAC, false)
	}
	if existing.DeviceMAC == currentMAC {
		return false, nil
	}

	err = s.dm.Tx(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&VisitorRecord{}).Error; err != nil {
			return err
		}
		return tx.Model(&LicenseRecord{}).
			Where("id = ?", LicenseRecordID).
			Update("device_mac", currentMAC).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
