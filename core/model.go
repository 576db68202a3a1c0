package core

import (
	"time"
)

// VisitorRecord is one row of the visitor register. A visit is "active" while
// CheckOutTime is NULL; that is the only status discriminator.
type VisitorRecord struct {
	ID            int64      `gorm:"primaryKey;column:id" json:"id"`
	NRIC          *string    `gorm:"column:nric" json:"nric"`
	HpNo          *string    `gorm:"column:hp_no" json:"hpNo"`
	FirstName     string     `gorm:"column:first_name;not null" json:"firstName"`
	LastName      string     `gorm:"column:last_name;not null" json:"lastName"`
	Name          string     `gorm:"column:name;not null" json:"name"`
	Category      string     `gorm:"column:category;not null" json:"category"`
	Purpose       string     `gorm:"column:purpose;not null" json:"purpose"`
	Destination   string     `gorm:"column:destination;not null" json:"destination"`
	Company       *string    `gorm:"column:company" json:"company"`
	VehicleNumber *string    `gorm:"column:vehicle_number" json:"vehicleNumber"`
	PassNumber    *string    `gorm:"column:pass_number" json:"passNumber"`
	IDNumber      *string    `gorm:"column:id_number" json:"idNumber"`
	Remarks       *string    `gorm:"column:remarks" json:"remarks"`
	PersonVisited string     `gorm:"column:person_visited;not null" json:"personVisited"`
	Organization  *string    `gorm:"column:organization" json:"organization"` // legacy alias of Company, read-only
	CheckInTime   time.Time  `gorm:"column:check_in_time;not null" json:"checkInTime"`
	CheckOutTime  *time.Time `gorm:"column:check_out_time" json:"checkOutTime"`
	Duration      *int64     `gorm:"column:duration" json:"duration"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
}

func (VisitorRecord) TableName() string {
	return "visitors"
}

// Active reports whether the visitor is still on premises.
func (v *VisitorRecord) Active() bool {
	return v.CheckOutTime == nil
}

// LicenseRecordID is the fixed primary key of the singleton license row.
const LicenseRecordID = 1

// LicenseRecord binds the (sealed) license key to the device MAC. Exactly one
// row exists, always at id=1, written only through UpsertLicense.
type LicenseRecord struct {
	ID             int64     `gorm:"primaryKey;column:id" json:"id"`
	LicenseKey     string    `gorm:"column:license_key;not null" json:"licenseKey"`
	DeviceMAC      string    `gorm:"column:device_mac;not null" json:"deviceMac"`
	ActivationDate time.Time `gorm:"column:activation_date" json:"activationDate"`
	IsActive       bool      `gorm:"column:is_active" json:"isActive"`
}

func (LicenseRecord) TableName() string {
	return "license"
}

// BlacklistEntry bars an HP number from checking in. Name and NRIC are
// snapshots of the most recent completed visit at the time of listing.
type BlacklistEntry struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	HpNo      string    `gorm:"column:hp_no;not null;uniqueIndex" json:"hpNo"`
	Name      *string   `gorm:"column:name" json:"name"`
	NRIC      *string   `gorm:"column:nric" json:"nric"`
	Reason    *string   `gorm:"column:reason" json:"reason"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (BlacklistEntry) TableName() string {
	return "blacklist"
}

// SchemaMigration records an applied schema version so EnsureSchema can skip
// completed steps on later startups.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;column:version"`
	Name      string    `gorm:"column:name;not null"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
