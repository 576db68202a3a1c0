package common

import (
	"encoding/json"
	"fmt"
	"time"

	"mneo.com/vms/utils"
)

const (
	dateLayout     = "2006-01-02"          // yyyy-MM-dd
	dateTimeLayout = "2006-01-02T15:04:05" // local wall-clock, no zone
)

// DateOnly is a yyyy-MM-dd JSON value. Empty strings decode to the zero time
// so optional range bounds can be omitted.
type DateOnly struct {
	time.Time
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid date format: %v", err)
	}
	d.Time = t
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(dateLayout))
}

// LocalDateTime carries the kiosk's zone-less timestamps (check-in and
// check-out are wall-clock times on the one machine that runs the register).
// Decoding accepts the timestamp shapes older kiosk clients send; see
// utils.ParseTimestamp.
type LocalDateTime struct {
	time.Time
}

func (l *LocalDateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		l.Time = time.Time{}
		return nil
	}
	t, err := utils.ParseTimestamp(s)
	if err != nil {
		return err
	}
	l.Time = t
	return nil
}

func (l LocalDateTime) MarshalJSON() ([]byte, error) {
	if l.Time.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(l.Format(dateTimeLayout))
}
