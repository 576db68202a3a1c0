package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"mneo.com/vms/core"
)

const (
	sheetName      = "Visitor Records"
	timeLayout     = "2006-01-02 15:04:05"
	filenameLayout = "20060102_150405"
)

var headers = []string{
	"Pass Number", "Name", "NRIC", "HP No", "Category", "Company",
	"Vehicle Number", "Purpose", "Destination", "Person Visited",
	"Badge No", "Remarks", "Check-In Time", "Check-Out Time", "Duration",
}

// SuggestedFilename names an export after the moment it was taken.
func SuggestedFilename(now time.Time) string {
	return fmt.Sprintf("visitor_records_%s.xlsx", now.Format(filenameLayout))
}

func cell(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

// WriteRecords renders a record sequence as an xlsx workbook: one sheet, a
// header row, one row per record, durations shown the way the kiosk shows
// them.
func WriteRecords(records []core.VisitorRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, r := range records {
		row := []interface{}{
			cell(r.PassNumber),
			r.Name,
			cell(r.NRIC),
			cell(r.HpNo),
			r.Category,
			cell(r.Company),
			cell(r.VehicleNumber),
			r.Purpose,
			r.Destination,
			r.PersonVisited,
			cell(r.IDNumber),
			cell(r.Remarks),
			r.CheckInTime.Format(timeLayout),
			formatTime(r.CheckOutTime),
			core.FormatDuration(r.Duration),
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, axis, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
