package storage

import (
	"fmt"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/model"
)

const reportPrefix = "sampling"

// ObjectKey locates a sampling report: <prefix>/<date>/<run-id>.<ext>.
type ObjectKey struct {
	Prefix    string
	Date      string // in YYYY-MM-DD format
	RunID     model.RunID
	Extension string
}

func (k ObjectKey) Key() string {
	return fmt.Sprintf("%s/%s/%s.%s", k.Prefix, k.Date, k.RunID, k.Extension)
}

// ReportKey returns the key of the CSV report for runID on date.
func ReportKey(date time.Time, runID model.RunID) ObjectKey {
	return ObjectKey{
		Prefix:    reportPrefix,
		Date:      date.Format("2006-01-02"),
		RunID:     runID,
		Extension: "csv",
	}
}
