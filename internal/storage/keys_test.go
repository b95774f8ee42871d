package storage

import (
	"testing"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/model"
)

func TestObjectKey_Key(t *testing.T) {
	key := ObjectKey{
		Prefix:    "sampling",
		Date:      "2025-03-12",
		RunID:     model.RunID("01890c24-905b-7122-b170-b60814e6ee06"),
		Extension: "csv",
	}

	got := key.Key()
	want := "sampling/2025-03-12/01890c24-905b-7122-b170-b60814e6ee06.csv"

	if got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
}

func TestReportKey(t *testing.T) {
	runID := model.RunID("01890c24-905b-7122-b170-b60814e6ee06")
	key := ReportKey(time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC), runID)

	want := "sampling/2025-03-12/01890c24-905b-7122-b170-b60814e6ee06.csv"
	if got := key.Key(); got != want {
		t.Fatalf("Key() = %s, want %s", got, want)
	}
	if contentTypes[key.Extension] != "text/csv" {
		t.Errorf("no content type for extension %q", key.Extension)
	}
}
