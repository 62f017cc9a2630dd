package models

import "testing"

func TestStatusFromClasses(t *testing.T) {
	tests := []struct {
		name    string
		classes string
		want    Status
	}{
		{name: "verified", classes: "row data-row verified", want: StatusVerified},
		{name: "playable", classes: "playable", want: StatusPlayable},
		{name: "unsupported", classes: "row unsupported odd", want: StatusUnsupported},
		{name: "empty", classes: "", want: StatusUnknown},
		{name: "unrelated classes", classes: "row odd highlight", want: StatusUnknown},
		{name: "no partial match", classes: "verified-badge playables", want: StatusUnknown},
		{name: "case sensitive tokens", classes: "Verified", want: StatusUnknown},
		{name: "first recognised token wins", classes: "verified playable", want: StatusVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFromClasses(tt.classes); got != tt.want {
				t.Fatalf("StatusFromClasses(%q) = %q, want %q", tt.classes, got, tt.want)
			}
		})
	}
}

func TestRecordCSVRow(t *testing.T) {
	r := Record{
		RowNumber:    42,
		LastChange:   "2026-01-15",
		Title:        "Half-Life 2",
		Developer:    "Valve",
		ReviewScore:  "97%",
		Price:        "$9.99",
		Discount:     "-50%",
		ProtonRating: "platinum",
		Status:       StatusVerified,
	}

	row := r.CSVRow()
	want := []string{"42", "2026-01-15", "Half-Life 2", "Valve", "97%", "$9.99", "-50%", "platinum", "Verified"}
	if len(row) != len(want) {
		t.Fatalf("row has %d fields, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("field %d = %q, want %q", i, row[i], want[i])
		}
	}
}
