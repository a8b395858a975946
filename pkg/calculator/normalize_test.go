package calculator

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"cohort-retention/pkg/models"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2023, 3, 13, 4, 36, 0, 0, time.UTC)
	inputs := []string{
		"2023-03-13T04:36:00Z",
		"2023-03-13T04:36:00.000000Z",
		"2023-03-13 04:36:00+00:00",
		"2023-03-13 13:36:00+09:00",
		"2023-03-13 04:36:00 UTC",
		"2023-03-13 04:36:00.000000 UTC",
		"2023-03-13 04:36:00",
		"2023-03-13T04:36:00",
		"  2023-03-13 04:36  ",
	}
	for _, in := range inputs {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("%q: got %v, want %v in UTC", in, got, want)
		}
	}
}

func TestParseTimestamp_DateOnlyIsUTCMidnight(t *testing.T) {
	got, err := ParseTimestamp("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("got %v", got)
	}
}

func TestParseTimestamp_Malformed(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2023-13-01", "13/03/2023", "NaT"} {
		if _, err := ParseTimestamp(in); !errors.Is(err, ErrMalformedTimestamp) {
			t.Fatalf("%q: expected ErrMalformedTimestamp, got %v", in, err)
		}
	}
}

func TestNormalize_DropsAndCounts(t *testing.T) {
	raw := []models.RawOrderLine{
		{OrderID: "1", UserID: "u1", CreatedAt: "2024-01-05 10:00:00 UTC", Status: "Complete"},
		{OrderID: "2", UserID: "u1", CreatedAt: "not a date", Status: "Complete"},
		{OrderID: "3", UserID: "", CreatedAt: "2024-01-06", Status: "Complete"},
		{OrderID: "4", UserID: "u2", CreatedAt: "2024-01-07", Status: "Lost in transit"},
		{OrderID: " 5 ", UserID: " u3 ", CreatedAt: "2024-01-08", Status: "shipped"},
	}

	lines, rep := Normalize(raw)

	if rep.Input != 5 || rep.Kept != 3 || rep.Dropped != 2 {
		t.Fatalf("unexpected counts: %+v", rep)
	}
	if rep.DroppedByReason[models.DropMalformedTimestamp] != 1 {
		t.Fatalf("malformed count = %d, want 1", rep.DroppedByReason[models.DropMalformedTimestamp])
	}
	if rep.DroppedByReason[models.DropInvalidRow] != 1 {
		t.Fatalf("invalid count = %d, want 1", rep.DroppedByReason[models.DropInvalidRow])
	}
	if rep.UnknownStatus != 1 {
		t.Fatalf("unknown status = %d, want 1", rep.UnknownStatus)
	}

	if lines[1].Status != models.StatusUnknown {
		t.Fatalf("got status %q, want unknown", lines[1].Status)
	}
	if lines[2].OrderID != "5" || lines[2].UserID != "u3" || lines[2].Status != models.StatusShipped {
		t.Fatalf("row not trimmed/canonicalized: %+v", lines[2])
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := []models.RawOrderLine{
		{OrderID: " 1 ", UserID: "u1", CreatedAt: "2024-01-05", Status: " Complete "},
	}
	before := append([]models.RawOrderLine(nil), raw...)
	Normalize(raw)
	if !reflect.DeepEqual(raw, before) {
		t.Fatalf("input mutated: %+v", raw)
	}
}
