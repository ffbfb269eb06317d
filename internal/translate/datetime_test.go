package translate

import (
	"testing"

	"github.com/eps/gateway/internal/platform/hl7v3"
)

func TestConvertISODateTimeToHL7(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2023-01-31T12:05:00+00:00", "20230131120500"},
		{"2023-01-31T13:05:00+01:00", "20230131120500"},
		{"2023-01-31T12:05:00Z", "20230131120500"},
	}
	for _, c := range cases {
		got, err := ConvertISODateTimeToHL7(c.in)
		if err != nil {
			t.Fatalf("ConvertISODateTimeToHL7(%q): %v", c.in, err)
		}
		if got.Value != c.want {
			t.Errorf("ConvertISODateTimeToHL7(%q) = %q, want %q", c.in, got.Value, c.want)
		}
	}

	if _, err := ConvertISODateTimeToHL7("31/01/2023"); err == nil {
		t.Error("expected error for malformed date time")
	}
}

func TestConvertHL7DateTimeToISO(t *testing.T) {
	got, err := ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: "20230131120500"})
	if err != nil {
		t.Fatalf("ConvertHL7DateTimeToISO: %v", err)
	}
	if got != "2023-01-31T12:05:00+00:00" {
		t.Errorf("got %q", got)
	}

	got, err = ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: "20230131"})
	if err != nil {
		t.Fatalf("ConvertHL7DateTimeToISO date: %v", err)
	}
	if got != "2023-01-31" {
		t.Errorf("got %q", got)
	}

	if _, err := ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: "202301"}); err == nil {
		t.Error("expected error for truncated timestamp")
	}
}

func TestBuildGroupIdentifier_RoundTrip(t *testing.T) {
	groupIdentifier := BuildGroupIdentifier("4D62E6-D81015-07E5FD", "B4BC407C-E859-4B23-8B2D-17BA1E67A5BF")

	if groupIdentifier.Value != "4D62E6-D81015-07E5FD" {
		t.Errorf("short form = %q", groupIdentifier.Value)
	}
	shortForm, longForm, err := GroupIdentifierParts(groupIdentifier)
	if err != nil {
		t.Fatalf("GroupIdentifierParts: %v", err)
	}
	if shortForm != "4D62E6-D81015-07E5FD" {
		t.Errorf("short form = %q", shortForm)
	}
	if longForm != "b4bc407c-e859-4b23-8b2d-17ba1e67a5bf" {
		t.Errorf("long form = %q, want lowercased UUID", longForm)
	}

	if _, _, err := GroupIdentifierParts(nil); err == nil {
		t.Error("expected error for missing groupIdentifier")
	}
}
