// Package translate holds the primitive converters shared by both
// translation directions: date/time format conversion between ISO-8601 and
// HL7v3 compact timestamps, and lossless numeric handling.
package translate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

const (
	hl7DateFormat     = "20060102"
	hl7DateTimeFormat = "20060102150405"
	isoDateFormat     = "2006-01-02"
)

// ParseISODateTime accepts a FHIR instant/dateTime with or without an
// offset.
func ParseISODateTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fhir.NewInvalidValueError(fmt.Sprintf("Incorrect format for date time string %q.", value), "")
}

// ParseISODate accepts a FHIR date.
func ParseISODate(value string) (time.Time, error) {
	parsed, err := time.Parse(isoDateFormat, value)
	if err != nil {
		return time.Time{}, fhir.NewInvalidValueError(fmt.Sprintf("Incorrect format for date string %q.", value), "")
	}
	return parsed, nil
}

// ConvertISODateTimeToHL7 renders an ISO-8601 date time as a compact HL7v3
// timestamp in UTC.
func ConvertISODateTimeToHL7(value string) (hl7v3.Timestamp, error) {
	parsed, err := ParseISODateTime(value)
	if err != nil {
		return hl7v3.Timestamp{}, err
	}
	return hl7v3.Timestamp{Value: parsed.UTC().Format(hl7DateTimeFormat)}, nil
}

// ConvertISODateToHL7 renders an ISO-8601 date as a compact HL7v3 date.
func ConvertISODateToHL7(value string) (hl7v3.Timestamp, error) {
	parsed, err := ParseISODate(value)
	if err != nil {
		return hl7v3.Timestamp{}, err
	}
	return hl7v3.Timestamp{Value: parsed.Format(hl7DateFormat)}, nil
}

// ConvertHL7DateTimeToISO renders a compact HL7v3 timestamp as an ISO-8601
// instant in UTC. Date-only values render as a plain date.
func ConvertHL7DateTimeToISO(timestamp hl7v3.Timestamp) (string, error) {
	value := timestamp.Value
	switch len(value) {
	case len(hl7DateFormat):
		parsed, err := time.Parse(hl7DateFormat, value)
		if err != nil {
			return "", fhir.NewInvalidValueError(fmt.Sprintf("Incorrect format for timestamp %q.", value), "")
		}
		return parsed.Format(isoDateFormat), nil
	case len(hl7DateTimeFormat):
		parsed, err := time.Parse(hl7DateTimeFormat, value)
		if err != nil {
			return "", fhir.NewInvalidValueError(fmt.Sprintf("Incorrect format for timestamp %q.", value), "")
		}
		return parsed.UTC().Format("2006-01-02T15:04:05+00:00"), nil
	default:
		return "", fhir.NewInvalidValueError(fmt.Sprintf("Incorrect format for timestamp %q.", value), "")
	}
}

// Now renders the current moment as an HL7v3 timestamp.
func Now() hl7v3.Timestamp {
	return hl7v3.Timestamp{Value: time.Now().UTC().Format(hl7DateTimeFormat)}
}

// NumericValueAsString returns the exact decimal representation of a
// lossless JSON number. The string is never normalised; "1.0" stays "1.0".
func NumericValueAsString(value json.Number) string {
	return value.String()
}
