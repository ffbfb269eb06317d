package dosage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eps/gateway/internal/platform/fhir"
)

// numericValue returns the exact decimal string of a lossless number.
// Precision is clinically significant, so values are never re-parsed.
func numericValue(value json.Number) string {
	return value.String()
}

// isOne compares the exact decimal string against "1". "1.0" is a different
// string and is treated as plural.
func isOne(value json.Number) bool {
	return value.String() == "1"
}

func isTwo(value json.Number) bool {
	return value.String() == "2"
}

// pluralise appends "s" unless the value is textually "1" or absent.
func pluralise(unit string, value json.Number) string {
	if unit == "" {
		return ""
	}
	if value == "" || isOne(value) {
		return unit
	}
	return unit + "s"
}

func unitOfTime(unit fhir.UnitOfTime) (string, error) {
	switch unit {
	case fhir.UnitSecond:
		return "second", nil
	case fhir.UnitMinute:
		return "minute", nil
	case fhir.UnitHour:
		return "hour", nil
	case fhir.UnitDay:
		return "day", nil
	case fhir.UnitWeek:
		return "week", nil
	case fhir.UnitMonth:
		return "month", nil
	case fhir.UnitYear:
		return "year", nil
	default:
		return "", fmt.Errorf("dosage: unhandled unit of time %q", unit)
	}
}

func reciprocalUnitOfTime(unit fhir.UnitOfTime) (string, error) {
	switch unit {
	case fhir.UnitSecond:
		return "every second", nil
	case fhir.UnitMinute:
		return "every minute", nil
	case fhir.UnitHour:
		return "hourly", nil
	case fhir.UnitDay:
		return "daily", nil
	case fhir.UnitWeek:
		return "weekly", nil
	case fhir.UnitMonth:
		return "monthly", nil
	case fhir.UnitYear:
		return "annually", nil
	default:
		return "", fmt.Errorf("dosage: unhandled unit of time %q", unit)
	}
}

// indefiniteArticle is "an" for hour only.
func indefiniteArticle(unit fhir.UnitOfTime) string {
	if unit == fhir.UnitHour {
		return "an"
	}
	return "a"
}

func dayDisplay(day fhir.DayOfWeek) (string, error) {
	switch day {
	case "mon":
		return "Monday", nil
	case "tue":
		return "Tuesday", nil
	case "wed":
		return "Wednesday", nil
	case "thu":
		return "Thursday", nil
	case "fri":
		return "Friday", nil
	case "sat":
		return "Saturday", nil
	case "sun":
		return "Sunday", nil
	default:
		return "", fmt.Errorf("dosage: unhandled day of week %q", day)
	}
}

// formatTime renders HH:mm, or HH:mm:ss when the seconds are non-zero.
func formatTime(value string) (string, error) {
	parsed, err := time.Parse("15:04:05", value)
	if err != nil {
		parsed, err = time.Parse("15:04", value)
		if err != nil {
			return "", fmt.Errorf("dosage: invalid time of day %q", value)
		}
	}
	if parsed.Second() == 0 {
		return parsed.Format("15:04"), nil
	}
	return parsed.Format("15:04:05"), nil
}

// formatDate renders DD/MM/YYYY.
func formatDate(value string) (string, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return "", fmt.Errorf("dosage: invalid date %q", value)
	}
	return parsed.Format("02/01/2006"), nil
}

// joinList joins with "and" before the final element and no Oxford comma.
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// Event timing displays for the when element.
var whenDisplays = map[string]string{
	"MORN":       "in the morning",
	"MORN.early": "in the early morning",
	"MORN.late":  "in the late morning",
	"NOON":       "around midday",
	"AFT":        "in the afternoon",
	"AFT.early":  "in the early afternoon",
	"AFT.late":   "in the late afternoon",
	"EVE":        "in the evening",
	"EVE.early":  "in the early evening",
	"EVE.late":   "in the late evening",
	"NIGHT":      "at night",
	"PHS":        "after sleep",
	"HS":         "at bedtime",
	"WAKE":       "once awake",
	"C":          "at a meal",
	"CM":         "at breakfast",
	"CD":         "at lunch",
	"CV":         "at dinner",
	"AC":         "before a meal",
	"ACM":        "before breakfast",
	"ACD":        "before lunch",
	"ACV":        "before dinner",
	"PC":         "after a meal",
	"PCM":        "after breakfast",
	"PCD":        "after lunch",
	"PCV":        "after dinner",
}

func stringifyOffsetAndWhen(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil || (len(repeat.When) == 0 && repeat.Offset == "") {
		return nil, nil
	}
	if len(repeat.When) == 0 {
		return nil, fmt.Errorf("dosage: offset specified without a when code")
	}

	var phrases []string
	for _, when := range repeat.When {
		display, ok := whenDisplays[string(when)]
		if !ok {
			return nil, fmt.Errorf("dosage: unhandled when code %q", when)
		}
		phrases = append(phrases, display)
	}

	if repeat.Offset == "" {
		return []string{joinList(phrases)}, nil
	}
	value, unit, err := offsetValueAndUnit(repeat.Offset)
	if err != nil {
		return nil, err
	}
	return []string{value, " ", pluralise(unit, json.Number(value)), " ", joinList(phrases)}, nil
}

// offsetValueAndUnit converts an offset in minutes to the largest unit that
// divides it exactly.
func offsetValueAndUnit(offset json.Number) (string, string, error) {
	minutes, err := strconv.Atoi(offset.String())
	if err != nil || minutes < 0 {
		return "", "", fmt.Errorf("dosage: invalid offset %q", offset)
	}
	switch {
	case minutes%(60*24) == 0:
		return strconv.Itoa(minutes / (60 * 24)), "day", nil
	case minutes%60 == 0:
		return strconv.Itoa(minutes / 60), "hour", nil
	default:
		return strconv.Itoa(minutes), "minute", nil
	}
}
