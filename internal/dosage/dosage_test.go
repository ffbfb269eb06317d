package dosage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
)

func repeatDosage(repeat fhir.TimingRepeat) fhir.Dosage {
	return fhir.Dosage{Timing: &fhir.Timing{Repeat: &repeat}}
}

func doseQuantity(value json.Number, unit string) fhir.Dosage {
	return fhir.Dosage{DoseAndRate: []fhir.DoseAndRate{{
		DoseQuantity: &fhir.Quantity{Value: value, Unit: unit},
	}}}
}

func TestStringify_EmptyDosage(t *testing.T) {
	got, err := Stringify(fhir.Dosage{})
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestStringify_MethodOnly(t *testing.T) {
	dosage := fhir.Dosage{Method: fhir.NewCodeableConcept(fhir.SystemSNOMED, "417924000", "Apply")}
	got, err := Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "Apply" {
		t.Errorf("got %q, want Apply", got)
	}
}

func TestStringify_FrequencyAndPeriod(t *testing.T) {
	cases := []struct {
		name   string
		repeat fhir.TimingRepeat
		want   string
	}{
		{"once a day", fhir.TimingRepeat{Frequency: "1", Period: "1", PeriodUnit: fhir.UnitDay}, "once a day"},
		{"twice every 8 hours", fhir.TimingRepeat{Frequency: "2", Period: "8", PeriodUnit: fhir.UnitHour}, "twice every 8 hours"},
		{"3 times an hour", fhir.TimingRepeat{Frequency: "3", Period: "1", PeriodUnit: fhir.UnitHour}, "3 times an hour"},
		{"once", fhir.TimingRepeat{Frequency: "1"}, "once"},
		{"twice", fhir.TimingRepeat{Frequency: "2"}, "twice"},
		{"daily", fhir.TimingRepeat{Period: "1", PeriodUnit: fhir.UnitDay}, "daily"},
		{"hourly", fhir.TimingRepeat{Period: "1", PeriodUnit: fhir.UnitHour}, "hourly"},
		{"annually", fhir.TimingRepeat{Period: "1", PeriodUnit: fhir.UnitYear}, "annually"},
		{"frequency range", fhir.TimingRepeat{Frequency: "2", FrequencyMax: "4", Period: "1", PeriodUnit: fhir.UnitDay}, "2 to 4 times a day"},
		{"up to frequencyMax", fhir.TimingRepeat{FrequencyMax: "4"}, "up to 4 times"},
		{"period range", fhir.TimingRepeat{Frequency: "1", Period: "4", PeriodMax: "6", PeriodUnit: fhir.UnitHour}, "every 4 to 6 hours"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Stringify(repeatDosage(c.repeat))
			if err != nil {
				t.Fatalf("Stringify: %v", err)
			}
			if got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestStringify_PeriodWithoutFrequencyNotOne(t *testing.T) {
	_, err := Stringify(repeatDosage(fhir.TimingRepeat{Period: "8", PeriodUnit: fhir.UnitHour}))
	if err == nil {
		t.Fatal("expected error for period without frequency and period not 1")
	}
}

func TestStringify_Dose(t *testing.T) {
	got, err := Stringify(doseQuantity("2", "tablet"))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "2 tablet" {
		t.Errorf("got %q", got)
	}

	dosage := fhir.Dosage{DoseAndRate: []fhir.DoseAndRate{{
		DoseRange: &fhir.Range{
			Low:  &fhir.Quantity{Value: "10", Unit: "milligram"},
			High: &fhir.Quantity{Value: "20", Unit: "milligram"},
		},
	}}}
	got, err = Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "10 to 20 milligram" {
		t.Errorf("got %q", got)
	}
}

func TestStringify_RateRatio(t *testing.T) {
	dosage := fhir.Dosage{DoseAndRate: []fhir.DoseAndRate{{
		RateRatio: &fhir.Ratio{
			Numerator:   &fhir.Quantity{Value: "100", Unit: "millilitre"},
			Denominator: &fhir.Quantity{Value: "1", Unit: "hour"},
		},
	}}}
	got, err := Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "at a rate of 100 millilitre per hour" {
		t.Errorf("got %q", got)
	}

	dosage.DoseAndRate[0].RateRatio.Denominator = &fhir.Quantity{Value: "8", Unit: "hour"}
	got, err = Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "at a rate of 100 millilitre every 8 hours" {
		t.Errorf("got %q", got)
	}
}

func TestStringify_Duration(t *testing.T) {
	got, err := Stringify(repeatDosage(fhir.TimingRepeat{
		Duration: "2", DurationMax: "4", DurationUnit: fhir.UnitHour,
	}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "over 2 hours (maximum 4 hours)." {
		t.Errorf("got %q", got)
	}
}

// Pluralisation compares the exact decimal string against "1", so "1.0" is
// pluralised even though it is numerically one. Known edge case, kept as
// is.
func TestStringify_PluralisationComparesExactString(t *testing.T) {
	got, err := Stringify(repeatDosage(fhir.TimingRepeat{Duration: "1", DurationUnit: fhir.UnitDay}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "over 1 day." {
		t.Errorf("got %q", got)
	}

	got, err = Stringify(repeatDosage(fhir.TimingRepeat{Duration: "1.0", DurationUnit: fhir.UnitDay}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "over 1.0 days." {
		t.Errorf(`got %q, want "over 1.0 days." ("1.0" is not textually "1")`, got)
	}
}

func TestStringify_DayOfWeekAndTimeOfDay(t *testing.T) {
	got, err := Stringify(repeatDosage(fhir.TimingRepeat{
		DayOfWeek: []fhir.DayOfWeek{"mon", "wed", "fri"},
		TimeOfDay: []string{"12:00:00", "16:30:15"},
	}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "on Monday, Wednesday and Friday at 12:00 and 16:30:15" {
		t.Errorf("got %q", got)
	}

	if _, err := Stringify(repeatDosage(fhir.TimingRepeat{TimeOfDay: []string{"25:99"}})); err == nil {
		t.Error("expected error for invalid time of day")
	}
}

func TestStringify_OffsetAndWhen(t *testing.T) {
	got, err := Stringify(repeatDosage(fhir.TimingRepeat{Offset: "30", When: []string{"AC"}}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "30 minutes before a meal" {
		t.Errorf("got %q", got)
	}

	got, err = Stringify(repeatDosage(fhir.TimingRepeat{Offset: "60", When: []string{"HS"}}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "1 hour at bedtime" {
		t.Errorf("got %q", got)
	}
}

func TestStringify_AsNeededAndRoute(t *testing.T) {
	asNeeded := true
	dosage := fhir.Dosage{
		Route:           fhir.NewCodeableConcept(fhir.SystemSNOMED, "26643006", "oral"),
		AsNeededBoolean: &asNeeded,
	}
	got, err := Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "oral as required" {
		t.Errorf("got %q", got)
	}

	dosage = fhir.Dosage{
		AsNeededCodeableConcept: fhir.NewCodeableConcept(fhir.SystemSNOMED, "25064002", "headache"),
	}
	got, err = Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "as required for headache" {
		t.Errorf("got %q", got)
	}
}

func TestStringify_BoundsPeriod(t *testing.T) {
	got, err := Stringify(repeatDosage(fhir.TimingRepeat{
		BoundsPeriod: &fhir.Period{Start: "2023-01-01", End: "2023-01-31"},
	}))
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "from 01/01/2023 to 31/01/2023" {
		t.Errorf("got %q", got)
	}

	if _, err := Stringify(repeatDosage(fhir.TimingRepeat{
		BoundsPeriod: &fhir.Period{Start: "01-01-2023"},
	})); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestStringify_MissingRequiredCompanion(t *testing.T) {
	_, err := Stringify(doseQuantity("2", ""))
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestStringify_CompositeOrder(t *testing.T) {
	asNeeded := true
	dosage := doseQuantity("1", "tablet")
	dosage.Timing = &fhir.Timing{Repeat: &fhir.TimingRepeat{
		Frequency: "2", Period: "1", PeriodUnit: fhir.UnitDay,
		BoundsDuration: &fhir.Quantity{Value: "7", Unit: "day"},
	}}
	dosage.Route = fhir.NewCodeableConcept(fhir.SystemSNOMED, "26643006", "oral")
	dosage.AsNeededBoolean = &asNeeded

	got, err := Stringify(dosage)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if got != "1 tablet twice a day oral as required for 7 days" {
		t.Errorf("got %q", got)
	}
}

func TestCombine(t *testing.T) {
	single := []fhir.Dosage{{Text: "2 tablet once a day"}}
	got, err := Combine(single)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "2 tablet once a day" {
		t.Errorf("got %q", got)
	}

	sequenced := []fhir.Dosage{
		{Sequence: "2", Text: "1 tablet at night"},
		{Sequence: "1", Text: "2 tablet in the morning"},
		{Sequence: "2", Text: "dissolved in water"},
	}
	got, err = Combine(sequenced)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "2 tablet in the morning, then 1 tablet at night, and dissolved in water" {
		t.Errorf("got %q", got)
	}

	unsequenced := []fhir.Dosage{{Sequence: "1", Text: "a"}, {Text: "b"}}
	if _, err := Combine(unsequenced); !errors.Is(err, ErrIncompleteSequencing) {
		t.Errorf("err = %v, want ErrIncompleteSequencing", err)
	}
}
