// Package dosage renders a structured FHIR Dosage as natural-language
// prose. The rendering is deterministic: an ordered pipeline of
// sub-renderers each contributes fragments for one dosage aspect, and the
// non-empty parts are joined with single spaces.
package dosage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
)

// ErrMissingField reports a populated dosage aspect whose structurally
// required companion field is absent, for example a doseQuantity value
// without its unit.
var ErrMissingField = errors.New("required field not populated")

type renderer func(fhir.Dosage) ([]string, error)

// Stringify renders the dosage. An empty dosage renders as "".
func Stringify(dosage fhir.Dosage) (string, error) {
	renderers := []renderer{
		stringifyMethod,
		stringifyDose,
		stringifyRate,
		stringifyDuration,
		stringifyFrequencyAndPeriod,
		stringifyOffsetAndWhen,
		stringifyDayOfWeek,
		stringifyTimeOfDay,
		stringifyRoute,
		stringifySite,
		stringifyAsNeeded,
		stringifyBounds,
		stringifyCount,
		stringifyMaxDose,
	}

	var parts []string
	for _, render := range renderers {
		fragments, err := render(dosage)
		if err != nil {
			return "", err
		}
		for _, fragment := range fragments {
			if fragment == "" {
				return "", ErrMissingField
			}
		}
		if len(fragments) > 0 {
			parts = append(parts, strings.Join(fragments, ""))
		}
	}
	return strings.Join(parts, " "), nil
}

func stringifyMethod(dosage fhir.Dosage) ([]string, error) {
	if dosage.Method == nil {
		return nil, nil
	}
	var fragments []string
	for _, coding := range dosage.Method.Coding {
		fragments = append(fragments, coding.Display)
	}
	return fragments, nil
}

func stringifyDose(dosage fhir.Dosage) ([]string, error) {
	doseQuantity, doseRange := firstDoseAndRate(dosage)
	if doseQuantity != nil {
		return []string{numericValue(doseQuantity.Value), " ", doseQuantity.Unit}, nil
	}
	if doseRange != nil {
		if doseRange.Low == nil || doseRange.High == nil {
			return nil, ErrMissingField
		}
		fragments := []string{numericValue(doseRange.Low.Value)}
		if doseRange.Low.Unit != doseRange.High.Unit {
			fragments = append(fragments, " ", doseRange.Low.Unit)
		}
		fragments = append(fragments, " to ", numericValue(doseRange.High.Value), " ", doseRange.High.Unit)
		return fragments, nil
	}
	return nil, nil
}

func firstDoseAndRate(dosage fhir.Dosage) (*fhir.Quantity, *fhir.Range) {
	for _, doseAndRate := range dosage.DoseAndRate {
		if doseAndRate.DoseQuantity != nil || doseAndRate.DoseRange != nil {
			return doseAndRate.DoseQuantity, doseAndRate.DoseRange
		}
	}
	return nil, nil
}

func stringifyRate(dosage fhir.Dosage) ([]string, error) {
	for _, doseAndRate := range dosage.DoseAndRate {
		switch {
		case doseAndRate.RateRatio != nil:
			return stringifyRateRatio(doseAndRate.RateRatio)
		case doseAndRate.RateRange != nil:
			return stringifyRateRange(doseAndRate.RateRange)
		case doseAndRate.RateQuantity != nil:
			quantity := doseAndRate.RateQuantity
			return []string{"at a rate of ", numericValue(quantity.Value), " ", quantity.Unit}, nil
		}
	}
	return nil, nil
}

func stringifyRateRatio(ratio *fhir.Ratio) ([]string, error) {
	numerator := ratio.Numerator
	denominator := ratio.Denominator
	if numerator == nil || denominator == nil {
		return nil, ErrMissingField
	}
	if isOne(denominator.Value) {
		return []string{
			"at a rate of ", numericValue(numerator.Value), " ", numerator.Unit,
			" per ", denominator.Unit,
		}, nil
	}
	return []string{
		"at a rate of ", numericValue(numerator.Value), " ", numerator.Unit,
		" every ", numericValue(denominator.Value), " ", pluralise(denominator.Unit, denominator.Value),
	}, nil
}

func stringifyRateRange(rateRange *fhir.Range) ([]string, error) {
	if rateRange.Low == nil || rateRange.High == nil {
		return nil, ErrMissingField
	}
	fragments := []string{"at a rate of ", numericValue(rateRange.Low.Value)}
	if rateRange.Low.Unit != rateRange.High.Unit {
		fragments = append(fragments, " ", rateRange.Low.Unit)
	}
	fragments = append(fragments, " to ", numericValue(rateRange.High.Value), " ", rateRange.High.Unit)
	return fragments, nil
}

func stringifyDuration(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil || repeat.Duration == "" {
		return nil, nil
	}
	unit, err := unitOfTime(repeat.DurationUnit)
	if err != nil {
		return nil, err
	}
	fragments := []string{"over ", numericValue(repeat.Duration), " ", pluralise(unit, repeat.Duration)}
	if repeat.DurationMax != "" {
		fragments = append(fragments,
			" (maximum ", numericValue(repeat.DurationMax), " ", pluralise(unit, repeat.DurationMax), ")")
	}
	fragments = append(fragments, ".")
	return fragments, nil
}

func stringifyFrequencyAndPeriod(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil {
		return nil, nil
	}
	frequency := repeat.Frequency
	frequencyMax := repeat.FrequencyMax
	period := repeat.Period
	periodMax := repeat.PeriodMax

	if frequency == "" && frequencyMax == "" {
		if period == "" && periodMax == "" {
			return nil, nil
		}
		if isOne(period) && periodMax == "" {
			phrase, err := reciprocalUnitOfTime(repeat.PeriodUnit)
			if err != nil {
				return nil, err
			}
			return []string{phrase}, nil
		}
		return nil, fmt.Errorf("dosage: period or periodMax specified without a frequency and period is not 1")
	}

	if isOne(frequency) && frequencyMax == "" {
		if period == "" && periodMax == "" {
			return []string{"once"}, nil
		}
		if isOne(period) && periodMax == "" {
			standard, err := stringifyStandardPeriod(repeat)
			if err != nil {
				return nil, err
			}
			return append([]string{"once "}, standard...), nil
		}
		return stringifyStandardPeriod(repeat)
	}

	if isTwo(frequency) && frequencyMax == "" {
		if period == "" && periodMax == "" {
			return []string{"twice"}, nil
		}
		standard, err := stringifyStandardPeriod(repeat)
		if err != nil {
			return nil, err
		}
		return append([]string{"twice "}, standard...), nil
	}

	fragments := stringifyStandardFrequency(repeat)
	if period != "" || periodMax != "" {
		standard, err := stringifyStandardPeriod(repeat)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, " ")
		fragments = append(fragments, standard...)
	}
	return fragments, nil
}

func stringifyStandardFrequency(repeat *fhir.TimingRepeat) []string {
	frequency := repeat.Frequency
	frequencyMax := repeat.FrequencyMax
	switch {
	case frequency != "" && frequencyMax != "":
		return []string{numericValue(frequency), " to ", numericValue(frequencyMax), " times"}
	case frequency != "":
		return []string{numericValue(frequency), " times"}
	default:
		return []string{"up to ", numericValue(frequencyMax), " times"}
	}
}

func stringifyStandardPeriod(repeat *fhir.TimingRepeat) ([]string, error) {
	unit, err := unitOfTime(repeat.PeriodUnit)
	if err != nil {
		return nil, err
	}
	switch {
	case repeat.PeriodMax != "":
		return []string{
			"every ", numericValue(repeat.Period), " to ", numericValue(repeat.PeriodMax),
			" ", pluralise(unit, repeat.PeriodMax),
		}, nil
	case isOne(repeat.Period):
		return []string{indefiniteArticle(repeat.PeriodUnit), " ", unit}, nil
	default:
		return []string{"every ", numericValue(repeat.Period), " ", pluralise(unit, repeat.Period)}, nil
	}
}

func stringifyDayOfWeek(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil || len(repeat.DayOfWeek) == 0 {
		return nil, nil
	}
	var days []string
	for _, day := range repeat.DayOfWeek {
		name, err := dayDisplay(day)
		if err != nil {
			return nil, err
		}
		days = append(days, name)
	}
	return []string{"on ", joinList(days)}, nil
}

func stringifyTimeOfDay(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil || len(repeat.TimeOfDay) == 0 {
		return nil, nil
	}
	var times []string
	for _, value := range repeat.TimeOfDay {
		formatted, err := formatTime(value)
		if err != nil {
			return nil, err
		}
		times = append(times, formatted)
	}
	return []string{"at ", joinList(times)}, nil
}

func stringifyRoute(dosage fhir.Dosage) ([]string, error) {
	if dosage.Route == nil {
		return nil, nil
	}
	var fragments []string
	for _, coding := range dosage.Route.Coding {
		fragments = append(fragments, coding.Display)
	}
	return fragments, nil
}

func stringifySite(dosage fhir.Dosage) ([]string, error) {
	if dosage.Site == nil {
		return nil, nil
	}
	var fragments []string
	for _, coding := range dosage.Site.Coding {
		fragments = append(fragments, coding.Display)
	}
	return fragments, nil
}

func stringifyAsNeeded(dosage fhir.Dosage) ([]string, error) {
	if dosage.AsNeededCodeableConcept != nil {
		var displays []string
		for _, coding := range dosage.AsNeededCodeableConcept.Coding {
			if coding.Display == "" {
				return nil, ErrMissingField
			}
			displays = append(displays, coding.Display)
		}
		if len(displays) == 0 {
			return nil, ErrMissingField
		}
		return []string{"as required for ", joinList(displays)}, nil
	}
	if dosage.AsNeededBoolean != nil && *dosage.AsNeededBoolean {
		return []string{"as required"}, nil
	}
	return nil, nil
}

func stringifyBounds(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil {
		return nil, nil
	}
	switch {
	case repeat.BoundsDuration != nil:
		bounds := repeat.BoundsDuration
		return []string{"for ", numericValue(bounds.Value), " ", pluralise(bounds.Unit, bounds.Value)}, nil
	case repeat.BoundsRange != nil:
		bounds := repeat.BoundsRange
		if bounds.Low == nil || bounds.High == nil {
			return nil, ErrMissingField
		}
		fragments := []string{"for ", numericValue(bounds.Low.Value)}
		if bounds.Low.Unit != bounds.High.Unit {
			fragments = append(fragments, " ", pluralise(bounds.Low.Unit, bounds.Low.Value))
		}
		fragments = append(fragments, " to ", numericValue(bounds.High.Value), " ", pluralise(bounds.High.Unit, bounds.High.Value))
		return fragments, nil
	case repeat.BoundsPeriod != nil:
		return stringifyBoundsPeriod(repeat.BoundsPeriod)
	}
	return nil, nil
}

func stringifyBoundsPeriod(period *fhir.Period) ([]string, error) {
	switch {
	case period.Start != "" && period.End != "":
		start, err := formatDate(period.Start)
		if err != nil {
			return nil, err
		}
		end, err := formatDate(period.End)
		if err != nil {
			return nil, err
		}
		return []string{"from ", start, " to ", end}, nil
	case period.Start != "":
		start, err := formatDate(period.Start)
		if err != nil {
			return nil, err
		}
		return []string{"from ", start}, nil
	case period.End != "":
		end, err := formatDate(period.End)
		if err != nil {
			return nil, err
		}
		return []string{"until ", end}, nil
	}
	return nil, nil
}

func stringifyCount(dosage fhir.Dosage) ([]string, error) {
	repeat := timingRepeat(dosage)
	if repeat == nil || repeat.Count == "" {
		return nil, nil
	}
	if repeat.CountMax != "" {
		return []string{
			"take ", numericValue(repeat.Count), " to ", numericValue(repeat.CountMax), " times",
		}, nil
	}
	return []string{"take ", numericValue(repeat.Count), " ", pluralise("time", repeat.Count)}, nil
}

func stringifyMaxDose(dosage fhir.Dosage) ([]string, error) {
	switch {
	case dosage.MaxDosePerPeriod != nil:
		numerator := dosage.MaxDosePerPeriod.Numerator
		denominator := dosage.MaxDosePerPeriod.Denominator
		if numerator == nil || denominator == nil {
			return nil, ErrMissingField
		}
		fragments := []string{"up to a maximum of ", numericValue(numerator.Value), " ", numerator.Unit, " in "}
		if isOne(denominator.Value) {
			fragments = append(fragments, denominator.Unit)
		} else {
			fragments = append(fragments, numericValue(denominator.Value), " ", pluralise(denominator.Unit, denominator.Value))
		}
		return fragments, nil
	case dosage.MaxDosePerAdministration != nil:
		quantity := dosage.MaxDosePerAdministration
		return []string{"up to a maximum of ", numericValue(quantity.Value), " ", quantity.Unit, " per dose"}, nil
	case dosage.MaxDosePerLifetime != nil:
		quantity := dosage.MaxDosePerLifetime
		return []string{"up to a maximum of ", numericValue(quantity.Value), " ", quantity.Unit, " for the lifetime of the patient"}, nil
	}
	return nil, nil
}

func timingRepeat(dosage fhir.Dosage) *fhir.TimingRepeat {
	if dosage.Timing == nil {
		return nil
	}
	return dosage.Timing.Repeat
}
