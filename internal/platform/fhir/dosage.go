package fhir

import "encoding/json"

// UnitOfTime is the FHIR units-of-time value set.
type UnitOfTime string

const (
	UnitSecond UnitOfTime = "s"
	UnitMinute UnitOfTime = "min"
	UnitHour   UnitOfTime = "h"
	UnitDay    UnitOfTime = "d"
	UnitWeek   UnitOfTime = "wk"
	UnitMonth  UnitOfTime = "mo"
	UnitYear   UnitOfTime = "a"
)

// DayOfWeek is the FHIR days-of-week value set.
type DayOfWeek string

// Dosage is a structured dosage instruction. The gateway renders it to
// natural-language text; it never interprets it clinically.
type Dosage struct {
	Sequence           json.Number      `json:"sequence,omitempty"`
	Text               string           `json:"text,omitempty"`
	AdditionalInstruction []CodeableConcept `json:"additionalInstruction,omitempty"`
	PatientInstruction string           `json:"patientInstruction,omitempty"`
	Timing             *Timing          `json:"timing,omitempty"`
	AsNeededBoolean    *bool            `json:"asNeededBoolean,omitempty"`
	AsNeededCodeableConcept *CodeableConcept `json:"asNeededCodeableConcept,omitempty"`
	Site               *CodeableConcept `json:"site,omitempty"`
	Route              *CodeableConcept `json:"route,omitempty"`
	Method             *CodeableConcept `json:"method,omitempty"`
	DoseAndRate        []DoseAndRate    `json:"doseAndRate,omitempty"`
	MaxDosePerPeriod   *Ratio           `json:"maxDosePerPeriod,omitempty"`
	MaxDosePerAdministration *Quantity  `json:"maxDosePerAdministration,omitempty"`
	MaxDosePerLifetime *Quantity        `json:"maxDosePerLifetime,omitempty"`
}

type DoseAndRate struct {
	DoseQuantity *Quantity `json:"doseQuantity,omitempty"`
	DoseRange    *Range    `json:"doseRange,omitempty"`
	RateRatio    *Ratio    `json:"rateRatio,omitempty"`
	RateRange    *Range    `json:"rateRange,omitempty"`
	RateQuantity *Quantity `json:"rateQuantity,omitempty"`
}

type Timing struct {
	Event  []string         `json:"event,omitempty"`
	Repeat *TimingRepeat    `json:"repeat,omitempty"`
	Code   *CodeableConcept `json:"code,omitempty"`
}

type TimingRepeat struct {
	BoundsDuration *Quantity   `json:"boundsDuration,omitempty"`
	BoundsRange    *Range      `json:"boundsRange,omitempty"`
	BoundsPeriod   *Period     `json:"boundsPeriod,omitempty"`
	Count          json.Number `json:"count,omitempty"`
	CountMax       json.Number `json:"countMax,omitempty"`
	Duration       json.Number `json:"duration,omitempty"`
	DurationMax    json.Number `json:"durationMax,omitempty"`
	DurationUnit   UnitOfTime  `json:"durationUnit,omitempty"`
	Frequency      json.Number `json:"frequency,omitempty"`
	FrequencyMax   json.Number `json:"frequencyMax,omitempty"`
	Period         json.Number `json:"period,omitempty"`
	PeriodMax      json.Number `json:"periodMax,omitempty"`
	PeriodUnit     UnitOfTime  `json:"periodUnit,omitempty"`
	DayOfWeek      []DayOfWeek `json:"dayOfWeek,omitempty"`
	TimeOfDay      []string    `json:"timeOfDay,omitempty"`
	When           []string    `json:"when,omitempty"`
	Offset         json.Number `json:"offset,omitempty"`
}
