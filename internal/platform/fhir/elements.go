package fhir

import "encoding/json"

// Common system URIs used across the NHS EPS FHIR profiles.
const (
	SystemUUID                    = "https://tools.ietf.org/html/rfc4122"
	SystemNHSNumber               = "https://fhir.nhs.uk/Id/nhs-number"
	SystemODSOrganizationCode     = "https://fhir.nhs.uk/Id/ods-organization-code"
	SystemPrescriptionOrderNumber = "https://fhir.nhs.uk/Id/prescription-order-number"
	SystemPrescriptionOrderItem   = "https://fhir.nhs.uk/Id/prescription-order-item-number"
	SystemPrescriptionDispenseItem = "https://fhir.nhs.uk/Id/prescription-dispense-item-number"
	SystemSDSRoleProfileID        = "https://fhir.nhs.uk/Id/sds-role-profile-id"
	SystemSDSUserID               = "https://fhir.nhs.uk/Id/sds-user-id"
	SystemProfessionalCode        = "https://fhir.hl7.org.uk/Id/professional-code"
	SystemGMCNumber               = "https://fhir.hl7.org.uk/Id/gmc-number"
	SystemGMPNumber               = "https://fhir.hl7.org.uk/Id/gmp-number"
	SystemNMCNumber               = "https://fhir.hl7.org.uk/Id/nmc-number"
	SystemGPhCNumber              = "https://fhir.hl7.org.uk/Id/gphc-number"
	SystemHCPCNumber              = "https://fhir.hl7.org.uk/Id/hcpc-number"
	SystemDINNumber               = "https://fhir.hl7.org.uk/Id/din-number"
	SystemSpuriousCode            = "https://fhir.hl7.org.uk/Id/nhsbsa-spurious-code"
	SystemSNOMED                  = "http://snomed.info/sct"
	SystemUnitsOfMeasure          = "http://unitsofmeasure.org"
	SystemSpineError              = "https://fhir.nhs.uk/CodeSystem/Spine-ErrorOrWarningCode"
	SystemSDSJobRoleName          = "https://fhir.hl7.org.uk/CodeSystem/UKCore-SDSJobRoleName"
	SystemSDSJobRoleCode          = "https://fhir.hl7.org.uk/CodeSystem/UKCore-SDSJobRoleCode"
)

// Identifier is a FHIR Identifier element.
type Identifier struct {
	Extension []Extension `json:"extension,omitempty"`
	System    string      `json:"system,omitempty"`
	Value     string      `json:"value,omitempty"`
}

// Coding is a FHIR Coding element.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
	Version string `json:"version,omitempty"`
}

// CodeableConcept is a FHIR CodeableConcept element.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Quantity carries its value as a json.Number so that clinically significant
// decimal precision survives a round trip untouched.
type Quantity struct {
	Value  json.Number `json:"value,omitempty"`
	Unit   string      `json:"unit,omitempty"`
	System string      `json:"system,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// Range is a FHIR Range element.
type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

// Ratio is a FHIR Ratio element.
type Ratio struct {
	Numerator   *Quantity `json:"numerator,omitempty"`
	Denominator *Quantity `json:"denominator,omitempty"`
}

// Period is a FHIR Period element.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Reference points at another resource, either by literal reference
/// (urn:uuid:... within a message bundle) or by business identifier.
type Reference struct {
	Extension  []Extension `json:"extension,omitempty"`
	Reference  string      `json:"reference,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Type       string      `json:"type,omitempty"`
	Display    string      `json:"display,omitempty"`
}

// IsLiteral reports whether the reference carries a literal reference value
// rather than (only) a business identifier.
func (r *Reference) IsLiteral() bool {
	return r != nil && r.Reference != ""
}

// Extension is a FHIR extension. FHIR's value[x] polymorphism is modelled as
// one optional field per value type used by the EPS profiles; exactly one of
// the value fields (or the nested Extension list) is populated.
type Extension struct {
	URL                  string           `json:"url"`
	Extension            []Extension      `json:"extension,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueDate            string           `json:"valueDate,omitempty"`
	ValueDateTime        string           `json:"valueDateTime,omitempty"`
	ValueUnsignedInt     json.Number      `json:"valueUnsignedInt,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueIdentifier      *Identifier      `json:"valueIdentifier,omitempty"`
	ValueReference       *Reference       `json:"valueReference,omitempty"`
}

// HumanName is a FHIR HumanName element.
type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

// Address is a FHIR Address element.
type Address struct {
	Use        string   `json:"use,omitempty"`
	Text       string   `json:"text,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	District   string   `json:"district,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
}

// ContactPoint is a FHIR ContactPoint element.
type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// Meta is a FHIR Meta element; only lastUpdated is used by the gateway.
type Meta struct {
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Signature is a FHIR Signature element carried on a Provenance resource.
type Signature struct {
	Type []Coding   `json:"type,omitempty"`
	When string     `json:"when,omitempty"`
	Who  *Reference `json:"who,omitempty"`
	Data string     `json:"data,omitempty"`
}

func NewCoding(system, code, display string) Coding {
	return Coding{System: system, Code: code, Display: display}
}

func NewCodeableConcept(system, code, display string) *CodeableConcept {
	return &CodeableConcept{Coding: []Coding{NewCoding(system, code, display)}}
}

func NewIdentifier(system, value string) Identifier {
	return Identifier{System: system, Value: value}
}

/// NewReference builds a literal urn:uuid reference to a resource id minted
// by the gateway.
func NewReference(resourceID string) *Reference {
	return &Reference{Reference: "urn:uuid:" + resourceID}
}

// NewIdentifierReference builds a logical reference by business identifier.
func NewIdentifierReference(identifier Identifier, display, resourceType string) *Reference {
	return &Reference{Identifier: &identifier, Display: display, Type: resourceType}
}
