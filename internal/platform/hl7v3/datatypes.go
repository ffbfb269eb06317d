package hl7v3

import (
	"encoding/xml"
	"strings"
)

// HL7v3 namespace and NHS code system OIDs.
const (
	Namespace = "urn:hl7-org:v3"

	OIDShortFormPrescriptionID = "2.16.840.1.113883.2.1.3.2.4.18.8"
	OIDPrescriptionType        = "2.16.840.1.113883.2.1.3.2.4.17.25"
	OIDJobRole                 = "2.16.840.1.113883.2.1.3.2.4.17.94"
	OIDDispensingSitePreference = "2.16.840.1.113883.2.1.3.2.4.17.21"
	OIDPrescriptionAnnotation  = "2.16.840.1.113883.2.1.3.2.4.17.30"
	OIDSDSUserID               = "1.2.826.0.1285.0.2.0.65"
	OIDProfessionalCode        = "1.2.826.0.1285.0.2.1.54"
	OIDPrescribingCode         = "1.2.826.0.1285.0.2.1.105"
	OIDSDSRoleProfileID        = "1.2.826.0.1285.0.2.0.67"
	OIDSDSJobRoleCode          = "1.2.826.0.1285.0.2.1.104"
	OIDODSOrganizationCode     = "1.2.826.0.1285.0.1.10"
	OIDNHSNumber               = "2.16.840.1.113883.2.1.4.1"
	OIDSNOMED                  = "2.16.840.1.113883.2.1.3.2.4.15"
	OIDOrganizationType        = "2.16.840.1.113883.2.1.3.2.4.17.240"
	OIDItemStatus              = "2.16.840.1.113883.2.1.3.2.4.16.30"
	OIDDispensingEndorsement   = "2.16.840.1.113883.2.1.3.2.4.16.32"
	OIDChargeExemption         = "2.16.840.1.113883.2.1.3.2.4.16.34"
	OIDReturnReason            = "2.16.840.1.113883.2.1.3.2.4.16.28"
	OIDWithdrawReason          = "2.16.840.1.113883.2.1.3.2.4.16.27"
)

// Identifier is an II datatype: a root OID or UUID plus an optional
// extension. Spine emits and expects UUID roots in uppercase.
type Identifier struct {
	Root       string `xml:"root,attr,omitempty"`
	Extension  string `xml:"extension,attr,omitempty"`
	NullFlavor string `xml:"nullFlavor,attr,omitempty"`
}

// NewGlobalIdentifier builds an II whose root is the given UUID, uppercased
// the way Spine requires.
func NewGlobalIdentifier(id string) Identifier {
	return Identifier{Root: strings.ToUpper(id)}
}

// NewShortFormPrescriptionIdentifier builds the II carrying the
// human-readable short-form prescription id.
func NewShortFormPrescriptionIdentifier(value string) Identifier {
	return Identifier{Root: OIDShortFormPrescriptionID, Extension: value}
}

func NewNHSNumber(value string) Identifier {
	return Identifier{Root: OIDNHSNumber, Extension: value}
}

func NewSDSRoleProfileIdentifier(value string) Identifier {
	return Identifier{Root: OIDSDSRoleProfileID, Extension: value}
}

func NewSDSUserIdentifier(value string) Identifier {
	return Identifier{Root: OIDSDSUserID, Extension: value}
}

func NewODSOrganizationIdentifier(value string) Identifier {
	return Identifier{Root: OIDODSOrganizationCode, Extension: value}
}

// NewProfessionalCode identifies a prescriber by their GMC, GMP, NMC, GPhC
// or HCPC registration number.
func NewProfessionalCode(value string) Identifier {
	return Identifier{Root: OIDProfessionalCode, Extension: value}
}

// NewPrescribingCode identifies a prescriber by DIN or spurious code for
// reimbursement purposes.
func NewPrescribingCode(value string) Identifier {
	return Identifier{Root: OIDPrescribingCode, Extension: value}
}

// Code is a CV/CE datatype. DisplayName is optional on most elements.
type Code struct {
	CodeSystem  string `xml:"codeSystem,attr,omitempty"`
	Code        string `xml:"code,attr,omitempty"`
	DisplayName string `xml:"displayName,attr,omitempty"`
}

func NewSnomedCode(code, display string) Code {
	return Code{CodeSystem: OIDSNOMED, Code: code, DisplayName: display}
}

func NewPrescriptionAnnotationCode(code string) Code {
	return Code{CodeSystem: OIDPrescriptionAnnotation, Code: code}
}

func NewJobRoleCode(code, display string) Code {
	return Code{CodeSystem: OIDSDSJobRoleCode, Code: code, DisplayName: display}
}

// Timestamp is a TS datatype holding a compact HL7v3 timestamp such as
// 20230131120500.
type Timestamp struct {
	Value string `xml:"value,attr"`
}

// NullTime renders an effectiveTime that is structurally required but not
// applicable.
type NullTime struct {
	NullFlavor string `xml:"nullFlavor,attr"`
}

func NewNullTime() NullTime {
	return NullTime{NullFlavor: "NA"}
}

// Interval is an IVL_TS / IVL_INT low/high pair.
type Interval struct {
	Low  *IntervalBound `xml:"low,omitempty"`
	High *IntervalBound `xml:"high,omitempty"`
}

type IntervalBound struct {
	Value string `xml:"value,attr"`
}

// Text is an ST datatype rendered as element character data.
type Text struct {
	Value string `xml:",chardata"`
}

// Bool is a BL datatype rendered as a value attribute.
type Bool struct {
	Value bool `xml:"value,attr"`
}

// Quantity is a PQ datatype. The alternative-units translation carries the
// coded unit alongside the unitless count Spine requires on quantity itself.
type Quantity struct {
	Value       string               `xml:"value,attr"`
	Unit        string               `xml:"unit,attr"`
	Translation *QuantityTranslation `xml:"translation,omitempty"`
}

type QuantityTranslation struct {
	Value       string `xml:"value,attr"`
	CodeSystem  string `xml:"codeSystem,attr"`
	Code        string `xml:"code,attr"`
	DisplayName string `xml:"displayName,attr,omitempty"`
}

// NewQuantityInAlternativeUnits builds a PQ with unit "1" and a SNOMED
// translation carrying the human-readable unit.
func NewQuantityInAlternativeUnits(value, unitCode, unitDisplay string) Quantity {
	return Quantity{
		Value: value,
		Unit:  "1",
		Translation: &QuantityTranslation{
			Value:       value,
			CodeSystem:  OIDSNOMED,
			Code:        unitCode,
			DisplayName: unitDisplay,
		},
	}
}

// TemplateIdentifier identifies the NPfIT message template an act
// relationship conforms to.
type TemplateIdentifier struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

func NewTemplateIdentifier(extension string) TemplateIdentifier {
	return TemplateIdentifier{Root: "2.16.840.1.113883.2.1.3.2.4.18.2", Extension: extension}
}

// Name is a PN datatype: either fully structured or a single unstructured
// string carried as character data.
type Name struct {
	Use          string   `xml:"use,attr,omitempty"`
	Prefix       []string `xml:"prefix,omitempty"`
	Given        []string `xml:"given,omitempty"`
	Family       string   `xml:"family,omitempty"`
	Suffix       []string `xml:"suffix,omitempty"`
	Unstructured string   `xml:",chardata"`
}

// Address is an AD datatype.
type Address struct {
	Use               string   `xml:"use,attr,omitempty"`
	StreetAddressLine []string `xml:"streetAddressLine,omitempty"`
	PostalCode        string   `xml:"postalCode,omitempty"`
}

// Telecom is a TEL datatype.
type Telecom struct {
	Use   string `xml:"use,attr,omitempty"`
	Value string `xml:"value,attr,omitempty"`
}

// Marshal renders a document with the XML declaration prepended, indented
// the way Spine tooling expects.
func Marshal(document any) ([]byte, error) {
	body, err := xml.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
