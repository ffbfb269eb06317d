// Package response converts the HL7v3 documents Spine returns into FHIR
// resources, one converter family per inbound interaction.
package response

import (
	"fmt"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// ConvertName maps an HL7v3 PN back onto a FHIR HumanName. Unstructured
// names become the text representation.
func ConvertName(name hl7v3.Name) fhir.HumanName {
	converted := fhir.HumanName{
		Prefix: name.Prefix,
		Given:  name.Given,
		Family: name.Family,
		Suffix: name.Suffix,
	}
	switch name.Use {
	case "L":
		converted.Use = "usual"
	case "A":
		converted.Use = "nickname"
	}
	if converted.Family == "" && len(converted.Given) == 0 && name.Unstructured != "" {
		converted.Text = name.Unstructured
	}
	return converted
}

// ConvertTelecom maps an HL7v3 TEL back onto a FHIR ContactPoint. The
// "tel:" scheme prefix is stripped from the value.
func ConvertTelecom(telecom hl7v3.Telecom) fhir.ContactPoint {
	converted := fhir.ContactPoint{System: "phone", Value: stripTelPrefix(telecom.Value)}
	switch telecom.Use {
	case "HP":
		converted.Use = "home"
	case "WP":
		converted.Use = "work"
	case "HV":
		converted.Use = "temp"
	case "MC":
		converted.Use = "mobile"
	}
	return converted
}

func stripTelPrefix(value string) string {
	const prefix = "tel:"
	if len(value) > len(prefix) && value[:len(prefix)] == prefix {
		return value[len(prefix):]
	}
	return value
}

// ConvertAddress maps an HL7v3 AD back onto a FHIR Address. Street address
// lines stay as lines; the request direction's folding of city and district
// is not reversible, so nothing is split back out.
func ConvertAddress(address hl7v3.Address) fhir.Address {
	converted := fhir.Address{
		Line:       address.StreetAddressLine,
		PostalCode: address.PostalCode,
	}
	switch address.Use {
	case "H":
		converted.Use = "home"
	case "WP":
		converted.Use = "work"
	case "TMP":
		converted.Use = "temp"
	case "PST":
		converted.Use = "billing"
	}
	return converted
}

// ConvertGender maps an HL7v3 sex code back onto a FHIR administrative
// gender.
func ConvertGender(code hl7v3.Code, path string) (string, error) {
	switch code.Code {
	case "1":
		return "male", nil
	case "2":
		return "female", nil
	case "9":
		return "other", nil
	case "0":
		return "unknown", nil
	default:
		return "", fhir.NewInvalidValueError(fmt.Sprintf("Unhandled sex code %q.", code.Code), path)
	}
}
