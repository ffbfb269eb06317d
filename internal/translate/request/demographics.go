// Package request converts inbound FHIR resources into the HL7v3 documents
// sent to Spine, one converter family per workflow action.
package request

import (
	"fmt"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// ConvertName maps a FHIR HumanName onto an HL7v3 PN.
func ConvertName(name fhir.HumanName, path string) (*hl7v3.Name, error) {
	converted := &hl7v3.Name{
		Prefix: name.Prefix,
		Given:  name.Given,
		Family: name.Family,
		Suffix: name.Suffix,
	}
	if name.Use != "" {
		use, err := convertNameUse(name.Use, path)
		if err != nil {
			return nil, err
		}
		converted.Use = use
	}
	return converted, nil
}

func convertNameUse(use, path string) (string, error) {
	switch use {
	case "usual", "official":
		return "L", nil
	case "nickname":
		return "A", nil
	default:
		return "", fhir.NewInvalidValueError(fmt.Sprintf("Unhandled name use %q.", use), path+".use")
	}
}

// ConvertTelecom maps a FHIR ContactPoint onto an HL7v3 TEL.
func ConvertTelecom(telecom fhir.ContactPoint, path string) (hl7v3.Telecom, error) {
	use, err := convertTelecomUse(telecom.Use, path)
	if err != nil {
		return hl7v3.Telecom{}, err
	}
	return hl7v3.Telecom{Use: use, Value: telecom.Value}, nil
}

func convertTelecomUse(use, path string) (string, error) {
	switch use {
	case "home":
		return "HP", nil
	case "work":
		return "WP", nil
	case "temp":
		return "HV", nil
	case "mobile":
		return "MC", nil
	default:
		return "", fhir.NewInvalidValueError(fmt.Sprintf("Unhandled telecom use %q.", use), path+".use")
	}
}

// ConvertAddress maps a FHIR Address onto an HL7v3 AD. City and district are
// folded into the street address lines.
func ConvertAddress(address fhir.Address, path string) (hl7v3.Address, error) {
	lines := append([]string{}, address.Line...)
	if address.City != "" {
		lines = append(lines, address.City)
	}
	if address.District != "" {
		lines = append(lines, address.District)
	}
	converted := hl7v3.Address{
		StreetAddressLine: lines,
		PostalCode:        address.PostalCode,
	}
	if address.Use != "" {
		use, err := convertAddressUse(address.Use, path)
		if err != nil {
			return hl7v3.Address{}, err
		}
		converted.Use = use
	}
	return converted, nil
}

func convertAddressUse(use, path string) (string, error) {
	switch use {
	case "home":
		return "H", nil
	case "work":
		return "WP", nil
	case "temp":
		return "TMP", nil
	default:
		return "", fhir.NewInvalidValueError(fmt.Sprintf("Unhandled address use %q.", use), path+".use")
	}
}

// ConvertGender maps a FHIR administrative gender onto an HL7v3 sex code.
func ConvertGender(gender, path string) (hl7v3.Code, error) {
	const sexOID = "2.16.840.1.113883.2.1.3.2.4.16.25"
	switch gender {
	case "male":
		return hl7v3.Code{CodeSystem: sexOID, Code: "1"}, nil
	case "female":
		return hl7v3.Code{CodeSystem: sexOID, Code: "2"}, nil
	case "other":
		return hl7v3.Code{CodeSystem: sexOID, Code: "9"}, nil
	case "unknown":
		return hl7v3.Code{CodeSystem: sexOID, Code: "0"}, nil
	default:
		return hl7v3.Code{}, fhir.NewInvalidValueError(fmt.Sprintf("Unhandled gender %q.", gender), path)
	}
}
