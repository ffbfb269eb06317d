package request

import (
	"errors"
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
)

func TestConvertName(t *testing.T) {
	name, err := ConvertName(fhir.HumanName{
		Use:    "official",
		Prefix: []string{"DR"},
		Given:  []string{"Thomas"},
		Family: "Edwards",
	}, "Practitioner.name")
	if err != nil {
		t.Fatalf("ConvertName: %v", err)
	}
	if name.Use != "L" || name.Family != "Edwards" {
		t.Errorf("name = %+v", name)
	}

	nickname, err := ConvertName(fhir.HumanName{Use: "nickname", Given: []string{"Tom"}}, "Practitioner.name")
	if err != nil {
		t.Fatalf("ConvertName: %v", err)
	}
	if nickname.Use != "A" {
		t.Errorf("use = %q, want A", nickname.Use)
	}
}

func TestConvertName_UnknownUse(t *testing.T) {
	_, err := ConvertName(fhir.HumanName{Use: "maiden", Family: "Edwards"}, "Patient.name")
	var processing *fhir.ProcessingError
	if !errors.As(err, &processing) || processing.Code != fhir.ErrorCodeInvalidValue {
		t.Fatalf("error = %v, want INVALID_VALUE", err)
	}
	if processing.Path != "Patient.name.use" {
		t.Errorf("path = %q", processing.Path)
	}
}

func TestConvertTelecom(t *testing.T) {
	cases := []struct {
		use  string
		want string
	}{
		{"home", "HP"},
		{"work", "WP"},
		{"temp", "HV"},
		{"mobile", "MC"},
	}
	for _, c := range cases {
		telecom, err := ConvertTelecom(fhir.ContactPoint{System: "phone", Value: "01234567890", Use: c.use}, "Patient.telecom")
		if err != nil {
			t.Fatalf("ConvertTelecom(%q): %v", c.use, err)
		}
		if telecom.Use != c.want {
			t.Errorf("use %q = %q, want %q", c.use, telecom.Use, c.want)
		}
	}

	_, err := ConvertTelecom(fhir.ContactPoint{System: "phone", Value: "01234567890", Use: "old"}, "Patient.telecom")
	var processing *fhir.ProcessingError
	if !errors.As(err, &processing) || processing.Code != fhir.ErrorCodeInvalidValue {
		t.Fatalf("error = %v, want INVALID_VALUE", err)
	}
}

func TestConvertAddress(t *testing.T) {
	address, err := ConvertAddress(fhir.Address{
		Use:        "home",
		Line:       []string{"1 Trevelyan Square", "Boar Lane"},
		City:       "Leeds",
		District:   "West Yorkshire",
		PostalCode: "LS1 6AE",
	}, "Patient.address")
	if err != nil {
		t.Fatalf("ConvertAddress: %v", err)
	}
	if address.Use != "H" || address.PostalCode != "LS1 6AE" {
		t.Errorf("address = %+v", address)
	}
	// City and district become trailing street address lines.
	if len(address.StreetAddressLine) != 4 ||
		address.StreetAddressLine[2] != "Leeds" ||
		address.StreetAddressLine[3] != "West Yorkshire" {
		t.Errorf("street address lines = %q", address.StreetAddressLine)
	}
}

func TestConvertGender(t *testing.T) {
	cases := []struct {
		gender string
		want   string
	}{
		{"male", "1"},
		{"female", "2"},
		{"other", "9"},
		{"unknown", "0"},
	}
	for _, c := range cases {
		code, err := ConvertGender(c.gender, "Patient.gender")
		if err != nil {
			t.Fatalf("ConvertGender(%q): %v", c.gender, err)
		}
		if code.Code != c.want {
			t.Errorf("gender %q = %q, want %q", c.gender, code.Code, c.want)
		}
	}

	_, err := ConvertGender("none", "Patient.gender")
	var processing *fhir.ProcessingError
	if !errors.As(err, &processing) || processing.Code != fhir.ErrorCodeInvalidValue {
		t.Fatalf("error = %v, want INVALID_VALUE", err)
	}
}
