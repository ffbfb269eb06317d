package response

import (
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

func TestConvertPatient(t *testing.T) {
	patient := releasedPatient()
	patient.Addr = []hl7v3.Address{{Use: "H", StreetAddressLine: []string{"1 Trevelyan Square", "Leeds"}, PostalCode: "LS1 6AE"}}
	patient.PatientPerson.PlayedProviderPatient = &hl7v3.ProviderPatient{
		ClassCode: "PAT",
		SubjectOf: &hl7v3.PatientSubjectOf{
			TypeCode: "SBJ",
			PatientCareProvision: &hl7v3.PatientCareProvision{
				ClassCode: "PCPR", MoodCode: "EVN",
				ResponsibleParty: &hl7v3.CareProvisionResponsibleParty{
					TypeCode: "RESP",
					HealthCareProvider: &hl7v3.HealthCareProvider{
						ClassCode: "PROV",
						ID:        hl7v3.NewODSOrganizationIdentifier("B81001"),
					},
				},
			},
		},
	}

	converted, err := ConvertPatient(patient)
	if err != nil {
		t.Fatalf("ConvertPatient: %v", err)
	}
	identifier := converted.Identifier[0]
	if identifier.System != fhir.SystemNHSNumber || identifier.Value != "9990548609" {
		t.Errorf("identifier = %+v", identifier)
	}
	if identifier.Extension[0].ValueCodeableConcept.Coding[0].Code != "number-present-and-verified" {
		t.Errorf("verification status = %+v", identifier.Extension)
	}
	if converted.Gender != "female" {
		t.Errorf("gender = %q", converted.Gender)
	}
	if converted.BirthDate != "1973-05-28" {
		t.Errorf("birthDate = %q", converted.BirthDate)
	}
	if converted.Address[0].Use != "home" || converted.Address[0].PostalCode != "LS1 6AE" {
		t.Errorf("address = %+v", converted.Address)
	}
	gp := converted.GeneralPractitioner[0]
	if gp.Identifier.System != fhir.SystemODSOrganizationCode || gp.Identifier.Value != "B81001" {
		t.Errorf("general practitioner = %+v", gp)
	}
}

func TestConvertPatient_BirthTimeTruncatedToDate(t *testing.T) {
	patient := releasedPatient()
	patient.PatientPerson.BirthTime = &hl7v3.Timestamp{Value: "19730528120000"}

	converted, err := ConvertPatient(patient)
	if err != nil {
		t.Fatalf("ConvertPatient: %v", err)
	}
	if converted.BirthDate != "1973-05-28" {
		t.Errorf("birthDate = %q, want the time component dropped", converted.BirthDate)
	}
}

func TestConvertPatient_UnknownGP(t *testing.T) {
	patient := releasedPatient()
	patient.PatientPerson.PlayedProviderPatient = &hl7v3.ProviderPatient{
		ClassCode: "PAT",
		SubjectOf: &hl7v3.PatientSubjectOf{
			TypeCode: "SBJ",
			PatientCareProvision: &hl7v3.PatientCareProvision{
				ClassCode: "PCPR", MoodCode: "EVN",
				ResponsibleParty: &hl7v3.CareProvisionResponsibleParty{
					TypeCode: "RESP",
					HealthCareProvider: &hl7v3.HealthCareProvider{
						ClassCode: "PROV",
						ID:        hl7v3.Identifier{NullFlavor: "UNK"},
					},
				},
			},
		},
	}

	converted, err := ConvertPatient(patient)
	if err != nil {
		t.Fatalf("ConvertPatient: %v", err)
	}
	if got := converted.GeneralPractitioner[0].Identifier.Value; got != UnknownGPODSCode {
		t.Errorf("general practitioner = %q, want %q", got, UnknownGPODSCode)
	}
}

func TestConvertGenderRejectsUnknownCode(t *testing.T) {
	patient := releasedPatient()
	patient.PatientPerson.AdministrativeGenderCode = &hl7v3.Code{Code: "3"}

	if _, err := ConvertPatient(patient); err == nil {
		t.Fatal("ConvertPatient accepted an unhandled sex code")
	}
}
