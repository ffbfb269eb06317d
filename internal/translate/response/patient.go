package response

import (
	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// UnknownGPODSCode stands in for the patient's registered practice when
// Spine reports it with a null flavor.
const UnknownGPODSCode = "V81999"

const (
	extensionNHSNumberVerificationStatus = "https://fhir.hl7.org.uk/StructureDefinition/Extension-UKCore-NHSNumberVerificationStatus"
	systemNHSNumberVerificationStatus    = "https://fhir.hl7.org.uk/CodeSystem/UKCore-NHSNumberVerificationStatus"
)

// ConvertPatient maps the HL7v3 record target patient onto a FHIR Patient.
func ConvertPatient(patient *hl7v3.Patient) (*fhir.Patient, error) {
	converted := &fhir.Patient{
		Base:       fhir.Base{ResourceType: "Patient", ID: uuid.NewString()},
		Identifier: []fhir.Identifier{nhsNumberIdentifier(patient.ID.Extension)},
	}
	for _, address := range patient.Addr {
		converted.Address = append(converted.Address, ConvertAddress(address))
	}
	for _, telecom := range patient.Telecom {
		converted.Telecom = append(converted.Telecom, ConvertTelecom(telecom))
	}

	person := patient.PatientPerson
	if person == nil {
		return converted, nil
	}
	for _, name := range person.Name {
		converted.Name = append(converted.Name, ConvertName(name))
	}
	if person.AdministrativeGenderCode != nil {
		gender, err := ConvertGender(*person.AdministrativeGenderCode, "Patient.gender")
		if err != nil {
			return nil, err
		}
		converted.Gender = gender
	}
	if person.BirthTime != nil {
		birthDate, err := translate.ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: truncateToDate(person.BirthTime.Value)})
		if err != nil {
			return nil, err
		}
		converted.BirthDate = birthDate
	}
	converted.GeneralPractitioner = generalPractitioner(person)
	return converted, nil
}

func truncateToDate(value string) string {
	if len(value) > 8 {
		return value[:8]
	}
	return value
}

func nhsNumberIdentifier(nhsNumber string) fhir.Identifier {
	return fhir.Identifier{
		Extension: []fhir.Extension{{
			URL: extensionNHSNumberVerificationStatus,
			ValueCodeableConcept: fhir.NewCodeableConcept(
				systemNHSNumberVerificationStatus, "number-present-and-verified", "Number present and verified"),
		}},
		System: fhir.SystemNHSNumber,
		Value:  nhsNumber,
	}
}

func generalPractitioner(person *hl7v3.PatientPerson) []fhir.Reference {
	provider := person.PlayedProviderPatient
	if provider == nil || provider.SubjectOf == nil || provider.SubjectOf.PatientCareProvision == nil {
		return nil
	}
	responsibleParty := provider.SubjectOf.PatientCareProvision.ResponsibleParty
	if responsibleParty == nil || responsibleParty.HealthCareProvider == nil {
		return nil
	}
	odsCode := responsibleParty.HealthCareProvider.ID.Extension
	if responsibleParty.HealthCareProvider.ID.NullFlavor != "" {
		odsCode = UnknownGPODSCode
	}
	return []fhir.Reference{
		{Identifier: &fhir.Identifier{System: fhir.SystemODSOrganizationCode, Value: odsCode}},
	}
}
