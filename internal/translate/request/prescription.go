package request

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/dosage"
	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// Prescription treatment type codes carried in pertinentInformation5.
const (
	TreatmentTypeAcute             = "0001"
	TreatmentTypeContinuous        = "0002"
	TreatmentTypeRepeatDispensing  = "0003"
)

// ConvertBundleToParentPrescription builds the full ParentPrescription
// document from a prescription-order message bundle. The same conversion
// backs both prepare (digest creation) and send.
func ConvertBundleToParentPrescription(bundle *fhir.Bundle) (*hl7v3.ParentPrescription, error) {
	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) == 0 {
		return nil, fhir.NewTooFewValuesError(
			"Expected at least one MedicationRequest.", "Bundle.entry.resource.ofType(MedicationRequest)")
	}
	first := medicationRequests[0]

	effectiveTime, err := documentEffectiveTime(first)
	if err != nil {
		return nil, err
	}
	document := hl7v3.NewParentPrescription(uuid.NewString(), effectiveTime)

	patient, err := fhir.PatientOf(bundle)
	if err != nil {
		return nil, err
	}
	document.RecordTarget, err = convertRecordTarget(bundle, patient)
	if err != nil {
		return nil, err
	}

	prescription, err := ConvertBundleToPrescription(bundle)
	if err != nil {
		return nil, err
	}
	document.PertinentInformation1 = hl7v3.NewParentPrescriptionPertinentInformation1(prescription)

	var components []hl7v3.CareRecordElementCategoryComponent
	for _, information := range prescription.PertinentInformation2 {
		components = append(components, hl7v3.NewCareRecordElementCategoryComponent(information.PertinentLineItem.ID))
	}
	document.PertinentInformation2 = hl7v3.NewParentPrescriptionPertinentInformation2(
		hl7v3.NewCareRecordElementCategory(components))

	return document, nil
}

func documentEffectiveTime(medicationRequest *fhir.MedicationRequest) (hl7v3.Timestamp, error) {
	if medicationRequest.AuthoredOn == "" {
		return translate.Now(), nil
	}
	return translate.ConvertISODateTimeToHL7(medicationRequest.AuthoredOn)
}

func convertRecordTarget(bundle *fhir.Bundle, patient *fhir.Patient) (*hl7v3.RecordTarget, error) {
	nhsNumber, err := fhir.IdentifierValueForSystem(patient.Identifier, fhir.SystemNHSNumber, "Patient.identifier")
	if err != nil {
		return nil, err
	}
	hl7Patient := hl7v3.NewPatient(nhsNumber)

	for _, address := range patient.Address {
		converted, err := ConvertAddress(address, "Patient.address")
		if err != nil {
			return nil, err
		}
		hl7Patient.Addr = append(hl7Patient.Addr, converted)
	}
	for _, telecom := range patient.Telecom {
		converted, err := ConvertTelecom(telecom, "Patient.telecom")
		if err != nil {
			return nil, err
		}
		hl7Patient.Telecom = append(hl7Patient.Telecom, converted)
	}

	person := hl7v3.NewPatientPerson()
	for _, name := range patient.Name {
		converted, err := ConvertName(name, "Patient.name")
		if err != nil {
			return nil, err
		}
		person.Name = append(person.Name, *converted)
	}
	if patient.Gender != "" {
		gender, err := ConvertGender(patient.Gender, "Patient.gender")
		if err != nil {
			return nil, err
		}
		person.AdministrativeGenderCode = &gender
	}
	if patient.BirthDate != "" {
		birthTime, err := translate.ConvertISODateToHL7(patient.BirthDate)
		if err != nil {
			return nil, fhir.NewInvalidValueError(err.Error(), "Patient.birthDate")
		}
		person.BirthTime = &birthTime
	}
	if provider := generalPractitionerProvider(bundle, patient); provider != nil {
		person.PlayedProviderPatient = provider
	}
	hl7Patient.PatientPerson = person

	return hl7v3.NewRecordTarget(hl7Patient), nil
}

func generalPractitionerProvider(bundle *fhir.Bundle, patient *fhir.Patient) *hl7v3.ProviderPatient {
	if len(patient.GeneralPractitioner) == 0 {
		return nil
	}
	reference := patient.GeneralPractitioner[0]
	odsCode := ""
	if reference.Identifier != nil {
		odsCode = reference.Identifier.Value
	} else if organization, ok := fhir.ResolveReference(bundle, &reference).(*fhir.Organization); ok {
		odsCode = fhir.IdentifierValueForSystemOrEmpty(organization.Identifier, fhir.SystemODSOrganizationCode)
	}
	if odsCode == "" {
		return nil
	}
	return &hl7v3.ProviderPatient{
		ClassCode: "PAT",
		SubjectOf: &hl7v3.PatientSubjectOf{
			TypeCode: "SBJ",
			PatientCareProvision: &hl7v3.PatientCareProvision{
				ClassCode: "PCPR",
				MoodCode:  "EVN",
				Code:      hl7v3.Code{CodeSystem: "2.16.840.1.113883.2.1.3.2.4.17.37", Code: "1"},
				ResponsibleParty: &hl7v3.CareProvisionResponsibleParty{
					TypeCode: "RESP",
					HealthCareProvider: &hl7v3.HealthCareProvider{
						ClassCode: "PROV",
						ID:        hl7v3.NewODSOrganizationIdentifier(odsCode),
					},
				},
			},
		},
	}
}

// ConvertBundleToPrescription builds the order-level prescription act.
func ConvertBundleToPrescription(bundle *fhir.Bundle) (*hl7v3.Prescription, error) {
	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) == 0 {
		return nil, fhir.NewTooFewValuesError(
			"Expected at least one MedicationRequest.", "Bundle.entry.resource.ofType(MedicationRequest)")
	}
	first := medicationRequests[0]

	shortFormID, longFormID, err := translate.GroupIdentifierParts(first.GroupIdentifier)
	if err != nil {
		return nil, err
	}
	prescription := hl7v3.NewPrescription(longFormID, shortFormID)

	if first.DispenseRequest != nil && first.DispenseRequest.Performer != nil {
		prescription.Performer, err = convertPerformer(first.DispenseRequest.Performer)
		if err != nil {
			return nil, err
		}
	}

	withSignature := !isCancellationMessage(bundle)
	prescription.Author, err = ConvertAuthor(bundle, first, withSignature)
	if err != nil {
		return nil, err
	}
	prescription.ResponsibleParty, err = ConvertResponsibleParty(bundle, first)
	if err != nil {
		return nil, err
	}

	treatmentType, err := convertCourseOfTherapyType(first)
	if err != nil {
		return nil, err
	}
	prescription.PertinentInformation5 = hl7v3.NewPrescriptionPertinentInformation5(treatmentType)

	if treatmentType == TreatmentTypeRepeatDispensing {
		if err := setRepeatDispensingFields(prescription, first); err != nil {
			return nil, err
		}
	}

	sitePreference, err := dispensingSitePreference(first)
	if err != nil {
		return nil, err
	}
	prescription.PertinentInformation1 = hl7v3.NewPrescriptionPertinentInformation1(sitePreference)

	communicationRequests := fhir.ResourcesOfType[*fhir.CommunicationRequest](bundle)
	prescription.PertinentInformation2, err = convertLineItems(medicationRequests, communicationRequests)
	if err != nil {
		return nil, err
	}

	prescription.PertinentInformation8 = hl7v3.NewPrescriptionPertinentInformation8(false)

	prescriptionType, err := prescriptionTypeCode(first)
	if err != nil {
		return nil, err
	}
	prescription.PertinentInformation4 = hl7v3.NewPrescriptionPertinentInformation4(prescriptionType)

	return prescription, nil
}

func isCancellationMessage(bundle *fhir.Bundle) bool {
	header, err := fhir.MessageHeaderOf(bundle)
	if err != nil {
		return false
	}
	return header.EventCoding.Code == "prescription-order-update"
}

func convertPerformer(performer *fhir.Reference) (*hl7v3.Performer, error) {
	if performer.Identifier == nil {
		return nil, fhir.NewTooFewValuesError(
			"Expected an ODS code identifier on the nominated performer.", "MedicationRequest.dispenseRequest.performer")
	}
	organization := hl7v3.NewOrganization(performer.Identifier.Value, "")
	return hl7v3.NewPerformer(hl7v3.NewAgentOrganization(organization)), nil
}

func convertCourseOfTherapyType(medicationRequest *fhir.MedicationRequest) (string, error) {
	coding := fhir.CodingForSystem(medicationRequest.CourseOfTherapyType,
		"http://terminology.hl7.org/CodeSystem/medicationrequest-course-of-therapy")
	if coding == nil {
		coding = fhir.CodingForSystem(medicationRequest.CourseOfTherapyType,
			"https://fhir.nhs.uk/CodeSystem/medicationrequest-course-of-therapy")
	}
	if coding == nil {
		return "", fhir.NewTooFewValuesError(
			"Required field courseOfTherapyType is missing.", "MedicationRequest.courseOfTherapyType")
	}
	switch coding.Code {
	case "acute":
		return TreatmentTypeAcute, nil
	case "continuous":
		return TreatmentTypeContinuous, nil
	case "continuous-repeat-dispensing":
		return TreatmentTypeRepeatDispensing, nil
	default:
		return "", fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled courseOfTherapyType %q.", coding.Code), "MedicationRequest.courseOfTherapyType")
	}
}

func setRepeatDispensingFields(prescription *hl7v3.Prescription, medicationRequest *fhir.MedicationRequest) error {
	dispenseRequest := medicationRequest.DispenseRequest
	if dispenseRequest == nil {
		return fhir.NewTooFewValuesError(
			"Repeat dispensing prescriptions require a dispenseRequest.", "MedicationRequest.dispenseRequest")
	}
	if repeats := dispenseRequest.NumberOfRepeatsAllowed.String(); repeats != "" {
		prescription.RepeatNumber = &hl7v3.Interval{
			Low:  &hl7v3.IntervalBound{Value: "1"},
			High: &hl7v3.IntervalBound{Value: repeats},
		}
	}

	var validityPeriod, expectedUseTime *hl7v3.Interval
	if period := dispenseRequest.ValidityPeriod; period != nil {
		interval := &hl7v3.Interval{}
		if period.Start != "" {
			start, err := translate.ConvertISODateToHL7(period.Start)
			if err != nil {
				return fhir.NewInvalidValueError(err.Error(), "MedicationRequest.dispenseRequest.validityPeriod.start")
			}
			interval.Low = &hl7v3.IntervalBound{Value: start.Value}
		}
		if period.End != "" {
			end, err := translate.ConvertISODateToHL7(period.End)
			if err != nil {
				return fhir.NewInvalidValueError(err.Error(), "MedicationRequest.dispenseRequest.validityPeriod.end")
			}
			interval.High = &hl7v3.IntervalBound{Value: end.Value}
		}
		validityPeriod = interval
	}
	if duration := dispenseRequest.ExpectedSupplyDuration; duration != nil {
		if duration.Code != "d" {
			return fhir.NewInvalidValueError(
				"Expected supply duration must be specified in days.",
				"MedicationRequest.dispenseRequest.expectedSupplyDuration")
		}
		expectedUseTime = &hl7v3.Interval{
			High: &hl7v3.IntervalBound{Value: translate.NumericValueAsString(duration.Value)},
		}
	}
	if validityPeriod != nil || expectedUseTime != nil {
		prescription.Component1 = hl7v3.NewPrescriptionComponent1(validityPeriod, expectedUseTime)
	}

	if review := fhir.ExtensionForURLOrNil(medicationRequest.Extension, translate.ExtensionMedicationRepeatInformation); review != nil {
		if expiry := fhir.ExtensionForURLOrNil(review.Extension, "authorisationExpiryDate"); expiry != nil && expiry.ValueDateTime != "" {
			reviewDate, err := translate.ConvertISODateToHL7(expiry.ValueDateTime)
			if err != nil {
				return fhir.NewInvalidValueError(err.Error(),
					"MedicationRequest.extension(\"authorisationExpiryDate\")")
			}
			prescription.PertinentInformation7 = hl7v3.NewPrescriptionPertinentInformation7(reviewDate)
		}
	}
	return nil
}

func dispensingSitePreference(medicationRequest *fhir.MedicationRequest) (string, error) {
	if medicationRequest.DispenseRequest == nil {
		return "", fhir.NewTooFewValuesError(
			"Required field dispenseRequest is missing.", "MedicationRequest.dispenseRequest")
	}
	extension, err := fhir.ExtensionForURL(medicationRequest.DispenseRequest.Extension,
		translate.ExtensionPerformerSiteType, "MedicationRequest.dispenseRequest.extension")
	if err != nil {
		return "", err
	}
	if extension.ValueCoding == nil {
		return "", fhir.NewTooFewValuesError(
			"PerformerSiteType extension is missing its valueCoding.", "MedicationRequest.dispenseRequest.extension")
	}
	return extension.ValueCoding.Code, nil
}

func prescriptionTypeCode(medicationRequest *fhir.MedicationRequest) (string, error) {
	extension, err := fhir.ExtensionForURL(medicationRequest.Extension,
		translate.ExtensionPrescriptionType, "MedicationRequest.extension")
	if err != nil {
		return "", err
	}
	if extension.ValueCoding == nil {
		return "", fhir.NewTooFewValuesError(
			"PrescriptionType extension is missing its valueCoding.", "MedicationRequest.extension")
	}
	return extension.ValueCoding.Code, nil
}

func convertLineItems(medicationRequests []*fhir.MedicationRequest, communicationRequests []*fhir.CommunicationRequest) ([]hl7v3.PrescriptionPertinentInformation2, error) {
	var information []hl7v3.PrescriptionPertinentInformation2
	for i, medicationRequest := range medicationRequests {
		patientInfo := ""
		if i == 0 && len(communicationRequests) > 0 {
			patientInfo = patientInfoString(communicationRequests[0])
		}
		lineItem, err := ConvertMedicationRequestToLineItem(medicationRequest, patientInfo)
		if err != nil {
			return nil, err
		}
		information = append(information, hl7v3.NewPrescriptionPertinentInformation2(lineItem))
	}
	return information, nil
}

// patientInfoString wraps every contentString payload in patientInfo markup,
// concatenated in payload order.
func patientInfoString(communicationRequest *fhir.CommunicationRequest) string {
	var builder strings.Builder
	for _, payload := range communicationRequest.Payload {
		if payload.ContentString != "" {
			builder.WriteString("<patientInfo>")
			builder.WriteString(payload.ContentString)
			builder.WriteString("</patientInfo>")
		}
	}
	return builder.String()
}

// ConvertMedicationRequestToLineItem builds one prescription line item. The
// patientInfo markup, when present, is prepended to the line item's
// additional instructions.
func ConvertMedicationRequestToLineItem(medicationRequest *fhir.MedicationRequest, patientInfo string) (*hl7v3.LineItem, error) {
	itemID, err := fhir.IdentifierValueForSystem(
		medicationRequest.Identifier, fhir.SystemPrescriptionOrderItem, "MedicationRequest.identifier")
	if err != nil {
		return nil, err
	}
	lineItem := hl7v3.NewLineItem(itemID)

	medication := fhir.CodingForSystem(medicationRequest.MedicationCodeableConcept, fhir.SystemSNOMED)
	if medication == nil {
		return nil, fhir.NewTooFewValuesError(
			"Expected a SNOMED medication coding.", "MedicationRequest.medicationCodeableConcept")
	}
	lineItem.Product = hl7v3.NewProduct(hl7v3.NewSnomedCode(medication.Code, medication.Display))

	if medicationRequest.DispenseRequest == nil || medicationRequest.DispenseRequest.Quantity == nil {
		return nil, fhir.NewTooFewValuesError(
			"Required field quantity is missing.", "MedicationRequest.dispenseRequest.quantity")
	}
	quantity := medicationRequest.DispenseRequest.Quantity
	lineItem.Component = hl7v3.NewLineItemComponent(hl7v3.NewQuantityInAlternativeUnits(
		translate.NumericValueAsString(quantity.Value), quantity.Code, quantity.Unit))

	if endorsement := fhir.ExtensionForURLOrNil(medicationRequest.Extension, translate.ExtensionPrescriptionEndorsement); endorsement != nil {
		coding := fhir.CodingForSystem(endorsement.ValueCodeableConcept,
			"https://fhir.nhs.uk/CodeSystem/medicationrequest-endorsement")
		if coding == nil {
			return nil, fhir.NewTooFewValuesError(
				"PrescriptionEndorsement extension is missing its coding.", "MedicationRequest.extension")
		}
		lineItem.PertinentInformation3 = hl7v3.NewLineItemPertinentInformation3(coding.Code)
	}

	if additionalInstructions := additionalInstructionsText(medicationRequest, patientInfo); additionalInstructions != "" {
		lineItem.PertinentInformation1 = hl7v3.NewLineItemPertinentInformation1(additionalInstructions)
	}

	dosageText, err := dosage.Combine(medicationRequest.DosageInstruction)
	if err != nil {
		return nil, fhir.NewInvalidValueError(err.Error(), "MedicationRequest.dosageInstruction")
	}
	lineItem.PertinentInformation2 = hl7v3.NewLineItemPertinentInformation2(dosageText)

	return lineItem, nil
}

func additionalInstructionsText(medicationRequest *fhir.MedicationRequest, patientInfo string) string {
	var notes []string
	for _, note := range medicationRequest.Note {
		if note.Text != "" {
			notes = append(notes, note.Text)
		}
	}
	controlledDrugWords := ""
	if controlledDrug := fhir.ExtensionForURLOrNil(medicationRequest.Extension, translate.ExtensionControlledDrug); controlledDrug != nil {
		if words := fhir.ExtensionForURLOrNil(controlledDrug.Extension, "quantityWords"); words != nil {
			controlledDrugWords = words.ValueString
		}
	}

	var builder strings.Builder
	builder.WriteString(patientInfo)
	if controlledDrugWords != "" {
		builder.WriteString("CD: " + controlledDrugWords)
		if len(notes) > 0 {
			builder.WriteString("\n")
		}
	}
	builder.WriteString(strings.Join(notes, "\n"))
	return builder.String()
}
