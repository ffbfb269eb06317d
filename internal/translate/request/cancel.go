package request

import (
	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const systemStatusReason = "https://fhir.nhs.uk/CodeSystem/medicationrequest-status-reason"

// ConvertBundleToCancellationRequest builds the cancellation document from
// a prescription-order-update message bundle. Cancellation targets a single
// line item; the first MedicationRequest identifies it and carries the
// reason in its statusReason.
func ConvertBundleToCancellationRequest(bundle *fhir.Bundle) (*hl7v3.CancellationRequest, error) {
	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) == 0 {
		return nil, fhir.NewTooFewValuesError(
			"Expected at least one MedicationRequest.", "Bundle.entry.resource.ofType(MedicationRequest)")
	}
	first := medicationRequests[0]

	document := hl7v3.NewCancellationRequest(bundle.ID, translate.Now())

	patient, err := fhir.PatientOf(bundle)
	if err != nil {
		return nil, err
	}
	document.RecordTarget, err = convertRecordTarget(bundle, patient)
	if err != nil {
		return nil, err
	}
	document.Author, err = ConvertAuthor(bundle, first, false)
	if err != nil {
		return nil, err
	}
	document.ResponsibleParty, err = ConvertResponsibleParty(bundle, first)
	if err != nil {
		return nil, err
	}

	shortFormID, longFormID, err := translate.GroupIdentifierParts(first.GroupIdentifier)
	if err != nil {
		return nil, err
	}
	itemID, err := fhir.IdentifierValueForSystem(
		first.Identifier, fhir.SystemPrescriptionOrderItem, "MedicationRequest.identifier")
	if err != nil {
		return nil, err
	}
	reason, err := cancellationReason(first)
	if err != nil {
		return nil, err
	}

	document.PertinentInformation = hl7v3.NewCancellationRequestPertinentInformation(reason.Code, reason.Display)
	document.PertinentInformation1 = hl7v3.NewCancellationRequestPertinentInformation1(shortFormID)
	document.PertinentInformation2 = hl7v3.NewCancellationRequestPertinentInformation2(itemID)
	document.PertinentInformation3 = hl7v3.NewCancellationRequestPertinentInformation3(longFormID)

	return document, nil
}

func cancellationReason(medicationRequest *fhir.MedicationRequest) (*fhir.Coding, error) {
	coding := fhir.CodingForSystem(medicationRequest.StatusReason, systemStatusReason)
	if coding == nil {
		return nil, fhir.NewTooFewValuesError(
			"Required field statusReason is missing.", "MedicationRequest.statusReason")
	}
	return coding, nil
}
