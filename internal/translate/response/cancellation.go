package response

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const systemMedicationRequestStatusHistory = "https://fhir.nhs.uk/CodeSystem/medicationrequest-status-history"

// snomedMedicinalProduct is the generic medication concept used when the
// cancellation response names no specific product.
const snomedMedicinalProduct = "763158003"

// PrescriptionStatusInformation is the decoded cancellation outcome.
type PrescriptionStatusInformation struct {
	StatusCode    string
	StatusDisplay string
	Status        string
}

// ExtractStatusCode decodes the Spine cancellation response code into its
// FHIR status history coding and the MedicationRequest status it implies.
// Codes describing a failed or unresolvable cancellation map to status
// "unknown"; the prescription's state is still reported.
func ExtractStatusCode(cancellationResponse *hl7v3.CancellationResponse) (PrescriptionStatusInformation, error) {
	information := cancellationResponse.PertinentInformation3
	if information == nil || information.PertinentResponse == nil {
		return PrescriptionStatusInformation{}, fhir.NewTooFewValuesError(
			"Cancellation response is missing its response code.", "CancellationResponse.pertinentInformation3")
	}
	value := information.PertinentResponse.Value
	decoded, err := cancellationStatusInformation(value.Code, value.DisplayName)
	if err != nil {
		return PrescriptionStatusInformation{}, err
	}
	return decoded, nil
}

func cancellationStatusInformation(code, display string) (PrescriptionStatusInformation, error) {
	switch code {
	case "0001":
		return PrescriptionStatusInformation{
			StatusCode: "R-0001", StatusDisplay: "Prescription/item was cancelled", Status: "cancelled",
		}, nil
	case "0002":
		return PrescriptionStatusInformation{
			StatusCode: "R-0002", StatusDisplay: "Prescription/item was not cancelled – With dispenser", Status: "active",
		}, nil
	case "0003":
		return PrescriptionStatusInformation{
			StatusCode: "R-0003", StatusDisplay: "Prescription item was not cancelled – With dispenser active", Status: "active",
		}, nil
	case "0004":
		return PrescriptionStatusInformation{
			StatusCode: "R-0004", StatusDisplay: "Prescription/item was not cancelled – Dispensed to Patient", Status: "completed",
		}, nil
	case "0005":
		return PrescriptionStatusInformation{
			StatusCode: "R-0005", StatusDisplay: "Prescription item had expired", Status: "stopped",
		}, nil
	case "0006":
		return PrescriptionStatusInformation{
			StatusCode: "R-0006", StatusDisplay: "Prescription/item had already been cancelled", Status: "cancelled",
		}, nil
	case "0007":
		return PrescriptionStatusInformation{
			StatusCode: "R-0007", StatusDisplay: "Prescription/item cancellation requested by another prescriber", Status: "unknown",
		}, nil
	case "0008":
		return PrescriptionStatusInformation{
			StatusCode: "R-0008", StatusDisplay: "Prescription/item not found", Status: "unknown",
		}, nil
	case "0009":
		return PrescriptionStatusInformation{
			StatusCode: "R-0009", StatusDisplay: "Cancellation functionality disabled in Spine", Status: "active",
		}, nil
	case "0010":
		return PrescriptionStatusInformation{
			StatusCode: "R-0010", StatusDisplay: "Prescription/item was not cancelled. Prescription has been not dispensed", Status: "active",
		}, nil
	case "5000":
		// Spine appends the failure detail after a hyphen in the display text.
		detail := ""
		if parts := strings.SplitN(display, "-", 2); len(parts) == 2 {
			detail = parts[1]
		}
		return PrescriptionStatusInformation{
			StatusCode: "R-5000", StatusDisplay: "Unable to process message." + detail, Status: "unknown",
		}, nil
	case "5888":
		return PrescriptionStatusInformation{
			StatusCode: "R-5888", StatusDisplay: "Invalid message", Status: "unknown",
		}, nil
	default:
		return PrescriptionStatusInformation{}, fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled cancellation response code %q.", code),
			"CancellationResponse.pertinentInformation3.pertinentResponse.value")
	}
}

// TranslateCancellationResponse converts Spine's cancellation response into
// a message bundle describing the prescription's new state. Failed
// cancellations are reported the same way: the status history coding carries
// the reason.
func TranslateCancellationResponse(cancellationResponse *hl7v3.CancellationResponse) (*fhir.Bundle, error) {
	information, err := ExtractStatusCode(cancellationResponse)
	if err != nil {
		return nil, err
	}
	return createCancellationBundle(cancellationResponse, information)
}

func createCancellationBundle(cancellationResponse *hl7v3.CancellationResponse, information PrescriptionStatusInformation) (*fhir.Bundle, error) {
	timestamp, err := translate.ConvertHL7DateTimeToISO(cancellationResponse.EffectiveTime)
	if err != nil {
		return nil, err
	}
	bundle := &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Identifier: &fhir.Identifier{
			System: fhir.SystemUUID,
			Value:  translate.LowercaseUUID(cancellationResponse.ID.Root),
		},
		Type:      "message",
		Timestamp: timestamp,
	}

	resources, err := createCancellationBundleResources(cancellationResponse, information)
	if err != nil {
		return nil, err
	}
	for _, resource := range resources {
		bundle.Entry = append(bundle.Entry, fhir.ConvertResourceToBundleEntry(resource))
	}
	return bundle, nil
}

func createCancellationBundleResources(cancellationResponse *hl7v3.CancellationResponse, information PrescriptionStatusInformation) ([]fhir.Resource, error) {
	if cancellationResponse.RecordTarget == nil || cancellationResponse.RecordTarget.Patient == nil {
		return nil, fhir.NewTooFewValuesError(
			"Cancellation response is missing its record target.", "CancellationResponse.recordTarget")
	}
	if cancellationResponse.Author == nil || cancellationResponse.Author.AgentPerson == nil {
		return nil, fhir.NewTooFewValuesError(
			"Cancellation response is missing its author.", "CancellationResponse.author")
	}

	var resources []fhir.Resource

	patient, err := ConvertPatient(cancellationResponse.RecordTarget.Patient)
	if err != nil {
		return nil, err
	}
	resources = append(resources, patient)

	// The author is whoever asked for the cancellation, which is not
	// necessarily the author of the original prescription.
	cancelRequesterAgentPerson := cancellationResponse.Author.AgentPerson
	cancelRequester := ConvertAgentPerson(cancelRequesterAgentPerson)
	resources = append(resources, cancelRequester.Resources()...)

	// The responsible party is the original prescription's author, present
	// only when that differs from the cancel requester.
	originalAuthor := cancelRequester
	if responsibleParty := cancellationResponse.ResponsibleParty; responsibleParty != nil && responsibleParty.AgentPerson != nil {
		if roleProfileIDIdentical(responsibleParty.AgentPerson, cancelRequesterAgentPerson) {
			cancelRequester.AddDetails(responsibleParty.AgentPerson)
		} else {
			originalAuthor = ConvertAgentPerson(responsibleParty.AgentPerson)
			resources = append(resources, originalAuthor.Resources()...)
		}
	}

	medicationRequest, err := createCancellationMedicationRequest(
		cancellationResponse, information,
		cancelRequester.PractitionerRole.ID, patient.ID, originalAuthor.PractitionerRole.ID)
	if err != nil {
		return nil, err
	}
	resources = append(resources, medicationRequest)

	destinationODSCode := ""
	if represented := cancelRequesterAgentPerson.RepresentedOrganization; represented != nil {
		destinationODSCode = represented.ID.Extension
	}
	cancelRequestID := ""
	if information4 := cancellationResponse.PertinentInformation4; information4 != nil &&
		information4.PertinentCancellationRequestRef != nil {
		cancelRequestID = information4.PertinentCancellationRequestRef.ID.Root
	}
	header := CreateMessageHeader(
		cancellationResponse.ID.Root,
		EventCodingPrescriptionOrderResponse,
		[]string{patient.ID, medicationRequest.ID},
		destinationODSCode,
		cancelRequestID,
	)
	resources = append([]fhir.Resource{header}, resources...)

	if performer := cancellationResponse.Performer; performer != nil && performer.AgentPerson != nil {
		translatedPerformer := cancelRequester
		switch {
		case roleProfileIDIdentical(performer.AgentPerson, cancelRequesterAgentPerson):
			cancelRequester.AddDetails(performer.AgentPerson)
		case roleProfileIDIdentical(performer.AgentPerson, cancellationResponseResponsiblePartyAgentPerson(cancellationResponse)):
			originalAuthor.AddDetails(performer.AgentPerson)
			translatedPerformer = originalAuthor
		default:
			translatedPerformer = ConvertAgentPerson(performer.AgentPerson)
			resources = append(resources, translatedPerformer.Resources()...)
		}
		medicationRequest.DispenseRequest = createDispenserInfoReference(
			translatedPerformer.PractitionerRole.ID, performer.AgentPerson.RepresentedOrganization)
	}

	return resources, nil
}

func cancellationResponseResponsiblePartyAgentPerson(cancellationResponse *hl7v3.CancellationResponse) *hl7v3.AgentPerson {
	if responsibleParty := cancellationResponse.ResponsibleParty; responsibleParty != nil {
		return responsibleParty.AgentPerson
	}
	return nil
}

func roleProfileIDIdentical(a, b *hl7v3.AgentPerson) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID.Extension == b.ID.Extension
}

func createCancellationMedicationRequest(
	cancellationResponse *hl7v3.CancellationResponse,
	information PrescriptionStatusInformation,
	cancelRequesterRoleID, patientID, originalAuthorRoleID string,
) (*fhir.MedicationRequest, error) {
	information1 := cancellationResponse.PertinentInformation1
	if information1 == nil || information1.PertinentPrescriptionID == nil {
		return nil, fhir.NewTooFewValuesError(
			"Cancellation response is missing its prescription id.", "CancellationResponse.pertinentInformation1")
	}
	information2 := cancellationResponse.PertinentInformation2
	if information2 == nil || information2.PertinentOriginalItemRef == nil {
		return nil, fhir.NewTooFewValuesError(
			"Cancellation response is missing its line item reference.", "CancellationResponse.pertinentInformation2")
	}

	authoredOn, err := translate.ConvertHL7DateTimeToISO(cancellationResponse.EffectiveTime)
	if err != nil {
		return nil, err
	}

	return &fhir.MedicationRequest{
		Base: fhir.Base{ResourceType: "MedicationRequest", ID: uuid.NewString()},
		Extension: []fhir.Extension{
			{
				URL: translate.ExtensionPrescriptionStatusHistory,
				Extension: []fhir.Extension{{
					URL: "status",
					ValueCoding: &fhir.Coding{
						System:  systemMedicationRequestStatusHistory,
						Code:    information.StatusCode,
						Display: information.StatusDisplay,
					},
				}},
			},
			{
				URL:            translate.ExtensionResponsiblePractitioner,
				ValueReference: fhir.NewReference(cancelRequesterRoleID),
			},
		},
		Identifier: []fhir.Identifier{fhir.NewIdentifier(
			fhir.SystemPrescriptionOrderItem,
			translate.LowercaseUUID(information2.PertinentOriginalItemRef.ID.Root),
		)},
		Status: information.Status,
		Intent: "order",
		MedicationCodeableConcept: fhir.NewCodeableConcept(
			fhir.SystemSNOMED, snomedMedicinalProduct, "Medicinal product"),
		Subject:    fhir.NewReference(patientID),
		AuthoredOn: authoredOn,
		Requester:  fhir.NewReference(originalAuthorRoleID),
		GroupIdentifier: &fhir.GroupIdentifier{
			System: fhir.SystemPrescriptionOrderNumber,
			Value:  information1.PertinentPrescriptionID.Value.Extension,
		},
	}, nil
}

// createDispenserInfoReference records which dispenser the prescription was
// with when the cancellation was attempted.
func createDispenserInfoReference(performerRoleID string, represented *hl7v3.Organization) *fhir.DispenseRequest {
	performer := &fhir.Reference{
		Extension: []fhir.Extension{{
			URL:            translate.ExtensionDispensingPerformer,
			ValueReference: fhir.NewReference(performerRoleID),
		}},
	}
	if represented != nil {
		performer.Identifier = &fhir.Identifier{
			System: fhir.SystemODSOrganizationCode,
			Value:  represented.ID.Extension,
		}
		if represented.Name != nil {
			performer.Display = represented.Name.Value
		}
	}
	return &fhir.DispenseRequest{Performer: performer}
}
