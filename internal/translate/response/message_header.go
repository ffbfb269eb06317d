package response

import (
	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/translate"
)

const (
	systemMessageEvent = "https://fhir.nhs.uk/CodeSystem/message-event"

	extensionSpineMessageID = "https://fhir.nhs.uk/StructureDefinition/Extension-Spine-MessageHeader-messageId"

	spineODSCode    = "X2601"
	spineSenderName = "NHS Digital Spine"
	spineEndpoint   = "https://api.service.nhs.uk/electronic-prescriptions/$process-message"
)

// EventCodingPrescriptionOrder identifies a released prescription-order
// message bundle.
var EventCodingPrescriptionOrder = fhir.Coding{
	System:  systemMessageEvent,
	Code:    "prescription-order",
	Display: "Prescription Order",
}

// EventCodingPrescriptionOrderResponse identifies a cancellation response
// message bundle.
var EventCodingPrescriptionOrderResponse = fhir.Coding{
	System:  systemMessageEvent,
	Code:    "prescription-order-response",
	Display: "Prescription Order Response",
}

// CreateMessageHeader builds the MessageHeader that opens an inbound message
// bundle. The Spine message id travels in a messageId extension; the
// dispensing site, when known, is recorded as the destination; requestID,
// when set, links the header back to the request it answers.
func CreateMessageHeader(messageID string, eventCoding fhir.Coding, focusIDs []string, destinationODSCode, requestID string) *fhir.MessageHeader {
	header := &fhir.MessageHeader{
		Base: fhir.Base{ResourceType: "MessageHeader", ID: uuid.NewString()},
		Extension: []fhir.Extension{{
			URL: extensionSpineMessageID,
			ValueIdentifier: &fhir.Identifier{
				System: fhir.SystemUUID,
				Value:  translate.LowercaseUUID(messageID),
			},
		}},
		EventCoding: eventCoding,
		Sender: &fhir.Reference{
			Identifier: &fhir.Identifier{System: fhir.SystemODSOrganizationCode, Value: spineODSCode},
			Display:    spineSenderName,
		},
		Source: &fhir.MessageSource{Name: "NHS Spine", Endpoint: spineEndpoint},
	}
	if destinationODSCode != "" {
		header.Destination = []fhir.MessageDestination{{
			Endpoint: "urn:nhs-uk:addressing:ods:" + destinationODSCode,
			Receiver: &fhir.Reference{
				Identifier: &fhir.Identifier{System: fhir.SystemODSOrganizationCode, Value: destinationODSCode},
			},
		}}
	}
	if requestID != "" {
		header.Response = &fhir.MessageResponse{
			Identifier: translate.LowercaseUUID(requestID),
			Code:       "ok",
		}
	}
	for _, focusID := range focusIDs {
		header.Focus = append(header.Focus, *fhir.NewReference(focusID))
	}
	return header
}
