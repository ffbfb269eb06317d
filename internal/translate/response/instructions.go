package response

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
)

var (
	medicationTagMatcher  = regexp.MustCompile(`^<medication>(.*?)</medication>`)
	patientInfoTagMatcher = regexp.MustCompile(`^<patientInfo>(.*?)</patientInfo>`)
)

const controlledDrugPrefix = "CD: "

// ParsedInstructions is the decomposition of a line item's additional
// instructions: leading medication and patientInfo markup, then an optional
// controlled drug quantity-in-words line, then the free-text instructions.
type ParsedInstructions struct {
	Medication             []string
	PatientInfo            []string
	ControlledDrugWords    string
	AdditionalInstructions string
}

// ParseAdditionalInstructions unpacks the markup the request direction packs
// into pertinentAdditionalInstructions.
func ParseAdditionalInstructions(text string) ParsedInstructions {
	parsed := ParsedInstructions{}
	for {
		if match := medicationTagMatcher.FindStringSubmatch(text); match != nil {
			parsed.Medication = append(parsed.Medication, match[1])
			text = text[len(match[0]):]
			continue
		}
		if match := patientInfoTagMatcher.FindStringSubmatch(text); match != nil {
			parsed.PatientInfo = append(parsed.PatientInfo, match[1])
			text = text[len(match[0]):]
			continue
		}
		break
	}

	if strings.HasPrefix(text, controlledDrugPrefix) {
		remainder := text[len(controlledDrugPrefix):]
		if newline := strings.Index(remainder, "\n"); newline > -1 {
			parsed.ControlledDrugWords = remainder[:newline]
			parsed.AdditionalInstructions = remainder[newline+1:]
		} else {
			parsed.ControlledDrugWords = remainder
		}
		return parsed
	}
	parsed.AdditionalInstructions = text
	return parsed
}

// TranslatedInstructions is the patient-facing resource pair built from
// parsed additional instructions.
type TranslatedInstructions struct {
	CommunicationRequest *fhir.CommunicationRequest
	List                 *fhir.List
}

// Resources lists the translated resources in bundle entry order.
func (t *TranslatedInstructions) Resources() []fhir.Resource {
	resources := []fhir.Resource{t.CommunicationRequest}
	if t.List != nil {
		resources = append(resources, t.List)
	}
	return resources
}

// TranslateAdditionalInstructions builds a CommunicationRequest carrying the
// patientInfo entries, plus a List of repeat medication names referenced from
// an extra payload entry when any were present.
func TranslateAdditionalInstructions(patientID string, patientIdentifier fhir.Identifier, organizationIdentifier fhir.Identifier, medication, patientInfo []string) *TranslatedInstructions {
	var payload []fhir.CommunicationRequestPayload
	for _, entry := range patientInfo {
		payload = append(payload, fhir.CommunicationRequestPayload{ContentString: entry})
	}
	communicationRequest := &fhir.CommunicationRequest{
		Base:      fhir.Base{ResourceType: "CommunicationRequest", ID: uuid.NewString()},
		Status:    "unknown",
		Subject:   fhir.NewReference(patientID),
		Payload:   payload,
		Requester: &fhir.Reference{Identifier: &organizationIdentifier},
		Recipient: []fhir.Reference{{Identifier: &patientIdentifier}},
	}

	translated := &TranslatedInstructions{CommunicationRequest: communicationRequest}
	if len(medication) > 0 {
		list := &fhir.List{
			Base:   fhir.Base{ResourceType: "List", ID: uuid.NewString()},
			Status: "current",
			Mode:   "snapshot",
		}
		for _, item := range medication {
			list.Entry = append(list.Entry, fhir.ListEntry{Item: fhir.Reference{Display: item}})
		}
		translated.List = list
		communicationRequest.Payload = append(communicationRequest.Payload,
			fhir.CommunicationRequestPayload{ContentReference: fhir.NewReference(list.ID)})
	}
	return translated
}
