package response

import (
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
)

func TestParseAdditionalInstructions(t *testing.T) {
	parsed := ParseAdditionalInstructions(
		"<medication>Atorvastatin 20mg tablets</medication>" +
			"<patientInfo>Due for review</patientInfo>" +
			"<medication>Salbutamol 100micrograms/dose inhaler</medication>" +
			"CD: twenty eight\nTake with food")

	if len(parsed.Medication) != 2 || parsed.Medication[1] != "Salbutamol 100micrograms/dose inhaler" {
		t.Errorf("medication = %+v", parsed.Medication)
	}
	if len(parsed.PatientInfo) != 1 || parsed.PatientInfo[0] != "Due for review" {
		t.Errorf("patientInfo = %+v", parsed.PatientInfo)
	}
	if parsed.ControlledDrugWords != "twenty eight" {
		t.Errorf("controlled drug words = %q", parsed.ControlledDrugWords)
	}
	if parsed.AdditionalInstructions != "Take with food" {
		t.Errorf("additional instructions = %q", parsed.AdditionalInstructions)
	}
}

func TestParseAdditionalInstructions_PlainText(t *testing.T) {
	parsed := ParseAdditionalInstructions("Take with food")
	if len(parsed.Medication) != 0 || len(parsed.PatientInfo) != 0 || parsed.ControlledDrugWords != "" {
		t.Errorf("parsed = %+v", parsed)
	}
	if parsed.AdditionalInstructions != "Take with food" {
		t.Errorf("additional instructions = %q", parsed.AdditionalInstructions)
	}
}

func TestParseAdditionalInstructions_ControlledDrugOnly(t *testing.T) {
	parsed := ParseAdditionalInstructions("CD: twenty eight")
	if parsed.ControlledDrugWords != "twenty eight" || parsed.AdditionalInstructions != "" {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestTranslateAdditionalInstructions(t *testing.T) {
	patientIdentifier := fhir.NewIdentifier(fhir.SystemNHSNumber, "9990548609")
	organizationIdentifier := fhir.NewIdentifier(fhir.SystemODSOrganizationCode, "A83008")

	translated := TranslateAdditionalInstructions(
		"patient-id", patientIdentifier, organizationIdentifier,
		[]string{"Atorvastatin 20mg tablets"}, []string{"Due for review"})

	communicationRequest := translated.CommunicationRequest
	if communicationRequest.Status != "unknown" {
		t.Errorf("status = %q", communicationRequest.Status)
	}
	if communicationRequest.Subject.Reference != "urn:uuid:patient-id" {
		t.Errorf("subject = %q", communicationRequest.Subject.Reference)
	}
	if communicationRequest.Requester.Identifier.Value != "A83008" {
		t.Errorf("requester = %+v", communicationRequest.Requester)
	}
	if communicationRequest.Recipient[0].Identifier.Value != "9990548609" {
		t.Errorf("recipient = %+v", communicationRequest.Recipient)
	}

	list := translated.List
	if list == nil {
		t.Fatal("list missing")
	}
	if list.Status != "current" || list.Mode != "snapshot" {
		t.Errorf("list = %+v", list)
	}
	if list.Entry[0].Item.Display != "Atorvastatin 20mg tablets" {
		t.Errorf("list entry = %+v", list.Entry)
	}

	// Payload: the patientInfo text plus a reference to the list.
	if len(communicationRequest.Payload) != 2 {
		t.Fatalf("payload = %+v", communicationRequest.Payload)
	}
	if communicationRequest.Payload[0].ContentString != "Due for review" {
		t.Errorf("payload[0] = %+v", communicationRequest.Payload[0])
	}
	if communicationRequest.Payload[1].ContentReference.Reference != "urn:uuid:"+list.ID {
		t.Errorf("payload[1] = %+v", communicationRequest.Payload[1])
	}
}

func TestTranslateAdditionalInstructions_NoMedicationNoList(t *testing.T) {
	translated := TranslateAdditionalInstructions(
		"patient-id",
		fhir.NewIdentifier(fhir.SystemNHSNumber, "9990548609"),
		fhir.NewIdentifier(fhir.SystemODSOrganizationCode, "A83008"),
		nil, []string{"Due for review"})
	if translated.List != nil {
		t.Errorf("list = %+v, want none", translated.List)
	}
	if len(translated.Resources()) != 1 {
		t.Errorf("resources = %d", len(translated.Resources()))
	}
}
