package validate

import (
	"strings"
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/translate"
)

func orderMedicationRequest(itemID string) *fhir.MedicationRequest {
	return &fhir.MedicationRequest{
		Base:   fhir.Base{ResourceType: "MedicationRequest", ID: "mr-" + itemID},
		Status: "active",
		Intent: "order",
		Extension: []fhir.Extension{{
			URL:         translate.ExtensionPrescriptionType,
			ValueCoding: &fhir.Coding{System: "https://fhir.nhs.uk/CodeSystem/prescription-type", Code: "0101"},
		}},
		Identifier:      []fhir.Identifier{fhir.NewIdentifier(fhir.SystemPrescriptionOrderItem, itemID)},
		GroupIdentifier: &fhir.GroupIdentifier{System: fhir.SystemPrescriptionOrderNumber, Value: "A0548B-A99968-451485"},
		AuthoredOn:      "2023-02-06T10:30:00+00:00",
		Subject:         fhir.NewReference("patient-1"),
		Requester:       fhir.NewReference("requester-1"),
		DispenseRequest: &fhir.DispenseRequest{
			Performer: fhir.NewIdentifierReference(
				fhir.NewIdentifier(fhir.SystemODSOrganizationCode, "FH542"), "", "Organization"),
		},
	}
}

func orderBundle(medicationRequests ...*fhir.MedicationRequest) *fhir.Bundle {
	bundle := &fhir.Bundle{ResourceType: "Bundle", Type: "message"}
	for _, medicationRequest := range medicationRequests {
		bundle.Entry = append(bundle.Entry, fhir.ConvertResourceToBundleEntry(medicationRequest))
	}
	return bundle
}

func diagnosticsOf(issues []fhir.OperationOutcomeIssue) []string {
	var diagnostics []string
	for _, issue := range issues {
		diagnostics = append(diagnostics, issue.Diagnostics)
	}
	return diagnostics
}

func assertIssueMentions(t *testing.T, issues []fhir.OperationOutcomeIssue, fragment string) {
	t.Helper()
	for _, issue := range issues {
		if strings.Contains(issue.Diagnostics, fragment) {
			if issue.Severity != "error" {
				t.Errorf("issue %q severity = %q, want error", issue.Diagnostics, issue.Severity)
			}
			return
		}
	}
	t.Errorf("no issue mentioning %q in %v", fragment, diagnosticsOf(issues))
}

func TestVerifyPrescriptionOrderBundle_Valid(t *testing.T) {
	bundle := orderBundle(orderMedicationRequest("item-1"), orderMedicationRequest("item-2"))
	if issues := VerifyPrescriptionOrderBundle(bundle); len(issues) != 0 {
		t.Fatalf("issues = %v, want none", diagnosticsOf(issues))
	}
}

func TestVerifyPrescriptionOrderBundle_NoMedicationRequests(t *testing.T) {
	issues := VerifyPrescriptionOrderBundle(orderBundle())
	if len(issues) != 1 || issues[0].Code != "required" {
		t.Fatalf("issues = %+v, want a single required issue", issues)
	}
}

func TestVerifyPrescriptionOrderBundle_WrongIntent(t *testing.T) {
	medicationRequest := orderMedicationRequest("item-1")
	medicationRequest.Intent = "plan"
	issues := VerifyPrescriptionOrderBundle(orderBundle(medicationRequest))
	assertIssueMentions(t, issues, "MedicationRequest.intent must be one of: 'order'.")
}

func TestVerifyPrescriptionOrderBundle_InactiveStatus(t *testing.T) {
	medicationRequest := orderMedicationRequest("item-1")
	medicationRequest.Status = "completed"
	issues := VerifyPrescriptionOrderBundle(orderBundle(medicationRequest))
	assertIssueMentions(t, issues, "MedicationRequest.status must be one of: 'active'.")
}

func TestVerifyPrescriptionOrderBundle_InconsistentLineItems(t *testing.T) {
	second := orderMedicationRequest("item-2")
	second.GroupIdentifier = &fhir.GroupIdentifier{
		System: fhir.SystemPrescriptionOrderNumber, Value: "9A7E4C-A99968-4C5AAJ",
	}
	second.AuthoredOn = "2023-02-07T09:00:00+00:00"

	issues := VerifyPrescriptionOrderBundle(orderBundle(orderMedicationRequest("item-1"), second))

	assertIssueMentions(t, issues, "same value for MedicationRequest.groupIdentifier")
	assertIssueMentions(t, issues, "same value for MedicationRequest.authoredOn")
}

func TestVerifyPrescriptionOrderBundle_DuplicateItemIdentifiers(t *testing.T) {
	bundle := orderBundle(orderMedicationRequest("item-1"), orderMedicationRequest("item-1"))
	issues := VerifyPrescriptionOrderBundle(bundle)
	assertIssueMentions(t, issues, "different value for identifier")
}

func TestVerifyPrescriptionOrderBundle_RepeatDispensing(t *testing.T) {
	medicationRequest := orderMedicationRequest("item-1")
	medicationRequest.CourseOfTherapyType = fhir.NewCodeableConcept(
		systemCourseOfTherapy, courseOfTherapyRepeatDispensing, "Continuous long term (repeat dispensing)")

	issues := VerifyPrescriptionOrderBundle(orderBundle(medicationRequest))

	assertIssueMentions(t, issues, "MedicationRequest.dispenseRequest.validityPeriod is required.")
	assertIssueMentions(t, issues, "MedicationRequest.dispenseRequest.expectedSupplyDuration is required.")
	assertIssueMentions(t, issues, "MedicationRequest.extension(MedicationRepeatInformation) is required.")

	medicationRequest.DispenseRequest.ValidityPeriod = &fhir.Period{Start: "2023-02-06", End: "2023-08-06"}
	medicationRequest.DispenseRequest.ExpectedSupplyDuration = &fhir.Quantity{Value: "28", Unit: "day"}
	medicationRequest.Extension = append(medicationRequest.Extension, fhir.Extension{
		URL: translate.ExtensionMedicationRepeatInformation,
	})
	if issues := VerifyPrescriptionOrderBundle(orderBundle(medicationRequest)); len(issues) != 0 {
		t.Fatalf("issues = %v, want none once the repeat fields are present", diagnosticsOf(issues))
	}
}

func TestVerifyCancellationBundle_Valid(t *testing.T) {
	medicationRequest := orderMedicationRequest("item-1")
	medicationRequest.Status = "cancelled"
	medicationRequest.StatusReason = fhir.NewCodeableConcept(
		"https://fhir.nhs.uk/CodeSystem/medicationrequest-status-reason", "0001", "Prescribing Error")

	if issues := VerifyCancellationBundle(orderBundle(medicationRequest)); len(issues) != 0 {
		t.Fatalf("issues = %v, want none", diagnosticsOf(issues))
	}
}

func TestVerifyCancellationBundle_RequiresSingleCancelledItem(t *testing.T) {
	first := orderMedicationRequest("item-1")
	second := orderMedicationRequest("item-2")
	issues := VerifyCancellationBundle(orderBundle(first, second))

	assertIssueMentions(t, issues, "exactly one MedicationRequest")
	assertIssueMentions(t, issues, "MedicationRequest.status must be one of: 'cancelled'.")
	assertIssueMentions(t, issues, "MedicationRequest.statusReason is required.")
}
