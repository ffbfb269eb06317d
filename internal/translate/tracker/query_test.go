package tracker

import (
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
)

func taskFor(prescriptionID, nhsNumber string) *fhir.Task {
	return &fhir.Task{
		Base: fhir.Base{ResourceType: "Task", ID: "task-" + prescriptionID},
		Focus: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemPrescriptionOrderNumber, prescriptionID), "", ""),
		For: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemNHSNumber, nhsNumber), "", ""),
	}
}

func TestQuerySystemPrefixStripped(t *testing.T) {
	query := Query{
		FocusIdentifier:   fhir.SystemPrescriptionOrderNumber + "|" + testPrescriptionID,
		PatientIdentifier: fhir.SystemNHSNumber + "|" + testNHSNumber,
	}
	if query.PrescriptionID() != testPrescriptionID {
		t.Errorf("prescription id = %q", query.PrescriptionID())
	}
	if query.NHSNumber() != testNHSNumber {
		t.Errorf("nhs number = %q", query.NHSNumber())
	}

	// An unexpected namespace passes through unchanged.
	query = Query{FocusIdentifier: "https://example.com/other|" + testPrescriptionID}
	if query.PrescriptionID() != "https://example.com/other|"+testPrescriptionID {
		t.Errorf("prescription id = %q, want the raw value", query.PrescriptionID())
	}
}

func TestQueryFocusPreferredOverIdentifier(t *testing.T) {
	query := Query{Identifier: "AAAAAA-A99968-4C5AAJ", FocusIdentifier: testPrescriptionID}
	if query.PrescriptionID() != testPrescriptionID {
		t.Errorf("prescription id = %q", query.PrescriptionID())
	}

	query = Query{Identifier: testPrescriptionID}
	if query.PrescriptionID() != testPrescriptionID {
		t.Errorf("prescription id = %q", query.PrescriptionID())
	}
}

func TestQueryMatchesRequiresAllParameters(t *testing.T) {
	task := taskFor(testPrescriptionID, testNHSNumber)

	if !(Query{FocusIdentifier: testPrescriptionID}).Matches(task) {
		t.Error("focus-only query did not match")
	}
	if !(Query{FocusIdentifier: testPrescriptionID, PatientIdentifier: testNHSNumber}).Matches(task) {
		t.Error("fully matching query did not match")
	}

	// Both parameters must hold: a prescription id belonging to one task
	// combined with another patient's nhs number matches nothing.
	mismatched := Query{FocusIdentifier: testPrescriptionID, PatientIdentifier: "9912003490"}
	if mismatched.Matches(task) {
		t.Error("query matched despite a mismatched patient identifier")
	}
}

func TestFilterBundleRederivesTotal(t *testing.T) {
	bundle := &fhir.Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Entry: []fhir.BundleEntry{
			fhir.ConvertResourceToBundleEntry(taskFor(testPrescriptionID, testNHSNumber)),
			fhir.ConvertResourceToBundleEntry(taskFor("AAAAAA-A99968-4C5AAJ", "9912003490")),
		},
	}
	total := 2
	bundle.Total = &total

	query := Query{PatientIdentifier: testNHSNumber}
	query.FilterBundle(bundle)

	if len(bundle.Entry) != 1 {
		t.Fatalf("entries = %d, want 1", len(bundle.Entry))
	}
	if *bundle.Total != 1 {
		t.Errorf("total = %d, want re-derived count", *bundle.Total)
	}
	task := bundle.Entry[0].Resource.(*fhir.Task)
	if task.Focus.Identifier.Value != testPrescriptionID {
		t.Errorf("surviving task = %+v", task.Focus)
	}
}
