package tracker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/translate"
)

const (
	testPrescriptionID = "002D4D-A99968-4C5AAJ"
	testNHSNumber      = "9912003489"
	testLineItemID     = "30B7E9CF-6F42-40A8-84C1-E61EF638EEE4"
)

func summaryPrescriptionFixture() SummaryPrescription {
	return SummaryPrescription{
		Prescription: Prescription{
			LastEventDate:             "20210114120000",
			PrescriptionIssueDate:     "20210111000000",
			PatientNHSNumber:          testNHSNumber,
			EPSVersion:                "R2",
			RepeatInstance:            RepeatInstance{CurrentIssue: "1", TotalAuthorised: "1"},
			PendingCancellations:      "False",
			PrescriptionTreatmentType: "Acute Prescription",
			PrescriptionStatus:        "To Be Dispensed",
		},
		LineItems: map[string]string{testLineItemID: "Perindopril erbumine 2mg tablets"},
	}
}

func detailPrescriptionFixture() DetailPrescription {
	summary := summaryPrescriptionFixture()
	return DetailPrescription{
		Prescription:              summary.Prescription,
		PrescriptionDownloadDate:  "20210112",
		PrescriptionDispensedDate: "20210113",
		PrescriptionClaimedDate:   "",
		PrescriptionLastIssueDispensedDate: "False",
		Prescriber: Organization{
			Name: "SOMERSET BOWEL CANCER SCREENING CENTRE", ODS: "A99968",
			Address: "MUSGROVE PARK HOSPITAL, TAUNTON, TA1 5DA", Phone: "01823333444",
		},
		NominatedPharmacy: Organization{Name: "FIVE STAR HOMECARE LEEDS LTD", ODS: "VNFKT"},
		DispensingPharmacy: Organization{
			Name: "THE SIMPLE PHARMACY", ODS: "FA565",
		},
		LineItems: map[string]LineItemDetail{
			testLineItemID: {
				Description: "Perindopril erbumine 2mg tablets",
				Quantity:    "28", UOM: "tablet",
				Dosage:     "1 tablet daily",
				ItemStatus: "Dispensed",
				Code:       "318896001",
			},
		},
	}
}

func TestConvertSummaryResponse(t *testing.T) {
	response := &SummaryResponse{
		Version: "2", StatusCode: "0",
		Prescriptions: map[string]SummaryPrescription{testPrescriptionID: summaryPrescriptionFixture()},
	}

	converted, err := ConvertSummaryResponse(response)
	if err != nil {
		t.Fatalf("ConvertSummaryResponse: %v", err)
	}
	bundle, ok := converted.(*fhir.Bundle)
	if !ok {
		t.Fatalf("converted = %T, want Bundle", converted)
	}
	if bundle.Type != "searchset" || bundle.Total == nil || *bundle.Total != 1 {
		t.Errorf("bundle = type %q total %v", bundle.Type, bundle.Total)
	}

	task, ok := bundle.Entry[0].Resource.(*fhir.Task)
	if !ok {
		t.Fatalf("entry = %T, want Task", bundle.Entry[0].Resource)
	}
	if task.Identifier[0].System != fhir.SystemUUID || task.Identifier[0].Value != task.ID {
		t.Errorf("identifier = %+v", task.Identifier)
	}
	if task.Status != "requested" {
		t.Errorf("status = %q", task.Status)
	}
	businessStatus := task.BusinessStatus.Coding[0]
	if businessStatus.Code != "0001" || businessStatus.Display != "To Be Dispensed" {
		t.Errorf("business status = %+v", businessStatus)
	}
	if task.Intent != "order" || task.Code.Coding[0].Code != "fulfill" {
		t.Errorf("intent = %q, code = %+v", task.Intent, task.Code)
	}
	if task.Focus.Identifier.Value != testPrescriptionID {
		t.Errorf("focus = %+v", task.Focus)
	}
	if task.For.Identifier.System != fhir.SystemNHSNumber || task.For.Identifier.Value != testNHSNumber {
		t.Errorf("for = %+v", task.For)
	}
	if task.AuthoredOn != "2021-01-11" {
		t.Errorf("authoredOn = %q", task.AuthoredOn)
	}

	courseOfTherapy, err := fhir.ExtensionForURL(task.Extension, translate.ExtensionEPSPrescription, "")
	if err != nil {
		t.Fatalf("course of therapy extension missing: %v", err)
	}
	if courseOfTherapy.Extension[0].ValueCoding.Code != "acute" {
		t.Errorf("course of therapy = %+v", courseOfTherapy)
	}
	if fhir.ExtensionForURLOrNil(task.Extension, translate.ExtensionRepeatInformation) != nil {
		t.Error("repeat information present for a single-issue prescription")
	}

	if len(task.Input) != 1 || len(task.Output) != 1 {
		t.Fatalf("input = %d, output = %d", len(task.Input), len(task.Output))
	}
	input := task.Input[0]
	if input.Type.Coding[0].Code != "16076005" {
		t.Errorf("input type = %+v", input.Type)
	}
	if input.ValueReference.Identifier.Value != "30b7e9cf-6f42-40a8-84c1-e61ef638eee4" {
		t.Errorf("input reference = %+v, want the lowercased line item id", input.ValueReference)
	}
	if input.ValueReference.Type != "MedicationRequest" || len(input.Extension) != 0 {
		t.Errorf("input = %+v", input)
	}
	output := task.Output[0]
	if output.Type.Coding[0].Code != "373784005" || output.ValueReference.Type != "MedicationDispense" {
		t.Errorf("output = %+v", output)
	}
	if output.ValueReference.Identifier.System != fhir.SystemPrescriptionDispenseItem {
		t.Errorf("output reference = %+v", output.ValueReference)
	}
}

func TestConvertSummaryResponse_SpineError(t *testing.T) {
	response := &SummaryResponse{
		StatusCode: "61",
		Reason:     "Invalid nhs number",
	}

	converted, err := ConvertSummaryResponse(response)
	if err != nil {
		t.Fatalf("ConvertSummaryResponse: %v", err)
	}
	outcome, ok := converted.(*fhir.OperationOutcome)
	if !ok {
		t.Fatalf("converted = %T, want OperationOutcome", converted)
	}
	issue := outcome.Issue[0]
	if issue.Severity != "error" || issue.Code != "invalid" {
		t.Errorf("issue = %+v", issue)
	}
	coding := issue.Details.Coding[0]
	if coding.System != fhir.SystemSpineError || coding.Code != "INVALID" || coding.Display != "Invalid nhs number" {
		t.Errorf("details = %+v", coding)
	}
}

func TestConvertSummaryResponse_RepeatInformation(t *testing.T) {
	prescription := summaryPrescriptionFixture()
	prescription.PrescriptionTreatmentType = "Repeat Prescribing"
	prescription.RepeatInstance = RepeatInstance{CurrentIssue: "2", TotalAuthorised: "6"}
	response := &SummaryResponse{
		StatusCode:    "0",
		Prescriptions: map[string]SummaryPrescription{testPrescriptionID: prescription},
	}

	converted, err := ConvertSummaryResponse(response)
	if err != nil {
		t.Fatalf("ConvertSummaryResponse: %v", err)
	}
	task := converted.(*fhir.Bundle).Entry[0].Resource.(*fhir.Task)
	repeatInformation, err := fhir.ExtensionForURL(task.Extension, translate.ExtensionRepeatInformation, "")
	if err != nil {
		t.Fatalf("repeat information missing: %v", err)
	}
	allowed, _ := fhir.ExtensionForURL(repeatInformation.Extension, "numberOfRepeatsAllowed", "")
	if allowed == nil || allowed.ValueUnsignedInt != "6" {
		t.Errorf("allowed = %+v", allowed)
	}
	issued, _ := fhir.ExtensionForURL(repeatInformation.Extension, "numberOfRepeatsIssued", "")
	if issued == nil || issued.ValueUnsignedInt != "2" {
		t.Errorf("issued = %+v", issued)
	}
}

func TestConvertSummaryResponse_UnknownStatus(t *testing.T) {
	prescription := summaryPrescriptionFixture()
	prescription.PrescriptionStatus = "Mangled"
	response := &SummaryResponse{
		StatusCode:    "0",
		Prescriptions: map[string]SummaryPrescription{testPrescriptionID: prescription},
	}

	_, err := ConvertSummaryResponse(response)
	var processing *fhir.ProcessingError
	if !errors.As(err, &processing) || processing.Code != fhir.ErrorCodeInvalidValue {
		t.Fatalf("error = %v, want INVALID_VALUE", err)
	}
}

func TestConvertDetailResponse(t *testing.T) {
	response := &DetailResponse{
		StatusCode:    "0",
		Prescriptions: map[string]DetailPrescription{testPrescriptionID: detailPrescriptionFixture()},
	}

	converted, err := ConvertDetailResponse(response)
	if err != nil {
		t.Fatalf("ConvertDetailResponse: %v", err)
	}
	task := converted.(*fhir.Bundle).Entry[0].Resource.(*fhir.Task)

	// A dispensing pharmacy with an ODS code owns the task.
	if task.Owner.Identifier.Value != "FA565" || task.Owner.Display != "THE SIMPLE PHARMACY" {
		t.Errorf("owner = %+v", task.Owner)
	}
	if task.Requester.Identifier.Value != "A99968" {
		t.Errorf("requester = %+v", task.Requester)
	}

	input := task.Input[0]
	dispensingInformation, err := fhir.ExtensionForURL(input.Extension, translate.ExtensionDispensingInformation, "")
	if err != nil {
		t.Fatalf("dispensing information missing: %v", err)
	}
	dateLastDispensed, _ := fhir.ExtensionForURL(dispensingInformation.Extension, "dateLastDispensed", "")
	if dateLastDispensed == nil || dateLastDispensed.ValueDate != "2021-01-13" {
		t.Errorf("dateLastDispensed = %+v", dateLastDispensed)
	}
	dispenseStatus, _ := fhir.ExtensionForURL(dispensingInformation.Extension, "dispenseStatus", "")
	if dispenseStatus == nil || dispenseStatus.ValueCoding.Code != "0001" ||
		dispenseStatus.ValueCoding.Display != "Dispensed" {
		t.Errorf("dispenseStatus = %+v", dispenseStatus)
	}

	output := task.Output[0]
	releaseInformation, err := fhir.ExtensionForURL(output.Extension, translate.ExtensionDispensingReleaseInformation, "")
	if err != nil {
		t.Fatalf("release information missing: %v", err)
	}
	// dateLastIssuedDispensed is "False" and the claimed date is empty, so
	// only the download date survives.
	if len(releaseInformation.Extension) != 1 {
		t.Fatalf("release information = %+v", releaseInformation.Extension)
	}
	if releaseInformation.Extension[0].URL != "dateDownloaded" ||
		releaseInformation.Extension[0].ValueDate != "2021-01-12" {
		t.Errorf("dateDownloaded = %+v", releaseInformation.Extension[0])
	}
}

func TestConvertDetailResponse_NominatedPharmacyOwner(t *testing.T) {
	prescription := detailPrescriptionFixture()
	prescription.DispensingPharmacy = Organization{}
	prescription.PrescriptionDispensedDate = "False"
	for id, lineItem := range prescription.LineItems {
		lineItem.ItemStatus = ""
		prescription.LineItems[id] = lineItem
	}
	response := &DetailResponse{
		StatusCode:    "0",
		Prescriptions: map[string]DetailPrescription{testPrescriptionID: prescription},
	}

	converted, err := ConvertDetailResponse(response)
	if err != nil {
		t.Fatalf("ConvertDetailResponse: %v", err)
	}
	task := converted.(*fhir.Bundle).Entry[0].Resource.(*fhir.Task)
	if task.Owner.Identifier.Value != "VNFKT" || task.Owner.Display != "FIVE STAR HOMECARE LEEDS LTD" {
		t.Errorf("owner = %+v, want the nominated pharmacy", task.Owner)
	}
	if len(task.Input[0].Extension) != 0 {
		t.Errorf("input extension = %+v, want none without dispensing history", task.Input[0].Extension)
	}
}

func TestDetailResponseUnmarshal(t *testing.T) {
	payload := []byte(`{
		"version": "2",
		"reason": "",
		"statusCode": "0",
		"` + testPrescriptionID + `": {
			"prescriptionStatus": "Dispensed",
			"patientNhsNumber": "9912003489",
			"lineItems": {"` + testLineItemID + `": {"itemStatus": "Dispensed"}}
		}
	}`)

	var response DetailResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if response.StatusCode != "0" || response.Version != "2" {
		t.Errorf("envelope = %+v", response)
	}
	prescription, ok := response.Prescriptions[testPrescriptionID]
	if !ok {
		t.Fatalf("prescriptions = %+v", response.Prescriptions)
	}
	if prescription.PrescriptionStatus != "Dispensed" {
		t.Errorf("prescription = %+v", prescription)
	}
	if prescription.LineItems[testLineItemID].ItemStatus != "Dispensed" {
		t.Errorf("line items = %+v", prescription.LineItems)
	}
}
