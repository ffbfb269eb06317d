package tracker

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const (
	systemTaskBusinessStatus      = "https://fhir.nhs.uk/CodeSystem/EPS-task-business-status"
	systemTaskCode                = "http://hl7.org/fhir/CodeSystem/task-code"
	systemCourseOfTherapy         = "http://terminology.hl7.org/CodeSystem/medicationrequest-course-of-therapy"
	systemMedicationDispenseType  = "https://fhir.nhs.uk/CodeSystem/medicationdispense-type"
	snomedPrescription            = "16076005"
	snomedDispensingMedication    = "373784005"
	spineSuccessStatusCode        = "0"
	spineAbsentDate               = "False"
)

// ConvertSummaryResponse translates an nhs111itemsummary payload into a
// searchset Bundle of Tasks, or an OperationOutcome when Spine rejected
// the query.
func ConvertSummaryResponse(response *SummaryResponse) (fhir.Resource, error) {
	if response.StatusCode != spineSuccessStatusCode {
		return spineErrorOutcome(response.Reason), nil
	}
	tasks := make([]*fhir.Task, 0, len(response.Prescriptions))
	for _, id := range sortedKeys(response.Prescriptions) {
		prescription := response.Prescriptions[id]
		task, err := convertPrescriptionToTask(id, prescription.Prescription)
		if err != nil {
			return nil, err
		}
		for _, lineItemID := range sortedKeys(prescription.LineItems) {
			task.Input = append(task.Input, lineItemInput(lineItemID, nil))
			task.Output = append(task.Output, lineItemOutput(lineItemID, nil))
		}
		tasks = append(tasks, task)
	}
	return taskSearchSet(tasks), nil
}

// ConvertDetailResponse translates an nhs111itemdetails payload. Detail
// prescriptions additionally carry the owning pharmacy, the prescriber and
// per-issue dispensing history.
func ConvertDetailResponse(response *DetailResponse) (fhir.Resource, error) {
	if response.StatusCode != spineSuccessStatusCode {
		return spineErrorOutcome(response.Reason), nil
	}
	tasks := make([]*fhir.Task, 0, len(response.Prescriptions))
	for _, id := range sortedKeys(response.Prescriptions) {
		prescription := response.Prescriptions[id]
		task, err := convertDetailPrescriptionToTask(id, prescription)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return taskSearchSet(tasks), nil
}

func spineErrorOutcome(reason string) *fhir.OperationOutcome {
	return fhir.NewOperationOutcome(fhir.OperationOutcomeIssue{
		Severity: "error",
		Code:     "invalid",
		Details:  fhir.NewCodeableConcept(fhir.SystemSpineError, "INVALID", reason),
	})
}

func taskSearchSet(tasks []*fhir.Task) *fhir.Bundle {
	total := len(tasks)
	bundle := &fhir.Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
	}
	for _, task := range tasks {
		bundle.Entry = append(bundle.Entry, fhir.ConvertResourceToBundleEntry(task))
	}
	return bundle
}

func convertPrescriptionToTask(prescriptionID string, prescription Prescription) (*fhir.Task, error) {
	status, businessStatus, err := prescriptionStatusCodes(prescription.PrescriptionStatus)
	if err != nil {
		return nil, err
	}
	courseOfTherapy, err := courseOfTherapyTypeExtension(prescription.PrescriptionTreatmentType)
	if err != nil {
		return nil, err
	}
	authoredOn, err := convertToFHIRDate(prescription.PrescriptionIssueDate)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	task := &fhir.Task{
		Base:       fhir.Base{ResourceType: "Task", ID: id},
		Extension:  []fhir.Extension{courseOfTherapy},
		Identifier: []fhir.Identifier{fhir.NewIdentifier(fhir.SystemUUID, id)},
		Status:     status,
		BusinessStatus: fhir.NewCodeableConcept(
			systemTaskBusinessStatus, businessStatus, prescription.PrescriptionStatus),
		Intent: "order",
		Code:   fhir.NewCodeableConcept(systemTaskCode, "fulfill", "Fulfill the focal request"),
		Focus: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemPrescriptionOrderNumber, prescriptionID), "", ""),
		For: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemNHSNumber, prescription.PatientNHSNumber), "", ""),
		AuthoredOn: authoredOn,
	}
	if prescription.RepeatInstance.TotalAuthorised != "1" {
		task.Extension = append(task.Extension, repeatInformationExtension(prescription.RepeatInstance))
	}
	return task, nil
}

func convertDetailPrescriptionToTask(prescriptionID string, prescription DetailPrescription) (*fhir.Task, error) {
	task, err := convertPrescriptionToTask(prescriptionID, prescription.Prescription)
	if err != nil {
		return nil, err
	}

	// The owner is the dispensing pharmacy once one has downloaded the
	// prescription, otherwise the nominated pharmacy.
	owner := prescription.NominatedPharmacy
	if prescription.DispensingPharmacy.ODS != "" {
		owner = prescription.DispensingPharmacy
	}
	task.Owner = fhir.NewIdentifierReference(
		fhir.NewIdentifier(fhir.SystemODSOrganizationCode, owner.ODS), owner.Name, "")
	task.Requester = fhir.NewIdentifierReference(
		fhir.NewIdentifier(fhir.SystemODSOrganizationCode, prescription.Prescriber.ODS),
		prescription.Prescriber.Name, "")

	dispensingInformation, err := dispensingInformationExtensions(prescription)
	if err != nil {
		return nil, err
	}
	releaseInformation, err := releaseInformationExtensions(prescription)
	if err != nil {
		return nil, err
	}
	for _, lineItemID := range sortedKeys(prescription.LineItems) {
		lineItem := prescription.LineItems[lineItemID]
		itemDispensing, err := appendDispenseStatus(dispensingInformation, lineItem.ItemStatus)
		if err != nil {
			return nil, err
		}
		task.Input = append(task.Input, lineItemInput(lineItemID, itemDispensing))
		task.Output = append(task.Output, lineItemOutput(lineItemID, releaseInformation))
	}
	return task, nil
}

func prescriptionStatusCodes(display string) (status, businessStatus string, err error) {
	switch display {
	case "Awaiting Release Ready":
		return "requested", "0000", nil
	case "To Be Dispensed":
		return "requested", "0001", nil
	case "With Dispenser":
		return "accepted", "0002", nil
	case "With Dispenser - Active":
		return "in-progress", "0003", nil
	case "Expired":
		return "failed", "0004", nil
	case "Cancelled":
		return "cancelled", "0005", nil
	case "Dispensed":
		return "completed", "0006", nil
	case "Not Dispensed":
		return "completed", "0007", nil
	case "Claimed":
		return "completed", "0008", nil
	case "No-Claimed":
		return "completed", "0009", nil
	case "Repeat Dispense future instance":
		return "requested", "9000", nil
	case "Prescription future instance":
		return "requested", "9001", nil
	case "Cancelled future instance":
		return "cancelled", "9005", nil
	default:
		return "", "", fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled prescription status %q.", display), "")
	}
}

func lineItemStatusCode(display string) (string, error) {
	switch display {
	case "Dispensed":
		return "0001", nil
	case "Not Dispensed":
		return "0002", nil
	case "Dispensed - Partial":
		return "0003", nil
	case "Not Dispensed - Owing":
		return "0004", nil
	case "Cancelled":
		return "0005", nil
	case "Expired":
		return "0006", nil
	case "To be Dispensed":
		return "0007", nil
	case "With Dispenser":
		return "0008", nil
	default:
		return "", fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled line item status %q.", display), "")
	}
}

func courseOfTherapyTypeExtension(treatmentType string) (fhir.Extension, error) {
	var code, display string
	switch treatmentType {
	case "Acute Prescription":
		code, display = "acute", "Short course (acute) therapy"
	case "Repeat Prescribing":
		code, display = "continuous", "Continuous long term therapy"
	case "Repeat Dispensing":
		code, display = "continuous-repeat-dispensing", "Continuous long term (repeat dispensing)"
	default:
		return fhir.Extension{}, fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled prescription treatment type %q.", treatmentType), "")
	}
	coding := fhir.NewCoding(systemCourseOfTherapy, code, display)
	return fhir.Extension{
		URL: translate.ExtensionEPSPrescription,
		Extension: []fhir.Extension{{
			URL:         "courseOfTherapyType",
			ValueCoding: &coding,
		}},
	}, nil
}

func repeatInformationExtension(repeatInstance RepeatInstance) fhir.Extension {
	return fhir.Extension{
		URL: translate.ExtensionRepeatInformation,
		Extension: []fhir.Extension{
			{URL: "numberOfRepeatsAllowed", ValueUnsignedInt: json.Number(repeatInstance.TotalAuthorised)},
			{URL: "numberOfRepeatsIssued", ValueUnsignedInt: json.Number(repeatInstance.CurrentIssue)},
		},
	}
}

// dispensingInformationExtensions builds the prescription-level part of the
// per-line-item dispensing information. The line item's own dispense status
// is appended per item.
func dispensingInformationExtensions(prescription DetailPrescription) ([]fhir.Extension, error) {
	if !dateIsSet(prescription.PrescriptionDispensedDate) {
		return nil, nil
	}
	date, err := convertToFHIRDate(prescription.PrescriptionDispensedDate)
	if err != nil {
		return nil, err
	}
	return []fhir.Extension{{URL: "dateLastDispensed", ValueDate: date}}, nil
}

func appendDispenseStatus(shared []fhir.Extension, itemStatus string) ([]fhir.Extension, error) {
	if itemStatus == "" {
		return shared, nil
	}
	statusCode, err := lineItemStatusCode(itemStatus)
	if err != nil {
		return nil, err
	}
	coding := fhir.NewCoding(systemMedicationDispenseType, statusCode, itemStatus)
	extensions := make([]fhir.Extension, len(shared), len(shared)+1)
	copy(extensions, shared)
	return append(extensions, fhir.Extension{URL: "dispenseStatus", ValueCoding: &coding}), nil
}

func releaseInformationExtensions(prescription DetailPrescription) ([]fhir.Extension, error) {
	var extensions []fhir.Extension
	if dateIsSet(prescription.PrescriptionLastIssueDispensedDate) {
		date, err := convertToFHIRDate(prescription.PrescriptionLastIssueDispensedDate)
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, fhir.Extension{URL: "dateLastIssuedDispensed", ValueDate: date})
	}
	if prescription.PrescriptionDownloadDate != "" {
		date, err := convertToFHIRDate(prescription.PrescriptionDownloadDate)
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, fhir.Extension{URL: "dateDownloaded", ValueDate: date})
	}
	if prescription.PrescriptionClaimedDate != "" {
		date, err := convertToFHIRDate(prescription.PrescriptionClaimedDate)
		if err != nil {
			return nil, err
		}
		extensions = append(extensions, fhir.Extension{URL: "dateClaimed", ValueDate: date})
	}
	return extensions, nil
}

func lineItemInput(lineItemID string, dispensingInformation []fhir.Extension) fhir.TaskInput {
	input := fhir.TaskInput{
		Type: *fhir.NewCodeableConcept(fhir.SystemSNOMED, snomedPrescription, "Prescription"),
		ValueReference: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemPrescriptionOrderItem, translate.LowercaseUUID(lineItemID)),
			"", "MedicationRequest"),
	}
	if len(dispensingInformation) > 0 {
		input.Extension = []fhir.Extension{{
			URL:       translate.ExtensionDispensingInformation,
			Extension: dispensingInformation,
		}}
	}
	return input
}

func lineItemOutput(lineItemID string, releaseInformation []fhir.Extension) fhir.TaskOutput {
	output := fhir.TaskOutput{
		Type: *fhir.NewCodeableConcept(fhir.SystemSNOMED, snomedDispensingMedication, "Dispensing medication"),
		ValueReference: fhir.NewIdentifierReference(
			fhir.NewIdentifier(fhir.SystemPrescriptionDispenseItem, translate.LowercaseUUID(lineItemID)),
			"", "MedicationDispense"),
	}
	if len(releaseInformation) > 0 {
		output.Extension = []fhir.Extension{{
			URL:       translate.ExtensionDispensingReleaseInformation,
			Extension: releaseInformation,
		}}
	}
	return output
}

// dateIsSet reports whether a Spine date field carries a value. Spine
// renders absent dates as the literal string "False".
func dateIsSet(value string) bool {
	return value != "" && value != spineAbsentDate
}

func convertToFHIRDate(value string) (string, error) {
	iso, err := translate.ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: value})
	if err != nil {
		return "", err
	}
	if len(iso) > len("2006-01-02") {
		return iso[:len("2006-01-02")], nil
	}
	return iso, nil
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
