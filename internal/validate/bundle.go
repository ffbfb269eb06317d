// Package validate performs structural checks on inbound payloads before
// translation. Issues accumulate into a single list so the caller sees
// everything wrong with a message at once; the converters still guard their
// own required fields and report the first missing one.
package validate

import (
	"fmt"
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/translate"
)

const (
	systemCourseOfTherapy = "https://fhir.nhs.uk/CodeSystem/medicationrequest-course-of-therapy"

	courseOfTherapyRepeatDispensing = "continuous-repeat-dispensing"
)

type medicationRequestField struct {
	path    string
	valueOf func(*fhir.MedicationRequest) string
}

// Fields that must not vary between the line items of one prescription.
var identicalOrderFields = []medicationRequestField{
	{"MedicationRequest.groupIdentifier", func(m *fhir.MedicationRequest) string {
		if m.GroupIdentifier == nil {
			return ""
		}
		return m.GroupIdentifier.Value
	}},
	{"MedicationRequest.authoredOn", func(m *fhir.MedicationRequest) string {
		return m.AuthoredOn
	}},
	{"MedicationRequest.subject", func(m *fhir.MedicationRequest) string {
		return referenceKey(m.Subject)
	}},
	{"MedicationRequest.requester", func(m *fhir.MedicationRequest) string {
		return referenceKey(m.Requester)
	}},
	{"MedicationRequest.dispenseRequest.performer", func(m *fhir.MedicationRequest) string {
		if m.DispenseRequest == nil {
			return ""
		}
		return referenceKey(m.DispenseRequest.Performer)
	}},
	{"MedicationRequest.extension(PrescriptionType)", func(m *fhir.MedicationRequest) string {
		extension := fhir.ExtensionForURLOrNil(m.Extension, translate.ExtensionPrescriptionType)
		if extension == nil || extension.ValueCoding == nil {
			return ""
		}
		return extension.ValueCoding.Code
	}},
	{"MedicationRequest.extension(ResponsiblePractitioner)", func(m *fhir.MedicationRequest) string {
		extension := fhir.ExtensionForURLOrNil(m.Extension, translate.ExtensionResponsiblePractitioner)
		if extension == nil {
			return ""
		}
		return referenceKey(extension.ValueReference)
	}},
}

// VerifyPrescriptionOrderBundle checks a prescription-order message bundle:
// every line item must belong to the same prescription, carry its own item
// identifier and be an active order. Repeat-dispensing prescriptions carry
// the additional fields Spine requires for them.
func VerifyPrescriptionOrderBundle(bundle *fhir.Bundle) []fhir.OperationOutcomeIssue {
	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) == 0 {
		return []fhir.OperationOutcomeIssue{missingValueIssue("Bundle.entry.resource.ofType(MedicationRequest)")}
	}

	issues := verifyIntent(medicationRequests)

	for _, field := range identicalOrderFields {
		if issue := verifyIdentical(medicationRequests, field); issue != nil {
			issues = append(issues, *issue)
		}
	}

	for _, medicationRequest := range medicationRequests {
		if medicationRequest.Status != "active" {
			issues = append(issues, incorrectValueIssue("MedicationRequest.status", "active"))
			break
		}
	}

	if !uniqueLineItemIdentifiers(medicationRequests) {
		issues = append(issues, fhir.OperationOutcomeIssue{
			Severity:    "error",
			Code:        "value",
			Diagnostics: "Expected all MedicationRequests to have a different value for identifier.",
			Expression:  []string{"MedicationRequest.identifier"},
		})
	}

	if isRepeatDispensing(medicationRequests[0]) {
		issues = append(issues, verifyRepeatDispensing(medicationRequests)...)
	}

	return issues
}

// VerifyCancellationBundle checks a prescription-order-update message
// bundle. A cancellation names exactly one line item, marked cancelled with
// the reason on statusReason.
func VerifyCancellationBundle(bundle *fhir.Bundle) []fhir.OperationOutcomeIssue {
	var issues []fhir.OperationOutcomeIssue

	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) != 1 {
		issues = append(issues, fhir.OperationOutcomeIssue{
			Severity:    "error",
			Code:        "value",
			Diagnostics: "Expected exactly one MedicationRequest in a cancellation message.",
			Expression:  []string{"Bundle.entry.resource.ofType(MedicationRequest)"},
		})
	}

	issues = append(issues, verifyIntent(medicationRequests)...)

	for _, medicationRequest := range medicationRequests {
		if medicationRequest.Status != "cancelled" {
			issues = append(issues, incorrectValueIssue("MedicationRequest.status", "cancelled"))
			break
		}
	}
	for _, medicationRequest := range medicationRequests {
		if medicationRequest.StatusReason == nil {
			issues = append(issues, missingValueIssue("MedicationRequest.statusReason"))
			break
		}
	}

	return issues
}

func verifyIntent(medicationRequests []*fhir.MedicationRequest) []fhir.OperationOutcomeIssue {
	for _, medicationRequest := range medicationRequests {
		if medicationRequest.Intent != "order" {
			return []fhir.OperationOutcomeIssue{incorrectValueIssue("MedicationRequest.intent", "order")}
		}
	}
	return nil
}

func verifyIdentical(medicationRequests []*fhir.MedicationRequest, field medicationRequestField) *fhir.OperationOutcomeIssue {
	values := make([]string, 0, len(medicationRequests))
	for _, medicationRequest := range medicationRequests {
		values = append(values, field.valueOf(medicationRequest))
	}
	unique := uniqueValues(values)
	if len(unique) <= 1 {
		return nil
	}
	issue := inconsistentValueIssue(field.path, unique)
	return &issue
}

func verifyRepeatDispensing(medicationRequests []*fhir.MedicationRequest) []fhir.OperationOutcomeIssue {
	var issues []fhir.OperationOutcomeIssue

	repeats := medicationRequestField{
		path: "MedicationRequest.dispenseRequest.numberOfRepeatsAllowed",
		valueOf: func(m *fhir.MedicationRequest) string {
			if m.DispenseRequest == nil {
				return ""
			}
			return m.DispenseRequest.NumberOfRepeatsAllowed.String()
		},
	}
	if issue := verifyIdentical(medicationRequests, repeats); issue != nil {
		issues = append(issues, *issue)
	}

	first := medicationRequests[0]
	if first.DispenseRequest == nil || first.DispenseRequest.ValidityPeriod == nil {
		issues = append(issues, missingValueIssue("MedicationRequest.dispenseRequest.validityPeriod"))
	}
	if first.DispenseRequest == nil || first.DispenseRequest.ExpectedSupplyDuration == nil {
		issues = append(issues, missingValueIssue("MedicationRequest.dispenseRequest.expectedSupplyDuration"))
	}
	if fhir.ExtensionForURLOrNil(first.Extension, translate.ExtensionMedicationRepeatInformation) == nil {
		issues = append(issues, missingValueIssue("MedicationRequest.extension(MedicationRepeatInformation)"))
	}

	return issues
}

func isRepeatDispensing(medicationRequest *fhir.MedicationRequest) bool {
	coding := fhir.CodingForSystem(medicationRequest.CourseOfTherapyType, systemCourseOfTherapy)
	return coding != nil && coding.Code == courseOfTherapyRepeatDispensing
}

func uniqueLineItemIdentifiers(medicationRequests []*fhir.MedicationRequest) bool {
	identifiers := make([]string, 0, len(medicationRequests))
	for _, medicationRequest := range medicationRequests {
		identifiers = append(identifiers,
			fhir.IdentifierValueForSystemOrEmpty(medicationRequest.Identifier, fhir.SystemPrescriptionOrderItem))
	}
	return len(uniqueValues(identifiers)) == len(identifiers)
}

func referenceKey(reference *fhir.Reference) string {
	if reference == nil {
		return ""
	}
	if reference.Reference != "" {
		return reference.Reference
	}
	if reference.Identifier != nil {
		return reference.Identifier.System + "|" + reference.Identifier.Value
	}
	return ""
}

func uniqueValues(values []string) []string {
	var unique []string
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			unique = append(unique, value)
		}
	}
	return unique
}

func incorrectValueIssue(path string, expected ...string) fhir.OperationOutcomeIssue {
	quoted := make([]string, len(expected))
	for i, value := range expected {
		quoted[i] = "'" + value + "'"
	}
	return fhir.OperationOutcomeIssue{
		Severity:    "error",
		Code:        "value",
		Diagnostics: fmt.Sprintf("%s must be one of: %s.", path, strings.Join(quoted, ", ")),
		Expression:  []string{path},
	}
}

func missingValueIssue(path string) fhir.OperationOutcomeIssue {
	return fhir.OperationOutcomeIssue{
		Severity:    "error",
		Code:        "required",
		Diagnostics: path + " is required.",
		Expression:  []string{path},
	}
}

func inconsistentValueIssue(path string, values []string) fhir.OperationOutcomeIssue {
	return fhir.OperationOutcomeIssue{
		Severity: "error",
		Code:     "value",
		Diagnostics: fmt.Sprintf(
			"Expected all MedicationRequests to have the same value for %s. Received: %s.",
			path, strings.Join(values, ", ")),
		Expression: []string{path},
	}
}
