package fhir

import "fmt"

// Spine error/warning codes surfaced in OperationOutcome details.
const (
	ErrorCodeInvalidValue = "INVALID_VALUE"
	ErrorCodeTooFewValues = "TOO_FEW_VALUES_SUBMITTED"
	ErrorCodeTooManyValues = "TOO_MANY_VALUES_SUBMITTED"
)

// ProcessingError is a validation or mapping failure raised while
// translating a message. Path identifies the offending FHIR element, for
// example "Claim.item.detail.subDetail.programCode".
type ProcessingError struct {
	Code    string
	Message string
	Path    string
}

func (e *ProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidValueError reports a value outside its known domain, such as an
// unmapped terminology code.
func NewInvalidValueError(message, path string) *ProcessingError {
	return &ProcessingError{Code: ErrorCodeInvalidValue, Message: message, Path: path}
}

// NewTooFewValuesError reports a required element that was absent.
func NewTooFewValuesError(message, path string) *ProcessingError {
	return &ProcessingError{Code: ErrorCodeTooFewValues, Message: message, Path: path}
}

// NewTooManyValuesError reports a repeating element with more entries than
// the profile allows.
func NewTooManyValuesError(message, path string) *ProcessingError {
	return &ProcessingError{Code: ErrorCodeTooManyValues, Message: message, Path: path}
}

// ToOperationOutcome renders a processing error as the OperationOutcome
// shape the EPS API returns for 4xx responses.
func (e *ProcessingError) ToOperationOutcome() *OperationOutcome {
	issue := OperationOutcomeIssue{
		Severity: "fatal",
		Code:     "invalid",
		Details: &CodeableConcept{
			Coding: []Coding{{
				System:  SystemSpineError,
				Code:    e.Code,
				Display: e.Message,
			}},
		},
	}
	if e.Path != "" {
		issue.Expression = []string{e.Path}
	}
	return &OperationOutcome{
		Base:  Base{ResourceType: "OperationOutcome"},
		Issue: []OperationOutcomeIssue{issue},
	}
}

// NewOperationOutcome builds an OperationOutcome from pre-built issues.
func NewOperationOutcome(issues ...OperationOutcomeIssue) *OperationOutcome {
	return &OperationOutcome{
		Base:  Base{ResourceType: "OperationOutcome"},
		Issue: issues,
	}
}
