package validate

import (
	"github.com/eps/gateway/internal/platform/fhir"
)

const (
	systemTaskCode       = "http://hl7.org/fhir/CodeSystem/task-code"
	systemWithdrawReason = "https://fhir.nhs.uk/CodeSystem/EPS-task-dispense-withdraw-reason"
	systemReturnReason   = "https://fhir.nhs.uk/CodeSystem/EPS-task-dispense-return-status-reason"
)

// VerifyTask checks a Task describing a dispense withdrawal (status
// in-progress) or a dispense return (status rejected). The reason coding
// lives on statusReason for a withdrawal and on reasonCode for a return.
func VerifyTask(task *fhir.Task) []fhir.OperationOutcomeIssue {
	var issues []fhir.OperationOutcomeIssue

	if task.Intent != "order" {
		issues = append(issues, incorrectValueIssue("Task.intent", "order"))
	}

	switch task.Status {
	case "in-progress":
		if task.Code == nil {
			issues = append(issues, fhir.OperationOutcomeIssue{
				Severity:    "error",
				Code:        "required",
				Diagnostics: "Task.code is required when Task.status is 'in-progress'.",
				Expression:  []string{"Task.code"},
			})
		} else if coding := fhir.CodingForSystem(task.Code, systemTaskCode); coding == nil || coding.Code != "abort" {
			issues = append(issues, incorrectValueIssue("Task.code.coding.code", "abort"))
		}
		if fhir.CodingForSystem(task.StatusReason, systemWithdrawReason) == nil {
			issues = append(issues, codingSystemIssue("Task.statusReason", systemWithdrawReason))
		}
	case "rejected":
		if fhir.CodingForSystem(task.ReasonCode, systemReturnReason) == nil {
			issues = append(issues, codingSystemIssue("Task.reasonCode", systemReturnReason))
		}
	default:
		issues = append(issues, incorrectValueIssue("Task.status", "in-progress", "rejected"))
	}

	return issues
}

func codingSystemIssue(path, system string) fhir.OperationOutcomeIssue {
	return fhir.OperationOutcomeIssue{
		Severity:    "error",
		Code:        "value",
		Diagnostics: path + " must have a coding from system '" + system + "'.",
		Expression:  []string{path},
	}
}
