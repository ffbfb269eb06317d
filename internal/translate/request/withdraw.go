package request

import (
	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const systemWithdrawReason = "https://fhir.nhs.uk/CodeSystem/EPS-task-dispense-withdraw-reason"

// ConvertTaskToEtpWithdraw retracts the last dispense notification sent for
// a prescription. The Task focus identifies the notification being
// withdrawn; the requester is a contained PractitionerRole.
func ConvertTaskToEtpWithdraw(task *fhir.Task) (*hl7v3.EtpWithdraw, error) {
	id, err := messageIDFromIdentifiers(task.Identifier, "Task.identifier")
	if err != nil {
		return nil, err
	}
	effectiveTime, err := translate.ConvertISODateTimeToHL7(task.AuthoredOn)
	if err != nil {
		return nil, fhir.NewInvalidValueError(err.Error(), "Task.authoredOn")
	}
	withdraw := hl7v3.NewEtpWithdraw(id, effectiveTime)

	withdraw.RecordTarget, err = taskRecordTarget(task)
	if err != nil {
		return nil, err
	}
	withdraw.Author, err = taskAuthor(task)
	if err != nil {
		return nil, err
	}

	withdraw.PertinentInformation1 = hl7v3.NewEtpWithdrawPertinentInformation1()

	dispenseNotificationID, err := messageIDFromFocusIdentifier(task.Focus, "Task.focus.identifier")
	if err != nil {
		return nil, err
	}
	withdraw.PertinentInformation2 = hl7v3.NewEtpWithdrawPertinentInformation2(dispenseNotificationID)

	shortFormID, err := shortFormIDFromTaskGroupIdentifier(task.GroupIdentifier)
	if err != nil {
		return nil, err
	}
	withdraw.PertinentInformation3 = hl7v3.NewEtpWithdrawPertinentInformation3(shortFormID)

	reason, err := taskReasonCoding(task.StatusReason, systemWithdrawReason, "Task.statusReason")
	if err != nil {
		return nil, err
	}
	withdraw.PertinentInformation5 = hl7v3.NewEtpWithdrawPertinentInformation5(
		hl7v3.Code{CodeSystem: hl7v3.OIDWithdrawReason, Code: reason.Code, DisplayName: reason.Display})

	return withdraw, nil
}

func taskRecordTarget(task *fhir.Task) (*hl7v3.RecordTarget, error) {
	if task.For == nil || task.For.Identifier == nil {
		return nil, fhir.NewTooFewValuesError("Expected an NHS number identifier reference.", "Task.for.identifier")
	}
	nhsNumber, err := fhir.IdentifierValueForSystem(
		[]fhir.Identifier{*task.For.Identifier}, fhir.SystemNHSNumber, "Task.for.identifier")
	if err != nil {
		return nil, err
	}
	return hl7v3.NewRecordTarget(hl7v3.NewPatient(nhsNumber)), nil
}

func taskAuthor(task *fhir.Task) (*hl7v3.Author, error) {
	if task.Requester == nil {
		return nil, fhir.NewTooFewValuesError("Required field requester is missing.", "Task.requester")
	}
	practitionerRole, err := containedPractitionerRole(task.Contained, task.Requester, "Task.requester")
	if err != nil {
		return nil, err
	}
	agentPerson, err := convertDispenseAgentPerson(practitionerRole, nil, "Task.contained(\"PractitionerRole\")")
	if err != nil {
		return nil, err
	}
	return hl7v3.NewAuthor(agentPerson), nil
}

func taskReasonCoding(concept *fhir.CodeableConcept, system, path string) (*fhir.Coding, error) {
	coding := fhir.CodingForSystem(concept, system)
	if coding == nil {
		return nil, fhir.NewTooFewValuesError("Expected a coding for system "+system+".", path)
	}
	return coding, nil
}
