package request

import (
	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const systemReturnReason = "https://fhir.nhs.uk/CodeSystem/EPS-task-dispense-return-status-reason"

// ConvertTaskToDispenseProposalReturn sends a released prescription back to
// Spine. The Task focus identifies the release event being reversed.
func ConvertTaskToDispenseProposalReturn(task *fhir.Task) (*hl7v3.DispenseProposalReturn, error) {
	id, err := messageIDFromIdentifiers(task.Identifier, "Task.identifier")
	if err != nil {
		return nil, err
	}
	effectiveTime, err := translate.ConvertISODateTimeToHL7(task.AuthoredOn)
	if err != nil {
		return nil, fhir.NewInvalidValueError(err.Error(), "Task.authoredOn")
	}
	dispenseReturn := hl7v3.NewDispenseProposalReturn(id, effectiveTime)

	dispenseReturn.Author, err = taskAuthor(task)
	if err != nil {
		return nil, err
	}

	shortFormID, err := shortFormIDFromTaskGroupIdentifier(task.GroupIdentifier)
	if err != nil {
		return nil, err
	}
	dispenseReturn.PertinentInformation1 = hl7v3.NewDispenseProposalReturnPertinentInformation1(shortFormID)

	reason, err := taskReasonCoding(task.ReasonCode, systemReturnReason, "Task.reasonCode")
	if err != nil {
		return nil, err
	}
	dispenseReturn.PertinentInformation3 = hl7v3.NewDispenseProposalReturnPertinentInformation3(
		hl7v3.Code{CodeSystem: hl7v3.OIDReturnReason, Code: reason.Code, DisplayName: reason.Display})

	releaseEventID, err := messageIDFromFocusIdentifier(task.Focus, "Task.focus.identifier")
	if err != nil {
		return nil, err
	}
	dispenseReturn.ReversalOf = hl7v3.NewReversalOf(releaseEventID)

	return dispenseReturn, nil
}
