package request

import (
	"fmt"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// Dispense workflow messages identify themselves and the messages they act
// on by RFC 4122 identifiers rather than bundle references.

func messageIDFromIdentifiers(identifiers []fhir.Identifier, path string) (string, error) {
	return fhir.IdentifierValueForSystem(identifiers, fhir.SystemUUID, path)
}

func shortFormIDFromTaskGroupIdentifier(groupIdentifier *fhir.Identifier) (string, error) {
	if groupIdentifier == nil || groupIdentifier.System != fhir.SystemPrescriptionOrderNumber {
		return "", fhir.NewTooFewValuesError(
			"Expected a prescription order number group identifier.", "Task.groupIdentifier")
	}
	return groupIdentifier.Value, nil
}

func messageIDFromFocusIdentifier(focus *fhir.Reference, path string) (string, error) {
	if focus == nil || focus.Identifier == nil {
		return "", fhir.NewTooFewValuesError("Expected an identifier reference.", path)
	}
	return fhir.IdentifierValueForSystem([]fhir.Identifier{*focus.Identifier}, fhir.SystemUUID, path)
}

// containedPractitionerRole resolves a local reference against a contained
// resource list.
func containedPractitionerRole(contained []fhir.ContainedResource, reference *fhir.Reference, path string) (*fhir.PractitionerRole, error) {
	if !reference.IsLiteral() {
		return nil, fhir.NewTooFewValuesError("Expected a reference to a contained PractitionerRole.", path)
	}
	resolved, err := fhir.ContainedResourceForReference(contained, reference.Reference, path)
	if err != nil {
		return nil, err
	}
	practitionerRole, ok := resolved.(*fhir.PractitionerRole)
	if !ok {
		return nil, fhir.NewInvalidValueError(
			fmt.Sprintf("Expected reference %q to resolve to a PractitionerRole.", reference.Reference), path)
	}
	return practitionerRole, nil
}

// convertDispenseAgentPerson builds an AgentPerson from a PractitionerRole
// whose practitioner and organization are identifier references. Dispense
// workflow messages carry the role contained on the submitting resource
// instead of as bundle entries. When an Organization resource is supplied it
// takes the place of the identifier reference.
func convertDispenseAgentPerson(practitionerRole *fhir.PractitionerRole, organization *fhir.Organization, path string) (*hl7v3.AgentPerson, error) {
	roleProfileID, err := fhir.IdentifierValueForSystem(
		practitionerRole.Identifier, fhir.SystemSDSRoleProfileID, path+".identifier")
	if err != nil {
		return nil, err
	}
	jobRole, err := jobRoleCoding(practitionerRole.Code)
	if err != nil {
		return nil, err
	}
	agentPerson := hl7v3.NewAgentPerson(roleProfileID, hl7v3.NewJobRoleCode(jobRole.Code, jobRole.Display))

	for _, telecom := range practitionerRole.Telecom {
		converted, err := ConvertTelecom(telecom, path+".telecom")
		if err != nil {
			return nil, err
		}
		agentPerson.Telecom = append(agentPerson.Telecom, converted)
	}

	agentPerson.AgentPerson, err = dispenseAgentPersonPerson(practitionerRole, path)
	if err != nil {
		return nil, err
	}

	if organization != nil {
		agentPerson.RepresentedOrganization, err = ConvertOrganizationAndProviderLicense(organization, nil)
		if err != nil {
			return nil, err
		}
	} else {
		agentPerson.RepresentedOrganization, err = organizationFromIdentifierReference(
			practitionerRole.Organization, path+".organization")
		if err != nil {
			return nil, err
		}
	}
	return agentPerson, nil
}

func dispenseAgentPersonPerson(practitionerRole *fhir.PractitionerRole, path string) (*hl7v3.AgentPersonPerson, error) {
	practitioner := practitionerRole.Practitioner
	if practitioner == nil || practitioner.Identifier == nil {
		return nil, fhir.NewTooFewValuesError("Expected an identifier reference to the practitioner.", path+".practitioner")
	}
	userID, err := fhir.IdentifierValueForSystem(
		[]fhir.Identifier{*practitioner.Identifier}, fhir.SystemSDSUserID, path+".practitioner.identifier")
	if err != nil {
		return nil, err
	}
	var name *hl7v3.Name
	if practitioner.Display != "" {
		name = &hl7v3.Name{Unstructured: practitioner.Display}
	}
	return hl7v3.NewAgentPersonPerson(userID, name), nil
}

func organizationFromIdentifierReference(reference *fhir.Reference, path string) (*hl7v3.Organization, error) {
	if reference == nil || reference.Identifier == nil {
		return nil, fhir.NewTooFewValuesError("Expected an identifier reference to the organization.", path)
	}
	odsCode, err := fhir.IdentifierValueForSystem(
		[]fhir.Identifier{*reference.Identifier}, fhir.SystemODSOrganizationCode, path+".identifier")
	if err != nil {
		return nil, err
	}
	return hl7v3.NewOrganization(odsCode, reference.Display), nil
}

// agentOrganizationFromReference maps an identifier reference straight onto
// an AgentOrg participation.
func agentOrganizationFromReference(reference *fhir.Reference, path string) (*hl7v3.AgentOrganization, error) {
	organization, err := organizationFromIdentifierReference(reference, path)
	if err != nil {
		return nil, err
	}
	return hl7v3.NewAgentOrganization(organization), nil
}
