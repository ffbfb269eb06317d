package request

import (
	"strings"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// TranslateReleaseRequest builds the release request document from the
// $release operation Parameters. A group-identifier parameter selects a
// single patient prescription; without one every prescription nominated to
// the requesting site is released. The returned document is either a
// *hl7v3.PatientPrescriptionReleaseRequest or a
// *hl7v3.NominatedPrescriptionReleaseRequest.
func TranslateReleaseRequest(parameters *fhir.Parameters) (any, error) {
	agentResource := parameters.ResourceParameter("agent")
	practitionerRole, ok := agentResource.(*fhir.PractitionerRole)
	if !ok {
		return nil, fhir.NewTooFewValuesError(
			"Expected an agent parameter holding a PractitionerRole.", "Parameters.parameter(\"agent\").resource")
	}

	organization, err := releaseOrganization(parameters, practitionerRole)
	if err != nil {
		return nil, err
	}
	agentPerson, err := convertDispenseAgentPerson(practitionerRole, organization, "Parameters.parameter(\"agent\").resource")
	if err != nil {
		return nil, err
	}
	author := hl7v3.NewAuthor(agentPerson)

	id := uuid.NewString()
	now := translate.Now()

	if groupIdentifier := identifierParameter(parameters, "group-identifier"); groupIdentifier != nil {
		release := hl7v3.NewPatientPrescriptionReleaseRequest(id, now, groupIdentifier.Value)
		release.Author = author
		return release, nil
	}
	release := hl7v3.NewNominatedPrescriptionReleaseRequest(id, now)
	release.Author = author
	return release, nil
}

// releaseOrganization finds the Organization parameter the agent's
// organization reference points at.
func releaseOrganization(parameters *fhir.Parameters, practitionerRole *fhir.PractitionerRole) (*fhir.Organization, error) {
	reference := practitionerRole.Organization
	if !reference.IsLiteral() {
		return nil, fhir.NewInvalidValueError(
			"Expected a literal organization reference.", "Parameters.parameter(\"agent\").resource.organization")
	}
	targetID := strings.TrimPrefix(strings.TrimPrefix(reference.Reference, "urn:uuid:"), "#")
	for _, parameter := range parameters.Parameter {
		organization, ok := parameter.Resource.(*fhir.Organization)
		if !ok {
			continue
		}
		if organization.ID == targetID || strings.HasSuffix(reference.Reference, "/"+organization.ID) {
			return organization, nil
		}
	}
	return nil, fhir.NewTooFewValuesError(
		"Could not resolve the agent's organization within the parameters.",
		"Parameters.parameter(\"agent\").resource.organization")
}

func identifierParameter(parameters *fhir.Parameters, name string) *fhir.Identifier {
	for _, parameter := range parameters.Parameter {
		if parameter.Name == name && parameter.ValueIdentifier != nil {
			return parameter.ValueIdentifier
		}
	}
	return nil
}
