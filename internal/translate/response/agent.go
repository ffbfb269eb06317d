package response

import (
	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// TranslatedAgent is the FHIR resource set produced from one HL7v3
// AgentPerson: the PractitionerRole and Practitioner, plus either the
// organisation the role acts for or, when the represented organisation is a
// cost centre acting under a provider licence, a HealthcareService with its
// locations and parent organisation.
type TranslatedAgent struct {
	PractitionerRole  *fhir.PractitionerRole
	Practitioner      *fhir.Practitioner
	Organization      *fhir.Organization
	HealthcareService *fhir.HealthcareService
	Locations         []*fhir.Location
}

// Resources lists the agent's resources in bundle entry order.
func (a *TranslatedAgent) Resources() []fhir.Resource {
	resources := []fhir.Resource{a.PractitionerRole, a.Practitioner}
	if a.Organization != nil {
		resources = append(resources, a.Organization)
	}
	if a.HealthcareService != nil {
		resources = append(resources, a.HealthcareService)
	}
	for _, location := range a.Locations {
		resources = append(resources, location)
	}
	return resources
}

// RoleProfileID returns the SDS role profile id carried on the role, used
// to spot when two HL7v3 participants are the same person in the same role.
func (a *TranslatedAgent) RoleProfileID() string {
	return fhir.IdentifierValueForSystemOrEmpty(a.PractitionerRole.Identifier, fhir.SystemSDSRoleProfileID)
}

// AddDetails merges identifiers from a second HL7v3 participant that turned
// out to be the same person in the same role. Spurious prescribing codes
// land on the PractitionerRole; everything else lands on the Practitioner.
func (a *TranslatedAgent) AddDetails(agentPerson *hl7v3.AgentPerson) {
	person := agentPerson.AgentPerson
	if person == nil || person.ID.Extension == "" {
		return
	}
	switch person.ID.Root {
	case hl7v3.OIDPrescribingCode:
		a.PractitionerRole.Identifier = fhir.AddIdentifierIfNotPresent(
			a.PractitionerRole.Identifier, fhir.NewIdentifier(fhir.SystemSpuriousCode, person.ID.Extension))
	case hl7v3.OIDProfessionalCode:
		a.Practitioner.Identifier = fhir.AddIdentifierIfNotPresent(
			a.Practitioner.Identifier, fhir.NewIdentifier(fhir.SystemProfessionalCode, person.ID.Extension))
	case hl7v3.OIDSDSUserID:
		a.Practitioner.Identifier = fhir.AddIdentifierIfNotPresent(
			a.Practitioner.Identifier, fhir.NewIdentifier(fhir.SystemSDSUserID, person.ID.Extension))
	}
}

// OrganizationIdentifier returns the ODS identifier of whichever
// organisational resource represents the role's workplace.
func (a *TranslatedAgent) OrganizationIdentifier() fhir.Identifier {
	if a.HealthcareService != nil && len(a.HealthcareService.Identifier) > 0 {
		return a.HealthcareService.Identifier[0]
	}
	if a.Organization != nil && len(a.Organization.Identifier) > 0 {
		return a.Organization.Identifier[0]
	}
	return fhir.Identifier{}
}

// ConvertAgentPerson maps an HL7v3 AgentPerson onto its FHIR resource set.
func ConvertAgentPerson(agentPerson *hl7v3.AgentPerson) *TranslatedAgent {
	practitioner := convertAgentPractitioner(agentPerson)

	role := &fhir.PractitionerRole{
		Base:         fhir.Base{ResourceType: "PractitionerRole", ID: uuid.NewString()},
		Identifier:   []fhir.Identifier{fhir.NewIdentifier(fhir.SystemSDSRoleProfileID, agentPerson.ID.Extension)},
		Practitioner: fhir.NewReference(practitioner.ID),
	}
	if agentPerson.Code.Code != "" {
		role.Code = []fhir.CodeableConcept{
			*fhir.NewCodeableConcept(fhir.SystemSDSJobRoleName, agentPerson.Code.Code, agentPerson.Code.DisplayName),
		}
	}
	for _, telecom := range agentPerson.Telecom {
		role.Telecom = append(role.Telecom, ConvertTelecom(telecom))
	}

	// A prescribing code on the nested person is a spurious code minted for
	// the role, not a registration held by the person, so it travels on the
	// PractitionerRole instead of the Practitioner.
	if person := agentPerson.AgentPerson; person != nil && person.ID.Root == hl7v3.OIDPrescribingCode {
		role.Identifier = append(role.Identifier, fhir.NewIdentifier(fhir.SystemSpuriousCode, person.ID.Extension))
	}

	translated := &TranslatedAgent{PractitionerRole: role, Practitioner: practitioner}
	convertAgentOrganization(translated, agentPerson.RepresentedOrganization)
	return translated
}

func convertAgentPractitioner(agentPerson *hl7v3.AgentPerson) *fhir.Practitioner {
	practitioner := &fhir.Practitioner{
		Base: fhir.Base{ResourceType: "Practitioner", ID: uuid.NewString()},
	}
	person := agentPerson.AgentPerson
	if person == nil {
		return practitioner
	}
	if person.ID.Extension != "" {
		switch person.ID.Root {
		case hl7v3.OIDProfessionalCode:
			practitioner.Identifier = []fhir.Identifier{
				fhir.NewIdentifier(fhir.SystemProfessionalCode, person.ID.Extension),
			}
		case hl7v3.OIDSDSUserID:
			practitioner.Identifier = []fhir.Identifier{
				fhir.NewIdentifier(fhir.SystemSDSUserID, person.ID.Extension),
			}
		}
	}
	if person.Name != nil {
		practitioner.Name = []fhir.HumanName{ConvertName(*person.Name)}
	}
	return practitioner
}

// convertAgentOrganization fills in the organisational half of the agent. A
// represented organisation carrying a healthCareProviderLicense is a cost
// centre: it becomes a HealthcareService provided by the licensing parent,
// with its address carried as a Location. Otherwise it maps directly onto an
// Organization.
func convertAgentOrganization(translated *TranslatedAgent, represented *hl7v3.Organization) {
	if represented == nil {
		return
	}
	license := represented.HealthCareProviderLicense
	if license == nil || license.Organization == nil {
		organization := convertOrganization(represented)
		translated.Organization = organization
		translated.PractitionerRole.Organization = fhir.NewReference(organization.ID)
		return
	}

	parent := convertOrganization(license.Organization)
	service := &fhir.HealthcareService{
		Base:       fhir.Base{ResourceType: "HealthcareService", ID: uuid.NewString()},
		Identifier: []fhir.Identifier{fhir.NewIdentifier(fhir.SystemODSOrganizationCode, represented.ID.Extension)},
		ProvidedBy: fhir.NewReference(parent.ID),
	}
	if represented.Name != nil {
		service.Name = represented.Name.Value
	}
	if represented.Telecom != nil {
		service.Telecom = []fhir.ContactPoint{ConvertTelecom(*represented.Telecom)}
	}
	if represented.Addr != nil {
		address := ConvertAddress(*represented.Addr)
		location := &fhir.Location{
			Base:    fhir.Base{ResourceType: "Location", ID: uuid.NewString()},
			Status:  "active",
			Mode:    "instance",
			Address: &address,
		}
		translated.Locations = append(translated.Locations, location)
		service.Location = []fhir.Reference{*fhir.NewReference(location.ID)}
	}

	translated.Organization = parent
	translated.HealthcareService = service
	translated.PractitionerRole.Organization = fhir.NewReference(parent.ID)
	translated.PractitionerRole.HealthcareService = []fhir.Reference{*fhir.NewReference(service.ID)}
}

func convertOrganization(organization *hl7v3.Organization) *fhir.Organization {
	converted := &fhir.Organization{
		Base:       fhir.Base{ResourceType: "Organization", ID: uuid.NewString()},
		Identifier: []fhir.Identifier{fhir.NewIdentifier(fhir.SystemODSOrganizationCode, organization.ID.Extension)},
	}
	if organization.Name != nil {
		converted.Name = organization.Name.Value
	}
	if organization.Telecom != nil {
		converted.Telecom = []fhir.ContactPoint{ConvertTelecom(*organization.Telecom)}
	}
	if organization.Addr != nil {
		converted.Address = []fhir.Address{ConvertAddress(*organization.Addr)}
	}
	return converted
}
