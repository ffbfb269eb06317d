package request

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// agentPersonIDSelector picks the identifier carried on the nested
// agentPerson element. Authors carry a professional code; responsible
// parties prefer a prescribing code when one is present.
type agentPersonIDSelector func(practitionerIdentifiers, roleIdentifiers []fhir.Identifier) (hl7v3.Identifier, error)

// ConvertAuthor builds the document author from the requester's
// PractitionerRole. When withSignature is set the requester's Provenance
// signature is decoded and attached; otherwise, and when no signature is
// present, the signing time defaults to now with a not-applicable
// signatureText.
func ConvertAuthor(bundle *fhir.Bundle, medicationRequest *fhir.MedicationRequest, withSignature bool) (*hl7v3.Author, error) {
	agentPerson, err := convertPractitionerRoleReference(bundle, medicationRequest.Requester, AgentPersonIDForAuthor)
	if err != nil {
		return nil, err
	}
	author := hl7v3.NewAuthor(agentPerson)

	var signature *fhir.Signature
	if withSignature {
		signature, err = findRequesterSignature(bundle, medicationRequest.Requester)
		if err != nil {
			return nil, err
		}
	}
	if signature != nil {
		signingTime, err := translate.ConvertISODateTimeToHL7(signature.When)
		if err != nil {
			return nil, fhir.NewInvalidValueError(err.Error(), "Provenance.signature.when")
		}
		author.Time = &signingTime
		signatureText, err := decodeSignatureText(signature.Data)
		if err != nil {
			return nil, fhir.NewInvalidValueError("Invalid signature format.", "Provenance.signature.data")
		}
		author.SignatureText = signatureText
	} else {
		now := translate.Now()
		author.Time = &now
		author.SignatureText = hl7v3.NewNotApplicableSignatureText()
	}
	return author, nil
}

func decodeSignatureText(data string) (*hl7v3.SignatureText, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	var signature hl7v3.Signature
	if err := xml.Unmarshal(decoded, &signature); err != nil {
		return nil, err
	}
	return &hl7v3.SignatureText{Signature: &signature}, nil
}

func findRequesterSignature(bundle *fhir.Bundle, requester *fhir.Reference) (*fhir.Signature, error) {
	var matches []*fhir.Signature
	for _, provenance := range fhir.ResourcesOfType[*fhir.Provenance](bundle) {
		for i := range provenance.Signature {
			signature := &provenance.Signature[i]
			if signature.Who != nil && requester != nil && signature.Who.Reference == requester.Reference {
				matches = append(matches, signature)
			}
		}
	}
	if len(matches) > 1 {
		return nil, fhir.NewTooManyValuesError(
			fmt.Sprintf("Expected at most one signature for requester %q.", requester.Reference),
			"Provenance.signature",
		)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// ConvertResponsibleParty builds the responsible party from the
// ResponsiblePractitioner extension when present, falling back to the
// requester.
func ConvertResponsibleParty(bundle *fhir.Bundle, medicationRequest *fhir.MedicationRequest) (*hl7v3.ResponsibleParty, error) {
	reference := medicationRequest.Requester
	if extension := fhir.ExtensionForURLOrNil(medicationRequest.Extension, translate.ExtensionResponsiblePractitioner); extension != nil {
		reference = extension.ValueReference
	}
	agentPerson, err := convertPractitionerRoleReference(bundle, reference, AgentPersonIDForResponsibleParty)
	if err != nil {
		return nil, err
	}
	return hl7v3.NewResponsibleParty(agentPerson), nil
}

func convertPractitionerRoleReference(bundle *fhir.Bundle, reference *fhir.Reference, selectID agentPersonIDSelector) (*hl7v3.AgentPerson, error) {
	if reference == nil {
		return nil, fhir.NewTooFewValuesError("Required field requester is missing.", "MedicationRequest.requester")
	}
	resolved := fhir.ResolveReference(bundle, reference)
	practitionerRole, ok := resolved.(*fhir.PractitionerRole)
	if !ok {
		return nil, fhir.NewInvalidValueError(
			fmt.Sprintf("Could not resolve reference %q to a PractitionerRole.", reference.Reference),
			"MedicationRequest.requester",
		)
	}
	return ConvertPractitionerRole(bundle, practitionerRole, selectID)
}

// ConvertPractitionerRole maps the Practitioner, PractitionerRole and
// Organization triad onto an AgentPerson.
func ConvertPractitionerRole(bundle *fhir.Bundle, practitionerRole *fhir.PractitionerRole, selectID agentPersonIDSelector) (*hl7v3.AgentPerson, error) {
	practitioner, err := resolvePractitioner(bundle, practitionerRole)
	if err != nil {
		return nil, err
	}

	roleProfileID, err := fhir.IdentifierValueForSystem(
		practitionerRole.Identifier, fhir.SystemSDSRoleProfileID, "PractitionerRole.identifier")
	if err != nil {
		return nil, err
	}
	jobRole, err := jobRoleCoding(practitionerRole.Code)
	if err != nil {
		return nil, err
	}

	agentPerson := hl7v3.NewAgentPerson(roleProfileID, hl7v3.NewJobRoleCode(jobRole.Code, jobRole.Display))

	agentPerson.Telecom, err = agentPersonTelecom(practitionerRole.Telecom, practitioner.Telecom)
	if err != nil {
		return nil, err
	}

	agentPerson.AgentPerson, err = convertAgentPersonPerson(practitionerRole, practitioner, selectID)
	if err != nil {
		return nil, err
	}

	agentPerson.RepresentedOrganization, err = convertRepresentedOrganization(bundle, practitionerRole)
	if err != nil {
		return nil, err
	}
	return agentPerson, nil
}

func jobRoleCoding(concepts []fhir.CodeableConcept) (*fhir.Coding, error) {
	for i := range concepts {
		if coding := fhir.CodingForSystem(&concepts[i], fhir.SystemSDSJobRoleName); coding != nil {
			return coding, nil
		}
		if coding := fhir.CodingForSystem(&concepts[i], fhir.SystemSDSJobRoleCode); coding != nil {
			return coding, nil
		}
	}
	return nil, fhir.NewTooFewValuesError("Expected a SDS job role code.", "PractitionerRole.code")
}

type practitionerTelecoms struct {
	telecoms []fhir.ContactPoint
	path     string
}

func agentPersonTelecom(roleTelecoms, practitionerTelecomList []fhir.ContactPoint) ([]hl7v3.Telecom, error) {
	sources := []practitionerTelecoms{
		{roleTelecoms, "PractitionerRole.telecom"},
		{practitionerTelecomList, "Practitioner.telecom"},
	}
	for _, source := range sources {
		if len(source.telecoms) == 0 {
			continue
		}
		converted := make([]hl7v3.Telecom, 0, len(source.telecoms))
		for _, telecom := range source.telecoms {
			hl7Telecom, err := ConvertTelecom(telecom, source.path)
			if err != nil {
				return nil, err
			}
			converted = append(converted, hl7Telecom)
		}
		return converted, nil
	}
	return nil, nil
}

func resolvePractitioner(bundle *fhir.Bundle, practitionerRole *fhir.PractitionerRole) (*fhir.Practitioner, error) {
	if practitionerRole.Practitioner == nil {
		return nil, fhir.NewTooFewValuesError("Required field practitioner is missing.", "PractitionerRole.practitioner")
	}
	resolved := fhir.ResolveReference(bundle, practitionerRole.Practitioner)
	practitioner, ok := resolved.(*fhir.Practitioner)
	if !ok {
		return nil, fhir.NewInvalidValueError(
			fmt.Sprintf("Could not resolve reference %q to a Practitioner.", practitionerRole.Practitioner.Reference),
			"PractitionerRole.practitioner",
		)
	}
	return practitioner, nil
}

func convertAgentPersonPerson(practitionerRole *fhir.PractitionerRole, practitioner *fhir.Practitioner, selectID agentPersonIDSelector) (*hl7v3.AgentPersonPerson, error) {
	id, err := selectID(practitioner.Identifier, practitionerRole.Identifier)
	if err != nil {
		return nil, err
	}
	agentPersonPerson := &hl7v3.AgentPersonPerson{
		ClassCode:      "PSN",
		DeterminerCode: "INSTANCE",
		ID:             id,
	}
	if len(practitioner.Name) > 0 {
		if len(practitioner.Name) > 1 {
			return nil, fhir.NewTooManyValuesError("Expected exactly one name.", "Practitioner.name")
		}
		agentPersonPerson.Name, err = ConvertName(practitioner.Name[0], "Practitioner.name")
		if err != nil {
			return nil, err
		}
	}
	return agentPersonPerson, nil
}

// AgentPersonIDForAuthor selects the author's single professional
// registration code. Exactly one of GMC, GMP, NMC, GPhC, HCPC or the generic
// professional code must be present.
func AgentPersonIDForAuthor(practitionerIdentifiers, _ []fhir.Identifier) (hl7v3.Identifier, error) {
	systems := []string{
		fhir.SystemGMCNumber,
		fhir.SystemGMPNumber,
		fhir.SystemNMCNumber,
		fhir.SystemGPhCNumber,
		fhir.SystemHCPCNumber,
		fhir.SystemProfessionalCode,
	}
	var codes []string
	for _, system := range systems {
		if value := fhir.IdentifierValueForSystemOrEmpty(practitionerIdentifiers, system); value != "" {
			codes = append(codes, value)
		}
	}
	if len(codes) == 1 {
		return hl7v3.NewProfessionalCode(codes[0]), nil
	}

	message := "Expected exactly one professional code. One of GMC|GMP|NMC|GPhC|HCPC|unknown."
	if len(codes) > 1 {
		return hl7v3.Identifier{}, fhir.NewTooManyValuesError(
			fmt.Sprintf("%s But got: %s", message, strings.Join(codes, ", ")), "Practitioner.identifier")
	}
	return hl7v3.Identifier{}, fhir.NewTooFewValuesError(message, "Practitioner.identifier")
}

// AgentPersonIDForResponsibleParty prefers a spurious code from the role,
// then a DIN from the practitioner, then the author's professional code.
func AgentPersonIDForResponsibleParty(practitionerIdentifiers, roleIdentifiers []fhir.Identifier) (hl7v3.Identifier, error) {
	if spurious := fhir.IdentifierValueForSystemOrEmpty(roleIdentifiers, fhir.SystemSpuriousCode); spurious != "" {
		return hl7v3.NewPrescribingCode(spurious), nil
	}
	if din := fhir.IdentifierValueForSystemOrEmpty(practitionerIdentifiers, fhir.SystemDINNumber); din != "" {
		return hl7v3.NewPrescribingCode(din), nil
	}
	return AgentPersonIDForAuthor(practitionerIdentifiers, roleIdentifiers)
}

func convertRepresentedOrganization(bundle *fhir.Bundle, practitionerRole *fhir.PractitionerRole) (*hl7v3.Organization, error) {
	if practitionerRole.Organization == nil {
		return nil, fhir.NewTooFewValuesError("Required field organization is missing.", "PractitionerRole.organization")
	}
	resolved := fhir.ResolveReference(bundle, practitionerRole.Organization)
	organization, ok := resolved.(*fhir.Organization)
	if !ok {
		return nil, fhir.NewInvalidValueError(
			fmt.Sprintf("Could not resolve reference %q to an Organization.", practitionerRole.Organization.Reference),
			"PractitionerRole.organization",
		)
	}

	var healthcareService *fhir.HealthcareService
	if len(practitionerRole.HealthcareService) > 0 {
		if len(practitionerRole.HealthcareService) > 1 {
			return nil, fhir.NewTooManyValuesError("Expected at most one healthcare service.", "PractitionerRole.healthcareService")
		}
		resolvedService := fhir.ResolveReference(bundle, &practitionerRole.HealthcareService[0])
		service, ok := resolvedService.(*fhir.HealthcareService)
		if !ok {
			return nil, fhir.NewInvalidValueError(
				fmt.Sprintf("Could not resolve reference %q to a HealthcareService.", practitionerRole.HealthcareService[0].Reference),
				"PractitionerRole.healthcareService",
			)
		}
		healthcareService = service
	}
	return ConvertOrganizationAndProviderLicense(organization, healthcareService)
}

// ConvertOrganizationAndProviderLicense builds the represented organization.
// When the role acts through a healthcare service, the service becomes the
// represented organization and the employing organization is carried as its
// health care provider license.
func ConvertOrganizationAndProviderLicense(organization *fhir.Organization, healthcareService *fhir.HealthcareService) (*hl7v3.Organization, error) {
	parent, err := convertOrganization(organization)
	if err != nil {
		return nil, err
	}
	if healthcareService == nil {
		return parent, nil
	}

	odsCode, err := fhir.IdentifierValueForSystem(
		healthcareService.Identifier, fhir.SystemODSOrganizationCode, "HealthcareService.identifier")
	if err != nil {
		return nil, err
	}
	represented := hl7v3.NewOrganization(odsCode, healthcareService.Name)
	if err := setOrganizationContactDetails(represented, healthcareService.Telecom, nil, "HealthcareService"); err != nil {
		return nil, err
	}
	represented.HealthCareProviderLicense = hl7v3.NewHealthCareProviderLicense(parent)
	return represented, nil
}

func convertOrganization(organization *fhir.Organization) (*hl7v3.Organization, error) {
	odsCode, err := fhir.IdentifierValueForSystem(
		organization.Identifier, fhir.SystemODSOrganizationCode, "Organization.identifier")
	if err != nil {
		return nil, err
	}
	converted := hl7v3.NewOrganization(odsCode, organization.Name)
	if err := setOrganizationContactDetails(converted, organization.Telecom, organization.Address, "Organization"); err != nil {
		return nil, err
	}
	return converted, nil
}

func setOrganizationContactDetails(organization *hl7v3.Organization, telecoms []fhir.ContactPoint, addresses []fhir.Address, path string) error {
	if len(telecoms) > 0 {
		telecom, err := ConvertTelecom(telecoms[0], path+".telecom")
		if err != nil {
			return err
		}
		organization.Telecom = &telecom
	}
	if len(addresses) > 0 {
		address, err := ConvertAddress(addresses[0], path+".address")
		if err != nil {
			return err
		}
		organization.Addr = &address
	}
	return nil
}
