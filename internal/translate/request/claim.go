package request

import (
	"fmt"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const (
	systemChargeExemption         = "https://fhir.nhs.uk/CodeSystem/prescription-charge-exemption"
	systemExemptionEvidence       = "https://fhir.nhs.uk/CodeSystem/DM-exemption-evidence"
	systemPrescriptionCharge      = "https://fhir.nhs.uk/CodeSystem/DM-prescription-charge"
	systemDispenseEndorsement     = "https://fhir.nhs.uk/CodeSystem/medicationdispense-endorsement"
	systemMedicationDispenseType  = "https://fhir.nhs.uk/CodeSystem/medicationdispense-type"
	chargeExemptionCodeNotExempt  = "0001"
	exemptionEvidenceSeen         = "evidence-seen"
)

// ConvertDispenseClaim builds the reimbursement claim document from a FHIR
// Claim. The claim carries its dispensing PractitionerRole as a contained
// resource referenced by Claim.provider.
func ConvertDispenseClaim(claim *fhir.Claim) (*hl7v3.DispenseClaim, error) {
	messageID, err := messageIDFromIdentifiers(claim.Identifier, "Claim.identifier")
	if err != nil {
		return nil, err
	}
	now := translate.Now()
	document := hl7v3.NewDispenseClaim(messageID, now)

	if len(claim.Insurance) != 1 {
		return nil, fhir.NewTooFewValuesError("Expected exactly one insurance entry.", "Claim.insurance")
	}
	agentOrganization, err := agentOrganizationFromReference(claim.Insurance[0].Coverage, "Claim.insurance.coverage")
	if err != nil {
		return nil, err
	}
	document.PrimaryInformationRecipient = hl7v3.NewPrimaryInformationRecipient(agentOrganization)

	if len(claim.Item) != 1 {
		return nil, fhir.NewTooFewValuesError("Expected exactly one item.", "Claim.item")
	}
	item := &claim.Item[0]

	document.PertinentInformation1, err = convertClaimSupplyHeader(claim, item, messageID, now)
	if err != nil {
		return nil, err
	}

	if replacement := fhir.ExtensionForURLOrNil(claim.Extension, translate.ExtensionReplacementOf); replacement != nil {
		if replacement.ValueIdentifier == nil {
			return nil, fhir.NewTooFewValuesError(
				"ReplacementOf extension is missing its valueIdentifier.", "Claim.extension")
		}
		document.ReplacementOf = hl7v3.NewReplacementOf(replacement.ValueIdentifier.Value)
	}

	document.CoverageOf, err = convertChargeExemption(item)
	if err != nil {
		return nil, err
	}

	releaseEventID, err := claimReleaseEventID(claim)
	if err != nil {
		return nil, err
	}
	document.SequelTo = hl7v3.NewSequelTo(releaseEventID)

	return document, nil
}

func convertClaimSupplyHeader(claim *fhir.Claim, item *fhir.ClaimItem, messageID string, timestamp hl7v3.Timestamp) (*hl7v3.DispenseClaimPertinentInformation1, error) {
	supplyHeader := hl7v3.NewDispenseClaimSupplyHeader(messageID)

	legalAuthenticator, err := convertClaimLegalAuthenticator(claim, timestamp)
	if err != nil {
		return nil, err
	}
	supplyHeader.LegalAuthenticator = legalAuthenticator

	status, err := claimBusinessStatus(item.Extension, "Claim.item.extension")
	if err != nil {
		return nil, err
	}
	supplyHeader.PertinentInformation3 = hl7v3.NewSupplyHeaderPertinentInformation3(status.Code, status.Display)

	for i := range item.Detail {
		lineItem, err := convertClaimSuppliedLineItem(&item.Detail[i])
		if err != nil {
			return nil, err
		}
		supplyHeader.PertinentInformation1 = append(supplyHeader.PertinentInformation1,
			hl7v3.NewDispenseClaimPertinentSuppliedLineItem(lineItem))
	}

	shortFormID, longFormID, err := claimGroupIdentifierParts(claim)
	if err != nil {
		return nil, err
	}
	supplyHeader.PertinentInformation4 = hl7v3.NewSupplyHeaderPertinentInformation4(shortFormID)
	supplyHeader.InFulfillmentOf = hl7v3.NewInFulfillmentOf(hl7v3.NewGlobalIdentifier(longFormID))

	return hl7v3.NewDispenseClaimPertinentInformation1(supplyHeader), nil
}

// convertClaimLegalAuthenticator resolves the contained PractitionerRole
// referenced by Claim.provider. The claim is not signed, so the signature
// text carries a not-applicable null flavor.
func convertClaimLegalAuthenticator(claim *fhir.Claim, timestamp hl7v3.Timestamp) (*hl7v3.LegalAuthenticator, error) {
	if claim.Provider == nil {
		return nil, fhir.NewTooFewValuesError("Required field provider is missing.", "Claim.provider")
	}
	practitionerRole, err := containedPractitionerRole(claim.Contained, claim.Provider, "Claim.provider")
	if err != nil {
		return nil, err
	}
	agentPerson, err := convertDispenseAgentPerson(practitionerRole, nil, "Claim.contained(\"PractitionerRole\")")
	if err != nil {
		return nil, err
	}
	legalAuthenticator := hl7v3.NewLegalAuthenticator(agentPerson)
	legalAuthenticator.Time = &timestamp
	legalAuthenticator.SignatureText = hl7v3.NewNotApplicableSignatureText()
	return legalAuthenticator, nil
}

func claimBusinessStatus(extensions []fhir.Extension, path string) (*fhir.Coding, error) {
	extension, err := fhir.ExtensionForURL(extensions, translate.ExtensionTaskBusinessStatus, path)
	if err != nil {
		return nil, err
	}
	if extension.ValueCoding == nil {
		return nil, fhir.NewTooFewValuesError("TaskBusinessStatus extension is missing its valueCoding.", path)
	}
	return extension.ValueCoding, nil
}

func convertClaimSuppliedLineItem(detail *fhir.ClaimItemDetail) (*hl7v3.ClaimSuppliedLineItem, error) {
	sequenceExtension, err := fhir.ExtensionForURL(detail.Extension,
		translate.ExtensionClaimSequenceIdentifier, "Claim.item.detail.extension")
	if err != nil {
		return nil, err
	}
	if sequenceExtension.ValueIdentifier == nil {
		return nil, fhir.NewTooFewValuesError(
			"ClaimSequenceIdentifier extension is missing its valueIdentifier.", "Claim.item.detail.extension")
	}
	lineItem := hl7v3.NewClaimSuppliedLineItem(sequenceExtension.ValueIdentifier.Value)

	if len(detail.SubDetail) == 0 {
		return nil, fhir.NewTooFewValuesError("Expected at least one subDetail.", "Claim.item.detail.subDetail")
	}
	for i := range detail.SubDetail {
		component, err := convertClaimLineItemComponent(&detail.SubDetail[i])
		if err != nil {
			return nil, err
		}
		lineItem.Component = append(lineItem.Component, component)
	}

	chargePaid, err := chargePaidForSubDetail(&detail.SubDetail[0])
	if err != nil {
		return nil, err
	}
	lineItem.PertinentInformation1 = hl7v3.NewClaimLineItemPertinentInformation1(chargePaid)

	for _, endorsement := range endorsementCodings(&detail.SubDetail[0]) {
		lineItem.PertinentInformation2 = append(lineItem.PertinentInformation2,
			hl7v3.NewClaimLineItemPertinentInformation2(
				hl7v3.Code{CodeSystem: hl7v3.OIDDispensingEndorsement, Code: endorsement.Code}, ""))
	}

	itemStatus, err := itemStatusCoding(detail.Modifier)
	if err != nil {
		return nil, err
	}
	lineItem.PertinentInformation3 = hl7v3.NewLineItemPertinentInformation4(itemStatus.Code, itemStatus.Display)

	requestReference, err := fhir.ExtensionForURL(detail.Extension,
		translate.ExtensionClaimMedicationRequestReference, "Claim.item.detail.extension")
	if err != nil {
		return nil, err
	}
	if requestReference.ValueReference == nil || requestReference.ValueReference.Identifier == nil {
		return nil, fhir.NewTooFewValuesError(
			"ClaimMedicationRequestReference extension is missing its identifier reference.",
			"Claim.item.detail.extension")
	}
	lineItem.InFulfillmentOf = hl7v3.NewInFulfillmentOf(
		hl7v3.NewGlobalIdentifier(requestReference.ValueReference.Identifier.Value))

	return lineItem, nil
}

func convertClaimLineItemComponent(subDetail *fhir.ClaimItemSubDetail) (hl7v3.ClaimSuppliedLineItemComponent, error) {
	if subDetail.Quantity == nil {
		return hl7v3.ClaimSuppliedLineItemComponent{}, fhir.NewTooFewValuesError(
			"Required field quantity is missing.", "Claim.item.detail.subDetail.quantity")
	}
	medication := fhir.CodingForSystem(subDetail.ProductOrService, fhir.SystemSNOMED)
	if medication == nil {
		return hl7v3.ClaimSuppliedLineItemComponent{}, fhir.NewTooFewValuesError(
			"Expected a SNOMED product coding.", "Claim.item.detail.subDetail.productOrService")
	}
	quantity := hl7v3.NewQuantityInAlternativeUnits(
		translate.NumericValueAsString(subDetail.Quantity.Value), subDetail.Quantity.Code, subDetail.Quantity.Unit)
	return hl7v3.NewClaimSuppliedLineItemComponent(quantity,
		hl7v3.NewSnomedCode(medication.Code, medication.Display)), nil
}

func chargePaidForSubDetail(subDetail *fhir.ClaimItemSubDetail) (bool, error) {
	coding := programCodeCoding(subDetail.ProgramCode, systemPrescriptionCharge)
	if coding == nil {
		return false, fhir.NewTooFewValuesError(
			"Expected a prescription charge code.", "Claim.item.detail.subDetail.programCode")
	}
	switch coding.Code {
	case "paid-once", "paid-twice":
		return true, nil
	case "not-paid":
		return false, nil
	default:
		return false, fhir.NewInvalidValueError(
			"Unsupported prescription charge code", "Claim.item.detail.subDetail.programCode")
	}
}

func endorsementCodings(subDetail *fhir.ClaimItemSubDetail) []fhir.Coding {
	var codings []fhir.Coding
	for i := range subDetail.ProgramCode {
		for _, coding := range subDetail.ProgramCode[i].Coding {
			if coding.System == systemDispenseEndorsement {
				codings = append(codings, coding)
			}
		}
	}
	return codings
}

func itemStatusCoding(modifiers []fhir.CodeableConcept) (*fhir.Coding, error) {
	for i := range modifiers {
		if coding := fhir.CodingForSystem(&modifiers[i], systemMedicationDispenseType); coding != nil {
			return coding, nil
		}
	}
	return nil, fhir.NewTooFewValuesError(
		"Expected a medication dispense type coding.", "Claim.item.detail.modifier")
}

func programCodeCoding(concepts []fhir.CodeableConcept, system string) *fhir.Coding {
	for i := range concepts {
		if coding := fhir.CodingForSystem(&concepts[i], system); coding != nil {
			return coding
		}
	}
	return nil
}

func convertChargeExemption(item *fhir.ClaimItem) (*hl7v3.CoverageOf, error) {
	exemption := programCodeCoding(item.ProgramCode, systemChargeExemption)
	if exemption == nil {
		return nil, nil
	}
	exempt := exemption.Code != chargeExemptionCodeNotExempt
	evidenceSeen := false
	if evidence := programCodeCoding(item.ProgramCode, systemExemptionEvidence); evidence != nil {
		evidenceSeen = evidence.Code == exemptionEvidenceSeen
	}
	return hl7v3.NewCoverageOf(exempt,
		hl7v3.Code{CodeSystem: hl7v3.OIDChargeExemption, Code: exemption.Code}, evidenceSeen), nil
}

// claimReleaseEventID reads the release event the dispense being claimed for
// was authorised by.
func claimReleaseEventID(claim *fhir.Claim) (string, error) {
	extension, err := fhir.ExtensionForURL(claim.Extension,
		translate.ExtensionDispensingReleaseInformation, "Claim.extension")
	if err != nil {
		return "", err
	}
	if extension.ValueIdentifier == nil {
		return "", fhir.NewTooFewValuesError(
			"DispensingReleaseInformation extension is missing its valueIdentifier.", "Claim.extension")
	}
	return extension.ValueIdentifier.Value, nil
}

func claimGroupIdentifierParts(claim *fhir.Claim) (shortFormID, longFormID string, err error) {
	if claim.Prescription == nil {
		return "", "", fhir.NewTooFewValuesError("Required field prescription is missing.", "Claim.prescription")
	}
	groupIdentifier, err := fhir.ExtensionForURL(claim.Prescription.Extension,
		translate.ExtensionGroupIdentifier, "Claim.prescription.extension")
	if err != nil {
		return "", "", err
	}
	shortFormID, err = groupIdentifierPart(groupIdentifier, "shortForm")
	if err != nil {
		return "", "", err
	}
	longFormID, err = groupIdentifierPart(groupIdentifier, "UUID")
	if err != nil {
		return "", "", err
	}
	return shortFormID, longFormID, nil
}

func groupIdentifierPart(groupIdentifier *fhir.Extension, name string) (string, error) {
	path := fmt.Sprintf("Claim.prescription.extension(%q).extension", translate.ExtensionGroupIdentifier)
	part, err := fhir.ExtensionForURL(groupIdentifier.Extension, name, path)
	if err != nil {
		return "", err
	}
	if part.ValueIdentifier == nil {
		return "", fhir.NewTooFewValuesError(
			fmt.Sprintf("Extension %q is missing its valueIdentifier.", name), path)
	}
	return part.ValueIdentifier.Value, nil
}
