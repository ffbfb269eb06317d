package translate

import (
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// EPS extension URLs shared by both translation directions.
const (
	ExtensionPrescriptionID              = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-PrescriptionId"
	ExtensionPrescriptionType            = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-PrescriptionType"
	ExtensionPrescriptionStatusHistory   = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-PrescriptionStatusHistory"
	ExtensionResponsiblePractitioner     = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-ResponsiblePractitioner"
	ExtensionMedicationRepeatInformation = "https://fhir.nhs.uk/StructureDefinition/Extension-UKCore-MedicationRepeatInformation"
	ExtensionRepeatInformation           = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-RepeatInformation"
	ExtensionEPSPrescription             = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-Prescription"
	ExtensionPrescriptionEndorsement     = "https://fhir.nhs.uk/StructureDefinition/Extension-PrescriptionEndorsement"
	ExtensionControlledDrug              = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-ControlledDrug"
	ExtensionPerformerSiteType           = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-PerformerSiteType"
	ExtensionDispensingInformation       = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-DispensingInformation"
	ExtensionDispensingReleaseInformation = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-DispensingReleaseInformation"
	ExtensionTaskBusinessStatus          = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-TaskBusinessStatus"
	ExtensionTaskBusinessStatusReason    = "https://fhir.nhs.uk/StructureDefinition/Extension-EPS-TaskBusinessStatusReason"
	ExtensionReplacementOf               = "https://fhir.nhs.uk/StructureDefinition/Extension-replacementOf"
	ExtensionGroupIdentifier             = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-GroupIdentifier"
	ExtensionClaimSequenceIdentifier     = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-ClaimSequenceIdentifier"
	ExtensionClaimMedicationRequestReference = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-ClaimMedicationRequestReference"
	ExtensionDispenseWithdrawReason      = "https://fhir.nhs.uk/CodeSystem/EPS-task-dispense-withdraw-reason"
	ExtensionDispensingPerformer         = "https://fhir.nhs.uk/StructureDefinition/Extension-DM-DispensingPerformer"
	ExtensionSupportingInfoPrescription  = "https://fhir.nhs.uk/StructureDefinition/Extension-Spine-supportingInfo-prescription"
)

// LowercaseUUID normalises an HL7v3 UUID root for the FHIR side. Spine
// emits uppercase; FHIR identifiers are lowercase. Casing must otherwise be
// preserved exactly, so only ASCII letters are folded.
func LowercaseUUID(id string) string {
	return strings.ToLower(id)
}

// BuildGroupIdentifier pairs the short-form prescription id with its
// long-form UUID. The long form travels in the PrescriptionId extension and
// the two are never separated.
func BuildGroupIdentifier(shortFormID, longFormID string) *fhir.GroupIdentifier {
	return &fhir.GroupIdentifier{
		Extension: []fhir.Extension{{
			URL:             ExtensionPrescriptionID,
			ValueIdentifier: &fhir.Identifier{System: fhir.SystemUUID, Value: LowercaseUUID(longFormID)},
		}},
		System: fhir.SystemPrescriptionOrderNumber,
		Value:  shortFormID,
	}
}

// GroupIdentifierParts extracts the short-form and long-form ids back out
// of a group identifier.
func GroupIdentifierParts(groupIdentifier *fhir.GroupIdentifier) (shortFormID, longFormID string, err error) {
	if groupIdentifier == nil {
		return "", "", fhir.NewTooFewValuesError("Required field groupIdentifier is missing.", "MedicationRequest.groupIdentifier")
	}
	extension, err := fhir.ExtensionForURL(groupIdentifier.Extension, ExtensionPrescriptionID, "MedicationRequest.groupIdentifier.extension")
	if err != nil {
		return "", "", err
	}
	if extension.ValueIdentifier == nil {
		return "", "", fhir.NewTooFewValuesError("PrescriptionId extension is missing its valueIdentifier.", "MedicationRequest.groupIdentifier.extension")
	}
	return groupIdentifier.Value, extension.ValueIdentifier.Value, nil
}

// IdentifiersFromHL7 converts an HL7v3 II to a FHIR identifier for a known
// system URI.
func IdentifiersFromHL7(identifier hl7v3.Identifier, system string) fhir.Identifier {
	value := identifier.Extension
	if value == "" {
		value = LowercaseUUID(identifier.Root)
	}
	return fhir.Identifier{System: system, Value: value}
}
