package response

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// supportedReleaseComponent is the only ParentPrescription message template
// released prescriptions arrive under.
const supportedReleaseComponent = "PORX_MT122003UK32"

// returnReasonInvalidSignature is the reason carried on the
// DispenseProposalReturn sent for prescriptions that fail verification.
var returnReasonInvalidSignature = hl7v3.Code{
	CodeSystem:  hl7v3.OIDReturnReason,
	Code:        "0005",
	DisplayName: "Invalid digital signature",
}

// SignatureVerifier checks one released prescription's signature. An empty
// result means the signature is fully valid.
type SignatureVerifier interface {
	VerifyPrescriptionSignature(ctx context.Context, parentPrescription *hl7v3.ParentPrescription) []string
}

// TranslatedReleaseResponse splits a release response into the
// prescriptions whose signatures verified and those that did not. Each
// failed prescription also yields a DispenseProposalReturn to send back to
// Spine.
type TranslatedReleaseResponse struct {
	PassedPrescriptions *fhir.Bundle
	FailedPrescriptions *fhir.Bundle
	Returns             []*hl7v3.DispenseProposalReturn
}

// Parameters renders the split as the $release operation response.
func (t *TranslatedReleaseResponse) Parameters() *fhir.Parameters {
	return &fhir.Parameters{
		Base: fhir.Base{ResourceType: "Parameters", ID: uuid.NewString()},
		Parameter: []fhir.Parameter{
			{Name: "passedPrescriptions", Resource: t.PassedPrescriptions},
			{Name: "failedPrescriptions", Resource: t.FailedPrescriptions},
		},
	}
}

// TranslateReleaseResponse verifies and translates every prescription in a
// release response. Prescriptions are evaluated independently: a
// verification failure, a translation failure or a panic affecting one
// prescription routes only that prescription to the failed set.
func TranslateReleaseResponse(ctx context.Context, releaseResponse *hl7v3.PrescriptionReleaseResponse, verifier SignatureVerifier, logger zerolog.Logger) (*TranslatedReleaseResponse, error) {
	lastUpdated, err := translate.ConvertHL7DateTimeToISO(releaseResponse.EffectiveTime)
	if err != nil {
		return nil, err
	}
	releaseRequestID := ""
	if fulfillment := releaseResponse.InFulfillmentOf; fulfillment != nil && fulfillment.PriorDownloadRequestRef != nil {
		releaseRequestID = fulfillment.PriorDownloadRequestRef.ID.Root
	}

	translated := &TranslatedReleaseResponse{
		PassedPrescriptions: newSearchsetBundle(releaseResponse.ID.Root, lastUpdated),
		FailedPrescriptions: newSearchsetBundle(releaseResponse.ID.Root, lastUpdated),
	}

	for _, component := range releaseResponse.Component {
		if component.TemplateID.Extension != supportedReleaseComponent || component.ParentPrescription == nil {
			continue
		}
		parentPrescription := component.ParentPrescription

		verificationErrors := verifyContained(ctx, verifier, parentPrescription, logger)
		if len(verificationErrors) == 0 {
			innerBundle, err := CreateInnerBundle(parentPrescription, releaseRequestID)
			if err == nil {
				translated.addPassed(innerBundle)
				continue
			}
			logger.Error().Err(err).
				Str("prescription_id", parentPrescription.ID.Root).
				Msg("could not translate released prescription")
		}
		translated.addFailed(releaseResponse, parentPrescription)
	}

	recountTotals(translated.PassedPrescriptions)
	recountTotals(translated.FailedPrescriptions)
	return translated, nil
}

// verifyContained runs signature verification for one prescription,
// containing any panic so that sibling prescriptions are unaffected. A
// panic conservatively counts as a verification failure.
func verifyContained(ctx context.Context, verifier SignatureVerifier, parentPrescription *hl7v3.ParentPrescription, logger zerolog.Logger) (result []string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Msg(fmt.Sprintf(
				"[Verifying signature for prescription ID %s]: %v", parentPrescription.ID.Root, recovered))
			result = []string{"Verification failed"}
		}
	}()
	return verifier.VerifyPrescriptionSignature(ctx, parentPrescription)
}

func newSearchsetBundle(responseID, lastUpdated string) *fhir.Bundle {
	return &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Meta:         &fhir.Meta{LastUpdated: lastUpdated},
		Identifier: &fhir.Identifier{
			System: fhir.SystemUUID,
			Value:  translate.LowercaseUUID(responseID),
		},
		Type: "searchset",
	}
}

func (t *TranslatedReleaseResponse) addPassed(innerBundle *fhir.Bundle) {
	t.PassedPrescriptions.Entry = append(t.PassedPrescriptions.Entry,
		fhir.ConvertResourceToBundleEntry(innerBundle))
}

// addFailed records one failed prescription: an OperationOutcome
// referencing the prescription's bundle identifier, and a return document
// reversing its release.
func (t *TranslatedReleaseResponse) addFailed(releaseResponse *hl7v3.PrescriptionReleaseResponse, parentPrescription *hl7v3.ParentPrescription) {
	outcome := &fhir.OperationOutcome{
		Base: fhir.Base{ResourceType: "OperationOutcome", ID: uuid.NewString()},
		Extension: []fhir.Extension{{
			URL: translate.ExtensionSupportingInfoPrescription,
			ValueReference: &fhir.Reference{Identifier: &fhir.Identifier{
				System: fhir.SystemUUID,
				Value:  translate.LowercaseUUID(parentPrescription.ID.Root),
			}},
		}},
		Issue: []fhir.OperationOutcomeIssue{{
			Severity: "error",
			Code:     "invalid",
			Details: &fhir.CodeableConcept{Coding: []fhir.Coding{{
				System:  fhir.SystemSpineError,
				Code:    fhir.ErrorCodeInvalidValue,
				Display: "Signature is invalid.",
			}}},
			Expression: []string{"Provenance.signature.data"},
		}},
	}
	t.FailedPrescriptions.Entry = append(t.FailedPrescriptions.Entry,
		fhir.ConvertResourceToBundleEntry(outcome))
	t.Returns = append(t.Returns, buildReturnForFailedPrescription(releaseResponse, parentPrescription))
}

func buildReturnForFailedPrescription(releaseResponse *hl7v3.PrescriptionReleaseResponse, parentPrescription *hl7v3.ParentPrescription) *hl7v3.DispenseProposalReturn {
	proposalReturn := hl7v3.NewDispenseProposalReturn(uuid.NewString(), translate.Now())
	if shortFormID := prescriptionShortFormID(parentPrescription); shortFormID != "" {
		proposalReturn.PertinentInformation1 = hl7v3.NewDispenseProposalReturnPertinentInformation1(shortFormID)
	}
	proposalReturn.PertinentInformation3 = hl7v3.NewDispenseProposalReturnPertinentInformation3(returnReasonInvalidSignature)
	proposalReturn.ReversalOf = hl7v3.NewReversalOf(releaseResponse.ID.Root)
	return proposalReturn
}

func prescriptionShortFormID(parentPrescription *hl7v3.ParentPrescription) string {
	information := parentPrescription.PertinentInformation1
	if information == nil || information.PertinentPrescription == nil {
		return ""
	}
	for _, id := range information.PertinentPrescription.ID {
		if id.Root == hl7v3.OIDShortFormPrescriptionID {
			return id.Extension
		}
	}
	return ""
}

func recountTotals(bundle *fhir.Bundle) {
	total := len(bundle.Entry)
	bundle.Total = &total
}

// CreateInnerBundle translates one released ParentPrescription into a FHIR
// prescription-order message bundle.
func CreateInnerBundle(parentPrescription *hl7v3.ParentPrescription, releaseRequestID string) (*fhir.Bundle, error) {
	lastUpdated, err := translate.ConvertHL7DateTimeToISO(parentPrescription.EffectiveTime)
	if err != nil {
		return nil, err
	}
	resources, err := createBundleResources(parentPrescription, releaseRequestID)
	if err != nil {
		return nil, err
	}

	bundle := &fhir.Bundle{
		ResourceType: "Bundle",
		ID:           uuid.NewString(),
		Meta:         &fhir.Meta{LastUpdated: lastUpdated},
		Identifier: &fhir.Identifier{
			System: fhir.SystemUUID,
			Value:  translate.LowercaseUUID(parentPrescription.ID.Root),
		},
		Type: "message",
	}
	for _, resource := range resources {
		bundle.Entry = append(bundle.Entry, fhir.ConvertResourceToBundleEntry(resource))
	}
	return bundle, nil
}

// createBundleResources assembles the message bundle contents: the
// MessageHeader first, then the patient, the prescribing agents, any
// patient-facing instructions, the medication requests, and finally the
// signature Provenance.
func createBundleResources(parentPrescription *hl7v3.ParentPrescription, releaseRequestID string) ([]fhir.Resource, error) {
	if parentPrescription.RecordTarget == nil || parentPrescription.RecordTarget.Patient == nil {
		return nil, fhir.NewTooFewValuesError("Released prescription is missing its record target.", "")
	}
	information := parentPrescription.PertinentInformation1
	if information == nil || information.PertinentPrescription == nil {
		return nil, fhir.NewTooFewValuesError("Released prescription is missing its prescription act.", "")
	}
	prescription := information.PertinentPrescription
	if prescription.Author == nil || prescription.Author.AgentPerson == nil {
		return nil, fhir.NewTooFewValuesError("Released prescription is missing its author.", "")
	}

	var resources []fhir.Resource
	var focusIDs []string

	patient, err := ConvertPatient(parentPrescription.RecordTarget.Patient)
	if err != nil {
		return nil, err
	}
	resources = append(resources, patient)
	focusIDs = append(focusIDs, patient.ID)

	author := ConvertAgentPerson(prescription.Author.AgentPerson)
	resources = append(resources, author.Resources()...)

	responsibleParty := author
	if party := prescription.ResponsibleParty; party != nil && party.AgentPerson != nil {
		if party.AgentPerson.ID.Extension == prescription.Author.AgentPerson.ID.Extension {
			author.AddDetails(party.AgentPerson)
		} else {
			responsibleParty = ConvertAgentPerson(party.AgentPerson)
			resources = append(resources, responsibleParty.Resources()...)
		}
	}

	lineItems := prescriptionLineItems(prescription)
	if len(lineItems) == 0 {
		return nil, fhir.NewTooFewValuesError("Released prescription has no line items.", "")
	}

	firstItemInstructions := lineItemInstructions(lineItems[0])
	if len(firstItemInstructions.Medication) > 0 || len(firstItemInstructions.PatientInfo) > 0 {
		instructions := TranslateAdditionalInstructions(
			patient.ID,
			patient.Identifier[0],
			author.OrganizationIdentifier(),
			firstItemInstructions.Medication,
			firstItemInstructions.PatientInfo,
		)
		resources = append(resources, instructions.Resources()...)
	}

	for _, lineItem := range lineItems {
		medicationRequest, err := CreateMedicationRequest(
			prescription, lineItem, patient.ID, author.PractitionerRole.ID, responsibleParty.PractitionerRole.ID)
		if err != nil {
			return nil, err
		}
		resources = append(resources, medicationRequest)
		focusIDs = append(focusIDs, medicationRequest.ID)
	}

	header := CreateMessageHeader(
		parentPrescription.ID.Root,
		EventCodingPrescriptionOrder,
		focusIDs,
		prescriptionPerformerODSCode(prescription),
		releaseRequestID,
	)
	resources = append([]fhir.Resource{header}, resources...)

	if prescription.Author.SignatureText != nil && prescription.Author.SignatureText.Signature != nil {
		var targetIDs []string
		for _, resource := range resources {
			targetIDs = append(targetIDs, resource.ResourceID())
		}
		provenance, err := ConvertSignatureTextToProvenance(prescription.Author, author.PractitionerRole.ID, targetIDs)
		if err != nil {
			return nil, err
		}
		resources = append(resources, provenance)
	}
	return resources, nil
}

func prescriptionLineItems(prescription *hl7v3.Prescription) []*hl7v3.LineItem {
	var lineItems []*hl7v3.LineItem
	for _, information := range prescription.PertinentInformation2 {
		if information.PertinentLineItem != nil {
			lineItems = append(lineItems, information.PertinentLineItem)
		}
	}
	return lineItems
}

func prescriptionPerformerODSCode(prescription *hl7v3.Prescription) string {
	performer := prescription.Performer
	if performer == nil || performer.AgentOrg == nil || performer.AgentOrg.AgentOrganization == nil {
		return ""
	}
	return performer.AgentOrg.AgentOrganization.ID.Extension
}
