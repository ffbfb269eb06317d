package response

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

const (
	testReleaseResponseID = "285E5CCE-8BB9-4C49-B6AB-2AB02D7E37C6"
	testPrescriptionID1   = "B2FC79F0-2793-4736-9B2D-0976C21E73A5"
	testPrescriptionID2   = "A7B86F8D-1D81-FC28-E050-D20AE3A215F0"
)

func releasedAgentPerson(roleProfileID string) *hl7v3.AgentPerson {
	agentPerson := hl7v3.NewAgentPerson(roleProfileID, hl7v3.NewJobRoleCode("R8000", "Clinical Practitioner Access Role"))
	agentPerson.Telecom = []hl7v3.Telecom{{Use: "WP", Value: "tel:01234567890"}}
	agentPerson.AgentPerson = &hl7v3.AgentPersonPerson{
		ClassCode:      "PSN",
		DeterminerCode: "INSTANCE",
		ID:             hl7v3.NewProfessionalCode("6095103"),
		Name:           &hl7v3.Name{Use: "L", Prefix: []string{"DR"}, Given: []string{"JANE"}, Family: "BOIN"},
	}
	agentPerson.RepresentedOrganization = hl7v3.NewOrganization("A83008", "HALLGARTH SURGERY")
	return agentPerson
}

func releasedPatient() *hl7v3.Patient {
	patient := hl7v3.NewPatient("9990548609")
	person := hl7v3.NewPatientPerson()
	person.Name = []hl7v3.Name{{Use: "L", Given: []string{"ALICE"}, Family: "SMITH"}}
	person.AdministrativeGenderCode = &hl7v3.Code{Code: "2"}
	person.BirthTime = &hl7v3.Timestamp{Value: "19730528"}
	patient.PatientPerson = person
	return patient
}

func releasedLineItem(id string) *hl7v3.LineItem {
	lineItem := hl7v3.NewLineItem(id)
	lineItem.Product = hl7v3.NewProduct(hl7v3.NewSnomedCode("322237000", "Paracetamol 500mg soluble tablets"))
	lineItem.Component = hl7v3.NewLineItemComponent(hl7v3.NewQuantityInAlternativeUnits("60", "428673006", "tablet"))
	lineItem.PertinentInformation2 = hl7v3.NewLineItemPertinentInformation2("2 tablets every 4 hours")
	return lineItem
}

func releasedPrescription(longFormID, shortFormID string) *hl7v3.Prescription {
	prescription := hl7v3.NewPrescription(longFormID, shortFormID)
	prescription.Author = &hl7v3.Author{
		TypeCode:           "AUT",
		ContextControlCode: "OP",
		Time:               &hl7v3.Timestamp{Value: "20230206123000"},
		AgentPerson:        releasedAgentPerson("100102238986"),
	}
	prescription.Performer = hl7v3.NewPerformer(hl7v3.NewAgentOrganization(hl7v3.NewOrganization("FA565", "THE SIMPLE PHARMACY")))
	prescription.PertinentInformation4 = hl7v3.NewPrescriptionPertinentInformation4("0101")
	prescription.PertinentInformation5 = hl7v3.NewPrescriptionPertinentInformation5("0001")
	prescription.PertinentInformation1 = hl7v3.NewPrescriptionPertinentInformation1("P1")
	prescription.PertinentInformation2 = []hl7v3.PrescriptionPertinentInformation2{
		hl7v3.NewPrescriptionPertinentInformation2(releasedLineItem("E49A34C1-B2BF-4A45-A631-022BE2A5FE30")),
	}
	return prescription
}

func releasedParentPrescription(id, shortFormID string) *hl7v3.ParentPrescription {
	parent := hl7v3.NewParentPrescription(id, hl7v3.Timestamp{Value: "20230206123000"})
	parent.RecordTarget = hl7v3.NewRecordTarget(releasedPatient())
	parent.PertinentInformation1 = hl7v3.NewParentPrescriptionPertinentInformation1(
		releasedPrescription(id, shortFormID))
	return parent
}

func releaseResponseWith(prescriptions ...*hl7v3.ParentPrescription) *hl7v3.PrescriptionReleaseResponse {
	releaseResponse := &hl7v3.PrescriptionReleaseResponse{
		ClassCode:     "INFO",
		MoodCode:      "EVN",
		ID:            hl7v3.NewGlobalIdentifier(testReleaseResponseID),
		EffectiveTime: hl7v3.Timestamp{Value: "20230206123000"},
	}
	for _, prescription := range prescriptions {
		releaseResponse.Component = append(releaseResponse.Component, hl7v3.PrescriptionReleaseResponseComponent{
			TypeCode:           "COMP",
			TemplateID:         hl7v3.NewTemplateIdentifier("PORX_MT122003UK32"),
			ParentPrescription: prescription,
		})
	}
	return releaseResponse
}

// stubVerifier fails or panics per prescription id.
type stubVerifier struct {
	failures map[string][]string
	panics   map[string]bool
}

func (v *stubVerifier) VerifyPrescriptionSignature(_ context.Context, parentPrescription *hl7v3.ParentPrescription) []string {
	if v.panics[parentPrescription.ID.Root] {
		panic("certificate parse failure")
	}
	return v.failures[parentPrescription.ID.Root]
}

func TestTranslateReleaseResponse_AllPassed(t *testing.T) {
	releaseResponse := releaseResponseWith(
		releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D"))

	translated, err := TranslateReleaseResponse(context.Background(), releaseResponse, &stubVerifier{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("TranslateReleaseResponse: %v", err)
	}
	if *translated.PassedPrescriptions.Total != 1 || len(translated.PassedPrescriptions.Entry) != 1 {
		t.Errorf("passed total = %d, entries = %d", *translated.PassedPrescriptions.Total, len(translated.PassedPrescriptions.Entry))
	}
	if *translated.FailedPrescriptions.Total != 0 || len(translated.FailedPrescriptions.Entry) != 0 {
		t.Errorf("failed total = %d, entries = %d", *translated.FailedPrescriptions.Total, len(translated.FailedPrescriptions.Entry))
	}
	if len(translated.Returns) != 0 {
		t.Errorf("returns = %d, want none", len(translated.Returns))
	}
	if got := translated.PassedPrescriptions.Identifier.Value; got != strings.ToLower(testReleaseResponseID) {
		t.Errorf("passed bundle identifier = %q", got)
	}
}

func TestTranslateReleaseResponse_PartialFailure(t *testing.T) {
	releaseResponse := releaseResponseWith(
		releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D"),
		releasedParentPrescription(testPrescriptionID2, "88AF6C-A83008-3F271D"))
	verifier := &stubVerifier{failures: map[string][]string{
		strings.ToUpper(testPrescriptionID2): {"Signature doesn't match prescription", "Signature is invalid"},
	}}

	translated, err := TranslateReleaseResponse(context.Background(), releaseResponse, verifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("TranslateReleaseResponse: %v", err)
	}
	if *translated.PassedPrescriptions.Total != 1 {
		t.Errorf("passed total = %d, want 1", *translated.PassedPrescriptions.Total)
	}
	if *translated.FailedPrescriptions.Total != 1 {
		t.Fatalf("failed total = %d, want 1", *translated.FailedPrescriptions.Total)
	}

	outcome, ok := translated.FailedPrescriptions.Entry[0].Resource.(*fhir.OperationOutcome)
	if !ok {
		t.Fatalf("failed entry = %T, want OperationOutcome", translated.FailedPrescriptions.Entry[0].Resource)
	}
	extension := outcome.Extension[0]
	if extension.ValueReference.Identifier.Value != strings.ToLower(testPrescriptionID2) {
		t.Errorf("outcome references %q, want the failed prescription", extension.ValueReference.Identifier.Value)
	}
	issue := outcome.Issue[0]
	if issue.Severity != "error" || issue.Code != "invalid" {
		t.Errorf("issue = %+v", issue)
	}
	if issue.Details.Coding[0].Display != "Signature is invalid." {
		t.Errorf("details display = %q", issue.Details.Coding[0].Display)
	}

	if len(translated.Returns) != 1 {
		t.Fatalf("returns = %d, want 1", len(translated.Returns))
	}
	proposalReturn := translated.Returns[0]
	reason := proposalReturn.PertinentInformation3.PertinentReturnReason.Value
	if reason.Code != "0005" || reason.DisplayName != "Invalid digital signature" {
		t.Errorf("return reason = %+v", reason)
	}
	if got := proposalReturn.PertinentInformation1.PertinentPrescriptionID.Value.Extension; got != "88AF6C-A83008-3F271D" {
		t.Errorf("return short-form id = %q", got)
	}
	if proposalReturn.ReversalOf.PriorPrescriptionReleaseEventRef.ID.Root != testReleaseResponseID {
		t.Errorf("reversalOf = %+v", proposalReturn.ReversalOf)
	}
}

func TestTranslateReleaseResponse_PanicRoutesOnlyOffendingPrescriptionToFailed(t *testing.T) {
	releaseResponse := releaseResponseWith(
		releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D"),
		releasedParentPrescription(testPrescriptionID2, "88AF6C-A83008-3F271D"))
	verifier := &stubVerifier{panics: map[string]bool{strings.ToUpper(testPrescriptionID1): true}}

	translated, err := TranslateReleaseResponse(context.Background(), releaseResponse, verifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("TranslateReleaseResponse: %v", err)
	}
	if *translated.FailedPrescriptions.Total != 1 {
		t.Errorf("failed total = %d, want only the panicking prescription", *translated.FailedPrescriptions.Total)
	}
	if *translated.PassedPrescriptions.Total != 1 {
		t.Errorf("passed total = %d, want the sibling unaffected", *translated.PassedPrescriptions.Total)
	}
	outcome := translated.FailedPrescriptions.Entry[0].Resource.(*fhir.OperationOutcome)
	if got := outcome.Extension[0].ValueReference.Identifier.Value; got != strings.ToLower(testPrescriptionID1) {
		t.Errorf("failed prescription = %q", got)
	}
}

func TestTranslateReleaseResponse_UnsupportedComponentSkipped(t *testing.T) {
	releaseResponse := releaseResponseWith(releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D"))
	releaseResponse.Component[0].TemplateID = hl7v3.NewTemplateIdentifier("PORX_MT122004UK31")

	translated, err := TranslateReleaseResponse(context.Background(), releaseResponse, &stubVerifier{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("TranslateReleaseResponse: %v", err)
	}
	if *translated.PassedPrescriptions.Total != 0 || *translated.FailedPrescriptions.Total != 0 {
		t.Errorf("totals = %d/%d, want the component ignored",
			*translated.PassedPrescriptions.Total, *translated.FailedPrescriptions.Total)
	}
}

func TestCreateInnerBundle(t *testing.T) {
	parent := releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D")

	bundle, err := CreateInnerBundle(parent, "8E37BAB5-86BD-4FD3-A7C4-2A414A722B8A")
	if err != nil {
		t.Fatalf("CreateInnerBundle: %v", err)
	}
	if bundle.Type != "message" {
		t.Errorf("bundle type = %q", bundle.Type)
	}
	if bundle.Identifier.Value != strings.ToLower(testPrescriptionID1) {
		t.Errorf("bundle identifier = %q", bundle.Identifier.Value)
	}
	if bundle.Meta.LastUpdated != "2023-02-06T12:30:00+00:00" {
		t.Errorf("lastUpdated = %q", bundle.Meta.LastUpdated)
	}

	header, ok := bundle.Entry[0].Resource.(*fhir.MessageHeader)
	if !ok {
		t.Fatalf("first entry = %T, want MessageHeader", bundle.Entry[0].Resource)
	}
	if header.EventCoding.Code != "prescription-order" {
		t.Errorf("event coding = %+v", header.EventCoding)
	}
	if header.Destination[0].Receiver.Identifier.Value != "FA565" {
		t.Errorf("destination = %+v", header.Destination)
	}
	if header.Response == nil || header.Response.Identifier != "8e37bab5-86bd-4fd3-a7c4-2a414a722b8a" {
		t.Errorf("response = %+v", header.Response)
	}

	medicationRequests := fhir.ResourcesOfType[*fhir.MedicationRequest](bundle)
	if len(medicationRequests) != 1 {
		t.Fatalf("medication requests = %d", len(medicationRequests))
	}
	if got := medicationRequests[0].GroupIdentifier.Value; got != "6F27C3-A83008-29CB5D" {
		t.Errorf("group identifier = %q", got)
	}
	if len(header.Focus) != 2 {
		t.Errorf("focus = %+v, want patient and medication request", header.Focus)
	}
}

func TestCreateInnerBundle_ProvenanceWhenSigned(t *testing.T) {
	parent := releasedParentPrescription(testPrescriptionID1, "6F27C3-A83008-29CB5D")
	author := parent.PertinentInformation1.PertinentPrescription.Author
	author.SignatureText = &hl7v3.SignatureText{Signature: &hl7v3.Signature{}}

	bundle, err := CreateInnerBundle(parent, "")
	if err != nil {
		t.Fatalf("CreateInnerBundle: %v", err)
	}
	last := bundle.Entry[len(bundle.Entry)-1].Resource
	provenance, ok := last.(*fhir.Provenance)
	if !ok {
		t.Fatalf("last entry = %T, want Provenance", last)
	}
	if len(provenance.Target) != len(bundle.Entry)-1 {
		t.Errorf("provenance targets = %d, want every other entry", len(provenance.Target))
	}
	if provenance.Signature[0].Data == "" {
		t.Errorf("signature data empty, want re-encoded markup")
	}
}
