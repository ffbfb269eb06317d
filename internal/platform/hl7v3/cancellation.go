package hl7v3

import "encoding/xml"

// CancellationResponse is Spine's reply to a prescription cancellation
// request.
type CancellationResponse struct {
	XMLName               xml.Name          `xml:"CancellationResponse"`
	ClassCode             string            `xml:"classCode,attr"`
	MoodCode              string            `xml:"moodCode,attr"`
	ID                    Identifier        `xml:"id"`
	EffectiveTime         Timestamp         `xml:"effectiveTime"`
	RecordTarget          *RecordTarget     `xml:"recordTarget"`
	Author                *Author           `xml:"author"`
	Performer             *CancellationPerformer `xml:"performer,omitempty"`
	ResponsibleParty      *ResponsibleParty `xml:"responsibleParty,omitempty"`
	PertinentInformation1 *CancellationResponsePertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation2 *CancellationResponsePertinentInformation2 `xml:"pertinentInformation2"`
	PertinentInformation3 *CancellationResponsePertinentInformation3 `xml:"pertinentInformation3"`
	PertinentInformation4 *CancellationResponsePertinentInformation4 `xml:"pertinentInformation4"`
}

// CancellationResponsePertinentInformation1 carries the short-form id of
// the prescription the cancellation applies to.
type CancellationResponsePertinentInformation1 struct {
	TypeCode               string          `xml:"typeCode,attr"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

// PrescriptionID is the short-form prescription id as an observation.
type PrescriptionID struct {
	ClassCode string     `xml:"classCode,attr"`
	MoodCode  string     `xml:"moodCode,attr"`
	Code      Code       `xml:"code"`
	Value     Identifier `xml:"value"`
}

func NewPrescriptionID(shortFormID string) *PrescriptionID {
	return &PrescriptionID{
		ClassCode: "OBS",
		MoodCode:  "EVN",
		Code:      NewPrescriptionAnnotationCode("PID"),
		Value:     NewShortFormPrescriptionIdentifier(shortFormID),
	}
}

// CancellationResponsePertinentInformation2 identifies the line item the
// cancellation targeted.
type CancellationResponsePertinentInformation2 struct {
	TypeCode             string  `xml:"typeCode,attr"`
	PertinentOriginalItemRef *ActRef `xml:"pertinentOriginalItemRef"`
}

// CancellationResponsePertinentInformation3 carries the cancellation
// response code and its display text.
type CancellationResponsePertinentInformation3 struct {
	TypeCode          string                `xml:"typeCode,attr"`
	PertinentResponse *CancellationResponseReason `xml:"pertinentResponse"`
}

// CancellationPerformer is the dispenser the prescription was with when the
// cancellation was attempted. Unlike the order-level performer this is a
// person, not an organisation.
type CancellationPerformer struct {
	TypeCode           string       `xml:"typeCode,attr"`
	ContextControlCode string       `xml:"contextControlCode,attr"`
	AgentPerson        *AgentPerson `xml:"AgentPerson"`
}

// CancellationResponsePertinentInformation4 links the response back to the
// cancellation request it answers.
type CancellationResponsePertinentInformation4 struct {
	TypeCode                       string  `xml:"typeCode,attr"`
	PertinentCancellationRequestRef *ActRef `xml:"pertinentCancellationRequestRef"`
}

type CancellationResponseReason struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

// CancellationRequest asks Spine to cancel one line item of a previously
// sent prescription order.
type CancellationRequest struct {
	XMLName               xml.Name          `xml:"urn:hl7-org:v3 CancellationRequest"`
	ClassCode             string            `xml:"classCode,attr"`
	MoodCode              string            `xml:"moodCode,attr"`
	ID                    Identifier        `xml:"id"`
	EffectiveTime         Timestamp         `xml:"effectiveTime"`
	RecordTarget          *RecordTarget     `xml:"recordTarget"`
	Author                *Author           `xml:"author"`
	ResponsibleParty      *ResponsibleParty `xml:"responsibleParty"`
	PertinentInformation  *CancellationRequestPertinentInformation  `xml:"pertinentInformation"`
	PertinentInformation1 *CancellationRequestPertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation2 *CancellationRequestPertinentInformation2 `xml:"pertinentInformation2"`
	PertinentInformation3 *CancellationRequestPertinentInformation3 `xml:"pertinentInformation3"`
}

func NewCancellationRequest(id string, effectiveTime Timestamp) *CancellationRequest {
	return &CancellationRequest{
		ClassCode:     "INFO",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
	}
}

// CancellationRequestPertinentInformation carries the prescriber's reason
// for cancelling.
type CancellationRequestPertinentInformation struct {
	TypeCode        string              `xml:"typeCode,attr"`
	PertinentReason *CancellationReason `xml:"pertinentCancellationReason"`
}

type CancellationReason struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewCancellationRequestPertinentInformation(reasonCode, reasonDisplay string) *CancellationRequestPertinentInformation {
	return &CancellationRequestPertinentInformation{
		TypeCode: "PERT",
		PertinentReason: &CancellationReason{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("CR"),
			Value:     Code{Code: reasonCode, DisplayName: reasonDisplay},
		},
	}
}

// CancellationRequestPertinentInformation1 carries the short-form id of the
// prescription being cancelled.
type CancellationRequestPertinentInformation1 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

func NewCancellationRequestPertinentInformation1(shortFormID string) *CancellationRequestPertinentInformation1 {
	return &CancellationRequestPertinentInformation1{
		TypeCode:                "PERT",
		PertinentPrescriptionID: NewPrescriptionID(shortFormID),
	}
}

// CancellationRequestPertinentInformation2 identifies the line item to
// cancel.
type CancellationRequestPertinentInformation2 struct {
	TypeCode             string  `xml:"typeCode,attr"`
	PertinentLineItemRef *ActRef `xml:"pertinentLineItemRef"`
}

func NewCancellationRequestPertinentInformation2(lineItemID string) *CancellationRequestPertinentInformation2 {
	return &CancellationRequestPertinentInformation2{
		TypeCode: "PERT",
		PertinentLineItemRef: &ActRef{
			ClassCode: "SBADM",
			MoodCode:  "RQO",
			ID:        NewGlobalIdentifier(lineItemID),
		},
	}
}

// CancellationRequestPertinentInformation3 references the prescription
// order message the cancellation applies to.
type CancellationRequestPertinentInformation3 struct {
	TypeCode                         string  `xml:"typeCode,attr"`
	PertinentOriginalPrescriptionRef *ActRef `xml:"pertinentOriginalPrescriptionRef"`
}

func NewCancellationRequestPertinentInformation3(prescriptionUUID string) *CancellationRequestPertinentInformation3 {
	return &CancellationRequestPertinentInformation3{
		TypeCode: "PERT",
		PertinentOriginalPrescriptionRef: &ActRef{
			ClassCode: "SBADM",
			MoodCode:  "RQO",
			ID:        NewGlobalIdentifier(prescriptionUUID),
		},
	}
}
