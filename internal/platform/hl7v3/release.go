package hl7v3

import "encoding/xml"

// NominatedPrescriptionReleaseRequest asks Spine for every prescription
// nominated to the requesting dispensing site.
type NominatedPrescriptionReleaseRequest struct {
	XMLName       xml.Name   `xml:"urn:hl7-org:v3 NominatedPrescriptionReleaseRequest"`
	ClassCode     string     `xml:"classCode,attr"`
	MoodCode      string     `xml:"moodCode,attr"`
	ID            Identifier `xml:"id"`
	EffectiveTime Timestamp  `xml:"effectiveTime"`
	Author        *Author    `xml:"author"`
}

func NewNominatedPrescriptionReleaseRequest(id string, effectiveTime Timestamp) *NominatedPrescriptionReleaseRequest {
	return &NominatedPrescriptionReleaseRequest{
		ClassCode:     "INFO",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
	}
}

// PatientPrescriptionReleaseRequest asks Spine for a single patient's
// prescription, identified by its short-form id.
type PatientPrescriptionReleaseRequest struct {
	XMLName               xml.Name   `xml:"urn:hl7-org:v3 PatientPrescriptionReleaseRequest"`
	ClassCode             string     `xml:"classCode,attr"`
	MoodCode              string     `xml:"moodCode,attr"`
	ID                    Identifier `xml:"id"`
	EffectiveTime         Timestamp  `xml:"effectiveTime"`
	Author                *Author    `xml:"author"`
	PertinentInformation  *PatientReleasePertinentInformation `xml:"pertinentInformation"`
}

func NewPatientPrescriptionReleaseRequest(id string, effectiveTime Timestamp, shortFormID string) *PatientPrescriptionReleaseRequest {
	return &PatientPrescriptionReleaseRequest{
		ClassCode:     "INFO",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
		PertinentInformation: &PatientReleasePertinentInformation{
			TypeCode:                "PERT",
			PertinentPrescriptionID: NewPrescriptionID(shortFormID),
		},
	}
}

type PatientReleasePertinentInformation struct {
	TypeCode                string          `xml:"typeCode,attr"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

// PrescriptionReleaseResponse is Spine's reply to a release request. Each
// component holds one released ParentPrescription.
type PrescriptionReleaseResponse struct {
	XMLName         xml.Name                               `xml:"PrescriptionReleaseResponse"`
	ClassCode       string                                 `xml:"classCode,attr"`
	MoodCode        string                                 `xml:"moodCode,attr"`
	ID              Identifier                             `xml:"id"`
	EffectiveTime   Timestamp                              `xml:"effectiveTime"`
	Component       []PrescriptionReleaseResponseComponent `xml:"component"`
	InFulfillmentOf *ReleaseInFulfillmentOf                `xml:"inFulfillmentOf"`
}

// ReleaseInFulfillmentOf links the response back to the release request it
// answers.
type ReleaseInFulfillmentOf struct {
	TypeCode                 string    `xml:"typeCode,attr"`
	PriorDownloadRequestRef  *EventRef `xml:"priorDownloadRequestRef"`
}

type PrescriptionReleaseResponseComponent struct {
	TypeCode           string              `xml:"typeCode,attr"`
	TemplateID         TemplateIdentifier  `xml:"templateId"`
	ParentPrescription *ParentPrescription `xml:"ParentPrescription"`
}

// DispenseProposalReturn sends a released prescription back to Spine when
// the dispensing site cannot or will not dispense it.
type DispenseProposalReturn struct {
	XMLName               xml.Name      `xml:"urn:hl7-org:v3 DispenseProposalReturn"`
	ClassCode             string        `xml:"classCode,attr"`
	MoodCode              string        `xml:"moodCode,attr"`
	ID                    Identifier    `xml:"id"`
	EffectiveTime         Timestamp     `xml:"effectiveTime"`
	Author                *Author       `xml:"author"`
	PertinentInformation1 *DispenseProposalReturnPertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation3 *DispenseProposalReturnPertinentInformation3 `xml:"pertinentInformation3"`
	ReversalOf            *ReversalOf   `xml:"reversalOf"`
}

func NewDispenseProposalReturn(id string, effectiveTime Timestamp) *DispenseProposalReturn {
	return &DispenseProposalReturn{
		ClassCode:     "INFO",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
	}
}

type DispenseProposalReturnPertinentInformation1 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

func NewDispenseProposalReturnPertinentInformation1(shortFormID string) *DispenseProposalReturnPertinentInformation1 {
	return &DispenseProposalReturnPertinentInformation1{
		TypeCode:                "PERT",
		PertinentPrescriptionID: NewPrescriptionID(shortFormID),
	}
}

type DispenseProposalReturnPertinentInformation3 struct {
	TypeCode              string        `xml:"typeCode,attr"`
	PertinentReturnReason *ReturnReason `xml:"pertinentReturnReason"`
}

type ReturnReason struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewDispenseProposalReturnPertinentInformation3(reason Code) *DispenseProposalReturnPertinentInformation3 {
	return &DispenseProposalReturnPertinentInformation3{
		TypeCode: "PERT",
		PertinentReturnReason: &ReturnReason{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("RR"),
			Value:     reason,
		},
	}
}

// ReversalOf points at the release event being reversed.
type ReversalOf struct {
	TypeCode                          string  `xml:"typeCode,attr"`
	PriorPrescriptionReleaseEventRef  *EventRef `xml:"priorPrescriptionReleaseEventRef"`
}

// EventRef identifies a prior event by its global identifier.
type EventRef struct {
	ClassCode string     `xml:"classCode,attr"`
	MoodCode  string     `xml:"moodCode,attr"`
	ID        Identifier `xml:"id"`
}

func NewReversalOf(releaseEventID string) *ReversalOf {
	return &ReversalOf{
		TypeCode: "REV",
		PriorPrescriptionReleaseEventRef: &EventRef{
			ClassCode: "INFO",
			MoodCode:  "RQO",
			ID:        NewGlobalIdentifier(releaseEventID),
		},
	}
}
