package hl7v3

import "encoding/xml"

// EtpWithdraw retracts a dispense notification previously sent to Spine.
type EtpWithdraw struct {
	XMLName               xml.Name      `xml:"urn:hl7-org:v3 EtpWithdraw"`
	ClassCode             string        `xml:"classCode,attr"`
	MoodCode              string        `xml:"moodCode,attr"`
	ID                    Identifier    `xml:"id"`
	EffectiveTime         Timestamp     `xml:"effectiveTime"`
	RecordTarget          *RecordTarget `xml:"recordTarget"`
	Author                *Author       `xml:"author"`
	PertinentInformation1 *EtpWithdrawPertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation2 *EtpWithdrawPertinentInformation2 `xml:"pertinentInformation2"`
	PertinentInformation3 *EtpWithdrawPertinentInformation3 `xml:"pertinentInformation3"`
	PertinentInformation5 *EtpWithdrawPertinentInformation5 `xml:"pertinentInformation5"`
}

func NewEtpWithdraw(id string, effectiveTime Timestamp) *EtpWithdraw {
	return &EtpWithdraw{
		ClassCode:     "INFO",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
	}
}

// EtpWithdrawPertinentInformation1 names the type of withdrawal. Only last
// dispense withdrawals are supported.
type EtpWithdrawPertinentInformation1 struct {
	TypeCode              string        `xml:"typeCode,attr"`
	ContextConductionInd  string        `xml:"contextConductionInd,attr"`
	PertinentWithdrawType *WithdrawType `xml:"pertinentWithdrawType"`
}

type WithdrawType struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

// NewEtpWithdrawPertinentInformation1 builds the fixed "LD" (last dispense)
// withdraw type.
func NewEtpWithdrawPertinentInformation1() *EtpWithdrawPertinentInformation1 {
	return &EtpWithdrawPertinentInformation1{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentWithdrawType: &WithdrawType{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("WT"),
			Value:     Code{CodeSystem: "2.16.840.1.113883.2.1.3.2.4.17.480", Code: "LD", DisplayName: "Last Dispense"},
		},
	}
}

// EtpWithdrawPertinentInformation2 names the prescription the withdrawn
// dispense belongs to.
type EtpWithdrawPertinentInformation2 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	ContextConductionInd    string          `xml:"contextConductionInd,attr"`
	PertinentWithdrawID     *WithdrawID     `xml:"pertinentWithdrawID"`
}

type WithdrawID struct {
	ClassCode string     `xml:"classCode,attr"`
	MoodCode  string     `xml:"moodCode,attr"`
	Code      Code       `xml:"code"`
	Value     Identifier `xml:"value"`
}

// NewEtpWithdrawPertinentInformation2 references the dispense notification
// being withdrawn.
func NewEtpWithdrawPertinentInformation2(dispenseNotificationID string) *EtpWithdrawPertinentInformation2 {
	return &EtpWithdrawPertinentInformation2{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentWithdrawID: &WithdrawID{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("WID"),
			Value:     NewGlobalIdentifier(dispenseNotificationID),
		},
	}
}

// EtpWithdrawPertinentInformation3 carries the prescription short-form id.
type EtpWithdrawPertinentInformation3 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	ContextConductionInd    string          `xml:"contextConductionInd,attr"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

func NewEtpWithdrawPertinentInformation3(shortFormID string) *EtpWithdrawPertinentInformation3 {
	return &EtpWithdrawPertinentInformation3{
		TypeCode:                "PERT",
		ContextConductionInd:    "true",
		PertinentPrescriptionID: NewPrescriptionID(shortFormID),
	}
}

// EtpWithdrawPertinentInformation5 carries the reason for the withdrawal.
type EtpWithdrawPertinentInformation5 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	ContextConductionInd    string          `xml:"contextConductionInd,attr"`
	PertinentWithdrawReason *WithdrawReason `xml:"pertinentWithdrawReason"`
}

type WithdrawReason struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewEtpWithdrawPertinentInformation5(reason Code) *EtpWithdrawPertinentInformation5 {
	return &EtpWithdrawPertinentInformation5{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentWithdrawReason: &WithdrawReason{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("WR"),
			Value:     reason,
		},
	}
}
