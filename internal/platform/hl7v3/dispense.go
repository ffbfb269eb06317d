package hl7v3

import "encoding/xml"

// DispenseClaim is the reimbursement claim document sent to Spine after a
// prescription has been fully dispensed.
type DispenseClaim struct {
	XMLName                    xml.Name                             `xml:"urn:hl7-org:v3 DispenseClaim"`
	ClassCode                  string                               `xml:"classCode,attr"`
	MoodCode                   string                               `xml:"moodCode,attr"`
	ID                         Identifier                           `xml:"id"`
	EffectiveTime              Timestamp                            `xml:"effectiveTime"`
	PrimaryInformationRecipient *PrimaryInformationRecipient        `xml:"primaryInformationRecipient"`
	PertinentInformation1      *DispenseClaimPertinentInformation1  `xml:"pertinentInformation1"`
	ReplacementOf              *ReplacementOf                       `xml:"replacementOf,omitempty"`
	CoverageOf                 *CoverageOf                          `xml:"coverage,omitempty"`
	SequelTo                   *SequelTo                            `xml:"sequelTo"`
}

func NewDispenseClaim(id string, effectiveTime Timestamp) *DispenseClaim {
	return &DispenseClaim{
		ClassCode:     "INFO",
		MoodCode:      "EVN",
		ID:            NewGlobalIdentifier(id),
		EffectiveTime: effectiveTime,
	}
}

// PrimaryInformationRecipient addresses the document to the reimbursement
// agency.
type PrimaryInformationRecipient struct {
	TypeCode string             `xml:"typeCode,attr"`
	AgentOrg *AgentOrganization `xml:"AgentOrg"`
}

func NewPrimaryInformationRecipient(agentOrganization *AgentOrganization) *PrimaryInformationRecipient {
	return &PrimaryInformationRecipient{TypeCode: "PRCP", AgentOrg: agentOrganization}
}

// DispenseClaimPertinentInformation1 attaches the supply header holding the
// claim's clinical statements.
type DispenseClaimPertinentInformation1 struct {
	TypeCode              string                    `xml:"typeCode,attr"`
	ContextConductionInd  string                    `xml:"contextConductionInd,attr"`
	TemplateID            TemplateIdentifier        `xml:"templateId"`
	PertinentSupplyHeader *DispenseClaimSupplyHeader `xml:"pertinentSupplyHeader"`
}

func NewDispenseClaimPertinentInformation1(supplyHeader *DispenseClaimSupplyHeader) *DispenseClaimPertinentInformation1 {
	return &DispenseClaimPertinentInformation1{
		TypeCode:              "PERT",
		ContextConductionInd:  "true",
		TemplateID:            NewTemplateIdentifier("CSAB_RM-NPfITUK10.pertinentInformation"),
		PertinentSupplyHeader: supplyHeader,
	}
}

// DispenseClaimSupplyHeader is the primary act of the claim.
type DispenseClaimSupplyHeader struct {
	ClassCode             string                                `xml:"classCode,attr"`
	MoodCode              string                                `xml:"moodCode,attr"`
	ID                    Identifier                            `xml:"id"`
	Code                  Code                                  `xml:"code"`
	EffectiveTime         NullTime                              `xml:"effectiveTime"`
	RepeatNumber          *Interval                             `xml:"repeatNumber,omitempty"`
	LegalAuthenticator    *LegalAuthenticator                   `xml:"legalAuthenticator,omitempty"`
	PertinentInformation1 []DispenseClaimPertinentSuppliedLineItem `xml:"pertinentInformation1"`
	PertinentInformation2 *SupplyHeaderPertinentInformation2    `xml:"pertinentInformation2,omitempty"`
	PertinentInformation3 *SupplyHeaderPertinentInformation3    `xml:"pertinentInformation3"`
	PertinentInformation4 *SupplyHeaderPertinentInformation4    `xml:"pertinentInformation4"`
	InFulfillmentOf       *InFulfillmentOf                      `xml:"inFulfillmentOf"`
}

func NewDispenseClaimSupplyHeader(id string) *DispenseClaimSupplyHeader {
	return &DispenseClaimSupplyHeader{
		ClassCode:     "SBADM",
		MoodCode:      "EVN",
		ID:            NewGlobalIdentifier(id),
		Code:          NewSnomedCode("225426007", "Administration of therapeutic substance (procedure)"),
		EffectiveTime: NewNullTime(),
	}
}

// SupplyHeaderPertinentInformation2 records whether the patient paid a
// prescription charge or was exempt.
type SupplyHeaderPertinentInformation2 struct {
	TypeCode                  string           `xml:"typeCode,attr"`
	ContextConductionInd      string           `xml:"contextConductionInd,attr"`
	SeperatableInd            Bool             `xml:"seperatableInd"`
	PertinentChargeExemption  *ChargeExemption `xml:"pertinentChargeExemption"`
}

type ChargeExemption struct {
	ClassCode            string               `xml:"classCode,attr"`
	MoodCode             string               `xml:"moodCode,attr"`
	NegationInd          string               `xml:"negationInd,attr,omitempty"`
	Code                 Code                 `xml:"code"`
	Value                Code                 `xml:"value"`
	AuthorizedBy         *EvidenceSeen        `xml:"authorization,omitempty"`
}

// EvidenceSeen records that exemption evidence was produced.
type EvidenceSeen struct {
	TypeCode              string         `xml:"typeCode,attr"`
	PertinentEvidenceSeen *EvidenceSeenAct `xml:"pertinentEvidenceSeen"`
}

type EvidenceSeenAct struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
}

func NewSupplyHeaderPertinentInformation2(exemptionCode Code, evidenceSeen bool) *SupplyHeaderPertinentInformation2 {
	exemption := &ChargeExemption{
		ClassCode: "OBS",
		MoodCode:  "EVN",
		Code:      NewPrescriptionAnnotationCode("EX"),
		Value:     exemptionCode,
	}
	if evidenceSeen {
		exemption.AuthorizedBy = &EvidenceSeen{
			TypeCode: "AUTH",
			PertinentEvidenceSeen: &EvidenceSeenAct{
				ClassCode: "OBS",
				MoodCode:  "EVN",
				Code:      NewPrescriptionAnnotationCode("ES"),
			},
		}
	}
	return &SupplyHeaderPertinentInformation2{
		TypeCode:                 "PERT",
		ContextConductionInd:     "true",
		SeperatableInd:           Bool{Value: false},
		PertinentChargeExemption: exemption,
	}
}

// SupplyHeaderPertinentInformation3 carries the overall prescription status.
type SupplyHeaderPertinentInformation3 struct {
	TypeCode                     string              `xml:"typeCode,attr"`
	ContextConductionInd         string              `xml:"contextConductionInd,attr"`
	SeperatableInd               Bool                `xml:"seperatableInd"`
	PertinentPrescriptionStatus  *PrescriptionStatus `xml:"pertinentPrescriptionStatus"`
}

type PrescriptionStatus struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewSupplyHeaderPertinentInformation3(statusCode, statusDisplay string) *SupplyHeaderPertinentInformation3 {
	return &SupplyHeaderPertinentInformation3{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		SeperatableInd:       Bool{Value: false},
		PertinentPrescriptionStatus: &PrescriptionStatus{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("PS"),
			Value:     Code{CodeSystem: "2.16.840.1.113883.2.1.3.2.4.16.35", Code: statusCode, DisplayName: statusDisplay},
		},
	}
}

// SupplyHeaderPertinentInformation4 links the supply event back to the
// prescription's short-form id.
type SupplyHeaderPertinentInformation4 struct {
	TypeCode                string          `xml:"typeCode,attr"`
	ContextConductionInd    string          `xml:"contextConductionInd,attr"`
	SeperatableInd          Bool            `xml:"seperatableInd"`
	PertinentPrescriptionID *PrescriptionID `xml:"pertinentPrescriptionID"`
}

func NewSupplyHeaderPertinentInformation4(shortFormID string) *SupplyHeaderPertinentInformation4 {
	return &SupplyHeaderPertinentInformation4{
		TypeCode:                "PERT",
		ContextConductionInd:    "true",
		SeperatableInd:          Bool{Value: false},
		PertinentPrescriptionID: NewPrescriptionID(shortFormID),
	}
}

// InFulfillmentOf links a supply act to the original prescription order.
type InFulfillmentOf struct {
	TypeCode                     string    `xml:"typeCode,attr"`
	InversionInd                 string    `xml:"inversionInd,attr"`
	NegationInd                  string    `xml:"negationInd,attr"`
	SeperatableInd               Bool      `xml:"seperatableInd"`
	TemplateID                   TemplateIdentifier `xml:"templateId"`
	PriorOriginalPrescriptionRef *ActRef   `xml:"priorOriginalPrescriptionRef"`
}

func NewInFulfillmentOf(prescriptionID Identifier) *InFulfillmentOf {
	return &InFulfillmentOf{
		TypeCode:       "FLFS",
		InversionInd:   "false",
		NegationInd:    "false",
		SeperatableInd: Bool{Value: true},
		TemplateID:     NewTemplateIdentifier("CSAB_RM-NPfITUK10.sourceOf1"),
		PriorOriginalPrescriptionRef: &ActRef{
			ClassCode: "SBADM",
			MoodCode:  "RQO",
			ID:        prescriptionID,
		},
	}
}

// DispenseClaimPertinentSuppliedLineItem reports one dispensed line item
// within a claim.
type DispenseClaimPertinentSuppliedLineItem struct {
	TypeCode                 string                 `xml:"typeCode,attr"`
	ContextConductionInd     string                 `xml:"contextConductionInd,attr"`
	InversionInd             string                 `xml:"inversionInd,attr"`
	NegationInd              string                 `xml:"negationInd,attr"`
	SeperatableInd           Bool                   `xml:"seperatableInd"`
	TemplateID               TemplateIdentifier     `xml:"templateId"`
	PertinentSuppliedLineItem *ClaimSuppliedLineItem `xml:"pertinentSuppliedLineItem"`
}

func NewDispenseClaimPertinentSuppliedLineItem(lineItem *ClaimSuppliedLineItem) DispenseClaimPertinentSuppliedLineItem {
	return DispenseClaimPertinentSuppliedLineItem{
		TypeCode:                  "PERT",
		ContextConductionInd:      "true",
		InversionInd:              "false",
		NegationInd:               "false",
		SeperatableInd:            Bool{Value: false},
		TemplateID:                NewTemplateIdentifier("CSAB_RM-NPfITUK10.sourceOf2"),
		PertinentSuppliedLineItem: lineItem,
	}
}

type ClaimSuppliedLineItem struct {
	ClassCode             string                         `xml:"classCode,attr"`
	MoodCode              string                         `xml:"moodCode,attr"`
	ID                    Identifier                     `xml:"id"`
	Code                  Code                           `xml:"code"`
	EffectiveTime         NullTime                       `xml:"effectiveTime"`
	RepeatNumber          *Interval                      `xml:"repeatNumber,omitempty"`
	Component             []ClaimSuppliedLineItemComponent `xml:"component"`
	PertinentInformation1 *ClaimLineItemPertinentInformation1 `xml:"pertinentInformation1,omitempty"`
	PertinentInformation2 []ClaimLineItemPertinentInformation2 `xml:"pertinentInformation2,omitempty"`
	PertinentInformation3 *LineItemPertinentInformation4 `xml:"pertinentInformation3,omitempty"`
	InFulfillmentOf       *InFulfillmentOf               `xml:"inFulfillmentOf"`
}

func NewClaimSuppliedLineItem(id string) *ClaimSuppliedLineItem {
	return &ClaimSuppliedLineItem{
		ClassCode:     "SBADM",
		MoodCode:      "PRMS",
		ID:            NewGlobalIdentifier(id),
		Code:          NewSnomedCode("225426007", "Administration of therapeutic substance (procedure)"),
		EffectiveTime: NewNullTime(),
	}
}

// ClaimLineItemPertinentInformation1 records whether the charge for this
// item was paid.
type ClaimLineItemPertinentInformation1 struct {
	TypeCode             string       `xml:"typeCode,attr"`
	ContextConductionInd string       `xml:"contextConductionInd,attr"`
	SeperatableInd       Bool         `xml:"seperatableInd"`
	PertinentChargePayment *ChargePayment `xml:"pertinentChargePayment"`
}

type ChargePayment struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Bool   `xml:"value"`
}

func NewClaimLineItemPertinentInformation1(chargePaid bool) *ClaimLineItemPertinentInformation1 {
	return &ClaimLineItemPertinentInformation1{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		SeperatableInd:       Bool{Value: false},
		PertinentChargePayment: &ChargePayment{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("CP"),
			Value:     Bool{Value: chargePaid},
		},
	}
}

// ClaimLineItemPertinentInformation2 carries a dispenser endorsement.
type ClaimLineItemPertinentInformation2 struct {
	TypeCode                      string                `xml:"typeCode,attr"`
	ContextConductionInd          string                `xml:"contextConductionInd,attr"`
	SeperatableInd                Bool                  `xml:"seperatableInd"`
	PertinentDispenserEndorsement *DispenserEndorsement `xml:"pertinentDispenserEndorsement"`
}

type DispenserEndorsement struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
	Text      *Text  `xml:"text,omitempty"`
}

func NewClaimLineItemPertinentInformation2(endorsement Code, supportingInfo string) ClaimLineItemPertinentInformation2 {
	act := &DispenserEndorsement{
		ClassCode: "OBS",
		MoodCode:  "EVN",
		Code:      NewPrescriptionAnnotationCode("DE"),
		Value:     endorsement,
	}
	if supportingInfo != "" {
		act.Text = &Text{Value: supportingInfo}
	}
	return ClaimLineItemPertinentInformation2{
		TypeCode:                      "PERT",
		ContextConductionInd:          "true",
		SeperatableInd:                Bool{Value: false},
		PertinentDispenserEndorsement: act,
	}
}

// ClaimSuppliedLineItemComponent carries the quantity actually dispensed.
type ClaimSuppliedLineItemComponent struct {
	TypeCode               string                   `xml:"typeCode,attr"`
	SeperatableInd         Bool                     `xml:"seperatableInd"`
	SuppliedLineItemQuantity *SuppliedLineItemQuantity `xml:"suppliedLineItemQuantity"`
}

type SuppliedLineItemQuantity struct {
	ClassCode string          `xml:"classCode,attr"`
	MoodCode  string          `xml:"moodCode,attr"`
	Code      Code            `xml:"code"`
	Quantity  Quantity        `xml:"quantity"`
	Product   *SuppliedProduct `xml:"product"`
}

type SuppliedProduct struct {
	TypeCode                   string                      `xml:"typeCode,attr"`
	ContextControlCode         string                      `xml:"contextControlCode,attr"`
	SuppliedManufacturedProduct *SuppliedManufacturedProduct `xml:"suppliedManufacturedProduct"`
}

type SuppliedManufacturedProduct struct {
	ClassCode                   string                         `xml:"classCode,attr"`
	ManufacturedSuppliedMaterial *ManufacturedRequestedMaterial `xml:"manufacturedSuppliedMaterial"`
}

func NewClaimSuppliedLineItemComponent(quantity Quantity, medication Code) ClaimSuppliedLineItemComponent {
	return ClaimSuppliedLineItemComponent{
		TypeCode:       "COMP",
		SeperatableInd: Bool{Value: false},
		SuppliedLineItemQuantity: &SuppliedLineItemQuantity{
			ClassCode: "SPLY",
			MoodCode:  "EVN",
			Code:      NewSnomedCode("373784005", "Dispensing medication (procedure)"),
			Quantity:  quantity,
			Product: &SuppliedProduct{
				TypeCode:           "PRD",
				ContextControlCode: "OP",
				SuppliedManufacturedProduct: &SuppliedManufacturedProduct{
					ClassCode: "MANU",
					ManufacturedSuppliedMaterial: &ManufacturedRequestedMaterial{
						ClassCode:      "MMAT",
						DeterminerCode: "KIND",
						Code:           medication,
					},
				},
			},
		},
	}
}

// ReplacementOf identifies a previous claim this claim amends.
type ReplacementOf struct {
	TypeCode        string    `xml:"typeCode,attr"`
	PriorMessageRef *EventRef `xml:"priorMessageRef"`
}

func NewReplacementOf(priorClaimID string) *ReplacementOf {
	return &ReplacementOf{
		TypeCode: "RPLC",
		PriorMessageRef: &EventRef{
			ClassCode: "INFO",
			MoodCode:  "EVN",
			ID:        NewGlobalIdentifier(priorClaimID),
		},
	}
}

// CoverageOf records the charge exemption coverage on a claim. A non-exempt
// patient is expressed with negationInd="true" on the exemption act.
type CoverageOf struct {
	TypeCode                 string           `xml:"typeCode,attr"`
	PertinentChargeExemption *ChargeExemption `xml:"coveringChargeExempt"`
}

func NewCoverageOf(exempt bool, exemptionCode Code, evidenceSeen bool) *CoverageOf {
	exemption := &ChargeExemption{
		ClassCode: "OBS",
		MoodCode:  "EVN",
		Code:      NewPrescriptionAnnotationCode("EX"),
		Value:     exemptionCode,
	}
	if !exempt {
		exemption.NegationInd = "true"
	}
	if evidenceSeen {
		exemption.AuthorizedBy = &EvidenceSeen{
			TypeCode: "AUTH",
			PertinentEvidenceSeen: &EvidenceSeenAct{
				ClassCode: "OBS",
				MoodCode:  "EVN",
				Code:      NewPrescriptionAnnotationCode("ES"),
			},
		}
	}
	return &CoverageOf{TypeCode: "COVBY", PertinentChargeExemption: exemption}
}

// SequelTo links a dispense document to the release event that authorised
// it.
type SequelTo struct {
	TypeCode                         string    `xml:"typeCode,attr"`
	PriorPrescriptionReleaseEventRef *EventRef `xml:"priorPrescriptionReleaseEventRef"`
}

func NewSequelTo(releaseEventID string) *SequelTo {
	return &SequelTo{
		TypeCode: "SEQL",
		PriorPrescriptionReleaseEventRef: &EventRef{
			ClassCode: "INFO",
			MoodCode:  "RQO",
			ID:        NewGlobalIdentifier(releaseEventID),
		},
	}
}
