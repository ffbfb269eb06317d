package hl7v3

import "encoding/xml"

// ParentPrescription is the root HL7v3 document for a prescription order.
type ParentPrescription struct {
	XMLName               xml.Name                      `xml:"urn:hl7-org:v3 ParentPrescription"`
	ClassCode             string                        `xml:"classCode,attr"`
	MoodCode              string                        `xml:"moodCode,attr"`
	ID                    Identifier                    `xml:"id"`
	Code                  Code                          `xml:"code"`
	EffectiveTime         Timestamp                     `xml:"effectiveTime"`
	RecordTarget          *RecordTarget                 `xml:"recordTarget"`
	PertinentInformation1 *ParentPrescriptionPertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation2 *ParentPrescriptionPertinentInformation2 `xml:"pertinentInformation2,omitempty"`
}

// NewParentPrescription builds the document shell with its fixed codes.
func NewParentPrescription(id string, effectiveTime Timestamp) *ParentPrescription {
	return &ParentPrescription{
		ClassCode:     "INFO",
		MoodCode:      "EVN",
		ID:            NewGlobalIdentifier(id),
		Code:          NewSnomedCode("163501000000109", "Prescription - FocusActOrEvent (record artifact)"),
		EffectiveTime: effectiveTime,
	}
}

type ParentPrescriptionPertinentInformation1 struct {
	TypeCode              string        `xml:"typeCode,attr"`
	ContextConductionInd  string        `xml:"contextConductionInd,attr"`
	TemplateID            TemplateIdentifier `xml:"templateId"`
	PertinentPrescription *Prescription `xml:"pertinentPrescription"`
}

func NewParentPrescriptionPertinentInformation1(prescription *Prescription) *ParentPrescriptionPertinentInformation1 {
	return &ParentPrescriptionPertinentInformation1{
		TypeCode:              "PERT",
		ContextConductionInd:  "true",
		TemplateID:            NewTemplateIdentifier("CSAB_RM-NPfITUK10.pertinentInformation"),
		PertinentPrescription: prescription,
	}
}

type ParentPrescriptionPertinentInformation2 struct {
	TypeCode   string `xml:"typeCode,attr"`
	TemplateID TemplateIdentifier `xml:"templateId"`
	PertinentCareRecordElementCategory *CareRecordElementCategory `xml:"pertinentCareRecordElementCategory"`
}

func NewParentPrescriptionPertinentInformation2(category *CareRecordElementCategory) *ParentPrescriptionPertinentInformation2 {
	return &ParentPrescriptionPertinentInformation2{
		TypeCode:   "PERT",
		TemplateID: NewTemplateIdentifier("CSAB_RM-NPfITUK10.pertinentInformation1"),
		PertinentCareRecordElementCategory: category,
	}
}

// CareRecordElementCategory lists the act references that relate the
// document's clinical statements to the focal act.
type CareRecordElementCategory struct {
	ClassCode string                               `xml:"classCode,attr"`
	MoodCode  string                               `xml:"moodCode,attr"`
	Code      Code                                 `xml:"code"`
	Component []CareRecordElementCategoryComponent `xml:"component"`
}

func NewCareRecordElementCategory(components []CareRecordElementCategoryComponent) *CareRecordElementCategory {
	return &CareRecordElementCategory{
		ClassCode: "CATEGORY",
		MoodCode:  "EVN",
		Code:      NewSnomedCode("185361000000102", "Medication - care record element (record artifact)"),
		Component: components,
	}
}

type CareRecordElementCategoryComponent struct {
	TypeCode string `xml:"typeCode,attr"`
	ActRef   ActRef `xml:"actRef"`
}

func NewCareRecordElementCategoryComponent(lineItemID Identifier) CareRecordElementCategoryComponent {
	return CareRecordElementCategoryComponent{
		TypeCode: "COMP",
		ActRef:   ActRef{ClassCode: "SBADM", MoodCode: "RQO", ID: lineItemID},
	}
}

// ActRef points at another act by identifier.
type ActRef struct {
	ClassCode string     `xml:"classCode,attr"`
	MoodCode  string     `xml:"moodCode,attr"`
	ID        Identifier `xml:"id"`
}

// Prescription is the order-level act inside a ParentPrescription. It
// carries both the long-form UUID and the short-form prescription id.
type Prescription struct {
	ClassCode             string                           `xml:"classCode,attr"`
	MoodCode              string                           `xml:"moodCode,attr"`
	ID                    []Identifier                     `xml:"id"`
	Code                  Code                             `xml:"code"`
	EffectiveTime         NullTime                         `xml:"effectiveTime"`
	RepeatNumber          *Interval                        `xml:"repeatNumber,omitempty"`
	Performer             *Performer                       `xml:"performer,omitempty"`
	Author                *Author                          `xml:"author"`
	ResponsibleParty      *ResponsibleParty                `xml:"responsibleParty,omitempty"`
	Component1            *PrescriptionComponent1          `xml:"component1,omitempty"`
	PertinentInformation7 *PrescriptionPertinentInformation7 `xml:"pertinentInformation7,omitempty"`
	PertinentInformation5 *PrescriptionPertinentInformation5 `xml:"pertinentInformation5"`
	PertinentInformation1 *PrescriptionPertinentInformation1 `xml:"pertinentInformation1"`
	PertinentInformation2 []PrescriptionPertinentInformation2 `xml:"pertinentInformation2"`
	PertinentInformation8 *PrescriptionPertinentInformation8 `xml:"pertinentInformation8,omitempty"`
	PertinentInformation4 *PrescriptionPertinentInformation4 `xml:"pertinentInformation4"`
}

// NewPrescription pairs the long-form and short-form prescription ids. The
// two always travel together.
func NewPrescription(longFormID, shortFormID string) *Prescription {
	return &Prescription{
		ClassCode: "SBADM",
		MoodCode:  "RQO",
		ID: []Identifier{
			NewGlobalIdentifier(longFormID),
			NewShortFormPrescriptionIdentifier(shortFormID),
		},
		Code:          NewSnomedCode("16076005", "Prescription"),
		EffectiveTime: NewNullTime(),
	}
}

// PrescriptionComponent1 carries the number of days' supply.
type PrescriptionComponent1 struct {
	TypeCode   string      `xml:"typeCode,attr"`
	DaysSupply *DaysSupply `xml:"daysSupply"`
}

type DaysSupply struct {
	ClassCode     string    `xml:"classCode,attr"`
	MoodCode      string    `xml:"moodCode,attr"`
	Code          Code      `xml:"code"`
	EffectiveTime *Interval `xml:"effectiveTime,omitempty"`
	ExpectedUseTime *Interval `xml:"expectedUseTime,omitempty"`
}

func NewPrescriptionComponent1(validityPeriod, expectedUseTime *Interval) *PrescriptionComponent1 {
	return &PrescriptionComponent1{
		TypeCode: "COMP",
		DaysSupply: &DaysSupply{
			ClassCode:       "SPLY",
			MoodCode:        "RQO",
			Code:            NewSnomedCode("373784005", "Dispensing medication (procedure)"),
			EffectiveTime:   validityPeriod,
			ExpectedUseTime: expectedUseTime,
		},
	}
}

// PrescriptionPertinentInformation7 carries the review date on repeat
// prescribing prescriptions.
type PrescriptionPertinentInformation7 struct {
	TypeCode             string      `xml:"typeCode,attr"`
	ContextConductionInd string      `xml:"contextConductionInd,attr"`
	PertinentReviewDate  *ReviewDate `xml:"pertinentReviewDate"`
}

type ReviewDate struct {
	ClassCode string    `xml:"classCode,attr"`
	MoodCode  string    `xml:"moodCode,attr"`
	Code      Code      `xml:"code"`
	Value     Timestamp `xml:"value"`
}

func NewPrescriptionPertinentInformation7(reviewDate Timestamp) *PrescriptionPertinentInformation7 {
	return &PrescriptionPertinentInformation7{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentReviewDate: &ReviewDate{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("RD"),
			Value:     reviewDate,
		},
	}
}

// PrescriptionPertinentInformation5 carries the prescription treatment type
// (acute, repeat prescribing or repeat dispensing).
type PrescriptionPertinentInformation5 struct {
	TypeCode                          string                     `xml:"typeCode,attr"`
	ContextConductionInd              string                     `xml:"contextConductionInd,attr"`
	PertinentPrescriptionTreatmentType *PrescriptionTreatmentType `xml:"pertinentPrescriptionTreatmentType"`
}

type PrescriptionTreatmentType struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewPrescriptionPertinentInformation5(treatmentTypeCode string) *PrescriptionPertinentInformation5 {
	return &PrescriptionPertinentInformation5{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentPrescriptionTreatmentType: &PrescriptionTreatmentType{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("PTT"),
			Value:     Code{CodeSystem: "2.16.840.1.113883.2.1.3.2.4.16.36", Code: treatmentTypeCode},
		},
	}
}

// PrescriptionPertinentInformation1 carries the dispensing site preference.
type PrescriptionPertinentInformation1 struct {
	TypeCode                        string                   `xml:"typeCode,attr"`
	ContextConductionInd            string                   `xml:"contextConductionInd,attr"`
	PertinentDispensingSitePreference *DispensingSitePreference `xml:"pertinentDispensingSitePreference"`
}

type DispensingSitePreference struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewPrescriptionPertinentInformation1(performerSiteType string) *PrescriptionPertinentInformation1 {
	return &PrescriptionPertinentInformation1{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentDispensingSitePreference: &DispensingSitePreference{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("DSP"),
			Value:     Code{CodeSystem: OIDDispensingSitePreference, Code: performerSiteType},
		},
	}
}

// PrescriptionPertinentInformation8 records whether a prescription token
// was issued.
type PrescriptionPertinentInformation8 struct {
	TypeCode             string       `xml:"typeCode,attr"`
	ContextConductionInd string       `xml:"contextConductionInd,attr"`
	PertinentTokenIssued *TokenIssued `xml:"pertinentTokenIssued"`
}

type TokenIssued struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Bool   `xml:"value"`
}

func NewPrescriptionPertinentInformation8(tokenIssued bool) *PrescriptionPertinentInformation8 {
	return &PrescriptionPertinentInformation8{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentTokenIssued: &TokenIssued{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("TI"),
			Value:     Bool{Value: tokenIssued},
		},
	}
}

// PrescriptionPertinentInformation4 carries the prescription type code.
type PrescriptionPertinentInformation4 struct {
	TypeCode                  string            `xml:"typeCode,attr"`
	ContextConductionInd      string            `xml:"contextConductionInd,attr"`
	PertinentPrescriptionType *PrescriptionType `xml:"pertinentPrescriptionType"`
}

type PrescriptionType struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewPrescriptionPertinentInformation4(prescriptionTypeCode string) *PrescriptionPertinentInformation4 {
	return &PrescriptionPertinentInformation4{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentPrescriptionType: &PrescriptionType{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("PT"),
			Value:     Code{CodeSystem: OIDPrescriptionType, Code: prescriptionTypeCode},
		},
	}
}

// PrescriptionPertinentInformation2 attaches a line item to the
// prescription.
type PrescriptionPertinentInformation2 struct {
	TypeCode             string    `xml:"typeCode,attr"`
	ContextConductionInd string    `xml:"contextConductionInd,attr"`
	InversionInd         string    `xml:"inversionInd,attr"`
	NegationInd          string    `xml:"negationInd,attr"`
	SeperatableInd       Bool      `xml:"seperatableInd"`
	TemplateID           TemplateIdentifier `xml:"templateId"`
	PertinentLineItem    *LineItem `xml:"pertinentLineItem"`
}

func NewPrescriptionPertinentInformation2(lineItem *LineItem) PrescriptionPertinentInformation2 {
	return PrescriptionPertinentInformation2{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		InversionInd:         "false",
		NegationInd:          "false",
		SeperatableInd:       Bool{Value: true},
		TemplateID:           NewTemplateIdentifier("CSAB_RM-NPfITUK10.sourceOf2"),
		PertinentLineItem:    lineItem,
	}
}

// LineItem is one medication order within a prescription.
type LineItem struct {
	ClassCode             string                      `xml:"classCode,attr"`
	MoodCode              string                      `xml:"moodCode,attr"`
	ID                    Identifier                  `xml:"id"`
	Code                  Code                        `xml:"code"`
	EffectiveTime         NullTime                    `xml:"effectiveTime"`
	RepeatNumber          *Interval                   `xml:"repeatNumber,omitempty"`
	Product               *Product                    `xml:"product"`
	Component             *LineItemComponent          `xml:"component"`
	PertinentInformation4 *LineItemPertinentInformation4 `xml:"pertinentInformation4,omitempty"`
	PertinentInformation3 *LineItemPertinentInformation3 `xml:"pertinentInformation3,omitempty"`
	PertinentInformation1 *LineItemPertinentInformation1 `xml:"pertinentInformation1,omitempty"`
	PertinentInformation2 *LineItemPertinentInformation2 `xml:"pertinentInformation2"`
}

func NewLineItem(id string) *LineItem {
	return &LineItem{
		ClassCode:     "SBADM",
		MoodCode:      "RQO",
		ID:            NewGlobalIdentifier(id),
		Code:          NewSnomedCode("225426007", "Administration of therapeutic substance (procedure)"),
		EffectiveTime: NewNullTime(),
	}
}

// Product carries the requested medication.
type Product struct {
	TypeCode             string               `xml:"typeCode,attr"`
	ContextControlCode   string               `xml:"contextControlCode,attr"`
	ManufacturedProduct  *ManufacturedProduct `xml:"manufacturedProduct"`
}

type ManufacturedProduct struct {
	ClassCode                     string                         `xml:"classCode,attr"`
	ManufacturedRequestedMaterial *ManufacturedRequestedMaterial `xml:"manufacturedRequestedMaterial"`
}

type ManufacturedRequestedMaterial struct {
	ClassCode      string `xml:"classCode,attr"`
	DeterminerCode string `xml:"determinerCode,attr"`
	Code           Code   `xml:"code"`
}

func NewProduct(medication Code) *Product {
	return &Product{
		TypeCode:           "PRD",
		ContextControlCode: "OP",
		ManufacturedProduct: &ManufacturedProduct{
			ClassCode: "MANU",
			ManufacturedRequestedMaterial: &ManufacturedRequestedMaterial{
				ClassCode:      "MMAT",
				DeterminerCode: "KIND",
				Code:           medication,
			},
		},
	}
}

// LineItemComponent carries the requested quantity.
type LineItemComponent struct {
	TypeCode         string            `xml:"typeCode,attr"`
	SeperatableInd   Bool              `xml:"seperatableInd"`
	LineItemQuantity *LineItemQuantity `xml:"lineItemQuantity"`
}

type LineItemQuantity struct {
	ClassCode string   `xml:"classCode,attr"`
	MoodCode  string   `xml:"moodCode,attr"`
	Code      Code     `xml:"code"`
	Quantity  Quantity `xml:"quantity"`
}

func NewLineItemComponent(quantity Quantity) *LineItemComponent {
	return &LineItemComponent{
		TypeCode:       "COMP",
		SeperatableInd: Bool{Value: false},
		LineItemQuantity: &LineItemQuantity{
			ClassCode: "SPLY",
			MoodCode:  "RQO",
			Code:      NewSnomedCode("373784005", "Dispensing medication (procedure)"),
			Quantity:  quantity,
		},
	}
}

// LineItemPertinentInformation2 carries the rendered dosage instructions.
type LineItemPertinentInformation2 struct {
	TypeCode                    string              `xml:"typeCode,attr"`
	ContextConductionInd        string              `xml:"contextConductionInd,attr"`
	PertinentDosageInstructions *DosageInstructions `xml:"pertinentDosageInstructions"`
}

type DosageInstructions struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Text   `xml:"value"`
}

func NewLineItemPertinentInformation2(dosageText string) *LineItemPertinentInformation2 {
	return &LineItemPertinentInformation2{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentDosageInstructions: &DosageInstructions{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("DI"),
			Value:     Text{Value: dosageText},
		},
	}
}

// LineItemPertinentInformation1 carries additional instructions, including
// patient info wrapped in patientInfo markup.
type LineItemPertinentInformation1 struct {
	TypeCode                       string                  `xml:"typeCode,attr"`
	ContextConductionInd           string                  `xml:"contextConductionInd,attr"`
	PertinentAdditionalInstructions *AdditionalInstructions `xml:"pertinentAdditionalInstructions"`
}

type AdditionalInstructions struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Text   `xml:"value"`
}

func NewLineItemPertinentInformation1(additionalInstructions string) *LineItemPertinentInformation1 {
	return &LineItemPertinentInformation1{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentAdditionalInstructions: &AdditionalInstructions{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("AI"),
			Value:     Text{Value: additionalInstructions},
		},
	}
}

// LineItemPertinentInformation3 carries a prescriber endorsement.
type LineItemPertinentInformation3 struct {
	TypeCode                      string                 `xml:"typeCode,attr"`
	ContextConductionInd          string                 `xml:"contextConductionInd,attr"`
	PertinentPrescriberEndorsement *PrescriberEndorsement `xml:"pertinentPrescriberEndorsement"`
}

type PrescriberEndorsement struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewLineItemPertinentInformation3(endorsementCode string) *LineItemPertinentInformation3 {
	return &LineItemPertinentInformation3{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentPrescriberEndorsement: &PrescriberEndorsement{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("PE"),
			Value:     Code{CodeSystem: "2.16.840.1.113883.2.1.3.2.4.16.33", Code: endorsementCode},
		},
	}
}

// LineItemPertinentInformation4 carries the item status on documents coming
// back from Spine.
type LineItemPertinentInformation4 struct {
	TypeCode             string      `xml:"typeCode,attr"`
	ContextConductionInd string      `xml:"contextConductionInd,attr"`
	PertinentItemStatus  *ItemStatus `xml:"pertinentItemStatus"`
}

type ItemStatus struct {
	ClassCode string `xml:"classCode,attr"`
	MoodCode  string `xml:"moodCode,attr"`
	Code      Code   `xml:"code"`
	Value     Code   `xml:"value"`
}

func NewLineItemPertinentInformation4(statusCode, statusDisplay string) *LineItemPertinentInformation4 {
	return &LineItemPertinentInformation4{
		TypeCode:             "PERT",
		ContextConductionInd: "true",
		PertinentItemStatus: &ItemStatus{
			ClassCode: "OBS",
			MoodCode:  "EVN",
			Code:      NewPrescriptionAnnotationCode("IS"),
			Value:     Code{CodeSystem: OIDItemStatus, Code: statusCode, DisplayName: statusDisplay},
		},
	}
}
