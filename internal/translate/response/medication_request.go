package response

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

const (
	systemPrescriptionType        = "https://fhir.nhs.uk/CodeSystem/prescription-type"
	systemMedicationEndorsement   = "https://fhir.nhs.uk/CodeSystem/medicationrequest-endorsement"
	systemDispensingSitePreference = "https://fhir.nhs.uk/CodeSystem/dispensing-site-preference"
	systemCourseOfTherapyHL7      = "http://terminology.hl7.org/CodeSystem/medicationrequest-course-of-therapy"
	systemCourseOfTherapyNHS      = "https://fhir.nhs.uk/CodeSystem/medicationrequest-course-of-therapy"
)

// lineItemStatus maps an HL7v3 item status code onto a MedicationRequest
// status.
func lineItemStatus(code string) (string, error) {
	switch code {
	case "0001":
		return "completed", nil
	case "0002", "0006":
		return "stopped", nil
	case "0003", "0004", "0007", "0008":
		return "active", nil
	case "0005":
		return "cancelled", nil
	default:
		return "", fhir.NewInvalidValueError(
			fmt.Sprintf("Unhandled item status code %q.", code), "MedicationRequest.status")
	}
}

// CreateMedicationRequest rebuilds the FHIR line item from a released
// prescription's HL7v3 line item and its parent prescription act.
func CreateMedicationRequest(prescription *hl7v3.Prescription, lineItem *hl7v3.LineItem, patientID, requesterRoleID, responsiblePartyRoleID string) (*fhir.MedicationRequest, error) {
	medicationRequest := &fhir.MedicationRequest{
		Base:   fhir.Base{ResourceType: "MedicationRequest", ID: uuid.NewString()},
		Status: "active",
		Intent: "order",
		Identifier: []fhir.Identifier{
			fhir.NewIdentifier(fhir.SystemPrescriptionOrderItem, translate.LowercaseUUID(lineItem.ID.Root)),
		},
		Subject:   fhir.NewReference(patientID),
		Requester: fhir.NewReference(requesterRoleID),
		Substitution: &fhir.Substitution{AllowedBoolean: false},
	}

	if information := lineItem.PertinentInformation4; information != nil && information.PertinentItemStatus != nil {
		status, err := lineItemStatus(information.PertinentItemStatus.Value.Code)
		if err != nil {
			return nil, err
		}
		medicationRequest.Status = status
	}

	instructions := lineItemInstructions(lineItem)

	extensions, err := medicationRequestExtensions(prescription, lineItem, responsiblePartyRoleID, instructions)
	if err != nil {
		return nil, err
	}
	medicationRequest.Extension = extensions

	if product := lineItem.Product; product != nil && product.ManufacturedProduct != nil &&
		product.ManufacturedProduct.ManufacturedRequestedMaterial != nil {
		material := product.ManufacturedProduct.ManufacturedRequestedMaterial
		medicationRequest.MedicationCodeableConcept = fhir.NewCodeableConcept(
			fhir.SystemSNOMED, material.Code.Code, material.Code.DisplayName)
	}

	medicationRequest.GroupIdentifier, err = prescriptionGroupIdentifier(prescription)
	if err != nil {
		return nil, err
	}
	medicationRequest.CourseOfTherapyType = courseOfTherapyType(prescription)

	dosageInstruction := fhir.Dosage{PatientInstruction: instructions.AdditionalInstructions}
	if information := lineItem.PertinentInformation2; information != nil && information.PertinentDosageInstructions != nil {
		dosageInstruction.Text = information.PertinentDosageInstructions.Value.Value
	}
	medicationRequest.DosageInstruction = []fhir.Dosage{dosageInstruction}

	medicationRequest.DispenseRequest, err = createDispenseRequest(prescription, lineItem)
	if err != nil {
		return nil, err
	}
	return medicationRequest, nil
}

func lineItemInstructions(lineItem *hl7v3.LineItem) ParsedInstructions {
	if information := lineItem.PertinentInformation1; information != nil && information.PertinentAdditionalInstructions != nil {
		return ParseAdditionalInstructions(information.PertinentAdditionalInstructions.Value.Value)
	}
	return ParsedInstructions{}
}

func medicationRequestExtensions(prescription *hl7v3.Prescription, lineItem *hl7v3.LineItem, responsiblePartyRoleID string, instructions ParsedInstructions) ([]fhir.Extension, error) {
	extensions := []fhir.Extension{
		{
			URL:            translate.ExtensionResponsiblePractitioner,
			ValueReference: fhir.NewReference(responsiblePartyRoleID),
		},
	}

	if information := prescription.PertinentInformation4; information != nil && information.PertinentPrescriptionType != nil {
		value := information.PertinentPrescriptionType.Value
		extensions = append(extensions, fhir.Extension{
			URL:         translate.ExtensionPrescriptionType,
			ValueCoding: &fhir.Coding{System: systemPrescriptionType, Code: value.Code, Display: value.DisplayName},
		})
	}

	if information := lineItem.PertinentInformation3; information != nil && information.PertinentPrescriberEndorsement != nil {
		value := information.PertinentPrescriberEndorsement.Value
		extensions = append(extensions, fhir.Extension{
			URL:                  translate.ExtensionPrescriptionEndorsement,
			ValueCodeableConcept: fhir.NewCodeableConcept(systemMedicationEndorsement, value.Code, value.DisplayName),
		})
	}

	if repeatInformation, err := repeatInformationExtension(prescription, lineItem); err != nil {
		return nil, err
	} else if repeatInformation != nil {
		extensions = append(extensions, *repeatInformation)
	}

	if instructions.ControlledDrugWords != "" {
		extensions = append(extensions, fhir.Extension{
			URL: translate.ExtensionControlledDrug,
			Extension: []fhir.Extension{
				{URL: "quantityWords", ValueString: instructions.ControlledDrugWords},
			},
		})
	}
	return extensions, nil
}

// repeatInformationExtension rebuilds the repeat information carried on
// repeat dispensing prescriptions: the number of issues authorised and
// issued from the repeat number interval, and the authorisation expiry from
// the review date.
func repeatInformationExtension(prescription *hl7v3.Prescription, lineItem *hl7v3.LineItem) (*fhir.Extension, error) {
	repeatNumber := lineItem.RepeatNumber
	if repeatNumber == nil {
		repeatNumber = prescription.RepeatNumber
	}
	if repeatNumber == nil {
		return nil, nil
	}

	var nested []fhir.Extension
	if information := prescription.PertinentInformation7; information != nil && information.PertinentReviewDate != nil {
		expiry, err := translate.ConvertHL7DateTimeToISO(information.PertinentReviewDate.Value)
		if err != nil {
			return nil, err
		}
		nested = append(nested, fhir.Extension{URL: "authorisationExpiryDate", ValueDateTime: expiry})
	}
	if repeatNumber.Low != nil {
		nested = append(nested, fhir.Extension{
			URL:              "numberOfRepeatPrescriptionsIssued",
			ValueUnsignedInt: json.Number(repeatNumber.Low.Value),
		})
	}
	if repeatNumber.High != nil {
		nested = append(nested, fhir.Extension{
			URL:              "numberOfRepeatPrescriptionsAllowed",
			ValueUnsignedInt: json.Number(repeatNumber.High.Value),
		})
	}
	return &fhir.Extension{URL: translate.ExtensionMedicationRepeatInformation, Extension: nested}, nil
}

// prescriptionGroupIdentifier pairs the prescription's long-form UUID and
// short-form id back into a FHIR group identifier.
func prescriptionGroupIdentifier(prescription *hl7v3.Prescription) (*fhir.GroupIdentifier, error) {
	shortFormID, longFormID := "", ""
	for _, id := range prescription.ID {
		if id.Root == hl7v3.OIDShortFormPrescriptionID {
			shortFormID = id.Extension
		} else if id.Extension == "" {
			longFormID = id.Root
		}
	}
	if shortFormID == "" || longFormID == "" {
		return nil, fhir.NewTooFewValuesError(
			"Expected both a long-form and a short-form prescription id.", "Prescription.id")
	}
	return translate.BuildGroupIdentifier(shortFormID, longFormID), nil
}

func courseOfTherapyType(prescription *hl7v3.Prescription) *fhir.CodeableConcept {
	treatmentType := ""
	if information := prescription.PertinentInformation5; information != nil && information.PertinentPrescriptionTreatmentType != nil {
		treatmentType = information.PertinentPrescriptionTreatmentType.Value.Code
	}
	switch {
	case treatmentType == "0003":
		return fhir.NewCodeableConcept(systemCourseOfTherapyNHS,
			"continuous-repeat-dispensing", "Continuous long term (repeat dispensing)")
	case treatmentType == "0002" || prescription.RepeatNumber != nil:
		return fhir.NewCodeableConcept(systemCourseOfTherapyHL7, "continuous", "Continuous long term therapy")
	default:
		return fhir.NewCodeableConcept(systemCourseOfTherapyHL7, "acute", "Short course (acute) therapy")
	}
}

func createDispenseRequest(prescription *hl7v3.Prescription, lineItem *hl7v3.LineItem) (*fhir.DispenseRequest, error) {
	dispenseRequest := &fhir.DispenseRequest{}

	if information := prescription.PertinentInformation1; information != nil && information.PertinentDispensingSitePreference != nil {
		dispenseRequest.Extension = []fhir.Extension{{
			URL: translate.ExtensionPerformerSiteType,
			ValueCoding: &fhir.Coding{
				System: systemDispensingSitePreference,
				Code:   information.PertinentDispensingSitePreference.Value.Code,
			},
		}}
	}

	if component := lineItem.Component; component != nil && component.LineItemQuantity != nil {
		quantity := component.LineItemQuantity.Quantity
		converted := &fhir.Quantity{Value: json.Number(quantity.Value)}
		if translation := quantity.Translation; translation != nil {
			converted.Unit = translation.DisplayName
			converted.System = fhir.SystemSNOMED
			converted.Code = translation.Code
		}
		dispenseRequest.Quantity = converted
	}

	if component := prescription.Component1; component != nil && component.DaysSupply != nil {
		daysSupply := component.DaysSupply
		if effectiveTime := daysSupply.EffectiveTime; effectiveTime != nil {
			period := &fhir.Period{}
			if effectiveTime.Low != nil {
				start, err := translate.ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: effectiveTime.Low.Value})
				if err != nil {
					return nil, err
				}
				period.Start = start
			}
			if effectiveTime.High != nil {
				end, err := translate.ConvertHL7DateTimeToISO(hl7v3.Timestamp{Value: effectiveTime.High.Value})
				if err != nil {
					return nil, err
				}
				period.End = end
			}
			dispenseRequest.ValidityPeriod = period
		}
		if expectedUseTime := daysSupply.ExpectedUseTime; expectedUseTime != nil && expectedUseTime.High != nil {
			dispenseRequest.ExpectedSupplyDuration = &fhir.Quantity{
				Value:  json.Number(expectedUseTime.High.Value),
				Unit:   "day",
				System: fhir.SystemUnitsOfMeasure,
				Code:   "d",
			}
		}
	}

	if repeatNumber := prescription.RepeatNumber; repeatNumber != nil && repeatNumber.High != nil {
		dispenseRequest.NumberOfRepeatsAllowed = json.Number(repeatNumber.High.Value)
	}

	if performer := prescription.Performer; performer != nil && performer.AgentOrg != nil &&
		performer.AgentOrg.AgentOrganization != nil {
		dispenseRequest.Performer = &fhir.Reference{
			Identifier: &fhir.Identifier{
				System: fhir.SystemODSOrganizationCode,
				Value:  performer.AgentOrg.AgentOrganization.ID.Extension,
			},
		}
	}
	return dispenseRequest, nil
}
