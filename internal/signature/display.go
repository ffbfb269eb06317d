package signature

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/eps/gateway/internal/platform/hl7v3"
)

// Display is the human-readable rendition of the signable fragments, shown
// to the prescriber before signing so they can confirm what the digest
// covers.
type Display struct {
	SignDate        string
	PrescriptionID  string
	PrescriberName  string
	PatientID       string
	MedicationItems []DisplayMedication
}

type DisplayMedication struct {
	Name     string
	Quantity string
	Unit     string
	Dosage   string
}

// Signing clients render the text verbatim, so line endings are CRLF.
const displayTemplateText = "Signature Date: {{.SignDate}}\r\n" +
	"Prescription ID: {{.PrescriptionID}}\r\n" +
	"Prescriber: {{.PrescriberName}}\r\n" +
	"Patient NHS Number: {{.PatientID}}\r\n" +
	"\r\n" +
	"Medication Requested:\r\n" +
	"{{range .MedicationItems}}" +
	"{{.Name}}\t{{.Quantity}} {{.Unit}}\t{{.Dosage}}\r\n" +
	"{{end}}"

var displayTemplate = template.Must(template.New("display").Parse(displayTemplateText))

// DisplayFormat renders the fragments for on-screen review.
func (f *Fragments) DisplayFormat() (string, error) {
	display := Display{
		SignDate:       f.Time.Value,
		PrescriptionID: f.ID.Root,
	}
	if person := f.AgentPerson.AgentPerson; person != nil && person.Name != nil {
		display.PrescriberName = displayName(person.Name)
	}
	if f.RecordTarget != nil && f.RecordTarget.Patient != nil {
		display.PatientID = f.RecordTarget.Patient.ID.Extension
	}
	for _, lineItem := range f.LineItems {
		display.MedicationItems = append(display.MedicationItems, displayMedication(lineItem))
	}

	var out bytes.Buffer
	if err := displayTemplate.Execute(&out, display); err != nil {
		return "", fmt.Errorf("signature: rendering display: %w", err)
	}
	return out.String(), nil
}

func displayName(name *hl7v3.Name) string {
	if name.Unstructured != "" {
		return name.Unstructured
	}
	var out bytes.Buffer
	for _, prefix := range name.Prefix {
		out.WriteString(prefix + " ")
	}
	for _, given := range name.Given {
		out.WriteString(given + " ")
	}
	out.WriteString(name.Family)
	return out.String()
}

func displayMedication(lineItem *hl7v3.LineItem) DisplayMedication {
	medication := DisplayMedication{}
	if lineItem.Product != nil &&
		lineItem.Product.ManufacturedProduct != nil &&
		lineItem.Product.ManufacturedProduct.ManufacturedRequestedMaterial != nil {
		medication.Name = lineItem.Product.ManufacturedProduct.ManufacturedRequestedMaterial.Code.DisplayName
	}
	if lineItem.Component != nil && lineItem.Component.LineItemQuantity != nil {
		quantity := lineItem.Component.LineItemQuantity.Quantity
		medication.Quantity = quantity.Value
		if quantity.Translation != nil {
			medication.Unit = quantity.Translation.DisplayName
		}
	}
	if lineItem.PertinentInformation2 != nil && lineItem.PertinentInformation2.PertinentDosageInstructions != nil {
		medication.Dosage = lineItem.PertinentInformation2.PertinentDosageInstructions.Value.Value
	}
	return medication
}
