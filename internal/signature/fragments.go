package signature

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
)

// Fragments are the signable parts of a ParentPrescription: the signing
// time and prescription id, the author, the record target, and every line
// item. The same extraction feeds digest creation during prepare and digest
// recomputation during verification, so the two stay byte-identical.
type Fragments struct {
	Time         hl7v3.Timestamp
	ID           hl7v3.Identifier
	AgentPerson  *hl7v3.AgentPerson
	RecordTarget *hl7v3.RecordTarget
	LineItems    []*hl7v3.LineItem
}

// ExtractFragments pulls the signable fragments out of a prescription.
func ExtractFragments(parentPrescription *hl7v3.ParentPrescription) (*Fragments, error) {
	if parentPrescription.PertinentInformation1 == nil || parentPrescription.PertinentInformation1.PertinentPrescription == nil {
		return nil, fhir.NewTooFewValuesError("Prescription document has no pertinentPrescription.", "")
	}
	prescription := parentPrescription.PertinentInformation1.PertinentPrescription
	if prescription.Author == nil || prescription.Author.AgentPerson == nil {
		return nil, fhir.NewTooFewValuesError("Prescription document has no author.", "")
	}
	if len(prescription.ID) == 0 {
		return nil, fhir.NewTooFewValuesError("Prescription document has no id.", "")
	}

	fragments := &Fragments{
		ID:           prescription.ID[0],
		AgentPerson:  prescription.Author.AgentPerson,
		RecordTarget: parentPrescription.RecordTarget,
	}
	if prescription.Author.Time != nil {
		fragments.Time = *prescription.Author.Time
	}
	for _, information := range prescription.PertinentInformation2 {
		fragments.LineItems = append(fragments.LineItems, information.PertinentLineItem)
	}
	return fragments, nil
}

// HashableFormat renders the fragments as the canonical
// FragmentsToBeHashed document that gets hashed and signed. Every fragment
// element carries the HL7v3 namespace explicitly.
func (f *Fragments) HashableFormat() (string, error) {
	var out bytes.Buffer
	out.WriteString("<FragmentsToBeHashed>")

	out.WriteString("<Fragment>")
	if err := encodeNamespaced(&out, "time", f.Time); err != nil {
		return "", err
	}
	if err := encodeNamespaced(&out, "id", f.ID); err != nil {
		return "", err
	}
	out.WriteString("</Fragment>")

	out.WriteString("<Fragment>")
	if err := encodeNamespaced(&out, "AgentPerson", f.AgentPerson); err != nil {
		return "", err
	}
	out.WriteString("</Fragment>")

	out.WriteString("<Fragment>")
	if err := encodeNamespaced(&out, "recordTarget", f.RecordTarget); err != nil {
		return "", err
	}
	out.WriteString("</Fragment>")

	for _, lineItem := range f.LineItems {
		out.WriteString("<Fragment>")
		if err := encodeNamespaced(&out, "pertinentLineItem", lineItem); err != nil {
			return "", err
		}
		out.WriteString("</Fragment>")
	}

	out.WriteString("</FragmentsToBeHashed>")
	return Canonicalize(out.String())
}

func encodeNamespaced(out *bytes.Buffer, name string, value any) error {
	encoder := xml.NewEncoder(out)
	start := xml.StartElement{
		Name: xml.Name{Local: name},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: hl7v3.Namespace}},
	}
	if err := encoder.EncodeElement(value, start); err != nil {
		return fmt.Errorf("signature: encoding fragment %s: %w", name, err)
	}
	return encoder.Flush()
}
