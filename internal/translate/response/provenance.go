package response

import (
	"encoding/base64"
	"encoding/xml"

	"github.com/google/uuid"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/translate"
)

// ConvertSignatureTextToProvenance re-encodes the prescription author's
// detached signature as a Provenance resource targeting every other resource
// in the bundle. The signature markup round-trips as base64 XML.
func ConvertSignatureTextToProvenance(author *hl7v3.Author, authorRoleID string, targetIDs []string) (*fhir.Provenance, error) {
	recorded := ""
	if author.Time != nil {
		converted, err := translate.ConvertHL7DateTimeToISO(*author.Time)
		if err != nil {
			return nil, err
		}
		recorded = converted
	}

	data := ""
	if author.SignatureText != nil && author.SignatureText.Signature != nil {
		markup, err := xml.Marshal(author.SignatureText.Signature)
		if err != nil {
			return nil, fhir.NewInvalidValueError("Could not re-encode the prescription signature.", "")
		}
		data = base64.StdEncoding.EncodeToString(markup)
	}

	provenance := &fhir.Provenance{
		Base:     fhir.Base{ResourceType: "Provenance", ID: uuid.NewString()},
		Recorded: recorded,
		Agent:    []fhir.ProvenanceAgent{{Who: fhir.NewReference(authorRoleID)}},
		Signature: []fhir.Signature{{
			Type: []fhir.Coding{{
				System: "urn:iso-astm:E1762-95:2013",
				Code:   "1.2.840.10065.1.12.1.1",
			}},
			When: recorded,
			Who:  fhir.NewReference(authorRoleID),
			Data: data,
		}},
	}
	for _, targetID := range targetIDs {
		provenance.Target = append(provenance.Target, *fhir.NewReference(targetID))
	}
	return provenance, nil
}
