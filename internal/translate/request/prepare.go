package request

import (
	"encoding/base64"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/signature"
)

// AlgorithmRS1 names the RSA-SHA1 signing scheme in prepare responses.
const AlgorithmRS1 = "RS1"

// ConvertBundleToPrepareResponse builds the $prepare response: the encoded
// SignedInfo over the prescription digest, the display text the prescriber
// reviews before signing, and the signing algorithm.
func ConvertBundleToPrepareResponse(bundle *fhir.Bundle) (*fhir.Parameters, error) {
	parentPrescription, err := ConvertBundleToParentPrescription(bundle)
	if err != nil {
		return nil, err
	}
	fragments, err := signature.ExtractFragments(parentPrescription)
	if err != nil {
		return nil, err
	}
	hashable, err := fragments.HashableFormat()
	if err != nil {
		return nil, err
	}
	payload, err := signature.SignedInfoPayload(hashable, signature.SHA1)
	if err != nil {
		return nil, err
	}
	display, err := fragments.DisplayFormat()
	if err != nil {
		return nil, err
	}

	return &fhir.Parameters{
		Base: fhir.Base{ResourceType: "Parameters"},
		Parameter: []fhir.Parameter{
			{Name: "payload", ValueString: payload},
			{Name: "display", ValueString: base64.StdEncoding.EncodeToString([]byte(display))},
			{Name: "algorithm", ValueString: AlgorithmRS1},
		},
	}, nil
}
