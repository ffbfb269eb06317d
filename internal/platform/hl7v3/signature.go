package hl7v3

import "encoding/xml"

// XML-DSig algorithm URIs used by prescription signatures.
const (
	AlgorithmExclusiveC14N = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgorithmRSASHA1       = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgorithmRSASHA256     = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgorithmDigestSHA1    = "http://www.w3.org/2000/09/xmldsig#sha1"
	AlgorithmDigestSHA256  = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// SignatureText wraps the detached XML-DSig envelope carried inside an
// author's signatureText element. Unsigned documents carry a nullFlavor
// instead of a signature.
type SignatureText struct {
	NullFlavor string     `xml:"nullFlavor,attr,omitempty"`
	Signature  *Signature `xml:"Signature,omitempty"`
}

// NewNotApplicableSignatureText marks the signatureText as structurally
// present but not applicable.
func NewNotApplicableSignatureText() *SignatureText {
	return &SignatureText{NullFlavor: "NA"}
}

// Signature is a detached XML-DSig signature over the prescription's
// signable fragments.
type Signature struct {
	XMLName        xml.Name        `xml:"Signature"`
	Xmlns          string          `xml:"xmlns,attr,omitempty"`
	SignedInfo     *SignedInfo     `xml:"SignedInfo"`
	SignatureValue *SignatureValue `xml:"SignatureValue"`
	KeyInfo        *KeyInfo        `xml:"KeyInfo"`
}

type SignedInfo struct {
	CanonicalizationMethod *AlgorithmIdentifier `xml:"CanonicalizationMethod"`
	SignatureMethod        *AlgorithmIdentifier `xml:"SignatureMethod"`
	Reference              *SignatureReference  `xml:"Reference"`
}

type AlgorithmIdentifier struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type SignatureReference struct {
	URI          string               `xml:"URI,attr,omitempty"`
	Transforms   *Transforms          `xml:"Transforms,omitempty"`
	DigestMethod *AlgorithmIdentifier `xml:"DigestMethod"`
	DigestValue  string               `xml:"DigestValue"`
}

type Transforms struct {
	Transform []AlgorithmIdentifier `xml:"Transform"`
}

type SignatureValue struct {
	Value string `xml:",chardata"`
}

type KeyInfo struct {
	X509Data *X509Data `xml:"X509Data"`
}

type X509Data struct {
	X509Certificate string `xml:"X509Certificate"`
}

// NewSignedInfo builds the SignedInfo for a freshly computed digest, using
// exclusive canonicalization throughout.
func NewSignedInfo(signatureMethod, digestMethod, digestValue string) *SignedInfo {
	return &SignedInfo{
		CanonicalizationMethod: &AlgorithmIdentifier{Algorithm: AlgorithmExclusiveC14N},
		SignatureMethod:        &AlgorithmIdentifier{Algorithm: signatureMethod},
		Reference: &SignatureReference{
			Transforms:   &Transforms{Transform: []AlgorithmIdentifier{{Algorithm: AlgorithmExclusiveC14N}}},
			DigestMethod: &AlgorithmIdentifier{Algorithm: digestMethod},
			DigestValue:  digestValue,
		},
	}
}
