package signature

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/eps/gateway/internal/platform/hl7v3"
)

// Algorithm is the hashing algorithm named by a signature method URI.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
)

func (a Algorithm) Hash() crypto.Hash {
	if a == SHA256 {
		return crypto.SHA256
	}
	return crypto.SHA1
}

func (a Algorithm) signatureMethodURI() string {
	if a == SHA256 {
		return hl7v3.AlgorithmRSASHA256
	}
	return hl7v3.AlgorithmRSASHA1
}

func (a Algorithm) digestMethodURI() string {
	if a == SHA256 {
		return hl7v3.AlgorithmDigestSHA256
	}
	return hl7v3.AlgorithmDigestSHA1
}

// AlgorithmFromSignatureMethod detects the hashing algorithm from a
// SignatureMethod URI. Anything that is not recognisably rsa-sha256 falls
// back to SHA-1; the caller is expected to rewrite the method attributes in
// that case.
func AlgorithmFromSignatureMethod(algorithmURI string) (Algorithm, bool) {
	switch {
	case strings.Contains(algorithmURI, "rsa-sha256"):
		return SHA256, true
	case strings.Contains(algorithmURI, "rsa-sha1"):
		return SHA1, true
	default:
		return SHA1, false
	}
}

// Digest hashes the canonical fragments and returns the base64 digest
// value.
func Digest(hashableFragments string, algorithm Algorithm) string {
	switch algorithm {
	case SHA256:
		sum := sha256.Sum256([]byte(hashableFragments))
		return base64.StdEncoding.EncodeToString(sum[:])
	default:
		sum := sha1.Sum([]byte(hashableFragments))
		return base64.StdEncoding.EncodeToString(sum[:])
	}
}

// SignedInfoPayload builds the canonicalized SignedInfo over the fragment
// digest and returns it base64-encoded, ready for the prepare response
// payload parameter.
func SignedInfoPayload(hashableFragments string, algorithm Algorithm) (string, error) {
	canonical, err := CanonicalSignedInfo(hashableFragments, algorithm)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(canonical)), nil
}

// CanonicalSignedInfo renders the SignedInfo for the fragment digest in
// exclusive canonical form with the HL7v3 DSig namespace.
func CanonicalSignedInfo(hashableFragments string, algorithm Algorithm) (string, error) {
	digestValue := Digest(hashableFragments, algorithm)
	signedInfo := hl7v3.NewSignedInfo(algorithm.signatureMethodURI(), algorithm.digestMethodURI(), digestValue)

	document, err := marshalSignedInfo(signedInfo)
	if err != nil {
		return "", err
	}
	return Canonicalize(document)
}

func marshalSignedInfo(signedInfo *hl7v3.SignedInfo) (string, error) {
	wrapper := struct {
		XMLName xml.Name `xml:"SignedInfo"`
		Xmlns   string   `xml:"xmlns,attr"`
		*hl7v3.SignedInfo
	}{
		Xmlns:      "http://www.w3.org/2000/09/xmldsig#",
		SignedInfo: signedInfo,
	}
	body, err := xml.Marshal(wrapper)
	if err != nil {
		return "", fmt.Errorf("signature: marshalling SignedInfo: %w", err)
	}
	return string(body), nil
}
