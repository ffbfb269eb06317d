package signature

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/platform/hl7v3"
)

// Verification error strings. Absence of a string means that check passed.
const (
	ErrInvalidFormat          = "Invalid signature format"
	ErrInvalidCertificate     = "Invalid certificate"
	ErrSignatureInvalid       = "Signature is invalid"
	ErrDigestMismatch         = "Signature doesn't match prescription"
	ErrCertificateRevoked     = "Certificate is revoked"
	ErrCertificateExpired     = "Certificate expired when signed"
	ErrCertificateNotTrusted  = "Certificate not trusted"
)

// CRLSource supplies the current certificate revocation list.
type CRLSource interface {
	RevocationList(ctx context.Context) (*x509.RevocationList, error)
}

// Verifier checks prescription signatures against a set of trusted sub-CA
// certificates and a revocation list.
type Verifier struct {
	trusted []*x509.Certificate
	crl     CRLSource
	logger  zerolog.Logger
}

func NewVerifier(trusted []*x509.Certificate, crl CRLSource, logger zerolog.Logger) *Verifier {
	return &Verifier{trusted: trusted, crl: crl, logger: logger}
}

// VerifyPrescriptionSignature runs the verification pipeline over one
// prescription. Format validation is a hard gate; the remaining checks all
// run and their error strings accumulate. An empty result means the
// signature is fully valid.
func (v *Verifier) VerifyPrescriptionSignature(ctx context.Context, parentPrescription *hl7v3.ParentPrescription) []string {
	signatureRoot := extractSignatureRoot(parentPrescription)
	if !hasCorrectFormat(signatureRoot) {
		return []string{ErrInvalidFormat}
	}
	dsigSignature := signatureRoot.Signature

	certificate, err := parseCertificate(dsigSignature.KeyInfo.X509Data.X509Certificate)
	if err != nil {
		v.logger.Warn().Err(err).Msg("could not parse X509 certificate")
		return []string{ErrInvalidCertificate}
	}

	algorithm, recognised := AlgorithmFromSignatureMethod(dsigSignature.SignedInfo.SignatureMethod.Algorithm)
	if !recognised {
		dsigSignature.SignedInfo.SignatureMethod.Algorithm = hl7v3.AlgorithmRSASHA1
		dsigSignature.SignedInfo.Reference.DigestMethod.Algorithm = hl7v3.AlgorithmDigestSHA1
	}

	var errors []string
	if !v.verifySignatureValid(dsigSignature, certificate, algorithm) {
		errors = append(errors, ErrSignatureInvalid)
	}
	if !v.verifyDigestMatches(parentPrescription, dsigSignature, algorithm) {
		errors = append(errors, ErrDigestMismatch)
	}
	if v.isRevoked(ctx, certificate) {
		errors = append(errors, ErrCertificateRevoked)
	}
	if !v.verifyValidWhenSigned(parentPrescription, certificate) {
		errors = append(errors, ErrCertificateExpired)
	}
	if !v.verifyChain(certificate) {
		errors = append(errors, ErrCertificateNotTrusted)
	}
	return errors
}

func extractSignatureRoot(parentPrescription *hl7v3.ParentPrescription) *hl7v3.SignatureText {
	information := parentPrescription.PertinentInformation1
	if information == nil || information.PertinentPrescription == nil {
		return nil
	}
	author := information.PertinentPrescription.Author
	if author == nil {
		return nil
	}
	return author.SignatureText
}

func hasCorrectFormat(signatureRoot *hl7v3.SignatureText) bool {
	if signatureRoot == nil || signatureRoot.Signature == nil {
		return false
	}
	dsigSignature := signatureRoot.Signature
	return dsigSignature.SignedInfo != nil &&
		dsigSignature.SignedInfo.SignatureMethod != nil &&
		dsigSignature.SignedInfo.Reference != nil &&
		dsigSignature.SignedInfo.Reference.DigestMethod != nil &&
		dsigSignature.SignatureValue != nil &&
		strings.TrimSpace(dsigSignature.SignatureValue.Value) != "" &&
		dsigSignature.KeyInfo != nil &&
		dsigSignature.KeyInfo.X509Data != nil &&
		strings.TrimSpace(dsigSignature.KeyInfo.X509Data.X509Certificate) != ""
}

func parseCertificate(base64Certificate string) (*x509.Certificate, error) {
	stripped := stripWhitespace(base64Certificate)
	der, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("signature: decoding certificate: %w", err)
	}
	return x509.ParseCertificate(der)
}

func (v *Verifier) verifySignatureValid(dsigSignature *hl7v3.Signature, certificate *x509.Certificate, algorithm Algorithm) bool {
	publicKey, ok := certificate.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}
	canonical, err := canonicalEmbeddedSignedInfo(dsigSignature)
	if err != nil {
		v.logger.Warn().Err(err).Msg("could not canonicalize SignedInfo")
		return false
	}
	signatureValue, err := base64.StdEncoding.DecodeString(stripWhitespace(dsigSignature.SignatureValue.Value))
	if err != nil {
		return false
	}

	hasher := algorithm.Hash().New()
	hasher.Write([]byte(canonical))
	return rsa.VerifyPKCS1v15(publicKey, algorithm.Hash(), hasher.Sum(nil), signatureValue) == nil
}

// canonicalEmbeddedSignedInfo re-serializes the SignedInfo carried in the
// signature, with the DSig namespace hoisted onto it, in canonical form.
func canonicalEmbeddedSignedInfo(dsigSignature *hl7v3.Signature) (string, error) {
	xmlns := dsigSignature.Xmlns
	if xmlns == "" {
		xmlns = "http://www.w3.org/2000/09/xmldsig#"
	}
	wrapper := struct {
		XMLName xml.Name `xml:"SignedInfo"`
		Xmlns   string   `xml:"xmlns,attr"`
		*hl7v3.SignedInfo
	}{
		Xmlns:      xmlns,
		SignedInfo: dsigSignature.SignedInfo,
	}
	body, err := xml.Marshal(wrapper)
	if err != nil {
		return "", fmt.Errorf("signature: marshalling SignedInfo: %w", err)
	}
	return Canonicalize(string(body))
}

func (v *Verifier) verifyDigestMatches(parentPrescription *hl7v3.ParentPrescription, dsigSignature *hl7v3.Signature, algorithm Algorithm) bool {
	fragments, err := ExtractFragments(parentPrescription)
	if err != nil {
		v.logger.Warn().Err(err).Msg("could not extract signable fragments")
		return false
	}
	hashable, err := fragments.HashableFormat()
	if err != nil {
		v.logger.Warn().Err(err).Msg("could not canonicalize signable fragments")
		return false
	}

	embedded, err := base64.StdEncoding.DecodeString(stripWhitespace(dsigSignature.SignedInfo.Reference.DigestValue))
	if err != nil {
		return false
	}
	calculated, err := base64.StdEncoding.DecodeString(Digest(hashable, algorithm))
	if err != nil {
		return false
	}
	return bytes.Equal(embedded, calculated)
}

func (v *Verifier) isRevoked(ctx context.Context, certificate *x509.Certificate) bool {
	if v.crl == nil {
		return false
	}
	revocationList, err := v.crl.RevocationList(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Msg("could not fetch certificate revocation list")
		return false
	}
	for _, entry := range revocationList.RevokedCertificateEntries {
		if entry.SerialNumber.Cmp(certificate.SerialNumber) == 0 {
			return true
		}
	}
	return false
}

func (v *Verifier) verifyValidWhenSigned(parentPrescription *hl7v3.ParentPrescription, certificate *x509.Certificate) bool {
	author := parentPrescription.PertinentInformation1.PertinentPrescription.Author
	if author.Time == nil {
		return false
	}
	signedAt, err := time.Parse("20060102150405", author.Time.Value)
	if err != nil {
		return false
	}
	return !signedAt.Before(certificate.NotBefore) && !signedAt.After(certificate.NotAfter)
}

func (v *Verifier) verifyChain(certificate *x509.Certificate) bool {
	for _, subCA := range v.trusted {
		if certificate.CheckSignatureFrom(subCA) == nil {
			return true
		}
	}
	return false
}

func stripWhitespace(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, value)
}
