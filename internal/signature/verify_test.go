package signature

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/platform/hl7v3"
)

type testPKI struct {
	caCertificate   *x509.Certificate
	leafCertificate *x509.Certificate
	leafKey         *rsa.PrivateKey
}

func newTestPKI(t *testing.T) *testPKI {
	t.Helper()
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating CA key: %v", err)
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Sub CA"},
		NotBefore:             time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating CA certificate: %v", err)
	}
	caCertificate, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("parsing CA certificate: %v", err)
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating leaf key: %v", err)
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1000),
		Subject:      pkix.Name{CommonName: "Test Prescriber"},
		NotBefore:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caCertificate, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating leaf certificate: %v", err)
	}
	leafCertificate, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("parsing leaf certificate: %v", err)
	}
	return &testPKI{caCertificate: caCertificate, leafCertificate: leafCertificate, leafKey: leafKey}
}

func signedTestPrescription(t *testing.T, pki *testPKI) *hl7v3.ParentPrescription {
	t.Helper()
	document := hl7v3.NewParentPrescription("a7b86f8d-1d81-fc28-e050-d20ae3a215f0", hl7v3.Timestamp{Value: "20230131120500"})
	document.RecordTarget = hl7v3.NewRecordTarget(hl7v3.NewPatient("9990548609"))

	prescription := hl7v3.NewPrescription("b4bc407c-e859-4b23-8b2d-17ba1e67a5bf", "4D62E6-D81015-07E5FD")
	agentPerson := hl7v3.NewAgentPerson("100102238986", hl7v3.NewJobRoleCode("R8000", "Clinical Practitioner Access Role"))
	agentPerson.AgentPerson = hl7v3.NewAgentPersonPerson("3415870201", &hl7v3.Name{Family: "BOIN", Given: []string{"C"}})
	author := hl7v3.NewAuthor(agentPerson)
	author.Time = &hl7v3.Timestamp{Value: "20230131120500"}
	prescription.Author = author

	lineItem := hl7v3.NewLineItem("30b7e9cf-6f42-40a8-84c1-e61ef638eee2")
	lineItem.Product = hl7v3.NewProduct(hl7v3.NewSnomedCode("39720311000001101", "Paracetamol 500mg soluble tablets"))
	lineItem.Component = hl7v3.NewLineItemComponent(hl7v3.NewQuantityInAlternativeUnits("60", "428673006", "tablet"))
	lineItem.PertinentInformation2 = hl7v3.NewLineItemPertinentInformation2("4 times a day for 7 days")
	prescription.PertinentInformation2 = []hl7v3.PrescriptionPertinentInformation2{
		hl7v3.NewPrescriptionPertinentInformation2(lineItem),
	}
	document.PertinentInformation1 = hl7v3.NewParentPrescriptionPertinentInformation1(prescription)

	fragments, err := ExtractFragments(document)
	if err != nil {
		t.Fatalf("ExtractFragments: %v", err)
	}
	hashable, err := fragments.HashableFormat()
	if err != nil {
		t.Fatalf("HashableFormat: %v", err)
	}
	canonicalSignedInfo, err := CanonicalSignedInfo(hashable, SHA1)
	if err != nil {
		t.Fatalf("CanonicalSignedInfo: %v", err)
	}

	hasher := SHA1.Hash().New()
	hasher.Write([]byte(canonicalSignedInfo))
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, pki.leafKey, SHA1.Hash(), hasher.Sum(nil))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	author.SignatureText = &hl7v3.SignatureText{Signature: &hl7v3.Signature{
		Xmlns:          "http://www.w3.org/2000/09/xmldsig#",
		SignedInfo:     hl7v3.NewSignedInfo(hl7v3.AlgorithmRSASHA1, hl7v3.AlgorithmDigestSHA1, Digest(hashable, SHA1)),
		SignatureValue: &hl7v3.SignatureValue{Value: base64.StdEncoding.EncodeToString(signatureValue)},
		KeyInfo: &hl7v3.KeyInfo{X509Data: &hl7v3.X509Data{
			X509Certificate: base64.StdEncoding.EncodeToString(pki.leafCertificate.Raw),
		}},
	}}
	return document
}

type staticCRL struct {
	list *x509.RevocationList
}

func (s staticCRL) RevocationList(context.Context) (*x509.RevocationList, error) {
	return s.list, nil
}

func containsError(errors []string, want string) bool {
	for _, err := range errors {
		if err == want {
			return true
		}
	}
	return false
}

func TestVerifier_ValidSignature(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	verifier := NewVerifier([]*x509.Certificate{pki.caCertificate}, nil, zerolog.Nop())

	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)
	if len(errors) != 0 {
		t.Fatalf("expected no errors, got %v", errors)
	}
}

func TestVerifier_TamperedDigest(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	signedInfo := document.PertinentInformation1.PertinentPrescription.Author.SignatureText.Signature.SignedInfo
	signedInfo.Reference.DigestValue = base64.StdEncoding.EncodeToString([]byte("tampered digest value"))

	verifier := NewVerifier([]*x509.Certificate{pki.caCertificate}, nil, zerolog.Nop())
	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)

	if !containsError(errors, ErrSignatureInvalid) {
		t.Errorf("errors %v missing %q", errors, ErrSignatureInvalid)
	}
	if !containsError(errors, ErrDigestMismatch) {
		t.Errorf("errors %v missing %q", errors, ErrDigestMismatch)
	}
}

func TestVerifier_InvalidFormat(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	document.PertinentInformation1.PertinentPrescription.Author.SignatureText.Signature.SignatureValue = nil

	verifier := NewVerifier([]*x509.Certificate{pki.caCertificate}, nil, zerolog.Nop())
	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)

	if len(errors) != 1 || errors[0] != ErrInvalidFormat {
		t.Errorf("errors = %v, want exactly [%q]", errors, ErrInvalidFormat)
	}
}

func TestVerifier_InvalidCertificate(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	document.PertinentInformation1.PertinentPrescription.Author.SignatureText.Signature.KeyInfo.X509Data.X509Certificate =
		base64.StdEncoding.EncodeToString([]byte("not a certificate"))

	verifier := NewVerifier([]*x509.Certificate{pki.caCertificate}, nil, zerolog.Nop())
	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)

	if len(errors) != 1 || errors[0] != ErrInvalidCertificate {
		t.Errorf("errors = %v, want exactly [%q]", errors, ErrInvalidCertificate)
	}
}

func TestVerifier_UntrustedAndRevokedAndExpired(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	document.PertinentInformation1.PertinentPrescription.Author.Time = &hl7v3.Timestamp{Value: "20200101120000"}

	crl := staticCRL{list: &x509.RevocationList{
		RevokedCertificateEntries: []x509.RevocationListEntry{{SerialNumber: pki.leafCertificate.SerialNumber}},
	}}
	verifier := NewVerifier(nil, crl, zerolog.Nop())
	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)

	for _, want := range []string{ErrCertificateRevoked, ErrCertificateExpired, ErrCertificateNotTrusted} {
		if !containsError(errors, want) {
			t.Errorf("errors %v missing %q", errors, want)
		}
	}
	// tampering the author time also breaks the digest
	if !containsError(errors, ErrDigestMismatch) {
		t.Errorf("errors %v missing %q", errors, ErrDigestMismatch)
	}
}

func TestVerifier_UnrecognisedMethodFallsBackToSHA1(t *testing.T) {
	pki := newTestPKI(t)
	document := signedTestPrescription(t, pki)
	signedInfo := document.PertinentInformation1.PertinentPrescription.Author.SignatureText.Signature.SignedInfo
	signedInfo.SignatureMethod.Algorithm = "http://www.w3.org/2000/09/xmldsig#unknown-method"

	verifier := NewVerifier([]*x509.Certificate{pki.caCertificate}, nil, zerolog.Nop())
	errors := verifier.VerifyPrescriptionSignature(context.Background(), document)

	// the method attribute is rewritten to rsa-sha1 before checking
	if signedInfo.SignatureMethod.Algorithm != hl7v3.AlgorithmRSASHA1 {
		t.Errorf("signature method = %q, want rewritten to rsa-sha1", signedInfo.SignatureMethod.Algorithm)
	}
	if signedInfo.Reference.DigestMethod.Algorithm != hl7v3.AlgorithmDigestSHA1 {
		t.Errorf("digest method = %q, want rewritten to sha1", signedInfo.Reference.DigestMethod.Algorithm)
	}
	if containsError(errors, ErrDigestMismatch) {
		t.Errorf("digest should match under SHA-1 fallback, got %v", errors)
	}
}
