package request

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestConvertBundleToPrepareResponse(t *testing.T) {
	response, err := ConvertBundleToPrepareResponse(prescriptionOrderBundle())
	if err != nil {
		t.Fatalf("ConvertBundleToPrepareResponse: %v", err)
	}

	if len(response.Parameter) != 3 {
		t.Fatalf("got %d parameters, want 3", len(response.Parameter))
	}
	byName := map[string]string{}
	for _, parameter := range response.Parameter {
		byName[parameter.Name] = parameter.ValueString
	}

	if byName["algorithm"] != AlgorithmRS1 {
		t.Errorf("algorithm = %q, want %q", byName["algorithm"], AlgorithmRS1)
	}

	payload, err := base64.StdEncoding.DecodeString(byName["payload"])
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if !strings.Contains(string(payload), "<SignedInfo") {
		t.Errorf("payload = %q, want a SignedInfo document", payload)
	}
	if !strings.Contains(string(payload), "rsa-sha1") {
		t.Errorf("payload = %q, want an RSA-SHA1 signature method", payload)
	}
	if !strings.Contains(string(payload), "<DigestValue>") {
		t.Errorf("payload = %q, want a digest value", payload)
	}

	display, err := base64.StdEncoding.DecodeString(byName["display"])
	if err != nil {
		t.Fatalf("display is not valid base64: %v", err)
	}
	text := string(display)
	if !strings.Contains(text, "Patient NHS Number: "+testNHSNumber) {
		t.Errorf("display = %q, want the patient NHS number", text)
	}
	if !strings.Contains(text, "Methotrexate 10mg/0.2ml solution for injection pre-filled syringes") {
		t.Errorf("display = %q, want the requested medication", text)
	}
	if !strings.Contains(text, "\r\n") {
		t.Error("display lines are not CRLF terminated")
	}
}
