package hl7v3

import (
	"strings"
	"testing"
)

func TestNewGlobalIdentifier_UppercasesUUID(t *testing.T) {
	identifier := NewGlobalIdentifier("a7b86f8d-1d81-fc28-e050-d20ae3a215f0")
	if identifier.Root != "A7B86F8D-1D81-FC28-E050-D20AE3A215F0" {
		t.Errorf("root = %q, want uppercase", identifier.Root)
	}
	if identifier.Extension != "" {
		t.Errorf("extension = %q, want empty", identifier.Extension)
	}
}

func TestNewShortFormPrescriptionIdentifier(t *testing.T) {
	identifier := NewShortFormPrescriptionIdentifier("4D62E6-D81015-07E5FD")
	if identifier.Root != OIDShortFormPrescriptionID {
		t.Errorf("root = %q", identifier.Root)
	}
	if identifier.Extension != "4D62E6-D81015-07E5FD" {
		t.Errorf("extension = %q", identifier.Extension)
	}
}

func TestNewQuantityInAlternativeUnits(t *testing.T) {
	quantity := NewQuantityInAlternativeUnits("28", "428673006", "tablet")
	if quantity.Unit != "1" {
		t.Errorf("unit = %q, want 1", quantity.Unit)
	}
	if quantity.Translation == nil || quantity.Translation.Value != "28" {
		t.Fatalf("translation = %+v", quantity.Translation)
	}
	if quantity.Translation.CodeSystem != OIDSNOMED {
		t.Errorf("translation codeSystem = %q", quantity.Translation.CodeSystem)
	}
}

func TestMarshal_ParentPrescription(t *testing.T) {
	document := NewParentPrescription("a7b86f8d-1d81-fc28-e050-d20ae3a215f0", Timestamp{Value: "20230131120500"})
	document.RecordTarget = NewRecordTarget(NewPatient("9990548609"))
	prescription := NewPrescription("b4bc407c-e859-4b23-8b2d-17ba1e67a5bf", "4D62E6-D81015-07E5FD")
	prescription.Author = NewAuthor(NewAgentPerson("100102238986", NewJobRoleCode("R8000", "Clinical Practitioner Access Role")))
	document.PertinentInformation1 = NewParentPrescriptionPertinentInformation1(prescription)

	output, err := Marshal(document)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text := string(output)
	if !strings.HasPrefix(text, "<?xml") {
		t.Error("missing XML declaration")
	}
	for _, want := range []string{
		`xmlns="urn:hl7-org:v3"`,
		`root="A7B86F8D-1D81-FC28-E050-D20AE3A215F0"`,
		`root="` + OIDShortFormPrescriptionID + `" extension="4D62E6-D81015-07E5FD"`,
		`extension="9990548609"`,
		`<pertinentPrescription`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestNewEtpWithdrawPertinentInformation1_LastDispense(t *testing.T) {
	information := NewEtpWithdrawPertinentInformation1()
	value := information.PertinentWithdrawType.Value
	if value.Code != "LD" || value.DisplayName != "Last Dispense" {
		t.Errorf("withdraw type = %q/%q", value.Code, value.DisplayName)
	}
}
