package spine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestSendMessage(t *testing.T) {
	var gotPath, gotAction, gotASID, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAction = r.Header.Get("SOAPAction")
		gotASID = r.Header.Get("Spine-From-Asid")
		buffer := make([]byte, r.ContentLength)
		r.Body.Read(buffer)
		gotBody = string(buffer)
		w.Write([]byte("<hl7:MCCI_IN010000UK13 xmlns:hl7=\"urn:hl7-org:v3\"/>"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "200000001285", zerolog.Nop())
	response, err := client.SendMessage(context.Background(), "PORX_IN020101SM31", []byte("<ParentPrescription/>"))
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/Prescription" ||
		gotAction != "urn:nhs:names:services:mm/PORX_IN020101SM31" ||
		gotASID != "200000001285" {
		t.Errorf("request = path %q action %q asid %q", gotPath, gotAction, gotASID)
	}
	if gotBody != "<ParentPrescription/>" {
		t.Errorf("body = %q", gotBody)
	}
	if len(response) == 0 {
		t.Error("response body empty")
	}
}

func TestSendMessage_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "200000001285", zerolog.Nop())
	if _, err := client.SendMessage(context.Background(), "PORX_IN020101SM31", nil); err == nil {
		t.Fatal("SendMessage accepted a 502 response")
	}
}

func TestPrescriptionSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mm/nhs111itemsummary" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("nhsNumber") != "9912003489" {
			t.Errorf("query = %v", r.URL.Query())
		}
		if r.Header.Get("Spine-UserId") != "3415870201" ||
			r.Header.Get("Spine-RoleProfileId") != "100102238986" {
			t.Errorf("session headers = %v", r.Header)
		}
		w.Write([]byte(`{"version":"2","reason":"","statusCode":"0","prescriptions":{}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "200000001285", zerolog.Nop())
	session := Session{FromASID: "200000001285", UserID: "3415870201", RoleProfileID: "100102238986"}
	summary, err := client.PrescriptionSummary(context.Background(), "9912003489", session)
	if err != nil {
		t.Fatalf("PrescriptionSummary: %v", err)
	}
	if summary.StatusCode != "0" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestPrescriptionDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mm/nhs111itemdetails" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("prescriptionId") != "002D4D-A99968-4C5AAJ" ||
			r.URL.Query().Get("issueNumber") != "1" {
			t.Errorf("query = %v", r.URL.Query())
		}
		w.Write([]byte(`{
			"version": "2",
			"reason": "",
			"statusCode": "0",
			"002D4D-A99968-4C5AAJ": {"prescriptionStatus": "Dispensed", "lineItems": {}}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "200000001285", zerolog.Nop())
	detail, err := client.PrescriptionDetail(context.Background(), "002D4D-A99968-4C5AAJ", Session{})
	if err != nil {
		t.Fatalf("PrescriptionDetail: %v", err)
	}
	prescription, ok := detail.Prescriptions["002D4D-A99968-4C5AAJ"]
	if !ok || prescription.PrescriptionStatus != "Dispensed" {
		t.Errorf("detail = %+v", detail)
	}
}
