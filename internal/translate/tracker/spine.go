// Package tracker translates Spine prescription tracker responses into
// FHIR searchset Bundles of Task resources and filters them against the
// caller's query parameters.
package tracker

import "encoding/json"

// Prescription is the tracker state common to summary and detail
// responses. All values arrive as strings on the wire, including dates and
// repeat counts.
type Prescription struct {
	LastEventDate             string         `json:"lastEventDate"`
	PrescriptionIssueDate     string         `json:"prescriptionIssueDate"`
	PatientNHSNumber          string         `json:"patientNhsNumber"`
	EPSVersion                string         `json:"epsVersion"`
	RepeatInstance            RepeatInstance `json:"repeatInstance"`
	PendingCancellations      string         `json:"pendingCancellations"`
	PrescriptionTreatmentType string         `json:"prescriptionTreatmentType"`
	PrescriptionStatus        string         `json:"prescriptionStatus"`
}

type RepeatInstance struct {
	CurrentIssue    string `json:"currentIssue"`
	TotalAuthorised string `json:"totalAuthorised"`
}

// SummaryPrescription carries line items as id to description only.
type SummaryPrescription struct {
	Prescription
	LineItems map[string]string `json:"lineItems"`
}

// DetailPrescription adds dispensing history and the organisations
// involved. Spine renders absent dates as the literal string "False".
type DetailPrescription struct {
	Prescription
	PrescriptionDownloadDate           string                    `json:"prescriptionDownloadDate"`
	PrescriptionDispensedDate          string                    `json:"prescriptionDispensedDate"`
	PrescriptionClaimedDate            string                    `json:"prescriptionClaimedDate"`
	PrescriptionLastIssueDispensedDate string                    `json:"prescriptionLastIssueDispensedDate"`
	Prescriber                         Organization              `json:"prescriber"`
	NominatedPharmacy                  Organization              `json:"nominatedPharmacy"`
	DispensingPharmacy                 Organization              `json:"dispensingPharmacy"`
	LineItems                          map[string]LineItemDetail `json:"lineItems"`
}

type Organization struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	ODS     string `json:"ods"`
}

type LineItemDetail struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UOM         string `json:"uom"`
	Dosage      string `json:"dosage"`
	ItemStatus  string `json:"itemStatus"`
	Code        string `json:"code"`
}

// SummaryResponse is the nhs111itemsummary payload: envelope fields plus a
// prescriptions object keyed by short-form prescription id.
type SummaryResponse struct {
	Version       string                         `json:"version"`
	Reason        string                         `json:"reason"`
	StatusCode    string                         `json:"statusCode"`
	Prescriptions map[string]SummaryPrescription `json:"prescriptions"`
}

// DetailResponse is the nhs111itemdetails payload. Spine flattens it: the
// envelope fields sit at the top level alongside the prescription-keyed
// entries, so decoding has to separate the two by key.
type DetailResponse struct {
	Version       string
	Reason        string
	StatusCode    string
	Prescriptions map[string]DetailPrescription
}

func (d *DetailResponse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	d.Prescriptions = make(map[string]DetailPrescription)
	for key, value := range fields {
		switch key {
		case "version":
			if err := json.Unmarshal(value, &d.Version); err != nil {
				return err
			}
		case "reason":
			if err := json.Unmarshal(value, &d.Reason); err != nil {
				return err
			}
		case "statusCode":
			if err := json.Unmarshal(value, &d.StatusCode); err != nil {
				return err
			}
		default:
			var prescription DetailPrescription
			if err := json.Unmarshal(value, &prescription); err != nil {
				return err
			}
			d.Prescriptions[key] = prescription
		}
	}
	return nil
}

func (d DetailResponse) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"version":    d.Version,
		"reason":     d.Reason,
		"statusCode": d.StatusCode,
	}
	for id, prescription := range d.Prescriptions {
		fields[id] = prescription
	}
	return json.Marshal(fields)
}
