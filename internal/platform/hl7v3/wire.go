package hl7v3

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Spine interaction identifiers, sent as the SOAPAction suffix and used by
// Spine to route the message.
const (
	InteractionParentPrescription     = "PORX_IN020101SM31"
	InteractionCancelRequest          = "PORX_IN030101SM32"
	InteractionNominatedRelease       = "PORX_IN060102SM30"
	InteractionPatientRelease         = "PORX_IN132004SM30"
	InteractionDispenseNotification   = "PORX_IN080101SM31"
	InteractionDispenseClaim          = "PORX_IN090101SM31"
	InteractionDispenseProposalReturn = "PORX_IN100101SM31"
	InteractionDispenserWithdraw      = "PORX_IN510101SM31"
)

// Acknowledgement type codes.
const (
	AcknowledgementAccepted = "AA"
	AcknowledgementError    = "AE"
	AcknowledgementRejected = "AR"
)

// Acknowledgement is Spine's application-level receipt for a submitted
// message. Anything other than typeCode AA carries detail codes explaining
// the rejection.
type Acknowledgement struct {
	TypeCode string                  `xml:"typeCode,attr"`
	Detail   []AcknowledgementDetail `xml:"acknowledgementDetail"`
}

// Accepted reports whether the message was accepted by Spine.
func (a *Acknowledgement) Accepted() bool {
	return a.TypeCode == AcknowledgementAccepted
}

type AcknowledgementDetail struct {
	TypeCode string `xml:"typeCode,attr"`
	Code     Code   `xml:"code"`
}

// ErrDocumentNotFound reports that a response envelope did not contain the
// expected document element.
var ErrDocumentNotFound = errors.New("hl7v3: document element not found")

// ExtractDocument decodes the first element named localName from a Spine
// response body into out. Spine wraps replies in SOAP and control-act
// envelopes whose exact shape varies by interaction, so the envelope is
// skipped rather than modelled.
func ExtractDocument(body []byte, localName string, out any) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, localName)
		}
		if err != nil {
			return fmt.Errorf("hl7v3: scanning response for %s: %w", localName, err)
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != localName {
			continue
		}
		if err := decoder.DecodeElement(out, &start); err != nil {
			return fmt.Errorf("hl7v3: decoding %s: %w", localName, err)
		}
		return nil
	}
}
