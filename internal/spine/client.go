// Package spine is the outbound HTTP client for the NHS Spine: HL7v3
// message submission and the prescription tracker endpoints.
package spine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/translate/tracker"
)

const (
	soapActionPrefix = "urn:nhs:names:services:mm/"

	prescriptionPath = "/Prescription"
	summaryPath      = "/mm/nhs111itemsummary"
	detailPath       = "/mm/nhs111itemdetails"
)

// Session identifies the calling user towards Spine. The values come from
// the inbound request's NHSD session headers.
type Session struct {
	FromASID      string
	UserID        string
	RoleProfileID string
}

// Client is the gateway's view of Spine. Implementations do not retry;
// retry policy belongs to the caller.
type Client interface {
	// SendMessage posts an HL7v3 interaction and returns the raw response
	// body, which is itself an HL7v3 document.
	SendMessage(ctx context.Context, interactionID string, message []byte) ([]byte, error)
	// PrescriptionSummary looks up all prescriptions for a patient.
	PrescriptionSummary(ctx context.Context, nhsNumber string, session Session) (*tracker.SummaryResponse, error)
	// PrescriptionDetail looks up the dispensing history of one prescription.
	PrescriptionDetail(ctx context.Context, prescriptionID string, session Session) (*tracker.DetailResponse, error)
}

// HTTPClient talks to a live Spine environment.
type HTTPClient struct {
	baseURL  string
	fromASID string
	client   *http.Client
	logger   zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

// NewHTTPClient builds a client for the given Spine host. baseURL is
// usually a bare host name, in which case https is assumed.
func NewHTTPClient(baseURL, fromASID string, logger zerolog.Logger, opts ...Option) *HTTPClient {
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	h := &HTTPClient{
		baseURL:  baseURL,
		fromASID: fromASID,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *HTTPClient) SendMessage(ctx context.Context, interactionID string, message []byte) ([]byte, error) {
	address := h.baseURL + prescriptionPath
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, address, bytes.NewReader(message))
	if err != nil {
		return nil, fmt.Errorf("spine: building request: %w", err)
	}
	request.Header.Set("Content-Type", "text/xml; charset=utf-8")
	request.Header.Set("SOAPAction", soapActionPrefix+interactionID)
	request.Header.Set("Spine-From-Asid", h.fromASID)

	h.logger.Info().Str("interaction", interactionID).Str("address", address).Msg("sending message to spine")
	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("spine: sending %s: %w", interactionID, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("spine: reading response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("spine: %s returned %d", interactionID, response.StatusCode)
	}
	return body, nil
}

func (h *HTTPClient) PrescriptionSummary(ctx context.Context, nhsNumber string, session Session) (*tracker.SummaryResponse, error) {
	body, err := h.trackerRequest(ctx, summaryPath, url.Values{"nhsNumber": {nhsNumber}}, session)
	if err != nil {
		return nil, err
	}
	summary := &tracker.SummaryResponse{}
	if err := json.Unmarshal(body, summary); err != nil {
		return nil, fmt.Errorf("spine: decoding summary response: %w", err)
	}
	return summary, nil
}

func (h *HTTPClient) PrescriptionDetail(ctx context.Context, prescriptionID string, session Session) (*tracker.DetailResponse, error) {
	query := url.Values{"prescriptionId": {prescriptionID}, "issueNumber": {"1"}}
	body, err := h.trackerRequest(ctx, detailPath, query, session)
	if err != nil {
		return nil, err
	}
	detail := &tracker.DetailResponse{}
	if err := json.Unmarshal(body, detail); err != nil {
		return nil, fmt.Errorf("spine: decoding detail response: %w", err)
	}
	return detail, nil
}

func (h *HTTPClient) trackerRequest(ctx context.Context, path string, query url.Values, session Session) ([]byte, error) {
	address := h.baseURL + path + "?" + query.Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("spine: building tracker request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Spine-From-Asid", session.FromASID)
	request.Header.Set("Spine-UserId", session.UserID)
	request.Header.Set("Spine-RoleProfileId", session.RoleProfileID)

	h.logger.Info().Str("address", h.baseURL+path).Msg("querying spine tracker")
	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("spine: tracker request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("spine: reading tracker response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spine: tracker returned %d", response.StatusCode)
	}
	return body, nil
}
