// Package api exposes the gateway's FHIR REST surface. Handlers parse the
// inbound JSON, hand it to the translation core, exchange HL7v3 with Spine
// and write the translated FHIR response.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eps/gateway/internal/platform/fhir"
	"github.com/eps/gateway/internal/platform/hl7v3"
	"github.com/eps/gateway/internal/spine"
	"github.com/eps/gateway/internal/translate/request"
	"github.com/eps/gateway/internal/translate/response"
	"github.com/eps/gateway/internal/translate/tracker"
	"github.com/eps/gateway/internal/validate"
)

const (
	eventPrescriptionOrder       = "prescription-order"
	eventPrescriptionOrderUpdate = "prescription-order-update"

	systemTaskCode = "http://hl7.org/fhir/CodeSystem/task-code"

	headerUserID        = "NHSD-Identity-UUID"
	headerRoleProfileID = "NHSD-Session-URID"
)

// Handler serves the EPS FHIR endpoints.
type Handler struct {
	spine    spine.Client
	verifier response.SignatureVerifier
	fromASID string
	logger   zerolog.Logger
}

// NewHandler wires the translation core to its collaborators. fromASID is
// the accredited system identifier presented to Spine on tracker queries.
func NewHandler(client spine.Client, verifier response.SignatureVerifier, fromASID string, logger zerolog.Logger) *Handler {
	return &Handler{
		spine:    client,
		verifier: verifier,
		fromASID: fromASID,
		logger:   logger,
	}
}

// RegisterRoutes binds the EPS operations to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/$prepare", h.Prepare)
	g.POST("/$process-message", h.ProcessMessage)
	g.POST("/Task/$release", h.Release)
	g.POST("/Task", h.TaskAction)
	g.GET("/Task", h.TrackPrescription)
	g.POST("/Claim", h.Claim)
	g.POST("/$verify-signature", h.VerifySignature)
}

// Status handles GET /_status.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "pass"})
}

// Prepare handles POST /$prepare: returns the signature fragments the
// prescriber signs before the order is sent.
func (h *Handler) Prepare(c echo.Context) error {
	bundle := &fhir.Bundle{}
	if err := decodeBody(c, bundle); err != nil {
		return h.writeError(c, err)
	}
	parameters, err := request.ConvertBundleToPrepareResponse(bundle)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, parameters)
}

// ProcessMessage handles POST /$process-message: sends a signed prescription
// order or a cancellation to Spine, dispatching on the message event code.
func (h *Handler) ProcessMessage(c echo.Context) error {
	bundle := &fhir.Bundle{}
	if err := decodeBody(c, bundle); err != nil {
		return h.writeError(c, err)
	}
	messageHeader, err := fhir.MessageHeaderOf(bundle)
	if err != nil {
		return h.writeError(c, err)
	}
	switch messageHeader.EventCoding.Code {
	case eventPrescriptionOrder:
		if issues := validate.VerifyPrescriptionOrderBundle(bundle); len(issues) > 0 {
			return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(issues...))
		}
		parentPrescription, err := request.ConvertBundleToParentPrescription(bundle)
		if err != nil {
			return h.writeError(c, err)
		}
		return h.sendAndAcknowledge(c, hl7v3.InteractionParentPrescription, parentPrescription)
	case eventPrescriptionOrderUpdate:
		return h.processCancellation(c, bundle)
	default:
		return h.writeError(c, fhir.NewInvalidValueError(
			"Unsupported message event.", "MessageHeader.eventCoding.code"))
	}
}

func (h *Handler) processCancellation(c echo.Context, bundle *fhir.Bundle) error {
	if issues := validate.VerifyCancellationBundle(bundle); len(issues) > 0 {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(issues...))
	}
	cancellationRequest, err := request.ConvertBundleToCancellationRequest(bundle)
	if err != nil {
		return h.writeError(c, err)
	}
	payload, err := hl7v3.Marshal(cancellationRequest)
	if err != nil {
		return h.writeError(c, err)
	}
	body, err := h.spine.SendMessage(c.Request().Context(), hl7v3.InteractionCancelRequest, payload)
	if err != nil {
		return h.writeError(c, err)
	}
	cancellationResponse := &hl7v3.CancellationResponse{}
	if err := hl7v3.ExtractDocument(body, "CancellationResponse", cancellationResponse); err != nil {
		return h.writeError(c, err)
	}
	responseBundle, err := response.TranslateCancellationResponse(cancellationResponse)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, responseBundle)
}

// Release handles POST /Task/$release: asks Spine for the prescriptions
// ready for a dispenser, verifying each returned signature.
func (h *Handler) Release(c echo.Context) error {
	parameters := &fhir.Parameters{}
	if err := decodeBody(c, parameters); err != nil {
		return h.writeError(c, err)
	}
	releaseRequest, err := request.TranslateReleaseRequest(parameters)
	if err != nil {
		return h.writeError(c, err)
	}
	interactionID := hl7v3.InteractionNominatedRelease
	if _, patient := releaseRequest.(*hl7v3.PatientPrescriptionReleaseRequest); patient {
		interactionID = hl7v3.InteractionPatientRelease
	}
	payload, err := hl7v3.Marshal(releaseRequest)
	if err != nil {
		return h.writeError(c, err)
	}
	body, err := h.spine.SendMessage(c.Request().Context(), interactionID, payload)
	if err != nil {
		return h.writeError(c, err)
	}
	releaseResponse := &hl7v3.PrescriptionReleaseResponse{}
	if err := hl7v3.ExtractDocument(body, "PrescriptionReleaseResponse", releaseResponse); err != nil {
		return h.writeError(c, err)
	}
	translated, err := response.TranslateReleaseResponse(c.Request().Context(), releaseResponse, h.verifier, h.logger)
	if err != nil {
		return h.writeError(c, err)
	}
	h.returnFailedPrescriptions(c.Request().Context(), translated.Returns)
	return c.JSON(http.StatusOK, translated.Parameters())
}

// returnFailedPrescriptions hands prescriptions whose signatures failed
// verification back to Spine so they can be released to another dispenser.
// Failures are logged, not surfaced: the caller already sees the
// prescription in the failed set.
func (h *Handler) returnFailedPrescriptions(ctx context.Context, returns []*hl7v3.DispenseProposalReturn) {
	for _, dispenseReturn := range returns {
		payload, err := hl7v3.Marshal(dispenseReturn)
		if err != nil {
			h.logger.Error().Err(err).Msg("could not marshal dispense proposal return")
			continue
		}
		if _, err := h.spine.SendMessage(ctx, hl7v3.InteractionDispenseProposalReturn, payload); err != nil {
			h.logger.Error().Err(err).Msg("could not return failed prescription to spine")
		}
	}
}

// TaskAction handles POST /Task: a dispenser either returns a released
// prescription to Spine or withdraws a dispense notification.
func (h *Handler) TaskAction(c echo.Context) error {
	task := &fhir.Task{}
	if err := decodeBody(c, task); err != nil {
		return h.writeError(c, err)
	}
	if issues := validate.VerifyTask(task); len(issues) > 0 {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(issues...))
	}
	switch {
	case taskCodeIs(task, "abort"):
		withdraw, err := request.ConvertTaskToEtpWithdraw(task)
		if err != nil {
			return h.writeError(c, err)
		}
		return h.sendAndAcknowledge(c, hl7v3.InteractionDispenserWithdraw, withdraw)
	case task.Status == "rejected":
		dispenseReturn, err := request.ConvertTaskToDispenseProposalReturn(task)
		if err != nil {
			return h.writeError(c, err)
		}
		return h.sendAndAcknowledge(c, hl7v3.InteractionDispenseProposalReturn, dispenseReturn)
	default:
		return h.writeError(c, fhir.NewInvalidValueError(
			"Task does not describe a return or a withdrawal.", "Task.code"))
	}
}

func taskCodeIs(task *fhir.Task, code string) bool {
	coding := fhir.CodingForSystem(task.Code, systemTaskCode)
	return coding != nil && coding.Code == code
}

// Claim handles POST /Claim: submits a reimbursement claim for dispensed
// medication.
func (h *Handler) Claim(c echo.Context) error {
	claim := &fhir.Claim{}
	if err := decodeBody(c, claim); err != nil {
		return h.writeError(c, err)
	}
	dispenseClaim, err := request.ConvertDispenseClaim(claim)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.sendAndAcknowledge(c, hl7v3.InteractionDispenseClaim, dispenseClaim)
}

// TrackPrescription handles GET /Task: queries the Spine prescription
// tracker. A prescription identifier yields the dispensing history of one
// prescription; a patient identifier yields a summary of all of them.
func (h *Handler) TrackPrescription(c echo.Context) error {
	query := tracker.Query{
		Identifier:        c.QueryParam("identifier"),
		FocusIdentifier:   c.QueryParam("focus:identifier"),
		PatientIdentifier: c.QueryParam("patient:identifier"),
	}
	if query.IsEmpty() {
		return h.writeError(c, fhir.NewTooFewValuesError(
			"Query must contain identifier, focus:identifier or patient:identifier.", "Task"))
	}
	session := h.session(c)

	var resource fhir.Resource
	if prescriptionID := query.PrescriptionID(); prescriptionID != "" {
		detail, err := h.spine.PrescriptionDetail(c.Request().Context(), prescriptionID, session)
		if err != nil {
			return h.writeError(c, err)
		}
		resource, err = tracker.ConvertDetailResponse(detail)
		if err != nil {
			return h.writeError(c, err)
		}
	} else {
		summary, err := h.spine.PrescriptionSummary(c.Request().Context(), query.NHSNumber(), session)
		if err != nil {
			return h.writeError(c, err)
		}
		resource, err = tracker.ConvertSummaryResponse(summary)
		if err != nil {
			return h.writeError(c, err)
		}
	}

	bundle, ok := resource.(*fhir.Bundle)
	if !ok {
		return c.JSON(http.StatusBadRequest, resource)
	}
	query.FilterBundle(bundle)
	return c.JSON(http.StatusOK, bundle)
}

// VerifySignature handles POST /$verify-signature: checks the signature of
// one or more signed prescription bundles and reports a result per
// prescription.
func (h *Handler) VerifySignature(c echo.Context) error {
	bundle := &fhir.Bundle{}
	if err := decodeBody(c, bundle); err != nil {
		return h.writeError(c, err)
	}
	prescriptions := prescriptionBundles(bundle)

	parameters := &fhir.Parameters{Base: fhir.Base{ResourceType: "Parameters"}}
	for index, prescription := range prescriptions {
		parentPrescription, err := request.ConvertBundleToParentPrescription(prescription)
		if err != nil {
			return h.writeError(c, err)
		}
		failures := h.verifier.VerifyPrescriptionSignature(c.Request().Context(), parentPrescription)
		parameters.Parameter = append(parameters.Parameter,
			verificationResultParameter(index, prescription, failures))
	}
	return c.JSON(http.StatusOK, parameters)
}

// prescriptionBundles unwraps a searchset of prescription bundles, such as
// a release response, into its inner bundles. A message bundle verifies as
// itself.
func prescriptionBundles(bundle *fhir.Bundle) []*fhir.Bundle {
	var inner []*fhir.Bundle
	for _, entry := range bundle.Entry {
		if b, ok := entry.Resource.(*fhir.Bundle); ok {
			inner = append(inner, b)
		}
	}
	if len(inner) == 0 {
		return []*fhir.Bundle{bundle}
	}
	return inner
}

func verificationResultParameter(index int, prescription *fhir.Bundle, failures []string) fhir.Parameter {
	var issues []fhir.OperationOutcomeIssue
	for _, failure := range failures {
		issues = append(issues, fhir.OperationOutcomeIssue{
			Severity: "error",
			Code:     "invalid",
			Details: &fhir.CodeableConcept{Coding: []fhir.Coding{{
				System:  fhir.SystemSpineError,
				Code:    "INVALID",
				Display: failure,
			}}},
			Expression: []string{"Provenance.signature.data"},
		})
	}
	if len(issues) == 0 {
		issues = []fhir.OperationOutcomeIssue{{
			Severity: "information",
			Code:     "informational",
		}}
	}

	part := []fhir.Parameter{{
		Name:            "messageIdentifier",
		ValueIdentifier: prescription.Identifier,
	}, {
		Name:     "result",
		Resource: fhir.NewOperationOutcome(issues...),
	}}
	return fhir.Parameter{Name: strconv.Itoa(index), Part: part}
}

// sendAndAcknowledge submits an HL7v3 document whose only reply is an
// application acknowledgement.
func (h *Handler) sendAndAcknowledge(c echo.Context, interactionID string, document any) error {
	payload, err := hl7v3.Marshal(document)
	if err != nil {
		return h.writeError(c, err)
	}
	body, err := h.spine.SendMessage(c.Request().Context(), interactionID, payload)
	if err != nil {
		return h.writeError(c, err)
	}
	acknowledgement := &hl7v3.Acknowledgement{}
	if err := hl7v3.ExtractDocument(body, "acknowledgement", acknowledgement); err != nil {
		return h.writeError(c, err)
	}
	if !acknowledgement.Accepted() {
		return c.JSON(http.StatusBadRequest, acknowledgementOutcome(acknowledgement))
	}
	return c.JSON(http.StatusOK, fhir.NewOperationOutcome(fhir.OperationOutcomeIssue{
		Severity: "information",
		Code:     "informational",
	}))
}

func acknowledgementOutcome(acknowledgement *hl7v3.Acknowledgement) *fhir.OperationOutcome {
	var issues []fhir.OperationOutcomeIssue
	for _, detail := range acknowledgement.Detail {
		issues = append(issues, fhir.OperationOutcomeIssue{
			Severity: "error",
			Code:     "invalid",
			Details: &fhir.CodeableConcept{Coding: []fhir.Coding{{
				System:  fhir.SystemSpineError,
				Code:    detail.Code.Code,
				Display: detail.Code.DisplayName,
			}}},
		})
	}
	if len(issues) == 0 {
		issues = []fhir.OperationOutcomeIssue{{
			Severity: "error",
			Code:     "processing",
			Details: &fhir.CodeableConcept{Coding: []fhir.Coding{{
				System:  fhir.SystemSpineError,
				Code:    "FAILED",
				Display: "The message was rejected without further detail.",
			}}},
		}}
	}
	return fhir.NewOperationOutcome(issues...)
}

func (h *Handler) session(c echo.Context) spine.Session {
	return spine.Session{
		FromASID:      h.fromASID,
		UserID:        c.Request().Header.Get(headerUserID),
		RoleProfileID: c.Request().Header.Get(headerRoleProfileID),
	}
}

func decodeBody(c echo.Context, out any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(out); err != nil {
		return fhir.NewInvalidValueError("Could not parse request body as FHIR JSON.", "")
	}
	return nil
}

func (h *Handler) writeError(c echo.Context, err error) error {
	var processing *fhir.ProcessingError
	if errors.As(err, &processing) {
		return c.JSON(http.StatusBadRequest, processing.ToOperationOutcome())
	}
	h.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	outcome := fhir.NewOperationOutcome(fhir.OperationOutcomeIssue{
		Severity: "fatal",
		Code:     "exception",
		Details: &fhir.CodeableConcept{Coding: []fhir.Coding{{
			System:  fhir.SystemSpineError,
			Code:    "SERVER_ERROR",
			Display: "An unexpected error occurred while processing the message.",
		}}},
	})
	return c.JSON(http.StatusInternalServerError, outcome)
}
