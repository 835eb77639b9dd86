// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/app/middleware"
	businessflow "github.com/redline-telecom/redline/business_flow"
)

// LineReservationHandlerInterface defines the contract for the reservation
// coordinator and activation endpoints
type LineReservationHandlerInterface interface {
	ReserveLine(c fiber.Ctx) error
	ReserveExisting(c fiber.Ctx) error
	CancelReservation(c fiber.Ctx) error
	ActivateLine(c fiber.Ctx) error
	AnalyzeICCID(c fiber.Ctx) error
}

// LineReservationHandler handles reservation and activation HTTP requests
type LineReservationHandler struct {
	reservationFlow businessflow.ReservationFlow
	activationFlow  businessflow.ActivationFlow
	iccidFlow       businessflow.ICCIDFlow
	validator       *validator.Validate
}

// NewLineReservationHandler creates a new reservation handler
func NewLineReservationHandler(
	reservationFlow businessflow.ReservationFlow,
	activationFlow businessflow.ActivationFlow,
	iccidFlow businessflow.ICCIDFlow,
) *LineReservationHandler {
	handler := &LineReservationHandler{
		reservationFlow: reservationFlow,
		activationFlow:  activationFlow,
		iccidFlow:       iccidFlow,
		validator:       validator.New(),
	}
	registerICCIDValidation(handler.validator)
	return handler
}

func (h *LineReservationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LineReservationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ReserveLine commits a direct slot reservation against an account
// @Summary Reserve line
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body dto.ReserveLineRequest true "Reservation data"
// @Success 201 {object} dto.APIResponse{data=dto.ReservationResponse}
// @Failure 409 {object} dto.APIResponse "Capacity exceeded"
// @Router /api/v1/line-reservations/reserve [post]
func (h *LineReservationHandler) ReserveLine(c fiber.Ctx) error {
	var req dto.ReserveLineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.reservationFlow.ReserveLine(newRequestContext(c, "/api/v1/line-reservations/reserve"), &req, metadata)
	if err != nil {
		return h.reservationError(c, err)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Line reserved", result)
}

// ReserveExisting promotes a pending demand into a reservation
// @Summary Reserve from line request
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body dto.ReserveExistingRequest true "Promotion data"
// @Success 201 {object} dto.APIResponse{data=dto.ReservationResponse}
// @Failure 409 {object} dto.APIResponse "Request no longer pending"
// @Router /api/v1/line-reservations/reserve-existing [post]
func (h *LineReservationHandler) ReserveExisting(c fiber.Ctx) error {
	var req dto.ReserveExistingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.reservationFlow.ReserveExistingLineRequest(newRequestContext(c, "/api/v1/line-reservations/reserve-existing"), &req, metadata)
	if err != nil {
		return h.reservationError(c, err)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Line request promoted", result)
}

// CancelReservation releases a reserved slot
// @Summary Cancel reservation
// @Tags Reservations
// @Produce json
// @Param phoneId path int true "Line ID"
// @Success 200 {object} dto.APIResponse{data=dto.CancelReservationResponse}
// @Failure 409 {object} dto.APIResponse "No active reservation"
// @Router /api/v1/line-reservations/reservations/{phoneId} [delete]
func (h *LineReservationHandler) CancelReservation(c fiber.Ctx) error {
	phoneID, err := parseUintParam(c, "phoneId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid line ID", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.reservationFlow.CancelReservation(newRequestContext(c, "/api/v1/line-reservations/reservations/:phoneId"), phoneID, metadata)
	if err != nil {
		if businessflow.IsPhoneNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Line not found", "PHONE_NOT_FOUND", nil)
		}
		if businessflow.IsNoReservation(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Line has no active reservation", "NO_RESERVATION", nil)
		}

		log.Println("Cancel reservation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel reservation", "RESERVATION_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reservation cancelled", result)
}

// ActivateLine binds an ICCID and flips the line to ACTIVE
// @Summary Activate line
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body dto.ActivateLineRequest true "Activation data"
// @Success 200 {object} dto.APIResponse{data=dto.ActivationResponse}
// @Failure 422 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/line-reservations/activate [post]
func (h *LineReservationHandler) ActivateLine(c fiber.Ctx) error {
	var req dto.ActivateLineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.activationFlow.ActivateLine(newRequestContext(c, "/api/v1/line-reservations/activate"), &req, metadata)
	if err != nil {
		if businessflow.IsPhoneNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Line not found", "PHONE_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyActive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Line is already active", "ALREADY_ACTIVE", nil)
		}
		if businessflow.IsMissingTarget(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No client and no reservation to activate against", "MISSING_TARGET", nil)
		}
		if businessflow.IsInvalidTransition(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Status transition not allowed", "INVALID_TRANSITION", nil)
		}
		if businessflow.IsICCIDInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "ICCID is invalid", "ICCID_INVALID", nil)
		}
		if businessflow.IsSIMCardNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "SIM card not found in agency stock", "SIM_CARD_NOT_FOUND", nil)
		}
		if businessflow.IsSIMCardConsumed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "SIM card already consumed", "SIM_CARD_CONSUMED", nil)
		}
		if businessflow.IsClientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Client not found", "CLIENT_NOT_FOUND", nil)
		}

		log.Println("Activation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Activation failed", "ACTIVATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Line activated", result)
}

// AnalyzeICCID scores candidate accounts for a scanned ICCID
// @Summary Analyze ICCID
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeICCIDRequest true "ICCID to analyze"
// @Success 200 {object} dto.APIResponse{data=dto.AnalyzeICCIDResponse}
// @Router /api/v1/line-reservations/analyze-iccid [post]
func (h *LineReservationHandler) AnalyzeICCID(c fiber.Ctx) error {
	var req dto.AnalyzeICCIDRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Agency users analyze within their own scope regardless of payload
	if agencyID, ok := middleware.GetAgencyIDFromContext(c); ok {
		req.AgencyID = agencyID
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.iccidFlow.AnalyzeICCID(newRequestContext(c, "/api/v1/line-reservations/analyze-iccid"), &req, metadata)
	if err != nil {
		if businessflow.IsICCIDInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "ICCID too short for analysis", "ICCID_TOO_SHORT", nil)
		}
		if businessflow.IsClientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Client not found", "CLIENT_NOT_FOUND", nil)
		}

		log.Println("ICCID analysis failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to analyze ICCID", "ICCID_ANALYSIS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "ICCID analyzed", result)
}

func (h *LineReservationHandler) reservationError(c fiber.Ctx, err error) error {
	if businessflow.IsClientNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Client not found", "CLIENT_NOT_FOUND", nil)
	}
	if businessflow.IsRedAccountNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
	}
	if businessflow.IsRedAccountInactive(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "RED account is inactive", "RED_ACCOUNT_INACTIVE", nil)
	}
	if businessflow.IsLineRequestNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Line request not found", "LINE_REQUEST_NOT_FOUND", nil)
	}
	if businessflow.IsAlreadyReserved(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Line request is no longer pending", "ALREADY_RESERVED", nil)
	}
	if businessflow.IsCapacityExceeded(err) || businessflow.IsNoCapacity(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Account capacity exceeded", "CAPACITY_EXCEEDED", nil)
	}
	if businessflow.IsInvalidTransition(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Status transition not allowed", "INVALID_TRANSITION", nil)
	}

	log.Println("Reservation failed", err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reservation failed", "RESERVATION_FAILED", nil)
}
