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

// LineRequestHandlerInterface defines the contract for demand intake handlers
type LineRequestHandlerInterface interface {
	CreateLineRequest(c fiber.Ctx) error
	ClientsToOrder(c fiber.Ctx) error
	QuotaQueue(c fiber.Ctx) error
	CancelLineRequest(c fiber.Ctx) error
}

// LineRequestHandler handles demand intake HTTP requests
type LineRequestHandler struct {
	requestFlow businessflow.LineRequestFlow
	validator   *validator.Validate
}

// NewLineRequestHandler creates a new line request handler
func NewLineRequestHandler(requestFlow businessflow.LineRequestFlow) *LineRequestHandler {
	return &LineRequestHandler{
		requestFlow: requestFlow,
		validator:   validator.New(),
	}
}

func (h *LineRequestHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LineRequestHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateLineRequest files a demand for a client
// @Summary Create line request
// @Tags Line Requests
// @Accept json
// @Produce json
// @Param request body dto.CreateLineRequestRequest true "Demand data"
// @Success 201 {object} dto.APIResponse{data=dto.LineRequestDTO}
// @Router /api/v1/line-requests [post]
func (h *LineRequestHandler) CreateLineRequest(c fiber.Ctx) error {
	var req dto.CreateLineRequestRequest
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

	result, err := h.requestFlow.CreateLineRequest(newRequestContext(c, "/api/v1/line-requests"), &req, metadata)
	if err != nil {
		if businessflow.IsClientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Client not found", "CLIENT_NOT_FOUND", nil)
		}
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Create line request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create line request", "LINE_REQUEST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Line request created", result)
}

// ClientsToOrder returns the pending backlog for the caller's agency
// @Summary Clients to order
// @Tags Line Requests
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListLineRequestsResponse}
// @Router /api/v1/clients-to-order [get]
func (h *LineRequestHandler) ClientsToOrder(c fiber.Ctx) error {
	agencyID, ok := middleware.GetAgencyIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusForbidden, "User has no agency scope", "NO_AGENCY_SCOPE", nil)
	}

	result, err := h.requestFlow.ListClientsToOrder(newRequestContext(c, "/api/v1/clients-to-order"), agencyID)
	if err != nil {
		log.Println("Clients to order failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list pending requests", "LINE_REQUEST_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pending requests retrieved", result)
}

// QuotaQueue returns the queued demands pinned to one account
// @Summary Quota queue
// @Tags Line Requests
// @Produce json
// @Param id path int true "RED account ID"
// @Success 200 {object} dto.APIResponse{data=dto.QuotaQueueResponse}
// @Router /api/v1/line-reservation-quotas/red-account/{id} [get]
func (h *LineRequestHandler) QuotaQueue(c fiber.Ctx) error {
	accountID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_REQUEST", nil)
	}

	result, err := h.requestFlow.QuotaQueue(newRequestContext(c, "/api/v1/line-reservation-quotas/red-account/:id"), accountID)
	if err != nil {
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}
		log.Println("Quota queue failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list queued requests", "QUOTA_QUEUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Quota queue retrieved", result)
}

// CancelLineRequest withdraws a pending demand
// @Summary Cancel line request
// @Tags Line Requests
// @Produce json
// @Param id path int true "Line request ID"
// @Success 200 {object} dto.APIResponse{data=dto.LineRequestDTO}
// @Router /api/v1/line-requests/{id} [delete]
func (h *LineRequestHandler) CancelLineRequest(c fiber.Ctx) error {
	requestID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request ID", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.requestFlow.CancelLineRequest(newRequestContext(c, "/api/v1/line-requests/:id"), requestID, metadata)
	if err != nil {
		if businessflow.IsLineRequestNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Line request not found", "LINE_REQUEST_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyReserved(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Line request is no longer pending", "ALREADY_RESERVED", nil)
		}
		log.Println("Cancel line request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel line request", "LINE_REQUEST_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Line request cancelled", result)
}
