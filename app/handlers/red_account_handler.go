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

// RedAccountHandlerInterface defines the contract for RED account handlers
type RedAccountHandlerInterface interface {
	ListRedAccounts(c fiber.Ctx) error
	CreateRedAccount(c fiber.Ctx) error
	GetRedAccount(c fiber.Ctx) error
	ListAccountLines(c fiber.Ctx) error
	CreateLine(c fiber.Ctx) error
	UpdateLineStatus(c fiber.Ctx) error
	RevealPassword(c fiber.Ctx) error
	Availability(c fiber.Ctx) error
	LineBuckets(c fiber.Ctx) error
}

// RedAccountHandler handles RED account management HTTP requests
type RedAccountHandler struct {
	accountFlow    businessflow.RedAccountFlow
	allocationFlow businessflow.AllocationFlow
	validator      *validator.Validate
}

// NewRedAccountHandler creates a new RED account handler
func NewRedAccountHandler(accountFlow businessflow.RedAccountFlow, allocationFlow businessflow.AllocationFlow) *RedAccountHandler {
	return &RedAccountHandler{
		accountFlow:    accountFlow,
		allocationFlow: allocationFlow,
		validator:      validator.New(),
	}
}

func (h *RedAccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RedAccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListRedAccounts lists the accounts of the caller's agency
// @Summary List RED accounts
// @Tags RED Accounts
// @Produce json
// @Param include_lines query bool false "Nest the lines of each account"
// @Success 200 {object} dto.APIResponse{data=dto.ListRedAccountsResponse}
// @Router /api/v1/red-accounts [get]
func (h *RedAccountHandler) ListRedAccounts(c fiber.Ctx) error {
	agencyID, ok := middleware.GetAgencyIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusForbidden, "User has no agency scope", "NO_AGENCY_SCOPE", nil)
	}

	includeLines := c.Query("include_lines") == "true"

	result, err := h.accountFlow.ListRedAccounts(newRequestContext(c, "/api/v1/red-accounts"), agencyID, includeLines)
	if err != nil {
		log.Println("List RED accounts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list RED accounts", "ACCOUNT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "RED accounts retrieved", result)
}

// CreateRedAccount registers a new RED account (supervisor only)
// @Summary Create RED account
// @Tags RED Accounts
// @Accept json
// @Produce json
// @Param request body dto.CreateRedAccountRequest true "Account data"
// @Success 201 {object} dto.APIResponse{data=dto.RedAccountDTO}
// @Failure 409 {object} dto.APIResponse "Login already exists"
// @Router /api/v1/red-accounts [post]
func (h *RedAccountHandler) CreateRedAccount(c fiber.Ctx) error {
	var req dto.CreateRedAccountRequest
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

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.CreateRedAccount(newRequestContext(c, "/api/v1/red-accounts"), &req, userID, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only supervisors may create RED accounts", "FORBIDDEN", nil)
		}
		if businessflow.IsAgencyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Agency not found", "AGENCY_NOT_FOUND", nil)
		}
		if businessflow.IsAgencyInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Agency is inactive", "AGENCY_INACTIVE", nil)
		}
		if businessflow.IsRedAccountExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "RED account login already exists", "RED_ACCOUNT_EXISTS", nil)
		}

		log.Println("Create RED account failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create RED account", "ACCOUNT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "RED account created", result)
}

// GetRedAccount returns one account with its lines
// @Summary Get RED account
// @Tags RED Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.RedAccountDTO}
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/red-accounts/{id} [get]
func (h *RedAccountHandler) GetRedAccount(c fiber.Ctx) error {
	accountID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_REQUEST", nil)
	}

	result, err := h.accountFlow.GetRedAccount(newRequestContext(c, "/api/v1/red-accounts/:id"), accountID)
	if err != nil {
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}
		log.Println("Get RED account failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load RED account", "ACCOUNT_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "RED account retrieved", result)
}

// ListAccountLines returns the lines parked under an account
// @Summary List account lines
// @Tags RED Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListLinesResponse}
// @Router /api/v1/red-accounts/{id}/lines [get]
func (h *RedAccountHandler) ListAccountLines(c fiber.Ctx) error {
	accountID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_REQUEST", nil)
	}

	result, err := h.accountFlow.ListAccountLines(newRequestContext(c, "/api/v1/red-accounts/:id/lines"), accountID)
	if err != nil {
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}
		log.Println("List account lines failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list lines", "LINE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lines retrieved", result)
}

// CreateLine parks a new line under an account
// @Summary Create line
// @Tags RED Accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body dto.CreateLineRequest true "Line data"
// @Success 201 {object} dto.APIResponse{data=dto.LineDTO}
// @Failure 409 {object} dto.APIResponse "Phone number already exists"
// @Router /api/v1/red-accounts/{id}/lines [post]
func (h *RedAccountHandler) CreateLine(c fiber.Ctx) error {
	accountID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_REQUEST", nil)
	}

	var req dto.CreateLineRequest
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

	result, err := h.accountFlow.CreateLine(newRequestContext(c, "/api/v1/red-accounts/:id/lines"), accountID, &req, metadata)
	if err != nil {
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}
		if businessflow.IsRedAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "RED account is inactive", "RED_ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsCapacityExceeded(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account capacity exceeded", "CAPACITY_EXCEEDED", nil)
		}
		if businessflow.IsPhoneNumberExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Phone number already exists", "PHONE_NUMBER_EXISTS", nil)
		}

		log.Println("Create line failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create line", "LINE_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Line created", result)
}

// UpdateLineStatus applies a manual lifecycle transition
// @Summary Update line status
// @Tags RED Accounts
// @Accept json
// @Produce json
// @Param lineId path int true "Line ID"
// @Param request body dto.UpdateLineStatusRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.LineDTO}
// @Failure 422 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/lines/{lineId}/status [patch]
func (h *RedAccountHandler) UpdateLineStatus(c fiber.Ctx) error {
	lineID, err := parseUintParam(c, "lineId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid line ID", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateLineStatusRequest
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

	result, err := h.accountFlow.UpdateLineStatus(newRequestContext(c, "/api/v1/lines/:lineId/status"), lineID, &req, metadata)
	if err != nil {
		if businessflow.IsPhoneNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Line not found", "PHONE_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidTransition(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Status transition not allowed", "INVALID_TRANSITION", nil)
		}

		log.Println("Update line status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to change line status", "STATUS_CHANGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Line status updated", result)
}

// RevealPassword decrypts the portal password for a supervisor
// @Summary Reveal account password
// @Tags RED Accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body dto.RevealPasswordRequest true "Captcha proof"
// @Success 200 {object} dto.APIResponse{data=dto.RevealPasswordResponse}
// @Failure 403 {object} dto.APIResponse "Supervisor role required"
// @Router /api/v1/red-accounts/{id}/reveal-password [post]
func (h *RedAccountHandler) RevealPassword(c fiber.Ctx) error {
	accountID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account ID", "INVALID_REQUEST", nil)
	}

	var req dto.RevealPasswordRequest
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

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.RevealPassword(newRequestContext(c, "/api/v1/red-accounts/:id/reveal-password"), accountID, &req, userID, metadata)
	if err != nil {
		if businessflow.IsForbidden(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only supervisors may reveal passwords", "FORBIDDEN", nil)
		}
		if businessflow.IsCaptchaRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification required", "CAPTCHA_REQUIRED", nil)
		}
		if businessflow.IsCaptchaInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Captcha verification failed", "CAPTCHA_INVALID", nil)
		}
		if businessflow.IsRedAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "RED account not found", "RED_ACCOUNT_NOT_FOUND", nil)
		}

		log.Println("Password reveal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reveal password", "PASSWORD_REVEAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Password revealed", result)
}

// Availability returns the ranked capacity view for the caller's agency
// @Summary Agency availability
// @Tags RED Accounts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AvailabilityResponse}
// @Router /api/v1/red-accounts/availability [get]
func (h *RedAccountHandler) Availability(c fiber.Ctx) error {
	agencyID, ok := middleware.GetAgencyIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusForbidden, "User has no agency scope", "NO_AGENCY_SCOPE", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.allocationFlow.AnalyzeAgency(newRequestContext(c, "/api/v1/red-accounts/availability"), agencyID, metadata)
	if err != nil {
		if businessflow.IsAgencyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Agency not found", "AGENCY_NOT_FOUND", nil)
		}
		log.Println("Availability analysis failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to analyze availability", "AVAILABILITY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Availability retrieved", result)
}

// LineBuckets returns the operational worklists for the caller's agency
// @Summary Agency line buckets
// @Tags RED Accounts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.LineBucketsResponse}
// @Router /api/v1/lines/buckets [get]
func (h *RedAccountHandler) LineBuckets(c fiber.Ctx) error {
	agencyID, ok := middleware.GetAgencyIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusForbidden, "User has no agency scope", "NO_AGENCY_SCOPE", nil)
	}

	result, err := h.allocationFlow.LineBuckets(newRequestContext(c, "/api/v1/lines/buckets"), agencyID)
	if err != nil {
		if businessflow.IsAgencyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Agency not found", "AGENCY_NOT_FOUND", nil)
		}
		log.Println("Line buckets failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build line buckets", "LINE_BUCKETS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Line buckets retrieved", result)
}
