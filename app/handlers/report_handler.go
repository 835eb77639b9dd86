// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/redline-telecom/redline/app/dto"
	businessflow "github.com/redline-telecom/redline/business_flow"
)

// ReportHandlerInterface defines the contract for export handlers
type ReportHandlerInterface interface {
	ExportLines(c fiber.Ctx) error
}

// ReportHandler handles spreadsheet export HTTP requests
type ReportHandler struct {
	reportFlow businessflow.ReportFlow
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportFlow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{reportFlow: reportFlow}
}

func (h *ReportHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// ExportLines streams the full line inventory as an Excel workbook
// @Summary Export lines
// @Description One sheet per agency with every line and its lifecycle fields
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param agency_id query int false "Restrict the export to one agency"
// @Success 200 {file} binary "Excel workbook"
// @Router /api/v1/reports/lines.xlsx [get]
func (h *ReportHandler) ExportLines(c fiber.Ctx) error {
	var agencyID *uint
	if raw := c.Query("agency_id"); raw != "" {
		var v uint64
		if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v == 0 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid agency_id", "INVALID_REQUEST", nil)
		}
		id := uint(v)
		agencyID = &id
	}

	filename, payload, err := h.reportFlow.ExportLinesExcel(newRequestContext(c, "/api/v1/reports/lines.xlsx"), agencyID)
	if err != nil {
		if businessflow.IsAgencyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Agency not found", "AGENCY_NOT_FOUND", nil)
		}
		log.Println("Lines export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export lines", "EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(payload)
}
