// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"github.com/xuri/excelize/v2"
)

// ReportFlow exports the line inventory as an Excel workbook, one sheet per
// agency, so supervisors can hand the state of the park to back office.
type ReportFlow interface {
	ExportLinesExcel(ctx context.Context, agencyID *uint) (string, []byte, error)
}

// ReportFlowImpl implements the reporting business flow
type ReportFlowImpl struct {
	agencyRepo  repository.AgencyRepository
	accountRepo repository.RedAccountRepository
	lineRepo    repository.LineRepository
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(
	agencyRepo repository.AgencyRepository,
	accountRepo repository.RedAccountRepository,
	lineRepo repository.LineRepository,
) ReportFlow {
	return &ReportFlowImpl{
		agencyRepo:  agencyRepo,
		accountRepo: accountRepo,
		lineRepo:    lineRepo,
	}
}

// ExportLinesExcel builds the workbook. With a nil agencyID every agency gets
// a sheet; otherwise only the requested one. Returns filename and content.
func (f *ReportFlowImpl) ExportLinesExcel(ctx context.Context, agencyID *uint) (string, []byte, error) {
	var agencies []*models.Agency
	if agencyID != nil {
		agency, err := f.agencyRepo.ByID(ctx, *agencyID)
		if err != nil {
			return "", nil, NewBusinessError("REPORT_FAILED", "Failed to load agency", err)
		}
		if agency == nil {
			return "", nil, NewBusinessError("AGENCY_NOT_FOUND", "Agency not found", ErrAgencyNotFound)
		}
		agencies = []*models.Agency{agency}
	} else {
		var err error
		agencies, err = f.agencyRepo.ByFilter(ctx, models.AgencyFilter{}, "id ASC", 0, 0)
		if err != nil {
			return "", nil, NewBusinessError("REPORT_FAILED", "Failed to list agencies", err)
		}
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	usedNames := map[string]bool{}
	for i, agency := range agencies {
		baseName := sanitizeSheetName(agency.Name)
		name := baseName
		idx := 1
		for usedNames[name] {
			idx++
			name = truncateSheetName(fmt.Sprintf("%s_%d", baseName, idx))
		}
		usedNames[name] = true
		if i == 0 {
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}

		header := []string{"id", "phone_number", "iccid", "phone_status", "payment_status", "red_account", "client_id", "reserved", "unpaid_months", "order_date", "activated_at", "terminated_at", "notes"}
		_ = xl.SetSheetRow(name, "A1", &header)

		lines, err := f.lineRepo.ListByAgency(ctx, agency.ID, 0, 0)
		if err != nil {
			return "", nil, NewBusinessError("REPORT_FAILED", "Failed to list agency lines", err)
		}

		// Resolve account logins once per agency
		accounts, err := f.accountRepo.ListByAgency(ctx, agency.ID)
		if err != nil {
			return "", nil, NewBusinessError("REPORT_FAILED", "Failed to list agency accounts", err)
		}
		loginByID := make(map[uint]string, len(accounts))
		for _, account := range accounts {
			loginByID[account.ID] = account.RedAccountID
		}

		for ri, l := range lines {
			record := []string{
				strconv.FormatUint(uint64(l.ID), 10),
				derefString(l.PhoneNumber),
				derefString(l.ICCID),
				l.PhoneStatus.String(),
				l.PaymentStatus.String(),
				loginByID[l.RedAccountID],
				formatUintPtr(l.ClientID),
				strconv.FormatBool(l.IsReserved()),
				strconv.Itoa(l.UnpaidMonthsCount),
				formatReportTime(l.OrderDate),
				formatReportTime(l.ActivatedAt),
				formatReportTime(l.TerminatedAt),
				derefString(l.TrackingNotes),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("lines_%s.xlsx", utils.UTCNow().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatUintPtr(v *uint) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
