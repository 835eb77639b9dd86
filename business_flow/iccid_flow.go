// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// Scoring weights for the ICCID matcher
const (
	ScoreFreeSlots        = 30
	ScoreNearbyOrder      = 50
	ScorePhoneSuffixMatch = 80
	ScoreRecentActivation = 20
	ScoreLowUtilization   = 10

	// NearbyOrderWindow bounds the ±3 day order-date proximity signal
	NearbyOrderWindow = 3 * 24 * time.Hour

	// RecentActivationWindow marks an account as recently active
	RecentActivationWindow = 7 * 24 * time.Hour

	// LowUtilizationThreshold is the active/max ratio below which the
	// utilization bonus applies
	LowUtilizationThreshold = 0.8
)

// Confidence bands
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ICCIDCandidate is a scored account proposal
type ICCIDCandidate struct {
	Account    *models.RedAccount
	Score      int
	Reasons    []string
	Confidence string
}

// ICCIDFlow scores candidate accounts for a scanned ICCID
type ICCIDFlow interface {
	AnalyzeICCID(ctx context.Context, request *dto.AnalyzeICCIDRequest, metadata *ClientMetadata) (*dto.AnalyzeICCIDResponse, error)
}

// ICCIDFlowImpl implements the ICCID matching business flow
type ICCIDFlowImpl struct {
	accountRepo repository.RedAccountRepository
	lineRepo    repository.LineRepository
	userRepo    repository.UserRepository
	db          *gorm.DB
}

// NewICCIDFlow creates a new ICCID flow instance
func NewICCIDFlow(
	accountRepo repository.RedAccountRepository,
	lineRepo repository.LineRepository,
	userRepo repository.UserRepository,
	db *gorm.DB,
) ICCIDFlow {
	return &ICCIDFlowImpl{
		accountRepo: accountRepo,
		lineRepo:    lineRepo,
		userRepo:    userRepo,
		db:          db,
	}
}

// AnalyzeICCID extracts the embedded order-date hint and scores every account
// of the agency. An empty candidate list is a valid outcome: it signals that
// manual number entry is required.
func (f *ICCIDFlowImpl) AnalyzeICCID(ctx context.Context, request *dto.AnalyzeICCIDRequest, metadata *ClientMetadata) (*dto.AnalyzeICCIDResponse, error) {
	iccid := strings.TrimSpace(request.ICCID)
	if len(iccid) < utils.MinICCIDLength {
		return nil, NewBusinessError("ICCID_TOO_SHORT", "ICCID too short for analysis", ErrICCIDTooShort)
	}

	accounts, err := f.accountRepo.ListByAgency(ctx, request.AgencyID)
	if err != nil {
		return nil, NewBusinessError("ICCID_ANALYSIS_FAILED", "Failed to load agency accounts", err)
	}

	// Attach lines so the scorer can see order dates and phone numbers
	for _, account := range accounts {
		lines, err := f.lineRepo.ListByRedAccount(ctx, account.ID)
		if err != nil {
			return nil, NewBusinessError("ICCID_ANALYSIS_FAILED", "Failed to load account lines", err)
		}
		account.Lines = make([]models.Line, 0, len(lines))
		for _, l := range lines {
			account.Lines = append(account.Lines, *l)
		}
	}

	now := utils.UTCNow()
	hint := ExtractOrderDateHint(iccid, now)

	var clientPhone *string
	clientOrderDate := hint
	if request.ClientID != nil {
		client, err := f.userRepo.ByID(ctx, *request.ClientID)
		if err != nil {
			return nil, NewBusinessError("ICCID_ANALYSIS_FAILED", "Failed to load client", err)
		}
		if client == nil {
			return nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
		}
		clientPhone = client.PhoneNumber

		// The client's own latest order date is a stronger signal than the
		// one embedded in the ICCID
		clientLines, err := f.lineRepo.ListByClient(ctx, client.ID)
		if err != nil {
			return nil, NewBusinessError("ICCID_ANALYSIS_FAILED", "Failed to load client lines", err)
		}
		for _, l := range clientLines {
			if l.OrderDate == nil {
				continue
			}
			if clientOrderDate == nil || l.OrderDate.After(*clientOrderDate) {
				clientOrderDate = l.OrderDate
			}
		}
	}

	candidates := ScoreCandidates(accounts, clientOrderDate, clientPhone, now)

	resp := &dto.AnalyzeICCIDResponse{
		ICCID:       iccid,
		Candidates:  make([]dto.ICCIDCandidateDTO, 0, len(candidates)),
		ManualEntry: len(candidates) == 0,
	}
	if hint != nil {
		s := hint.Format("2006-01-02")
		resp.OrderDateHint = &s
	}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, dto.ICCIDCandidateDTO{
			Account:    ToRedAccountDTO(*c.Account, false),
			Score:      c.Score,
			Reasons:    c.Reasons,
			Confidence: c.Confidence,
		})
	}
	return resp, nil
}

// ExtractOrderDateHint scans the ICCID for an embedded YYMMDD date. The first
// six-digit window that parses to a plausible past date (not in the future,
// not older than ten years) wins. Returns nil when no window qualifies.
func ExtractOrderDateHint(iccid string, now time.Time) *time.Time {
	digits := make([]byte, 0, len(iccid))
	for i := 0; i < len(iccid); i++ {
		if iccid[i] >= '0' && iccid[i] <= '9' {
			digits = append(digits, iccid[i])
		}
	}

	oldest := now.AddDate(-10, 0, 0)
	for i := 0; i+6 <= len(digits); i++ {
		window := string(digits[i : i+6])
		t, err := time.Parse("060102", window)
		if err != nil {
			continue
		}
		if t.After(now) || t.Before(oldest) {
			continue
		}
		t = t.UTC()
		return &t
	}
	return nil
}

// ScoreCandidates scores every account and returns the non-zero candidates
// sorted by score descending, account ID ascending on ties. The sort is
// stable so equal entries keep their input order.
func ScoreCandidates(accounts []*models.RedAccount, clientOrderDate *time.Time, clientPhone *string, now time.Time) []ICCIDCandidate {
	candidates := make([]ICCIDCandidate, 0, len(accounts))
	for _, account := range accounts {
		if account == nil {
			continue
		}
		score, reasons := ScoreAccount(account, clientOrderDate, clientPhone, now)
		if score == 0 {
			continue
		}
		candidates = append(candidates, ICCIDCandidate{
			Account:    account,
			Score:      score,
			Reasons:    reasons,
			Confidence: ConfidenceBand(score),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Account.ID < candidates[j].Account.ID
	})
	return candidates
}

// ScoreAccount applies the additive scoring policy to one account.
// Each signal can only add points, never subtract.
func ScoreAccount(account *models.RedAccount, clientOrderDate *time.Time, clientPhone *string, now time.Time) (int, []string) {
	score := 0
	reasons := make([]string, 0, 5)

	if account.AvailableSlots() > 0 {
		score += ScoreFreeSlots
		reasons = append(reasons, fmt.Sprintf("account has %d free slot(s)", account.AvailableSlots()))
	}

	if clientOrderDate != nil && hasNearbyPendingOrder(account, *clientOrderDate) {
		score += ScoreNearbyOrder
		reasons = append(reasons, "account has lines ordered within 3 days of the client's order still awaiting activation")
	}

	if clientPhone != nil && hasPhoneSuffixMatch(account, *clientPhone) {
		score += ScorePhoneSuffixMatch
		reasons = append(reasons, "a pending line's number ends with the client's last four digits")
	}

	if hasRecentActivation(account, now) {
		score += ScoreRecentActivation
		reasons = append(reasons, "account had a line activated within the last 7 days")
	}

	if account.Utilization() < LowUtilizationThreshold {
		score += ScoreLowUtilization
		reasons = append(reasons, "account utilization below 80%")
	}

	return score, reasons
}

// ConfidenceBand maps a score to its confidence label. Zero scores are
// excluded upstream and never reach this function in normal flow.
func ConfidenceBand(score int) string {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func hasNearbyPendingOrder(account *models.RedAccount, orderDate time.Time) bool {
	for i := range account.Lines {
		l := &account.Lines[i]
		if l.PhoneStatus != models.PhoneStatusNeedsToBeActivated || l.OrderDate == nil {
			continue
		}
		delta := l.OrderDate.Sub(orderDate)
		if delta < 0 {
			delta = -delta
		}
		if delta <= NearbyOrderWindow {
			return true
		}
	}
	return false
}

func hasPhoneSuffixMatch(account *models.RedAccount, clientPhone string) bool {
	suffix := lastDigits(clientPhone, 4)
	if suffix == "" {
		return false
	}
	for i := range account.Lines {
		l := &account.Lines[i]
		if l.PhoneNumber == nil {
			continue
		}
		if lastDigits(*l.PhoneNumber, 4) == suffix {
			return true
		}
	}
	return false
}

func hasRecentActivation(account *models.RedAccount, now time.Time) bool {
	for i := range account.Lines {
		l := &account.Lines[i]
		if l.ActivatedAt == nil {
			continue
		}
		if now.Sub(utils.TimeToUTC(*l.ActivatedAt)) <= RecentActivationWindow {
			return true
		}
	}
	return false
}

func lastDigits(s string, n int) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) < n {
		return ""
	}
	return string(digits[len(digits)-n:])
}
