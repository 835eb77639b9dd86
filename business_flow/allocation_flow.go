// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	"github.com/redline-telecom/redline/utils"
	"gorm.io/gorm"
)

// AvailabilitySnapshotKeyPrefix is the cache key prefix for per-agency
// availability snapshots written by this flow and the refresher
const AvailabilitySnapshotKeyPrefix = "availability:agency:"

// AccountAvailability is the analyzer's view of one account's capacity
type AccountAvailability struct {
	Account        *models.RedAccount
	OccupiedSlots  int
	AvailableSlots int
	ReusableLines  []*models.Line
}

// AllocationReport is the ranked capacity view for one agency
type AllocationReport struct {
	Available     []AccountAvailability
	Full          []AccountAvailability
	ReusableLines []*models.Line
	NoCapacity    bool
}

// AllocationFlow produces the ranked capacity view used to pick a target
// account for a new line. The view is advisory: commit-time enforcement
// happens in the reservation flow under a row lock.
type AllocationFlow interface {
	AnalyzeAgency(ctx context.Context, agencyID uint, metadata *ClientMetadata) (*dto.AvailabilityResponse, error)
	LineBuckets(ctx context.Context, agencyID uint) (*dto.LineBucketsResponse, error)
	RebuildSnapshot(ctx context.Context, agencyID uint) (*AllocationReport, error)
	RefreshSnapshot(ctx context.Context, agencyID uint) (*AllocationReport, error)
}

// AllocationFlowImpl implements the allocation analyzer business flow
type AllocationFlowImpl struct {
	accountRepo repository.RedAccountRepository
	lineRepo    repository.LineRepository
	agencyRepo  repository.AgencyRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	db          *gorm.DB
}

// NewAllocationFlow creates a new allocation flow instance
func NewAllocationFlow(
	accountRepo repository.RedAccountRepository,
	lineRepo repository.LineRepository,
	agencyRepo repository.AgencyRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) AllocationFlow {
	return &AllocationFlowImpl{
		accountRepo: accountRepo,
		lineRepo:    lineRepo,
		agencyRepo:  agencyRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
		db:          db,
	}
}

// AnalyzeAgency returns the ranked availability view for an agency.
// The cached snapshot is served when present; otherwise the view is
// recomputed from the database and cached for the refresher interval.
func (f *AllocationFlowImpl) AnalyzeAgency(ctx context.Context, agencyID uint, metadata *ClientMetadata) (*dto.AvailabilityResponse, error) {
	agency, err := f.agencyRepo.ByID(ctx, agencyID)
	if err != nil {
		return nil, NewBusinessError("AVAILABILITY_FAILED", "Failed to load agency", err)
	}
	if agency == nil {
		return nil, NewBusinessError("AGENCY_NOT_FOUND", "Agency not found", ErrAgencyNotFound)
	}

	// Try the cached snapshot first
	if f.rc != nil {
		cacheKey := redisKey(*f.cacheConfig, snapshotKey(agencyID))
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.AvailabilityResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	report, err := f.RebuildSnapshot(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	resp := toAvailabilityResponse(report, utils.UTCNow())

	if f.rc != nil {
		cacheKey := redisKey(*f.cacheConfig, snapshotKey(agencyID))
		if bs, err := json.Marshal(resp); err == nil {
			_ = f.rc.Set(ctx, cacheKey, bs, f.cacheConfig.DefaultTTL).Err()
		}
	}

	return resp, nil
}

// LineBuckets returns the operational worklists for an agency: lines to
// order, to activate, to block, to unblock, and reclaimable terminated
// lines, each derived from the eligibility predicates over a fresh read.
func (f *AllocationFlowImpl) LineBuckets(ctx context.Context, agencyID uint) (*dto.LineBucketsResponse, error) {
	agency, err := f.agencyRepo.ByID(ctx, agencyID)
	if err != nil {
		return nil, NewBusinessError("LINE_BUCKETS_FAILED", "Failed to load agency", err)
	}
	if agency == nil {
		return nil, NewBusinessError("AGENCY_NOT_FOUND", "Agency not found", ErrAgencyNotFound)
	}

	lines, err := f.lineRepo.ListByAgency(ctx, agencyID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("LINE_BUCKETS_FAILED", "Failed to load agency lines", err)
	}

	now := utils.UTCNow()
	buckets := BucketLines(lines, now)
	return &dto.LineBucketsResponse{
		AgencyID:   agencyID,
		ToOrder:    ToLineDTOs(buckets.ToOrder),
		ToActivate: ToLineDTOs(buckets.ToActivate),
		ToBlock:    ToLineDTOs(buckets.ToBlock),
		ToUnblock:  ToLineDTOs(buckets.ToUnblock),
		Reusable:   ToLineDTOs(buckets.Reusable),
		SnapshotAt: now.Format(time.RFC3339),
	}, nil
}

// RebuildSnapshot recomputes the capacity view from the database without
// touching the cache.
func (f *AllocationFlowImpl) RebuildSnapshot(ctx context.Context, agencyID uint) (*AllocationReport, error) {
	accounts, err := f.accountRepo.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, NewBusinessError("AVAILABILITY_FAILED", "Failed to load agency accounts", err)
	}

	for _, account := range accounts {
		lines, err := f.lineRepo.ListByRedAccount(ctx, account.ID)
		if err != nil {
			return nil, NewBusinessError("AVAILABILITY_FAILED", "Failed to load account lines", err)
		}
		account.Lines = make([]models.Line, 0, len(lines))
		for _, l := range lines {
			account.Lines = append(account.Lines, *l)
		}
	}

	report := Analyze(accounts, utils.UTCNow())
	return &report, nil
}

// RefreshSnapshot recomputes the capacity view and replaces the cached
// copy. The background refresher calls this on every tick so readers
// rarely hit a cold cache.
func (f *AllocationFlowImpl) RefreshSnapshot(ctx context.Context, agencyID uint) (*AllocationReport, error) {
	report, err := f.RebuildSnapshot(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	if f.rc != nil {
		resp := toAvailabilityResponse(report, utils.UTCNow())
		if bs, err := json.Marshal(resp); err == nil {
			_ = f.rc.Set(ctx, redisKey(*f.cacheConfig, snapshotKey(agencyID)), bs, f.cacheConfig.DefaultTTL).Err()
		}
	}

	return report, nil
}

// InvalidateSnapshot drops the cached availability view for an agency.
// Reservation and activation flows call this after mutating capacity.
func InvalidateSnapshot(ctx context.Context, rc *redis.Client, cacheConfig *config.CacheConfig, agencyID uint) {
	if rc == nil {
		return
	}
	_ = rc.Del(ctx, redisKey(*cacheConfig, snapshotKey(agencyID))).Err()
}

// Analyze is the pure analyzer core: per-account occupancy, clamped available
// slots, descending ranking, full accounts separated, reusable lines
// independent of slot availability. NoCapacity is set when neither free slots
// nor reusable lines exist anywhere in the agency.
func Analyze(accounts []*models.RedAccount, now time.Time) AllocationReport {
	report := AllocationReport{
		Available:     make([]AccountAvailability, 0, len(accounts)),
		Full:          make([]AccountAvailability, 0),
		ReusableLines: make([]*models.Line, 0),
	}

	for _, account := range accounts {
		if account == nil {
			continue
		}
		availability := AccountAvailability{
			Account:        account,
			OccupiedSlots:  account.OccupiedSlots(),
			AvailableSlots: account.AvailableSlots(),
		}
		for i := range account.Lines {
			line := &account.Lines[i]
			if IsReusable(line, now) {
				availability.ReusableLines = append(availability.ReusableLines, line)
				report.ReusableLines = append(report.ReusableLines, line)
			}
		}
		if availability.AvailableSlots > 0 {
			report.Available = append(report.Available, availability)
		} else {
			report.Full = append(report.Full, availability)
		}
	}

	sort.SliceStable(report.Available, func(i, j int) bool {
		return report.Available[i].AvailableSlots > report.Available[j].AvailableSlots
	})

	report.NoCapacity = len(report.Available) == 0 && len(report.ReusableLines) == 0
	return report
}

func toAvailabilityResponse(report *AllocationReport, now time.Time) *dto.AvailabilityResponse {
	resp := &dto.AvailabilityResponse{
		Available:     make([]dto.AccountAvailabilityDTO, 0, len(report.Available)),
		Full:          make([]dto.AccountAvailabilityDTO, 0, len(report.Full)),
		ReusableLines: ToLineDTOs(report.ReusableLines),
		NoCapacity:    report.NoCapacity,
		SnapshotAt:    now.Format(time.RFC3339),
	}
	for _, a := range report.Available {
		resp.Available = append(resp.Available, toAccountAvailabilityDTO(a))
	}
	for _, a := range report.Full {
		resp.Full = append(resp.Full, toAccountAvailabilityDTO(a))
	}
	return resp
}

func toAccountAvailabilityDTO(a AccountAvailability) dto.AccountAvailabilityDTO {
	return dto.AccountAvailabilityDTO{
		Account:        ToRedAccountDTO(*a.Account, false),
		OccupiedSlots:  a.OccupiedSlots,
		AvailableSlots: a.AvailableSlots,
		ReusableLines:  ToLineDTOs(a.ReusableLines),
	}
}

func snapshotKey(agencyID uint) string {
	return fmt.Sprintf("%s%d", AvailabilitySnapshotKeyPrefix, agencyID)
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
