// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redline-telecom/redline/app/middleware"
	businessflow "github.com/redline-telecom/redline/business_flow"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
)

// AvailabilityRefresher periodically rebuilds the per-agency capacity
// snapshots so the availability endpoint serves warm data, and publishes
// the per-account slot gauges for alerting
type AvailabilityRefresher struct {
	agencyRepo     repository.AgencyRepository
	allocationFlow businessflow.AllocationFlow
	logger         *log.Logger
	interval       time.Duration

	logFile *os.File
}

func NewAvailabilityRefresher(
	agencyRepo repository.AgencyRepository,
	allocationFlow businessflow.AllocationFlow,
	interval time.Duration,
) *AvailabilityRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	r := &AvailabilityRefresher{
		agencyRepo:     agencyRepo,
		allocationFlow: allocationFlow,
		interval:       interval,
	}

	if err := r.initRefresherLogger(); err != nil {
		r.logger = log.Default()
		r.logger.Printf("refresher: failed to initialize file logger: %v", err)
	}

	return r
}

// initRefresherLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (r *AvailabilityRefresher) initRefresherLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "refresher.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		r.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		r.logger = log.New(mw, "refresher ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create refresher log file in any candidate directory")
}

// Start launches the refresher loop in a background goroutine and returns a stop function
func (r *AvailabilityRefresher) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				r.logger.Println("refresher stopped")
				return
			case <-ticker.C:
				r.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if r.logFile != nil {
			_ = r.logFile.Close()
		}
	}
}

// runOnce refreshes every active agency's snapshot and gauges
func (r *AvailabilityRefresher) runOnce(ctx context.Context) {
	start := time.Now()

	active := true
	agencies, err := r.agencyRepo.ByFilter(ctx, models.AgencyFilter{IsActive: &active}, "id ASC", 0, 0)
	if err != nil {
		r.logger.Printf("failed to list agencies: %v", err)
		return
	}

	refreshed := 0
	for _, agency := range agencies {
		if ctx.Err() != nil {
			return
		}

		report, err := r.allocationFlow.RefreshSnapshot(ctx, agency.ID)
		if err != nil {
			r.logger.Printf("agency %d: snapshot refresh failed: %v", agency.ID, err)
			continue
		}

		r.publishGauges(agency.ID, report)
		refreshed++
	}

	r.logger.Printf("refreshed %d/%d agency snapshots in %s", refreshed, len(agencies), time.Since(start).Round(time.Millisecond))
}

func (r *AvailabilityRefresher) publishGauges(agencyID uint, report *businessflow.AllocationReport) {
	label := strconv.FormatUint(uint64(agencyID), 10)

	for _, a := range report.Available {
		middleware.RedAccountAvailableSlots.
			WithLabelValues(label, a.Account.RedAccountID).
			Set(float64(a.AvailableSlots))
	}
	for _, a := range report.Full {
		middleware.RedAccountAvailableSlots.
			WithLabelValues(label, a.Account.RedAccountID).
			Set(0)
	}

	noCapacity := 0.0
	if report.NoCapacity {
		noCapacity = 1
	}
	middleware.AgencyNoCapacity.WithLabelValues(label).Set(noCapacity)
}
