// Package businessflow contains the core business logic for the line lifecycle and allocation workflows
package businessflow

import (
	"strings"
	"time"

	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/utils"
)

// Eligibility predicates. Pure functions over (line, now); they never touch
// the database so the operational buckets can be recomputed from any snapshot.

// NeedsToBeOrdered reports whether the line belongs in the "to order" bucket.
// A line holding an active reservation never qualifies, even while its raw
// status still reads NEEDS_TO_BE_ORDERED: the status column is not eagerly
// rewritten on reservation, so the flag takes precedence.
func NeedsToBeOrdered(line *models.Line) bool {
	if line == nil {
		return false
	}
	if line.IsReserved() {
		return false
	}
	return line.PhoneStatus == models.PhoneStatusNeedsToBeOrdered
}

// NeedsToBeActivated reports whether the line belongs in the "to activate"
// bucket: explicitly flagged for activation, or reserved but not yet ACTIVE.
func NeedsToBeActivated(line *models.Line) bool {
	if line == nil {
		return false
	}
	if line.PhoneStatus == models.PhoneStatusNeedsToBeActivated {
		return true
	}
	return utils.IsTrue(line.HasActiveReservation) &&
		line.PhoneStatus != models.PhoneStatusActive
}

// IsOverdueForBlocking reports whether the line should enter the blocking
// queue: from the 27th of the month, overdue payment, not already suspended.
func IsOverdueForBlocking(line *models.Line, now time.Time) bool {
	if line == nil {
		return false
	}
	if now.Day() < utils.BlockingDayOfMonth {
		return false
	}
	if !line.PaymentStatus.IsOverdue() {
		return false
	}
	return line.PhoneStatus != models.PhoneStatusSuspended
}

// IsEligibleForUnblock reports whether a suspended line may be unblocked:
// at least two unpaid months, on or after the 30th of the month. February
// never reaches day 30, so suspended lines wait for March there.
func IsEligibleForUnblock(line *models.Line, now time.Time) bool {
	if line == nil {
		return false
	}
	if line.PhoneStatus != models.PhoneStatusSuspended {
		return false
	}
	if line.UnpaidMonthsCount < utils.MinUnpaidMonthsForUnblock {
		return false
	}
	return now.Day() >= utils.UnblockDayOfMonth
}

// IsReusable reports whether a terminated line's slot can be reclaimed.
// The holding period boundary is inclusive: exactly 365 days is reusable.
func IsReusable(line *models.Line, now time.Time) bool {
	if line == nil || line.TerminatedAt == nil {
		return false
	}
	if line.PhoneStatus != models.PhoneStatusTerminated {
		return false
	}
	return now.Sub(utils.TimeToUTC(*line.TerminatedAt)) >= utils.ReusableHoldingPeriod
}

// LineBuckets groups lines into the operational worklists derived from the
// eligibility predicates. A line may appear in more than one bucket; each
// predicate is evaluated on its own.
type LineBuckets struct {
	ToOrder    []*models.Line
	ToActivate []*models.Line
	ToBlock    []*models.Line
	ToUnblock  []*models.Line
	Reusable   []*models.Line
}

// BucketLines classifies a set of lines against the predicates at the given
// instant. Pure; the caller decides which snapshot the lines come from.
func BucketLines(lines []*models.Line, now time.Time) LineBuckets {
	var buckets LineBuckets
	for _, line := range lines {
		if line == nil {
			continue
		}
		if NeedsToBeOrdered(line) {
			buckets.ToOrder = append(buckets.ToOrder, line)
		}
		if NeedsToBeActivated(line) {
			buckets.ToActivate = append(buckets.ToActivate, line)
		}
		if IsOverdueForBlocking(line, now) {
			buckets.ToBlock = append(buckets.ToBlock, line)
		}
		if IsEligibleForUnblock(line, now) {
			buckets.ToUnblock = append(buckets.ToUnblock, line)
		}
		if IsReusable(line, now) {
			buckets.Reusable = append(buckets.Reusable, line)
		}
	}
	return buckets
}

// ActivationKind classifies an activation as a fresh line going live or a
// previously blocked/terminated line coming back. Computed once here instead
// of being re-derived downstream from overlapping flags.
type ActivationKind string

const (
	ActivationKindNew          ActivationKind = "NEW_ACTIVATION"
	ActivationKindReactivation ActivationKind = "REACTIVATION"
)

func (k ActivationKind) String() string {
	return string(k)
}

// ClassifyActivation derives the activation kind from the line's history.
// A line that was ever active, was blocked for nonpayment, or carries a block
// reason is a reactivation; everything else is a first activation.
func ClassifyActivation(line *models.Line) ActivationKind {
	if line == nil {
		return ActivationKindNew
	}
	if line.ActivatedAt != nil {
		return ActivationKindReactivation
	}
	switch line.PhoneStatus {
	case models.PhoneStatusBlocked, models.PhoneStatusSuspended,
		models.PhoneStatusPaused, models.PhoneStatusTerminated,
		models.PhoneStatusReservedExistingLine:
		return ActivationKindReactivation
	}
	if line.PaymentStatus == models.PaymentStatusBlockedNonpayment {
		return ActivationKindReactivation
	}
	if line.BlockReason != nil && strings.TrimSpace(*line.BlockReason) != "" {
		return ActivationKindReactivation
	}
	return ActivationKindNew
}
