// Package policy computes cancellation eligibility and the advisory
// reputation penalty for a pickup. It is a pure function of the pickup record
// and the supplied clock; applying the penalty to a party's reputation is the
// caller's responsibility.
package policy

import (
	"fmt"
	"time"

	"greenloop/pkg/types"
)

// MinCancelHours is the commitment window: once a pickup is confirmed,
// cancellation is blocked inside this many hours of the scheduled time.
const MinCancelHours = 5.0

type Decision struct {
	Eligible   bool
	Reason     string
	HoursUntil float64
}

// Evaluate applies the cancellation rules in order: terminal states first,
// then past pickups, then the unconditional Proposed allowance, then the
// commitment window for confirmed-and-later states.
func Evaluate(pickup *types.Pickup, now time.Time) (Decision, error) {
	switch pickup.Status {
	case types.PickupStatusCompleted:
		return Decision{Eligible: false, Reason: "completed pickups cannot be cancelled"}, nil
	case types.PickupStatusCancelled:
		return Decision{Eligible: false, Reason: "already cancelled"}, nil
	}

	scheduledAt, err := pickup.ScheduledAt()
	if err != nil {
		return Decision{}, err
	}

	hoursUntil := scheduledAt.Sub(now).Hours()
	if hoursUntil < 0 {
		return Decision{Eligible: false, Reason: "past pickup", HoursUntil: hoursUntil}, nil
	}

	if pickup.Status == types.PickupStatusProposed {
		return Decision{Eligible: true, HoursUntil: hoursUntil}, nil
	}

	if hoursUntil < MinCancelHours {
		return Decision{
			Eligible:   false,
			Reason:     fmt.Sprintf("Cannot cancel within %.0f hours of pickup. %.1f hours remaining", MinCancelHours, hoursUntil),
			HoursUntil: hoursUntil,
		}, nil
	}

	return Decision{Eligible: true, HoursUntil: hoursUntil}, nil
}

// Penalty returns the advisory reputation deduction for cancelling a pickup
// in the given status with hoursUntil hours left before the scheduled time.
func Penalty(status types.PickupStatus, hoursUntil float64) int {
	if status == types.PickupStatusProposed {
		return 0
	}

	switch {
	case hoursUntil >= 24:
		return 0
	case hoursUntil >= 12:
		return 5
	case hoursUntil >= MinCancelHours:
		return 10
	default:
		// Unreachable when callers respect Evaluate; kept as a floor.
		return 20
	}
}
