package service

import (
	"time"

	"github.com/DukeRupert/presskit/internal/domain"
)

// ResolvePeriod returns the usage window of a subscription.
//
// The start is the billing period start, or now when billing has not
// written one yet. The end is the billing period end, or one calendar
// month after the start.
func ResolvePeriod(sub domain.Subscription, now time.Time) domain.Period {
	start := now
	if sub.CurrentPeriodStart != nil {
		start = *sub.CurrentPeriodStart
	}

	end := start.AddDate(0, 1, 0)
	if sub.CurrentPeriodEnd != nil {
		end = *sub.CurrentPeriodEnd
	}

	return domain.Period{Start: start, End: end}
}
