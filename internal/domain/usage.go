package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResourceCounter counts one resource type owned by a tenant and created
// at or after since.
type ResourceCounter interface {
	CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}

// ResourceCounterFunc adapts a function to ResourceCounter.
type ResourceCounterFunc func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)

// CountSince calls f.
func (f ResourceCounterFunc) CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	return f(ctx, tenantID, since)
}

// UsageSnapshot holds resource counts for one tenant inside one period.
// Snapshots are recomputed on every evaluation and never cached.
type UsageSnapshot struct {
	TenantID uuid.UUID
	Period   Period
	Counts   map[ResourceType]int64
}

// Count returns the count for a resource type, 0 when absent.
func (s *UsageSnapshot) Count(r ResourceType) int64 {
	if s == nil {
		return 0
	}
	return s.Counts[r]
}

// UsageSummary is the read-only view rendered on the usage dashboard.
type UsageSummary struct {
	TenantID           uuid.UUID                `json:"tenant_id"`
	Tier               SubscriptionTier         `json:"tier"`
	PeriodStart        time.Time                `json:"period_start"`
	PeriodEnd          time.Time                `json:"period_end"`
	Usage              map[ResourceType]int64   `json:"usage"`
	Limits             map[ResourceType]Quota   `json:"limits"`
	Percentages        map[ResourceType]float64 `json:"percentages"`
	DisplayPercentages map[ResourceType]float64 `json:"display_percentages"`
	Bands              map[ResourceType]Band    `json:"bands"`
}

// NewUsageSummary evaluates every resource in the snapshot against the
// tier's entitlements.
func NewUsageSummary(tier SubscriptionTier, ents Entitlements, snap *UsageSnapshot) *UsageSummary {
	s := &UsageSummary{
		TenantID:           snap.TenantID,
		Tier:               tier,
		PeriodStart:        snap.Period.Start,
		PeriodEnd:          snap.Period.End,
		Usage:              make(map[ResourceType]int64, len(ResourceTypes)),
		Limits:             make(map[ResourceType]Quota, len(ResourceTypes)),
		Percentages:        make(map[ResourceType]float64, len(ResourceTypes)),
		DisplayPercentages: make(map[ResourceType]float64, len(ResourceTypes)),
		Bands:              make(map[ResourceType]Band, len(ResourceTypes)),
	}
	for _, r := range ResourceTypes {
		eval := Evaluate(snap.Count(r), ents.Quota(r))
		s.Usage[r] = eval.Used
		s.Limits[r] = eval.Quota
		s.Percentages[r] = eval.Percentage
		s.DisplayPercentages[r] = eval.DisplayPercentage()
		s.Bands[r] = eval.Band
	}
	return s
}

// Evaluation rebuilds the evaluation of a single resource.
func (s *UsageSummary) Evaluation(r ResourceType) Evaluation {
	return Evaluation{
		Used:       s.Usage[r],
		Quota:      s.Limits[r],
		Percentage: s.Percentages[r],
		Band:       s.Bands[r],
	}
}

// Notification is an operator-facing message.
type Notification struct {
	Title string
	Body  string
}

// NotificationKey identifies one threshold crossing. At most one operator
// notification is sent per key.
type NotificationKey struct {
	TenantID    uuid.UUID
	Resource    ResourceType
	PeriodStart time.Time
	Band        Band
}
