// Package service contains the business logic layer.
//
// This file implements the usage service: counting a tenant's resources
// inside the current billing period, summarizing them against the tier's
// entitlements, and enforcing quotas before a resource is created.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/metrics"
	"github.com/google/uuid"
)

// SubscriptionReader loads a tenant's subscription. It returns nil and no
// error when the tenant has never subscribed.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// UsageService defines operations for reading and enforcing usage.
type UsageService interface {
	// Snapshot counts every tracked resource created inside period.
	Snapshot(ctx context.Context, tenantID uuid.UUID, period domain.Period) (*domain.UsageSnapshot, error)

	// Summarize evaluates the tenant's current period. It returns nil when
	// the tenant has no subscription that tracks usage. Errors are returned
	// unmasked for the background pipeline to log.
	Summarize(ctx context.Context, tenantID uuid.UUID) (*domain.UsageSummary, error)

	// GetUsageSummary is Summarize for user-facing callers: any failure is
	// reported as EUNAVAILABLE with a generic message.
	GetUsageSummary(ctx context.Context, tenantID uuid.UUID) (*domain.UsageSummary, error)

	// CheckQuota returns nil if the tenant may create one more resource of
	// the given type, or a QuotaExceeded error if not.
	CheckQuota(ctx context.Context, tenantID uuid.UUID, resource domain.ResourceType) error
}

// MsgUsageUnavailable is shown when usage data cannot be loaded.
const MsgUsageUnavailable = "Unable to load usage data"

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	subscriptions SubscriptionReader
	counters      map[domain.ResourceType]domain.ResourceCounter
	clock         clock.Clock
	logger        *slog.Logger
}

// NewUsageService creates a new UsageService. counters must hold a
// counter for every tracked resource type.
func NewUsageService(
	subscriptions SubscriptionReader,
	counters map[domain.ResourceType]domain.ResourceCounter,
	clk clock.Clock,
	logger *slog.Logger,
) (UsageService, error) {
	for _, r := range domain.ResourceTypes {
		if counters[r] == nil {
			return nil, fmt.Errorf("usage service: no counter for resource type %q", r)
		}
	}

	return &usageService{
		subscriptions: subscriptions,
		counters:      counters,
		clock:         clk,
		logger:        logger,
	}, nil
}

// Snapshot counts every tracked resource created inside period. A failed
// count fails the whole snapshot.
func (s *usageService) Snapshot(ctx context.Context, tenantID uuid.UUID, period domain.Period) (*domain.UsageSnapshot, error) {
	const op = "usage.snapshot"

	snap := &domain.UsageSnapshot{
		TenantID: tenantID,
		Period:   period,
		Counts:   make(map[domain.ResourceType]int64, len(domain.ResourceTypes)),
	}

	for _, r := range domain.ResourceTypes {
		n, err := s.counters[r].CountSince(ctx, tenantID, period.Start)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to count "+r.Label())
		}
		snap.Counts[r] = n
	}

	return snap, nil
}

// Summarize evaluates the tenant's current period.
func (s *usageService) Summarize(ctx context.Context, tenantID uuid.UUID) (*domain.UsageSummary, error) {
	const op = "usage.summarize"

	sub, err := s.trackedSubscription(ctx, op, tenantID)
	if err != nil || sub == nil {
		return nil, err
	}

	ents, ok := domain.EntitlementsFor(sub.Tier)
	if !ok {
		return nil, domain.Errorf(domain.EINTERNAL, op, "no entitlements for tier %q", sub.Tier)
	}

	period := ResolvePeriod(*sub, s.clock.Now())
	snap, err := s.Snapshot(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}

	return domain.NewUsageSummary(sub.Tier, ents, snap), nil
}

// GetUsageSummary returns the dashboard view of the tenant's usage.
func (s *usageService) GetUsageSummary(ctx context.Context, tenantID uuid.UUID) (*domain.UsageSummary, error) {
	const op = "usage.get_summary"

	summary, err := s.Summarize(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to load usage summary",
			"tenant_id", tenantID,
			"error", err,
		)
		return nil, domain.Unavailable(err, op, MsgUsageUnavailable)
	}

	return summary, nil
}

// CheckQuota checks if the tenant has quota remaining for resource.
func (s *usageService) CheckQuota(ctx context.Context, tenantID uuid.UUID, resource domain.ResourceType) error {
	const op = "usage.check_quota"

	if !resource.IsValid() {
		return domain.Invalid(op, "unknown resource type: "+string(resource))
	}

	sub, err := s.trackedSubscription(ctx, op, tenantID)
	if err != nil {
		return err
	}
	if sub == nil {
		metrics.QuotaChecked(string(resource), false)
		return domain.PaymentRequired(op, "An active subscription is required")
	}

	ents, ok := domain.EntitlementsFor(sub.Tier)
	if !ok {
		return domain.Errorf(domain.EINTERNAL, op, "no entitlements for tier %q", sub.Tier)
	}

	// Unlimited tier - always allow
	limit, limited := ents.Quota(resource).Limit()
	if !limited {
		metrics.QuotaChecked(string(resource), true)
		return nil
	}

	period := ResolvePeriod(*sub, s.clock.Now())
	count, err := s.counters[resource].CountSince(ctx, tenantID, period.Start)
	if err != nil {
		return domain.Internal(err, op, "failed to count "+resource.Label())
	}

	if count >= limit {
		s.logger.Info("Quota exceeded",
			"tenant_id", tenantID,
			"tier", sub.Tier,
			"resource", resource,
			"used", count,
			"limit", limit,
		)
		metrics.QuotaChecked(string(resource), false)
		return domain.QuotaExceeded(op, resource, count, limit)
	}

	metrics.QuotaChecked(string(resource), true)
	return nil
}

// trackedSubscription returns the tenant's subscription when its status
// tracks usage, and nil otherwise.
func (s *usageService) trackedSubscription(ctx context.Context, op string, tenantID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load subscription")
	}
	if sub == nil || !sub.Status.TracksUsage() {
		return nil, nil
	}
	return sub, nil
}
