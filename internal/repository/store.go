package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Store adapts the generated queries to the domain types the usage
// pipeline consumes.
type Store struct {
	queries *Queries
}

// NewStore creates a Store backed by db.
func NewStore(db DBTX) *Store {
	return &Store{queries: New(db)}
}

// ListTenantIDs returns every tenant whose subscription currently tracks usage.
func (s *Store) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.queries.ListTrackedUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}
	return ids, nil
}

// GetTenantDisplayName returns a human-readable name for the tenant.
func (s *Store) GetTenantDisplayName(ctx context.Context, tenantID uuid.UUID) (string, error) {
	u, err := s.queries.GetUserByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NotFound("tenant.display_name", "tenant", tenantID.String())
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	t := domain.Tenant{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		CompanyName: domain.NullStringValue(u.CompanyName),
		CreatedAt:   u.CreatedAt,
	}
	return t.DisplayName(), nil
}

// GetSubscription returns the tenant's subscription, or nil when the
// tenant has never subscribed.
func (s *Store) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error) {
	row, err := s.queries.GetSubscriptionByUserID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	tier, err := domain.ParseSubscriptionTier(row.Tier)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", row.ID, err)
	}

	return &domain.Subscription{
		TenantID:           row.UserID,
		Tier:               tier,
		Status:             domain.SubscriptionStatus(row.Status),
		CurrentPeriodStart: domain.NullTimeValue(row.CurrentPeriodStart),
		CurrentPeriodEnd:   domain.NullTimeValue(row.CurrentPeriodEnd),
	}, nil
}

// ResourceCounters returns one counter per tracked resource type.
func (s *Store) ResourceCounters() map[domain.ResourceType]domain.ResourceCounter {
	q := s.queries
	return map[domain.ResourceType]domain.ResourceCounter{
		domain.ResourcePressRelease: domain.ResourceCounterFunc(func(ctx context.Context, id uuid.UUID, since time.Time) (int64, error) {
			return q.CountPressReleasesSince(ctx, CountPressReleasesSinceParams{UserID: id, CreatedAt: since})
		}),
		domain.ResourceCampaign: domain.ResourceCounterFunc(func(ctx context.Context, id uuid.UUID, since time.Time) (int64, error) {
			return q.CountCampaignsSince(ctx, CountCampaignsSinceParams{UserID: id, CreatedAt: since})
		}),
		domain.ResourceSocialPost: domain.ResourceCounterFunc(func(ctx context.Context, id uuid.UUID, since time.Time) (int64, error) {
			return q.CountSocialPostsSince(ctx, CountSocialPostsSinceParams{UserID: id, CreatedAt: since})
		}),
		domain.ResourceAIMessage: domain.ResourceCounterFunc(func(ctx context.Context, id uuid.UUID, since time.Time) (int64, error) {
			return q.CountAIChatMessagesSince(ctx, CountAIChatMessagesSinceParams{UserID: id, CreatedAt: since})
		}),
		domain.ResourceAIImage: domain.ResourceCounterFunc(func(ctx context.Context, id uuid.UUID, since time.Time) (int64, error) {
			return q.CountAIImageGenerationsSince(ctx, CountAIImageGenerationsSinceParams{UserID: id, CreatedAt: since})
		}),
	}
}

// HasNotified reports whether the operator was already told about key.
func (s *Store) HasNotified(ctx context.Context, key domain.NotificationKey) (bool, error) {
	exists, err := s.queries.UsageNotificationExists(ctx, UsageNotificationExistsParams{
		UserID:       key.TenantID,
		ResourceType: string(key.Resource),
		PeriodStart:  key.PeriodStart,
		Band:         string(key.Band),
	})
	if err != nil {
		return false, fmt.Errorf("check usage notification: %w", err)
	}
	return exists, nil
}

type notificationDetails struct {
	Used       int64        `json:"used"`
	Limit      domain.Quota `json:"limit"`
	Percentage float64      `json:"percentage"`
}

// Record stores that the operator was notified about key. Recording the
// same key twice is not an error.
func (s *Store) Record(ctx context.Context, key domain.NotificationKey, eval domain.Evaluation) error {
	details, err := json.Marshal(notificationDetails{
		Used:       eval.Used,
		Limit:      eval.Quota,
		Percentage: eval.Percentage,
	})
	if err != nil {
		return fmt.Errorf("marshal notification details: %w", err)
	}

	_, err = s.queries.CreateUsageNotification(ctx, CreateUsageNotificationParams{
		UserID:       key.TenantID,
		ResourceType: string(key.Resource),
		PeriodStart:  key.PeriodStart,
		Band:         string(key.Band),
		Details:      pqtype.NullRawMessage{RawMessage: details, Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil
		}
		return fmt.Errorf("record usage notification: %w", err)
	}
	return nil
}
