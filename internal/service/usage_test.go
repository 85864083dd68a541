package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestUsageService(t *testing.T, subs SubscriptionReader, rows *fakeRows) UsageService {
	t.Helper()
	svc, err := NewUsageService(subs, rows.counters(), clock.NewFakeClock(testNow), testLogger())
	require.NoError(t, err)
	return svc
}

// =============================================================================
// Period resolution
// =============================================================================

func TestResolvePeriod(t *testing.T) {
	start := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sub  domain.Subscription
		want domain.Period
	}{
		{
			name: "both bounds from billing",
			sub:  domain.Subscription{CurrentPeriodStart: &start, CurrentPeriodEnd: &end},
			want: domain.Period{Start: start, End: end},
		},
		{
			name: "missing start falls back to now",
			sub:  domain.Subscription{},
			want: domain.Period{Start: testNow, End: testNow.AddDate(0, 1, 0)},
		},
		{
			name: "missing end is one month after start",
			sub:  domain.Subscription{CurrentPeriodStart: &start},
			want: domain.Period{Start: start, End: time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePeriod(tt.sub, testNow)
			assert.True(t, tt.want.Start.Equal(got.Start), "start: got %s want %s", got.Start, tt.want.Start)
			assert.True(t, tt.want.End.Equal(got.End), "end: got %s want %s", got.End, tt.want.End)
		})
	}
}

// =============================================================================
// Construction
// =============================================================================

func TestNewUsageService_RequiresEveryCounter(t *testing.T) {
	counters := newFakeRows().counters()
	delete(counters, domain.ResourceAIImage)

	_, err := NewUsageService(&mockSubscriptions{}, counters, clock.New(), testLogger())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ai_image")
}

// =============================================================================
// Snapshot
// =============================================================================

func TestSnapshot_CountsOnlyInsidePeriod(t *testing.T) {
	tenant := uuid.New()
	rows := newFakeRows()
	rows.add(tenant, domain.ResourcePressRelease, periodStart.Add(-time.Second), 3)
	rows.add(tenant, domain.ResourcePressRelease, periodStart, 1)
	rows.add(tenant, domain.ResourcePressRelease, periodStart.Add(48*time.Hour), 1)
	rows.add(uuid.New(), domain.ResourcePressRelease, periodStart.Add(time.Hour), 5)

	svc := newTestUsageService(t, &mockSubscriptions{}, rows)

	snap, err := svc.Snapshot(context.Background(), tenant, domain.Period{Start: periodStart, End: periodEnd})
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.Count(domain.ResourcePressRelease))
	for _, r := range domain.ResourceTypes[1:] {
		assert.Equal(t, int64(0), snap.Count(r), r)
	}
}

func TestSnapshot_IsIdempotent(t *testing.T) {
	tenant := uuid.New()
	rows := newFakeRows()
	rows.add(tenant, domain.ResourceSocialPost, periodStart.Add(time.Hour), 7)
	svc := newTestUsageService(t, &mockSubscriptions{}, rows)
	period := domain.Period{Start: periodStart, End: periodEnd}

	first, err := svc.Snapshot(context.Background(), tenant, period)
	require.NoError(t, err)
	second, err := svc.Snapshot(context.Background(), tenant, period)
	require.NoError(t, err)

	assert.Equal(t, first.Counts, second.Counts)
}

func TestSnapshot_CounterErrorFailsWholeSnapshot(t *testing.T) {
	tenant := uuid.New()
	rows := newFakeRows()
	rows.fail[tenant] = errors.New("connection reset")
	svc := newTestUsageService(t, &mockSubscriptions{}, rows)

	snap, err := svc.Snapshot(context.Background(), tenant, domain.Period{Start: periodStart, End: periodEnd})
	assert.Nil(t, snap)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Contains(t, err.Error(), "press releases")
}

// =============================================================================
// Summary
// =============================================================================

func TestGetUsageSummary_StarterHalfway(t *testing.T) {
	tenant := uuid.New()
	subs := &mockSubscriptions{}
	subs.On("GetSubscription", mock.Anything, tenant).Return(activeSub(tenant, domain.SubscriptionTierStarter), nil)

	rows := newFakeRows()
	rows.add(tenant, domain.ResourcePressRelease, periodStart.Add(time.Hour), 1)

	summary, err := newTestUsageService(t, subs, rows).GetUsageSummary(context.Background(), tenant)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, domain.SubscriptionTierStarter, summary.Tier)
	assert.True(t, periodStart.Equal(summary.PeriodStart))
	assert.True(t, periodEnd.Equal(summary.PeriodEnd))
	assert.Equal(t, int64(1), summary.Usage[domain.ResourcePressRelease])
	assert.Equal(t, 50.0, summary.Percentages[domain.ResourcePressRelease])
	assert.Equal(t, domain.BandNormal, summary.Bands[domain.ResourcePressRelease])
	assert.Len(t, summary.Limits, len(domain.ResourceTypes))
	subs.AssertExpectations(t)
}

func TestGetUsageSummary_Untracked(t *testing.T) {
	tests := []struct {
		name string
		sub  *domain.Subscription
	}{
		{"no subscription", nil},
		{"canceled", &domain.Subscription{Tier: domain.SubscriptionTierPro, Status: domain.SubscriptionStatusCanceled}},
		{"inactive", &domain.Subscription{Tier: domain.SubscriptionTierPro, Status: domain.SubscriptionStatusInactive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant := uuid.New()
			subs := &mockSubscriptions{}
			subs.On("GetSubscription", mock.Anything, tenant).Return(tt.sub, nil)

			summary, err := newTestUsageService(t, subs, newFakeRows()).GetUsageSummary(context.Background(), tenant)
			assert.NoError(t, err)
			assert.Nil(t, summary)
		})
	}
}

func TestGetUsageSummary_FailureIsUnavailable(t *testing.T) {
	tenant := uuid.New()

	t.Run("subscription lookup", func(t *testing.T) {
		subs := &mockSubscriptions{}
		subs.On("GetSubscription", mock.Anything, tenant).Return(nil, errors.New("db down"))

		summary, err := newTestUsageService(t, subs, newFakeRows()).GetUsageSummary(context.Background(), tenant)
		assert.Nil(t, summary)
		assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
		assert.Equal(t, MsgUsageUnavailable, domain.ErrorMessage(err))
	})

	t.Run("count", func(t *testing.T) {
		subs := &mockSubscriptions{}
		subs.On("GetSubscription", mock.Anything, tenant).Return(activeSub(tenant, domain.SubscriptionTierPro), nil)
		rows := newFakeRows()
		rows.fail[tenant] = errors.New("timeout")

		_, err := newTestUsageService(t, subs, rows).GetUsageSummary(context.Background(), tenant)
		assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
		assert.Equal(t, MsgUsageUnavailable, domain.ErrorMessage(err))
	})
}

func TestGetUsageSummary_RenewalStartsFromZero(t *testing.T) {
	tenant := uuid.New()
	rows := newFakeRows()
	// Last period: at the limit.
	rows.add(tenant, domain.ResourcePressRelease, periodStart.AddDate(0, -1, 3), 2)

	subs := &mockSubscriptions{}
	subs.On("GetSubscription", mock.Anything, tenant).Return(activeSub(tenant, domain.SubscriptionTierStarter), nil)

	summary, err := newTestUsageService(t, subs, rows).GetUsageSummary(context.Background(), tenant)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Usage[domain.ResourcePressRelease])
	assert.Equal(t, domain.BandNormal, summary.Bands[domain.ResourcePressRelease])
}

// =============================================================================
// Quota enforcement
// =============================================================================

func TestCheckQuota(t *testing.T) {
	tenant := uuid.New()

	tests := []struct {
		name     string
		tier     domain.SubscriptionTier
		resource domain.ResourceType
		existing int
		wantCode string
	}{
		{"starter first press release", domain.SubscriptionTierStarter, domain.ResourcePressRelease, 0, ""},
		{"starter second press release", domain.SubscriptionTierStarter, domain.ResourcePressRelease, 1, ""},
		{"starter third press release", domain.SubscriptionTierStarter, domain.ResourcePressRelease, 2, domain.EPAYMENT},
		{"scale campaigns unlimited", domain.SubscriptionTierScale, domain.ResourceCampaign, 1000, ""},
		{"scale ai images limited", domain.SubscriptionTierScale, domain.ResourceAIImage, 100, domain.EPAYMENT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &mockSubscriptions{}
			subs.On("GetSubscription", mock.Anything, tenant).Return(activeSub(tenant, tt.tier), nil)
			rows := newFakeRows()
			rows.add(tenant, tt.resource, periodStart.Add(time.Hour), tt.existing)

			err := newTestUsageService(t, subs, rows).CheckQuota(context.Background(), tenant, tt.resource)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			assert.True(t, domain.IsQuotaExceeded(err))
		})
	}
}

func TestCheckQuota_NoSubscription(t *testing.T) {
	tenant := uuid.New()
	subs := &mockSubscriptions{}
	subs.On("GetSubscription", mock.Anything, tenant).Return(nil, nil)

	err := newTestUsageService(t, subs, newFakeRows()).CheckQuota(context.Background(), tenant, domain.ResourceCampaign)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.False(t, domain.IsQuotaExceeded(err))
}

func TestCheckQuota_InvalidResource(t *testing.T) {
	err := newTestUsageService(t, &mockSubscriptions{}, newFakeRows()).
		CheckQuota(context.Background(), uuid.New(), domain.ResourceType("newsletter"))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
