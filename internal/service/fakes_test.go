package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	periodStart = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	testNow     = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeSub(tenantID uuid.UUID, tier domain.SubscriptionTier) *domain.Subscription {
	start, end := periodStart, periodEnd
	return &domain.Subscription{
		TenantID:           tenantID,
		Tier:               tier,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
}

// =============================================================================
// Subscriptions
// =============================================================================

type mockSubscriptions struct {
	mock.Mock
}

func (m *mockSubscriptions) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

// =============================================================================
// Resource rows
// =============================================================================

// fakeRows stores creation times per tenant and resource type and counts
// them the way the SQL queries do.
type fakeRows struct {
	mu      sync.Mutex
	created map[uuid.UUID]map[domain.ResourceType][]time.Time
	fail    map[uuid.UUID]error
}

func newFakeRows() *fakeRows {
	return &fakeRows{
		created: make(map[uuid.UUID]map[domain.ResourceType][]time.Time),
		fail:    make(map[uuid.UUID]error),
	}
}

func (f *fakeRows) add(tenantID uuid.UUID, r domain.ResourceType, at time.Time, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created[tenantID] == nil {
		f.created[tenantID] = make(map[domain.ResourceType][]time.Time)
	}
	for i := 0; i < n; i++ {
		f.created[tenantID][r] = append(f.created[tenantID][r], at)
	}
}

func (f *fakeRows) counters() map[domain.ResourceType]domain.ResourceCounter {
	out := make(map[domain.ResourceType]domain.ResourceCounter, len(domain.ResourceTypes))
	for _, r := range domain.ResourceTypes {
		out[r] = domain.ResourceCounterFunc(func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if err := f.fail[tenantID]; err != nil {
				return 0, err
			}
			var n int64
			for _, at := range f.created[tenantID][r] {
				if !at.Before(since) {
					n++
				}
			}
			return n, nil
		})
	}
	return out
}

// =============================================================================
// Subscriptions as a map, for monitor tests
// =============================================================================

type subscriptionMap map[uuid.UUID]*domain.Subscription

func (s subscriptionMap) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error) {
	return s[tenantID], nil
}

// =============================================================================
// Tenants
// =============================================================================

type fakeTenants struct {
	ids     []uuid.UUID
	names   map[uuid.UUID]string
	listErr error
}

func (f *fakeTenants) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.ids, f.listErr
}

func (f *fakeTenants) GetTenantDisplayName(ctx context.Context, tenantID uuid.UUID) (string, error) {
	name, ok := f.names[tenantID]
	if !ok {
		return "", errors.New("tenant not found")
	}
	return name, nil
}

// =============================================================================
// Notification log
// =============================================================================

type memoryLog struct {
	mu   sync.Mutex
	seen map[domain.NotificationKey]domain.Evaluation
}

func newMemoryLog() *memoryLog {
	return &memoryLog{seen: make(map[domain.NotificationKey]domain.Evaluation)}
}

func (l *memoryLog) HasNotified(ctx context.Context, key domain.NotificationKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok, nil
}

func (l *memoryLog) Record(ctx context.Context, key domain.NotificationKey, eval domain.Evaluation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key] = eval
	return nil
}

func (l *memoryLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// =============================================================================
// Notifier
// =============================================================================

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
