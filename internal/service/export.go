package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/metrics"
	"github.com/DukeRupert/presskit/internal/storage"
)

var usageReportHeader = []string{
	"tenant_id",
	"tier",
	"period_start",
	"period_end",
	"resource",
	"used",
	"limit",
	"percentage",
	"band",
}

// UsageReportExporter writes the daily usage report to object storage.
type UsageReportExporter struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewUsageReportExporter creates a new UsageReportExporter.
func NewUsageReportExporter(store storage.Storage, logger *slog.Logger) *UsageReportExporter {
	return &UsageReportExporter{store: store, logger: logger}
}

// Export writes one row per tenant and resource to the report for day and
// returns the storage key. A report written earlier the same day is
// replaced.
func (e *UsageReportExporter) Export(ctx context.Context, summaries []*domain.UsageSummary, day time.Time) (string, error) {
	body, err := EncodeUsageReport(summaries)
	if err != nil {
		return "", err
	}

	key := storage.UsageReportKey(day)
	err = e.store.Put(ctx, key, bytes.NewReader(body), storage.PutOptions{
		ContentType: "text/csv; charset=utf-8",
		Overwrite:   true,
	})
	if err != nil {
		return "", fmt.Errorf("store usage report: %w", err)
	}

	metrics.UsageReportsExported.Inc()
	e.logger.Info("Usage report exported",
		"key", key,
		"tenants", len(summaries),
		"bytes", len(body),
	)

	return key, nil
}

// EncodeUsageReport renders summaries as CSV ordered by tenant id and
// then resource display order.
func EncodeUsageReport(summaries []*domain.UsageSummary) ([]byte, error) {
	sorted := make([]*domain.UsageSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TenantID.String() < sorted[j].TenantID.String()
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(usageReportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range sorted {
		for _, r := range domain.ResourceTypes {
			eval := s.Evaluation(r)
			row := []string{
				s.TenantID.String(),
				s.Tier.String(),
				s.PeriodStart.UTC().Format(time.RFC3339),
				s.PeriodEnd.UTC().Format(time.RFC3339),
				string(r),
				strconv.FormatInt(eval.Used, 10),
				eval.Quota.String(),
				strconv.FormatFloat(eval.Percentage, 'f', 2, 64),
				string(eval.Band),
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
