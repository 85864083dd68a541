package notify

import (
	"strings"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const periodDateFormat = "Jan 2, 2006"

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// UsageAlert describes one resource of one tenant that crossed a band.
type UsageAlert struct {
	TenantID   uuid.UUID
	TenantName string
	Tier       domain.SubscriptionTier
	Resource   domain.ResourceType
	Evaluation domain.Evaluation
	Period     domain.Period
}

// Notification renders the alert for the operator.
func (a UsageAlert) Notification() domain.Notification {
	name := a.TenantName
	if name == "" {
		name = a.TenantID.String()
	}

	var title string
	switch a.Evaluation.Band {
	case domain.BandAtLimit:
		title = printer.Sprintf("%s has reached its %s limit", name, a.Resource.Label())
	default:
		title = printer.Sprintf("%s is approaching its %s limit", name, a.Resource.Label())
	}

	limit := "unlimited"
	if n, ok := a.Evaluation.Quota.Limit(); ok {
		limit = printer.Sprintf("%d", n)
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("Tenant: %s (%s)\n", name, a.TenantID))
	b.WriteString(printer.Sprintf("Plan: %s\n", titler.String(string(a.Tier))))
	b.WriteString(printer.Sprintf("Resource: %s\n", a.Resource.Label()))
	b.WriteString(printer.Sprintf("Usage: %d of %s (%.0f%%)\n", a.Evaluation.Used, limit, a.Evaluation.Percentage))
	b.WriteString(printer.Sprintf("Status: %s\n", bandLabel(a.Evaluation.Band)))
	b.WriteString(printer.Sprintf("Period: %s to %s\n",
		a.Period.Start.UTC().Format(periodDateFormat),
		a.Period.End.UTC().Format(periodDateFormat),
	))

	return domain.Notification{Title: title, Body: b.String()}
}

func bandLabel(b domain.Band) string {
	return titler.String(strings.ReplaceAll(string(b), "_", " "))
}
