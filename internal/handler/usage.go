package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/service"
	"github.com/google/uuid"
)

// UsageHandler serves tenant usage and entitlement lookups.
type UsageHandler struct {
	usage  service.UsageService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage service.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		logger: logger,
	}
}

// RegisterRoutes registers the usage API routes behind mw.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("GET /api/plans", mw(http.HandlerFunc(h.Plans)))
	mux.Handle("GET /api/tenants/{tenantID}/usage", mw(http.HandlerFunc(h.Summary)))
	mux.Handle("GET /api/tenants/{tenantID}/entitlements/{resource}", mw(http.HandlerFunc(h.Entitlement)))
}

// untrackedResponse is returned for tenants without a usage-tracking plan.
type untrackedResponse struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Tracked  bool      `json:"tracked"`
}

// Summary returns the tenant's usage in the current period.
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	summary, err := h.usage.GetUsageSummary(r.Context(), tenantID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusOK, untrackedResponse{TenantID: tenantID, Tracked: false})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type entitlementResponse struct {
	Resource domain.ResourceType `json:"resource"`
	Allowed  bool                `json:"allowed"`
}

// Entitlement reports whether the tenant may create one more resource.
// A spent quota is answered with 402 and an upgrade message.
func (h *UsageHandler) Entitlement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	resource, err := domain.ParseResourceType(r.PathValue("resource"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.usage.CheckQuota(r.Context(), tenantID, resource); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, entitlementResponse{Resource: resource, Allowed: true})
}

type planResponse struct {
	Tier   domain.SubscriptionTier              `json:"tier"`
	Limits map[domain.ResourceType]domain.Quota `json:"limits"`
}

// Plans lists every tier with its per-period quotas.
func (h *UsageHandler) Plans(w http.ResponseWriter, r *http.Request) {
	plans := make([]planResponse, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		ents, _ := domain.EntitlementsFor(tier)
		limits := make(map[domain.ResourceType]domain.Quota, len(domain.ResourceTypes))
		for _, res := range domain.ResourceTypes {
			limits[res] = ents.Quota(res)
		}
		plans = append(plans, planResponse{Tier: tier, Limits: limits})
	}

	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (h *UsageHandler) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("usage.tenant_id", "Invalid tenant ID"))
		return uuid.Nil, false
	}
	return id, true
}
