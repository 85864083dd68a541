// Package domain contains core business types and interfaces.
//
// This file defines the Tenant and Subscription types read by the usage
// tracking pipeline. Both are owned by other parts of the platform (signup
// and the billing webhook); nothing here mutates them.
package domain

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a tenant's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// TracksUsage reports whether usage is counted for subscriptions in this state.
// Past-due tenants keep their plan until billing gives up on them.
func (s SubscriptionStatus) TracksUsage() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// SubscriptionTier represents the pricing tier of a subscription.
type SubscriptionTier string

const (
	SubscriptionTierStarter SubscriptionTier = "starter"
	SubscriptionTierPro     SubscriptionTier = "pro"
	SubscriptionTierScale   SubscriptionTier = "scale"
)

// Tiers lists every subscription tier, cheapest first.
var Tiers = []SubscriptionTier{
	SubscriptionTierStarter,
	SubscriptionTierPro,
	SubscriptionTierScale,
}

// IsValid returns true if the tier is one of the known plans.
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case SubscriptionTierStarter, SubscriptionTierPro, SubscriptionTierScale:
		return true
	}
	return false
}

// String returns the tier name as stored in the database.
func (t SubscriptionTier) String() string {
	return string(t)
}

// ParseSubscriptionTier converts a stored plan name into a tier.
func ParseSubscriptionTier(s string) (SubscriptionTier, error) {
	tier := SubscriptionTier(strings.ToLower(strings.TrimSpace(s)))
	if !tier.IsValid() {
		return "", Invalid("tier.parse", "unknown subscription tier: "+s)
	}
	return tier, nil
}

// Tenant is a billed account on the platform. Every tracked resource
// belongs to exactly one tenant.
type Tenant struct {
	ID          uuid.UUID
	Email       string
	Name        string
	CompanyName string
	CreatedAt   time.Time
}

// DisplayName returns the tenant's company, then name, then email.
func (t *Tenant) DisplayName() string {
	if t.CompanyName != "" {
		return t.CompanyName
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Email
}

// Subscription anchors a tenant's usage period.
//
// The period boundaries are written by the billing webhook on renewal,
// upgrade and downgrade. Either may be nil for a subscription that was
// created before the first invoice settled.
type Subscription struct {
	TenantID           uuid.UUID
	Tier               SubscriptionTier
	Status             SubscriptionStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// Period is a half-open usage window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}
