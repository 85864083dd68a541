// Package domain contains core business types and interfaces.
//
// This file defines the entitlement table: which resources a tier may create
// per usage period, and how usage is classified against those limits.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResourceType identifies a kind of tenant-owned resource that counts
// against a quota.
type ResourceType string

const (
	ResourcePressRelease ResourceType = "press_release"
	ResourceCampaign     ResourceType = "campaign"
	ResourceSocialPost   ResourceType = "social_post"
	ResourceAIMessage    ResourceType = "ai_message"
	ResourceAIImage      ResourceType = "ai_image"
)

// ResourceTypes lists every tracked resource type in display order.
var ResourceTypes = []ResourceType{
	ResourcePressRelease,
	ResourceCampaign,
	ResourceSocialPost,
	ResourceAIMessage,
	ResourceAIImage,
}

// IsValid returns true for known resource types.
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourcePressRelease, ResourceCampaign, ResourceSocialPost, ResourceAIMessage, ResourceAIImage:
		return true
	}
	return false
}

// Label returns the plural, human-readable name of the resource.
func (r ResourceType) Label() string {
	switch r {
	case ResourcePressRelease:
		return "press releases"
	case ResourceCampaign:
		return "campaigns"
	case ResourceSocialPost:
		return "social posts"
	case ResourceAIMessage:
		return "AI chat messages"
	case ResourceAIImage:
		return "AI image generations"
	}
	return strings.ReplaceAll(string(r), "_", " ")
}

// ParseResourceType converts a path or query value into a resource type.
func ParseResourceType(s string) (ResourceType, error) {
	r := ResourceType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !r.IsValid() {
		return "", Invalid("resource.parse", "unknown resource type: "+s)
	}
	return r, nil
}

// =============================================================================
// Quota
// =============================================================================

type quotaKind uint8

const (
	quotaUnset quotaKind = iota
	quotaLimited
	quotaUnlimited
)

// Quota is either a finite limit or unlimited. The number behind a limited
// quota is only reachable through Limit, so unlimited quotas can never take
// part in arithmetic. The zero value is unset and never appears in the table.
type Quota struct {
	kind  quotaKind
	limit int64
}

// Limited returns a finite quota of n resources per period.
func Limited(n int64) Quota {
	if n < 0 {
		n = 0
	}
	return Quota{kind: quotaLimited, limit: n}
}

// Unlimited returns a quota that can never be reached.
func Unlimited() Quota {
	return Quota{kind: quotaUnlimited}
}

// IsUnlimited reports whether the quota has no ceiling.
func (q Quota) IsUnlimited() bool {
	return q.kind == quotaUnlimited
}

// IsSet reports whether the quota was built with Limited or Unlimited.
func (q Quota) IsSet() bool {
	return q.kind != quotaUnset
}

// Limit returns the finite limit and true, or 0 and false when unlimited.
func (q Quota) Limit() (int64, bool) {
	if q.kind != quotaLimited {
		return 0, false
	}
	return q.limit, true
}

func (q Quota) String() string {
	switch q.kind {
	case quotaLimited:
		return fmt.Sprintf("%d", q.limit)
	case quotaUnlimited:
		return "unlimited"
	}
	return "unset"
}

// MarshalJSON encodes a limited quota as a number and an unlimited one as
// the string "unlimited".
func (q Quota) MarshalJSON() ([]byte, error) {
	if n, ok := q.Limit(); ok {
		return json.Marshal(n)
	}
	if q.IsUnlimited() {
		return json.Marshal("unlimited")
	}
	return nil, fmt.Errorf("quota: cannot marshal unset quota")
}

// =============================================================================
// Entitlement table
// =============================================================================

// Entitlements holds one quota per resource type. Adding a resource type
// means adding a field here and a case in Quota.
type Entitlements struct {
	PressReleases Quota
	Campaigns     Quota
	SocialPosts   Quota
	AIMessages    Quota
	AIImages      Quota
}

// Quota returns the quota for a resource type. Unknown resource types get
// an unset quota.
func (e Entitlements) Quota(r ResourceType) Quota {
	switch r {
	case ResourcePressRelease:
		return e.PressReleases
	case ResourceCampaign:
		return e.Campaigns
	case ResourceSocialPost:
		return e.SocialPosts
	case ResourceAIMessage:
		return e.AIMessages
	case ResourceAIImage:
		return e.AIImages
	}
	return Quota{}
}

// EntitlementsFor returns the per-period quotas of a tier. The second
// result is false for tiers outside the closed set.
func EntitlementsFor(tier SubscriptionTier) (Entitlements, bool) {
	switch tier {
	case SubscriptionTierStarter:
		return Entitlements{
			PressReleases: Limited(2),
			Campaigns:     Limited(1),
			SocialPosts:   Limited(30),
			AIMessages:    Limited(50),
			AIImages:      Limited(5),
		}, true
	case SubscriptionTierPro:
		return Entitlements{
			PressReleases: Limited(10),
			Campaigns:     Limited(5),
			SocialPosts:   Limited(150),
			AIMessages:    Limited(500),
			AIImages:      Limited(10),
		}, true
	case SubscriptionTierScale:
		return Entitlements{
			PressReleases: Unlimited(),
			Campaigns:     Unlimited(),
			SocialPosts:   Unlimited(),
			AIMessages:    Limited(5000),
			AIImages:      Limited(100),
		}, true
	}
	return Entitlements{}, false
}

// =============================================================================
// Threshold evaluation
// =============================================================================

// Band classifies usage against a quota.
type Band string

const (
	BandNormal      Band = "normal"
	BandApproaching Band = "approaching"
	BandAtLimit     Band = "at_limit"
)

// Fixed band cutoffs, in percent of quota.
const (
	ApproachingPercent = 80
	AtLimitPercent     = 100
)

// Alerting reports whether the band warrants an operator notification.
func (b Band) Alerting() bool {
	return b == BandApproaching || b == BandAtLimit
}

// Evaluation is the result of comparing one resource count to its quota.
type Evaluation struct {
	Used       int64
	Quota      Quota
	Percentage float64 // uncapped; 150 means half again over quota
	Band       Band
}

// DisplayPercentage clamps the percentage to 100 for progress bars.
func (e Evaluation) DisplayPercentage() float64 {
	if e.Percentage > AtLimitPercent {
		return AtLimitPercent
	}
	return e.Percentage
}

// Evaluate classifies used against q.
//
// Band boundaries are computed with integers so that 8 of 10 is exactly
// "approaching". A zero quota with zero usage is normal; any usage against
// a zero quota is at the limit and reported as 100%.
func Evaluate(used int64, q Quota) Evaluation {
	eval := Evaluation{Used: used, Quota: q, Band: BandNormal}

	limit, ok := q.Limit()
	if !ok {
		return eval
	}

	if limit == 0 {
		if used > 0 {
			eval.Percentage = AtLimitPercent
			eval.Band = BandAtLimit
		}
		return eval
	}

	eval.Percentage = float64(used) * 100 / float64(limit)

	switch {
	case used*100 >= limit*AtLimitPercent:
		eval.Band = BandAtLimit
	case used*100 >= limit*ApproachingPercent:
		eval.Band = BandApproaching
	}

	return eval
}
