package model

import (
	"fmt"
	"strings"
	"time"

	"content-subscription-platform/internal/domain"
)

type Tier string

const (
	TierNone     Tier = "none"
	TierBeginner Tier = "beginner"
	TierAdvanced Tier = "advanced"
	TierComplete Tier = "complete"
)

func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierNone, TierBeginner, TierAdvanced, TierComplete:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidArgument, s)
}

// tierGrants is a capability set, not a total order: complete covers the other
// paid tiers, but beginner and advanced each cover only themselves.
var tierGrants = map[Tier]map[Tier]bool{
	TierBeginner: {TierBeginner: true},
	TierAdvanced: {TierAdvanced: true},
	TierComplete: {TierBeginner: true, TierAdvanced: true, TierComplete: true},
}

// HasAccess reports whether the effective tier covers the required tier.
func HasAccess(effective, required Tier) bool {
	return tierGrants[effective][required]
}

// SubscriptionState is the user's current entitlement: a tier and the instant
// it stops being valid. Invariant: Tier == TierNone exactly when ExpiresAt is
// nil; the collapse is applied lazily on every read path.
type SubscriptionState struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// EffectiveTier evaluates the entitlement at the given instant. Absent or past
// expiry means TierNone regardless of the stored tier.
func EffectiveTier(s SubscriptionState, now time.Time) Tier {
	if s.ExpiresAt == nil || !s.ExpiresAt.After(now) {
		return TierNone
	}
	return s.Tier
}

// Collapse normalizes an expired state back to the none/nil form. It returns
// true when the state changed, in which case the caller is expected to persist
// the collapsed state (lazy write-back at read time).
func (s *SubscriptionState) Collapse(now time.Time) bool {
	if s.Tier == TierNone && s.ExpiresAt == nil {
		return false
	}
	if EffectiveTier(*s, now) != TierNone {
		return false
	}
	s.Tier = TierNone
	s.ExpiresAt = nil
	return true
}

// Extend applies a confirmed payment: the expiry is reset to now + the plan
// duration, not stacked onto any remaining time, and the tier is overwritten
// with the paid plan.
//
// TODO: confirm with product whether a lower-tier confirmation should really
// downgrade an active higher tier; the overwrite is currently unconditional.
func (s *SubscriptionState) Extend(plan Tier, now time.Time, duration time.Duration) {
	exp := now.Add(duration)
	s.Tier = plan
	s.ExpiresAt = &exp
}

// Plan describes a purchasable tier with its fixed price and duration.
type Plan struct {
	Tier     Tier
	Name     string
	PriceUSD float64
	Duration time.Duration
}

// PlanCatalog is the fixed set of purchasable plans, keyed by tier.
type PlanCatalog map[Tier]Plan

func (c PlanCatalog) Find(t Tier) (Plan, error) {
	p, ok := c[t]
	if !ok {
		return Plan{}, fmt.Errorf("%w: no plan for tier %q", domain.ErrNotFound, t)
	}
	return p, nil
}
