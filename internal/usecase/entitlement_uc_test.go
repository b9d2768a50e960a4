package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
)

func TestEntitlement_EffectiveTier(t *testing.T) {
	ctx := context.Background()

	t.Run("expired subscription collapses to none and is written back", func(t *testing.T) {
		deps := newReconcileDeps()
		u := seedUser(t, deps, "user-1")
		past := time.Now().Add(-time.Second)
		u.Subscription = model.SubscriptionState{Tier: model.TierComplete, ExpiresAt: &past}
		if err := deps.users.Save(ctx, nil, u); err != nil {
			t.Fatalf("save: %v", err)
		}
		uc := deps.newEntitlementUC()

		tier, err := uc.EffectiveTier(ctx, "user-1", time.Now())
		if err != nil {
			t.Fatalf("effective tier: %v", err)
		}
		if tier != model.TierNone {
			t.Fatalf("expected none, got %s", tier)
		}

		// lazy write-back: the stored record is normalized at read time
		stored, _ := deps.users.FindByID(ctx, nil, "user-1")
		if stored.Subscription.Tier != model.TierNone || stored.Subscription.ExpiresAt != nil {
			t.Errorf("expired state was not written back: %+v", stored.Subscription)
		}
	})

	t.Run("live subscription keeps its tier and populates the cache", func(t *testing.T) {
		deps := newReconcileDeps()
		u := seedUser(t, deps, "user-1")
		future := time.Now().Add(time.Hour)
		u.Subscription = model.SubscriptionState{Tier: model.TierAdvanced, ExpiresAt: &future}
		if err := deps.users.Save(ctx, nil, u); err != nil {
			t.Fatalf("save: %v", err)
		}
		uc := deps.newEntitlementUC()

		tier, err := uc.EffectiveTier(ctx, "user-1", time.Now())
		if err != nil {
			t.Fatalf("effective tier: %v", err)
		}
		if tier != model.TierAdvanced {
			t.Fatalf("expected advanced, got %s", tier)
		}
		if _, ok := deps.cache.Get(ctx, "user-1"); !ok {
			t.Error("expected the state to be cached after a read")
		}
	})

	t.Run("cached state that expired mid-TTL still collapses", func(t *testing.T) {
		deps := newReconcileDeps()
		u := seedUser(t, deps, "user-1")
		past := time.Now().Add(-time.Minute)
		u.Subscription = model.SubscriptionState{Tier: model.TierComplete, ExpiresAt: &past}
		if err := deps.users.Save(ctx, nil, u); err != nil {
			t.Fatalf("save: %v", err)
		}
		// poison the cache with the not-yet-collapsed state
		if err := deps.cache.Set(ctx, "user-1", u.Subscription); err != nil {
			t.Fatalf("cache set: %v", err)
		}
		uc := deps.newEntitlementUC()

		tier, err := uc.EffectiveTier(ctx, "user-1", time.Now())
		if err != nil {
			t.Fatalf("effective tier: %v", err)
		}
		if tier != model.TierNone {
			t.Fatalf("expected none despite stale cache entry, got %s", tier)
		}
	})

	t.Run("unknown user surfaces not found", func(t *testing.T) {
		deps := newReconcileDeps()
		uc := deps.newEntitlementUC()
		_, err := uc.EffectiveTier(ctx, "ghost", time.Now())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEntitlement_CanAccess(t *testing.T) {
	ctx := context.Background()
	deps := newReconcileDeps()
	u := seedUser(t, deps, "user-1")
	future := time.Now().Add(time.Hour)
	u.Subscription = model.SubscriptionState{Tier: model.TierAdvanced, ExpiresAt: &future}
	if err := deps.users.Save(ctx, nil, u); err != nil {
		t.Fatalf("save: %v", err)
	}

	advVideo, _ := model.NewVideo("vid-adv", "Advanced Course", model.TierAdvanced)
	completeVideo, _ := model.NewVideo("vid-complete", "Full Pack", model.TierComplete)
	_ = deps.videos.Save(ctx, nil, advVideo)
	_ = deps.videos.Save(ctx, nil, completeVideo)

	uc := deps.newEntitlementUC()

	allowed, tier, err := uc.CanAccess(ctx, "user-1", "vid-adv")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !allowed || tier != model.TierAdvanced {
		t.Errorf("advanced user should access advanced content, got allowed=%v tier=%s", allowed, tier)
	}

	// advanced does not cover complete: membership, not ordering
	allowed, _, err = uc.CanAccess(ctx, "user-1", "vid-complete")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if allowed {
		t.Error("advanced user must not access complete-only content")
	}

	if _, _, err := uc.CanAccess(ctx, "user-1", "no-such-video"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing video, got %v", err)
	}
}
