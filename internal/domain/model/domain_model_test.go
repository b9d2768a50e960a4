package model_test

import (
	"errors"
	"testing"
	"time"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
)

func TestParsePaymentStatus(t *testing.T) {
	t.Run("maps known gateway strings onto the enumeration", func(t *testing.T) {
		cases := map[string]model.PaymentStatus{
			"pending":        model.PaymentStatusPending,
			"waiting":        model.PaymentStatusWaiting,
			"Confirming":     model.PaymentStatusConfirming,
			"CONFIRMED":      model.PaymentStatusConfirmed,
			"sending":        model.PaymentStatusSending,
			"partially_paid": model.PaymentStatusPartiallyPaid,
			" finished ":     model.PaymentStatusFinished,
			"failed":         model.PaymentStatusFailed,
			"refunded":       model.PaymentStatusRefunded,
			"expired":        model.PaymentStatusExpired,
		}
		for in, want := range cases {
			got, err := model.ParsePaymentStatus(in)
			if err != nil {
				t.Fatalf("ParsePaymentStatus(%q): unexpected error: %v", in, err)
			}
			if got != want {
				t.Errorf("ParsePaymentStatus(%q) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("rejects unrecognized values at the boundary", func(t *testing.T) {
		_, err := model.ParsePaymentStatus("settled")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestPaymentStatusClasses(t *testing.T) {
	terminal := []model.PaymentStatus{
		model.PaymentStatusFinished, model.PaymentStatusRefunded, model.PaymentStatusExpired,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	// failed is correctable by a later legitimate confirmation, so it does not freeze the record
	if model.PaymentStatusFailed.IsTerminal() {
		t.Error("failed should not be terminal")
	}
	if !model.PaymentStatusFinished.IsQualifying() || !model.PaymentStatusConfirmed.IsQualifying() {
		t.Error("finished and confirmed should qualify")
	}
	if model.PaymentStatusConfirming.IsQualifying() {
		t.Error("confirming should not qualify")
	}
}

func TestHasAccess(t *testing.T) {
	cases := []struct {
		effective, required model.Tier
		want                bool
	}{
		{model.TierComplete, model.TierBeginner, true},
		{model.TierComplete, model.TierAdvanced, true},
		{model.TierComplete, model.TierComplete, true},
		{model.TierBeginner, model.TierBeginner, true},
		{model.TierBeginner, model.TierAdvanced, false},
		{model.TierBeginner, model.TierComplete, false},
		{model.TierAdvanced, model.TierAdvanced, true},
		{model.TierAdvanced, model.TierBeginner, false},
		{model.TierAdvanced, model.TierComplete, false},
		{model.TierNone, model.TierBeginner, false},
	}
	for _, c := range cases {
		if got := model.HasAccess(c.effective, c.required); got != c.want {
			t.Errorf("HasAccess(%s, %s) = %v, want %v", c.effective, c.required, got, c.want)
		}
	}
}

func TestEffectiveTier(t *testing.T) {
	now := time.Now()

	t.Run("collapses just-expired state to none", func(t *testing.T) {
		exp := now.Add(-time.Second)
		s := model.SubscriptionState{Tier: model.TierComplete, ExpiresAt: &exp}
		if got := model.EffectiveTier(s, now); got != model.TierNone {
			t.Fatalf("expected none, got %s", got)
		}
	})

	t.Run("absent expiry means none regardless of stored tier", func(t *testing.T) {
		s := model.SubscriptionState{Tier: model.TierAdvanced}
		if got := model.EffectiveTier(s, now); got != model.TierNone {
			t.Fatalf("expected none, got %s", got)
		}
	})

	t.Run("live expiry keeps stored tier", func(t *testing.T) {
		exp := now.Add(time.Hour)
		s := model.SubscriptionState{Tier: model.TierAdvanced, ExpiresAt: &exp}
		if got := model.EffectiveTier(s, now); got != model.TierAdvanced {
			t.Fatalf("expected advanced, got %s", got)
		}
	})
}

func TestSubscriptionStateCollapse(t *testing.T) {
	now := time.Now()
	exp := now.Add(-time.Minute)
	s := model.SubscriptionState{Tier: model.TierComplete, ExpiresAt: &exp}

	if !s.Collapse(now) {
		t.Fatal("expected collapse to report a change")
	}
	if s.Tier != model.TierNone || s.ExpiresAt != nil {
		t.Fatalf("expected none/nil after collapse, got %s/%v", s.Tier, s.ExpiresAt)
	}
	if s.Collapse(now) {
		t.Fatal("second collapse should be a no-op")
	}
}

func TestSubscriptionStateExtend(t *testing.T) {
	now := time.Now()
	prior := now.Add(20 * 24 * time.Hour)
	s := model.SubscriptionState{Tier: model.TierComplete, ExpiresAt: &prior}

	// confirming a new payment resets the clock; remaining time does not stack
	s.Extend(model.TierAdvanced, now, 30*24*time.Hour)

	if s.Tier != model.TierAdvanced {
		t.Fatalf("expected tier advanced, got %s", s.Tier)
	}
	want := now.Add(30 * 24 * time.Hour)
	if !s.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, *s.ExpiresAt)
	}
}
