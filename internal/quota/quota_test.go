package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"recast/internal/config"
	"recast/internal/quota"
	"recast/internal/services"
	"recast/internal/store"
	"recast/internal/testsupport"
)

func newGuard(t *testing.T) (*quota.Guard, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	guard := quota.NewGuard(st, config.Quota{FreeLimit: 3, ProLimit: -1, EnterpriseLimit: -1})
	guard.WithClock(func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	})
	return guard, st
}

func TestFreePlanDeniedAtLimit(t *testing.T) {
	guard, st := newGuard(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "free@example.com", store.PlanFree)

	for i := 0; i < 3; i++ {
		decision, err := guard.CanAdmit(ctx, user.ID)
		if err != nil {
			t.Fatalf("CanAdmit failed: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("expected admission %d allowed, got %#v", i+1, decision)
		}
		if decision.Remaining != 3-i {
			t.Fatalf("expected %d remaining, got %d", 3-i, decision.Remaining)
		}
		if err := guard.Admit(ctx, user.ID); err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
	}

	decision, err := guard.CanAdmit(ctx, user.ID)
	if err != nil {
		t.Fatalf("CanAdmit failed: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected denial at limit, got %#v", decision)
	}
	if decision.Processed != 3 || decision.Remaining != 0 {
		t.Fatalf("unexpected decision: %#v", decision)
	}
}

func TestProPlanIsUnlimited(t *testing.T) {
	guard, st := newGuard(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "pro@example.com", store.PlanPro)

	for i := 0; i < 10; i++ {
		if err := guard.Admit(ctx, user.ID); err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
	}
	decision, err := guard.CanAdmit(ctx, user.ID)
	if err != nil {
		t.Fatalf("CanAdmit failed: %v", err)
	}
	if !decision.Allowed || !decision.Unlimited {
		t.Fatalf("expected unlimited admission, got %#v", decision)
	}
	if decision.Processed != 10 {
		t.Fatalf("expected usage still tracked, got %d", decision.Processed)
	}
}

func TestUnknownUserIsDenied(t *testing.T) {
	guard, _ := newGuard(t)
	_, err := guard.CanAdmit(context.Background(), "no-such-user")
	if err == nil {
		t.Fatal("expected error for unknown user")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestQuotaResetsWithNewMonth(t *testing.T) {
	guard, st := newGuard(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "free@example.com", store.PlanFree)

	for i := 0; i < 3; i++ {
		if err := guard.Admit(ctx, user.ID); err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
	}
	if decision, _ := guard.CanAdmit(ctx, user.ID); decision.Allowed {
		t.Fatal("expected denial before month rollover")
	}

	guard.WithClock(func() time.Time {
		return time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	})
	decision, err := guard.CanAdmit(ctx, user.ID)
	if err != nil {
		t.Fatalf("CanAdmit failed: %v", err)
	}
	if !decision.Allowed || decision.Processed != 0 {
		t.Fatalf("expected fresh month allowance, got %#v", decision)
	}
	if decision.Month != "2026-09" {
		t.Fatalf("unexpected month key %s", decision.Month)
	}
}
