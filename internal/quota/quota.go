// Package quota enforces per-user monthly processing limits. Admission is
// checked before any pipeline state is created; consumption is recorded once
// per admitted submission.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recast/internal/config"
	"recast/internal/services"
	"recast/internal/store"
)

// Unlimited marks a plan with no monthly cap.
const Unlimited = -1

// Decision reports whether a user may process another video this month.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Plan      string `json:"plan"`
	Month     string `json:"month"`
	Processed int    `json:"processed"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

// Guard answers admission questions against the persisted usage records.
type Guard struct {
	store  *store.Store
	limits config.Quota
	now    func() time.Time
}

// NewGuard builds a guard over the store with configured plan limits.
func NewGuard(st *store.Store, limits config.Quota) *Guard {
	return &Guard{store: st, limits: limits, now: time.Now}
}

// WithClock overrides the time source (useful for tests).
func (g *Guard) WithClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// CurrentMonth returns the UTC month key usage records are bucketed by.
func (g *Guard) CurrentMonth() string {
	return g.now().UTC().Format("2006-01")
}

// CanAdmit reports whether the user may start another video this month.
// Unknown users are denied, not defaulted.
func (g *Guard) CanAdmit(ctx context.Context, userID string) (Decision, error) {
	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if user == nil {
		return Decision{}, services.Wrap(services.ErrNotFound, "quota", "admit", fmt.Sprintf("user %s", userID), nil)
	}

	month := g.CurrentMonth()
	limit := g.planLimit(user.Plan)

	processed := 0
	record, err := g.store.GetUsage(ctx, userID, month)
	if err != nil {
		return Decision{}, err
	}
	if record != nil {
		processed = record.VideosProcessed
	}

	decision := Decision{
		Plan:      user.Plan,
		Month:     month,
		Processed: processed,
		Limit:     limit,
		Unlimited: limit == Unlimited,
	}
	if decision.Unlimited {
		decision.Allowed = true
		decision.Remaining = Unlimited
		return decision, nil
	}
	decision.Remaining = limit - processed
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	decision.Allowed = processed < limit
	return decision, nil
}

// Admit records one consumed video for the user's current month.
func (g *Guard) Admit(ctx context.Context, userID string) error {
	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return services.Wrap(services.ErrNotFound, "quota", "admit", fmt.Sprintf("user %s", userID), nil)
	}
	_, err = g.store.IncrementUsage(ctx, userID, g.CurrentMonth(), g.planLimit(user.Plan))
	return err
}

// planLimit maps a plan name to its monthly cap. Unknown plans get the FREE
// limit.
func (g *Guard) planLimit(plan string) int {
	switch strings.ToUpper(strings.TrimSpace(plan)) {
	case store.PlanPro:
		return g.limits.ProLimit
	case store.PlanEnterprise:
		return g.limits.EnterpriseLimit
	default:
		return g.limits.FreeLimit
	}
}
