package permission

import (
	"context"

	"github.com/kdufoot/matchfinder/internal/metrics"
	"github.com/kdufoot/matchfinder/internal/quota"
)

// Denial reasons reported by the gate.
const (
	ReasonMissingToken     = "missing_token"
	ReasonPermissionDenied = "permission_denied"
	ReasonQuotaExceeded    = "quota_exceeded"
)

// QuotaEvaluator is the part of quota.Evaluator the gate depends on.
type QuotaEvaluator interface {
	Evaluate(ctx context.Context, userID, action string) (quota.Decision, error)
}

// Result is the gate's decision.  Quota is set whenever the evaluator ran
// against a configured limit.
type Result struct {
	Allowed bool
	Reason  string
	Quota   *quota.Decision
}

// Gate admits a request when the token grants the permission and the
// permission's quota, if any, is not exhausted.  The quota of an admitted
// request is consumed; a refused permission never reaches the evaluator.
type Gate struct {
	quotas QuotaEvaluator
}

// NewGate returns a Gate backed by the given evaluator.
func NewGate(q QuotaEvaluator) *Gate {
	return &Gate{quotas: q}
}

// Check evaluates claims against p.  A nil claims value means no token
// was presented.  Errors come only from the counter store.
func (g *Gate) Check(ctx context.Context, claims *Claims, p Permission) (Result, error) {
	if r := g.Authorize(claims, p); !r.Allowed {
		return r, nil
	}

	d, err := g.quotas.Evaluate(ctx, claims.Subject, string(p))
	if err != nil {
		return Result{}, err
	}
	var info *quota.Decision
	if !d.Unlimited {
		info = &d
	}
	if !d.Admitted {
		return g.deny(p, ReasonQuotaExceeded, info), nil
	}
	return Result{Allowed: true, Quota: info}, nil
}

// Authorize runs the token and permission checks of Check without
// touching the quota.  It guards routes that need the permission but are
// not the metered action itself.
func (g *Gate) Authorize(claims *Claims, p Permission) Result {
	if claims == nil || claims.Subject == "" {
		return g.deny(p, ReasonMissingToken, nil)
	}
	if !claims.Has(p) {
		return g.deny(p, ReasonPermissionDenied, nil)
	}
	return Result{Allowed: true}
}

func (g *Gate) deny(p Permission, reason string, d *quota.Decision) Result {
	metrics.GateDenials.WithLabelValues(string(p), reason).Inc()
	return Result{Allowed: false, Reason: reason, Quota: d}
}
