package policy

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

// DecisionObserver receives one call per evaluated policy.
type DecisionObserver interface {
	ObservePolicyDecision(policy, outcome string)
}

// Engine evaluates policy chains. It holds no per-request state and never writes to storage.
type Engine struct {
	env      Env
	logger   *zap.Logger
	observer DecisionObserver
}

// NewEngine constructs an Engine. observer may be nil.
func NewEngine(env Env, logger *zap.Logger, observer DecisionObserver) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{env: env, logger: logger, observer: observer}
}

// Permissions exposes the permission table the engine was built with.
func (e *Engine) Permissions() *Permissions {
	return e.env.Permissions
}

// Evaluate runs chain in order and stops at the first denial. It returns nil
// when every policy allows, the denial as a typed error, or a generic internal
// error when a lookup failed.
func (e *Engine) Evaluate(ctx context.Context, req *Request, chain ...Policy) error {
	if req == nil || req.Subject.ID == "" || !req.Subject.Role.Valid() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}

	for _, p := range chain {
		decision, err := p.Evaluate(ctx, e.env, req)
		if err != nil {
			e.observe(p.Name(), "error")
			e.logger.Error("policy evaluation failed",
				zap.String("policy", p.Name()),
				zap.String("subject_id", req.Subject.ID),
				zap.String("role", req.Subject.Role.String()),
				zap.Any("params", req.Params),
				zap.Error(err),
			)
			return appErrors.ErrInternal.WithCause(err, appErrors.ErrInternal.Message)
		}

		e.observe(p.Name(), decision.Outcome())
		if !decision.Allowed {
			e.logger.Debug("policy denied request",
				zap.String("policy", p.Name()),
				zap.String("subject_id", req.Subject.ID),
				zap.String("kind", decision.Kind.String()),
				zap.String("reason", decision.Reason),
			)
			return decision.Err()
		}
	}
	return nil
}

func (e *Engine) observe(policy, outcome string) {
	if e.observer != nil {
		e.observer.ObservePolicyDecision(policy, outcome)
	}
}
