package authz

import (
	"context"
	"log/slog"
)

// DecisionRecorder receives the outcome of every check, typically backed by
// Prometheus counters.
type DecisionRecorder interface {
	RecordDecision(role Role, kind ResourceKind, allowed bool)
}

// DenialSink receives denials for audit purposes. Implementations must not
// block the request path; the worker persists the records.
type DenialSink interface {
	RecordDenial(ctx context.Context, actor Actor, action Action, reason string)
}

// Gateway is the single authorization entry point for the service layer.
// Services never read the capability table themselves; duplicated
// role checks scattered across call sites are exactly the drift this
// indirection prevents.
type Gateway struct {
	engine   *Engine
	logger   *slog.Logger
	recorder DecisionRecorder
	denials  DenialSink
}

// NewGateway constructs a Gateway. Recorder and sink may be nil.
func NewGateway(engine *Engine, logger *slog.Logger, recorder DecisionRecorder, denials DenialSink) *Gateway {
	return &Gateway{engine: engine, logger: logger, recorder: recorder, denials: denials}
}

// Check evaluates the action and returns nil on Allow. A Deny becomes a
// *DeniedError wrapping ErrDenied; engine faults (missing resource, unknown
// role, broken ownership chain) propagate unchanged so callers can separate
// "not allowed" from "internal misuse".
func (g *Gateway) Check(ctx context.Context, actor Actor, action Action, resource Resource) error {
	decision, err := g.engine.Decide(ctx, actor, action, resource)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("authorization check failed",
				slog.String("action", action.String()),
				slog.String("actor", actor.Username),
				slog.Any("error", err))
		}
		return err
	}

	if g.recorder != nil {
		g.recorder.RecordDecision(actor.Role, action.Kind, decision.Allowed)
	}
	if decision.Allowed {
		return nil
	}

	if g.logger != nil {
		g.logger.Info("authorization denied",
			slog.String("action", action.String()),
			slog.String("actor", actor.Username),
			slog.String("role", actor.Role.String()),
			slog.String("reason", decision.Reason))
	}
	if g.denials != nil {
		g.denials.RecordDenial(ctx, actor, action, decision.Reason)
	}
	return &DeniedError{Actor: actor, Action: action, Reason: decision.Reason}
}

// Allowed is the non-erroring form for callers that only need the boolean,
// e.g. to decide whether to expose an operation in a listing. The reason is
// still available through the returned decision.
func (g *Gateway) Allowed(ctx context.Context, actor Actor, action Action, resource Resource) (Decision, error) {
	return g.engine.Decide(ctx, actor, action, resource)
}
