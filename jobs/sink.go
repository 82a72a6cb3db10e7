package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/compass-crm/compass/internal/authz"
)

// DenialSink forwards denied checks onto the queue. Enqueue failures are
// logged and swallowed; recording a denial must never fail the request that
// triggered it.
type DenialSink struct {
	client *Client
	logger *slog.Logger
}

func NewDenialSink(client *Client, logger *slog.Logger) *DenialSink {
	return &DenialSink{client: client, logger: logger}
}

// RecordDenial implements authz.DenialSink.
func (s *DenialSink) RecordDenial(ctx context.Context, actor authz.Actor, action authz.Action, reason string) {
	_, err := s.client.EnqueueDenial(ctx, DenialPayload{
		ActorID:  actor.ID,
		Username: actor.Username,
		Role:     actor.Role.String(),
		Action:   action.String(),
		Reason:   reason,
		At:       time.Now().UTC(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("enqueue denial record", slog.Any("error", err))
	}
}
