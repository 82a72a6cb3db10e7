package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/compass-crm/compass/internal/jobs"
	"github.com/compass-crm/compass/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuthzDenial persists a denied authorization check to the
	// audit trail.
	TaskTypeAuthzDenial = "authz:denial"
	// TaskTypeSessionsPurge removes expired session rows. Scheduled via
	// cron from the worker.
	TaskTypeSessionsPurge = "sessions:purge"
)

// DenialPayload captures a denied check. The denial already happened; this
// only records it, so handlers must never fail the original request.
type DenialPayload struct {
	ActorID  int64     `json:"actor_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// NewDenialTask constructs an Asynq task for the denial record.
func NewDenialTask(payload DenialPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuthzDenial, data), nil
}

// NewSessionsPurgeTask constructs the purge task. It carries no payload.
func NewSessionsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionsPurge, nil)
}

// AuditRecorder persists audit entries. *shared.AuditLogger satisfies it.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DenialAuditJob writes denial records into the audit trail.
type DenialAuditJob struct {
	Auditor AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewDenialAuditJob(auditor AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *DenialAuditJob {
	return &DenialAuditJob{Auditor: auditor, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeAuthzDenial tasks.
func (j *DenialAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track("authz_denial")
	var payload DenialPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	err := j.Auditor.Record(ctx, shared.AuditLog{
		ActorID:  payload.ActorID,
		Action:   "authz.denied",
		Entity:   "authz",
		EntityID: payload.Action,
		Meta: map[string]any{
			"username": payload.Username,
			"role":     payload.Role,
			"reason":   payload.Reason,
		},
		At: payload.At,
	})
	if err != nil {
		j.Logger.Error("persist denial record", slog.Any("error", err))
	}
	return tracker.End(err)
}

// SessionsPurgeJob deletes session rows past their expiry.
type SessionsPurgeJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewSessionsPurgeJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPurgeJob {
	return &SessionsPurgeJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSessionsPurge tasks.
func (j *SessionsPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track("sessions_purge")
	tag, err := j.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		j.Logger.Error("purge sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	if n := tag.RowsAffected(); n > 0 {
		j.Logger.Info("purged expired sessions", slog.String("count", strconv.FormatInt(n, 10)))
	}
	return tracker.End(nil)
}
