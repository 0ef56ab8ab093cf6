// Package audit records sensitive actions to an append-only store and the
// structured log. Failures to persist an entry are logged, never surfaced:
// audit must not fail the operation it describes.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/pkg/database"
)

// Entry is one audit record: who did what to which target, from where.
type Entry struct {
	Actor  string
	Action string
	Target string
	IP     string
}

// Recorder writes audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// PostgresRecorder appends entries to the audit_log table and mirrors them to
// the security logger.
type PostgresRecorder struct {
	pool   database.DBTX
	logger *slog.Logger
}

// NewPostgresRecorder creates a new audit recorder.
func NewPostgresRecorder(pool database.DBTX, logger *slog.Logger) *PostgresRecorder {
	return &PostgresRecorder{pool: pool, logger: logger.With(slog.String("component", "audit"))}
}

// Record persists the entry and emits a structured log line.
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) {
	r.logger.InfoContext(ctx, "audit",
		slog.String("actor", e.Actor),
		slog.String("action", e.Action),
		slog.String("target", e.Target),
		slog.String("ip", e.IP),
	)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor, action, target, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), e.Actor, e.Action, e.Target, e.IP, time.Now().UTC(),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to persist audit entry",
			slog.String("action", e.Action),
			slog.String("error", fmt.Sprintf("%v", err)),
		)
	}
}
