// Package audit appends to the audit_log table. Entries are best-effort:
// a failed insert is logged and counted, never surfaced to the request that
// triggered it.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"promodesk/cmd/internal/metrics"
)

// Entry is one append-only audit record. ActorID is nil for unauthenticated
// actions (failed logins, reset requests).
type Entry struct {
	ActorID     *string
	Action      string
	TargetTable *string
	TargetID    *string
	Meta        map[string]any
}

// Recorder writes audit entries. A nil pool makes every Record a no-op, which
// keeps handler tests free of database plumbing.
type Recorder struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(pool *pgxpool.Pool, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{pool: pool, log: log}
}

// Record appends an entry. Never fails the caller.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.pool == nil {
		return
	}

	action := strings.TrimSpace(e.Action)
	if action == "" {
		return
	}

	var metaVal *string
	if len(e.Meta) > 0 {
		if b, err := json.Marshal(e.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (actor_id, action, target_table, target_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
	`, e.ActorID, action, e.TargetTable, e.TargetID, metaVal)
	if err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		r.log.Error("audit.insert.fail", "err", err, "action", action)
	}
}
