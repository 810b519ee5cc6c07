package admin

import (
	"context"

	"promodesk/cmd/internal/audit"
)

const usersTable = "users"

func (h *Handler) record(ctx context.Context, actorID, action, targetID string, meta map[string]any) {
	if h == nil || h.rec == nil {
		return
	}
	table := usersTable
	h.rec.Record(ctx, audit.Entry{
		ActorID:     &actorID,
		Action:      action,
		TargetTable: &table,
		TargetID:    &targetID,
		Meta:        meta,
	})
}
