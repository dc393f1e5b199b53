package audit

import (
	"context"
	"fmt"

	"github.com/medplatform/dossier/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{db: q}
}

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO audit_log (actor_user_id, action, target_type, target_id, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.ActorID, string(e.Action), e.TargetType, e.TargetID, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *repoPG) ListByTarget(ctx context.Context, targetType string, targetID int64, limit int) ([]*Entry, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, actor_user_id, action, target_type, target_id, description, created_at
		FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.TargetType, &e.TargetID, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = Action(action)
		out = append(out, &e)
	}
	return out, rows.Err()
}
