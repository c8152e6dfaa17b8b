package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

// RecordAuditAsync appends an audit row without blocking the request
// path. Audit writes are best-effort: a failed insert is logged and the
// originating operation is unaffected.
func RecordAuditAsync(entry models.AuditLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := database.PostgresDB.ExecContext(ctx, `
			INSERT INTO audit_logs (id, created_at, actor_id, actor_role, actor_ip, action, entity, entity_id, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New(), time.Now(), entry.ActorID, entry.ActorRole, entry.ActorIP,
			entry.Action, entry.Entity, entry.EntityID, entry.Detail)
		if err != nil {
			log.Warn().Err(err).Str("action", entry.Action).Str("entity", entry.Entity).
				Msg("audit insert failed")
		}
	}()
}

// AuditFilter narrows the admin audit listing. Zero values mean no
// filter.
type AuditFilter struct {
	ActorID string
	Action  string
	Entity  string
	Limit   int
	Offset  int
}

// ListAuditLogs returns audit rows newest-first plus the total count for
// the same filter.
func ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}

	where := ""
	args := []interface{}{}
	addClause := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += column + " = $" + strconv.Itoa(len(args))
	}
	addClause("actor_id", f.ActorID)
	addClause("action", f.Action)
	addClause("entity", f.Entity)

	var total int64
	if err := database.PostgresDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, actor_id, actor_role, actor_ip, action, entity, entity_id, detail
		FROM audit_logs%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := database.PostgresDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]models.AuditLog, 0)
	for rows.Next() {
		var entry models.AuditLog
		var actorIP, entityID, detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.CreatedAt, &entry.ActorID, &entry.ActorRole,
			&actorIP, &entry.Action, &entry.Entity, &entityID, &detail); err != nil {
			return nil, 0, err
		}
		entry.ActorIP = actorIP.String
		entry.EntityID = entityID.String
		entry.Detail = detail.String
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
