package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/contract"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// #region log-decision
// LogDecision appends rec to the decision_log table.
func LogDecision(ctx context.Context, db *sql.DB, rec contract.DecisionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO decision_log (request_id, decision, status, trace_hash, router_version, policy_version, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		string(rec.Routing.Decision),
		string(rec.Status),
		nullIfEmpty(rec.TraceHash),
		nullIfEmpty(rec.Routing.RouterVersion),
		nullIfEmpty(rec.Policy.Version),
		string(raw),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region recent-decisions
// RecentDecisions returns up to limit records, newest first.
func RecentDecisions(ctx context.Context, db *sql.DB, limit int) ([]contract.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT record_json FROM decision_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var recs []contract.DecisionRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		var rec contract.DecisionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
// #endregion recent-decisions

// #region stats
// Stats counts stored decisions by decision and status. The bypass rate is
// taken over rows that carry a routing decision.
func Stats(ctx context.Context, db *sql.DB) (DecisionStats, error) {
	stats := DecisionStats{ByDecision: map[string]int{}, ByStatus: map[string]int{}}

	rows, err := db.QueryContext(ctx, `SELECT decision, status, COUNT(*) FROM decision_log GROUP BY decision, status`)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	routed, bypassed := 0, 0
	for rows.Next() {
		var decision, status string
		var n int
		if err := rows.Scan(&decision, &status, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += n
		stats.ByStatus[status] += n
		if decision == "" {
			continue
		}
		stats.ByDecision[decision] += n
		if d, err := router.ParseDecision(decision); err == nil {
			routed += n
			if d.IsBypass() {
				bypassed += n
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if routed > 0 {
		stats.BypassRate = float64(bypassed) / float64(routed)
	}
	return stats, nil
}
// #endregion stats

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
