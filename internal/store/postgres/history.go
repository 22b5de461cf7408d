package postgres

import (
	"context"
	"time"

	"paybridge/internal/domain/flow"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepo records terminal flow outcomes for audit. Writes are best
// effort from the orchestrator's point of view; nothing here sits on the
// outcome-delivery path.
type HistoryRepo struct {
	db *pgxpool.Pool
}

func NewHistoryRepo(db *pgxpool.Pool) *HistoryRepo { return &HistoryRepo{db: db} }

// EnsureSchema creates the history table when it is missing.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS flow_history (
			id            BIGSERIAL PRIMARY KEY,
			flow_id       TEXT NOT NULL,
			provider_kind TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			type_label    TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			started_at    TIMESTAMPTZ,
			finished_at   TIMESTAMPTZ NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// RecordOutcome implements orchestrator.Recorder.
func (r *HistoryRepo) RecordOutcome(ctx context.Context, st flow.State, out flow.Outcome) error {
	var startedAt *time.Time
	if !st.StartedAt.IsZero() {
		startedAt = &st.StartedAt
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO flow_history (flow_id, provider_kind, outcome, type_label, error_message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		st.ID, string(st.Kind), string(out.Status), out.TypeLabel, out.ErrorMessage, startedAt, out.At,
	)
	return err
}

// HistoryRow is one recorded terminal outcome.
type HistoryRow struct {
	FlowID       string     `json:"flowId"`
	ProviderKind string     `json:"providerKind"`
	Outcome      string     `json:"outcome"`
	TypeLabel    string     `json:"typeLabel,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   time.Time  `json:"finishedAt"`
}

// ListRecent returns recorded outcomes, newest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit, offset int) ([]HistoryRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT flow_id, provider_kind, outcome, type_label, error_message, started_at, finished_at
		  FROM flow_history
		 ORDER BY id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.FlowID, &h.ProviderKind, &h.Outcome, &h.TypeLabel, &h.ErrorMessage, &h.StartedAt, &h.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
