package audit

import (
	"context"
	"database/sql"
	"time"
)

type Event struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"` // e.g., score.created
	Key       string `json:"key"`  // natural key: score id
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Recorder is what event producers depend on; tests swap in a fake.
type Recorder interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Recent returns the newest events, for the admin activity view.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, typ, key, data, created_at FROM event_log ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
