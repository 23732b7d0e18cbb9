package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// SessionRow mirrors the sessions table.
type SessionRow struct {
	ID          string
	Source      string
	Policy      string
	RawTable    []byte
	WindowStart string
	WindowEnd   string
	Search      string
	Theme       string
	CreatedAt   int64
	UpdatedAt   int64
	ExpiresAt   int64
}

const upsertSession = `INSERT INTO sessions (
    id, source, policy, raw_table, window_start, window_end, search, theme, created_at, updated_at, expires_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    source = excluded.source,
    policy = excluded.policy,
    raw_table = excluded.raw_table,
    window_start = excluded.window_start,
    window_end = excluded.window_end,
    search = excluded.search,
    theme = excluded.theme,
    updated_at = excluded.updated_at,
    expires_at = excluded.expires_at`

func (q *Queries) UpsertSession(ctx context.Context, arg SessionRow) error {
	_, err := q.db.ExecContext(ctx, upsertSession,
		arg.ID, arg.Source, arg.Policy, arg.RawTable,
		arg.WindowStart, arg.WindowEnd, arg.Search, arg.Theme,
		arg.CreatedAt, arg.UpdatedAt, arg.ExpiresAt,
	)
	return err
}

const getLiveSession = `SELECT id, source, policy, raw_table, window_start, window_end, search, theme, created_at, updated_at, expires_at
FROM sessions WHERE id = ? AND expires_at > ?`

func (q *Queries) GetLiveSession(ctx context.Context, id string, now int64) (SessionRow, error) {
	row := q.db.QueryRowContext(ctx, getLiveSession, id, now)
	var i SessionRow
	err := row.Scan(
		&i.ID, &i.Source, &i.Policy, &i.RawTable,
		&i.WindowStart, &i.WindowEnd, &i.Search, &i.Theme,
		&i.CreatedAt, &i.UpdatedAt, &i.ExpiresAt,
	)
	return i, err
}

const touchSession = `UPDATE sessions SET expires_at = ? WHERE id = ?`

func (q *Queries) TouchSession(ctx context.Context, id string, expiresAt int64) error {
	_, err := q.db.ExecContext(ctx, touchSession, expiresAt, id)
	return err
}

const deleteSession = `DELETE FROM sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
