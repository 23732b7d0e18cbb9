package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"workdash/internal/analytics"
	"workdash/internal/cache"
	"workdash/internal/core"
	"workdash/internal/session"

	_ "modernc.org/sqlite"
)

// tableCacheSize bounds the normalized tables kept in process.
const tableCacheSize = 32

// SQLiteSessionStore keeps sessions in SQLite so they survive a restart of
// the server until they expire. Only the raw table is stored; it is
// normalized again on first access.
type SQLiteSessionStore struct {
	db      *sql.DB
	queries *Queries
	ttl     time.Duration
	now     func() time.Time
	tables  *cache.LRUCache[*core.Table]
	group   singleflight.Group
}

var _ session.Store = (*SQLiteSessionStore)(nil)

// NewSQLiteSessionStore opens dbPath, applies migrations and returns the store.
func NewSQLiteSessionStore(dbPath string, ttl time.Duration) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Session schema ready", "db_path", dbPath, "version", version)

	return &SQLiteSessionStore{
		db:      db,
		queries: New(db),
		ttl:     ttl,
		now:     time.Now,
		tables:  cache.NewLRUCache[*core.Table](tableCacheSize, ttl),
	}, nil
}

func (r *SQLiteSessionStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteSessionStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteSessionStore) Save(ctx context.Context, s *session.Session) error {
	var raw []byte
	if s.HasData() {
		var err error
		raw, err = sonic.Marshal(s.Table.Raw())
		if err != nil {
			return fmt.Errorf("encode table: %w", err)
		}
		r.tables.Set(s.ID, s.Table)
	} else {
		r.tables.Delete(s.ID)
	}

	now := r.now()
	err := r.queries.UpsertSession(ctx, SessionRow{
		ID:          s.ID,
		Source:      s.Source,
		Policy:      s.Policy.String(),
		RawTable:    raw,
		WindowStart: s.Window.Start.String(),
		WindowEnd:   s.Window.End.String(),
		Search:      s.Search,
		Theme:       s.Theme,
		CreatedAt:   s.CreatedAt.Unix(),
		UpdatedAt:   s.UpdatedAt.Unix(),
		ExpiresAt:   now.Add(r.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	now := r.now()
	row, err := r.queries.GetLiveSession(ctx, id, now.Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := r.queries.TouchSession(ctx, id, now.Add(r.ttl).Unix()); err != nil {
		slog.WarnContext(ctx, "Failed to renew session expiry", "component", "storage", "session_id", id, "error", err)
	}

	policy, err := core.ParsePolicyFromString(row.Policy)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		ID:        row.ID,
		Source:    row.Source,
		Policy:    policy,
		Search:    row.Search,
		Theme:     row.Theme,
		CreatedAt: time.Unix(row.CreatedAt, 0),
		UpdatedAt: time.Unix(row.UpdatedAt, 0),
	}
	if row.WindowStart != "" && row.WindowEnd != "" {
		start, err1 := core.ParseISODate(row.WindowStart)
		end, err2 := core.ParseISODate(row.WindowEnd)
		if err := errors.Join(err1, err2); err != nil {
			return nil, fmt.Errorf("decode window: %w", err)
		}
		s.Window = analytics.Window{Start: start, End: end}
	}

	if len(row.RawTable) > 0 {
		table, err := r.table(id, row.RawTable, policy)
		if err != nil {
			return nil, err
		}
		s.Table = table
	}
	return s, nil
}

// table returns the normalized table of a session, normalizing the stored
// raw table at most once for concurrent callers.
func (r *SQLiteSessionStore) table(id string, blob []byte, policy core.ParsePolicy) (*core.Table, error) {
	if t, ok := r.tables.Get(id); ok {
		return t, nil
	}
	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		var raw core.RawTable
		if err := sonic.Unmarshal(blob, &raw); err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		t, err := core.Normalize(&raw, core.NormalizeOptions{Policy: policy})
		if err != nil {
			return nil, fmt.Errorf("normalize stored table: %w", err)
		}
		r.tables.Set(id, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Table), nil
}

func (r *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	r.tables.Delete(id)
	if err := r.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpired deletes expired sessions; it lets a cache.Manager sweep the store.
func (r *SQLiteSessionStore) CleanExpired() int {
	n, err := r.queries.DeleteExpiredSessions(context.Background(), r.now().Unix())
	if err != nil {
		slog.Error("Failed to purge expired sessions", "component", "storage", "error", err)
		return 0
	}
	r.tables.CleanExpired()
	return int(n)
}
