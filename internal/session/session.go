// Package session holds the per-visitor dashboard context: the normalized
// table of the last import and the view state chosen on top of it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"workdash/internal/analytics"
	"workdash/internal/core"
)

// Themes supported by the dashboard.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoData   = errors.New("session has no imported table")
)

// Session is the explicit context passed to every view. Table is immutable
// and shared between copies; everything else is plain view state.
type Session struct {
	ID        string
	Source    string
	Policy    core.ParsePolicy
	Table     *core.Table
	Window    analytics.Window
	Search    string
	Theme     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists sessions until they expire.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// New creates an empty session with a random ID.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Theme:     ThemeDark,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidID reports whether id looks like a session ID issued by New.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// HasData reports whether a table has been imported.
func (s *Session) HasData() bool {
	return s != nil && s.Table != nil
}

// Load replaces the session's table and resets the view to the full date range.
func (s *Session) Load(source string, policy core.ParsePolicy, table *core.Table, now time.Time) {
	s.Source = source
	s.Policy = policy
	s.Table = table
	s.Search = ""
	s.Window = analytics.Window{}
	if lo, hi, err := table.DateRange(); err == nil {
		s.Window = analytics.Window{Start: lo, End: hi}
	}
	s.UpdatedAt = now
}

// Bounds returns the imported table's date range.
func (s *Session) Bounds() (core.Date, core.Date, error) {
	if !s.HasData() {
		return core.Date{}, core.Date{}, ErrNoData
	}
	return s.Table.DateRange()
}

// SetWindow stores w. Windows outside the data are valid and produce empty views.
func (s *Session) SetWindow(w analytics.Window, now time.Time) {
	s.Window = w
	s.UpdatedAt = now
}

// SetTheme switches between ThemeDark and ThemeLight; other values are ignored.
func (s *Session) SetTheme(theme string, now time.Time) {
	if theme == ThemeDark || theme == ThemeLight {
		s.Theme = theme
		s.UpdatedAt = now
	}
}

// Clone returns a shallow copy sharing the immutable table.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
