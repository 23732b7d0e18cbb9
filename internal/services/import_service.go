package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"workdash/internal/amqp"
	"workdash/internal/analytics"
	"workdash/internal/core"
	"workdash/internal/ingest"
	"workdash/internal/session"
	"workdash/internal/sheets"
)

// EventPublisher announces finished imports. *amqp.Client implements it.
type EventPublisher interface {
	PublishUpload(ctx context.Context, event *amqp.UploadEvent) error
}

// ImportService turns uploaded files and table sources into session data.
type ImportService struct {
	store     session.Store
	publisher EventPublisher
	policy    core.ParsePolicy
	now       func() time.Time
}

func NewImportService(store session.Store, publisher EventPublisher, policy core.ParsePolicy) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// Policy returns the parse policy applied to every import.
func (s *ImportService) Policy() core.ParsePolicy { return s.policy }

// ImportUpload parses an uploaded CSV or XLSX file and loads it into sess.
// The stored session is returned; sess itself is not modified.
func (s *ImportService) ImportUpload(ctx context.Context, sess *session.Session, filename string, data []byte) (*session.Session, error) {
	raw, err := ingest.ReadFile(filename, data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", filename, err)
	}
	return s.load(ctx, sess, filename, raw)
}

// ImportSource reads a table from src and loads it into sess.
func (s *ImportService) ImportSource(ctx context.Context, sess *session.Session, src sheets.TableReader) (*session.Session, error) {
	raw, err := src.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	return s.load(ctx, sess, src.Name(), raw)
}

func (s *ImportService) load(ctx context.Context, sess *session.Session, source string, raw *core.RawTable) (*session.Session, error) {
	table, err := core.Normalize(raw, core.NormalizeOptions{Policy: s.policy})
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", source, err)
	}

	next := sess.Clone()
	next.Load(source, s.policy, table, s.now())
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	slog.DebugContext(ctx, "Session table replaced",
		"session_id", next.ID,
		"source", source,
		"rows", table.Len(),
		"undated_rows", table.Undated(),
		"policy", s.policy.String())

	// Import already succeeded; a broker outage only costs the event.
	if err := s.publish(ctx, next); err != nil {
		slog.ErrorContext(ctx, "Failed to publish upload event",
			"session_id", next.ID, "error", err)
	}
	return next, nil
}

func (s *ImportService) publish(ctx context.Context, sess *session.Session) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping upload event")
		return nil
	}
	return s.publisher.PublishUpload(ctx, UploadEventFor(sess))
}

// UploadEventFor summarizes the session's table as an upload event.
func UploadEventFor(sess *session.Session) *amqp.UploadEvent {
	t := sess.Table
	event := amqp.NewUploadEvent(sess.ID, sess.Source, t.Len(), t.Undated())
	if lo, hi, err := t.DateRange(); err == nil {
		event.MinDate, event.MaxDate = lo.String(), hi.String()
		totals := analytics.ComputeTotals(t, analytics.Window{Start: lo, End: hi})
		event.Earnings, event.Hours = totals.Earnings, totals.Hours
	}
	return event
}

// Reset drops the session's data and view state, keeping only its ID and theme.
func (s *ImportService) Reset(ctx context.Context, sess *session.Session) (*session.Session, error) {
	fresh := session.New(s.now())
	fresh.ID = sess.ID
	fresh.Theme = sess.Theme
	fresh.CreatedAt = sess.CreatedAt
	if err := s.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return fresh, nil
}
