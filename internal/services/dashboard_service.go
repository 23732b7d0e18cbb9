package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"workdash/internal/analytics"
	"workdash/internal/cache"
	"workdash/internal/core"
	"workdash/internal/session"
)

// DashboardService computes views for a session. Full reports are cached
// per session state, so switching tabs does not recompute them.
type DashboardService struct {
	rolling int
	reports *cache.LRUCache[*analytics.Report]
	group   singleflight.Group
}

func NewDashboardService(rolling, cacheSize int, ttl time.Duration) *DashboardService {
	if rolling < 1 {
		rolling = analytics.DefaultRollingWindow
	}
	return &DashboardService{
		rolling: rolling,
		reports: cache.NewLRUCache[*analytics.Report](cacheSize, ttl),
	}
}

// RollingWindow is the smoothing window of daily series.
func (d *DashboardService) RollingWindow() int { return d.rolling }

// Cache exposes the report cache for periodic cleanup.
func (d *DashboardService) Cache() cache.Cleaner { return d.reports }

// Report returns every view of the session's current window.
func (d *DashboardService) Report(ctx context.Context, sess *session.Session) (*analytics.Report, error) {
	if !sess.HasData() {
		return nil, session.ErrNoData
	}
	key := reportKey(sess)
	if rep, ok := d.reports.Get(key); ok {
		return rep, nil
	}

	// Waiters share this build, so one caller going away must not cancel it.
	v, err, _ := d.group.Do(key, func() (any, error) {
		rep, err := analytics.BuildReport(context.WithoutCancel(ctx), sess.Table, sess.Window, analytics.ReportOptions{RollingWindow: d.rolling})
		if err != nil {
			return nil, err
		}
		d.reports.Set(key, rep)
		return rep, nil
	})
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return v.(*analytics.Report), nil
}

// Rows returns the records of the data view: the session window (unless all
// is set, which also keeps undated rows) narrowed by the search query.
func (d *DashboardService) Rows(sess *session.Session, all bool) (*core.Table, error) {
	if !sess.HasData() {
		return nil, session.ErrNoData
	}
	t := sess.Table
	if !all {
		t = sess.Window.Filter(t)
	}
	return t.Search(sess.Search), nil
}

// Invalidate drops every cached report of a session.
func (d *DashboardService) Invalidate(sess *session.Session) {
	d.reports.Delete(reportKey(sess))
}

func reportKey(sess *session.Session) string {
	return fmt.Sprintf("%s|%s|%d|%s", sess.ID, sess.Source, sess.UpdatedAt.UnixNano(), sess.Window)
}
