package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	applog "workdash/internal/log"
	"workdash/internal/session"
)

// SessionCookie names the cookie holding the session ID.
const SessionCookie = "workdash_session"

// loadSession returns the caller's session. Unknown, expired or missing
// sessions yield a fresh one, which is only persisted once it changes.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
		sess, err := s.sessions.Get(r.Context(), c.Value)
		switch {
		case err == nil:
			s.setSessionCookie(w, r, sess.ID)
			return sess, nil
		case !errors.Is(err, session.ErrNotFound):
			return nil, err
		}
	}

	sess := session.New(s.now())
	s.setSessionCookie(w, r, sess.ID)
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionOrFail loads the session or writes an error fragment.
func (s *Server) sessionOrFail(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.loadSession(w, r)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session load failed",
			applog.FieldError, err, applog.FieldComponent, applog.ComponentSession)
		InternalServerError("Session unavailable").Write(w)
		return nil, false
	}
	return sess, true
}

func (s *Server) saveSession(ctx context.Context, sess *session.Session) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Session save failed",
			applog.FieldError, err, applog.FieldSessionID, sess.ID, applog.FieldComponent, applog.ComponentSession)
		return err
	}
	return nil
}

// handleSessionWindow stores the date window and search query used by every view.
func (s *Server) handleSessionWindow(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	if !sess.HasData() {
		UnprocessableEntityError("Import a file before choosing a date range.").Write(w)
		return
	}

	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	win, changed, err := ParseWindow(body, sess)
	if err != nil {
		BadRequestError(windowErrorMessage(err)).Write(w)
		return
	}

	next := sess.Clone()
	if changed {
		next.SetWindow(win, s.now())
	}
	if q, ok := lookup(body, "q"); ok {
		next.Search = q
		next.UpdatedAt = s.now()
	}
	if err := s.saveSession(r.Context(), next); err != nil {
		InternalServerError("Could not save the date range").Write(w)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Session window updated",
		applog.NewFields().
			WithSessionID(next.ID).
			WithWindow(next.Window.Start.String(), next.Window.End.String()).
			ToSlice()...)

	NewHTMXResponse().
		TriggerWindowChanged(next.Window.Start.String(), next.Window.End.String()).
		Status(http.StatusNoContent).
		Write(w)
}

// handleSessionTheme switches between the dark and light theme.
func (s *Server) handleSessionTheme(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}

	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	theme := body.Get("theme")
	if theme == "" {
		// Toggle when no explicit theme was sent
		theme = session.ThemeLight
		if sess.Theme == session.ThemeLight {
			theme = session.ThemeDark
		}
	}
	if theme != session.ThemeDark && theme != session.ThemeLight {
		BadRequestError("Unknown theme").Write(w)
		return
	}

	next := sess.Clone()
	next.SetTheme(theme, s.now())
	if err := s.saveSession(r.Context(), next); err != nil {
		InternalServerError("Could not save the theme").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerThemeChanged(next.Theme).
		Status(http.StatusNoContent).
		Write(w)
}

// handleSessionReset drops the imported table and view state.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}

	s.dashboard.Invalidate(sess)
	if _, err := s.imports.Reset(r.Context(), sess); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session reset failed",
			applog.FieldError, err, applog.FieldSessionID, sess.ID)
		InternalServerError("Could not reset the session").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSessionReset().
		TriggerSuccessNotification("Data cleared").
		Status(http.StatusNoContent).
		Write(w)
}

func windowErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNoData):
		return "Import a file before choosing a date range."
	case errors.Is(err, ErrBadParam):
		return "Invalid date range: use YYYY-MM-DD dates with the end on or after the start."
	default:
		return "Invalid date range."
	}
}
