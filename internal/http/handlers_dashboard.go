package http

import (
	"errors"
	"net/http"
	"net/url"

	"workdash/internal/analytics"
	"workdash/internal/core"
	applog "workdash/internal/log"
	"workdash/internal/session"
)

// maxDataRows caps the rows rendered by the data view; the CSV download
// always carries the full selection.
const maxDataRows = 500

// pageData is handed to every template.
type pageData struct {
	Session     *session.Session
	HasData     bool
	Rows        int
	Undated     int
	Min, Max    core.Date
	HasDates    bool
	Presets     []analytics.PresetOption
	Query       string
	Report      *analytics.Report
	Sample      bool
	Sheets      bool
	MaxUploadMB int64

	Calendar *analytics.CalendarMonth
	Months   []analytics.MonthOption
	Selected string

	Data *dataView
}

type dataView struct {
	Header    []string
	Rows      [][]string
	Total     int
	Truncated bool
	Search    string
	All       bool
	Download  string
}

func (s *Server) newPageData(sess *session.Session) pageData {
	data := pageData{
		Session:     sess,
		HasData:     sess.HasData(),
		Sample:      s.sample != nil,
		Sheets:      s.sheets != nil,
		MaxUploadMB: s.maxUploadBytes >> 20,
	}
	if !data.HasData {
		return data
	}
	data.Rows = sess.Table.Len()
	data.Undated = sess.Table.Undated()
	if lo, hi, err := sess.Bounds(); err == nil {
		data.Min, data.Max, data.HasDates = lo, hi, true
		data.Presets = analytics.Presets(lo, hi)
	}
	data.Query = windowQuery(sess)
	return data
}

// windowQuery encodes the session window for chart data URLs.
func windowQuery(sess *session.Session) string {
	v := url.Values{}
	if !sess.Window.Start.IsZero() {
		v.Set("start", sess.Window.Start.String())
		v.Set("end", sess.Window.End.String())
	}
	return v.Encode()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	s.render(w, r, "index.html", s.newPageData(sess))
}

// partials maps /ui/{view} to its template. Views needing a report get one
// computed for the requested window.
var partials = map[string]struct {
	template string
	report   bool
}{
	"dashboard": {"dashboard.html", true},
	"overview":  {"overview.html", true},
	"breakdown": {"breakdown.html", true},
	"hours":     {"hours.html", true},
	"timeline":  {"timeline.html", true},
	"calendar":  {"calendar.html", false},
	"data":      {"data.html", false},
}

// handlePartial renders one htmx fragment of the dashboard.
func (s *Server) handlePartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, ok := partials[r.PathValue("view")]
	if !ok {
		NotFoundError("Unknown view").Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	if !sess.HasData() {
		s.render(w, r, "empty.html", s.newPageData(sess))
		return
	}

	query := r.URL.Query()
	view, err := viewSession(query, sess)
	if err != nil {
		BadRequestError(windowErrorMessage(err)).Write(w)
		return
	}
	data := s.newPageData(view)

	switch r.PathValue("view") {
	case "calendar":
		s.fillCalendar(&data, view, query)
	case "data":
		if err := s.fillData(&data, view, query.Get("all") == "1"); err != nil {
			InternalServerError("Could not load records").Write(w)
			return
		}
	}

	if p.report && data.HasDates {
		rep, err := s.dashboard.Report(r.Context(), view)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report failed",
				applog.NewFields().
					WithError(err).
					WithSessionID(view.ID).
					WithOperation(applog.OpAggregate).
					WithWindow(view.Window.Start.String(), view.Window.End.String()).
					ToSlice()...)
			InternalServerError("Could not compute the dashboard").Write(w)
			return
		}
		data.Report = rep
	}

	s.render(w, r, p.template, data)
}

func (s *Server) fillCalendar(data *pageData, sess *session.Session, query url.Values) {
	if !data.HasDates {
		return
	}
	params := ParseMonthParams(query, data.Max)
	cal := analytics.Calendar(sess.Table, params.Year, params.Month)
	data.Calendar = &cal
	data.Months = analytics.CalendarMonths(data.Min, s.now())
	data.Selected = core.NewDate(params.Year, params.Month, 1).Format("2006-01")
}

func (s *Server) fillData(data *pageData, sess *session.Session, all bool) error {
	rows, err := s.dashboard.Rows(sess, all)
	if err != nil {
		return err
	}
	dv := &dataView{
		Header: rows.ExportHeader(),
		Total:  rows.Len(),
		Search: sess.Search,
		All:    all,
	}
	q, err := url.ParseQuery(windowQuery(sess))
	if err != nil {
		return err
	}
	if sess.Search != "" {
		q.Set("q", sess.Search)
	}
	if all {
		q.Set("all", "1")
	}
	dv.Download = q.Encode()
	n := rows.Len()
	if n > maxDataRows {
		n = maxDataRows
		dv.Truncated = true
	}
	dv.Rows = make([][]string, n)
	for i := 0; i < n; i++ {
		dv.Rows[i] = rows.Records[i].ExportValues()
	}
	data.Data = dv
	return nil
}

// reportViews exposes parts of the report as chart data.
var reportViews = map[string]func(*analytics.Report) any{
	"daily":         func(r *analytics.Report) any { return r.Daily },
	"trend":         func(r *analytics.Report) any { return r.Trend },
	"kpis":          func(r *analytics.Report) any { return r.KPIs },
	"paytypes":      func(r *analytics.Report) any { return r.PayTypes },
	"statuses":      func(r *analytics.Report) any { return map[string]any{"statuses": r.Statuses, "payments": r.Payments} },
	"projects":      func(r *analytics.Report) any { return r.Projects },
	"rates":         func(r *analytics.Report) any { return r.Rates },
	"overtime":      func(r *analytics.Report) any { return r.Overtime },
	"paytype-daily": func(r *analytics.Report) any { return r.PayTypeDays },
	"weekdays":      func(r *analytics.Report) any { return r.Weekdays },
	"monthly":       func(r *analytics.Report) any { return r.Monthly },
	"heatmap":       func(r *analytics.Report) any { return r.Heatmap },
	"hours-stats":   func(r *analytics.Report) any { return r.HoursStats },
	"distribution": func(r *analytics.Report) any {
		return map[string]any{"hours": r.HoursDist, "earnings": r.EarningsDist}
	},
	"timeline": func(r *analytics.Report) any { return r.Timeline },
	"report":   func(r *analytics.Report) any { return r },
}

// apiSession loads the session and applies request parameters, writing a
// JSON error when that is not possible.
func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return nil, false
	}
	sess, err := s.loadSession(w, r)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session load failed", applog.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "session unavailable")
		return nil, false
	}
	if !sess.HasData() {
		writeJSONError(w, http.StatusNotFound, "no data imported")
		return nil, false
	}
	view, err := viewSession(r.URL.Query(), sess)
	if err != nil {
		if errors.Is(err, ErrBadParam) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
		} else {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return nil, false
	}
	return view, true
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	pick, ok := reportViews[r.PathValue("view")]
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown view")
		return
	}
	view, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	if _, _, err := view.Bounds(); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rep, err := s.dashboard.Report(r.Context(), view)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report failed",
			applog.FieldError, err, applog.FieldView, r.PathValue("view"))
		writeJSONError(w, http.StatusInternalServerError, "report failed")
		return
	}
	writeJSON(w, http.StatusOK, pick(rep))
}

// handleAPICalendar returns one month grid over the whole table.
func (s *Server) handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	lo, hi, err := view.Bounds()
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	params := ParseMonthParams(r.URL.Query(), hi)
	writeJSON(w, http.StatusOK, map[string]any{
		"calendar": analytics.Calendar(view.Table, params.Year, params.Month),
		"months":   analytics.CalendarMonths(lo, s.now()),
	})
}

// handleAPIPresets lists the quick date selections for the imported data.
func (s *Server) handleAPIPresets(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	lo, hi, err := view.Bounds()
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analytics.Presets(lo, hi))
}

// rangeInfo describes the imported table and the active window.
type rangeInfo struct {
	Source  string           `json:"source"`
	Rows    int              `json:"rows"`
	Undated int              `json:"undated_rows"`
	Min     *core.Date       `json:"min_date"`
	Max     *core.Date       `json:"max_date"`
	Window  analytics.Window `json:"window"`
	Search  string           `json:"search"`
	Theme   string           `json:"theme"`
}

func (s *Server) handleAPIRange(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	info := rangeInfo{
		Source:  view.Source,
		Rows:    view.Table.Len(),
		Undated: view.Table.Undated(),
		Window:  view.Window,
		Search:  view.Search,
		Theme:   view.Theme,
	}
	if lo, hi, err := view.Bounds(); err == nil {
		info.Min, info.Max = &lo, &hi
	}
	writeJSON(w, http.StatusOK, info)
}
