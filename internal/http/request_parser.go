// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// date windows, presets, calendar months and request bodies sent by htmx.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"workdash/internal/analytics"
	"workdash/internal/core"
	"workdash/internal/session"
)

// ErrBadParam marks a query or form parameter that could not be used.
var ErrBadParam = errors.New("invalid parameter")

// values is satisfied by url.Values and RequestBodyParser.
type values interface {
	Get(key string) string
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters. Missing
// or invalid values fall back to the month of fallback. A combined
// month=YYYY-MM value, as sent by the month selector, is accepted too.
func ParseMonthParams(query url.Values, fallback core.Date) MonthParams {
	params := MonthParams{
		Year:  fallback.Year(),
		Month: int(fallback.Month()),
	}

	month := strings.TrimSpace(query.Get("month"))
	if y, m, ok := strings.Cut(month, "-"); ok {
		yy, errY := strconv.Atoi(y)
		mm, errM := strconv.Atoi(m)
		if errY == nil && errM == nil && mm >= 1 && mm <= 12 {
			params.Year, params.Month = yy, mm
		}
		return params
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			params.Year = y
		}
	}
	if month != "" {
		if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}

	return params
}

// ParseWindow resolves the date window requested by preset, start and end.
// A preset wins over explicit dates; a missing start or end keeps that side
// of the session window. It reports false when no window parameter was sent.
func ParseWindow(v values, sess *session.Session) (analytics.Window, bool, error) {
	preset := strings.TrimSpace(v.Get("preset"))
	startStr := strings.TrimSpace(v.Get("start"))
	endStr := strings.TrimSpace(v.Get("end"))
	if preset == "" && startStr == "" && endStr == "" {
		return sess.Window, false, nil
	}

	lo, hi, err := sess.Bounds()
	if err != nil {
		return analytics.Window{}, true, err
	}

	if preset != "" {
		w, err := analytics.ResolvePreset(analytics.Preset(preset), lo, hi)
		if err != nil {
			return analytics.Window{}, true, fmt.Errorf("%w: %w", ErrBadParam, err)
		}
		return w, true, nil
	}

	start, end := sess.Window.Start, sess.Window.End
	if start.IsZero() || end.IsZero() {
		start, end = lo, hi
	}
	if startStr != "" {
		if start, err = core.ParseISODate(startStr); err != nil {
			return analytics.Window{}, true, fmt.Errorf("%w: start: %w", ErrBadParam, err)
		}
	}
	if endStr != "" {
		if end, err = core.ParseISODate(endStr); err != nil {
			return analytics.Window{}, true, fmt.Errorf("%w: end: %w", ErrBadParam, err)
		}
	}

	w, err := analytics.NewWindow(start, end)
	if err != nil {
		return analytics.Window{}, true, fmt.Errorf("%w: %w", ErrBadParam, err)
	}
	return w, true, nil
}

// viewSession applies window and search parameters of one request to a
// copy of sess. The stored session is not changed.
func viewSession(v values, sess *session.Session) (*session.Session, error) {
	w, changed, err := ParseWindow(v, sess)
	if err != nil {
		return nil, err
	}
	view := sess.Clone()
	if changed {
		view.Window = w
	}
	if q, ok := lookup(v, "q"); ok {
		view.Search = sanitizeInput(q)
	}
	return view, nil
}

// lookup distinguishes an empty parameter from a missing one.
func lookup(v values, key string) (string, bool) {
	switch vv := v.(type) {
	case url.Values:
		if _, ok := vv[key]; !ok {
			return "", false
		}
	case *RequestBodyParser:
		if !vv.Has(key) {
			return "", false
		}
	}
	return v.Get(key), true
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, 64<<10))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := sonic.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		return p.formData.Has(key)
	}
	return false
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
