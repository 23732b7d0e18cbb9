package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"workdash/internal/core"
	applog "workdash/internal/log"
	"workdash/internal/session"
	"workdash/internal/sheets"
)

// DownloadFilename is the attachment name of the CSV export.
const DownloadFilename = "work_data.csv"

// handleUpload imports a multipart CSV or XLSX upload into the session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.countImport(false)
			RequestTooLargeError(fmt.Sprintf("File too large (limit %d MB).", s.maxUploadBytes>>20)).Write(w)
			return
		}
		BadRequestError("Invalid upload: expected a multipart form with a file field.").Write(w)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		UnprocessableEntityError("Choose a .csv or .xlsx file to upload.").Write(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequestError("The upload could not be read.").Write(w)
		return
	}

	name := filepath.Base(sanitizeInput(header.Filename))
	next, err := s.imports.ImportUpload(r.Context(), sess, name, data)
	s.finishImport(w, r, sess, next, err)
}

// handleImportSample loads the bundled sample export.
func (s *Server) handleImportSample(w http.ResponseWriter, r *http.Request) {
	s.importFrom(w, r, s.sample, "Sample data is not available.")
}

// handleImportSheets loads the configured Google Sheets range.
func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	s.importFrom(w, r, s.sheets, "Google Sheets import is not configured.")
}

func (s *Server) importFrom(w http.ResponseWriter, r *http.Request, src sheets.TableReader, missing string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if src == nil {
		NotFoundError(missing).Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}

	next, err := s.imports.ImportSource(r.Context(), sess, src)
	s.finishImport(w, r, sess, next, err)
}

// finishImport answers an import: 422 with the reason for bad content,
// 500 for infrastructure failures, otherwise a summary and data:loaded.
func (s *Server) finishImport(w http.ResponseWriter, r *http.Request, prev, next *session.Session, err error) {
	logger := applog.FromContext(r.Context())
	if err != nil {
		s.countImport(false)
		if msg, ok := importErrorMessage(err); ok {
			logger.WarnContext(r.Context(), "Import rejected",
				applog.FieldError, err, applog.FieldSessionID, prev.ID, applog.FieldOperation, applog.OpImport)
			UnprocessableEntityError(msg).Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Import failed",
			applog.FieldError, err, applog.FieldSessionID, prev.ID, applog.FieldOperation, applog.OpImport)
		InternalServerError("The import could not be completed. Please try again.").
			TriggerErrorNotification("Import failed").
			Write(w)
		return
	}

	s.countImport(true)
	s.dashboard.Invalidate(prev)
	applog.NewStructuredLogger(logger).LogImport(r.Context(), next.ID, next.Source, next.Table.Len(), next.Table.Undated())

	msg := fmt.Sprintf("Loaded %d records from %s", next.Table.Len(), next.Source)
	if n := next.Table.Undated(); n > 0 {
		msg += fmt.Sprintf(" (%d without a valid date)", n)
	}
	SuccessResponse(msg).
		TriggerDataLoaded(next.Source, next.Table.Len(), next.Table.Undated()).
		TriggerFormReset().
		Write(w)
}

// handleDownload streams the filtered normalized table as CSV. Window and
// search parameters override the session state for this request; all=1
// skips the window and keeps undated records.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	if !sess.HasData() {
		NotFoundError("Nothing to download: import a file first.").Write(w)
		return
	}

	query := r.URL.Query()
	view, err := viewSession(query, sess)
	if err != nil {
		BadRequestError(windowErrorMessage(err)).Write(w)
		return
	}
	rows, err := s.dashboard.Rows(view, query.Get("all") == "1")
	if err != nil {
		InternalServerError("Export failed").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadFilename+`"`)
	if err := core.WriteCSV(w, rows); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			applog.FieldError, err, applog.FieldOperation, applog.OpExport)
		return
	}
	atomic.AddInt64(&s.appMetrics.downloads, 1)
}
