package worker

import (
	"context"
	"log/slog"

	"workdash/internal/amqp"
	"workdash/internal/services"
)

// UploadWorker consumes upload events and feeds the running import statistics.
type UploadWorker struct {
	stats *services.StatsProcessor
}

func NewUploadWorker(stats *services.StatsProcessor) *UploadWorker {
	return &UploadWorker{stats: stats}
}

// HandleUploadEvent processes a single upload event from AMQP. Events that
// can never be processed are logged and acknowledged so they are not requeued.
func (w *UploadWorker) HandleUploadEvent(ctx context.Context, msg *amqp.UploadEvent) error {
	if msg.SessionID == "" || msg.Rows < 0 || msg.UndatedRows < 0 || msg.UndatedRows > msg.Rows {
		slog.WarnContext(ctx, "Dropping invalid upload event",
			"session_id", msg.SessionID,
			"rows", msg.Rows,
			"undated_rows", msg.UndatedRows)
		return nil
	}

	w.stats.Record(msg)

	slog.InfoContext(ctx, "Processed upload event",
		"session_id", msg.SessionID,
		"source", msg.Source,
		"rows", msg.Rows,
		"undated_rows", msg.UndatedRows,
		"min_date", msg.MinDate,
		"max_date", msg.MaxDate,
		"timestamp", msg.Timestamp)

	return nil
}

// Stats returns the totals recorded so far.
func (w *UploadWorker) Stats() services.ImportStats {
	return w.stats.Snapshot()
}
