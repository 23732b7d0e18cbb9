package worker

import (
	"context"
	"testing"
	"time"

	"workdash/internal/amqp"
	"workdash/internal/services"
)

func TestUploadWorker_HandleUploadEvent(t *testing.T) {
	w := NewUploadWorker(services.NewStatsProcessor(services.DefaultStatsProcessorConfig()))
	ctx := context.Background()

	if err := w.HandleUploadEvent(ctx, amqp.NewUploadEvent("s1", "a.csv", 10, 2)); err != nil {
		t.Fatalf("HandleUploadEvent() error = %v", err)
	}
	if err := w.HandleUploadEvent(ctx, amqp.NewUploadEvent("s2", "b.csv", 5, 0)); err != nil {
		t.Fatalf("HandleUploadEvent() error = %v", err)
	}

	s := w.Stats()
	if s.Imports != 2 || s.Rows != 15 || s.UndatedRows != 2 || s.Sessions != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestUploadWorker_DropsInvalidEvents(t *testing.T) {
	w := NewUploadWorker(services.NewStatsProcessor(services.DefaultStatsProcessorConfig()))

	invalid := []*amqp.UploadEvent{
		{Source: "a.csv", Rows: 1, Timestamp: time.Now()},
		{SessionID: "s", Rows: -1},
		{SessionID: "s", Rows: 1, UndatedRows: 2},
	}
	for _, ev := range invalid {
		if err := w.HandleUploadEvent(context.Background(), ev); err != nil {
			t.Errorf("invalid events should be acknowledged, got %v", err)
		}
	}
	if s := w.Stats(); s.Imports != 0 {
		t.Errorf("imports = %d, want 0", s.Imports)
	}
}
