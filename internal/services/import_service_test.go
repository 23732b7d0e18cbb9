package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"workdash/internal/amqp"
	"workdash/internal/core"
	"workdash/internal/session"
	"workdash/internal/sheets/memory"
)

const sampleCSV = `itemID,projectName,workDate,duration,rateApplied,payout,payType,status
A1,Alpha,"Mar 4, 2024",1h 30m,$20.00/hr,$30.00,prepay,pending
A2,Alpha,"Mar 4, 2024",30m,$30.00/hr,$15.00,overtimePay,processed
A3,Beta,"Mar 6, 2024",2h,$20.00/hr,$40.00,prepay,processed
`

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.UploadEvent
	err    error
}

func (p *recordingPublisher) PublishUpload(_ context.Context, e *amqp.UploadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func newTestService(pub EventPublisher) (*ImportService, *session.MemoryStore) {
	store := session.NewMemoryStore(10, time.Hour)
	return NewImportService(store, pub, core.Lenient), store
}

func TestImportService_ImportUpload(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store := newTestService(pub)
	ctx := context.Background()
	sess := session.New(time.Now())

	got, err := svc.ImportUpload(ctx, sess, "records.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("ImportUpload() error = %v", err)
	}
	if got.Table.Len() != 3 {
		t.Errorf("rows = %d, want 3", got.Table.Len())
	}
	if sess.HasData() {
		t.Error("ImportUpload should not modify the caller's session")
	}
	if got.Window.Start != core.NewDate(2024, 3, 4) || got.Window.End != core.NewDate(2024, 3, 6) {
		t.Errorf("window = %s, want full data range", got.Window)
	}

	stored, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if stored.Source != "records.csv" {
		t.Errorf("source = %q, want records.csv", stored.Source)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.SessionID != sess.ID || ev.Rows != 3 || ev.MinDate != "2024-03-04" || ev.MaxDate != "2024-03-06" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Earnings != 85 || ev.Hours != 4 {
		t.Errorf("event totals = %v / %v, want 85 / 4", ev.Earnings, ev.Hours)
	}
}

func TestImportService_PublishFailureDoesNotFailImport(t *testing.T) {
	svc, _ := newTestService(&recordingPublisher{err: errors.New("broker down")})

	if _, err := svc.ImportUpload(context.Background(), session.New(time.Now()), "records.csv", []byte(sampleCSV)); err != nil {
		t.Fatalf("ImportUpload() error = %v, want nil", err)
	}
}

func TestImportService_NilPublisher(t *testing.T) {
	svc, _ := newTestService(nil)

	if _, err := svc.ImportUpload(context.Background(), session.New(time.Now()), "records.csv", []byte(sampleCSV)); err != nil {
		t.Fatalf("ImportUpload() error = %v", err)
	}
}

func TestImportService_SchemaError(t *testing.T) {
	svc, store := newTestService(nil)
	sess := session.New(time.Now())
	data := "itemID,projectName,workDate\nA1,Alpha,\"Mar 4, 2024\"\n"

	_, err := svc.ImportUpload(context.Background(), sess, "records.csv", []byte(data))
	if !errors.Is(err, core.ErrMissingColumns) {
		t.Fatalf("error = %v, want ErrMissingColumns", err)
	}
	var schemaErr *core.SchemaError
	if !errors.As(err, &schemaErr) || !strings.Contains(err.Error(), "payout") {
		t.Errorf("error %v should name the missing columns", err)
	}
	if _, err := store.Get(context.Background(), sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Error("a failed import must not store the session")
	}
}

func TestImportService_StrictPolicy(t *testing.T) {
	store := session.NewMemoryStore(10, time.Hour)
	svc := NewImportService(store, nil, core.Strict)
	data := sampleCSV + "A4,Beta,\"Mar 7, 2024\",2h,$20.00/hr,forty,prepay,pending\n"

	_, err := svc.ImportUpload(context.Background(), session.New(time.Now()), "records.csv", []byte(data))
	if !errors.Is(err, core.ErrMalformedField) {
		t.Fatalf("error = %v, want ErrMalformedField", err)
	}
}

func TestImportService_UnsupportedUpload(t *testing.T) {
	svc, _ := newTestService(nil)

	if _, err := svc.ImportUpload(context.Background(), session.New(time.Now()), "records.pdf", []byte("x")); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}

func TestImportService_ImportSource(t *testing.T) {
	svc, _ := newTestService(nil)
	src := memory.New("sample", &core.RawTable{
		Header: core.RequiredColumns,
		Rows: [][]string{
			{"B1", "Gamma", "Apr 1, 2024", "45m", "$40.00/hr", "$30.00", "prepay", "pending"},
		},
	})

	got, err := svc.ImportSource(context.Background(), session.New(time.Now()), src)
	if err != nil {
		t.Fatalf("ImportSource() error = %v", err)
	}
	if got.Source != "sample" || got.Table.Len() != 1 {
		t.Errorf("got source %q with %d rows", got.Source, got.Table.Len())
	}
}

func TestImportService_Reset(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()
	sess := session.New(time.Now())
	sess.SetTheme(session.ThemeLight, time.Now())

	loaded, err := svc.ImportUpload(ctx, sess, "records.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	reset, err := svc.Reset(ctx, loaded)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if reset.HasData() || reset.ID != sess.ID || reset.Theme != session.ThemeLight {
		t.Errorf("unexpected reset session %+v", reset)
	}
	stored, _ := store.Get(ctx, sess.ID)
	if stored.HasData() {
		t.Error("stored session should be empty after reset")
	}
}
