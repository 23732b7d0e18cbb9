package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"workdash/internal/amqp"
)

// StatsProcessorConfig holds configuration for the stats processor
type StatsProcessorConfig struct {
	// ReportInterval is how often the running totals are logged (default: 1m)
	ReportInterval time.Duration

	// MaxSources caps the number of sources tracked individually (default: 50)
	MaxSources int
}

// DefaultStatsProcessorConfig returns sensible defaults
func DefaultStatsProcessorConfig() StatsProcessorConfig {
	return StatsProcessorConfig{
		ReportInterval: 1 * time.Minute,
		MaxSources:     50,
	}
}

// SourceStats aggregates the imports of one source name.
type SourceStats struct {
	Source      string    `json:"source"`
	Imports     int       `json:"imports"`
	Rows        int       `json:"rows"`
	UndatedRows int       `json:"undated_rows"`
	LastImport  time.Time `json:"last_import"`
}

// ImportStats is a snapshot of everything recorded since start.
type ImportStats struct {
	Imports     int           `json:"imports"`
	Sessions    int           `json:"sessions"`
	Rows        int           `json:"rows"`
	UndatedRows int           `json:"undated_rows"`
	Hours       float64       `json:"hours"`
	Earnings    float64       `json:"earnings"`
	MinDate     string        `json:"min_date,omitempty"`
	MaxDate     string        `json:"max_date,omitempty"`
	Sources     []SourceStats `json:"sources"`
}

// StatsProcessor accumulates upload events and logs running totals.
type StatsProcessor struct {
	config StatsProcessorConfig

	statsMu  sync.Mutex
	totals   ImportStats
	sessions map[string]struct{}
	sources  map[string]*SourceStats

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewStatsProcessor creates a new stats processor
func NewStatsProcessor(config StatsProcessorConfig) *StatsProcessor {
	if config.ReportInterval <= 0 {
		config.ReportInterval = DefaultStatsProcessorConfig().ReportInterval
	}
	return &StatsProcessor{
		config:   config,
		sessions: make(map[string]struct{}),
		sources:  make(map[string]*SourceStats),
	}
}

// Record adds one upload event to the running totals.
func (p *StatsProcessor) Record(event *amqp.UploadEvent) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.totals.Imports++
	p.totals.Rows += event.Rows
	p.totals.UndatedRows += event.UndatedRows
	p.totals.Hours += event.Hours
	p.totals.Earnings += event.Earnings
	p.sessions[event.SessionID] = struct{}{}

	// ISO dates compare lexically
	if event.MinDate != "" && (p.totals.MinDate == "" || event.MinDate < p.totals.MinDate) {
		p.totals.MinDate = event.MinDate
	}
	if event.MaxDate > p.totals.MaxDate {
		p.totals.MaxDate = event.MaxDate
	}

	src, ok := p.sources[event.Source]
	if !ok {
		if p.config.MaxSources > 0 && len(p.sources) >= p.config.MaxSources {
			p.evictOldestSource()
		}
		src = &SourceStats{Source: event.Source}
		p.sources[event.Source] = src
	}
	src.Imports++
	src.Rows += event.Rows
	src.UndatedRows += event.UndatedRows
	if event.Timestamp.After(src.LastImport) {
		src.LastImport = event.Timestamp
	}
}

func (p *StatsProcessor) evictOldestSource() {
	var oldest *SourceStats
	for _, s := range p.sources {
		if oldest == nil || s.LastImport.Before(oldest.LastImport) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(p.sources, oldest.Source)
	}
}

// Snapshot returns a copy of the current totals; sources are sorted by import count.
func (p *StatsProcessor) Snapshot() ImportStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	out := p.totals
	out.Sessions = len(p.sessions)
	out.Sources = make([]SourceStats, 0, len(p.sources))
	for _, s := range p.sources {
		out.Sources = append(out.Sources, *s)
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		if out.Sources[i].Imports != out.Sources[j].Imports {
			return out.Sources[i].Imports > out.Sources[j].Imports
		}
		return out.Sources[i].Source < out.Sources[j].Source
	})
	return out
}

// Start begins the reporting loop. Returns an error if already running.
func (p *StatsProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("stats processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Stats processor started",
		"report_interval", p.config.ReportInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *StatsProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Stats processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Stats processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *StatsProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *StatsProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.report(ctx)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.report(ctx)
		}
	}
}

func (p *StatsProcessor) report(ctx context.Context) {
	s := p.Snapshot()
	if s.Imports == 0 {
		return
	}
	slog.InfoContext(ctx, "Import statistics",
		"imports", s.Imports,
		"sessions", s.Sessions,
		"rows", s.Rows,
		"undated_rows", s.UndatedRows,
		"hours", s.Hours,
		"earnings", s.Earnings,
		"min_date", s.MinDate,
		"max_date", s.MaxDate,
		"sources", len(s.Sources))
}
