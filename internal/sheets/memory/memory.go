package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"workdash/internal/core"
	"workdash/internal/ingest"
	ports "workdash/internal/sheets"
)

// SampleFile is the file NewFromFiles loads from its base directory.
const SampleFile = "sample_records.csv"

// Source serves a raw table held in memory, typically the bundled sample export.
type Source struct {
	mu   sync.Mutex
	name string
	raw  *core.RawTable
}

var _ ports.TableReader = (*Source)(nil)

func New(name string, raw *core.RawTable) *Source {
	return &Source{name: name, raw: raw}
}

// NewFromFiles loads SampleFile from base.
func NewFromFiles(base string) (*Source, error) {
	path := filepath.Join(base, SampleFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	raw, err := ingest.ReadFile(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse sample %s: %w", path, err)
	}
	return New(SampleFile, raw), nil
}

func (s *Source) Name() string { return s.name }

// ReadTable returns a deep copy so callers may not alter the stored table.
func (s *Source) ReadTable(_ context.Context) (*core.RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil, fmt.Errorf("source %s has no table", s.name)
	}
	out := &core.RawTable{
		Header: append([]string(nil), s.raw.Header...),
		Rows:   make([][]string, len(s.raw.Rows)),
	}
	for i, row := range s.raw.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out, nil
}
