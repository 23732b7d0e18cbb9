package sheets

import (
	"context"

	"workdash/internal/core"
)

// Ports for inbound table sources.
type (
	// TableReader loads a whole work-record export as a raw table.
	TableReader interface {
		ReadTable(ctx context.Context) (*core.RawTable, error)
		// Name describes the source for logs and the dashboard header.
		Name() string
	}
)
