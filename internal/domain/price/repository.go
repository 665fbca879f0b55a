package price

import (
	"context"
)

// SeriesSource retrieves a full daily history for a symbol
type SeriesSource interface {
	FetchDaily(ctx context.Context, symbol string) (*Series, error)
}

// ArtifactStore persists the intermediate tabular file between fetch and upload
type ArtifactStore interface {
	Save(ctx context.Context, series *Series) (string, error)
	Load(ctx context.Context, symbol string) (*Series, error)
}

// TableWriter replaces the whole price table with a series
type TableWriter interface {
	Replace(ctx context.Context, series *Series) (int64, error)
}

// TableReader loads the price table in ascending date order
type TableReader interface {
	LoadAll(ctx context.Context, symbol string) (*Series, error)
}
