package orders

import (
	"context"
	"strings"
)

// NewArchive creates a postgres-backed archive when configured, otherwise
// in-memory.
func NewArchive(ctx context.Context, databaseURL string) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryArchive(), nil
	}
	return NewPostgresArchive(ctx, databaseURL)
}
