// Package store provides run history persistence providers.
package store

import (
	"context"

	"github.com/jvaisto/clerkbot/internal/archiver"
)

// NoOpStore discards run history. It is used when no database is configured.
type NoOpStore struct{}

// RecordRun discards the record.
func (NoOpStore) RecordRun(context.Context, archiver.RunRecord) error { return nil }

// ListRuns always returns an empty list.
func (NoOpStore) ListRuns(context.Context, string, int) ([]archiver.RunRecord, error) {
	return nil, nil
}

// GetRun always reports the run as missing.
func (NoOpStore) GetRun(context.Context, string) (archiver.RunRecord, error) {
	return archiver.RunRecord{}, archiver.ErrRunNotFound
}

// Close is a no-op.
func (NoOpStore) Close() {}
