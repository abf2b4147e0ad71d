// Package attendance keeps the clock-in/clock-out ledger. A user has at
// most one open record at a time; the store enforces that atomically.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ctrlhora/ctrlhora-be/internal/apperrors"
	"github.com/ctrlhora/ctrlhora-be/internal/auth"
	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Ledger registers entries and exits. Timestamps come from its own clock.
type Ledger struct {
	store storage.AttendanceStore
	now   func() time.Time
}

// NewLedger wires the ledger to its store.
func NewLedger(store storage.AttendanceStore) *Ledger {
	return &Ledger{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterEntry opens a record for identity.
func (l *Ledger) RegisterEntry(ctx context.Context, identity models.Identity, gpsPosition string) (models.AttendanceRecord, error) {
	if _, err := auth.RequireNonAdmin(identity); err != nil {
		return models.AttendanceRecord{}, err
	}
	gpsPosition, err := normalizeGPS(gpsPosition)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	record, err := l.store.OpenRecord(ctx, models.AttendanceRecord{
		UserRUT:     identity.RUT,
		EntryTime:   l.now(),
		GPSPosition: gpsPosition,
		Token:       identity.SessionToken(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.AttendanceRecord{}, apperrors.ErrDuplicateEntry
		}
		return models.AttendanceRecord{}, fmt.Errorf("open record: %w", err)
	}
	return record, nil
}

// RegisterExit closes identity's open record. With more than one open
// record, the one with the latest entry time is closed.
func (l *Ledger) RegisterExit(ctx context.Context, identity models.Identity, gpsPosition string) error {
	if _, err := auth.RequireNonAdmin(identity); err != nil {
		return err
	}
	gpsPosition, err := normalizeGPS(gpsPosition)
	if err != nil {
		return err
	}

	if _, err := l.store.CloseLatestOpen(ctx, identity.RUT, l.now(), gpsPosition); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.ErrNoActiveEntry
		}
		return fmt.Errorf("close record: %w", err)
	}
	return nil
}

// History lists identity's own records, newest first.
func (l *Ledger) History(ctx context.Context, identity models.Identity, limit int) ([]models.AttendanceRecord, error) {
	if _, err := auth.RequireNonAdmin(identity); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	records, err := l.store.ListRecords(ctx, identity.RUT, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

func normalizeGPS(gps string) (string, error) {
	gps = strings.TrimSpace(gps)
	if gps == "" {
		return "", apperrors.Invalid("gps_position is required")
	}
	return gps, nil
}
