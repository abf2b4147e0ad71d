package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ctrlhora/ctrlhora-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// IdentityChanges holds the columns an update writes. Nil means keep.
type IdentityChanges struct {
	Username     *string
	FullName     *string
	Email        *string
	PhoneNumber  *string
	PasswordHash *string
	IsAdmin      *bool
}

// Empty reports whether the update would write nothing.
func (c IdentityChanges) Empty() bool {
	return c.Username == nil && c.FullName == nil && c.Email == nil &&
		c.PhoneNumber == nil && c.PasswordHash == nil && c.IsAdmin == nil
}

// IdentityStore captures persistence operations over identities.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity models.Identity) (models.Identity, error)
	FindByRUT(ctx context.Context, rut string) (models.Identity, error)
	FindByToken(ctx context.Context, token string) (models.Identity, error)
	ListIdentities(ctx context.Context) ([]models.Identity, error)
	UpdateIdentity(ctx context.Context, rut string, changes IdentityChanges) error
	SetCurrentToken(ctx context.Context, rut, token string) error
	DeleteIdentity(ctx context.Context, rut string) error
}

// AttendanceStore persists the ledger. OpenRecord and CloseLatestOpen must
// each be atomic: OpenRecord fails with ErrAlreadyExists when the user
// already has a record without exit, and CloseLatestOpen closes the open
// record with the latest entry time or fails with ErrNotFound.
type AttendanceStore interface {
	OpenRecord(ctx context.Context, record models.AttendanceRecord) (models.AttendanceRecord, error)
	CloseLatestOpen(ctx context.Context, rut string, exitTime time.Time, gpsPosition string) (models.AttendanceRecord, error)
	ListRecords(ctx context.Context, rut string, limit int) ([]models.AttendanceRecord, error)
}

// Store is the single process-wide handle injected into every component.
type Store interface {
	IdentityStore
	AttendanceStore
	Ping(ctx context.Context) error
	Close()
}
