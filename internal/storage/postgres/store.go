package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for identities and the
// attendance ledger.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			rut TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			current_token TEXT,
			registration_token TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS identities_current_token_unique_idx
			ON identities (current_token) WHERE current_token IS NOT NULL;`,
		// user_rut carries no foreign key: records outlive deleted identities.
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id TEXT PRIMARY KEY,
			user_rut TEXT NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ,
			gps_position TEXT NOT NULL,
			gps_position_exit TEXT,
			token TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS attendance_records_one_open_idx
			ON attendance_records (user_rut) WHERE exit_time IS NULL;`,
		`CREATE INDEX IF NOT EXISTS attendance_records_user_entry_idx
			ON attendance_records (user_rut, entry_time DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const identityColumns = `rut, username, full_name, email, phone_number, password_hash, is_admin, current_token, registration_token, created_at`

// CreateIdentity inserts a new identity row.
func (s *Store) CreateIdentity(ctx context.Context, identity models.Identity) (models.Identity, error) {
	const query = `
		INSERT INTO identities (rut, username, full_name, email, phone_number, password_hash, is_admin, current_token, registration_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + identityColumns
	row := s.pool.QueryRow(ctx, query,
		identity.RUT, identity.Username, identity.FullName, identity.Email, identity.PhoneNumber,
		identity.PasswordHash, identity.IsAdmin, identity.CurrentToken, identity.RegistrationToken)
	created, err := scanIdentity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Identity{}, storage.ErrAlreadyExists
		}
		return models.Identity{}, err
	}
	return created, nil
}

// FindByRUT fetches an identity by its RUT.
func (s *Store) FindByRUT(ctx context.Context, rut string) (models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE rut = $1;`
	return scanIdentity(s.pool.QueryRow(ctx, query, rut))
}

// FindByToken fetches the identity whose live session token matches.
func (s *Store) FindByToken(ctx context.Context, token string) (models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE current_token = $1;`
	return scanIdentity(s.pool.QueryRow(ctx, query, token))
}

// ListIdentities returns every identity ordered by RUT.
func (s *Store) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities ORDER BY rut;`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

// UpdateIdentity writes only the columns present in changes.
func (s *Store) UpdateIdentity(ctx context.Context, rut string, changes storage.IdentityChanges) error {
	if changes.Empty() {
		var one int
		err := s.pool.QueryRow(ctx, `SELECT 1 FROM identities WHERE rut = $1;`, rut).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return err
	}

	var (
		sets []string
		args = []any{rut}
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Username != nil {
		add("username", *changes.Username)
	}
	if changes.FullName != nil {
		add("full_name", *changes.FullName)
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.PhoneNumber != nil {
		add("phone_number", *changes.PhoneNumber)
	}
	if changes.PasswordHash != nil {
		add("password_hash", *changes.PasswordHash)
	}
	if changes.IsAdmin != nil {
		add("is_admin", *changes.IsAdmin)
	}

	query := `UPDATE identities SET ` + strings.Join(sets, ", ") + ` WHERE rut = $1;`
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetCurrentToken replaces the identity's session token.
func (s *Store) SetCurrentToken(ctx context.Context, rut, token string) error {
	const query = `UPDATE identities SET current_token = $2 WHERE rut = $1;`
	tag, err := s.pool.Exec(ctx, query, rut, token)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("set current token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteIdentity removes the identity row and closes its open attendance
// records in the same transaction. Records themselves stay.
func (s *Store) DeleteIdentity(ctx context.Context, rut string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM identities WHERE rut = $1;`, rut)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	const closeOpen = `UPDATE attendance_records SET exit_time = now() WHERE user_rut = $1 AND exit_time IS NULL;`
	if _, err := tx.Exec(ctx, closeOpen, rut); err != nil {
		return fmt.Errorf("close open records: %w", err)
	}
	return tx.Commit(ctx)
}

const recordColumns = `id, user_rut, entry_time, exit_time, gps_position, gps_position_exit, token`

// OpenRecord inserts an open record. The partial unique index on
// (user_rut) WHERE exit_time IS NULL rejects a second open row.
func (s *Store) OpenRecord(ctx context.Context, record models.AttendanceRecord) (models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO attendance_records (id, user_rut, entry_time, gps_position, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + recordColumns
	row := s.pool.QueryRow(ctx, query, record.ID, record.UserRUT, record.EntryTime, record.GPSPosition, record.Token)
	created, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.AttendanceRecord{}, storage.ErrAlreadyExists
		}
		return models.AttendanceRecord{}, err
	}
	return created, nil
}

// CloseLatestOpen closes the most recently opened record in one statement.
func (s *Store) CloseLatestOpen(ctx context.Context, rut string, exitTime time.Time, gpsPosition string) (models.AttendanceRecord, error) {
	const query = `
		UPDATE attendance_records
		SET exit_time = $2, gps_position_exit = $3
		WHERE id = (
			SELECT id FROM attendance_records
			WHERE user_rut = $1 AND exit_time IS NULL
			ORDER BY entry_time DESC
			LIMIT 1
			FOR UPDATE
		) AND exit_time IS NULL
		RETURNING ` + recordColumns
	return scanRecord(s.pool.QueryRow(ctx, query, rut, exitTime, gpsPosition))
}

// ListRecords returns the newest records for rut first. limit <= 0 means all.
func (s *Store) ListRecords(ctx context.Context, rut string, limit int) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE user_rut = $1 ORDER BY entry_time DESC`
	args := []any{rut}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var identity models.Identity
	if err := row.Scan(&identity.RUT, &identity.Username, &identity.FullName, &identity.Email, &identity.PhoneNumber,
		&identity.PasswordHash, &identity.IsAdmin, &identity.CurrentToken, &identity.RegistrationToken, &identity.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, storage.ErrNotFound
		}
		return models.Identity{}, err
	}
	return identity, nil
}

func scanRecord(row pgx.Row) (models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := row.Scan(&record.ID, &record.UserRUT, &record.EntryTime, &record.ExitTime,
		&record.GPSPosition, &record.GPSPositionExit, &record.Token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AttendanceRecord{}, storage.ErrNotFound
		}
		return models.AttendanceRecord{}, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
