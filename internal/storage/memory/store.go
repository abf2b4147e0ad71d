package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps identities and attendance records in process memory. Used
// for tests and STORAGE=memory demo runs.
type Store struct {
	lock       sync.RWMutex
	identities map[string]models.Identity // rut -> identity
	tokens     map[string]string          // session token -> rut
	records    []models.AttendanceRecord
}

func NewStore() *Store {
	return &Store{
		identities: make(map[string]models.Identity),
		tokens:     make(map[string]string),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) CreateIdentity(_ context.Context, identity models.Identity) (models.Identity, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.identities[identity.RUT]; ok {
		return models.Identity{}, storage.ErrAlreadyExists
	}
	if token := identity.SessionToken(); token != "" {
		if _, taken := s.tokens[token]; taken {
			return models.Identity{}, storage.ErrAlreadyExists
		}
		s.tokens[token] = identity.RUT
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	identity = cloneIdentity(identity)
	s.identities[identity.RUT] = identity
	return cloneIdentity(identity), nil
}

func (s *Store) FindByRUT(_ context.Context, rut string) (models.Identity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	identity, ok := s.identities[rut]
	if !ok {
		return models.Identity{}, storage.ErrNotFound
	}
	return cloneIdentity(identity), nil
}

func (s *Store) FindByToken(_ context.Context, token string) (models.Identity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	rut, ok := s.tokens[token]
	if !ok {
		return models.Identity{}, storage.ErrNotFound
	}
	return cloneIdentity(s.identities[rut]), nil
}

func (s *Store) ListIdentities(_ context.Context) ([]models.Identity, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]models.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		out = append(out, cloneIdentity(identity))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RUT < out[j].RUT
	})
	return out, nil
}

func (s *Store) UpdateIdentity(_ context.Context, rut string, changes storage.IdentityChanges) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	identity, ok := s.identities[rut]
	if !ok {
		return storage.ErrNotFound
	}
	if changes.Username != nil {
		identity.Username = *changes.Username
	}
	if changes.FullName != nil {
		identity.FullName = *changes.FullName
	}
	if changes.Email != nil {
		identity.Email = *changes.Email
	}
	if changes.PhoneNumber != nil {
		identity.PhoneNumber = *changes.PhoneNumber
	}
	if changes.PasswordHash != nil {
		identity.PasswordHash = *changes.PasswordHash
	}
	if changes.IsAdmin != nil {
		identity.IsAdmin = *changes.IsAdmin
	}
	s.identities[rut] = identity
	return nil
}

func (s *Store) SetCurrentToken(_ context.Context, rut, token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	identity, ok := s.identities[rut]
	if !ok {
		return storage.ErrNotFound
	}
	if owner, taken := s.tokens[token]; taken && owner != rut {
		return storage.ErrAlreadyExists
	}
	if previous := identity.SessionToken(); previous != "" {
		delete(s.tokens, previous)
	}
	identity.CurrentToken = &token
	s.tokens[token] = rut
	s.identities[rut] = identity
	return nil
}

// DeleteIdentity drops the identity and closes its open records.
func (s *Store) DeleteIdentity(_ context.Context, rut string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	identity, ok := s.identities[rut]
	if !ok {
		return storage.ErrNotFound
	}
	if token := identity.SessionToken(); token != "" {
		delete(s.tokens, token)
	}
	delete(s.identities, rut)

	now := time.Now().UTC()
	for i := range s.records {
		if s.records[i].UserRUT == rut && s.records[i].Open() {
			exit := now
			s.records[i].ExitTime = &exit
		}
	}
	return nil
}

func (s *Store) OpenRecord(_ context.Context, record models.AttendanceRecord) (models.AttendanceRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.latestOpen(record.UserRUT) >= 0 {
		return models.AttendanceRecord{}, storage.ErrAlreadyExists
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.ExitTime = nil
	record.GPSPositionExit = nil
	s.records = append(s.records, record)
	return cloneRecord(record), nil
}

func (s *Store) CloseLatestOpen(_ context.Context, rut string, exitTime time.Time, gpsPosition string) (models.AttendanceRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	idx := s.latestOpen(rut)
	if idx < 0 {
		return models.AttendanceRecord{}, storage.ErrNotFound
	}
	exit := exitTime
	gps := gpsPosition
	s.records[idx].ExitTime = &exit
	s.records[idx].GPSPositionExit = &gps
	return cloneRecord(s.records[idx]), nil
}

func (s *Store) ListRecords(_ context.Context, rut string, limit int) ([]models.AttendanceRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []models.AttendanceRecord
	for _, record := range s.records {
		if record.UserRUT == rut {
			out = append(out, cloneRecord(record))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// latestOpen returns the index of the open record with the highest entry
// time for rut, or -1. Caller holds the lock.
func (s *Store) latestOpen(rut string) int {
	idx := -1
	for i, record := range s.records {
		if record.UserRUT != rut || !record.Open() {
			continue
		}
		if idx < 0 || record.EntryTime.After(s.records[idx].EntryTime) {
			idx = i
		}
	}
	return idx
}

func cloneIdentity(identity models.Identity) models.Identity {
	if identity.CurrentToken != nil {
		token := *identity.CurrentToken
		identity.CurrentToken = &token
	}
	return identity
}

func cloneRecord(record models.AttendanceRecord) models.AttendanceRecord {
	if record.ExitTime != nil {
		exit := *record.ExitTime
		record.ExitTime = &exit
	}
	if record.GPSPositionExit != nil {
		gps := *record.GPSPositionExit
		record.GPSPositionExit = &gps
	}
	return record
}
