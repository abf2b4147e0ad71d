package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

const testRUT = "11111111-1"

func TestCreateIdentityRejectsDuplicateRUT(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreateIdentity(ctx, models.Identity{RUT: testRUT, Username: "first"})
	require.NoError(t, err)

	_, err = s.CreateIdentity(ctx, models.Identity{RUT: testRUT, Username: "second"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	got, err := s.FindByRUT(ctx, testRUT)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Username)
}

func TestSetCurrentTokenReplacesPreviousToken(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.CreateIdentity(ctx, models.Identity{RUT: testRUT})
	require.NoError(t, err)

	require.NoError(t, s.SetCurrentToken(ctx, testRUT, "t1"))
	require.NoError(t, s.SetCurrentToken(ctx, testRUT, "t2"))

	_, err = s.FindByToken(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.FindByToken(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, testRUT, got.RUT)
}

func TestSetCurrentTokenRejectsTokenOwnedByOther(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: "1-9"})
	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: "2-7"})

	require.NoError(t, s.SetCurrentToken(ctx, "1-9", "shared"))
	assert.ErrorIs(t, s.SetCurrentToken(ctx, "2-7", "shared"), storage.ErrAlreadyExists)
	assert.ErrorIs(t, s.SetCurrentToken(ctx, "0-0", "other"), storage.ErrNotFound)
}

func TestReturnedIdentityIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: testRUT})
	require.NoError(t, s.SetCurrentToken(ctx, testRUT, "t1"))

	got, err := s.FindByRUT(ctx, testRUT)
	require.NoError(t, err)
	*got.CurrentToken = "tampered"

	again, err := s.FindByRUT(ctx, testRUT)
	require.NoError(t, err)
	assert.Equal(t, "t1", again.SessionToken())
}

func TestUpdateAndDeleteIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: testRUT, Email: "old@corp.cl"})
	require.NoError(t, s.SetCurrentToken(ctx, testRUT, "t1"))

	email := "new@corp.cl"
	admin := true
	require.NoError(t, s.UpdateIdentity(ctx, testRUT, storage.IdentityChanges{Email: &email, IsAdmin: &admin}))

	got, _ := s.FindByRUT(ctx, testRUT)
	assert.Equal(t, "new@corp.cl", got.Email)
	assert.True(t, got.IsAdmin)

	assert.ErrorIs(t, s.UpdateIdentity(ctx, "0-0", storage.IdentityChanges{Email: &email}), storage.ErrNotFound)

	require.NoError(t, s.DeleteIdentity(ctx, testRUT))
	assert.ErrorIs(t, s.DeleteIdentity(ctx, testRUT), storage.ErrNotFound)
	_, err := s.FindByToken(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteIdentityClosesOpenRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: testRUT})
	_, err := s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: time.Now(), GPSPosition: "(-33.4,-70.6)"})
	require.NoError(t, err)
	_, err = s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: "2-7", EntryTime: time.Now(), GPSPosition: "(-33.4,-70.6)"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteIdentity(ctx, testRUT))

	records, err := s.ListRecords(ctx, testRUT, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].ExitTime)
	assert.Nil(t, records[0].GPSPositionExit)

	others, err := s.ListRecords(ctx, "2-7", 0)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.True(t, others[0].Open())

	_, _ = s.CreateIdentity(ctx, models.Identity{RUT: testRUT})
	_, err = s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: time.Now(), GPSPosition: "(-33.4,-70.6)"})
	assert.NoError(t, err)
}

func TestOpenRecordAllowsOneOpenPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: time.Now()})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: time.Now()})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: "2-7", EntryTime: time.Now()})
	assert.NoError(t, err)
}

func TestOpenRecordIsAtomicUnderContention(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	const workers = 64
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: time.Now()}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	records, err := s.ListRecords(ctx, testRUT, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCloseLatestOpenPicksHighestEntryTime(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Legacy data can hold two open rows; seed them directly.
	s.records = append(s.records,
		models.AttendanceRecord{ID: "newer", UserRUT: testRUT, EntryTime: base.Add(time.Hour)},
		models.AttendanceRecord{ID: "older", UserRUT: testRUT, EntryTime: base},
	)

	closed, err := s.CloseLatestOpen(ctx, testRUT, base.Add(2*time.Hour), "(-33.4,-70.7)")
	require.NoError(t, err)
	assert.Equal(t, "newer", closed.ID)
	require.NotNil(t, closed.ExitTime)
	assert.Equal(t, "(-33.4,-70.7)", *closed.GPSPositionExit)

	closed, err = s.CloseLatestOpen(ctx, testRUT, base.Add(3*time.Hour), "x")
	require.NoError(t, err)
	assert.Equal(t, "older", closed.ID)

	_, err = s.CloseLatestOpen(ctx, testRUT, base.Add(4*time.Hour), "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListRecordsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.OpenRecord(ctx, models.AttendanceRecord{UserRUT: testRUT, EntryTime: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
		_, err = s.CloseLatestOpen(ctx, testRUT, base.Add(time.Duration(i)*time.Hour+time.Minute), "x")
		require.NoError(t, err)
	}

	records, err := s.ListRecords(ctx, testRUT, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, base.Add(2*time.Hour), records[0].EntryTime)
	assert.Equal(t, base.Add(time.Hour), records[1].EntryTime)
}
