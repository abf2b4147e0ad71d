package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlhora/ctrlhora-be/internal/models"
	"github.com/ctrlhora/ctrlhora-be/internal/storage"
)

// TestStoreIntegration exercises identities and the ledger against a live database.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dbURL)
	require.NoError(t, err)
	defer store.Close()

	rut := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), `DELETE FROM attendance_records WHERE user_rut = $1`, rut)
		_, _ = store.pool.Exec(context.Background(), `DELETE FROM identities WHERE rut = $1`, rut)
	})

	created, err := store.CreateIdentity(ctx, models.Identity{
		RUT:               rut,
		Username:          "integration",
		Email:             rut + "@example.com",
		PasswordHash:      "$2a$10$abcdefghijklmnopqrstuu",
		RegistrationToken: "reg",
	})
	require.NoError(t, err)
	assert.Nil(t, created.CurrentToken)

	_, err = store.CreateIdentity(ctx, models.Identity{RUT: rut, Username: "dup", Email: "x", PasswordHash: "x", RegistrationToken: "x"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	token := "tok-" + rut
	require.NoError(t, store.SetCurrentToken(ctx, rut, token))
	found, err := store.FindByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, rut, found.RUT)

	email := "changed-" + rut + "@example.com"
	require.NoError(t, store.UpdateIdentity(ctx, rut, storage.IdentityChanges{Email: &email}))
	found, err = store.FindByRUT(ctx, rut)
	require.NoError(t, err)
	assert.Equal(t, email, found.Email)
	assert.Equal(t, "integration", found.Username)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.OpenRecord(ctx, models.AttendanceRecord{UserRUT: rut, EntryTime: time.Now().UTC(), GPSPosition: "(-33.4,-70.6)", Token: token})
			if err == nil {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opened)

	closed, err := store.CloseLatestOpen(ctx, rut, time.Now().UTC(), "(-33.4,-70.7)")
	require.NoError(t, err)
	require.NotNil(t, closed.ExitTime)

	_, err = store.CloseLatestOpen(ctx, rut, time.Now().UTC(), "(-33.4,-70.7)")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.OpenRecord(ctx, models.AttendanceRecord{UserRUT: rut, EntryTime: time.Now().UTC(), GPSPosition: "(-33.4,-70.6)", Token: token})
	require.NoError(t, err)

	require.NoError(t, store.DeleteIdentity(ctx, rut))
	assert.ErrorIs(t, store.DeleteIdentity(ctx, rut), storage.ErrNotFound)
	records, err := store.ListRecords(ctx, rut, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.NotNil(t, record.ExitTime)
	}
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
