// Command migrate-passwords hashes credentials that were imported as
// plaintext. Already-hashed identities are left alone, so it is safe to
// run more than once.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ctrlhora/ctrlhora-be/internal/auth"
	"github.com/ctrlhora/ctrlhora-be/internal/config"
	"github.com/ctrlhora/ctrlhora-be/internal/directory"
	postgres "github.com/ctrlhora/ctrlhora-be/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Storage != config.StoragePostgres {
		log.Fatal().Str("storage", cfg.Storage).Msg("password migration needs STORAGE=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}
	defer store.Close()

	registrations := auth.NewRegistrationTokens(cfg.RegistrationSecret, cfg.RegistrationIssuer, cfg.RegistrationTTL)
	dir := directory.New(store, auth.NewPasswords(cfg.BcryptCost), registrations, false)

	migrated, err := dir.RehashPlaintextPasswords(ctx)
	for _, rut := range migrated {
		log.Info().Str("rut", rut).Msg("updated password")
	}
	if err != nil {
		log.Fatal().Err(err).Int("migrated", len(migrated)).Msg("migration aborted")
	}
	log.Info().Int("migrated", len(migrated)).Msg("migration completed")
}
