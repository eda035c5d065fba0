package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"tunevault/internal/config"
	"tunevault/internal/logging"
	"tunevault/internal/store"
)

func main() {
	logging.SetGlobal(logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}))

	if len(os.Args) != 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		log.Fatal().Msg("usage: migrate [up|down]")
	}

	dsn, err := config.DatabaseURL()
	if err != nil {
		log.Fatal().Err(err).Msg("load database config")
	}

	dir := store.Direction(os.Args[1])
	if err := store.RunMigrations(dsn, dir); err != nil {
		log.Fatal().Err(err).Str("direction", string(dir)).Msg("migration failed")
	}
	log.Info().Str("direction", string(dir)).Msg("migrations applied")
}
