package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tunevault/internal/auth"
	"tunevault/internal/models"
)

// catalogSeeder is implemented by both storage drivers.
type catalogSeeder interface {
	CatalogEmpty(ctx context.Context) (bool, error)
	AddGenre(ctx context.Context, g models.Genre) (models.Genre, error)
	AddSong(ctx context.Context, s models.Song) (models.Song, error)
}

type demoSong struct {
	title     string
	thumbnail string
	duration  int
	genres    []string
}

var demoGenres = []models.Genre{
	{Name: "Rock", Description: "Guitars, drums and attitude"},
	{Name: "Jazz", Description: "Swing, bebop and beyond"},
	{Name: "Electronic", Description: "Synths and drum machines"},
}

var demoSongs = []demoSong{
	{"Highway Lights", "https://img.tunevault.dev/highway.jpg", 214, []string{"Rock"}},
	{"Basement Amp", "https://img.tunevault.dev/amp.jpg", 187, []string{"Rock"}},
	{"Blue Room", "https://img.tunevault.dev/blue-room.jpg", 305, []string{"Jazz"}},
	{"Late Set", "", 262, []string{"Jazz"}},
	{"Analog Dawn", "https://img.tunevault.dev/dawn.jpg", 240, []string{"Electronic"}},
	{"Fusion Drive", "https://img.tunevault.dev/fusion.jpg", 276, []string{"Rock", "Jazz"}},
}

// bootstrapDemoData fills an empty catalog with a few genres and songs so the
// playlist endpoints have something to work with in development.
func bootstrapDemoData(ctx context.Context, seeder catalogSeeder) error {
	empty, err := seeder.CatalogEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if !empty {
		return nil
	}

	genreIDs := make(map[string]int64, len(demoGenres))
	for _, g := range demoGenres {
		created, err := seeder.AddGenre(ctx, g)
		if err != nil {
			return fmt.Errorf("bootstrap genre %q: %w", g.Name, err)
		}
		genreIDs[g.Name] = created.ID
	}

	for _, s := range demoSongs {
		song := models.Song{Title: s.title, Thumbnail: s.thumbnail, Duration: s.duration, ArtistID: 1}
		for _, name := range s.genres {
			song.GenreIDs = append(song.GenreIDs, genreIDs[name])
		}
		if _, err := seeder.AddSong(ctx, song); err != nil {
			return fmt.Errorf("bootstrap song %q: %w", s.title, err)
		}
	}

	log.Info().Int("genres", len(demoGenres)).Int("songs", len(demoSongs)).Msg("demo catalog seeded")
	return nil
}

// logDevTokens prints bearer tokens for a demo admin and user. Development
// only; production tokens come from the identity service.
func logDevTokens(verifier *auth.Verifier) {
	for _, p := range []auth.Principal{auth.Admin(1), auth.User(2)} {
		token, err := verifier.Sign(p, 24*time.Hour)
		if err != nil {
			log.Warn().Err(err).Msg("sign demo token")
			continue
		}
		log.Info().Str("role", string(p.Role)).Int64("user_id", p.ID).Str("token", token).Msg("demo bearer token")
	}
}
