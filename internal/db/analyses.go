package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/models"
)

// CreateSongAnalysis upserts the analysis snapshot for a song. Re-running
// analysis replaces the previous snapshot — clips planned later always see
// the freshest beat grid.
func (db *DB) CreateSongAnalysis(ctx context.Context, analysis *models.SongAnalysis) error {
	query := `
		INSERT INTO song_analyses (
			id, song_id, duration_sec, bpm, beat_times, sections, lyrics, lyric_words, mood, genre
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (song_id) DO UPDATE SET
			duration_sec = EXCLUDED.duration_sec,
			bpm = EXCLUDED.bpm,
			beat_times = EXCLUDED.beat_times,
			sections = EXCLUDED.sections,
			lyrics = EXCLUDED.lyrics,
			lyric_words = EXCLUDED.lyric_words,
			mood = EXCLUDED.mood,
			genre = EXCLUDED.genre
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		analysis.ID, analysis.SongID, analysis.DurationSec, analysis.BPM,
		analysis.BeatTimes, analysis.Sections, analysis.Lyrics, analysis.LyricWords,
		analysis.Mood, analysis.Genre,
	).Scan(&analysis.CreatedAt)
}

func (db *DB) GetSongAnalysis(ctx context.Context, songID uuid.UUID) (*models.SongAnalysis, error) {
	query := `
		SELECT id, song_id, duration_sec, bpm, beat_times, sections, lyrics, lyric_words, mood, genre, created_at
		FROM song_analyses
		WHERE song_id = $1
	`

	analysis := &models.SongAnalysis{}
	err := db.QueryRowContext(ctx, query, songID).Scan(
		&analysis.ID, &analysis.SongID, &analysis.DurationSec, &analysis.BPM,
		&analysis.BeatTimes, &analysis.Sections, &analysis.Lyrics, &analysis.LyricWords,
		&analysis.Mood, &analysis.Genre, &analysis.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song analysis not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song analysis: %w", err)
	}

	return analysis, nil
}
