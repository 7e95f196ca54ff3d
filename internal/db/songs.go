package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/models"
)

func (db *DB) CreateSong(ctx context.Context, song *models.Song) error {
	query := `
		INSERT INTO songs (
			id, title, source_filename, status, clip_count,
			min_clip_sec, max_clip_sec, fps, style_preset_id, style_prompt
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		song.ID, song.Title, song.SourceFilename, song.Status, song.ClipCount,
		song.MinClipSec, song.MaxClipSec, song.FPS, song.StylePresetID, song.StylePrompt,
	).Scan(&song.CreatedAt, &song.UpdatedAt)
}

func (db *DB) GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error) {
	query := `
		SELECT
			id, title, source_filename, status, duration_sec, clip_count,
			min_clip_sec, max_clip_sec, fps, style_preset_id, style_prompt,
			audio_asset_id, final_video_asset_id, error_code, error_message,
			created_at, updated_at
		FROM songs
		WHERE id = $1
	`

	song := &models.Song{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&song.ID, &song.Title, &song.SourceFilename, &song.Status, &song.DurationSec,
		&song.ClipCount, &song.MinClipSec, &song.MaxClipSec, &song.FPS,
		&song.StylePresetID, &song.StylePrompt,
		&song.AudioAssetID, &song.FinalVideoAssetID,
		&song.ErrorCode, &song.ErrorMessage,
		&song.CreatedAt, &song.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}

	return song, nil
}

// ListSongs returns songs ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListSongs(ctx context.Context, status string, limit, offset int) ([]models.Song, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, title, source_filename, status, duration_sec, clip_count,
			min_clip_sec, max_clip_sec, fps, style_preset_id, style_prompt,
			audio_asset_id, final_video_asset_id, error_code, error_message,
			created_at, updated_at
		FROM songs
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var s models.Song
		if err := rows.Scan(
			&s.ID, &s.Title, &s.SourceFilename, &s.Status, &s.DurationSec,
			&s.ClipCount, &s.MinClipSec, &s.MaxClipSec, &s.FPS,
			&s.StylePresetID, &s.StylePrompt,
			&s.AudioAssetID, &s.FinalVideoAssetID,
			&s.ErrorCode, &s.ErrorMessage,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, s)
	}

	return songs, nil
}

// CountSongs returns the total number of songs, optionally filtered by status.
func (db *DB) CountSongs(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs WHERE status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count)
	return count, err
}

func (db *DB) UpdateSongStatus(ctx context.Context, id uuid.UUID, status models.SongStatus) error {
	query := `UPDATE songs SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateSongDuration(ctx context.Context, id uuid.UUID, durationSec float64) error {
	query := `UPDATE songs SET duration_sec = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, durationSec, id)
	return err
}

func (db *DB) UpdateSongAudio(ctx context.Context, id, assetID uuid.UUID) error {
	query := `UPDATE songs SET audio_asset_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, assetID, id)
	return err
}

func (db *DB) UpdateSongError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE songs
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.SongStatusFailed, errorCode, errorMessage, id)
	return err
}

func (db *DB) SetSongFinalVideo(ctx context.Context, songID, assetID uuid.UUID) error {
	query := `
		UPDATE songs
		SET final_video_asset_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, assetID, models.SongStatusCompleted, songID)
	return err
}
