package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/models"
)

func (db *DB) CreateClip(ctx context.Context, clip *models.Clip) error {
	query := `
		INSERT INTO clips (
			id, song_id, clip_index, start_sec, end_sec, duration_sec,
			start_beat_index, end_beat_index, frame_count, prompt, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		clip.ID, clip.SongID, clip.ClipIndex, clip.StartSec, clip.EndSec,
		clip.DurationSec, clip.StartBeatIndex, clip.EndBeatIndex,
		clip.FrameCount, clip.Prompt, clip.Status,
	).Scan(&clip.CreatedAt, &clip.UpdatedAt)
}

func (db *DB) GetClip(ctx context.Context, id uuid.UUID) (*models.Clip, error) {
	query := `
		SELECT
			id, song_id, clip_index, start_sec, end_sec, duration_sec,
			start_beat_index, end_beat_index, frame_count, prompt, status,
			video_asset_id, error_message, created_at, updated_at
		FROM clips
		WHERE id = $1
	`

	clip := &models.Clip{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&clip.ID, &clip.SongID, &clip.ClipIndex, &clip.StartSec, &clip.EndSec,
		&clip.DurationSec, &clip.StartBeatIndex, &clip.EndBeatIndex,
		&clip.FrameCount, &clip.Prompt, &clip.Status,
		&clip.VideoAssetID, &clip.ErrorMessage,
		&clip.CreatedAt, &clip.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}

	return clip, nil
}

func (db *DB) GetSongClips(ctx context.Context, songID uuid.UUID) ([]models.Clip, error) {
	query := `
		SELECT
			id, song_id, clip_index, start_sec, end_sec, duration_sec,
			start_beat_index, end_beat_index, frame_count, prompt, status,
			video_asset_id, error_message, created_at, updated_at
		FROM clips
		WHERE song_id = $1
		ORDER BY clip_index
	`

	rows, err := db.QueryContext(ctx, query, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		var clip models.Clip
		err := rows.Scan(
			&clip.ID, &clip.SongID, &clip.ClipIndex, &clip.StartSec, &clip.EndSec,
			&clip.DurationSec, &clip.StartBeatIndex, &clip.EndBeatIndex,
			&clip.FrameCount, &clip.Prompt, &clip.Status,
			&clip.VideoAssetID, &clip.ErrorMessage,
			&clip.CreatedAt, &clip.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, clip)
	}

	return clips, nil
}

// DeleteSongClips removes all clips for a song. Called before re-planning so
// a song never carries two generations of clip rows.
func (db *DB) DeleteSongClips(ctx context.Context, songID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM clips WHERE song_id = $1`, songID)
	return err
}

func (db *DB) UpdateClipStatus(ctx context.Context, id uuid.UUID, status models.ClipStatus) error {
	query := `UPDATE clips SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateClipVideo(ctx context.Context, id, assetID uuid.UUID) error {
	query := `
		UPDATE clips
		SET video_asset_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, assetID, models.ClipStatusGenerated, id)
	return err
}

func (db *DB) UpdateClipError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE clips
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.ClipStatusFailed, errorMessage, id)
	return err
}

// GetSongClipCount returns the number of clips for a song.
func (db *DB) GetSongClipCount(ctx context.Context, songID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clips WHERE song_id = $1`, songID).Scan(&count)
	return count, err
}

func (db *DB) AreAllClipsGenerated(ctx context.Context, songID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(*) = 0
		FROM clips
		WHERE song_id = $1 AND status != $2
	`

	var allGenerated bool
	err := db.QueryRowContext(ctx, query, songID, models.ClipStatusGenerated).Scan(&allGenerated)
	return allGenerated, err
}
