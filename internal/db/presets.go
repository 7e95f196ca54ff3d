package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/models"
)

func (db *DB) GetStylePreset(ctx context.Context, id uuid.UUID) (*models.StylePreset, error) {
	query := `
		SELECT id, slug, name, description, prompt_addition, created_at, updated_at
		FROM style_presets
		WHERE id = $1
	`

	preset := &models.StylePreset{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&preset.ID, &preset.Slug, &preset.Name, &preset.Description,
		&preset.PromptAddition, &preset.CreatedAt, &preset.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("style preset not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get style preset: %w", err)
	}

	return preset, nil
}

func (db *DB) ListStylePresets(ctx context.Context) ([]models.StylePreset, error) {
	query := `
		SELECT id, slug, name, description, prompt_addition, created_at, updated_at
		FROM style_presets
		ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query style presets: %w", err)
	}
	defer rows.Close()

	var presets []models.StylePreset
	for rows.Next() {
		var p models.StylePreset
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description,
			&p.PromptAddition, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan style preset: %w", err)
		}
		presets = append(presets, p)
	}

	return presets, nil
}
