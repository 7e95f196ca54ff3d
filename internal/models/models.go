package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enums
type SongStatus string

const (
	SongStatusUploaded   SongStatus = "uploaded"
	SongStatusAnalyzing  SongStatus = "analyzing"
	SongStatusPlanning   SongStatus = "planning"
	SongStatusGenerating SongStatus = "generating"
	SongStatusComposing  SongStatus = "composing"
	SongStatusCompleted  SongStatus = "completed"
	SongStatusFailed     SongStatus = "failed"
)

type ClipStatus string

const (
	ClipStatusPlanned    ClipStatus = "planned"
	ClipStatusGenerating ClipStatus = "generating"
	ClipStatusGenerated  ClipStatus = "generated"
	ClipStatusFailed     ClipStatus = "failed"
)

type AssetType string

const (
	AssetTypeSourceAudio AssetType = "source_audio"
	AssetTypePlanJSON    AssetType = "plan_json"
	AssetTypeClipVideo   AssetType = "clip_video"
	AssetTypeFinalVideo  AssetType = "final_video"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// FloatList stores an ordered sequence of float64 values (beat timestamps)
// in a JSONB column.
type FloatList []float64

func (f FloatList) Value() (driver.Value, error) {
	if f == nil {
		return json.Marshal([]float64{})
	}
	return json.Marshal([]float64(f))
}

func (f *FloatList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into FloatList", value)
	}
	return json.Unmarshal(bytes, f)
}

// Models

type Song struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	SourceFilename *string    `json:"source_filename,omitempty"`
	Status         SongStatus `json:"status"`
	DurationSec    *float64   `json:"duration_sec,omitempty"` // Measured during analysis

	// Per-song planning overrides (nil = service defaults from config)
	ClipCount  *int     `json:"clip_count,omitempty"`
	MinClipSec *float64 `json:"min_clip_sec,omitempty"`
	MaxClipSec *float64 `json:"max_clip_sec,omitempty"`
	FPS        *int     `json:"fps,omitempty"`

	StylePresetID     *uuid.UUID `json:"style_preset_id,omitempty"`
	StylePrompt       *string    `json:"style_prompt,omitempty"` // Free-form visual direction for clip prompts
	AudioAssetID      *uuid.UUID `json:"audio_asset_id,omitempty"`
	FinalVideoAssetID *uuid.UUID `json:"final_video_asset_id,omitempty"`
	ErrorCode         *string    `json:"error_code,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// LyricWord is a single transcribed word with its timing in the song.
type LyricWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// LyricWords stores the word-level transcription in a JSONB column. Clip
// prompt generation filters these by clip window to know which lyric lines a
// clip covers.
type LyricWords []LyricWord

func (l LyricWords) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]LyricWord{})
	}
	return json.Marshal([]LyricWord(l))
}

func (l *LyricWords) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into LyricWords", value)
	}
	return json.Unmarshal(bytes, l)
}

// SongAnalysis is the persisted snapshot of the external analysis pipeline:
// beat grid from the Replicate beat tracker, lyrics from Whisper, mood and
// genre from the tagging model. The clip planner reads only the duration and
// beat times.
type SongAnalysis struct {
	ID          uuid.UUID  `json:"id"`
	SongID      uuid.UUID  `json:"song_id"`
	DurationSec float64    `json:"duration_sec"`
	BPM         *float64   `json:"bpm,omitempty"`
	BeatTimes   FloatList  `json:"beat_times"`
	Sections    JSONB      `json:"sections,omitempty"` // e.g. {"intro": 0.0, "verse": 14.2}
	Lyrics      *string    `json:"lyrics,omitempty"`
	LyricWords  LyricWords `json:"lyric_words,omitempty"`
	Mood        *string    `json:"mood,omitempty"`
	Genre       *string    `json:"genre,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Clip struct {
	ID             uuid.UUID  `json:"id"`
	SongID         uuid.UUID  `json:"song_id"`
	ClipIndex      int        `json:"clip_index"`
	StartSec       float64    `json:"start_sec"`
	EndSec         float64    `json:"end_sec"`
	DurationSec    float64    `json:"duration_sec"`
	StartBeatIndex *int       `json:"start_beat_index,omitempty"`
	EndBeatIndex   *int       `json:"end_beat_index,omitempty"`
	FrameCount     int        `json:"frame_count"`
	Prompt         *string    `json:"prompt,omitempty"` // Generation prompt built from style + analysis
	Status         ClipStatus `json:"status"`
	VideoAssetID   *uuid.UUID `json:"video_asset_id,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Asset struct {
	ID            uuid.UUID  `json:"id"`
	SongID        uuid.UUID  `json:"song_id"`
	ClipID        *uuid.UUID `json:"clip_id,omitempty"`
	Type          AssetType  `json:"type"`
	StorageBucket string     `json:"storage_bucket"`
	StoragePath   string     `json:"storage_path"`
	ContentType   *string    `json:"content_type,omitempty"`
	ByteSize      *int64     `json:"byte_size,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Job struct {
	ID           uuid.UUID  `json:"id"`
	SongID       uuid.UUID  `json:"song_id"`
	ClipID       *uuid.UUID `json:"clip_id,omitempty"`
	Type         string     `json:"type"`
	Status       JobStatus  `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type StylePreset struct {
	ID             uuid.UUID `json:"id"`
	Slug           string    `json:"slug"` // Machine name, e.g. "neon_noir"
	Name           string    `json:"name"` // Display name
	Description    *string   `json:"description,omitempty"`
	PromptAddition *string   `json:"prompt_addition,omitempty"` // Suffix appended to clip prompts
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DTOs for API responses

type SongResponse struct {
	Song
	Analysis      *SongAnalysis  `json:"analysis,omitempty"`
	Clips         []ClipResponse `json:"clips,omitempty"`
	AudioURL      *string        `json:"audio_url,omitempty"`
	FinalVideoURL *string        `json:"final_video_url,omitempty"`
}

type ClipResponse struct {
	Clip
	VideoURL *string `json:"video_url,omitempty"`
}

// SongSummary is a lightweight DTO for the list endpoint — no clips or
// analysis payload, just core song fields plus the final video URL.
type SongSummary struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Status        SongStatus `json:"status"`
	DurationSec   *float64   `json:"duration_sec,omitempty"`
	ClipCount     int        `json:"clip_count"`
	FinalVideoURL *string    `json:"final_video_url,omitempty"`
	ErrorCode     *string    `json:"error_code,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ListSongsResponse struct {
	Songs  []SongSummary `json:"songs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type CreateSongResponse struct {
	SongID uuid.UUID  `json:"song_id"`
	Status SongStatus `json:"status"`
}

// PlanPreviewRequest carries caller-supplied segmentation parameters for the
// synchronous plan preview endpoint. Zero values fall back to the service
// defaults.
type PlanPreviewRequest struct {
	ClipCount  int     `json:"clip_count,omitempty"`
	MinClipSec float64 `json:"min_clip_sec,omitempty"`
	MaxClipSec float64 `json:"max_clip_sec,omitempty"`
	FPS        int     `json:"fps,omitempty"`
}
