package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/db"
	"github.com/marbeld/beatcut/internal/models"
	"github.com/marbeld/beatcut/internal/planner"
	"github.com/marbeld/beatcut/internal/queue"
	"github.com/marbeld/beatcut/internal/storage"
)

// maxUploadBytes caps the multipart form size for song uploads (50 MB).
const maxUploadBytes = 50 << 20

type Handler struct {
	db           *db.DB
	queue        *queue.Queue
	storage      *storage.Storage
	planDefaults planner.Config
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, planDefaults planner.Config) *Handler {
	return &Handler{
		db:           database,
		queue:        q,
		storage:      stor,
		planDefaults: planDefaults,
	}
}

// CreateSong handles POST /v1/songs — multipart upload of a song file plus
// optional planning overrides and style direction.
//
// Form fields:
//   - audio (file, required): the song audio (mp3/wav/m4a)
//   - title (required)
//   - clip_count, min_clip_sec, max_clip_sec, fps: planning overrides
//   - style_preset_id, style_prompt: visual direction for clip prompts
func (h *Handler) CreateSong(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Audio file is required (form field 'audio')")
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read audio file")
		return
	}
	if len(audioData) == 0 {
		respondError(w, http.StatusBadRequest, "Audio file is empty")
		return
	}

	song := &models.Song{
		ID:             uuid.New(),
		Title:          title,
		SourceFilename: &header.Filename,
		Status:         models.SongStatusUploaded,
	}

	// Optional planning overrides — validated properly at planning time,
	// here we only reject values that can never be valid
	if v := r.FormValue("clip_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "clip_count must be a positive integer")
			return
		}
		song.ClipCount = &n
	}
	if v := r.FormValue("min_clip_sec"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			respondError(w, http.StatusBadRequest, "min_clip_sec must be a positive number")
			return
		}
		song.MinClipSec = &f
	}
	if v := r.FormValue("max_clip_sec"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			respondError(w, http.StatusBadRequest, "max_clip_sec must be a positive number")
			return
		}
		song.MaxClipSec = &f
	}
	if v := r.FormValue("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "fps must be a positive integer")
			return
		}
		song.FPS = &n
	}

	if v := r.FormValue("style_preset_id"); v != "" {
		presetID, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid style_preset_id")
			return
		}
		if _, err := h.db.GetStylePreset(r.Context(), presetID); err != nil {
			respondError(w, http.StatusBadRequest, "Unknown style preset")
			return
		}
		song.StylePresetID = &presetID
	}
	if v := r.FormValue("style_prompt"); v != "" {
		song.StylePrompt = &v
	}

	if err := h.db.CreateSong(r.Context(), song); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create song")
		return
	}

	// Upload the source audio and record it as an asset
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storagePath := h.storage.GenerateStoragePath(song.ID, "source"+audioExt(header.Filename))
	if err := h.storage.Upload(r.Context(), storagePath, audioData, contentType); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store audio file")
		return
	}

	byteSize := int64(len(audioData))
	asset := &models.Asset{
		ID:            uuid.New(),
		SongID:        song.ID,
		Type:          models.AssetTypeSourceAudio,
		StorageBucket: h.storage.Bucket,
		StoragePath:   storagePath,
		ContentType:   &contentType,
		ByteSize:      &byteSize,
	}
	if err := h.db.CreateAsset(r.Context(), asset); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record audio asset")
		return
	}
	if err := h.db.UpdateSongAudio(r.Context(), song.ID, asset.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to link audio asset")
		return
	}

	// Kick off the pipeline: analysis first, planning follows automatically
	jobID := uuid.New()
	job := &models.Job{
		ID:     jobID,
		SongID: song.ID,
		Type:   "analyze_song",
		Status: models.JobStatusQueued,
	}
	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}
	if err := h.queue.EnqueueAnalyzeSong(r.Context(), song.ID, jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateSongResponse{
		SongID: song.ID,
		Status: song.Status,
	})
}

// audioExt picks a storage extension from the uploaded filename.
func audioExt(filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return ".mp3"
}

// ListSongs handles GET /v1/songs
// Query params:
//   - status: filter by song status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.SongStatus(statusFilter) {
		case models.SongStatusUploaded, models.SongStatusAnalyzing,
			models.SongStatusPlanning, models.SongStatusGenerating,
			models.SongStatusComposing, models.SongStatusCompleted,
			models.SongStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: uploaded, analyzing, planning, generating, composing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountSongs(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count songs")
		return
	}

	songs, err := h.db.ListSongs(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list songs")
		return
	}

	// Lightweight summaries — no clips or analysis payload
	summaries := make([]models.SongSummary, 0, len(songs))
	for _, song := range songs {
		summary := models.SongSummary{
			ID:           song.ID,
			Title:        song.Title,
			Status:       song.Status,
			DurationSec:  song.DurationSec,
			ErrorCode:    song.ErrorCode,
			ErrorMessage: song.ErrorMessage,
			CreatedAt:    song.CreatedAt,
			UpdatedAt:    song.UpdatedAt,
		}

		if count, err := h.db.GetSongClipCount(r.Context(), song.ID); err == nil {
			summary.ClipCount = count
		}

		if song.FinalVideoAssetID != nil {
			if asset, err := h.db.GetAsset(r.Context(), *song.FinalVideoAssetID); err == nil {
				url := h.storage.GetPublicURL(asset.StoragePath)
				summary.FinalVideoURL = &url
			}
		}

		summaries = append(summaries, summary)
	}

	respondJSON(w, http.StatusOK, models.ListSongsResponse{
		Songs:  summaries,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetSong handles GET /v1/songs/{id}
func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	songID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.db.GetSong(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Song not found")
		return
	}

	clips, err := h.db.GetSongClips(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get clips")
		return
	}

	// Analysis may not exist yet — that's fine for songs still uploading
	analysis, _ := h.db.GetSongAnalysis(r.Context(), songID)

	response := models.SongResponse{
		Song:     *song,
		Analysis: analysis,
		Clips:    h.buildClipResponses(r.Context(), clips),
	}

	if song.AudioAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *song.AudioAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.AudioURL = &url
		}
	}

	if song.FinalVideoAssetID != nil {
		if asset, err := h.db.GetAsset(r.Context(), *song.FinalVideoAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.FinalVideoURL = &url
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// PlanPreview handles POST /v1/songs/{id}/plan/preview.
//
// Runs the clip planner synchronously against the song's stored analysis and
// returns the resulting plan without persisting anything. Request-body
// parameters override the song's stored overrides, which override service
// defaults. An infeasible configuration returns 422 with the planner's
// diagnostic message.
func (h *Handler) PlanPreview(w http.ResponseWriter, r *http.Request) {
	songID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.db.GetSong(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Song not found")
		return
	}

	analysis, err := h.db.GetSongAnalysis(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusConflict, "Song has not been analyzed yet")
		return
	}

	var req models.PlanPreviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	cfg := h.resolvePlanConfig(song, &req)

	plans, err := planner.Plan(planner.Analysis{
		DurationSec: analysis.DurationSec,
		BPM:         analysis.BPM,
		BeatTimes:   analysis.BeatTimes,
	}, cfg)
	if err != nil {
		var planErr *planner.PlanningError
		if errors.As(err, &planErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error_code": "plan_infeasible",
				"error":      planErr.Error(),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "Planning failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"song_id": songID,
		"config":  cfg,
		"clips":   plans,
	})
}

// resolvePlanConfig layers planning parameters: request overrides song
// overrides service defaults.
func (h *Handler) resolvePlanConfig(song *models.Song, req *models.PlanPreviewRequest) planner.Config {
	cfg := h.planDefaults

	if song.ClipCount != nil {
		cfg.ClipCount = *song.ClipCount
	}
	if song.MinClipSec != nil {
		cfg.MinClipSec = *song.MinClipSec
	}
	if song.MaxClipSec != nil {
		cfg.MaxClipSec = *song.MaxClipSec
	}
	if song.FPS != nil {
		cfg.FPS = *song.FPS
	}

	if req != nil {
		if req.ClipCount > 0 {
			cfg.ClipCount = req.ClipCount
		}
		if req.MinClipSec > 0 {
			cfg.MinClipSec = req.MinClipSec
		}
		if req.MaxClipSec > 0 {
			cfg.MaxClipSec = req.MaxClipSec
		}
		if req.FPS > 0 {
			cfg.FPS = req.FPS
		}
	}

	return cfg
}

// GetSongDownload handles GET /v1/songs/{id}/download
func (h *Handler) GetSongDownload(w http.ResponseWriter, r *http.Request) {
	songID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.db.GetSong(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Song not found")
		return
	}

	if song.FinalVideoAssetID == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	asset, err := h.db.GetAsset(r.Context(), *song.FinalVideoAssetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	// Signed URL valid for 1 hour
	signedURL, err := h.storage.GetSignedURL(r.Context(), asset.StoragePath, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetSongJobs handles GET /v1/songs/{id}/debug/jobs
func (h *Handler) GetSongJobs(w http.ResponseWriter, r *http.Request) {
	songID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	jobs, err := h.db.GetSongJobs(r.Context(), songID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get jobs")
		return
	}

	respondJSON(w, http.StatusOK, jobs)
}

// GetClip handles GET /v1/songs/{songId}/clips/{clipId}
func (h *Handler) GetClip(w http.ResponseWriter, r *http.Request) {
	clipID, err := uuid.Parse(chi.URLParam(r, "clipId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid clip ID")
		return
	}

	clip, err := h.db.GetClip(r.Context(), clipID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Clip not found")
		return
	}

	response := h.buildClipResponse(r.Context(), *clip)
	respondJSON(w, http.StatusOK, response)
}

// ListStylePresets handles GET /v1/presets/styles
func (h *Handler) ListStylePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.db.ListStylePresets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list style presets")
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

// Helper methods
func (h *Handler) buildClipResponses(ctx context.Context, clips []models.Clip) []models.ClipResponse {
	responses := make([]models.ClipResponse, len(clips))
	for i, clip := range clips {
		responses[i] = h.buildClipResponse(ctx, clip)
	}
	return responses
}

func (h *Handler) buildClipResponse(ctx context.Context, clip models.Clip) models.ClipResponse {
	response := models.ClipResponse{
		Clip: clip,
	}

	if clip.VideoAssetID != nil {
		if asset, err := h.db.GetAsset(ctx, *clip.VideoAssetID); err == nil {
			url := h.storage.GetPublicURL(asset.StoragePath)
			response.VideoURL = &url
		}
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
