package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marbeld/beatcut/internal/db"
	"github.com/marbeld/beatcut/internal/models"
	"github.com/marbeld/beatcut/internal/planner"
	"github.com/marbeld/beatcut/internal/queue"
	"github.com/marbeld/beatcut/internal/services"
	"github.com/marbeld/beatcut/internal/storage"
	"golang.org/x/sync/errgroup"
)

type Worker struct {
	db           *db.DB
	queue        *queue.Queue
	storage      *storage.Storage
	openai       *services.OpenAIService
	replicate    *services.ReplicateService
	veo          *services.VeoService // Optional: nil when VEO_ENABLED=false
	ffmpeg       *services.FFmpegService
	planDefaults planner.Config
	uploadSem    chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	openaiSvc *services.OpenAIService,
	replicateSvc *services.ReplicateService,
	veoSvc *services.VeoService,
	ffmpegSvc *services.FFmpegService,
	planDefaults planner.Config,
) *Worker {
	return &Worker{
		db:           database,
		queue:        q,
		storage:      stor,
		openai:       openaiSvc,
		replicate:    replicateSvc,
		veo:          veoSvc,
		ffmpeg:       ffmpegSvc,
		planDefaults: planDefaults,
		uploadSem:    make(chan struct{}, 4),
	}
}

// uploadWithLimit wraps an upload call with a semaphore so parallel clip jobs
// don't congest the storage API.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	log.Printf("[Upload] %s waiting for upload slot...", label)
	select {
	case w.uploadSem <- struct{}{}:
		// Acquired slot
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start begins processing jobs from all queues
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueAnalyzeSong, w.handleAnalyzeSong)
		go w.processQueue(ctx, queue.QueuePlanClips, w.handlePlanClips)
		go w.processQueue(ctx, queue.QueueGenerateClip, w.handleGenerateClip)
		go w.processQueue(ctx, queue.QueueComposeVideo, w.handleComposeVideo)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, song: %s)", job.ID, job.Type, job.SongID)

			if err := w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
				log.Printf("Failed to update job status: %v", err)
			}

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				w.db.UpdateJobError(ctx, job.ID, err.Error())
			} else {
				log.Printf("Job %s completed successfully", job.ID)
				w.db.UpdateJobStatus(ctx, job.ID, models.JobStatusSucceeded)
			}
		}
	}
}

// handleAnalyzeSong runs beat tracking and transcription for a song, persists
// the analysis snapshot, and enqueues planning.
//
// The two analyses are independent and run concurrently:
//
//	Pipeline A: signed audio URL → Replicate beat tracker (duration, BPM, beats, sections)
//	Pipeline B: audio download → Whisper transcription → mood/genre tagging
//
// Beat tracking failure fails the song. Transcription and tagging are
// best-effort — an instrumental or a Whisper outage should not block planning.
func (w *Worker) handleAnalyzeSong(ctx context.Context, job *queue.Job) error {
	log.Printf("Analyzing song %s", job.SongID)

	if err := w.db.UpdateSongStatus(ctx, job.SongID, models.SongStatusAnalyzing); err != nil {
		return fmt.Errorf("failed to update song status: %w", err)
	}

	song, err := w.db.GetSong(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get song: %w", err)
	}
	if song.AudioAssetID == nil {
		w.db.UpdateSongError(ctx, job.SongID, "no_audio", "song has no audio asset")
		return fmt.Errorf("song %s has no audio asset", job.SongID)
	}

	audioAsset, err := w.db.GetAsset(ctx, *song.AudioAssetID)
	if err != nil {
		return fmt.Errorf("failed to get audio asset: %w", err)
	}

	var (
		beats  *services.BeatAnalysis
		lyrics string
		words  []services.WordTimestamp
		tags   *services.SongTags
	)

	g, gctx := errgroup.WithContext(ctx)

	// Pipeline A: beat tracking via a signed URL (the analyzer pulls the file itself)
	g.Go(func() error {
		audioURL, err := w.storage.GetSignedURL(gctx, audioAsset.StoragePath, 3600)
		if err != nil {
			return fmt.Errorf("failed to sign audio URL: %w", err)
		}

		beats, err = w.replicate.AnalyzeBeats(gctx, audioURL)
		if err != nil {
			w.db.UpdateSongError(gctx, job.SongID, "beat_analysis_failed", err.Error())
			return fmt.Errorf("beat analysis failed: %w", err)
		}
		return nil
	})

	// Pipeline B: transcription + tagging (best-effort)
	g.Go(func() error {
		audioData, err := w.storage.Download(gctx, audioAsset.StoragePath)
		if err != nil {
			log.Printf("Song %s: WARNING — audio download for transcription failed: %v", job.SongID, err)
			return nil
		}

		lyrics, words, err = w.openai.TranscribeSong(gctx, audioData)
		if err != nil {
			log.Printf("Song %s: WARNING — transcription failed, continuing without lyrics: %v", job.SongID, err)
			return nil
		}

		tags, err = w.openai.TagSong(gctx, lyrics, nil)
		if err != nil {
			log.Printf("Song %s: WARNING — tagging failed, continuing without mood/genre: %v", job.SongID, err)
			tags = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("song analysis failed: %w", err)
	}

	analysis := &models.SongAnalysis{
		ID:          uuid.New(),
		SongID:      job.SongID,
		DurationSec: beats.DurationSec,
		BPM:         beats.BPM,
		BeatTimes:   models.FloatList(beats.BeatTimes),
	}
	if len(beats.Sections) > 0 {
		analysis.Sections = models.JSONB{"segments": beats.Sections}
	}
	if lyrics != "" {
		analysis.Lyrics = &lyrics
	}
	for _, word := range words {
		analysis.LyricWords = append(analysis.LyricWords, models.LyricWord{
			Word:  word.Word,
			Start: word.Start,
			End:   word.End,
		})
	}
	if tags != nil {
		analysis.Mood = &tags.Mood
		analysis.Genre = &tags.Genre
	}

	if err := w.db.CreateSongAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if err := w.db.UpdateSongDuration(ctx, job.SongID, beats.DurationSec); err != nil {
		return fmt.Errorf("failed to update song duration: %w", err)
	}

	log.Printf("Song %s analyzed: %.2fs, %d beats, lyrics=%d words", job.SongID, beats.DurationSec, len(beats.BeatTimes), len(words))

	// Planning follows immediately
	planJobID := uuid.New()
	planJob := &models.Job{
		ID:     planJobID,
		SongID: job.SongID,
		Type:   "plan_clips",
		Status: models.JobStatusQueued,
	}
	if err := w.db.CreateJob(ctx, planJob); err != nil {
		return fmt.Errorf("failed to create plan job: %w", err)
	}
	return w.queue.EnqueuePlanClips(ctx, job.SongID, planJobID)
}

// handlePlanClips runs the beat-aligned planner, persists the plan as clip
// rows and a plan.json asset, generates one visual prompt per clip, and
// enqueues a generate_clip job for each.
func (w *Worker) handlePlanClips(ctx context.Context, job *queue.Job) error {
	log.Printf("Planning clips for song %s", job.SongID)

	if err := w.db.UpdateSongStatus(ctx, job.SongID, models.SongStatusPlanning); err != nil {
		return fmt.Errorf("failed to update song status: %w", err)
	}

	song, err := w.db.GetSong(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get song: %w", err)
	}
	analysis, err := w.db.GetSongAnalysis(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get analysis: %w", err)
	}

	cfg := w.resolvePlanConfig(song)

	plans, err := planner.Plan(planner.Analysis{
		DurationSec: analysis.DurationSec,
		BPM:         analysis.BPM,
		BeatTimes:   analysis.BeatTimes,
	}, cfg)
	if err != nil {
		var planErr *planner.PlanningError
		if errors.As(err, &planErr) {
			w.db.UpdateSongError(ctx, job.SongID, "plan_infeasible", planErr.Error())
		} else {
			w.db.UpdateSongError(ctx, job.SongID, "plan_failed", err.Error())
		}
		return fmt.Errorf("planning failed: %w", err)
	}

	// Store the plan as a JSON asset for later inspection
	planJSON, _ := json.MarshalIndent(map[string]interface{}{
		"config": cfg,
		"clips":  plans,
	}, "", "  ")
	planAsset := &models.Asset{
		ID:            uuid.New(),
		SongID:        job.SongID,
		Type:          models.AssetTypePlanJSON,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.SongID, "plan.json"),
		ContentType:   strPtr("application/json"),
		ByteSize:      int64Ptr(int64(len(planJSON))),
	}

	if err := w.uploadWithLimit(ctx, "plan.json", func() error {
		return w.storage.Upload(ctx, planAsset.StoragePath, planJSON, "application/json")
	}); err != nil {
		return fmt.Errorf("failed to upload plan: %w", err)
	}
	if err := w.db.CreateAsset(ctx, planAsset); err != nil {
		return fmt.Errorf("failed to save plan asset: %w", err)
	}

	// Visual prompts: one per clip window, sharing the song's mood/genre and
	// style direction. Prompt failure is not fatal — clips fall back to a
	// generic prompt built from the tags.
	prompts := w.buildClipPrompts(ctx, song, analysis, plans)

	// Re-planning replaces any previous clip rows
	if err := w.db.DeleteSongClips(ctx, job.SongID); err != nil {
		return fmt.Errorf("failed to clear previous clips: %w", err)
	}

	for i, plan := range plans {
		clip := &models.Clip{
			ID:             uuid.New(),
			SongID:         job.SongID,
			ClipIndex:      i,
			StartSec:       plan.StartSec,
			EndSec:         plan.EndSec,
			DurationSec:    plan.DurationSec,
			StartBeatIndex: plan.StartBeatIndex,
			EndBeatIndex:   plan.EndBeatIndex,
			FrameCount:     plan.FrameCount,
			Status:         models.ClipStatusPlanned,
		}
		if p, ok := prompts[i]; ok {
			clip.Prompt = &p
		}

		if err := w.db.CreateClip(ctx, clip); err != nil {
			return fmt.Errorf("failed to create clip: %w", err)
		}

		clipJobID := uuid.New()
		clipJob := &models.Job{
			ID:     clipJobID,
			SongID: job.SongID,
			ClipID: &clip.ID,
			Type:   "generate_clip",
			Status: models.JobStatusQueued,
		}
		if err := w.db.CreateJob(ctx, clipJob); err != nil {
			return fmt.Errorf("failed to create clip job: %w", err)
		}
		if err := w.queue.EnqueueGenerateClip(ctx, job.SongID, clip.ID, clipJobID); err != nil {
			return fmt.Errorf("failed to enqueue clip job: %w", err)
		}

		log.Printf("Enqueued generate_clip for clip %d/%d (%.2fs-%.2fs, %d frames)",
			i+1, len(plans), plan.StartSec, plan.EndSec, plan.FrameCount)
	}

	return w.db.UpdateSongStatus(ctx, job.SongID, models.SongStatusGenerating)
}

// resolvePlanConfig layers the song's stored overrides over service defaults.
func (w *Worker) resolvePlanConfig(song *models.Song) planner.Config {
	cfg := w.planDefaults
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
	return cfg
}

// buildClipPrompts asks OpenAI for one visual prompt per clip window. On any
// failure it falls back to a single generic prompt derived from the song's
// mood and genre so generation can still proceed.
func (w *Worker) buildClipPrompts(ctx context.Context, song *models.Song, analysis *models.SongAnalysis, plans []planner.ClipPlan) map[int]string {
	var tags *services.SongTags
	if analysis.Mood != nil && analysis.Genre != nil {
		tags = &services.SongTags{Mood: *analysis.Mood, Genre: *analysis.Genre}
	}

	styleDirection := w.resolveStyleDirection(ctx, song)

	windows := make([]services.ClipWindow, len(plans))
	for i, plan := range plans {
		windows[i] = services.ClipWindow{
			ClipIndex:   i,
			StartSec:    plan.StartSec,
			EndSec:      plan.EndSec,
			DurationSec: plan.DurationSec,
			Lyrics:      lyricsInWindow(analysis.LyricWords, plan.StartSec, plan.EndSec),
		}
	}

	prompts, err := w.openai.GenerateClipPrompts(ctx, windows, tags, styleDirection)
	if err != nil {
		log.Printf("Song %s: WARNING — clip prompt generation failed, using fallback prompts: %v", song.ID, err)
		fallback := fallbackPrompt(tags, styleDirection)
		prompts = make(map[int]string, len(plans))
		for i := range plans {
			prompts[i] = fallback
		}
	}
	return prompts
}

// resolveStyleDirection combines the song's preset prompt addition with its
// free-form style prompt.
func (w *Worker) resolveStyleDirection(ctx context.Context, song *models.Song) string {
	var parts []string
	if song.StylePresetID != nil {
		if preset, err := w.db.GetStylePreset(ctx, *song.StylePresetID); err == nil {
			if preset.Description != nil && *preset.Description != "" {
				parts = append(parts, *preset.Description)
			}
			if preset.PromptAddition != nil && *preset.PromptAddition != "" {
				parts = append(parts, *preset.PromptAddition)
			}
		} else {
			log.Printf("Song %s: WARNING — style preset lookup failed: %v", song.ID, err)
		}
	}
	if song.StylePrompt != nil && *song.StylePrompt != "" {
		parts = append(parts, *song.StylePrompt)
	}
	return strings.Join(parts, " ")
}

// lyricsInWindow joins the words whose start time falls inside [startSec, endSec).
func lyricsInWindow(words models.LyricWords, startSec, endSec float64) string {
	var inWindow []string
	for _, word := range words {
		if word.Start >= startSec && word.Start < endSec {
			inWindow = append(inWindow, word.Word)
		}
	}
	return strings.Join(inWindow, " ")
}

func fallbackPrompt(tags *services.SongTags, styleDirection string) string {
	mood, genre := "cinematic", "electronic"
	if tags != nil {
		mood, genre = tags.Mood, tags.Genre
	}
	prompt := fmt.Sprintf("Abstract %s visuals for a %s track: flowing light, texture and color in constant motion, one coherent visual world.", mood, genre)
	if styleDirection != "" {
		prompt += " " + styleDirection
	}
	return prompt
}

// handleGenerateClip generates the video for one planned clip, conforms it to
// the planned frame count, and uploads it. When the last clip of a song
// finishes, composition is enqueued.
func (w *Worker) handleGenerateClip(ctx context.Context, job *queue.Job) error {
	if job.ClipID == nil {
		return fmt.Errorf("clip ID missing")
	}

	log.Printf("Generating clip %s for song %s", *job.ClipID, job.SongID)

	clip, err := w.db.GetClip(ctx, *job.ClipID)
	if err != nil {
		return fmt.Errorf("failed to get clip: %w", err)
	}
	song, err := w.db.GetSong(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get song: %w", err)
	}

	if err := w.db.UpdateClipStatus(ctx, clip.ID, models.ClipStatusGenerating); err != nil {
		return fmt.Errorf("failed to update clip status: %w", err)
	}

	fps := w.planDefaults.FPS
	if song.FPS != nil {
		fps = *song.FPS
	}

	prompt := fallbackPrompt(nil, "")
	if clip.Prompt != nil && *clip.Prompt != "" {
		prompt = *clip.Prompt
	}

	// Generate: Veo when enabled, otherwise the Replicate video model
	var rawVideo []byte
	if w.veo != nil {
		rawVideo, err = w.veo.GenerateVideo(ctx, prompt)
	} else {
		rawVideo, err = w.replicate.GenerateClipVideo(ctx, prompt, clip.DurationSec, fps)
	}
	if err != nil {
		w.db.UpdateClipError(ctx, clip.ID, fmt.Sprintf("Video generation failed: %v", err))
		return fmt.Errorf("failed to generate clip video: %w", err)
	}

	// Conform to the planned frame-exact duration
	rawPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("raw_%s.mp4", clip.ID.String()))
	conformedPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("conformed_%s.mp4", clip.ID.String()))
	defer w.ffmpeg.Cleanup(rawPath, conformedPath)

	if err := os.WriteFile(rawPath, rawVideo, 0644); err != nil {
		return fmt.Errorf("failed to write raw clip file: %w", err)
	}
	if err := w.ffmpeg.ConformClip(ctx, rawPath, conformedPath, clip.FrameCount, fps); err != nil {
		w.db.UpdateClipError(ctx, clip.ID, fmt.Sprintf("Conform failed: %v", err))
		return fmt.Errorf("failed to conform clip: %w", err)
	}

	videoData, err := os.ReadFile(conformedPath)
	if err != nil {
		return fmt.Errorf("failed to read conformed clip: %w", err)
	}

	videoAsset := &models.Asset{
		ID:            uuid.New(),
		SongID:        job.SongID,
		ClipID:        &clip.ID,
		Type:          models.AssetTypeClipVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.SongID, fmt.Sprintf("clip_%d.mp4", clip.ClipIndex)),
		ContentType:   strPtr("video/mp4"),
		ByteSize:      int64Ptr(int64(len(videoData))),
	}

	if err := w.uploadWithLimit(ctx, fmt.Sprintf("clip_%d_video", clip.ClipIndex), func() error {
		return w.storage.Upload(ctx, videoAsset.StoragePath, videoData, "video/mp4")
	}); err != nil {
		return fmt.Errorf("failed to upload clip video: %w", err)
	}
	if err := w.db.CreateAsset(ctx, videoAsset); err != nil {
		return fmt.Errorf("failed to save video asset: %w", err)
	}
	if err := w.db.UpdateClipVideo(ctx, clip.ID, videoAsset.ID); err != nil {
		return fmt.Errorf("failed to update clip video: %w", err)
	}

	log.Printf("Clip %d generated (%d bytes, %d frames)", clip.ClipIndex, len(videoData), clip.FrameCount)

	// Last clip done → compose
	allGenerated, err := w.db.AreAllClipsGenerated(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to check clip status: %w", err)
	}
	if allGenerated {
		log.Printf("All clips generated for song %s, enqueuing composition", job.SongID)

		composeJobID := uuid.New()
		composeJob := &models.Job{
			ID:     composeJobID,
			SongID: job.SongID,
			Type:   "compose_video",
			Status: models.JobStatusQueued,
		}
		if err := w.db.CreateJob(ctx, composeJob); err != nil {
			return fmt.Errorf("failed to create compose job: %w", err)
		}
		if err := w.queue.EnqueueComposeVideo(ctx, job.SongID, composeJobID); err != nil {
			return fmt.Errorf("failed to enqueue composition: %w", err)
		}

		w.db.UpdateSongStatus(ctx, job.SongID, models.SongStatusComposing)
	}

	return nil
}

// handleComposeVideo concatenates the conformed clips in plan order and muxes
// the original song audio over the result.
func (w *Worker) handleComposeVideo(ctx context.Context, job *queue.Job) error {
	log.Printf("Composing final video for song %s", job.SongID)

	song, err := w.db.GetSong(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get song: %w", err)
	}
	if song.AudioAssetID == nil {
		return fmt.Errorf("song %s has no audio asset", job.SongID)
	}

	clips, err := w.db.GetSongClips(ctx, job.SongID)
	if err != nil {
		return fmt.Errorf("failed to get clips: %w", err)
	}
	if len(clips) == 0 {
		return fmt.Errorf("song %s has no clips", job.SongID)
	}

	// Download every clip video to a temp file, in plan order
	var clipPaths []string
	for _, clip := range clips {
		if clip.VideoAssetID == nil {
			return fmt.Errorf("clip %d has no video", clip.ClipIndex)
		}

		asset, err := w.db.GetAsset(ctx, *clip.VideoAssetID)
		if err != nil {
			return fmt.Errorf("failed to get clip video asset: %w", err)
		}

		videoData, err := w.storage.Download(ctx, asset.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to download clip video: %w", err)
		}

		tempPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("clip_%d.mp4", clip.ClipIndex))
		if err := os.WriteFile(tempPath, videoData, 0644); err != nil {
			return fmt.Errorf("failed to write clip video file: %w", err)
		}

		clipPaths = append(clipPaths, tempPath)
	}
	defer w.ffmpeg.Cleanup(clipPaths...)

	concatPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("concat_%s.mp4", job.SongID.String()))
	outputPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("final_%s.mp4", job.SongID.String()))
	audioPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("audio_%s", job.SongID.String()))
	defer w.ffmpeg.Cleanup(concatPath, outputPath, audioPath)

	if err := w.ffmpeg.ConcatenateClips(ctx, clipPaths, concatPath); err != nil {
		w.db.UpdateSongError(ctx, job.SongID, "concat_failed", err.Error())
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}

	// Fetch the source audio and lay it over the concatenated video
	audioAsset, err := w.db.GetAsset(ctx, *song.AudioAssetID)
	if err != nil {
		return fmt.Errorf("failed to get audio asset: %w", err)
	}
	audioData, err := w.storage.Download(ctx, audioAsset.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to download song audio: %w", err)
	}
	if err := os.WriteFile(audioPath, audioData, 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	if err := w.ffmpeg.MuxSongAudio(ctx, concatPath, audioPath, outputPath); err != nil {
		w.db.UpdateSongError(ctx, job.SongID, "mux_failed", err.Error())
		return fmt.Errorf("failed to mux song audio: %w", err)
	}

	videoData, err := os.ReadFile(outputPath)
	if err != nil {
		return fmt.Errorf("failed to read final video: %w", err)
	}

	finalAsset := &models.Asset{
		ID:            uuid.New(),
		SongID:        job.SongID,
		Type:          models.AssetTypeFinalVideo,
		StorageBucket: w.storage.Bucket,
		StoragePath:   w.storage.GenerateStoragePath(job.SongID, "final.mp4"),
		ContentType:   strPtr("video/mp4"),
		ByteSize:      int64Ptr(int64(len(videoData))),
	}

	if err := w.uploadWithLimit(ctx, "final_video", func() error {
		return w.storage.Upload(ctx, finalAsset.StoragePath, videoData, "video/mp4")
	}); err != nil {
		w.db.UpdateSongError(ctx, job.SongID, "upload_failed", err.Error())
		return fmt.Errorf("failed to upload final video: %w", err)
	}
	if err := w.db.CreateAsset(ctx, finalAsset); err != nil {
		return fmt.Errorf("failed to save final video asset: %w", err)
	}

	return w.db.SetSongFinalVideo(ctx, job.SongID, finalAsset.ID)
}

// Helper functions
func strPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
