package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpegService — conforms generated clips to their planned frame-exact
// durations, concatenates them, and muxes the song audio over the result.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	tempDir string
}

func NewFFmpegService(tempDir string) *FFmpegService {
	// Create temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &FFmpegService{
		tempDir: tempDir,
	}
}

// ConformClip re-times a generated clip to exactly frameCount frames at the
// render fps. Generators return whole-second videos at their own frame rate;
// the plan needs frame-exact durations so boundaries land on the beat grid.
// If the source runs short, the last frame is frozen to fill the gap.
func (s *FFmpegService) ConformClip(ctx context.Context, inputPath, outputPath string, frameCount, fps int) error {
	if frameCount < 1 {
		return fmt.Errorf("invalid frame count %d", frameCount)
	}
	if fps < 1 {
		return fmt.Errorf("invalid fps %d", fps)
	}

	log.Printf("[FFmpeg] Conforming clip to %d frames at %dfps", frameCount, fps)

	// tpad clones the last frame well past the target; -frames:v then cuts at
	// the exact frame count.
	filterExpr := fmt.Sprintf("[0:v]fps=%d,tpad=stop_mode=clone:stop_duration=60[v]", fps)

	args := []string{
		"-i", inputPath,
		"-filter_complex", filterExpr,
		"-map", "[v]",
		"-an", // Clips are silent; the song audio is muxed at composition time
		"-frames:v", fmt.Sprintf("%d", frameCount),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conform clip failed: %w", err)
	}

	return nil
}

// ConcatenateClips combines the conformed clips, in plan order, into one video
func (s *FFmpegService) ConcatenateClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	// Create a concat list file
	listPath := filepath.Join(s.tempDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range clipPaths {
		// Write in FFmpeg concat format
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Clips were conformed with identical encoding; no re-encode needed
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concatenate failed: %w", err)
	}

	return nil
}

// MuxSongAudio lays the original song audio over the concatenated video. The
// video carries no audio of its own. -shortest ends the output at the video's
// end — the video covers the quantized song duration, so at most one frame of
// audio is dropped at the tail.
func (s *FFmpegService) MuxSongAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	log.Printf("[FFmpeg] Muxing song audio over composed video")

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mux song audio failed: %w", err)
	}

	return nil
}

// GetAudioDuration returns the duration of an audio file in seconds
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (float64, error) {
	return s.probeDuration(ctx, audioPath)
}

// GetVideoDuration returns the duration of a video file in seconds
func (s *FFmpegService) GetVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	return s.probeDuration(ctx, videoPath)
}

func (s *FFmpegService) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// CreateTempFile creates a temporary file path in the service's temp directory
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}
