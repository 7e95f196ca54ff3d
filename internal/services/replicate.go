package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// Replicate prediction service
// Runs two hosted models: a beat tracker for song analysis and a text-to-video
// model for clip generation. Both follow the same deferred request pattern:
// submit prediction → poll by id → read output.
// ---------------------------------------------------------------------------

const (
	replicateBaseURL = "https://api.replicate.com/v1"

	// Beat analysis is quick (typically under a minute even for long songs)
	beatInitialDelay    = 5 * time.Second
	beatMaxPollDuration = 4 * time.Minute

	// Video generation is slow
	videoInitialDelay    = 20 * time.Second
	videoMaxPollDuration = 10 * time.Minute

	replicatePollMinInterval   = 3 * time.Second
	replicatePollMaxInterval   = 20 * time.Second
	replicatePollBackoffFactor = 1.5
)

type ReplicateService struct {
	apiToken   string
	beatModel  string
	videoModel string
	httpClient *http.Client
}

func NewReplicateService(apiToken, beatModel, videoModel string) *ReplicateService {
	return &ReplicateService{
		apiToken:   apiToken,
		beatModel:  beatModel,
		videoModel: videoModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Per-call timeout, not the full poll cycle
		},
	}
}

// ---------------------------------------------------------------------------
// Request / Response types
// ---------------------------------------------------------------------------

// replicatePredictionRequest is the body for POST /v1/models/{model}/predictions
type replicatePredictionRequest struct {
	Input map[string]interface{} `json:"input"`
}

// replicatePrediction is the prediction resource returned on submit and poll.
//
// Status lifecycle: "starting" → "processing" → "succeeded" | "failed" | "canceled".
// Output shape depends on the model, so it stays raw until the caller decodes it.
type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// BeatAnalysis is the decoded output of the beat tracking model.
type BeatAnalysis struct {
	DurationSec float64   `json:"duration_sec"`
	BPM         *float64  `json:"bpm,omitempty"`
	BeatTimes   []float64 `json:"beat_times"`
	Sections    []Section `json:"sections,omitempty"`
}

// Section is a labeled structural segment of the song (verse, chorus, ...).
type Section struct {
	Label    string  `json:"label"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// beatModelOutput mirrors the raw JSON the beat tracker emits.
type beatModelOutput struct {
	Duration float64   `json:"duration"`
	BPM      float64   `json:"bpm"`
	Beats    []float64 `json:"beats"`
	Segments []struct {
		Label string  `json:"label"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// AnalyzeBeats runs the beat tracking model against a song reachable at
// audioURL and returns its duration, tempo, beat grid and section layout.
// Beat times are validated to be strictly increasing within the song before
// anything downstream sees them.
func (s *ReplicateService) AnalyzeBeats(ctx context.Context, audioURL string) (*BeatAnalysis, error) {
	log.Printf("[Replicate] Starting beat analysis (model=%s)", s.beatModel)

	pred, err := s.submitPrediction(ctx, s.beatModel, map[string]interface{}{
		"music_input": audioURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit beat analysis: %w", err)
	}

	log.Printf("[Replicate] Beat analysis submitted, id=%s", pred.ID)

	pred, err = s.pollPrediction(ctx, pred.ID, beatInitialDelay, beatMaxPollDuration)
	if err != nil {
		return nil, err
	}

	var out beatModelOutput
	if err := json.Unmarshal(pred.Output, &out); err != nil {
		return nil, fmt.Errorf("failed to parse beat analysis output: %w", err)
	}

	if out.Duration <= 0 {
		return nil, fmt.Errorf("beat analysis returned invalid duration %.3f", out.Duration)
	}

	analysis := &BeatAnalysis{
		DurationSec: out.Duration,
		BeatTimes:   sanitizeBeats(out.Beats, out.Duration),
	}
	if out.BPM > 0 {
		bpm := out.BPM
		analysis.BPM = &bpm
	}
	for _, seg := range out.Segments {
		analysis.Sections = append(analysis.Sections, Section{
			Label:    seg.Label,
			StartSec: seg.Start,
			EndSec:   seg.End,
		})
	}

	log.Printf("[Replicate] Beat analysis complete: duration=%.2fs, %d beats, %d sections",
		analysis.DurationSec, len(analysis.BeatTimes), len(analysis.Sections))

	return analysis, nil
}

// sanitizeBeats drops out-of-range and non-increasing beat times. Beat
// trackers occasionally emit a duplicate timestamp or a beat a few
// milliseconds past the end of the file; planning requires a strictly
// increasing grid inside [0, duration].
func sanitizeBeats(beats []float64, duration float64) []float64 {
	clean := make([]float64, 0, len(beats))
	prev := math.Inf(-1)
	for _, b := range beats {
		if b < 0 || b > duration {
			continue
		}
		if b <= prev {
			continue
		}
		clean = append(clean, b)
		prev = b
	}
	return clean
}

// GenerateClipVideo runs the text-to-video model and returns the raw MP4
// bytes. durationSec is rounded up to a whole second for the model input; the
// composer trims the result back to the planned frame-exact duration.
func (s *ReplicateService) GenerateClipVideo(ctx context.Context, prompt string, durationSec float64, fps int) ([]byte, error) {
	modelDuration := int(math.Ceil(durationSec))
	if modelDuration < 1 {
		modelDuration = 1
	}

	log.Printf("[Replicate] Starting clip generation (model=%s, duration=%ds, fps=%d, promptLen=%d)",
		s.videoModel, modelDuration, fps, len(prompt))

	pred, err := s.submitPrediction(ctx, s.videoModel, map[string]interface{}{
		"prompt":   prompt,
		"duration": modelDuration,
		"fps":      fps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit clip generation: %w", err)
	}

	log.Printf("[Replicate] Clip generation submitted, id=%s", pred.ID)

	pred, err = s.pollPrediction(ctx, pred.ID, videoInitialDelay, videoMaxPollDuration)
	if err != nil {
		return nil, err
	}

	videoURL, err := decodeOutputURL(pred.Output)
	if err != nil {
		return nil, err
	}

	log.Printf("[Replicate] Clip ready, downloading from output URL...")

	videoBytes, err := s.downloadOutput(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated clip: %w", err)
	}

	if len(videoBytes) == 0 {
		return nil, fmt.Errorf("downloaded clip is empty (0 bytes)")
	}

	log.Printf("[Replicate] Clip downloaded successfully (%d bytes)", len(videoBytes))
	return videoBytes, nil
}

// decodeOutputURL extracts the output file URL. Video models return either a
// bare URL string or a single-element list of URL strings.
func decodeOutputURL(raw json.RawMessage) (string, error) {
	var url string
	if err := json.Unmarshal(raw, &url); err == nil && url != "" {
		return url, nil
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil && len(urls) > 0 && urls[0] != "" {
		return urls[0], nil
	}

	return "", fmt.Errorf("unexpected prediction output shape: %s", truncateString(string(raw), 200))
}

// submitPrediction creates a prediction on the model's latest version.
func (s *ReplicateService) submitPrediction(ctx context.Context, model string, input map[string]interface{}) (*replicatePrediction, error) {
	jsonData, err := json.Marshal(replicatePredictionRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", replicateBaseURL, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("replicate returned status %d: %s", resp.StatusCode, string(body))
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w (body: %s)", err, truncateString(string(body), 500))
	}

	if pred.ID == "" {
		return nil, fmt.Errorf("no prediction id in response: %s", truncateString(string(body), 500))
	}

	return &pred, nil
}

// pollPrediction polls GET /v1/predictions/{id} until the prediction leaves
// the starting/processing states or the deadline passes. Backoff starts at
// 3s and scales by 1.5x up to a 20s cap.
func (s *ReplicateService) pollPrediction(ctx context.Context, id string, initialDelay, maxDuration time.Duration) (*replicatePrediction, error) {
	deadline := time.Now().Add(maxDuration)
	pollCount := 0
	currentInterval := replicatePollMinInterval

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("prediction cancelled during initial wait: %w", ctx.Err())
	case <-time.After(initialDelay):
	}

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("prediction timed out after %v (polled %d times, id=%s)", maxDuration, pollCount, id)
		}

		pollCount++

		pred, err := s.getPrediction(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to poll prediction (attempt %d): %w", pollCount, err)
		}

		switch pred.Status {
		case "succeeded":
			log.Printf("[Replicate] Poll %d: succeeded (id=%s)", pollCount, id)
			if len(pred.Output) == 0 {
				return nil, fmt.Errorf("prediction succeeded with no output (id=%s)", id)
			}
			return pred, nil

		case "failed", "canceled":
			errMsg := "unknown error"
			if pred.Error != nil && *pred.Error != "" {
				errMsg = *pred.Error
			}
			return nil, fmt.Errorf("prediction %s: %s (id=%s)", pred.Status, errMsg, id)

		default:
			// starting or processing — wait with exponential backoff
			log.Printf("[Replicate] Poll %d: status=%s (next poll in %v)", pollCount, pred.Status, currentInterval)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("prediction cancelled: %w", ctx.Err())
			case <-time.After(currentInterval):
			}

			next := time.Duration(float64(currentInterval) * replicatePollBackoffFactor)
			if next > replicatePollMaxInterval {
				next = replicatePollMaxInterval
			}
			currentInterval = next
		}
	}
}

// getPrediction fetches the current state of a prediction.
func (s *ReplicateService) getPrediction(ctx context.Context, id string) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/predictions/%s", replicateBaseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replicate returned status %d: %s", resp.StatusCode, string(body))
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("failed to parse prediction: %w (body: %s)", err, truncateString(string(body), 500))
	}

	return &pred, nil
}

// downloadOutput fetches the prediction output bytes from the given URL.
func (s *ReplicateService) downloadOutput(ctx context.Context, outputURL string) ([]byte, error) {
	// Generated clips can be large; use a longer timeout than API calls
	downloadClient := &http.Client{Timeout: 120 * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET", outputURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("output download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read output data: %w", err)
	}

	return data, nil
}
