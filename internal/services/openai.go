package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// ---------------------------------------------------------------------------
// Whisper Transcription — word-level timestamps for lyric-aware clip prompts
// ---------------------------------------------------------------------------

// WordTimestamp represents a single transcribed word with its precise timing.
// Clip prompt generation uses these to know which lyric lines fall inside a
// clip's time window.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
}

// TranscribeSong sends the song audio to OpenAI Whisper and returns the full
// lyric text plus word-level timestamps. Instrumental tracks come back with
// empty words — that is not an error.
func (s *OpenAIService) TranscribeSong(ctx context.Context, audioData []byte) (string, []WordTimestamp, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audioData),
		FilePath: "song.mp3", // Filename hint for the API (required by the library)
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	words := make([]WordTimestamp, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = WordTimestamp{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		}
	}

	log.Printf("[Whisper] Transcribed %d words (duration: %.1fs, text: %q)",
		len(words), resp.Duration, truncateString(resp.Text, 80))

	return resp.Text, words, nil
}

// ---------------------------------------------------------------------------
// Song tagging — mood and genre drive the visual direction of clip prompts
// ---------------------------------------------------------------------------

// SongTags is the structured tagging result for a song.
type SongTags struct {
	Mood   string   `json:"mood"`
	Genre  string   `json:"genre"`
	Themes []string `json:"themes"`
}

// TagSong asks the model for a mood/genre/themes read of the song, based on
// its lyrics and tempo. For instrumental tracks lyrics may be empty; BPM alone
// still gives a usable mood estimate.
func (s *OpenAIService) TagSong(ctx context.Context, lyrics string, bpm *float64) (*SongTags, error) {
	userPrompt := buildTagUserPrompt(lyrics, bpm)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-5-mini",
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: tagSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content

	var tags SongTags
	if err := json.Unmarshal([]byte(rawContent), &tags); err != nil {
		log.Printf("[OpenAI tags] parse failed: %v", err)
		log.Printf("[OpenAI tags] raw response: %s", truncateString(rawContent, 2000))
		return nil, fmt.Errorf("failed to parse song tags: %w", err)
	}

	if tags.Mood == "" || tags.Genre == "" {
		log.Printf("[OpenAI tags] incomplete tags: %s", truncateString(rawContent, 2000))
		return nil, fmt.Errorf("song tags missing mood or genre")
	}

	log.Printf("[OpenAI tags] mood=%q genre=%q themes=%v", tags.Mood, tags.Genre, tags.Themes)

	return &tags, nil
}

// ---------------------------------------------------------------------------
// Clip prompt generation — one visual prompt per planned clip
// ---------------------------------------------------------------------------

// ClipWindow describes one planned clip's time window for prompt generation.
type ClipWindow struct {
	ClipIndex   int     `json:"clip_index"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	Lyrics      string  `json:"lyrics"` // words whose timestamps fall inside the window
}

// clipPromptsResponse is the JSON shape we ask the model for.
type clipPromptsResponse struct {
	Prompts []clipPrompt `json:"prompts"`
}

type clipPrompt struct {
	ClipIndex int    `json:"clip_index"`
	Prompt    string `json:"prompt"`
}

// GenerateClipPrompts produces one video-generation prompt per clip window.
// Prompts share the song's mood/genre and the optional style direction so the
// generated clips cut together as one coherent video.
func (s *OpenAIService) GenerateClipPrompts(ctx context.Context, windows []ClipWindow, tags *SongTags, styleDirection string) (map[int]string, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("no clip windows provided")
	}

	windowsJSON, err := json.Marshal(windows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clip windows: %w", err)
	}

	systemPrompt := buildClipPromptSystemPrompt(tags, styleDirection)
	userPrompt := fmt.Sprintf("Write one video prompt for each of these %d clips:\n%s", len(windows), string(windowsJSON))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-5-mini",
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content

	var parsed clipPromptsResponse
	if err := json.Unmarshal([]byte(rawContent), &parsed); err != nil {
		log.Printf("[OpenAI prompts] parse failed: %v", err)
		log.Printf("[OpenAI prompts] raw response: %s", truncateString(rawContent, 2000))
		return nil, fmt.Errorf("failed to parse clip prompts: %w", err)
	}

	prompts := make(map[int]string, len(parsed.Prompts))
	for _, p := range parsed.Prompts {
		if p.Prompt == "" {
			return nil, fmt.Errorf("clip %d has empty prompt", p.ClipIndex)
		}
		prompts[p.ClipIndex] = p.Prompt
	}

	// Every window must come back with a prompt
	var missing []int
	for _, w := range windows {
		if _, ok := prompts[w.ClipIndex]; !ok {
			missing = append(missing, w.ClipIndex)
		}
	}
	if len(missing) > 0 {
		log.Printf("[OpenAI prompts] missing prompts for clips %v", missing)
		return nil, fmt.Errorf("missing prompts for clips %v", missing)
	}

	log.Printf("[OpenAI prompts] generated %d clip prompts", len(prompts))

	return prompts, nil
}

const tagSystemPrompt = `You are a music supervisor tagging songs for music video production.

Given lyrics (possibly empty for instrumental tracks) and tempo, respond with JSON:
{
  "mood": "one or two words, e.g. melancholic, euphoric, menacing",
  "genre": "one or two words, e.g. synthwave, indie folk, trap",
  "themes": ["up to four short theme phrases drawn from the lyrics"]
}

All fields are required. For instrumental tracks infer mood and genre from the tempo and leave themes as an empty array.`

func buildTagUserPrompt(lyrics string, bpm *float64) string {
	var b strings.Builder
	if bpm != nil {
		fmt.Fprintf(&b, "Tempo: %.1f BPM\n\n", *bpm)
	} else {
		b.WriteString("Tempo: unknown\n\n")
	}
	if strings.TrimSpace(lyrics) == "" {
		b.WriteString("Lyrics: (instrumental)")
	} else {
		b.WriteString("Lyrics:\n")
		b.WriteString(lyrics)
	}
	return b.String()
}

func buildClipPromptSystemPrompt(tags *SongTags, styleDirection string) string {
	mood, genre := "cinematic", "unknown"
	var themes []string
	if tags != nil {
		mood = tags.Mood
		genre = tags.Genre
		themes = tags.Themes
	}

	prompt := fmt.Sprintf(`You are a music video director writing shot descriptions for an AI video generator.

The song is %s %s. Every prompt must share one coherent visual world — same palette, same lighting language, same level of stylization — so the clips cut together as a single music video.`, mood, genre)

	if len(themes) > 0 {
		prompt += fmt.Sprintf("\nLyrical themes to draw imagery from: %s.", strings.Join(themes, ", "))
	}
	if styleDirection != "" {
		prompt += fmt.Sprintf("\n\nStyle direction (must be reflected in every prompt): %s", styleDirection)
	}

	prompt += `

Prompt guidelines:
- Write in present tense as a continuous shot: subject, setting, motion, camera movement.
- Use each clip's lyrics (when present) as imagery inspiration, never as on-screen text.
- Motion intensity should match the clip's duration — short clips get one decisive movement, longer clips can develop.
- Silent video only. No audio cues, no dialogue, no on-screen lyrics or text.

Respond with JSON: {"prompts": [{"clip_index": 0, "prompt": "..."}, ...]} — one entry per input clip, prompts never empty.`

	return prompt
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
