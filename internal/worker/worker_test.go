package worker

import (
	"strings"
	"testing"

	"github.com/marbeld/beatcut/internal/models"
	"github.com/marbeld/beatcut/internal/planner"
)

func TestLyricsInWindow(t *testing.T) {
	words := models.LyricWords{
		{Word: "city", Start: 4.8, End: 5.1},
		{Word: "lights", Start: 5.1, End: 5.5},
		{Word: "fade", Start: 10.0, End: 10.3},
		{Word: "out", Start: 10.3, End: 10.6},
	}

	got := lyricsInWindow(words, 5.0, 10.3)
	if got != "lights fade" {
		t.Errorf("expected %q, got %q", "lights fade", got)
	}

	// Word starting exactly at the window end is excluded
	got = lyricsInWindow(words, 0.0, 10.0)
	if got != "city lights" {
		t.Errorf("expected %q, got %q", "city lights", got)
	}

	if got := lyricsInWindow(nil, 0.0, 30.0); got != "" {
		t.Errorf("expected empty lyrics for nil words, got %q", got)
	}
}

func TestResolvePlanConfig(t *testing.T) {
	w := &Worker{
		planDefaults: planner.Config{ClipCount: 8, MinClipSec: 3.0, MaxClipSec: 15.0, FPS: 8},
	}

	song := &models.Song{}
	cfg := w.resolvePlanConfig(song)
	if cfg != w.planDefaults {
		t.Errorf("song without overrides should use defaults, got %+v", cfg)
	}

	count := 4
	maxSec := 10.0
	song = &models.Song{ClipCount: &count, MaxClipSec: &maxSec}
	cfg = w.resolvePlanConfig(song)
	if cfg.ClipCount != 4 || cfg.MaxClipSec != 10.0 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MinClipSec != 3.0 || cfg.FPS != 8 {
		t.Errorf("defaults lost for fields without overrides: %+v", cfg)
	}
}

func TestFallbackPrompt(t *testing.T) {
	prompt := fallbackPrompt(nil, "")
	if prompt == "" {
		t.Fatal("expected non-empty fallback prompt")
	}

	prompt = fallbackPrompt(nil, "grainy 16mm film look")
	if !strings.Contains(prompt, "grainy 16mm film look") {
		t.Errorf("style direction missing from prompt: %q", prompt)
	}
}
