package api

import (
	"testing"

	"github.com/marbeld/beatcut/internal/models"
	"github.com/marbeld/beatcut/internal/planner"
)

func TestAudioExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"track.mp3", ".mp3"},
		{"demo.final.wav", ".wav"},
		{"noextension", ".mp3"},
		{"", ".mp3"},
	}

	for _, tt := range tests {
		if got := audioExt(tt.filename); got != tt.want {
			t.Errorf("audioExt(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestResolvePlanConfigLayering(t *testing.T) {
	h := &Handler{
		planDefaults: planner.Config{ClipCount: 8, MinClipSec: 3.0, MaxClipSec: 15.0, FPS: 8},
	}

	// No overrides anywhere: defaults win
	cfg := h.resolvePlanConfig(&models.Song{}, nil)
	if cfg != h.planDefaults {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	// Song overrides beat defaults
	count := 6
	fps := 24
	song := &models.Song{ClipCount: &count, FPS: &fps}
	cfg = h.resolvePlanConfig(song, nil)
	if cfg.ClipCount != 6 || cfg.FPS != 24 {
		t.Errorf("song overrides not applied: %+v", cfg)
	}

	// Request overrides beat song overrides
	req := &models.PlanPreviewRequest{ClipCount: 3, MaxClipSec: 9.5}
	cfg = h.resolvePlanConfig(song, req)
	if cfg.ClipCount != 3 {
		t.Errorf("request clip_count should win, got %d", cfg.ClipCount)
	}
	if cfg.MaxClipSec != 9.5 {
		t.Errorf("request max_clip_sec should win, got %v", cfg.MaxClipSec)
	}
	if cfg.FPS != 24 {
		t.Errorf("song fps should survive when request omits it, got %d", cfg.FPS)
	}
	if cfg.MinClipSec != 3.0 {
		t.Errorf("default min_clip_sec should survive, got %v", cfg.MinClipSec)
	}
}
