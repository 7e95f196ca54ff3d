package services

import (
	"encoding/json"
	"testing"
)

func TestSanitizeBeats(t *testing.T) {
	tests := []struct {
		name     string
		beats    []float64
		duration float64
		want     []float64
	}{
		{
			name:     "clean grid passes through",
			beats:    []float64{0.5, 1.0, 1.5, 2.0},
			duration: 3.0,
			want:     []float64{0.5, 1.0, 1.5, 2.0},
		},
		{
			name:     "duplicate timestamps dropped",
			beats:    []float64{0.5, 0.5, 1.0},
			duration: 3.0,
			want:     []float64{0.5, 1.0},
		},
		{
			name:     "beats past the end dropped",
			beats:    []float64{1.0, 2.0, 3.05},
			duration: 3.0,
			want:     []float64{1.0, 2.0},
		},
		{
			name:     "negative beats dropped",
			beats:    []float64{-0.1, 0.5, 1.0},
			duration: 3.0,
			want:     []float64{0.5, 1.0},
		},
		{
			name:     "out of order beat dropped",
			beats:    []float64{1.0, 0.8, 1.5},
			duration: 3.0,
			want:     []float64{1.0, 1.5},
		},
		{
			name:     "empty input",
			beats:    nil,
			duration: 3.0,
			want:     []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeBeats(tt.beats, tt.duration)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d beats, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("beat %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDecodeOutputURL(t *testing.T) {
	url, err := decodeOutputURL(json.RawMessage(`"https://example.com/out.mp4"`))
	if err != nil {
		t.Fatalf("bare string output: %v", err)
	}
	if url != "https://example.com/out.mp4" {
		t.Errorf("unexpected url: %s", url)
	}

	url, err = decodeOutputURL(json.RawMessage(`["https://example.com/a.mp4", "https://example.com/b.mp4"]`))
	if err != nil {
		t.Fatalf("list output: %v", err)
	}
	if url != "https://example.com/a.mp4" {
		t.Errorf("expected first list element, got %s", url)
	}

	if _, err := decodeOutputURL(json.RawMessage(`{"frames": 12}`)); err == nil {
		t.Error("expected error for object output")
	}
	if _, err := decodeOutputURL(json.RawMessage(`[]`)); err == nil {
		t.Error("expected error for empty list output")
	}
}
