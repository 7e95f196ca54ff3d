package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"intro": 0.0,
		"drop":  32.5,
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["drop"].(float64) != 32.5 {
		t.Errorf("expected drop=32.5, got %v", result["drop"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"mood": "euphoric", "energy": 0.9}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["mood"] != "euphoric" {
		t.Errorf("expected mood=euphoric, got %v", j["mood"])
	}

	if j["energy"].(float64) != 0.9 {
		t.Errorf("expected energy=0.9, got %v", j["energy"])
	}
}

func TestFloatListRoundTrip(t *testing.T) {
	beats := FloatList{0.0, 0.5, 1.0, 1.5}

	data, err := beats.Value()
	if err != nil {
		t.Fatalf("failed to marshal FloatList: %v", err)
	}

	var scanned FloatList
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("failed to scan FloatList: %v", err)
	}

	if len(scanned) != len(beats) {
		t.Fatalf("expected %d beats, got %d", len(beats), len(scanned))
	}
	for i := range beats {
		if scanned[i] != beats[i] {
			t.Errorf("beat %d: expected %v, got %v", i, beats[i], scanned[i])
		}
	}
}

func TestFloatListScanNil(t *testing.T) {
	var f FloatList
	if err := f.Scan(nil); err != nil {
		t.Fatalf("failed to scan nil: %v", err)
	}
	if f != nil {
		t.Errorf("expected nil FloatList, got %v", f)
	}
}

func TestLyricWordsRoundTrip(t *testing.T) {
	words := LyricWords{
		{Word: "neon", Start: 12.1, End: 12.4},
		{Word: "nights", Start: 12.4, End: 12.9},
	}

	data, err := words.Value()
	if err != nil {
		t.Fatalf("failed to marshal LyricWords: %v", err)
	}

	var scanned LyricWords
	if err := scanned.Scan(data); err != nil {
		t.Fatalf("failed to scan LyricWords: %v", err)
	}

	if len(scanned) != 2 {
		t.Fatalf("expected 2 words, got %d", len(scanned))
	}
	if scanned[1].Word != "nights" || scanned[1].Start != 12.4 {
		t.Errorf("unexpected second word: %+v", scanned[1])
	}
}

func TestSongStatus(t *testing.T) {
	statuses := []SongStatus{
		SongStatusUploaded,
		SongStatusAnalyzing,
		SongStatusPlanning,
		SongStatusGenerating,
		SongStatusComposing,
		SongStatusCompleted,
		SongStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestClipStatus(t *testing.T) {
	statuses := []ClipStatus{
		ClipStatusPlanned,
		ClipStatusGenerating,
		ClipStatusGenerated,
		ClipStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}
