package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/beatcut_test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPLICATE_API_TOKEN", "r8-test")
	t.Setenv("SUPABASE_URL", "https://test.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != "8080" {
		t.Errorf("APIPort: got %q, want 8080", cfg.APIPort)
	}
	if cfg.DefaultClipCount != 8 {
		t.Errorf("DefaultClipCount: got %d, want 8", cfg.DefaultClipCount)
	}
	if cfg.MinClipSec != 3.0 || cfg.MaxClipSec != 15.0 {
		t.Errorf("clip window: got [%v, %v], want [3, 15]", cfg.MinClipSec, cfg.MaxClipSec)
	}
	if cfg.RenderFPS != 8 {
		t.Errorf("RenderFPS: got %d, want 8", cfg.RenderFPS)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLoadInvalidClipWindow(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_CLIP_SEC", "20")
	t.Setenv("MAX_CLIP_SEC", "10")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted clip window")
	}
}

func TestLoadVeoRequiresGeminiKey(t *testing.T) {
	setRequired(t)
	t.Setenv("VEO_ENABLED", "true")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when VEO_ENABLED without GEMINI_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_CLIP_COUNT", "12")
	t.Setenv("RENDER_FPS", "24")
	t.Setenv("MAX_CONCURRENT_JOBS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DefaultClipCount != 12 {
		t.Errorf("DefaultClipCount: got %d, want 12", cfg.DefaultClipCount)
	}
	if cfg.RenderFPS != 24 {
		t.Errorf("RenderFPS: got %d, want 24", cfg.RenderFPS)
	}
	if cfg.MaxConcurrentJobs != 2 {
		t.Errorf("MaxConcurrentJobs: got %d, want 2", cfg.MaxConcurrentJobs)
	}
}
