package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "SENTENCES_PER_PARAGRAPH", "AD_DISCLOSURE", "REFLOW_ENABLED", "WORKER_COUNT", "JOB_TTL", "EMPHASIS_MARKER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.SentencesPerParagraph != 2 || !cfg.ReflowEnabled || cfg.EmphasisMarker != "**" {
		t.Errorf("unexpected conversion defaults %+v", cfg)
	}
	if cfg.AdDisclosure != defaultDisclosure {
		t.Errorf("expected default disclosure, got %q", cfg.AdDisclosure)
	}
	if cfg.WorkerCount != 4 || cfg.JobTTL != time.Hour {
		t.Errorf("unexpected pool defaults %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SENTENCES_PER_PARAGRAPH", "3")
	t.Setenv("REFLOW_ENABLED", "false")
	t.Setenv("AD_DISCLOSURE", "")
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "90s")

	cfg := Load()
	if cfg.SentencesPerParagraph != 3 || cfg.ReflowEnabled {
		t.Errorf("unexpected conversion settings %+v", cfg)
	}
	if cfg.AdDisclosure != "" {
		t.Errorf("expected empty disclosure to be kept, got %q", cfg.AdDisclosure)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 90*time.Second {
		t.Errorf("expected 90s ttl, got %v", cfg.JobTTL)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCSTORE_URL=http://docs.internal:9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("DOCSTORE_URL", "")
	os.Unsetenv("DOCSTORE_URL")
	t.Cleanup(func() { os.Unsetenv("DOCSTORE_URL") })

	if got := Load().DocstoreURL; got != "http://docs.internal:9000" {
		t.Errorf("expected .env value, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{DocstoreAPIKey: "a", DocrhythmAPIKey: "b", EmphasisMarker: "**"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.DocstoreAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing docstore key")
	}
}
