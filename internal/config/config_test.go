package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/snarg/meetscribe/internal/pipeline"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_testtoken")

	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "nonexistent.env")})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.WhisperModel != "medium.en" {
		t.Errorf("WhisperModel = %q, want medium.en", cfg.WhisperModel)
	}
	if cfg.SummarizerModel != "llama3.1:8b" {
		t.Errorf("SummarizerModel = %q, want llama3.1:8b", cfg.SummarizerModel)
	}
	if cfg.OllamaHost != "http://127.0.0.1" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
	if cfg.Device != "cpu" {
		t.Errorf("Device = %q, want cpu", cfg.Device)
	}
	if cfg.StageTimeout != 15*time.Minute {
		t.Errorf("StageTimeout = %v, want 15m", cfg.StageTimeout)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.WriteJSON {
		t.Error("WriteJSON should default to true")
	}
	if cfg.WorkDir != os.TempDir() {
		t.Errorf("WorkDir = %q, want system temp", cfg.WorkDir)
	}
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "large-v3")
	t.Setenv("STAGE_TIMEOUT", "5m")
	t.Setenv("WRITE_JSON", "false")
	t.Setenv("DEVICE", "cuda")

	cfg, err := Load(Overrides{EnvFile: filepath.Join(t.TempDir(), "nonexistent.env")})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WhisperModel != "large-v3" {
		t.Errorf("WhisperModel = %q", cfg.WhisperModel)
	}
	if cfg.StageTimeout != 5*time.Minute {
		t.Errorf("StageTimeout = %v", cfg.StageTimeout)
	}
	if cfg.WriteJSON {
		t.Error("WriteJSON should be false")
	}
	if cfg.Device != "cuda" {
		t.Errorf("Device = %q", cfg.Device)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "WHISPER_MODEL=small\nHF_TOKEN=hf_fromfile\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Overrides{EnvFile: envFile})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WhisperModel != "small" {
		t.Errorf("WhisperModel = %q, want small (from env file)", cfg.WhisperModel)
	}
	if cfg.HFToken != "hf_fromfile" {
		t.Error("HF_TOKEN not loaded from env file")
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "large-v3")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(Overrides{
		EnvFile:        filepath.Join(t.TempDir(), "nonexistent.env"),
		WhisperModel:   "tiny",
		HTTPAddr:       ":7070",
		LogLevel:       "debug",
		TranscriptsDir: "/srv/transcripts",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WhisperModel != "tiny" {
		t.Errorf("WhisperModel = %q, flag should win", cfg.WhisperModel)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, flag should win", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.TranscriptsDir != "/srv/transcripts" {
		t.Errorf("TranscriptsDir = %q", cfg.TranscriptsDir)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{WhisperModel: "medium.en", HFToken: "hf_testtoken"}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	t.Run("missing HF token", func(t *testing.T) {
		cfg := base()
		cfg.HFToken = ""
		err := cfg.Validate()
		if pipeline.KindOf(err) != pipeline.KindConfiguration {
			t.Fatalf("kind = %q, want %q", pipeline.KindOf(err), pipeline.KindConfiguration)
		}
		if !strings.Contains(err.Error(), "HF_TOKEN") {
			t.Errorf("error should name the variable, got %q", err.Error())
		}
	})

	t.Run("unknown model size", func(t *testing.T) {
		cfg := base()
		cfg.WhisperModel = "colossal"
		err := cfg.Validate()
		if pipeline.KindOf(err) != pipeline.KindConfiguration {
			t.Fatalf("kind = %q, want %q", pipeline.KindOf(err), pipeline.KindConfiguration)
		}
	})
}
