package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/snarg/meetscribe/internal/pipeline"
	"github.com/snarg/meetscribe/internal/stt"
)

type Config struct {
	// Model services
	WhisperModel    string `env:"WHISPER_MODEL" envDefault:"medium.en"`
	WhisperURL      string `env:"WHISPER_URL" envDefault:"http://127.0.0.1:9000"`
	AlignURL        string `env:"ALIGN_URL" envDefault:"http://127.0.0.1:9001"`
	DiarizeURL      string `env:"DIARIZE_URL" envDefault:"http://127.0.0.1:9002"`
	SummarizerModel string `env:"SUMMARIZER_MODEL" envDefault:"llama3.1:8b"`
	OllamaHost      string `env:"OLLAMA_HOST" envDefault:"http://127.0.0.1"`
	HFToken         string `env:"HF_TOKEN"`
	Device          string `env:"DEVICE" envDefault:"cpu"`

	// Directories
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./audio_files"`
	TranscriptsDir string `env:"TRANSCRIPTS_DIR" envDefault:"./transcripts"`
	WorkDir        string `env:"WORK_DIR" envDefault:""` // empty = system temp

	// Pipeline
	StageTimeout time.Duration `env:"STAGE_TIMEOUT" envDefault:"15m"`
	WriteJSON    bool          `env:"WRITE_JSON" envDefault:"true"`

	// HTTP service
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int64         `env:"MAX_UPLOAD_MB" envDefault:"512"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile        string
	HTTPAddr       string
	LogLevel       string
	WhisperModel   string
	TranscriptsDir string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.WhisperModel != "" {
		cfg.WhisperModel = overrides.WhisperModel
	}
	if overrides.TranscriptsDir != "" {
		cfg.TranscriptsDir = overrides.TranscriptsDir
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}

	return cfg, nil
}

// Validate fails fast on configuration that would only surface mid-pipeline:
// an unknown recognition model size or a missing diarization credential.
// Called before any upload is accepted or file is touched.
func (c *Config) Validate() error {
	if err := stt.ValidateModelSize(c.WhisperModel); err != nil {
		return err
	}
	if c.HFToken == "" {
		return pipeline.Errorf(pipeline.KindConfiguration,
			"Hugging Face token (HF_TOKEN) is not set in the environment")
	}
	return nil
}
