package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// AppConfig holds the configuration shared by all functions. Values come
// from config.yaml with EA_* environment overrides, e.g. EA_OPENAI_APIKEY
// maps to openai.apikey.
type AppConfig struct {
	ProjectID   string            `koanf:"projectid" validate:"required"`
	Region      string            `koanf:"region"`
	Buckets     BucketsConfig     `koanf:"buckets"`
	Collections CollectionsConfig `koanf:"collections"`
	Functions   FunctionsConfig   `koanf:"functions"`
	Workflow    WorkflowConfig    `koanf:"workflow"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
	Mail        MailConfig        `koanf:"mail"`
	Upload      UploadConfig      `koanf:"upload"`
}

// BucketsConfig names the GCS buckets.
type BucketsConfig struct {
	Uploads string `koanf:"uploads" validate:"required"`
	Audio   string `koanf:"audio"`
}

// CollectionsConfig names the Firestore collections.
type CollectionsConfig struct {
	Queue     string `koanf:"queue"`
	Papers    string `koanf:"papers"`
	Questions string `koanf:"questions"`
	Syllabi   string `koanf:"syllabi"`
	Sessions  string `koanf:"sessions"`
	Profiles  string `koanf:"profiles"`
}

// FunctionsConfig holds the deployed worker function endpoints.
type FunctionsConfig struct {
	ExtractorURL string `koanf:"extractorurl"`
	AnalyzerURL  string `koanf:"analyzerurl"`
	OCRURL       string `koanf:"ocrurl"`
}

// WorkflowConfig identifies the processing workflow triggered on intake.
type WorkflowConfig struct {
	ID       string `koanf:"id"`
	Location string `koanf:"location"`
}

// OpenAIConfig covers answer evaluation and speech synthesis.
type OpenAIConfig struct {
	APIKey      string `koanf:"apikey"`
	EvalModel   string `koanf:"evalmodel"`
	SpeechModel string `koanf:"speechmodel"`
	Voice       string `koanf:"voice"`
}

// MailConfig covers the transactional email provider.
type MailConfig struct {
	Endpoint string `koanf:"endpoint"`
	APIKey   string `koanf:"apikey"`
	From     string `koanf:"from"`
}

// UploadConfig bounds accepted documents.
type UploadConfig struct {
	MaxBytes int64 `koanf:"maxbytes"`
}

const envPrefix = "EA_"

// Load reads the yaml file (optional) and the environment, applies
// defaults, and validates the result.
func Load(filePath string) (*AppConfig, error) {
	k := koanf.New(".")

	if filePath != "" {
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Collections.Queue == "" {
		cfg.Collections.Queue = "paperQueue"
	}
	if cfg.Collections.Papers == "" {
		cfg.Collections.Papers = "papers"
	}
	if cfg.Collections.Questions == "" {
		cfg.Collections.Questions = "questions"
	}
	if cfg.Collections.Syllabi == "" {
		cfg.Collections.Syllabi = "syllabi"
	}
	if cfg.Collections.Sessions == "" {
		cfg.Collections.Sessions = "practiceSessions"
	}
	if cfg.Collections.Profiles == "" {
		cfg.Collections.Profiles = "profiles"
	}
	if cfg.Workflow.ID == "" {
		cfg.Workflow.ID = "paper-processing-orchestrator"
	}
	if cfg.Workflow.Location == "" {
		cfg.Workflow.Location = cfg.Region
	}
	if cfg.OpenAI.EvalModel == "" {
		cfg.OpenAI.EvalModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.SpeechModel == "" {
		cfg.OpenAI.SpeechModel = "tts-1"
	}
	if cfg.OpenAI.Voice == "" {
		cfg.OpenAI.Voice = "alloy"
	}
	if cfg.Mail.Endpoint == "" {
		cfg.Mail.Endpoint = "https://api.resend.com/emails"
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 20 * 1024 * 1024
	}
}
