package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/openai"
)

// maxSpeechChars bounds one synthesis request; longer questions are read in
// the UI instead of spoken.
const maxSpeechChars = 4096

// SpeechFunction synthesizes question audio, caching results in GCS keyed
// by content hash so repeated practice of the same question is free.
type SpeechFunction struct {
	client        *openai.Client
	storageClient *storage.Client
	config        *config.AppConfig
}

// NewSpeech creates a new SpeechFunction instance.
func NewSpeech(ctx context.Context, cfg *config.AppConfig) (*SpeechFunction, error) {
	client, err := openai.NewClient(cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &SpeechFunction{client: client, storageClient: storageClient, config: cfg}, nil
}

// Process returns audio/mpeg bytes for the given text.
func (f *SpeechFunction) Process(ctx context.Context, req *models.SpeechRequest) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("no text provided for speech synthesis")
	}
	if len(text) > maxSpeechChars {
		return nil, fmt.Errorf("text too long for speech synthesis: %d chars", len(text))
	}

	voice := req.Voice
	if voice == "" {
		voice = f.config.OpenAI.Voice
	}
	objectName := audioObjectName(text, voice)
	logCtx := slog.With("gcsObject", objectName)

	if f.config.Buckets.Audio != "" {
		bucket := f.storageClient.Bucket(f.config.Buckets.Audio)
		if cached, err := gcp.ReadObject(ctx, bucket, objectName); err == nil {
			logCtx.Info("Serving cached audio.")
			return cached, nil
		} else if !errors.Is(err, storage.ErrObjectNotExist) {
			logCtx.Warn("Audio cache read failed; synthesizing fresh.", "error", err)
		}
	}

	audio, err := f.client.Speak(ctx, text, voice)
	if err != nil {
		logCtx.Error("Speech synthesis failed", "error", err)
		return nil, err
	}

	if f.config.Buckets.Audio != "" {
		bucket := f.storageClient.Bucket(f.config.Buckets.Audio)
		if err := gcp.SaveToGCSAtomically(ctx, bucket, objectName, audio); err != nil {
			logCtx.Warn("Failed to cache audio", "error", err)
		}
	}

	logCtx.Info("Speech synthesis complete.", "bytes", len(audio))
	return audio, nil
}

func audioObjectName(text, voice string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return fmt.Sprintf("tts/%s.mp3", hex.EncodeToString(sum[:]))
}
