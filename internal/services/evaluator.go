package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/models"
	"github.com/examanalyzer/backend/internal/openai"
)

// EvaluatorFunction grades free-text answers through OpenAI.
type EvaluatorFunction struct {
	client *openai.Client
}

// NewEvaluator creates a new EvaluatorFunction instance.
func NewEvaluator(cfg *config.AppConfig) (*EvaluatorFunction, error) {
	client, err := openai.NewClient(cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	return &EvaluatorFunction{client: client}, nil
}

// Process grades one answer.
func (f *EvaluatorFunction) Process(ctx context.Context, req *models.EvaluateAnswerRequest) (*models.EvaluateAnswerResponse, error) {
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.StudentAnswer) == "" {
		return nil, fmt.Errorf("question and student answer are both required")
	}

	eval, err := f.client.EvaluateAnswer(ctx, req.Question, req.ModelAnswer, req.StudentAnswer)
	if err != nil {
		slog.Error("Answer evaluation failed", "error", err)
		return nil, err
	}

	slog.Info("Answer evaluated.", "score", eval.Score)
	return &models.EvaluateAnswerResponse{Score: eval.Score, Feedback: eval.Feedback}, nil
}
