package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/models"
)

// AnalyzerFunction holds dependencies for the question-classification logic.
type AnalyzerFunction struct {
	vertexClient *gcp.VertexClient
}

// NewAnalyzer creates a new AnalyzerFunction instance.
func NewAnalyzer(ctx context.Context, cfg *config.AppConfig) (*AnalyzerFunction, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &AnalyzerFunction{vertexClient: vertexClient}, nil
}

// Process classifies one question against the syllabus topics. Any failure
// here is soft downstream: the batch controller persists the question
// unanalyzed and keeps going.
func (f *AnalyzerFunction) Process(ctx context.Context, req *models.AnalyzeQuestionRequest) (*models.AnalyzeQuestionResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("no question provided for analysis")
	}
	if len(req.Topics) == 0 {
		return nil, fmt.Errorf("no syllabus topics provided for analysis")
	}

	topicList := "- " + strings.Join(req.Topics, "\n- ")
	prompt := fmt.Sprintf(gcp.AnalyzerUserPromptTemplate, req.Question, topicList)

	model := f.vertexClient.AnalyzerModel
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.Error("Call to Vertex AI for classification failed", "error", err)
		return nil, fmt.Errorf("failed to classify question with gemini: %w", err)
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, fmt.Errorf("gemini returned an empty response instead of JSON")
	}

	var result models.AnalyzeQuestionResponse
	if err := json.Unmarshal([]byte(jsonString), &result); err != nil {
		slog.Error("Failed to unmarshal classification JSON", "error", err, "responseBody", jsonString)
		return nil, fmt.Errorf("failed to parse classification JSON from model: %w", err)
	}
	if result.Topic == "" {
		return nil, fmt.Errorf("model returned no topic for question")
	}
	result.Difficulty = normalizeDifficulty(result.Difficulty)

	return &result, nil
}

// normalizeDifficulty maps free-form model output onto the three levels the
// dashboard understands. Unknown values default to medium rather than
// leaking raw model text into records.
func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy", "simple", "basic":
		return "easy"
	case "hard", "difficult", "challenging":
		return "hard"
	default:
		return "medium"
	}
}
