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

// ExtractorFunction holds dependencies for the question-extraction logic.
type ExtractorFunction struct {
	vertexClient *gcp.VertexClient
}

// NewExtractor creates a new ExtractorFunction instance.
func NewExtractor(ctx context.Context, cfg *config.AppConfig) (*ExtractorFunction, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &ExtractorFunction{vertexClient: vertexClient}, nil
}

// Process submits the full paper text and parses the model's JSON array of
// questions. An empty array is a valid result; the caller decides whether
// that fails the file.
func (f *ExtractorFunction) Process(ctx context.Context, req *models.ExtractQuestionsRequest) (*models.ExtractQuestionsResponse, error) {
	logCtx := slog.With("textLength", len(req.Text))
	logCtx.Info("Starting question extraction.")

	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("no text provided for question extraction")
	}

	model := f.vertexClient.ExtractorModel
	resp, err := model.GenerateContent(ctx, genai.Text(gcp.ExtractorUserPrompt), genai.Text(req.Text))
	if err != nil {
		logCtx.Error("Call to Vertex AI for question extraction failed", "error", err)
		return nil, fmt.Errorf("failed to extract questions from gemini: %w", err)
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, fmt.Errorf("gemini returned an empty response instead of JSON")
	}

	var questions []models.ExtractedQuestion
	if err := json.Unmarshal([]byte(jsonString), &questions); err != nil {
		logCtx.Error("Failed to unmarshal JSON response from Gemini", "error", err, "responseBody", jsonString)
		return nil, fmt.Errorf("failed to parse question JSON from model: %w", err)
	}

	logCtx.Info("Question extraction complete.", "questionCount", len(questions))
	return &models.ExtractQuestionsResponse{Questions: questions}, nil
}

// extractJSONContent robustly gets the raw text content from a model
// response, stripping markdown fences the model sometimes adds despite the
// JSON response mime type.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		cleanJSON := strings.TrimSpace(string(txt))
		cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
		cleanJSON = strings.TrimPrefix(cleanJSON, "```")
		cleanJSON = strings.TrimSuffix(cleanJSON, "```")
		return strings.TrimSpace(cleanJSON)
	}
	return ""
}
