package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/examanalyzer/backend/internal/config"
	"github.com/examanalyzer/backend/internal/gcp"
	"github.com/examanalyzer/backend/internal/models"
)

// maxOCRPages bounds one OCR request; the 20MB upload cap makes larger
// requests impossible in practice, this guards against crafted payloads.
const maxOCRPages = 100

// OCRFunction holds dependencies for the page-recognition logic.
type OCRFunction struct {
	vertexClient *gcp.VertexClient
}

// NewOCR creates a new OCRFunction instance.
func NewOCR(ctx context.Context, cfg *config.AppConfig) (*OCRFunction, error) {
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &OCRFunction{vertexClient: vertexClient}, nil
}

// Process transcribes the inline page payloads in order and returns the
// concatenated text.
func (f *OCRFunction) Process(ctx context.Context, req *models.OCRRequest) (*models.OCRResponse, error) {
	logCtx := slog.With("pageCount", len(req.Images))
	logCtx.Info("Starting OCR.")

	if len(req.Images) == 0 {
		return nil, fmt.Errorf("no page images provided for OCR")
	}
	if len(req.Images) > maxOCRPages {
		return nil, fmt.Errorf("too many pages in one OCR request: %d", len(req.Images))
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	parts = append(parts, genai.Text(gcp.OCRUserPrompt))

	model := f.vertexClient.OCRModel
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		logCtx.Error("Call to Vertex AI for OCR failed", "error", err)
		return nil, fmt.Errorf("failed to recognize pages with gemini: %w", err)
	}

	text := extractTextContent(resp)
	if text == "" {
		logCtx.Warn("OCR produced no text; pages may be blank.")
	}

	logCtx.Info("OCR complete.", "textLength", len(text))
	return &models.OCRResponse{Text: text}, nil
}

// extractTextContent concatenates every text part of the model response.
func extractTextContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}
