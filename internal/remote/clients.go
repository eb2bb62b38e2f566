// Package remote holds the thin request wrappers around the three AI worker
// functions. Each call takes a bounded input and returns a typed result or
// an error; there is no retry, backoff, or rate limiting here. Failures
// propagate to the batch controller immediately.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/examanalyzer/backend/internal/models"
)

const defaultTimeout = 5 * time.Minute

// Client calls the deployed worker functions over HTTP.
type Client struct {
	extractorURL string
	analyzerURL  string
	ocrURL       string
	httpClient   *http.Client
}

// NewClient wires the function endpoints. Empty URLs are tolerated here and
// reported by the single request that needs them.
func NewClient(extractorURL, analyzerURL, ocrURL string) *Client {
	return &Client{
		extractorURL: extractorURL,
		analyzerURL:  analyzerURL,
		ocrURL:       ocrURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
}

// ExtractQuestions submits the full paper text for question extraction.
func (c *Client) ExtractQuestions(ctx context.Context, text string) ([]models.ExtractedQuestion, error) {
	if c.extractorURL == "" {
		return nil, fmt.Errorf("question-extractor endpoint is not configured")
	}
	var resp models.ExtractQuestionsResponse
	if err := c.post(ctx, c.extractorURL, models.ExtractQuestionsRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// Analyze classifies one question against the syllabus topics. Callers treat
// any error as "no classification available", never as a file failure.
func (c *Client) Analyze(ctx context.Context, question string, topics []string) (*models.Classification, error) {
	if c.analyzerURL == "" {
		return nil, fmt.Errorf("question-analyzer endpoint is not configured")
	}
	var resp models.AnalyzeQuestionResponse
	if err := c.post(ctx, c.analyzerURL, models.AnalyzeQuestionRequest{Question: question, Topics: topics}, &resp); err != nil {
		return nil, err
	}
	if resp.Topic == "" {
		return nil, fmt.Errorf("analyzer returned no classification")
	}
	return &models.Classification{
		Topic:       resp.Topic,
		Difficulty:  resp.Difficulty,
		Explanation: resp.Explanation,
	}, nil
}

// Recognize sends rendered page payloads to the OCR function.
func (c *Client) Recognize(ctx context.Context, pages []models.PagePayload) (string, error) {
	if c.ocrURL == "" {
		return "", fmt.Errorf("page-ocr endpoint is not configured")
	}
	var resp models.OCRResponse
	if err := c.post(ctx, c.ocrURL, models.OCRRequest{Images: pages}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, url string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload models.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("remote call failed with status %d", resp.StatusCode)
}
