// Package openai wraps the OpenAI operations that back answer evaluation
// and speech synthesis.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/examanalyzer/backend/internal/config"
)

const evaluatorSystemPrompt = "You are an examiner grading one free-text answer. Score it from 0 to 100 against the question (and the model answer when provided) and give short, actionable feedback. Respond with a single JSON object with exactly two keys: \"score\" (integer) and \"feedback\" (string). Do not include any text before or after the JSON object."

// Client holds a configured OpenAI client plus the model selection.
type Client struct {
	client      *openai.Client
	evalModel   string
	speechModel string
	voice       string
}

// NewClient validates the credential up front; a missing key is the one
// configuration error treated as fatal for these two functions.
func NewClient(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key must be configured")
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		client:      &client,
		evalModel:   cfg.EvalModel,
		speechModel: cfg.SpeechModel,
		voice:       cfg.Voice,
	}, nil
}

// Evaluation is the graded result for one free-text answer.
type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// EvaluateAnswer grades a student answer. Malformed model output is an
// error to the caller; a partial grade is never stored.
func (c *Client) EvaluateAnswer(ctx context.Context, question, modelAnswer, studentAnswer string) (*Evaluation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question:\n%s\n\n", question)
	if modelAnswer != "" {
		fmt.Fprintf(&sb, "Model answer:\n%s\n\n", modelAnswer)
	}
	fmt.Fprintf(&sb, "Student answer:\n%s\n", studentAnswer)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.evalModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(evaluatorSystemPrompt),
			openai.UserMessage(sb.String()),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("evaluation returned no choices")
	}

	var eval Evaluation
	if err := json.Unmarshal([]byte(TrimJSONFences(resp.Choices[0].Message.Content)), &eval); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
	}
	eval.Score = clampScore(eval.Score)
	return &eval, nil
}

// Speak synthesizes the given text and returns raw audio bytes.
func (c *Client) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = c.voice
	}
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.speechModel),
		Voice: openai.AudioSpeechNewParamsVoice(voice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return audio, nil
}

// TrimJSONFences strips the markdown code fences models sometimes wrap
// around JSON output.
func TrimJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
