// Package ai provides the optional LLM-backed email classifier. Every
// failure path degrades to the local keyword heuristics; callers never see an
// error from the pipeline because of a detector problem.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Detection is the classifier's verdict for one email.
type Detection struct {
	IsJobApplication bool     `json:"is_job_application"`
	Status           string   `json:"status"`
	Confidence       float64  `json:"confidence"`
	Indicators       []string `json:"indicators"`
	Reasoning        string   `json:"reasoning"`
}

// Detector classifies an email's job-relatedness and application status.
type Detector interface {
	Detect(ctx context.Context, subject, sender, body string) (*Detection, error)
}

const (
	// DefaultModel balances cost against classification quality.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds the outbound call; on expiry the pipeline falls
	// back to keyword matching.
	DefaultTimeout = 8 * time.Second

	// Long bodies add cost without improving the verdict.
	maxBodyChars = 4000
)

const systemPrompt = `You classify forwarded emails for a job-application tracker.

Decide whether the email relates to a job application the recipient made, and
if so which stage it indicates. Respond with a single JSON object, no prose:

{"is_job_application": bool,
 "status": "applied" | "screening" | "interviewing" | "offer" | "rejected" | "withdrawn",
 "confidence": number between 0 and 100,
 "indicators": [key phrases from the email],
 "reasoning": "one sentence"}`

// OpenAIDetector implements Detector with a chat-completion call.
type OpenAIDetector struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// Config holds OpenAIDetector settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAIDetector creates a detector from config, applying defaults.
func NewOpenAIDetector(cfg Config) *OpenAIDetector {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIDetector{
		client:  openai.NewClient(cfg.APIKey),
		model:   model,
		timeout: timeout,
	}
}

// Detect classifies one email. The call is bounded by the configured timeout.
func (d *OpenAIDetector) Detect(ctx context.Context, subject, sender, body string) (*Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	userPrompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", sender, subject, body)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseDetection(resp.Choices[0].Message.Content)
}

// parseDetection decodes the model's JSON answer, tolerating code fences.
func parseDetection(content string) (*Detection, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var detection Detection
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &detection); err != nil {
		return nil, fmt.Errorf("failed to decode detection: %w", err)
	}
	return &detection, nil
}
