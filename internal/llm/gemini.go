package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/haider984/codsy/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiClient implements Client over the Google GenAI API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed LLM client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// generate runs a single-turn completion and returns the trimmed text.
func (c *GeminiClient) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate failed: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}

// Classify assigns one of the four taxonomy labels to message content.
// The caller must default to greeting on error.
func (c *GeminiClient) Classify(ctx context.Context, content string) (models.MessageType, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(classificationPrompt, content), 0.5)
	if err != nil {
		return "", err
	}
	return ParseLabel(raw), nil
}

// ExtractTasks decomposes content into task specs. An unparseable
// response yields an empty list.
func (c *GeminiClient) ExtractTasks(ctx context.Context, content string) ([]TaskSpec, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(extractionPrompt, content), 0.7)
	if err != nil {
		return nil, err
	}
	return ParseTasks(raw), nil
}

// VerifyResult classifies an executor result. The caller must default to
// pending on error.
func (c *GeminiClient) VerifyResult(ctx context.Context, platform models.Platform, result string) (models.TaskStatus, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(verificationPrompt, platform, result), 0.5)
	if err != nil {
		return "", err
	}
	return ParseVerdict(raw), nil
}

// Summarize merges task results into one user-facing reply.
func (c *GeminiClient) Summarize(ctx context.Context, mid string, results []TaskResult) (string, error) {
	details := make([]string, 0, len(results))
	for _, r := range results {
		details = append(details, fmt.Sprintf("Title: %s\nReply: %s", r.Title, r.Reply))
	}

	return c.generate(ctx, fmt.Sprintf(summaryPrompt, mid, strings.Join(details, "\n\n")), 0.4)
}

// ChatReply produces a conversational reply, using recent history from the
// same sender as context.
func (c *GeminiClient) ChatReply(ctx context.Context, content string, history []models.Message) (string, error) {
	var b strings.Builder
	b.WriteString(chatSystemPrompt)
	b.WriteString("\n\nConversation so far:\n")
	for _, msg := range history {
		if msg.Content != "" {
			fmt.Fprintf(&b, "%s: %s\n", msg.Username, msg.Content)
		}
		if msg.Reply != "" {
			fmt.Fprintf(&b, "assistant: %s\n", msg.Reply)
		}
	}
	fmt.Fprintf(&b, "\nNew message:\n%s\n\nReply:", content)

	return c.generate(ctx, b.String(), 0.7)
}
