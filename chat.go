package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// chatSystemPrompt seeds every assistant conversation. It frames the
// assistant around the clustering models behind the classification
// pipeline.
const chatSystemPrompt = `You are an advanced AI designed to interpret insights from a machine learning clustering model trained on datasets related to changes, incidents, and services within an organization.
Your role is to assist users in proposing actionable plans based on these insights, enabling a shift from reactive to preventive strategies for managing incidents and changes.

Context:
Two clustering models analyze two primary datasets:

Changes Dataset: Contains information about infrastructure changes, including their type (categorized by Categorization Tier 1), associated services, assigned providers, and time-to-complete (calculated as Scheduled_end_date - Scheduled_start_date).
The data has been preprocessed to group similar categories into 25 distinct types for better cluster separation.

Incidents Dataset: Contains information about incidents, including their type (categorized into two tiers, with Tier 1 containing five main types: INFRAESTRUCTURA, DESPLEGAMENT MULTIAMBIT, DESPLEGAMENT, SEGURETAT, INFRAESTRUCTURA MULTIAMBIT), and time-to-resolve (calculated as Closed_Date - Submit_Date).

Workflow:
1. First, ask the user what they want to know about: an incident or a change.
2. Based on their selection, ask them for incident or change details.
3. After collecting the relevant information, provide useful action plans based on the clustering model insights.

Remember:
- Keep your responses focused and practical
- Include specific confidence levels for each recommendation
- Base insights on the clustering model's historical patterns
- Consider both direct and inferred relationships between changes and incidents

Start by asking the user whether they want information about an incident or a change.`

const chatMaxTokens = 256

// ChatAssistant proxies user messages to a remote LLM backend, or
// serves canned demo text when no credentials are configured. It
// never fails a user request: backend errors degrade to demo mode
// with a notice.
type ChatAssistant struct {
	Provider        string // "databricks" or "anthropic"
	Endpoint        string // databricks chat-completions URL
	Token           string
	AnthropicAPIKey string
	Model           string
	HTTPClient      *http.Client
}

func NewChatAssistant(cfg Config) *ChatAssistant {
	return &ChatAssistant{
		Provider:        cfg.ChatProvider,
		Endpoint:        cfg.ChatEndpoint,
		Token:           cfg.DatabricksToken,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		Model:           cfg.ChatModel,
		HTTPClient:      externalHTTPClient,
	}
}

// DemoMode reports whether the assistant has no usable backend.
func (a *ChatAssistant) DemoMode() bool {
	if a.Provider == "anthropic" {
		return a.AnthropicAPIKey == ""
	}
	return a.Token == "" || a.Endpoint == ""
}

// Respond produces the assistant's reply to one user message.
func (a *ChatAssistant) Respond(ctx context.Context, userMessage string) string {
	if a.DemoMode() {
		return CannedResponse(userMessage)
	}

	reply, err := a.complete(ctx, userMessage)
	if err != nil {
		log.Printf("chat backend error: %v", err)
		return fmt.Sprintf("I encountered an issue connecting to the chat backend. Using demo mode instead.\n\n%s", CannedResponse(userMessage))
	}
	return reply
}

// Probe sends a minimal test message to verify the backend is
// reachable. Used by the status endpoint and the scheduled probe.
func (a *ChatAssistant) Probe(ctx context.Context) error {
	if a.DemoMode() {
		return nil
	}
	_, err := a.complete(ctx, "test")
	return err
}

func (a *ChatAssistant) complete(ctx context.Context, userMessage string) (string, error) {
	if a.Provider == "anthropic" {
		return a.completeAnthropic(ctx, userMessage)
	}
	return a.completeDatabricks(ctx, userMessage)
}

// --- Databricks (OpenAI-style chat completions) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *ChatAssistant) completeDatabricks(ctx context.Context, userMessage string) (string, error) {
	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens: chatMaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading chat response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("chat backend returned %d: %s", resp.StatusCode, truncateForLog(respBody, 200))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat backend returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// --- Anthropic ---

func (a *ChatAssistant) completeAnthropic(ctx context.Context, userMessage string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(a.AnthropicAPIKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: chatMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: chatSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
