package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/sashabaranov/go-openai"
)

const analysisPrompt = "You are a building maintenance expert. Analyze the following description and provide " +
	"a severity score (1-10), categorization, and repair suggestions in JSON format."

// AnalysisService asks a chat model to assess a defect description and
// keeps every answer as an AIAnalysis row.
type AnalysisService struct {
	client *openai.Client
	model  string
	store  *Store
}

// NewAnalysisService returns a service without a client when no API key is
// configured; Analyze then fails with ErrNotConfigured.
func NewAnalysisService(cfg *config.OpenAIConfig, store *Store) *AnalysisService {
	s := &AnalysisService{model: cfg.Model, store: store}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		s.client = openai.NewClientWithConfig(clientCfg)
	}
	return s
}

func (s *AnalysisService) Analyze(ctx context.Context, userID, text string, submissionID *string) (*model.AIAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Message: "No text provided"}
	}
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	if submissionID != nil {
		if _, err := s.store.GetSubmission(ctx, *submissionID); err != nil {
			return nil, err
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	result := stripCodeFence(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(result)) {
		return nil, fmt.Errorf("model returned invalid JSON: %.200s", result)
	}

	analysis := &model.AIAnalysis{
		SubmissionID: submissionID,
		UserID:       userID,
		Text:         text,
		Result:       result,
		Model:        resp.Model,
	}
	if analysis.Model == "" {
		analysis.Model = s.model
	}
	if err := s.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// List returns the analyses stored for a submission, newest first.
func (s *AnalysisService) List(ctx context.Context, submissionID string) ([]model.AIAnalysis, error) {
	return s.store.ListAnalyses(ctx, submissionID)
}
