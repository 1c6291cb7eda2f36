package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/substudio/subtitle-translator/pkg/log"
)

const (
	geminiAPIBase      = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiDefaultModel = "gemini-2.0-flash"
)

// GeminiService translates through the Google Gemini generative API. It is
// the one service that supports context injection: prior translated lines
// are appended to the prompt as a disambiguation hint.
type GeminiService struct {
	apiKey     string
	model      string
	apiBase    string
	httpClient *http.Client
	pace       time.Duration
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiService{
		apiKey:  apiKey,
		model:   model,
		apiBase: geminiAPIBase,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		pace: 200 * time.Millisecond,
	}
}

func (s *GeminiService) Name() string { return "gemini" }

func (s *GeminiService) IsAvailable() bool { return s.apiKey != "" }

func (s *GeminiService) Pace() time.Duration { return s.pace }

func (s *GeminiService) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	return s.TranslateWithContext(ctx, text, sourceLang, targetLang, "")
}

func (s *GeminiService) TranslateWithContext(ctx context.Context, text, sourceLang, targetLang, contextHint string) string {
	if isBlank(text) || !s.IsAvailable() {
		return text
	}

	translated, err := s.translate(ctx, text, sourceLang, targetLang, contextHint)
	if err != nil {
		log.Warn("gemini translate failed: %v", err)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

func (s *GeminiService) buildPrompt(text, sourceLang, targetLang, contextHint string) string {
	var prompt strings.Builder
	prompt.WriteString("Translate the following text from " + sourceLang + " to " + targetLang + ". ")
	prompt.WriteString("Provide ONLY the translation without explanations or additional text.\n\n")
	if contextHint != "" {
		prompt.WriteString("Context from previous subtitles:\n" + contextHint + "\n\n")
	}
	prompt.WriteString("Text to translate:\n" + text)
	return prompt.String()
}

func (s *GeminiService) translate(ctx context.Context, text, sourceLang, targetLang, contextHint string) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": s.buildPrompt(text, sourceLang, targetLang, contextHint)},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.3,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", s.apiBase, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		if parsed.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("blocked: %s", parsed.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
