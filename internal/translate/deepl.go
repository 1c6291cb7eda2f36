package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/substudio/subtitle-translator/pkg/log"
)

const deeplEndpoint = "https://api-free.deepl.com/v2/translate"

// DeepLService translates through the DeepL form API.
type DeepLService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	pace       time.Duration
}

func NewDeepLService(apiKey string) *DeepLService {
	return &DeepLService{
		apiKey:   apiKey,
		endpoint: deeplEndpoint,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
		pace: 150 * time.Millisecond,
	}
}

func (s *DeepLService) Name() string { return "deepl" }

func (s *DeepLService) IsAvailable() bool { return s.apiKey != "" }

func (s *DeepLService) Pace() time.Duration { return s.pace }

func (s *DeepLService) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if isBlank(text) || !s.IsAvailable() {
		return text
	}

	translated, err := s.translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Warn("deepl translate failed: %v", err)
		return text
	}
	return translated
}

func (s *DeepLService) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(targetLang))
	if sourceLang != "" && sourceLang != "auto" {
		form.Set("source_lang", strings.ToUpper(sourceLang))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+s.apiKey)

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
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("empty translations")
	}
	return parsed.Translations[0].Text, nil
}
