package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/substudio/subtitle-translator/pkg/log"
)

const yandexEndpoint = "https://translate.api.cloud.yandex.net/translate/v2/translate"

// YandexService translates through the Yandex Cloud Translate JSON API.
// Requires an API credential passed as a bearer token.
type YandexService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	pace       time.Duration
}

func NewYandexService(apiKey string) *YandexService {
	return &YandexService{
		apiKey:   apiKey,
		endpoint: yandexEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pace: 100 * time.Millisecond,
	}
}

func (s *YandexService) Name() string { return "yandex" }

func (s *YandexService) IsAvailable() bool { return s.apiKey != "" }

func (s *YandexService) Pace() time.Duration { return s.pace }

func (s *YandexService) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if isBlank(text) || !s.IsAvailable() {
		return text
	}

	translated, err := s.translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Warn("yandex translate failed: %v", err)
		return text
	}
	return translated
}

type yandexRequest struct {
	SourceLanguageCode string   `json:"sourceLanguageCode"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
	Texts              []string `json:"texts"`
}

type yandexResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (s *YandexService) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	payload, err := json.Marshal(yandexRequest{
		SourceLanguageCode: sourceLang,
		TargetLanguageCode: targetLang,
		Texts:              []string{text},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

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

	var parsed yandexResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("empty translations")
	}
	return parsed.Translations[0].Text, nil
}
