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

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleService translates through the free Google Translate web endpoint.
// No credential is required, so it is always available and serves as the
// engine default.
type GoogleService struct {
	endpoint   string
	httpClient *http.Client
	pace       time.Duration
}

func NewGoogleService() *GoogleService {
	return &GoogleService{
		endpoint: googleEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pace: 50 * time.Millisecond,
	}
}

func (s *GoogleService) Name() string { return "google" }

func (s *GoogleService) IsAvailable() bool { return true }

func (s *GoogleService) Pace() time.Duration { return s.pace }

func (s *GoogleService) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if isBlank(text) {
		return text
	}

	translated, err := s.translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Warn("google translate failed: %v", err)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

func (s *GoogleService) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", sourceLang)
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

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

	// The gtx endpoint answers with nested arrays: the first element holds
	// one [translated, original, ...] segment per sentence.
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}

	var sb strings.Builder
	for _, raw := range segments {
		segment, ok := raw.([]any)
		if !ok || len(segment) == 0 {
			continue
		}
		if part, ok := segment[0].(string); ok {
			sb.WriteString(part)
		}
	}
	return sb.String(), nil
}
