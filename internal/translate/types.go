package translate

import (
	"context"
	"strings"
	"time"
)

// Service is the capability set every translation backend implements.
//
// Translate is fail-soft by contract: a transport, auth or quota failure is
// logged and the original text comes back unchanged, so one bad call
// degrades a single line instead of aborting a whole batch.
type Service interface {
	// Name returns the service identifier used for registry lookup.
	Name() string

	Translate(ctx context.Context, text, sourceLang, targetLang string) string

	// IsAvailable reports whether the service can be used at all. For
	// key-based services this means "a credential is configured", not
	// "the network is reachable".
	IsAvailable() bool

	// Pace is the minimum delay between consecutive calls to this service.
	Pace() time.Duration
}

// ContextualService is implemented by services that can use previously
// translated lines as a disambiguation hint.
type ContextualService interface {
	Service

	TranslateWithContext(ctx context.Context, text, sourceLang, targetLang, contextHint string) string
}

// batchTranslate sequentially translates each text, sleeping the service's
// pace between calls. Output order and length always match the input.
func batchTranslate(ctx context.Context, svc Service, texts []string, sourceLang, targetLang string) []string {
	results := make([]string, 0, len(texts))
	for i, text := range texts {
		results = append(results, svc.Translate(ctx, text, sourceLang, targetLang))
		if i < len(texts)-1 {
			time.Sleep(svc.Pace())
		}
	}
	return results
}

// isBlank reports whether text would be a no-op for any remote service.
func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
