package translate

import (
	"context"
	"strings"
	"time"
)

// DefaultContextWindow is the number of prior translated lines fed back as
// context when the caller does not pick a window size.
const DefaultContextWindow = 3

// translateWithContextWindow translates texts strictly in order, feeding
// each call the already-translated outputs of the preceding window
// positions. The dependency on prior outputs makes this a fold over the
// sequence: it cannot be parallelized within one batch.
func translateWithContextWindow(ctx context.Context, svc ContextualService, texts []string, sourceLang, targetLang string, window int) []string {
	if window <= 0 {
		window = DefaultContextWindow
	}

	results := make([]string, 0, len(texts))
	for i, text := range texts {
		var contextHint string
		if i > 0 {
			start := i - window
			if start < 0 {
				start = 0
			}
			contextHint = strings.Join(results[start:i], " ")
		}

		results = append(results, svc.TranslateWithContext(ctx, text, sourceLang, targetLang, contextHint))
		if i < len(texts)-1 {
			time.Sleep(svc.Pace())
		}
	}
	return results
}
