package translate

import (
	"context"
	"sort"

	"github.com/substudio/subtitle-translator/pkg/log"
)

// DefaultServiceID is the registry fallback for unknown service ids.
const DefaultServiceID = "google"

// freeServices marks the services that work without a paid credential.
var freeServices = map[string]bool{
	"google": true,
}

// Info describes one registered service for API consumers.
type Info struct {
	Available       bool   `json:"available"`
	CostClass       string `json:"cost_class"` // "free" or "paid"
	SupportsContext bool   `json:"supports_context"`
}

// Config carries the credentials the concrete services need.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	DeepLAPIKey  string
	YandexAPIKey string
}

// Engine owns the service registry and the batch orchestration on top of
// it. Services are registered at construction; credentials are read-only
// after that.
type Engine struct {
	services  map[string]Service
	defaultID string
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		services:  make(map[string]Service),
		defaultID: DefaultServiceID,
	}
	e.Register(NewGoogleService())
	e.Register(NewYandexService(cfg.YandexAPIKey))
	e.Register(NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel))
	e.Register(NewDeepLService(cfg.DeepLAPIKey))
	return e
}

// Register adds or replaces a service under its own name.
func (e *Engine) Register(svc Service) {
	e.services[svc.Name()] = svc
}

// resolve maps a service id to a registered service, falling back to the
// default for unknown ids rather than failing the request.
func (e *Engine) resolve(serviceID string) Service {
	if svc, ok := e.services[serviceID]; ok {
		return svc
	}
	log.Warn("unknown translation service %q, falling back to %q", serviceID, e.defaultID)
	return e.services[e.defaultID]
}

// Translate translates a single text with the chosen service.
func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang, serviceID string) string {
	return e.resolve(serviceID).Translate(ctx, text, sourceLang, targetLang)
}

// BatchTranslate translates texts in order and returns a slice of exactly
// the same length. A failure on item i leaves texts[i] unchanged at
// position i and processing continues. The context-chaining path is taken
// only when requested and the resolved service supports it.
func (e *Engine) BatchTranslate(ctx context.Context, texts []string, sourceLang, targetLang, serviceID string, useContext bool, contextWindow int) []string {
	svc := e.resolve(serviceID)

	if useContext {
		if ctxSvc, ok := svc.(ContextualService); ok {
			return translateWithContextWindow(ctx, ctxSvc, texts, sourceLang, targetLang, contextWindow)
		}
	}
	return batchTranslate(ctx, svc, texts, sourceLang, targetLang)
}

// AvailableServices lists the ids of every service reporting availability.
func (e *Engine) AvailableServices() []string {
	ret := make([]string, 0, len(e.services))
	for name, svc := range e.services {
		if svc.IsAvailable() {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret
}

// ServiceInfo describes every registered service, available or not.
func (e *Engine) ServiceInfo() map[string]Info {
	ret := make(map[string]Info, len(e.services))
	for name, svc := range e.services {
		_, supportsContext := svc.(ContextualService)
		costClass := "paid"
		if freeServices[name] {
			costClass = "free"
		}
		ret[name] = Info{
			Available:       svc.IsAvailable(),
			CostClass:       costClass,
			SupportsContext: supportsContext,
		}
	}
	return ret
}
