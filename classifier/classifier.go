package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sky-follower-bridge/bridgewatch/watch"
)

var (
	// ErrMalformedClassification is returned when the model output is not an
	// object with all three boolean fields.
	ErrMalformedClassification = errors.New("malformed classification")
	ErrMalformedTranslation    = errors.New("malformed translation")
	ErrNoCredentials           = errors.New("classifier API key not configured")
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var DefaultSpamDomains = []string{"skyfollowerbridge.com"}

type Config struct {
	Provider string
	Model    string
	APIKey   string
	// APIURL overrides the provider base URL. Only used by the OpenAI backend.
	APIURL string
	// RPS caps model requests per second; zero disables the limit.
	RPS         float64
	Language    string
	SpamDomains []string
}

func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenAI,
		RPS:         2,
		Language:    "Japanese",
		SpamDomains: DefaultSpamDomains,
	}
}

func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

type responseKind int

const (
	kindAnalysis responseKind = iota
	kindTranslation
)

// backend sends a single prompt to a model and returns its raw JSON answer.
type backend interface {
	completeJSON(ctx context.Context, prompt string, kind responseKind) (string, error)
}

// Gateway implements watch.Classifier over a language model backend.
type Gateway struct {
	Logger      *slog.Logger
	Language    string
	SpamDomains []string

	backend backend
	limiter *rate.Limiter
}

var _ watch.Classifier = (*Gateway)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	logger = logger.With("component", "classifier", "provider", cfg.Provider, "model", cfg.Model)

	var b backend
	switch cfg.Provider {
	case ProviderOpenAI, "":
		b = NewOpenAI(cfg, logger)
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b = g
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Provider)
	}
	return newGateway(b, cfg, logger), nil
}

func newGateway(b backend, cfg Config, logger *slog.Logger) *Gateway {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "Japanese"
	}
	return &Gateway{
		Logger:      logger,
		Language:    lang,
		SpamDomains: cfg.SpamDomains,
		backend:     b,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

func (g *Gateway) Analyze(ctx context.Context, text string) (*watch.Classification, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := g.backend.completeJSON(ctx, analysisPrompt(text, g.SpamDomains), kindAnalysis)
	if err != nil {
		return nil, err
	}
	c, err := parseClassification(raw)
	if err != nil {
		g.Logger.Warn("unusable classification", "raw", raw, "err", err)
		return nil, err
	}
	if domain := knownSpamDomain(g.Logger, text, g.SpamDomains); domain != "" {
		if !c.HasSpamURL || !c.IsTarget {
			g.Logger.Info("known spam domain overrides model output", "domain", domain, "isTarget", c.IsTarget, "hasSpamUrl", c.HasSpamURL)
		}
		c.IsTarget = true
		c.HasSpamURL = true
	}
	return c, nil
}

func (g *Gateway) Translate(ctx context.Context, text string) (*watch.Translation, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := g.backend.completeJSON(ctx, translationPrompt(text, g.Language), kindTranslation)
	if err != nil {
		return nil, err
	}
	return parseTranslation(raw)
}

// stripFence removes a markdown code fence some models wrap JSON answers in.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
