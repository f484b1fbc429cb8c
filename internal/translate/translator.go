package translate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chronicle-rag/internal/domain"
	"chronicle-rag/internal/logging"
	"chronicle-rag/internal/retry"
)

// DefaultRequestsPerMinute stays under the free-tier 5 RPM quota.
const DefaultRequestsPerMinute = 4

// DefaultMaxAttempts caps retries of quota/overload failures per call.
const DefaultMaxAttempts = 5

// Backend generates text from a prompt. *GeminiClient is the production
// implementation.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Translator serializes translation calls behind a shared rate limiter,
// retries transient failures with backoff, and caches successful results.
//
// Translate returns the translated text or "" on any failure path: callers
// must treat the empty string as "translation unavailable".
type Translator struct {
	cache   *Cache
	backend Backend
	limiter *rate.Limiter
	policy  retry.Policy
	log     *zap.SugaredLogger
}

// Config configures a Translator. Zero values take the free-tier defaults.
type Config struct {
	RequestsPerMinute int
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffOffset     time.Duration
}

// New builds a translator over the given cache and backend.
func New(cache *Cache, backend Backend, cfg Config) *Translator {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := cfg.BackoffBase
	if base == 0 {
		base = 30 * time.Second
	}
	offset := cfg.BackoffOffset
	if offset == 0 {
		offset = 10 * time.Second
	}
	return &Translator{
		cache:   cache,
		backend: backend,
		// burst 1 enforces the minimum inter-request delay on a single
		// shared clock, whatever text each call concerns
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		policy: retry.Policy{
			MaxAttempts: attempts,
			BaseDelay:   base,
			Offset:      offset,
			Retryable:   retry.IsTransient,
		},
		log: logging.L(),
	}
}

// Translate renders text from sourceLang into English. A cache hit returns
// immediately without consuming rate-limit budget. On exhausted retries or
// any fatal backend error it returns "".
func (t *Translator) Translate(ctx context.Context, text, sourceLang string) string {
	if cached, ok := t.cache.Get(text, sourceLang); ok {
		return cached
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return ""
	}

	prompt := buildPrompt(text, sourceLang)
	var translation string
	err := t.policy.Do(ctx, func() error {
		out, err := t.backend.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		translation = out
		return nil
	})
	if err != nil {
		t.log.Warnw("translation failed", "source_lang", sourceLang, "chars", len(text), "error", err)
		return ""
	}

	if translation != "" {
		if err := t.cache.Put(text, sourceLang, translation); err != nil {
			t.log.Warnw("translation cache write failed", "error", err)
		}
	}
	return translation
}

func buildPrompt(text, sourceLang string) string {
	langName := domain.LanguageName(sourceLang)
	return fmt.Sprintf(`You are a scholarly translator specializing in medieval texts.
Translate the following %s text to English.

IMPORTANT:
- Preserve proper nouns (names of people, places) in their common English forms
- Keep historical terms with brief clarification if needed
- Maintain the tone and style of medieval chronicles
- If text contains OCR errors, do your best to interpret the intended meaning

TEXT TO TRANSLATE:
%s

ENGLISH TRANSLATION:`, langName, text)
}
