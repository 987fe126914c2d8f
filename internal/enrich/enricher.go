package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/retry"
	"github.com/cvpipe/resume-worker/internal/validation"
)

// FallbackPolicy is the behavior applied when AI output fails validation.
type FallbackPolicy string

const (
	// FallbackSkip leaves the item unmodified.
	FallbackSkip FallbackPolicy = "skip"
	// FallbackTruncate keeps the AI text truncated to the rule's max length.
	FallbackTruncate FallbackPolicy = "truncate"
	// FallbackRaw keeps the original content as the optimized field.
	FallbackRaw FallbackPolicy = "raw"
)

// SectionConfig tunes enrichment for one section. Min/max length, format and
// bullet range override the validator's section defaults when set.
type SectionConfig struct {
	Enabled        bool
	MinLength      int
	MaxLength      int
	RequiredFormat validation.Format
	BulletPoints   *validation.BulletRange
	Fallback       FallbackPolicy
}

// Config holds job-level enrichment settings.
type Config struct {
	Language    string
	Concurrency int
	Sections    map[domain.Section]SectionConfig
	RetryPolicy retry.Policy
}

// Generator produces rewritten content; implemented by the AI HTTP client.
type Generator interface {
	GenerateContent(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error)
}

// Enricher requests AI rewrites per item, validates them, and resolves a
// final field per the configured fallback policy. One item's failure never
// aborts a batch.
type Enricher struct {
	generator Generator
	logger    *slog.Logger
	cfg       Config
}

func New(generator Generator, cfg Config, logger *slog.Logger) *Enricher {
	if cfg.Language == "" {
		cfg.Language = validation.DefaultLanguage
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Enricher{generator: generator, logger: logger, cfg: cfg}
}

// sectionConfig returns the config for a section; unconfigured sections are
// enabled with the raw fallback.
func (e *Enricher) sectionConfig(section domain.Section) SectionConfig {
	if cfg, ok := e.cfg.Sections[section]; ok {
		return cfg
	}
	return SectionConfig{Enabled: true, Fallback: FallbackRaw}
}

// rulesFor derives the validation rules for a section: the static defaults
// for (section, language) overridden by the section config.
func (e *Enricher) rulesFor(section domain.Section, cfg SectionConfig) validation.Rules {
	rules := validation.RulesForSection(section, e.cfg.Language)
	if cfg.MinLength > 0 {
		rules.MinLength = cfg.MinLength
	}
	if cfg.MaxLength > 0 {
		rules.MaxLength = cfg.MaxLength
	}
	if cfg.RequiredFormat != "" {
		rules.RequiredFormat = cfg.RequiredFormat
	}
	if cfg.BulletPoints != nil {
		rules.BulletPoints = cfg.BulletPoints
	}
	return rules
}

// EnhanceItem rewrites one item's content via the AI service and validates
// the result. Disabled sections return the item unchanged. Errors are
// resolved into the item's Enhancement metadata, never returned.
func (e *Enricher) EnhanceItem(ctx context.Context, jobDescription string, item domain.Item) domain.Item {
	cfg := e.sectionConfig(item.Kind)
	if !cfg.Enabled || item.Content == "" {
		return item
	}

	buildInstruction, ok := instructionFor(item.Kind, e.cfg.Language)
	if !ok {
		return item
	}

	result, err := retry.Do(ctx, e.logger, fmt.Sprintf("enrich %s", item.Kind), e.cfg.RetryPolicy,
		func(ctx context.Context) (*domain.GenerateResult, error) {
			return e.generator.GenerateContent(ctx, domain.GenerateRequest{
				Type:           string(item.Kind),
				JobDescription: jobDescription,
				UserContext:    buildInstruction(jobDescription, item.Content),
			})
		})
	if err != nil {
		e.logger.Warn("Enrichment call failed, keeping raw content",
			slog.String("section", string(item.Kind)),
			slog.String("title", item.Title),
			slog.Any("error", err),
		)
		item.Enhancement = &domain.Enhancement{
			Status:         domain.EnhancementFailed,
			Validated:      false,
			LengthOriginal: len(item.Content),
			TokensUsed:     0,
			Language:       e.cfg.Language,
			Timestamp:      time.Now().UTC(),
			Error:          err.Error(),
		}
		return item
	}

	rules := e.rulesFor(item.Kind, cfg)
	verdict := validation.Validate(result.Content, rules)
	if verdict.Valid {
		item.Optimized = result.Content
		item.Enhancement = &domain.Enhancement{
			Status:          domain.EnhancementSuccess,
			Validated:       true,
			LengthOriginal:  len(item.Content),
			LengthOptimized: len(result.Content),
			TokensUsed:      result.TokensUsed,
			Model:           result.Model,
			Language:        e.cfg.Language,
			Timestamp:       time.Now().UTC(),
		}
		return item
	}

	e.logger.Info("AI content rejected by validator",
		slog.String("section", string(item.Kind)),
		slog.String("title", item.Title),
		slog.String("reason", verdict.FirstError()),
		slog.String("fallback", string(cfg.Fallback)),
	)

	if cfg.Fallback == FallbackSkip {
		return item
	}

	switch cfg.Fallback {
	case FallbackTruncate:
		optimized := result.Content
		if rules.MaxLength > 0 && len(optimized) > rules.MaxLength {
			optimized = optimized[:rules.MaxLength]
		}
		item.Optimized = optimized
	default: // FallbackRaw
		item.Optimized = item.Content
	}

	item.Enhancement = &domain.Enhancement{
		Status:          domain.EnhancementFailed,
		Validated:       false,
		LengthOriginal:  len(item.Content),
		LengthOptimized: len(item.Optimized),
		TokensUsed:      result.TokensUsed,
		Model:           result.Model,
		Language:        e.cfg.Language,
		Timestamp:       time.Now().UTC(),
		Error:           verdict.FirstError(),
	}
	return item
}

// EnhanceItems runs EnhanceItem over all items concurrently with a bounded
// fan-out, returning results in original order. Disabled sections and empty
// batches pass through untouched.
func (e *Enricher) EnhanceItems(ctx context.Context, jobDescription string, section domain.Section, items []domain.Item) []domain.Item {
	if len(items) == 0 || !e.sectionConfig(section).Enabled {
		return items
	}

	results := make([]domain.Item, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = e.EnhanceItem(gctx, jobDescription, item)
			return nil
		})
	}

	// workers never return errors; item failures resolve into metadata
	_ = g.Wait()

	return results
}
