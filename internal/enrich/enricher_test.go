package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/retry"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	respond func(req domain.GenerateRequest) (*domain.GenerateResult, error)
}

func (f *fakeGenerator) GenerateContent(_ context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1}
}

func testConfig(fallback FallbackPolicy) Config {
	return Config{
		Language:    "en",
		Concurrency: 4,
		RetryPolicy: fastRetry(),
		Sections: map[domain.Section]SectionConfig{
			domain.SectionProject: {
				Enabled:   true,
				MinLength: 10,
				MaxLength: 200,
				Fallback:  fallback,
			},
		},
	}
}

func projectItem(content string) domain.Item {
	return domain.Item{
		Kind:    domain.SectionProject,
		Title:   "scheduler",
		Content: content,
	}
}

func TestEnhanceItem_Success(t *testing.T) {
	gen := &fakeGenerator{respond: func(req domain.GenerateRequest) (*domain.GenerateResult, error) {
		assert.Equal(t, "project", req.Type)
		assert.Contains(t, req.UserContext, "a queue-driven scheduler")
		return &domain.GenerateResult{Content: "A polished description of the scheduler project.", TokensUsed: 87, Model: "gpt-4o-mini"}, nil
	}}

	e := New(gen, testConfig(FallbackRaw), testLogger())
	item := e.EnhanceItem(context.Background(), "Senior Go engineer", projectItem("a queue-driven scheduler"))

	assert.Equal(t, "A polished description of the scheduler project.", item.Optimized)
	require.NotNil(t, item.Enhancement)
	assert.Equal(t, domain.EnhancementSuccess, item.Enhancement.Status)
	assert.True(t, item.Enhancement.Validated)
	assert.Equal(t, 87, item.Enhancement.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", item.Enhancement.Model)
	assert.Equal(t, len(item.Content), item.Enhancement.LengthOriginal)
}

func TestEnhanceItem_InvalidResponseFallbackRaw(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return &domain.GenerateResult{Content: "short", TokensUsed: 5}, nil
	}}

	e := New(gen, testConfig(FallbackRaw), testLogger())
	raw := "the original project description written by the user"
	item := e.EnhanceItem(context.Background(), "jd", projectItem(raw))

	assert.Equal(t, raw, item.Optimized, "raw fallback keeps original content")
	require.NotNil(t, item.Enhancement)
	assert.Equal(t, domain.EnhancementFailed, item.Enhancement.Status)
	assert.False(t, item.Enhancement.Validated)
	assert.Contains(t, item.Enhancement.Error, "below minimum")
}

func TestEnhanceItem_InvalidResponseFallbackTruncate(t *testing.T) {
	oversized := strings.Repeat("b", 300)
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return &domain.GenerateResult{Content: oversized, TokensUsed: 5}, nil
	}}

	e := New(gen, testConfig(FallbackTruncate), testLogger())
	item := e.EnhanceItem(context.Background(), "jd", projectItem("original content here"))

	assert.Equal(t, oversized[:200], item.Optimized, "truncated to section max length")
	require.NotNil(t, item.Enhancement)
	assert.Equal(t, domain.EnhancementFailed, item.Enhancement.Status)
}

func TestEnhanceItem_InvalidResponseFallbackSkip(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return &domain.GenerateResult{Content: "x"}, nil
	}}

	e := New(gen, testConfig(FallbackSkip), testLogger())
	item := e.EnhanceItem(context.Background(), "jd", projectItem("original content here"))

	assert.Empty(t, item.Optimized)
	assert.Nil(t, item.Enhancement, "skip returns the item unmodified")
}

func TestEnhanceItem_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return nil, errors.New("ai service unreachable")
	}}

	e := New(gen, testConfig(FallbackRaw), testLogger())
	item := e.EnhanceItem(context.Background(), "jd", projectItem("original content here"))

	assert.Empty(t, item.Optimized)
	require.NotNil(t, item.Enhancement)
	assert.Equal(t, domain.EnhancementFailed, item.Enhancement.Status)
	assert.Equal(t, 0, item.Enhancement.TokensUsed)
	assert.Contains(t, item.Enhancement.Error, "unreachable")
	assert.Equal(t, 2, gen.callCount(), "transient errors consume retry attempts")
}

func TestEnhanceItem_NonRetryableErrorShortCircuits(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return nil, errors.New("ai service returned 401")
	}}

	e := New(gen, testConfig(FallbackRaw), testLogger())
	item := e.EnhanceItem(context.Background(), "jd", projectItem("original content here"))

	require.NotNil(t, item.Enhancement)
	assert.Equal(t, domain.EnhancementFailed, item.Enhancement.Status)
	assert.Equal(t, 1, gen.callCount())
}

func TestEnhanceItem_DisabledSection(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		t.Fatal("generator must not be called for disabled sections")
		return nil, nil
	}}

	cfg := testConfig(FallbackRaw)
	cfg.Sections[domain.SectionProject] = SectionConfig{Enabled: false}

	e := New(gen, cfg, testLogger())
	item := e.EnhanceItem(context.Background(), "jd", projectItem("content"))

	assert.Empty(t, item.Optimized)
	assert.Nil(t, item.Enhancement)
}

func TestEnhanceItems_PreservesOrder(t *testing.T) {
	gen := &fakeGenerator{respond: func(req domain.GenerateRequest) (*domain.GenerateResult, error) {
		// echo back a marker derived from the input so order is observable
		marker := req.UserContext[len(req.UserContext)-9:]
		return &domain.GenerateResult{Content: fmt.Sprintf("An optimized description for %s with enough substance to pass the length rules.", marker)}, nil
	}}

	cfg := testConfig(FallbackRaw)
	cfg.Sections[domain.SectionProject] = SectionConfig{Enabled: true, Fallback: FallbackRaw}
	e := New(gen, cfg, testLogger())

	items := make([]domain.Item, 8)
	for i := range items {
		items[i] = projectItem(fmt.Sprintf("project %d", i))
	}

	results := e.EnhanceItems(context.Background(), "jd", domain.SectionProject, items)

	require.Len(t, results, len(items))
	for i, item := range results {
		assert.Equal(t, fmt.Sprintf("project %d", i), item.Content)
		assert.Contains(t, item.Optimized, fmt.Sprintf("project %d", i))
		require.NotNil(t, item.Enhancement, "item %d", i)
		assert.Equal(t, domain.EnhancementSuccess, item.Enhancement.Status)
	}
	assert.Equal(t, len(items), gen.callCount())
}

func TestEnhanceItems_OneFailureDoesNotAbortBatch(t *testing.T) {
	gen := &fakeGenerator{respond: func(req domain.GenerateRequest) (*domain.GenerateResult, error) {
		if strings.Contains(req.UserContext, "project 1") {
			return nil, errors.New("invalid request")
		}
		return &domain.GenerateResult{Content: "A perfectly valid optimized project description with enough substance to pass."}, nil
	}}

	cfg := testConfig(FallbackRaw)
	cfg.Sections[domain.SectionProject] = SectionConfig{Enabled: true, Fallback: FallbackRaw}
	e := New(gen, cfg, testLogger())

	items := []domain.Item{projectItem("project 0"), projectItem("project 1"), projectItem("project 2")}
	results := e.EnhanceItems(context.Background(), "jd", domain.SectionProject, items)

	require.Len(t, results, 3)
	assert.Equal(t, domain.EnhancementSuccess, results[0].Enhancement.Status)
	assert.Equal(t, domain.EnhancementFailed, results[1].Enhancement.Status)
	assert.Equal(t, domain.EnhancementSuccess, results[2].Enhancement.Status)
}

func TestEnhanceItems_EmptyBatchPassthrough(t *testing.T) {
	gen := &fakeGenerator{respond: func(domain.GenerateRequest) (*domain.GenerateResult, error) {
		return nil, errors.New("must not be called")
	}}
	e := New(gen, testConfig(FallbackRaw), testLogger())

	assert.Nil(t, e.EnhanceItems(context.Background(), "jd", domain.SectionProject, nil))
	assert.Equal(t, 0, gen.callCount())
}

func TestLanguageFallbackTemplate(t *testing.T) {
	// writing has no pt template; the en one must be used
	fn, ok := instructionFor(domain.SectionWriting, "pt")
	require.True(t, ok)
	assert.Contains(t, fn("jd", "sample"), "technical writing")
}

var _ Generator = (*fakeGenerator)(nil)
