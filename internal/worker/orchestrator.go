package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cvpipe/resume-worker/internal/assemble"
	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/metrics"
	"github.com/cvpipe/resume-worker/internal/retry"
)

// JobsStore records job lifecycle transitions and produced artifacts.
type JobsStore interface {
	UpdateStatus(ctx context.Context, jobID, status string, metadata map[string]any) error
	MarkFailed(ctx context.Context, jobID string, jobErr error) error
	CreateArtifactRecord(ctx context.Context, jobID, userID, path string, metadata map[string]any) error
}

// PostsSource reads content records from the posts database.
type PostsSource interface {
	GetPosts(ctx context.Context, userID string, limit int) ([]domain.Item, error)
	GetWritings(ctx context.Context, userID string, limit int) ([]domain.Item, error)
	GetDesigns(ctx context.Context, userID string, limit int) ([]domain.Item, error)
}

// ManagementSource reads career records from the management database.
type ManagementSource interface {
	GetExperiences(ctx context.Context, userID string, limit int) ([]domain.Item, error)
	GetProjects(ctx context.Context, userID string, limit int) ([]domain.Item, error)
}

// AuthSource resolves user identity when the job payload carries none.
type AuthSource interface {
	GetUserByID(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// Enricher rewrites section items against the job description. It never
// fails a batch; per-item outcomes travel in the enhancement side channel.
type Enricher interface {
	EnhanceItems(ctx context.Context, jobDescription string, section domain.Section, items []domain.Item) []domain.Item
}

// Renderer produces the resume document from an assembled payload.
type Renderer interface {
	Render(ctx context.Context, payload domain.RenderPayload) (*domain.RenderResult, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// ArtifactStore persists produced documents and returns their location.
type ArtifactStore interface {
	SavePDF(ctx context.Context, userID string, data []byte) (string, error)
	SaveHTML(ctx context.Context, userID string, html string) (string, error)
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Jobs        JobsStore
	Posts       PostsSource
	Management  ManagementSource
	Auth        AuthSource
	Enricher    Enricher
	Renderer    Renderer
	Artifacts   ArtifactStore
	RetryPolicy retry.Policy
	FetchLimit  int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Orchestrator sequences one job from queue delivery to stored artifact:
// status transition, source fetches, enrichment, assembly, render, artifact
// persistence. Runs for distinct jobs share no mutable state and may proceed
// concurrently.
type Orchestrator struct {
	jobs        JobsStore
	posts       PostsSource
	management  ManagementSource
	auth        AuthSource
	enricher    Enricher
	renderer    Renderer
	artifacts   ArtifactStore
	retryPolicy retry.Policy
	fetchLimit  int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = 20
	}
	return &Orchestrator{
		jobs:        cfg.Jobs,
		posts:       cfg.Posts,
		management:  cfg.Management,
		auth:        cfg.Auth,
		enricher:    cfg.Enricher,
		renderer:    cfg.Renderer,
		artifacts:   cfg.Artifacts,
		retryPolicy: cfg.RetryPolicy,
		fetchLimit:  fetchLimit,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// Process runs one job to completion. The returned error is the re-raised
// failure for the consumer's retry policy; the failed status transition has
// already been recorded by then.
func (o *Orchestrator) Process(ctx context.Context, job domain.Job) error {
	start := time.Now()
	logger := o.logger.With(
		slog.String("job_id", job.JobID),
		slog.String("user_id", job.UserID),
	)
	logger.Info("Processing resume job")

	if err := o.jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusProcessing, map[string]any{
		"startedAt": start.UTC().Format(time.RFC3339),
	}); err != nil {
		return o.fail(ctx, job, logger, fmt.Errorf("failed to mark job processing: %w", err))
	}

	data, err := o.fetchSources(ctx, job.UserID)
	if err != nil {
		return o.fail(ctx, job, logger, fmt.Errorf("failed to fetch source data: %w", err))
	}

	stats := o.enrich(ctx, logger, job, data)
	stats.Duration = time.Since(start)

	profile := o.resolveProfile(ctx, logger, job)

	payload := assemble.Assemble(job, *data, profile, stats)
	if err := assemble.ValidateSchema(payload); err != nil {
		return o.fail(ctx, job, logger, err)
	}

	result, err := retry.Do(ctx, logger, "render resume", o.retryPolicy,
		func(ctx context.Context) (*domain.RenderResult, error) {
			return o.renderer.Render(ctx, payload)
		})
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	path, err := o.persistArtifact(ctx, job, result)
	if err != nil {
		return o.fail(ctx, job, logger, err)
	}

	if err := o.jobs.CreateArtifactRecord(ctx, job.JobID, job.UserID, path, map[string]any{
		"tokensUsed": stats.TokensUsed,
	}); err != nil {
		logger.Error("Failed to record artifact", slog.Any("error", err))
	}

	duration := time.Since(start)
	if err := o.jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusCompleted, map[string]any{
		"artifact":   path,
		"durationMs": duration.Milliseconds(),
	}); err != nil {
		return o.fail(ctx, job, logger, fmt.Errorf("failed to mark job completed: %w", err))
	}

	o.metrics.JobsCompleted.Inc()
	o.metrics.JobDuration.Observe(duration.Seconds())
	o.metrics.TokensUsed.Add(float64(stats.TokensUsed))
	logger.Info("Resume job completed",
		slog.String("artifact", path),
		slog.Duration("duration", duration),
		slog.Int("tokens_used", stats.TokensUsed),
	)
	return nil
}

// fail records the failed transition and re-raises the cause.
func (o *Orchestrator) fail(ctx context.Context, job domain.Job, logger *slog.Logger, cause error) error {
	logger.Error("Resume job failed", slog.Any("error", cause))
	if err := o.jobs.MarkFailed(ctx, job.JobID, cause); err != nil {
		logger.Error("Failed to record job failure", slog.Any("error", err))
	}
	o.metrics.JobsFailed.Inc()
	return cause
}

// fetchSources reads all source records: the posts-database reads run
// concurrently, then the management-database reads. Each individual read goes
// through the retry executor.
func (o *Orchestrator) fetchSources(ctx context.Context, userID string) (*domain.SourceData, error) {
	data := &domain.SourceData{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(o.fetch(gctx, "fetch posts", o.posts.GetPosts, userID, &data.Posts))
	g.Go(o.fetch(gctx, "fetch writings", o.posts.GetWritings, userID, &data.Writings))
	g.Go(o.fetch(gctx, "fetch designs", o.posts.GetDesigns, userID, &data.Designs))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(o.fetch(gctx, "fetch experiences", o.management.GetExperiences, userID, &data.Experiences))
	g.Go(o.fetch(gctx, "fetch projects", o.management.GetProjects, userID, &data.Projects))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return data, nil
}

func (o *Orchestrator) fetch(
	ctx context.Context,
	label string,
	read func(ctx context.Context, userID string, limit int) ([]domain.Item, error),
	userID string,
	dest *[]domain.Item,
) func() error {
	return func() error {
		items, err := retry.Do(ctx, o.logger, label, o.retryPolicy,
			func(ctx context.Context) ([]domain.Item, error) {
				return read(ctx, userID, o.fetchLimit)
			})
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		*dest = items
		return nil
	}
}

// enrich runs the content enricher over every populated section when a job
// description is present. Enrichment is best-effort; failures degrade to the
// raw content and never fail the job.
func (o *Orchestrator) enrich(ctx context.Context, logger *slog.Logger, job domain.Job, data *domain.SourceData) *assemble.Stats {
	stats := &assemble.Stats{EnabledSections: []string{}}
	if o.enricher == nil || strings.TrimSpace(job.JobDescription) == "" {
		return stats
	}

	for _, section := range domain.Sections {
		items := data.BySection(section)
		if len(items) == 0 {
			continue
		}
		enhanced := o.enricher.EnhanceItems(ctx, job.JobDescription, section, items)
		data.SetSection(section, enhanced)
		stats.EnabledSections = append(stats.EnabledSections, string(section))
		for _, item := range enhanced {
			if item.Enhancement != nil {
				stats.TokensUsed += item.Enhancement.TokensUsed
			}
		}
	}

	logger.Info("Content enrichment finished",
		slog.Any("sections", stats.EnabledSections),
		slog.Int("tokens_used", stats.TokensUsed),
	)
	return stats
}

// resolveProfile prefers the identity embedded in the job payload and falls
// back to a best-effort auth lookup. A lookup failure is not fatal; the
// assembler substitutes placeholders.
func (o *Orchestrator) resolveProfile(ctx context.Context, logger *slog.Logger, job domain.Job) *domain.UserProfile {
	if job.UserName != "" && job.UserEmail != "" {
		return nil
	}
	if o.auth == nil {
		return nil
	}
	profile, err := o.auth.GetUserByID(ctx, job.UserID)
	if err != nil {
		logger.Warn("Failed to resolve user profile",
			slog.Any("error", err),
		)
		return nil
	}
	return profile
}

// persistArtifact downloads or extracts the rendered document and stores it,
// returning the artifact location.
func (o *Orchestrator) persistArtifact(ctx context.Context, job domain.Job, result *domain.RenderResult) (string, error) {
	switch {
	case result.PDFURL != "":
		data, err := o.renderer.Download(ctx, result.PDFURL)
		if err != nil {
			return "", fmt.Errorf("failed to download rendered pdf: %w", err)
		}
		path, err := o.artifacts.SavePDF(ctx, job.UserID, data)
		if err != nil {
			return "", fmt.Errorf("failed to store pdf artifact: %w", err)
		}
		return path, nil
	case result.HTML != "":
		path, err := o.artifacts.SaveHTML(ctx, job.UserID, result.HTML)
		if err != nil {
			return "", fmt.Errorf("failed to store html artifact: %w", err)
		}
		return path, nil
	}
	return "", domain.ErrNoArtifact
}
