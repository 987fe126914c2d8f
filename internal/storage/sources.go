package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cvpipe/resume-worker/internal/domain"
)

// PostsStore reads published content from the posts database: blog posts,
// technical writings and system designs. Reads never fail on "no rows"; an
// empty slice is a valid result.
type PostsStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostsStore(db *sqlx.DB, logger *slog.Logger) *PostsStore {
	return &PostsStore{db: db, logger: logger}
}

type postRow struct {
	Title   string `db:"title"`
	Excerpt string `db:"excerpt"`
	URL     string `db:"url"`
}

func (s *PostsStore) GetPosts(ctx context.Context, userID string, limit int) ([]domain.Item, error) {
	query := `
		SELECT title, COALESCE(excerpt, '') AS excerpt, COALESCE(url, '') AS url
		FROM posts
		WHERE user_id = $1 AND published = true
		ORDER BY published_at DESC
		LIMIT $2
	`

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.Item{
			Kind:    domain.SectionPost,
			Title:   row.Title,
			Content: row.Excerpt,
			URL:     row.URL,
		})
	}
	return items, nil
}

type writingRow struct {
	Title   string `db:"title"`
	Summary string `db:"summary"`
	URL     string `db:"url"`
}

func (s *PostsStore) GetWritings(ctx context.Context, userID string, limit int) ([]domain.Item, error) {
	query := `
		SELECT title, COALESCE(summary, '') AS summary, COALESCE(url, '') AS url
		FROM technical_writings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []writingRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to select technical writings: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.Item{
			Kind:    domain.SectionWriting,
			Title:   row.Title,
			Content: row.Summary,
			URL:     row.URL,
		})
	}
	return items, nil
}

func (s *PostsStore) GetDesigns(ctx context.Context, userID string, limit int) ([]domain.Item, error) {
	query := `
		SELECT title, COALESCE(summary, '') AS summary, COALESCE(url, '') AS url
		FROM system_designs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []writingRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to select system designs: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.Item{
			Kind:    domain.SectionDesign,
			Title:   row.Title,
			Content: row.Summary,
			URL:     row.URL,
		})
	}
	return items, nil
}

// ManagementStore reads career records from the management database:
// work experiences and projects.
type ManagementStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewManagementStore(db *sqlx.DB, logger *slog.Logger) *ManagementStore {
	return &ManagementStore{db: db, logger: logger}
}

type experienceRow struct {
	Role        string `db:"role"`
	Company     string `db:"company"`
	Period      string `db:"period"`
	Description string `db:"description"`
}

func (s *ManagementStore) GetExperiences(ctx context.Context, userID string, limit int) ([]domain.Item, error) {
	query := `
		SELECT role, company,
		       COALESCE(period, '') AS period,
		       COALESCE(description, '') AS description
		FROM experiences
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	var rows []experienceRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to select experiences: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.Item{
			Kind:     domain.SectionExperience,
			Title:    row.Role,
			Subtitle: row.Company,
			Period:   row.Period,
			Content:  row.Description,
		})
	}
	return items, nil
}

type projectRow struct {
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Tech        pq.StringArray `db:"tech"`
	URL         string         `db:"url"`
}

func (s *ManagementStore) GetProjects(ctx context.Context, userID string, limit int) ([]domain.Item, error) {
	query := `
		SELECT name,
		       COALESCE(description, '') AS description,
		       COALESCE(tech, '{}') AS tech,
		       COALESCE(url, '') AS url
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		tags := make([]string, 0, len(row.Tech))
		for _, tech := range row.Tech {
			if strings.TrimSpace(tech) != "" {
				tags = append(tags, tech)
			}
		}
		items = append(items, domain.Item{
			Kind:    domain.SectionProject,
			Title:   row.Name,
			Content: row.Description,
			Tags:    tags,
			URL:     row.URL,
		})
	}
	return items, nil
}
