package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cvpipe/resume-worker/internal/domain"
)

// maxErrorLength bounds the error text recorded with a failed status.
const maxErrorLength = 500

// JobsStore persists job status transitions and artifact records in the jobs
// database.
type JobsStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewJobsStore(db *sqlx.DB, logger *slog.Logger) *JobsStore {
	return &JobsStore{db: db, logger: logger}
}

// UpdateStatus records a status transition with optional metadata. Terminal
// states (completed, cancelled) are never overwritten.
func (s *JobsStore) UpdateStatus(ctx context.Context, jobID, status string, metadata map[string]any) error {
	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal status metadata: %w", err)
		}
	}

	query := `
		UPDATE resume_jobs
		SET status = $1,
		    metadata = COALESCE($2, metadata),
		    completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status NOT IN ('completed', 'cancelled')
	`

	result, err := s.db.ExecContext(ctx, query, status, metadataJSON, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		s.logger.Warn("Job status update affected no rows",
			slog.String("job_id", jobID),
			slog.String("status", status),
		)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// MarkFailed records a failed transition with a truncated error message.
func (s *JobsStore) MarkFailed(ctx context.Context, jobID string, jobErr error) error {
	msg := jobErr.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}
	return s.UpdateStatus(ctx, jobID, domain.JobStatusFailed, map[string]any{
		"error": msg,
	})
}

// CreateArtifactRecord writes a row naming the stored artifact for a job.
func (s *JobsStore) CreateArtifactRecord(ctx context.Context, jobID, userID, path string, metadata map[string]any) error {
	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact metadata: %w", err)
		}
	}

	query := `
		INSERT INTO resume_artifacts (job_id, user_id, path, metadata, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, userID, path, metadataJSON); err != nil {
		return fmt.Errorf("failed to create artifact record: %w", err)
	}

	s.logger.Info("Artifact record created",
		slog.String("job_id", jobID),
		slog.String("path", path),
	)

	return nil
}
