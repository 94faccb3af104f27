package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

var (
	ErrDuplicateBatch = errors.New("batch already submitted")
	ErrJobNotFound    = errors.New("job not found")
)

// completedJobTTL bounds how long finished jobs stay in Redis. The
// PostgreSQL archive keeps them indefinitely.
const completedJobTTL = 24 * time.Hour

// pgExecutor is the slice of pgxpool.Pool the job manager needs.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JobManager tracks recommendation batch jobs. Redis is the primary
// store; PostgreSQL is an optional persistent archive that also serves
// reads when a Redis entry has expired.
type JobManager struct {
	redis  redis.Cmdable
	pg     pgExecutor
	logger *logrus.Logger
}

func NewJobManager(redisClient redis.Cmdable, pg pgExecutor, logger *logrus.Logger) *JobManager {
	return &JobManager{
		redis:  redisClient,
		pg:     pg,
		logger: logger,
	}
}

// CreateJob registers a new batch job. The batch ID is the idempotency
// key; resubmitting one that is already tracked returns
// ErrDuplicateBatch.
func (jm *JobManager) CreateJob(ctx context.Context, req models.ProcessRequest) (*models.BatchJobStatus, error) {
	jobID := uuid.New()

	claimed, err := jm.redis.SetNX(ctx, batchKey(req.BatchID), jobID.String(), 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claiming batch id: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBatch, req.BatchID)
	}

	now := time.Now().UTC()
	job := &models.BatchJobStatus{
		JobID:     jobID,
		BatchID:   req.BatchID,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := jm.storeJobInRedis(ctx, job); err != nil {
		return nil, fmt.Errorf("storing job in Redis: %w", err)
	}

	if err := jm.insertJobInPostgreSQL(ctx, job); err != nil {
		// Redis is primary for job tracking, keep going
		jm.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to archive job in PostgreSQL")
	}

	jm.logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"batch_id": req.BatchID,
	}).Info("Batch job created")

	return job, nil
}

func (jm *JobManager) GetJob(ctx context.Context, jobID uuid.UUID) (*models.BatchJobStatus, error) {
	job, err := jm.getJobFromRedis(ctx, jobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, redis.Nil) {
		jm.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to get job from Redis")
	}

	if jm.pg == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	job, err = jm.getJobFromPostgreSQL(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Restore for future fast reads
	if redisErr := jm.storeJobInRedis(ctx, job); redisErr != nil {
		jm.logger.WithError(redisErr).WithField("job_id", jobID).Warn("Failed to restore job to Redis")
	}

	return job, nil
}

func (jm *JobManager) MarkProcessing(ctx context.Context, jobID uuid.UUID) error {
	return jm.updateJob(ctx, jobID, func(job *models.BatchJobStatus) {
		job.Status = JobStatusProcessing
	})
}

func (jm *JobManager) CompleteJob(ctx context.Context, jobID uuid.UUID, resultFilePath string, userCount int) error {
	return jm.updateJob(ctx, jobID, func(job *models.BatchJobStatus) {
		job.Status = JobStatusCompleted
		job.ResultFilePath = resultFilePath
		job.UserCount = userCount
	})
}

func (jm *JobManager) FailJob(ctx context.Context, jobID uuid.UUID, errorCode, errorMessage string) error {
	return jm.updateJob(ctx, jobID, func(job *models.BatchJobStatus) {
		job.Status = JobStatusFailed
		job.ErrorCode = &errorCode
		job.ErrorMessage = &errorMessage
	})
}

func (jm *JobManager) updateJob(ctx context.Context, jobID uuid.UUID, mutate func(*models.BatchJobStatus)) error {
	job, err := jm.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	mutate(job)
	job.UpdatedAt = time.Now().UTC()

	if err := jm.storeJobInRedis(ctx, job); err != nil {
		return fmt.Errorf("updating job in Redis: %w", err)
	}

	if err := jm.updateJobInPostgreSQL(ctx, job); err != nil {
		jm.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to update job in PostgreSQL")
	}

	jm.logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"batch_id": job.BatchID,
		"status":   job.Status,
	}).Debug("Job updated")

	return nil
}

// Redis operations

func jobKey(jobID uuid.UUID) string {
	return fmt.Sprintf("recflow:job:%s", jobID.String())
}

func batchKey(batchID string) string {
	return fmt.Sprintf("recflow:batch:%s", batchID)
}

func (jm *JobManager) storeJobInRedis(ctx context.Context, job *models.BatchJobStatus) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	ttl := time.Duration(0)
	if job.Status == JobStatusCompleted || job.Status == JobStatusFailed {
		ttl = completedJobTTL
	}

	return jm.redis.Set(ctx, jobKey(job.JobID), data, ttl).Err()
}

func (jm *JobManager) getJobFromRedis(ctx context.Context, jobID uuid.UUID) (*models.BatchJobStatus, error) {
	data, err := jm.redis.Get(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}

	var job models.BatchJobStatus
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	return &job, nil
}

// PostgreSQL operations

func (jm *JobManager) insertJobInPostgreSQL(ctx context.Context, job *models.BatchJobStatus) error {
	if jm.pg == nil {
		return nil
	}

	query := `
		INSERT INTO recommendation_jobs (
			id, batch_id, status, result_file_path, user_count,
			error_code, error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := jm.pg.Exec(ctx, query,
		job.JobID, job.BatchID, job.Status, job.ResultFilePath, job.UserCount,
		job.ErrorCode, job.ErrorMessage, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

func (jm *JobManager) getJobFromPostgreSQL(ctx context.Context, jobID uuid.UUID) (*models.BatchJobStatus, error) {
	query := `
		SELECT id, batch_id, status, result_file_path, user_count,
			   error_code, error_message, created_at, updated_at
		FROM recommendation_jobs WHERE id = $1
	`

	var job models.BatchJobStatus
	err := jm.pg.QueryRow(ctx, query, jobID).Scan(
		&job.JobID, &job.BatchID, &job.Status, &job.ResultFilePath, &job.UserCount,
		&job.ErrorCode, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("reading job: %w", err)
	}
	return &job, nil
}

func (jm *JobManager) updateJobInPostgreSQL(ctx context.Context, job *models.BatchJobStatus) error {
	if jm.pg == nil {
		return nil
	}

	query := `
		UPDATE recommendation_jobs SET
			status = $2, result_file_path = $3, user_count = $4,
			error_code = $5, error_message = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := jm.pg.Exec(ctx, query,
		job.JobID, job.Status, job.ResultFilePath, job.UserCount,
		job.ErrorCode, job.ErrorMessage, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	return nil
}
