package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/dataset"
	"github.com/lxplabs/recflow/internal/messaging"
	"github.com/lxplabs/recflow/internal/recommend"
	"github.com/lxplabs/recflow/internal/storage"
	"github.com/lxplabs/recflow/pkg/models"
)

// Error codes reported to callers in failure callbacks and job status.
const (
	ErrCodeInputShape    = "INPUT_SHAPE_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeParsing       = "PARSING_ERROR"
	ErrCodeScoring       = "SCORING_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recflow_batches_total",
		Help: "Recommendation batches processed, by outcome.",
	}, []string{"status"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recflow_batch_duration_seconds",
		Help:    "End to end batch processing duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

type objectStore interface {
	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, localPath, key string) error
}

type datasetLoader interface {
	LoadUsers(path string) ([]models.User, error)
	LoadCourses(path string) ([]models.Course, error)
}

type resultWriter interface {
	WriteRecommendations(path string, recs []models.RankedPair) error
}

type callbackSender interface {
	SendSuccess(ctx context.Context, url string, payload models.CallbackSuccessPayload) error
	SendFailure(ctx context.Context, url string, payload models.CallbackFailurePayload) error
}

type jobTracker interface {
	MarkProcessing(ctx context.Context, jobID uuid.UUID) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, resultFilePath string, userCount int) error
	FailJob(ctx context.Context, jobID uuid.UUID, errorCode, errorMessage string) error
}

// BatchProcessor runs one recommendation batch end to end: fetch the
// datasets, run the pipeline, publish the result file and report the
// outcome through job status, callback, and event bus.
type BatchProcessor struct {
	store       objectStore
	loader      datasetLoader
	writer      resultWriter
	pipeline    *recommend.Pipeline
	jobs        jobTracker
	callback    callbackSender
	events      *messaging.EventBus
	defaultTopK int
	logger      *logrus.Logger
}

func NewBatchProcessor(
	store objectStore,
	loader datasetLoader,
	writer resultWriter,
	pipeline *recommend.Pipeline,
	jobs jobTracker,
	callback callbackSender,
	events *messaging.EventBus,
	defaultTopK int,
	logger *logrus.Logger,
) *BatchProcessor {
	return &BatchProcessor{
		store:       store,
		loader:      loader,
		writer:      writer,
		pipeline:    pipeline,
		jobs:        jobs,
		callback:    callback,
		events:      events,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

// Process executes the batch. It never returns a transport error to the
// caller; failures are classified and reported through the failure
// channels. The returned error is for logging and tests.
func (bp *BatchProcessor) Process(ctx context.Context, jobID uuid.UUID, req models.ProcessRequest) error {
	start := time.Now()
	log := bp.logger.WithFields(logrus.Fields{"job_id": jobID, "batch_id": req.BatchID})

	if err := bp.jobs.MarkProcessing(ctx, jobID); err != nil {
		log.WithError(err).Warn("Failed to mark job processing")
	}

	resultPath, userCount, err := bp.run(ctx, req)
	if err != nil {
		code := classifyError(err)
		log.WithError(err).WithField("error_code", code).Error("Batch failed")
		bp.reportFailure(ctx, jobID, req, code, err)
		batchesTotal.WithLabelValues(JobStatusFailed).Inc()
		return err
	}

	if err := bp.jobs.CompleteJob(ctx, jobID, resultPath, userCount); err != nil {
		log.WithError(err).Warn("Failed to mark job completed")
	}

	if req.CallbackURL != "" {
		if err := bp.callback.SendSuccess(ctx, req.CallbackURL, models.CallbackSuccessPayload{
			BatchID:        req.BatchID,
			Status:         "COMPLETED",
			ResultFilePath: resultPath,
			UserCount:      userCount,
			ProcessedAt:    time.Now().UTC(),
		}); err != nil {
			log.WithError(err).Error("Success callback failed")
		}
	}

	if err := bp.events.Publish(ctx, messaging.BatchEvent{
		Type:           messaging.EventBatchCompleted,
		JobID:          jobID,
		BatchID:        req.BatchID,
		ResultFilePath: resultPath,
		UserCount:      userCount,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish completion event")
	}

	batchesTotal.WithLabelValues(JobStatusCompleted).Inc()
	batchDuration.Observe(time.Since(start).Seconds())

	log.WithFields(logrus.Fields{
		"result_file_path": resultPath,
		"user_count":       userCount,
		"duration":         time.Since(start),
	}).Info("Batch completed")
	return nil
}

func (bp *BatchProcessor) run(ctx context.Context, req models.ProcessRequest) (string, int, error) {
	workDir, err := os.MkdirTemp("", "recflow-batch-")
	if err != nil {
		return "", 0, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	usersPath := filepath.Join(workDir, "users"+filepath.Ext(req.UsersFilePath))
	coursesPath := filepath.Join(workDir, "courses"+filepath.Ext(req.CoursesFilePath))

	if err := bp.store.Download(ctx, req.UsersFilePath, usersPath); err != nil {
		return "", 0, err
	}
	if err := bp.store.Download(ctx, req.CoursesFilePath, coursesPath); err != nil {
		return "", 0, err
	}

	users, err := bp.loader.LoadUsers(usersPath)
	if err != nil {
		return "", 0, err
	}
	courses, err := bp.loader.LoadCourses(coursesPath)
	if err != nil {
		return "", 0, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = bp.defaultTopK
	}

	recs, err := bp.pipeline.Run(users, courses, topK)
	if err != nil {
		return "", 0, err
	}

	localResult := filepath.Join(workDir, "recommendations.parquet")
	if err := bp.writer.WriteRecommendations(localResult, recs); err != nil {
		return "", 0, err
	}

	resultKey := resultFileKey(req.BatchID, time.Now().UTC())
	if err := bp.store.Upload(ctx, localResult, resultKey); err != nil {
		return "", 0, err
	}

	return resultKey, len(users), nil
}

func (bp *BatchProcessor) reportFailure(ctx context.Context, jobID uuid.UUID, req models.ProcessRequest, code string, cause error) {
	if err := bp.jobs.FailJob(ctx, jobID, code, cause.Error()); err != nil {
		bp.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to mark job failed")
	}

	if req.CallbackURL != "" {
		if err := bp.callback.SendFailure(ctx, req.CallbackURL, models.CallbackFailurePayload{
			BatchID:      req.BatchID,
			Status:       "FAILED",
			ErrorCode:    code,
			ErrorMessage: cause.Error(),
			FailedAt:     time.Now().UTC(),
		}); err != nil {
			bp.logger.WithError(err).WithField("batch_id", req.BatchID).Error("Failure callback failed")
		}
	}

	if err := bp.events.Publish(ctx, messaging.BatchEvent{
		Type:      messaging.EventBatchFailed,
		JobID:     jobID,
		BatchID:   req.BatchID,
		ErrorCode: code,
	}); err != nil {
		bp.logger.WithError(err).WithField("batch_id", req.BatchID).Warn("Failed to publish failure event")
	}
}

// resultFileKey places results under a date partition so the bucket
// stays browsable: results/YYYY/MM/DD/<batch_id>/recommendations.parquet.
func resultFileKey(batchID string, now time.Time) string {
	return fmt.Sprintf("results/%s/%s/recommendations.parquet", now.Format("2006/01/02"), batchID)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, recommend.ErrInvalidInput):
		return ErrCodeInputShape
	case errors.Is(err, recommend.ErrInvalidConfig):
		return ErrCodeConfiguration
	case errors.Is(err, storage.ErrStorage):
		return ErrCodeStorage
	case errors.Is(err, dataset.ErrParse):
		return ErrCodeParsing
	case errors.Is(err, recommend.ErrScoring):
		return ErrCodeScoring
	default:
		return ErrCodeInternal
	}
}
