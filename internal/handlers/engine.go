package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/services"
	"github.com/lxplabs/recflow/internal/validation"
	"github.com/lxplabs/recflow/pkg/models"
)

type jobStore interface {
	CreateJob(ctx context.Context, req models.ProcessRequest) (*models.BatchJobStatus, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.BatchJobStatus, error)
}

type batchRunner interface {
	Process(ctx context.Context, jobID uuid.UUID, req models.ProcessRequest) error
}

// EngineHandler accepts batch triggers and exposes job status. The batch
// itself runs asynchronously; the trigger returns as soon as the job is
// registered.
type EngineHandler struct {
	jobs      jobStore
	runner    batchRunner
	schema    *validation.SchemaValidator
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewEngineHandler(jobs jobStore, runner batchRunner, schema *validation.SchemaValidator, logger *logrus.Logger) *EngineHandler {
	return &EngineHandler{
		jobs:      jobs,
		runner:    runner,
		schema:    schema,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *EngineHandler) Process(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_BODY",
				"message": "Failed to read request body",
			},
		})
		return
	}

	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_JSON",
				"message": "Invalid JSON format",
			},
		})
		return
	}

	result, err := h.schema.ValidateProcessRequest(body)
	if err != nil {
		h.logger.WithError(err).Error("Schema validation errored")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Failed to validate request",
			},
		})
		return
	}
	if !result.Valid {
		h.logger.WithField("errors", result.Errors).Warn("Batch request failed schema validation")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Request does not match the expected schema",
				"details": result.Errors,
			},
		})
		return
	}

	var request models.ProcessRequest
	if err := json.Unmarshal(body, &request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_JSON",
				"message": "Invalid JSON format",
				"details": err.Error(),
			},
		})
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		h.logger.WithError(err).Warn("Batch request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Request validation failed",
				"details": err.Error(),
			},
		})
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateBatch) {
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"code":    "DUPLICATE_BATCH",
					"message": "Batch ID was already submitted",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create batch job")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "JOB_CREATION_FAILED",
				"message": "Failed to create processing job",
			},
		})
		return
	}

	// The request context dies with this response; the batch gets its own.
	go func() {
		if err := h.runner.Process(context.Background(), job.JobID, request); err != nil {
			h.logger.WithError(err).WithField("job_id", job.JobID).Error("Batch processing failed")
		}
	}()

	h.logger.WithFields(logrus.Fields{
		"job_id":   job.JobID,
		"batch_id": request.BatchID,
	}).Info("Batch accepted")

	c.JSON(http.StatusAccepted, models.ProcessResponse{
		BatchID: request.BatchID,
		JobID:   job.JobID,
		Status:  job.Status,
		Message: "Batch accepted for processing",
	})
}

func (h *EngineHandler) GetJobStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_JOB_ID",
				"message": "Job ID must be a UUID",
			},
		})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":    "JOB_NOT_FOUND",
					"message": "No job with that ID",
				},
			})
			return
		}
		h.logger.WithError(err).WithField("job_id", jobID).Error("Failed to read job status")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "JOB_LOOKUP_FAILED",
				"message": "Failed to read job status",
			},
		})
		return
	}

	c.JSON(http.StatusOK, job)
}
