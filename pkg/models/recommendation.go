package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoredPair is one sparse similarity entry. Only strictly positive
// scores are materialized.
type ScoredPair struct {
	UserID   string  `json:"user_id"`
	CourseID string  `json:"course_id"`
	Score    float64 `json:"score"`
}

// RankedPair is one final recommendation row. Rank is dense per user,
// starting at 1.
type RankedPair struct {
	UserID   string  `json:"user_id" parquet:"user_id"`
	CourseID string  `json:"course_id" parquet:"course_id"`
	Score    float64 `json:"score" parquet:"score"`
	Rank     int32   `json:"rank" parquet:"rank"`
}

// ProcessRequest triggers a recommendation batch. BatchID doubles as the
// idempotency key.
type ProcessRequest struct {
	BatchID         string `json:"batch_id" validate:"required"`
	UsersFilePath   string `json:"users_file_path" validate:"required"`
	CoursesFilePath string `json:"courses_file_path" validate:"required"`
	TopK            int    `json:"top_k" validate:"omitempty,min=1"`
	CallbackURL     string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

type ProcessResponse struct {
	BatchID string    `json:"batch_id"`
	JobID   uuid.UUID `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

type BatchJobStatus struct {
	JobID          uuid.UUID `json:"job_id"`
	BatchID        string    `json:"batch_id"`
	Status         string    `json:"status"`
	ResultFilePath string    `json:"result_file_path,omitempty"`
	UserCount      int       `json:"user_count,omitempty"`
	ErrorCode      *string   `json:"error_code,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CallbackSuccessPayload is posted to the caller when a batch completes.
type CallbackSuccessPayload struct {
	BatchID        string    `json:"batch_id"`
	Status         string    `json:"status"`
	ResultFilePath string    `json:"result_file_path"`
	UserCount      int       `json:"user_count"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// CallbackFailurePayload is posted to the caller when a batch fails.
type CallbackFailurePayload struct {
	BatchID      string    `json:"batch_id"`
	Status       string    `json:"status"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
	FailedAt     time.Time `json:"failed_at"`
}
