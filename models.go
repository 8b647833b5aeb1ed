package main

import "time"

// ChangeRecord is the raw, human-entered description of a planned
// infrastructure change. No field is required; every consumer has a
// defined fallback for missing or malformed values.
type ChangeRecord map[string]any

// DefaultedField records a field that could not be encoded as-is and
// was resolved to its default value instead. This never fails
// assembly, but it is surfaced for data-quality visibility.
type DefaultedField struct {
	Field  string
	Reason string
}

// Defaulted-field reasons.
const (
	ReasonMissing          = "missing"
	ReasonUnknownLabel     = "unknown_label"
	ReasonNotNumeric       = "not_numeric"
	ReasonBadTimestamp     = "bad_timestamp"
	ReasonNegativeDuration = "negative_duration"
)

// ClassificationResult is the final outcome of a successful pipeline run.
type ClassificationResult struct {
	PredictedLabel string
	RawPrediction  float64
	Vector         []float64
	Defaulted      []DefaultedField
}

// ClassificationRecord is a classification_history row.
type ClassificationRecord struct {
	ID             int64
	PredictedLabel string
	RawPrediction  float64
	FailedStage    string
	ErrorDetail    string
	DefaultedCount int
	CreatedAt      time.Time
}
