package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
)

// Hard error kinds. Each disables or aborts a request for a distinct,
// externally observable reason; handlers map them to HTTP statuses.
var (
	ErrCatalogUnavailable    = errors.New("equivalence catalog is not loaded")
	ErrEndpointNotConfigured = errors.New("regression endpoint URL is not configured")
	ErrEmptyInput            = errors.New("no change data provided")
)

// Pipeline stages, in execution order.
const (
	StageAssemble = "assemble"
	StageInvoke   = "invoke"
	StageDecode   = "decode"
)

// StageError tags a pipeline failure with the stage that produced it.
// The first failing stage terminates the run; a failure is never
// reported as a different stage's.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Classifier runs the classification pipeline: assemble the feature
// vector, invoke the regression endpoint, decode the prediction. It
// is stateless per request; the catalog is a shared read-only value.
type Classifier struct {
	Catalog    *EquivalenceCatalog
	Endpoint   string
	Token      string
	HTTPClient *http.Client
}

// Classify runs one change record through the pipeline. Stages are
// strictly sequential with no retry; the first failure aborts and is
// returned tagged with its stage. Per-field encoding problems are
// soft and reported in the result's Defaulted list instead.
func (c *Classifier) Classify(ctx context.Context, record ChangeRecord) (*ClassificationResult, error) {
	if c.Catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	if c.Endpoint == "" {
		return nil, ErrEndpointNotConfigured
	}
	if len(record) == 0 {
		return nil, ErrEmptyInput
	}

	vector, defaulted, err := AssembleFeatureVector(record, c.Catalog)
	if err != nil {
		return nil, &StageError{Stage: StageAssemble, Err: err}
	}
	log.Printf("classify: assembled vector %v defaulted=%s", vector, DefaultedFieldSummary(defaulted))

	raw, err := InvokeRegressionEndpoint(ctx, c.HTTPClient, c.Endpoint, c.Token, vector)
	if err != nil {
		return nil, &StageError{Stage: StageInvoke, Err: err}
	}

	label, value, err := DecodePrediction(raw)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	log.Printf("classify: prediction label=%s raw=%v", label, value)
	return &ClassificationResult{
		PredictedLabel: label,
		RawPrediction:  value,
		Vector:         vector,
		Defaulted:      defaulted,
	}, nil
}
