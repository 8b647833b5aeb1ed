package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassifyEndToEnd(t *testing.T) {
	catalog := testCatalog(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[2.0]}`))
	}))
	defer server.Close()

	classifier := &Classifier{
		Catalog:    catalog,
		Endpoint:   server.URL,
		Token:      "tok",
		HTTPClient: server.Client(),
	}

	result, err := classifier.Classify(context.Background(), ChangeRecord{
		"categorization_tier_1": "INFRAESTRUCTURA",
		"change_request_status": 2.0,
		"scheduled_start_date":  "2026-02-09T08:00:00",
		"scheduled_end_date":    "2026-02-09T12:00:00",
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.PredictedLabel != "DEGRADACIO" || result.RawPrediction != 2.0 {
		t.Fatalf("got (%q, %v), want (DEGRADACIO, 2)", result.PredictedLabel, result.RawPrediction)
	}
	if result.Vector[4] != 3.0 || result.Vector[10] != 2.0 || result.Vector[11] != 4.0 {
		t.Fatalf("unexpected vector %v", result.Vector)
	}
	if len(result.Defaulted) != 9 {
		t.Fatalf("expected 9 defaulted fields, got %d", len(result.Defaulted))
	}
}

func TestClassifyEmptyRecord(t *testing.T) {
	classifier := &Classifier{Catalog: testCatalog(t), Endpoint: "http://model", HTTPClient: http.DefaultClient}

	for _, record := range []ChangeRecord{nil, {}} {
		_, err := classifier.Classify(context.Background(), record)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %v, got %v", record, err)
		}
	}
}

func TestClassifyCatalogUnavailable(t *testing.T) {
	classifier := &Classifier{Catalog: nil, Endpoint: "http://model", HTTPClient: http.DefaultClient}

	_, err := classifier.Classify(context.Background(), ChangeRecord{"ASORG": "IT"})
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}

	// Catalog unavailability wins independent of input.
	_, err = classifier.Classify(context.Background(), ChangeRecord{})
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable for empty input too, got %v", err)
	}
}

func TestClassifyEndpointNotConfigured(t *testing.T) {
	classifier := &Classifier{Catalog: testCatalog(t), Endpoint: "", HTTPClient: http.DefaultClient}

	_, err := classifier.Classify(context.Background(), ChangeRecord{"ASORG": "IT"})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("expected ErrEndpointNotConfigured, got %v", err)
	}
}

func TestClassifyInvokeFailureTaggedWithStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier := &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   server.URL,
		Token:      "tok",
		HTTPClient: server.Client(),
	}

	_, err := classifier.Classify(context.Background(), ChangeRecord{"ASORG": "IT"})
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if stageErr.Stage != StageInvoke {
		t.Fatalf("failing stage = %q, want %q", stageErr.Stage, StageInvoke)
	}
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("stage error must wrap the invocation error, got %v", stageErr.Err)
	}
}

func TestClassifyDecodeFailureTaggedWithStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[]}`))
	}))
	defer server.Close()

	classifier := &Classifier{
		Catalog:    testCatalog(t),
		Endpoint:   server.URL,
		Token:      "tok",
		HTTPClient: server.Client(),
	}

	_, err := classifier.Classify(context.Background(), ChangeRecord{"ASORG": "IT"})
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if stageErr.Stage != StageDecode {
		t.Fatalf("failing stage = %q, want %q", stageErr.Stage, StageDecode)
	}
}
