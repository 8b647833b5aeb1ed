package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
)

// InvocationError is a transport or upstream failure while calling
// the regression endpoint. StatusCode is 0 when no HTTP response was
// received.
type InvocationError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("regression endpoint returned %d: %s", e.StatusCode, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("regression endpoint call failed: %v", e.Err)
	}
	return "regression endpoint call failed: " + e.Detail
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// dataframeSplit is the table encoding the serving endpoint expects:
// one "features" column, one row, whose single cell is the full
// vector.
type dataframeSplit struct {
	Columns []string      `json:"columns"`
	Data    [][][]float64 `json:"data"`
}

type invocationPayload struct {
	DataframeSplit dataframeSplit `json:"dataframe_split"`
}

// InvokeRegressionEndpoint sends a feature vector to the serving
// endpoint and returns the raw response body. Single attempt, no
// retry: retry policy belongs to the caller. NaN and infinite values
// are rejected before any bytes are sent, since JSON cannot represent
// them and the model must never receive underspecified numbers.
func InvokeRegressionEndpoint(ctx context.Context, client *http.Client, endpoint, token string, vector []float64) ([]byte, error) {
	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvocationError{
				Detail: fmt.Sprintf("feature vector slot %d (%s) is not a finite number", i, FeatureOrder[i]),
			}
		}
	}

	payload := invocationPayload{
		DataframeSplit: dataframeSplit{
			Columns: []string{"features"},
			Data:    [][][]float64{{vector}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &InvocationError{Detail: "encoding payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &InvocationError{Detail: "creating request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("regression endpoint %s: %v", endpoint, err)
		return nil, &InvocationError{Detail: "executing request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InvocationError{Detail: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("regression endpoint %s returned %d: %s", endpoint, resp.StatusCode, truncateForLog(respBody, 500))
		return nil, &InvocationError{
			StatusCode: resp.StatusCode,
			Detail:     truncateForLog(respBody, 200),
		}
	}

	return respBody, nil
}

func truncateForLog(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
