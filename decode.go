package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PredictionLabels maps the regression model's known output codes to
// their human-readable risk categories (f01_chr_tipoafectacion).
var PredictionLabels = map[float64]string{
	0.0: "SENSE TALL DE SERVEI",
	1.0: "TALL DE SERVEI",
	2.0: "DEGRADACIO",
}

// DecodeError means the model response did not match the expected
// shape. It carries the raw response so the caller can surface it for
// diagnosis.
type DecodeError struct {
	Message     string
	RawResponse json.RawMessage
}

func (e *DecodeError) Error() string {
	return e.Message
}

// modelResponse is the loosely structured upstream envelope. Each
// prediction is kept raw and decoded as a tagged union below.
type modelResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// nestedPrediction is the object variant of a prediction entry.
type nestedPrediction struct {
	Prediction *float64 `json:"prediction"`
}

// DecodePrediction extracts the first prediction from a raw model
// response body. A prediction is either a bare number or an object
// with a "prediction" key; both are accepted. Numeric codes outside
// the label table are a valid outcome and synthesize an
// UNKNOWN_CODE_<value> label rather than an error. Every other shape
// deviation is a DecodeError.
func DecodePrediction(raw []byte) (label string, value float64, err error) {
	var resp modelResponse
	if jsonErr := json.Unmarshal(raw, &resp); jsonErr != nil {
		return "", 0, &DecodeError{
			Message:     fmt.Sprintf("model response is not valid JSON: %v", jsonErr),
			RawResponse: json.RawMessage(raw),
		}
	}
	if len(resp.Predictions) == 0 {
		return "", 0, &DecodeError{
			Message:     "model response has no predictions",
			RawResponse: json.RawMessage(raw),
		}
	}

	first := resp.Predictions[0]

	// Variant 1: bare number. A pointer target keeps JSON null from
	// masquerading as 0.0.
	var bare *float64
	if json.Unmarshal(first, &bare) == nil && bare != nil {
		return LabelForCode(*bare), *bare, nil
	}

	// Variant 2: object with a "prediction" key.
	var nested nestedPrediction
	if json.Unmarshal(first, &nested) == nil && nested.Prediction != nil {
		return LabelForCode(*nested.Prediction), *nested.Prediction, nil
	}

	return "", 0, &DecodeError{
		Message:     fmt.Sprintf("unexpected prediction format: %s", string(first)),
		RawResponse: json.RawMessage(raw),
	}
}

// LabelForCode maps a prediction code to its category label, or an
// UNKNOWN_CODE_<value> label for codes outside the table. Integral
// codes keep one decimal (UNKNOWN_CODE_5.0), matching the model's
// float-typed output.
func LabelForCode(code float64) string {
	if label, ok := PredictionLabels[code]; ok {
		return label
	}
	if code == math.Trunc(code) {
		return "UNKNOWN_CODE_" + strconv.FormatFloat(code, 'f', 1, 64)
	}
	return "UNKNOWN_CODE_" + strconv.FormatFloat(code, 'g', -1, 64)
}
