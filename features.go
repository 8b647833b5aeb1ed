package main

import (
	"fmt"
	"log"
	"strconv"
)

// FeatureOrder is the published input schema of the regression model:
// 10 categorical index slots followed by change_request_status and
// change_duration. The model receives a bare vector with no field
// names, so this order is a hard contract; reordering silently breaks
// predictions.
var FeatureOrder = []string{
	"f01_chr_serviceid_index",
	"serviceci_index",
	"ASORG_index",
	"ASGRP_index",
	"categorization_tier_1_index",
	"categorization_tier_2_index",
	"categorization_tier_3_index",
	"product_cat_tier_1_index",
	"product_cat_tier_2_index",
	"product_cat_tier_3_index",
	"change_request_status",
	"change_duration",
}

// CategoricalColumns are the record field names whose labels are
// encoded through the equivalence catalog, in vector slot order.
var CategoricalColumns = []string{
	"f01_chr_serviceid",
	"serviceci",
	"ASORG",
	"ASGRP",
	"categorization_tier_1",
	"categorization_tier_2",
	"categorization_tier_3",
	"product_cat_tier_1",
	"product_cat_tier_2",
	"product_cat_tier_3",
}

const (
	statusField    = "change_request_status"
	startDateField = "scheduled_start_date"
	endDateField   = "scheduled_end_date"
)

// AssembleFeatureVector encodes a raw change record into the
// fixed-order numeric vector the regression model expects. Every
// per-field problem (missing value, label not in the catalog,
// non-numeric status, bad timestamps) degrades to 0.0 and is reported
// in the returned defaulted list; the only hard failure is an
// unavailable catalog. Index 0 is assumed to encode the most common
// category, a convention inherited from the model's training step.
func AssembleFeatureVector(record ChangeRecord, catalog *EquivalenceCatalog) ([]float64, []DefaultedField, error) {
	if catalog == nil {
		return nil, nil, ErrCatalogUnavailable
	}

	vector := make([]float64, 0, len(FeatureOrder))
	var defaulted []DefaultedField

	for _, col := range CategoricalColumns {
		label, ok := stringField(record, col)
		if !ok {
			log.Printf("assemble: missing value for %q, defaulting index to 0", col)
			defaulted = append(defaulted, DefaultedField{Field: col, Reason: ReasonMissing})
			vector = append(vector, 0.0)
			continue
		}
		index, found := catalog.Lookup(col, label)
		if !found {
			log.Printf("assemble: label %q for %q not in equivalence catalog, defaulting index to 0", label, col)
			defaulted = append(defaulted, DefaultedField{Field: col, Reason: ReasonUnknownLabel})
			vector = append(vector, 0.0)
			continue
		}
		vector = append(vector, float64(index))
	}

	status, reason := numericField(record, statusField)
	if reason != "" {
		defaulted = append(defaulted, DefaultedField{Field: statusField, Reason: reason})
	}
	vector = append(vector, status)

	start, _ := stringField(record, startDateField)
	end, _ := stringField(record, endDateField)
	hours, durationDefaulted := ChangeDuration(start, end)
	if durationDefaulted {
		defaulted = append(defaulted, DefaultedField{Field: "change_duration", Reason: durationReason(start, end)})
	}
	vector = append(vector, hours)

	return vector, defaulted, nil
}

func durationReason(start, end string) string {
	if start == "" || end == "" {
		return ReasonMissing
	}
	_, startOK := parseChangeTimestamp(start)
	_, endOK := parseChangeTimestamp(end)
	if !startOK || !endOK {
		return ReasonBadTimestamp
	}
	return ReasonNegativeDuration
}

// stringField reads a record field as a string. Non-string values are
// treated as absent; the encoding layer only understands labels.
func stringField(record ChangeRecord, field string) (string, bool) {
	v, ok := record[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// numericField coerces a record field to float64, accepting JSON
// numbers and numeric strings. Anything else defaults to 0.0 with the
// reason for the degradation.
func numericField(record ChangeRecord, field string) (float64, string) {
	v, ok := record[field]
	if !ok || v == nil {
		log.Printf("assemble: missing value for %q, defaulting to 0", field)
		return 0.0, ReasonMissing
	}
	switch n := v.(type) {
	case float64:
		return n, ""
	case int:
		return float64(n), ""
	case bool:
		if n {
			return 1.0, ""
		}
		return 0.0, ""
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			log.Printf("assemble: invalid value %q for %q, defaulting to 0", n, field)
			return 0.0, ReasonNotNumeric
		}
		return f, ""
	default:
		log.Printf("assemble: invalid value %v for %q, defaulting to 0", v, field)
		return 0.0, ReasonNotNumeric
	}
}

// DefaultedFieldSummary renders the defaulted list for logs.
func DefaultedFieldSummary(fields []DefaultedField) string {
	if len(fields) == 0 {
		return "none"
	}
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s(%s)", f.Field, f.Reason)
	}
	return s
}
