package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS classification_history (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		predicted_label TEXT DEFAULT '',
		raw_prediction  REAL DEFAULT 0,
		failed_stage    TEXT DEFAULT '',
		error_detail    TEXT DEFAULT '',
		defaulted_count INTEGER DEFAULT 0,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON classification_history(created_at);

	CREATE TABLE IF NOT EXISTS defaulted_fields (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		history_id INTEGER NOT NULL,
		field      TEXT NOT NULL,
		reason     TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_defaulted_history ON defaulted_fields(history_id);
	CREATE INDEX IF NOT EXISTS idx_defaulted_field ON defaulted_fields(field);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// RecordClassification persists one pipeline outcome plus its
// defaulted-field annotations and returns the history row id.
func RecordClassification(db *sql.DB, result *ClassificationResult, failedStage, errorDetail string) (int64, error) {
	var label string
	var raw float64
	var defaulted []DefaultedField
	if result != nil {
		label = result.PredictedLabel
		raw = result.RawPrediction
		defaulted = result.Defaulted
	}

	res, err := db.Exec(
		`INSERT INTO classification_history (predicted_label, raw_prediction, failed_stage, error_detail, defaulted_count)
		 VALUES (?, ?, ?, ?, ?)`,
		label, raw, failedStage, errorDetail, len(defaulted),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, f := range defaulted {
		if _, err := db.Exec(
			`INSERT INTO defaulted_fields (history_id, field, reason) VALUES (?, ?, ?)`,
			id, f.Field, f.Reason,
		); err != nil {
			return id, err
		}
	}
	return id, nil
}

// QualityCounts aggregates pipeline outcomes since a point in time,
// for the scheduled data-quality summary.
type QualityCounts struct {
	Total          int
	Succeeded      int
	Failed         int
	DefaultedTotal int
	ByField        map[string]int
}

func QueryQualityCounts(db *sql.DB, since time.Time) (QualityCounts, error) {
	counts := QualityCounts{ByField: make(map[string]int)}

	err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN failed_stage = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(defaulted_count), 0)
		 FROM classification_history WHERE created_at >= ?`,
		since.UTC(),
	).Scan(&counts.Total, &counts.Succeeded, &counts.DefaultedTotal)
	if err != nil {
		return counts, err
	}
	counts.Failed = counts.Total - counts.Succeeded

	rows, err := db.Query(
		`SELECT field, COUNT(*) FROM defaulted_fields WHERE created_at >= ? GROUP BY field`,
		since.UTC(),
	)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var field string
		var n int
		if err := rows.Scan(&field, &n); err != nil {
			return counts, err
		}
		counts.ByField[field] = n
	}
	return counts, rows.Err()
}
