package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSchedulers wires the recurring background jobs: the daily
// data-quality summary and the chat backend probe. Jobs log their
// findings and post through the notifier when one is configured.
func StartSchedulers(cfg Config, db *sql.DB, assistant *ChatAssistant, notifier *Notifier) *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc(cfg.QualitySummarySchedule, func() {
		RunQualitySummary(db, notifier, 24*time.Hour)
	}); err != nil {
		log.Printf("scheduler: invalid quality summary schedule: %v", err)
	}

	if _, err := c.AddFunc(cfg.ChatProbeSchedule, func() {
		runChatProbe(assistant, notifier)
	}); err != nil {
		log.Printf("scheduler: invalid chat probe schedule: %v", err)
	}

	c.Start()
	log.Printf("schedulers started: quality_summary=%q chat_probe=%q", cfg.QualitySummarySchedule, cfg.ChatProbeSchedule)
	return c
}

// RunQualitySummary aggregates recent classification outcomes and
// defaulted-field counts, logs them, and posts them to the alert
// channel. Defaulted fields never fail a request, so this summary is
// the main visibility into silent data-quality degradation.
func RunQualitySummary(db *sql.DB, notifier *Notifier, window time.Duration) {
	counts, err := QueryQualityCounts(db, time.Now().Add(-window))
	if err != nil {
		log.Printf("quality summary: query failed: %v", err)
		return
	}

	summary := FormatQualitySummary(counts, window)
	log.Printf("quality summary: %s", strings.ReplaceAll(summary, "\n", " | "))
	notifier.Post(summary)
}

func FormatQualitySummary(counts QualityCounts, window time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Change classification quality, last %s:\n", window)
	fmt.Fprintf(&b, "requests=%d succeeded=%d failed=%d defaulted_fields=%d",
		counts.Total, counts.Succeeded, counts.Failed, counts.DefaultedTotal)

	if len(counts.ByField) > 0 {
		fields := make([]string, 0, len(counts.ByField))
		for f := range counts.ByField {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		b.WriteString("\nTop defaulted fields:")
		for _, f := range fields {
			fmt.Fprintf(&b, "\n  %s: %d", f, counts.ByField[f])
		}
	}
	return b.String()
}

func runChatProbe(assistant *ChatAssistant, notifier *Notifier) {
	if assistant.DemoMode() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := assistant.Probe(ctx); err != nil {
		log.Printf("chat probe: backend unreachable: %v", err)
		notifier.Alert(fmt.Sprintf("Chat backend probe failed: %v", err))
		return
	}
	log.Printf("chat probe: backend reachable")
}
