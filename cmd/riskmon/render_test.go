package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/selivandex/supplier-risk/pkg/models"
)

func TestRenderReport(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC) }

	report := &models.Report{
		LookbackDays: 90,
		Weights:      models.DefaultWeights(),
		Scores: []models.CompositeScore{
			{Supplier: "Globex", Country: "ZZZ", RiskSent: 50, RiskGeo: 50, RiskReg: 50, RiskScore: 50},
			{Supplier: "Acme", Country: "USA", RiskSent: 50, RiskGeo: 20, RiskReg: 30, RiskScore: 39.5},
		},
		Headlines: []models.SentimentRow{
			{Date: day(6), Supplier: "Acme", Title: "Strike halts plant", Sentiment: -0.5},
			{Date: day(9), Supplier: "Acme", Title: "Record orders", Sentiment: 0.3},
			{Date: day(7), Supplier: "Acme", Title: "Recall widens", Sentiment: -0.2},
		},
		Advisories: []string{"headlines for Globex unavailable: timeout"},
	}

	var buf bytes.Buffer
	if err := renderReport(&buf, report, 2); err != nil {
		t.Fatalf("renderReport failed: %v", err)
	}
	out := buf.String()

	if strings.Index(out, "Globex") > strings.Index(out, "Acme") {
		t.Error("Rows should keep report order")
	}
	if !strings.Contains(out, "39.5") {
		t.Error("Missing Acme score")
	}
	if !strings.Contains(out, "Record orders") || !strings.Contains(out, "Recall widens") {
		t.Error("Missing newest headlines")
	}
	if strings.Contains(out, "Strike halts plant") {
		t.Error("Headline limit not applied")
	}
	if strings.Index(out, "Record orders") > strings.Index(out, "Recall widens") {
		t.Error("Headlines should be newest first")
	}
	if !strings.Contains(out, "timeout") {
		t.Error("Missing advisory")
	}
}
