package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/scan"
)

const timeFormat = time.RFC3339

// scanResponse is the wire shape of a scan record. Counter and principle
// fields are flattened and only populated once a scan has run.
type scanResponse struct {
	ScanID               string         `json:"scan_id"`
	URL                  string         `json:"url"`
	Status               scan.Status    `json:"status"`
	Score                *float64       `json:"score,omitempty"`
	TotalChecks          int            `json:"total_checks"`
	PassedChecks         int            `json:"passed_checks"`
	Warnings             int            `json:"warnings"`
	Failures             int            `json:"failures"`
	PerceivableIssues    int            `json:"perceivable_issues"`
	OperableIssues       int            `json:"operable_issues"`
	UnderstandableIssues int            `json:"understandable_issues"`
	RobustIssues         int            `json:"robust_issues"`
	Findings             []scan.Finding `json:"findings,omitempty"`
	CreatedAt            string         `json:"created_at"`
	CompletedAt          *string        `json:"completed_at,omitempty"`
	DurationMs           *int64         `json:"scan_duration_ms,omitempty"`
	Error                string         `json:"error,omitempty"`
}

func toScanResponse(record scan.Scan) scanResponse {
	resp := scanResponse{
		ScanID:               record.ID,
		URL:                  record.URL,
		Status:               record.Status,
		Score:                record.Score,
		TotalChecks:          record.Counters.TotalChecks,
		PassedChecks:         record.Counters.PassedChecks,
		Warnings:             record.Counters.Warnings,
		Failures:             record.Counters.Failures,
		PerceivableIssues:    record.Issues.Perceivable,
		OperableIssues:       record.Issues.Operable,
		UnderstandableIssues: record.Issues.Understandable,
		RobustIssues:         record.Issues.Robust,
		Findings:             record.Findings,
		CreatedAt:            record.CreatedAt.Format(timeFormat),
		DurationMs:           record.DurationMs,
		Error:                record.Error,
	}
	if record.CompletedAt != nil {
		completed := record.CompletedAt.Format(timeFormat)
		resp.CompletedAt = &completed
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}

// writeDetail mirrors the validation/rate-limit error shape clients expect.
func writeDetail(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"detail": msg}, logger)
}
