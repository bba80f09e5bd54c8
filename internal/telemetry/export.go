package telemetry

import (
	"encoding/json"
	"time"
)

// ReportVersion tags exported telemetry payloads.
const ReportVersion = "1.0"

// Report is the exportable session snapshot.
type Report struct {
	Version    string  `json:"version"`
	ExportTime int64   `json:"export_time"` // epoch ms
	Events     []Event `json:"events"`
	Summary    Summary `json:"summary"`
}

// Export serializes the retained events and derived summary.
func (a *Aggregator) Export() ([]byte, error) {
	report := Report{
		Version:    ReportVersion,
		ExportTime: time.Now().UnixMilli(),
		Events:     a.Events(),
		Summary:    a.Summarize(),
	}
	return json.MarshalIndent(report, "", "  ")
}
