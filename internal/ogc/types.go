// Package ogc implements a client for OGC API Processes servers.
package ogc

import (
	"encoding/json"
	"strings"
)

// JobStatus is the server-reported status of a job.
type JobStatus string

const (
	StatusAccepted  JobStatus = "accepted"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusDismissed JobStatus = "dismissed"
	StatusUnknown   JobStatus = "unknown"
)

// ParseStatus normalizes a server status string. Some server dialects report
// "successful" instead of "succeeded"; both map to StatusSucceeded.
// Unrecognized values map to StatusUnknown, which is non-terminal.
func ParseStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accepted":
		return StatusAccepted
	case "running":
		return StatusRunning
	case "succeeded", "successful":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	case "dismissed":
		return StatusDismissed
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusDismissed:
		return true
	default:
		return false
	}
}

// StatusInfo is one job-status response.
type StatusInfo struct {
	JobID     string    `json:"jobID"`
	ProcessID string    `json:"processID,omitempty"`
	Status    JobStatus `json:"status"`
	Progress  *int      `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// statusInfoJSON mirrors StatusInfo with a raw status for dialect handling.
type statusInfoJSON struct {
	JobID     string `json:"jobID"`
	ProcessID string `json:"processID"`
	Status    string `json:"status"`
	Progress  *int   `json:"progress"`
	Message   string `json:"message"`
}

// UnmarshalJSON normalizes the status field while decoding.
func (s *StatusInfo) UnmarshalJSON(data []byte) error {
	var raw statusInfoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.JobID = raw.JobID
	s.ProcessID = raw.ProcessID
	s.Status = ParseStatus(raw.Status)
	s.Progress = raw.Progress
	s.Message = raw.Message
	return nil
}

// ProcessSummary is one entry of the server's process list.
type ProcessSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
}

// ProcessDescription is the detailed description of a deployed process.
type ProcessDescription struct {
	ID          string          `json:"id"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	Inputs      json.RawMessage `json:"inputs,omitempty"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
}
