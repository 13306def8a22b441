package report

import (
	"time"

	"commas-go/internal/lint"
)

// FileReport lists the findings of one file
type FileReport struct {
	Path     string         `json:"path"` // relative to the repository root
	Findings []lint.Finding `json:"findings"`
	Fixed    bool           `json:"fixed,omitempty"`
}

// FileError records a file that could not be checked
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RunReport is the outcome of checking a set of files once
type RunReport struct {
	RunID        string       `json:"run_id"`
	Repo         string       `json:"repo"`
	Commit       string       `json:"commit,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	FilesChecked int          `json:"files_checked"`
	Fix          bool         `json:"fix"`
	Files        []FileReport `json:"files"`
	Errors       []FileError  `json:"errors,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// FindingCount returns the total number of findings over all files
func (r *RunReport) FindingCount() int {
	count := 0
	for _, f := range r.Files {
		count += len(f.Findings)
	}
	return count
}

// RunSummary is what the report store keeps about a run
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Repo         string    `json:"repo"`
	Commit       string    `json:"commit,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	FilesChecked int       `json:"files_checked"`
	Findings     int       `json:"findings"`
	Fix          bool      `json:"fix"`
}

// Summary drops the per-file details
func (r *RunReport) Summary() RunSummary {
	return RunSummary{
		RunID:        r.RunID,
		Repo:         r.Repo,
		Commit:       r.Commit,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		FilesChecked: r.FilesChecked,
		Findings:     r.FindingCount(),
		Fix:          r.Fix,
	}
}

// StoredFinding is a finding together with the file it belongs to
type StoredFinding struct {
	Path string `json:"path"`
	lint.Finding
}
