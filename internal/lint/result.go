package lint

import "time"

// RuleType identifies a lint rule
type RuleType string

const (
	RuleMissingTrailingComma RuleType = "missing_trailing_comma"
)

// Finding is a single position reported by a detector
type Finding struct {
	Rule    RuleType `json:"rule"`
	Message string   `json:"message"`
	Line    int      `json:"line"`   // 1-based
	Column  int      `json:"column"` // 0-based, in characters
	Offset  int      `json:"offset"` // characters from the start of the file
}

// Result contains the outcome of one detector on one file
type Result struct {
	Rule       RuleType  `json:"rule"`
	Detector   string    `json:"detector"`
	FilePath   string    `json:"file_path"`
	Findings   []Finding `json:"findings"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewResult creates a new empty result
func NewResult(rule RuleType, detector, filePath string) *Result {
	return &Result{
		Rule:       rule,
		Detector:   detector,
		FilePath:   filePath,
		Findings:   []Finding{},
		DetectedAt: time.Now(),
	}
}

// HasFindings returns true if the detector reported anything
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// Offsets returns the offsets of all findings in report order
func (r *Result) Offsets() []int {
	offsets := make([]int, 0, len(r.Findings))
	for _, f := range r.Findings {
		offsets = append(offsets, f.Offset)
	}
	return offsets
}
