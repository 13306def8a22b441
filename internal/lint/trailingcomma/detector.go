package trailingcomma

import (
	"context"

	"commas-go/internal/lint"
	"commas-go/internal/service"

	"go.uber.org/zap"
)

const DetectorName = "trailing_comma_detector"

// Detector reports missing trailing commas as lint findings
type Detector struct {
	finder *Finder
	logger *zap.Logger
}

// NewDetector creates a new trailing comma detector
func NewDetector(tokenizer service.Tokenizer, logger *zap.Logger) *Detector {
	return &Detector{
		finder: NewFinder(tokenizer),
		logger: logger,
	}
}

func (d *Detector) Name() string {
	return DetectorName
}

func (d *Detector) Rule() lint.RuleType {
	return lint.RuleMissingTrailingComma
}

// Check runs the analysis on one file
func (d *Detector) Check(ctx context.Context, file *lint.SourceFile) (*lint.Result, error) {
	analysis, err := d.finder.Find(ctx, file.Content, file.Path)
	if err != nil {
		return nil, err
	}

	result := lint.NewResult(d.Rule(), d.Name(), file.Path)
	offsets := analysis.InsertionOffsets()
	for i, coord := range analysis.InsertionCoordinates() {
		result.Findings = append(result.Findings, lint.Finding{
			Rule:    d.Rule(),
			Message: "missing trailing comma",
			Line:    coord.Line,
			Column:  coord.Column,
			Offset:  offsets[i],
		})
	}

	d.logger.Debug("Trailing comma check complete",
		zap.String("file", file.Path),
		zap.Int("findings", len(result.Findings)))

	return result, nil
}
