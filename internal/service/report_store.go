package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commas-go/internal/lint"
	"commas-go/internal/model/report"

	"go.uber.org/zap"
)

var ErrRunNotFound = errors.New("run not found")

// ReportStore persists run reports in a graph database as Run nodes linked to
// their Finding nodes
type ReportStore struct {
	db     GraphDatabase
	logger *zap.Logger
}

func NewReportStore(db GraphDatabase, logger *zap.Logger) *ReportStore {
	return &ReportStore{db: db, logger: logger}
}

// SaveRun writes the run summary and every finding of the report
func (s *ReportStore) SaveRun(ctx context.Context, r *report.RunReport) error {
	summary := r.Summary()
	_, err := s.db.ExecuteWrite(ctx, `
		CREATE (r:Run {
			id: $id,
			repo: $repo,
			commitSha: $commitSha,
			startedAt: $startedAt,
			finishedAt: $finishedAt,
			filesChecked: $filesChecked,
			findings: $findings,
			fix: $fix
		})`,
		map[string]any{
			"id":           summary.RunID,
			"repo":         summary.Repo,
			"commitSha":    summary.Commit,
			"startedAt":    summary.StartedAt.UnixNano(),
			"finishedAt":   summary.FinishedAt.UnixNano(),
			"filesChecked": int64(summary.FilesChecked),
			"findings":     int64(summary.Findings),
			"fix":          summary.Fix,
		})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.RunID, err)
	}

	for _, file := range r.Files {
		for i, f := range file.Findings {
			_, err := s.db.ExecuteWrite(ctx, `
				MATCH (r:Run)
				WHERE r.id = $runId
				CREATE (r)-[:HAS_FINDING]->(:Finding {
					id: $id,
					runId: $runId,
					path: $path,
					rule: $rule,
					message: $message,
					lineNo: $lineNo,
					col: $col,
					charOffset: $charOffset
				})`,
				map[string]any{
					"id":         fmt.Sprintf("%s:%s:%d", r.RunID, file.Path, i),
					"runId":      r.RunID,
					"path":       file.Path,
					"rule":       string(f.Rule),
					"message":    f.Message,
					"lineNo":     int64(f.Line),
					"col":        int64(f.Column),
					"charOffset": int64(f.Offset),
				})
			if err != nil {
				return fmt.Errorf("failed to save finding of run %s: %w", r.RunID, err)
			}
		}
	}

	s.logger.Info("Saved run report",
		zap.String("run_id", r.RunID),
		zap.String("repo", r.Repo),
		zap.Int("findings", summary.Findings))
	return nil
}

// ListRuns returns the most recent runs of a repository, newest first
func (s *ReportStore) ListRuns(ctx context.Context, repo string, limit int) ([]report.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	records, err := s.db.ExecuteRead(ctx, fmt.Sprintf(`
		MATCH (r:Run)
		WHERE r.repo = $repo
		RETURN r.id AS id, r.repo AS repo, r.commitSha AS commitSha,
			r.startedAt AS startedAt, r.finishedAt AS finishedAt,
			r.filesChecked AS filesChecked, r.findings AS findings, r.fix AS fix
		ORDER BY r.startedAt DESC
		LIMIT %d`, limit),
		map[string]any{"repo": repo})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of %s: %w", repo, err)
	}

	runs := make([]report.RunSummary, 0, len(records))
	for _, record := range records {
		runs = append(runs, report.RunSummary{
			RunID:        asString(record["id"]),
			Repo:         asString(record["repo"]),
			Commit:       asString(record["commitSha"]),
			StartedAt:    time.Unix(0, asInt64(record["startedAt"])).UTC(),
			FinishedAt:   time.Unix(0, asInt64(record["finishedAt"])).UTC(),
			FilesChecked: int(asInt64(record["filesChecked"])),
			Findings:     int(asInt64(record["findings"])),
			Fix:          asBool(record["fix"]),
		})
	}
	return runs, nil
}

// LatestRun returns the newest run of a repository
func (s *ReportStore) LatestRun(ctx context.Context, repo string) (*report.RunSummary, error) {
	runs, err := s.ListRuns(ctx, repo, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs for %s", ErrRunNotFound, repo)
	}
	return &runs[0], nil
}

// FindingsForRun returns the findings of a run ordered by file and offset
func (s *ReportStore) FindingsForRun(ctx context.Context, runID string) ([]report.StoredFinding, error) {
	runs, err := s.db.ExecuteRead(ctx, `
		MATCH (r:Run)
		WHERE r.id = $runId
		RETURN r.id AS id`,
		map[string]any{"runId": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	records, err := s.db.ExecuteRead(ctx, `
		MATCH (r:Run)-[:HAS_FINDING]->(f:Finding)
		WHERE r.id = $runId
		RETURN f.path AS path, f.rule AS rule, f.message AS message,
			f.lineNo AS lineNo, f.col AS col, f.charOffset AS charOffset
		ORDER BY path, charOffset`,
		map[string]any{"runId": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to read findings of run %s: %w", runID, err)
	}

	findings := make([]report.StoredFinding, 0, len(records))
	for _, record := range records {
		findings = append(findings, report.StoredFinding{
			Path: asString(record["path"]),
			Finding: lint.Finding{
				Rule:    lint.RuleType(asString(record["rule"])),
				Message: asString(record["message"]),
				Line:    int(asInt64(record["lineNo"])),
				Column:  int(asInt64(record["col"])),
				Offset:  int(asInt64(record["charOffset"])),
			},
		})
	}
	return findings, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
