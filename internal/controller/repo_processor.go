package controller

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"commas-go/internal/config"
	"commas-go/internal/fixer"
	"commas-go/internal/lint"
	"commas-go/internal/model/report"
	"commas-go/internal/service"
	"commas-go/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

var skippedDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"node_modules": true,
	".tox":         true,
	".mypy_cache":  true,
}

// CheckOptions controls a repository or path run
type CheckOptions struct {
	Fix         bool // insert the missing commas and rewrite the files
	ChangedOnly bool // only files modified relative to git HEAD
}

// RepoProcessor runs the lint detectors over many files
type RepoProcessor struct {
	config     *config.Config
	detectors  *lint.DetectorRegistry
	tokenizers *service.TokenizerRegistry
	store      *service.ReportStore // nil when runs are not persisted
	logger     *zap.Logger
}

func NewRepoProcessor(
	config *config.Config,
	detectors *lint.DetectorRegistry,
	tokenizers *service.TokenizerRegistry,
	store *service.ReportStore,
	logger *zap.Logger,
) *RepoProcessor {
	return &RepoProcessor{
		config:     config,
		detectors:  detectors,
		tokenizers: tokenizers,
		store:      store,
		logger:     logger,
	}
}

// ProcessRepository checks every supported file of a configured repository
func (rp *RepoProcessor) ProcessRepository(ctx context.Context, repo *config.Repository, opts CheckOptions) (*report.RunReport, error) {
	rp.logger.Info("Processing repository", zap.String("name", repo.Name), zap.String("path", repo.Path))

	if _, ok := rp.tokenizers.GetTokenizer(repo.Language); !ok {
		return nil, fmt.Errorf("%w: repository %s uses %s", ErrUnsupportedLanguage, repo.Name, repo.Language)
	}

	files, err := rp.collectFiles(repo.Path, repo.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to process repository %s: %w", repo.Name, err)
	}

	gitInfo, err := util.GetGitInfo(ctx, repo.Path)
	if err != nil {
		rp.logger.Warn("Failed to read git information", zap.String("repo", repo.Name), zap.Error(err))
		gitInfo = nil
	}
	if opts.ChangedOnly && gitInfo != nil && gitInfo.IsGitRepo {
		changed := files[:0]
		for _, file := range files {
			if util.IsFileModified(gitInfo, file) {
				changed = append(changed, file)
			}
		}
		files = changed
	}

	run := rp.newRun(repo.Name, opts)
	if gitInfo != nil {
		run.Commit = gitInfo.HeadCommitSHA
	}
	return rp.checkFiles(ctx, run, repo.Path, files)
}

// ProcessAllRepositories checks every enabled repository of the configuration
func (rp *RepoProcessor) ProcessAllRepositories(ctx context.Context, opts CheckOptions) ([]*report.RunReport, error) {
	rp.logger.Info("Starting to process all repositories", zap.Int("count", len(rp.config.Source.Repositories)))

	var reports []*report.RunReport
	var errs []error
	for i := range rp.config.Source.Repositories {
		repo := &rp.config.Source.Repositories[i]
		if repo.Disabled {
			rp.logger.Info("Skipping disabled repository", zap.String("name", repo.Name))
			continue
		}
		if err := ctx.Err(); err != nil {
			rp.logger.Info("Context cancelled, stopping repository processing")
			return reports, err
		}

		run, err := rp.ProcessRepository(ctx, repo, opts)
		if err != nil {
			rp.logger.Error("Failed to process repository", zap.String("name", repo.Name), zap.Error(err))
			errs = append(errs, err)
		}
		if run != nil {
			reports = append(reports, run)
		}
	}

	rp.logger.Info("Completed processing all repositories")
	return reports, errors.Join(errs...)
}

// CheckPaths checks files and directories given on the command line.
// Directories are walked; files are checked whatever their extension.
// A file reached through more than one argument is checked once.
func (rp *RepoProcessor) CheckPaths(ctx context.Context, paths []string, opts CheckOptions) (*report.RunReport, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := rp.collectFiles(path, nil)
		if err != nil {
			return nil, err
		}
		for _, file := range found {
			add(file)
		}
	}

	return rp.checkFiles(ctx, rp.newRun("", opts), "", files)
}

func (rp *RepoProcessor) newRun(repo string, opts CheckOptions) *report.RunReport {
	return &report.RunReport{
		RunID:     uuid.NewString(),
		Repo:      repo,
		StartedAt: time.Now().UTC(),
		Fix:       opts.Fix,
		Files:     []report.FileReport{},
	}
}

func (rp *RepoProcessor) collectFiles(root string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rp.logger.Error("Error accessing file", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel := util.ToRelativePath(root, path)
		if d.IsDir() {
			if path != root && (skippedDirs[d.Name()] || util.MatchesAny(exclude, rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if util.MatchesAny(exclude, rel) {
			return nil
		}
		if _, ok := rp.tokenizers.GetTokenizerForFile(path); !ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (rp *RepoProcessor) checkFiles(ctx context.Context, run *report.RunReport, root string, files []string) (*report.RunReport, error) {
	var mu sync.Mutex
	executorPool := util.NewExecutorPool(rp.config.App.NumFileThreads, 100, func(task any) {
		path := task.(string)
		fileReport, err := rp.checkFile(ctx, root, path, run.Fix)

		mu.Lock()
		defer mu.Unlock()
		run.FilesChecked++
		if err != nil {
			rp.logger.Warn("Failed to check file", zap.String("path", path), zap.Error(err))
			run.Errors = append(run.Errors, report.FileError{Path: displayPath(root, path), Error: err.Error()})
			return
		}
		if len(fileReport.Findings) > 0 {
			run.Files = append(run.Files, *fileReport)
		}
	})

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		executorPool.Submit(file)
	}
	executorPool.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(run.Files, func(i, j int) bool { return run.Files[i].Path < run.Files[j].Path })
	sort.Slice(run.Errors, func(i, j int) bool { return run.Errors[i].Path < run.Errors[j].Path })
	run.FinishedAt = time.Now().UTC()

	rp.logger.Info("Completed run",
		zap.String("run_id", run.RunID),
		zap.String("repo", run.Repo),
		zap.Int("files", run.FilesChecked),
		zap.Int("findings", run.FindingCount()),
		zap.Int("errors", len(run.Errors)))

	if rp.store != nil {
		if err := rp.store.SaveRun(ctx, run); err != nil {
			rp.logger.Error("Failed to save run report", zap.String("run_id", run.RunID), zap.Error(err))
			run.Warnings = append(run.Warnings, fmt.Sprintf("run report was not saved: %v", err))
			return run, err
		}
	}
	return run, nil
}

func (rp *RepoProcessor) checkFile(ctx context.Context, root, path string, fix bool) (*report.FileReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	results, err := rp.detectors.CheckAll(ctx, &lint.SourceFile{Path: path, Content: content})
	if err != nil {
		return nil, err
	}

	fileReport := &report.FileReport{Path: displayPath(root, path), Findings: []lint.Finding{}}
	var offsets []int
	for _, result := range results {
		fileReport.Findings = append(fileReport.Findings, result.Findings...)
		if result.Rule == lint.RuleMissingTrailingComma {
			offsets = append(offsets, result.Offsets()...)
		}
	}
	sort.SliceStable(fileReport.Findings, func(i, j int) bool {
		return fileReport.Findings[i].Offset < fileReport.Findings[j].Offset
	})

	if fix && len(offsets) > 0 {
		if err := rewriteFile(path, string(content), offsets); err != nil {
			return nil, err
		}
		fileReport.Fixed = true
		rp.logger.Debug("Fixed file", zap.String("path", path), zap.Int("commas", len(offsets)))
	}
	return fileReport, nil
}

func rewriteFile(path, content string, offsets []int) error {
	sort.Ints(offsets)
	fixed, err := fixer.Apply(content, offsets)
	if err != nil {
		return fmt.Errorf("failed to fix %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(fixed), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	return filepath.ToSlash(util.ToRelativePath(root, path))
}
