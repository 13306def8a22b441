package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"commas-go/internal/config"
	"commas-go/internal/lint"
	"commas-go/internal/lint/trailingcomma"
	"commas-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProcessor(t *testing.T, cfg *config.Config, store *service.ReportStore) *RepoProcessor {
	t.Helper()
	logger := zap.NewNop()

	tokenizers, err := service.NewDefaultTokenizerRegistry()
	require.NoError(t, err)
	tokenizer, ok := tokenizers.GetTokenizer("python")
	require.True(t, ok)

	detectors := lint.NewDetectorRegistry(logger)
	detectors.Register(trailingcomma.NewDetector(tokenizer, logger))
	return NewRepoProcessor(cfg, detectors, tokenizers, store, logger)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRepoProcessor_ProcessRepository(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/a.py":              "f(\n    a\n)\n",
		"pkg/clean.py":          "f(a)\n",
		"pkg/broken.py":         "def (:\n",
		"pkg/notes.txt":         "f(\n    a\n)\n",
		"migrations/0001.py":    "f(\n    a\n)\n",
		"__pycache__/cached.py": "f(\n    a\n)\n",
		"stubs/types.pyi":       "def g(\n    x: int\n) -> None: ...\n",
	})

	cfg := config.NewDefault()
	repo := &config.Repository{Name: "demo", Path: root, Language: "python", Exclude: []string{"migrations"}}
	processor := newTestProcessor(t, cfg, nil)

	run, err := processor.ProcessRepository(context.Background(), repo, CheckOptions{})
	require.NoError(t, err)

	assert.Equal(t, "demo", run.Repo)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 4, run.FilesChecked)
	require.Len(t, run.Files, 2)
	assert.Equal(t, "pkg/a.py", run.Files[0].Path)
	assert.Equal(t, 8, run.Files[0].Findings[0].Offset)
	assert.Equal(t, "stubs/types.pyi", run.Files[1].Path)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, "pkg/broken.py", run.Errors[0].Path)
	assert.Equal(t, 2, run.FindingCount())

	content, err := os.ReadFile(filepath.Join(root, "pkg/a.py"))
	require.NoError(t, err)
	assert.Equal(t, "f(\n    a\n)\n", string(content))
}

func TestRepoProcessor_Fix(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "x = [\n    1,\n    2\n]\ny = f(\n    x\n)\n",
	})

	processor := newTestProcessor(t, config.NewDefault(), nil)
	repo := &config.Repository{Name: "demo", Path: root, Language: "python"}

	run, err := processor.ProcessRepository(context.Background(), repo, CheckOptions{Fix: true})
	require.NoError(t, err)
	require.Len(t, run.Files, 1)
	assert.True(t, run.Files[0].Fixed)
	assert.Len(t, run.Files[0].Findings, 2)

	content, err := os.ReadFile(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = [\n    1,\n    2,\n]\ny = f(\n    x,\n)\n", string(content))

	again, err := processor.ProcessRepository(context.Background(), repo, CheckOptions{})
	require.NoError(t, err)
	assert.Empty(t, again.Files)
}

func TestRepoProcessor_UnsupportedLanguage(t *testing.T) {
	processor := newTestProcessor(t, config.NewDefault(), nil)

	_, err := processor.ProcessRepository(context.Background(),
		&config.Repository{Name: "web", Path: t.TempDir(), Language: "typescript"}, CheckOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestRepoProcessor_CheckPaths(t *testing.T) {
	root := writeTree(t, map[string]string{
		"dir/a.py": "f(\n    a\n)\n",
		"script":   "g(\n    b\n)\n",
		"dir/b.md": "nothing",
	})

	processor := newTestProcessor(t, config.NewDefault(), nil)
	run, err := processor.CheckPaths(context.Background(),
		[]string{filepath.Join(root, "dir"), filepath.Join(root, "script")}, CheckOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, run.FilesChecked)
	assert.Equal(t, 2, run.FindingCount())
	assert.Equal(t, filepath.Join(root, "dir", "a.py"), run.Files[0].Path)

	_, err = processor.CheckPaths(context.Background(), []string{filepath.Join(root, "missing.py")}, CheckOptions{})
	assert.Error(t, err)
}

func TestRepoProcessor_CheckPathsOverlapping(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/a.py": "f(\n    a\n)\n",
	})

	processor := newTestProcessor(t, config.NewDefault(), nil)
	run, err := processor.CheckPaths(context.Background(), []string{
		filepath.Join(root, "pkg"),
		filepath.Join(root, "pkg", "a.py"),
		filepath.Join(root, "pkg", ".", "a.py"),
	}, CheckOptions{Fix: true})
	require.NoError(t, err)

	assert.Equal(t, 1, run.FilesChecked)
	assert.Equal(t, 1, run.FindingCount())

	content, err := os.ReadFile(filepath.Join(root, "pkg", "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "f(\n    a,\n)\n", string(content))
}

func TestRepoProcessor_SaveFailureKeepsRun(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.py": "f(\n    a\n)\n"})

	cfg := config.NewDefault()
	cfg.Source.Repositories = []config.Repository{{Name: "demo", Path: root, Language: "python"}}

	db, err := service.NewGraphDatabase(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	processor := newTestProcessor(t, cfg, service.NewReportStore(db, zap.NewNop()))
	run, err := processor.ProcessRepository(ctx, &cfg.Source.Repositories[0], CheckOptions{})
	assert.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, run.FindingCount())
	require.Len(t, run.Warnings, 1)
	assert.Contains(t, run.Warnings[0], "not saved")

	runs, err := processor.ProcessAllRepositories(ctx, CheckOptions{})
	assert.Error(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Warnings)
}

func TestRepoProcessor_ProcessAllRepositoriesSavesRuns(t *testing.T) {
	ctx := context.Background()
	root := writeTree(t, map[string]string{"a.py": "f(\n    a\n)\n"})

	cfg := config.NewDefault()
	cfg.Source.Repositories = []config.Repository{
		{Name: "demo", Path: root, Language: "python"},
		{Name: "off", Path: root, Language: "python", Disabled: true},
	}

	db, err := service.NewGraphDatabase(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer db.Close(ctx)
	store := service.NewReportStore(db, zap.NewNop())

	processor := newTestProcessor(t, cfg, store)
	runs, err := processor.ProcessAllRepositories(ctx, CheckOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	latest, err := store.LatestRun(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, runs[0].RunID, latest.RunID)
	assert.Equal(t, 1, latest.Findings)

	_, err = store.LatestRun(ctx, "off")
	assert.ErrorIs(t, err, service.ErrRunNotFound)
}
