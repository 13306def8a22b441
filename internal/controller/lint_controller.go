package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"commas-go/internal/config"
	"commas-go/internal/fixer"
	"commas-go/internal/lint/trailingcomma"
	"commas-go/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LintController handles the trailing comma HTTP endpoints
type LintController struct {
	finder    *trailingcomma.Finder
	processor *RepoProcessor
	store     *service.ReportStore
	config    *config.Config
	logger    *zap.Logger
}

func NewLintController(
	finder *trailingcomma.Finder,
	processor *RepoProcessor,
	store *service.ReportStore,
	config *config.Config,
	logger *zap.Logger,
) *LintController {
	return &LintController{
		finder:    finder,
		processor: processor,
		store:     store,
		config:    config,
		logger:    logger,
	}
}

// SourceRequest carries one Python source text
type SourceRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename"` // used in error messages only
}

type CheckResponse struct {
	Filename    string                    `json:"filename"`
	Offsets     []int                     `json:"offsets"`
	Coordinates []trailingcomma.Coordinate `json:"coordinates"`
	Count       int                       `json:"count"`
}

type FixResponse struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
	Offsets  []int  `json:"offsets"`
	Count    int    `json:"count"`
}

// CheckRepoRequest selects a configured repository
type CheckRepoRequest struct {
	RepoName    string `json:"repo_name" binding:"required"`
	Fix         bool   `json:"fix"`
	ChangedOnly bool   `json:"changed_only"`
}

// Check handles POST /api/v1/check
func (lc *LintController) Check(c *gin.Context) {
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Filename == "" {
		req.Filename = "<source>"
	}

	analysis, err := lc.finder.Find(c.Request.Context(), []byte(req.Source), req.Filename)
	if err != nil {
		lc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckResponse{
		Filename:    req.Filename,
		Offsets:     analysis.InsertionOffsets(),
		Coordinates: analysis.InsertionCoordinates(),
		Count:       analysis.Len(),
	})
}

// Fix handles POST /api/v1/fix
func (lc *LintController) Fix(c *gin.Context) {
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Filename == "" {
		req.Filename = "<source>"
	}

	fixed, offsets, err := FixSource(c.Request.Context(), lc.finder, req.Source, req.Filename)
	if err != nil {
		lc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, FixResponse{
		Filename: req.Filename,
		Source:   fixed,
		Offsets:  offsets,
		Count:    len(offsets),
	})
}

// CheckRepo handles POST /api/v1/checkRepo
func (lc *LintController) CheckRepo(c *gin.Context) {
	var req CheckRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	repo, err := lc.config.GetRepository(req.RepoName)
	if err != nil {
		lc.respondError(c, err)
		return
	}

	lc.logger.Info("Checking repository",
		zap.String("repo", repo.Name),
		zap.Bool("fix", req.Fix),
		zap.Bool("changed_only", req.ChangedOnly))

	run, err := lc.processor.ProcessRepository(c.Request.Context(), repo, CheckOptions{
		Fix:         req.Fix || lc.config.App.Fix,
		ChangedOnly: req.ChangedOnly,
	})
	if err != nil {
		if run == nil {
			lc.respondError(c, err)
			return
		}
		lc.logger.Warn("Repository checked but run report not saved",
			zap.String("repo", repo.Name),
			zap.String("run_id", run.RunID),
			zap.Error(err))
	}
	c.JSON(http.StatusOK, run)
}

// ListRuns handles GET /api/v1/runs/:repo
func (lc *LintController) ListRuns(c *gin.Context) {
	if lc.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run reports are not persisted"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	runs, err := lc.store.ListRuns(c.Request.Context(), c.Param("repo"), limit)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// LatestRun handles GET /api/v1/runs/:repo/latest
func (lc *LintController) LatestRun(c *gin.Context) {
	if lc.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run reports are not persisted"})
		return
	}

	run, err := lc.store.LatestRun(c.Request.Context(), c.Param("repo"))
	if err != nil {
		lc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// RunFindings handles GET /api/v1/findings/:runId
func (lc *LintController) RunFindings(c *gin.Context) {
	if lc.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run reports are not persisted"})
		return
	}

	findings, err := lc.store.FindingsForRun(c.Request.Context(), c.Param("runId"))
	if err != nil {
		lc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("runId"), "findings": findings})
}

func (lc *LintController) respondError(c *gin.Context, err error) {
	var parseErr *service.ParseError
	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"line":   parseErr.Line,
			"column": parseErr.Column,
		})
	case errors.Is(err, config.ErrRepositoryNotFound), errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		lc.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// FixSource finds the missing commas of a source text and inserts them
func FixSource(ctx context.Context, finder *trailingcomma.Finder, source, filename string) (string, []int, error) {
	analysis, err := finder.Find(ctx, []byte(source), filename)
	if err != nil {
		return "", nil, err
	}

	offsets := analysis.InsertionOffsets()
	fixed, err := fixer.Apply(source, offsets)
	if err != nil {
		return "", nil, err
	}
	return fixed, offsets, nil
}
