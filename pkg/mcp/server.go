package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"commas-go/internal/config"
	"commas-go/internal/controller"
	"commas-go/internal/lint/trailingcomma"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// CommaServer exposes the trailing comma checks as MCP tools
type CommaServer struct {
	server    *mcp.Server
	finder    *trailingcomma.Finder
	processor *controller.RepoProcessor
	config    *config.Config
	logger    *zap.Logger
	handler   *mcp.StreamableHTTPHandler
}

type SourceParams struct {
	Source   string `json:"source" jsonschema:"the Python source text to analyze"`
	Filename string `json:"filename,omitempty" jsonschema:"name of the file, used in error messages"`
}

type RepositoryParams struct {
	RepoName    string `json:"repo_name" jsonschema:"the name of a configured repository"`
	Fix         bool   `json:"fix,omitempty" jsonschema:"insert the missing commas and rewrite the files"`
	ChangedOnly bool   `json:"changed_only,omitempty" jsonschema:"only check files modified relative to git HEAD"`
}

func NewCommaServer(finder *trailingcomma.Finder, processor *controller.RepoProcessor, cfg *config.Config, logger *zap.Logger) *CommaServer {
	server := &CommaServer{
		finder:    finder,
		processor: processor,
		config:    cfg,
		logger:    logger,
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "TrailingCommas",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "findMissingTrailingCommas",
		Description: "Find the positions in Python source where a trailing comma is missing in a multi-line construct whose closing bracket is on its own line. Returns line:column pairs and character offsets",
	}, server.handleFind)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "fixTrailingCommas",
		Description: "Insert the missing trailing commas into Python source and return the rewritten text",
	}, server.handleFix)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "checkRepository",
		Description: "Check every Python file of a configured repository for missing trailing commas, optionally fixing them",
	}, server.handleCheckRepository)

	server.handler = mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	server.server = mcpServer
	return server
}

func (s *CommaServer) handleFind(ctx context.Context, req *mcp.CallToolRequest, args SourceParams) (*mcp.CallToolResult, any, error) {
	filename := defaultFilename(args.Filename)
	s.logger.Info("Handling findMissingTrailingCommas request", zap.String("filename", filename))

	analysis, err := s.finder.Find(ctx, []byte(args.Source), filename)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to analyze %s: %v", filename, err)), nil, nil
	}

	if analysis.Len() == 0 {
		return textResult("No missing trailing commas."), nil, nil
	}

	var sb strings.Builder
	offsets := analysis.InsertionOffsets()
	fmt.Fprintf(&sb, "%d missing trailing comma(s):\n", analysis.Len())
	for i, coord := range analysis.InsertionCoordinates() {
		fmt.Fprintf(&sb, "%s:%d:%d (offset %d)\n", filename, coord.Line, coord.Column, offsets[i])
	}
	return textResult(sb.String()), nil, nil
}

func (s *CommaServer) handleFix(ctx context.Context, req *mcp.CallToolRequest, args SourceParams) (*mcp.CallToolResult, any, error) {
	filename := defaultFilename(args.Filename)
	s.logger.Info("Handling fixTrailingCommas request", zap.String("filename", filename))

	fixed, offsets, err := controller.FixSource(ctx, s.finder, args.Source, filename)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to fix %s: %v", filename, err)), nil, nil
	}

	s.logger.Debug("Inserted trailing commas", zap.String("filename", filename), zap.Int("count", len(offsets)))
	return textResult(fixed), nil, nil
}

func (s *CommaServer) handleCheckRepository(ctx context.Context, req *mcp.CallToolRequest, args RepositoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.Info("Handling checkRepository request", zap.String("repo_name", args.RepoName), zap.Bool("fix", args.Fix))

	repo, err := s.config.GetRepository(args.RepoName)
	if err != nil {
		s.logger.Error("Repository not found", zap.String("repo_name", args.RepoName), zap.Error(err))
		return errorResult(fmt.Sprintf("Repository not found: %s", args.RepoName)), nil, nil
	}

	run, err := s.processor.ProcessRepository(ctx, repo, controller.CheckOptions{
		Fix:         args.Fix || s.config.App.Fix,
		ChangedOnly: args.ChangedOnly,
	})
	if err != nil {
		if run == nil {
			return errorResult(fmt.Sprintf("Failed to check repository %s: %v", args.RepoName, err)), nil, nil
		}
		s.logger.Warn("Repository checked but run report not saved", zap.String("repo_name", args.RepoName), zap.Error(err))
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode run report: %w", err)
	}
	return textResult(string(data)), nil, nil
}

// SetupHTTPRoutes mounts the streamable HTTP transport under /mcp
func (s *CommaServer) SetupHTTPRoutes(router *gin.Engine) {
	router.Any("/mcp", gin.WrapH(s.handler))
}

// Server returns the underlying MCP server, for in-process transports
func (s *CommaServer) Server() *mcp.Server {
	return s.server
}

func defaultFilename(filename string) string {
	if filename == "" {
		return "<source>"
	}
	return filename
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
