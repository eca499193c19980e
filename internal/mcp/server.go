package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/a3tai/mcp-pdf-labeler/internal/config"
	"github.com/a3tai/mcp-pdf-labeler/internal/label"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// shutdownTimeout bounds how long a server-mode shutdown may take once
// the run context is cancelled.
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config       *config.Config
	labelService *label.Service
	mcpServer    *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, labelService *label.Service) (*Server, error) {
	if labelService == nil {
		return nil, fmt.Errorf("labelService cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:       cfg,
		labelService: labelService,
		mcpServer:    mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Register label resolve document tool
	labelResolveDocumentTool := mcp.NewTool(
		"label_resolve_document",
		mcp.WithDescription("Unlock a PDF form, resolve every field name against the label corpus, and write a refined copy"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(labelResolveDocumentTool, s.handleLabelResolveDocument)

	// Register label search similar tool
	labelSearchSimilarTool := mcp.NewTool(
		"label_search_similar",
		mcp.WithDescription("Search the label corpus for labels similar to field context text"),
		mcp.WithString("context",
			mcp.Required(),
			mcp.Description("Field context text to match against the corpus"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of matches to return (default 8)"),
		),
	)
	s.mcpServer.AddTool(labelSearchSimilarTool, s.handleLabelSearchSimilar)

	// Register label check exists tool
	labelCheckExistsTool := mcp.NewTool(
		"label_check_exists",
		mcp.WithDescription("Check whether a label exists in the corpus and list its numbered variations"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Label to look up"),
		),
	)
	s.mcpServer.AddTool(labelCheckExistsTool, s.handleLabelCheckExists)

	// Register label validate format tool
	labelValidateFormatTool := mcp.NewTool(
		"label_validate_format",
		mcp.WithDescription("Validate label formatting rules and suggest a normalized form"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Label to validate"),
		),
		mcp.WithString("raw_name",
			mcp.Description("Original field name, used for checkbox suffix detection"),
		),
	)
	s.mcpServer.AddTool(labelValidateFormatTool, s.handleLabelValidateFormat)

	// Register label add tool
	labelAddTool := mcp.NewTool(
		"label_add",
		mcp.WithDescription("Add a new label to the corpus"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Label to add"),
		),
		mcp.WithString("description",
			mcp.Description("Optional human-readable description of the label"),
		),
		mcp.WithString("context",
			mcp.Description("Optional field context the label was derived from"),
		),
	)
	s.mcpServer.AddTool(labelAddTool, s.handleLabelAdd)

	// Register label corpus stats tool
	labelCorpusStatsTool := mcp.NewTool(
		"label_corpus_stats",
		mcp.WithDescription("Get statistics about the label corpus"),
		mcp.WithNumber("recent",
			mcp.Description("How many of the most recently added labels to include"),
		),
	)
	s.mcpServer.AddTool(labelCorpusStatsTool, s.handleLabelCorpusStats)

	// Register PDF scan directory tool
	pdfScanDirectoryTool := mcp.NewTool(
		"pdf_scan_directory",
		mcp.WithDescription("Scan a directory for PDF files awaiting labeling, with optional fuzzy search"),
		mcp.WithString("directory",
			mcp.Description("Directory path to scan (uses input directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
	)
	s.mcpServer.AddTool(pdfScanDirectoryTool, s.handlePDFScanDirectory)

	// Register labeler server info tool
	labelerServerInfoTool := mcp.NewTool(
		"labeler_server_info",
		mcp.WithDescription("Get server information, available tools, pending documents, and usage guidance"),
	)
	s.mcpServer.AddTool(labelerServerInfoTool, s.handleLabelerServerInfo)
}

// Handler functions
func (s *Server) handleLabelResolveDocument(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := label.ResolveDocumentRequest{Path: path}
	result, err := s.labelService.ResolveDocument(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatResolveDocumentResult(result)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelSearchSimilar(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	contextText, err := request.RequireString("context")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	topK := 0
	if v, ok := request.GetArguments()["top_k"].(float64); ok {
		topK = int(v)
	}

	req := label.SearchSimilarRequest{
		Context: contextText,
		TopK:    topK,
	}

	result, err := s.labelService.SearchSimilar(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No similar labels found for: %s (corpus size: %d)",
			result.Context, result.CorpusSize)
	} else {
		responseText = s.formatSearchSimilarResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelCheckExists(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := label.CheckLabelRequest{Label: name}
	result, err := s.labelService.CheckLabel(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatCheckLabelResult(result)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelValidateFormat(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	name, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rawName := ""
	if v, ok := request.GetArguments()["raw_name"].(string); ok {
		rawName = v
	}

	req := label.ValidateFormatRequest{
		Label:   name,
		RawName: rawName,
	}

	result, err := s.labelService.ValidateFormat(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("Label %q is valid", result.Label)
	} else {
		responseText = fmt.Sprintf("Label %q is invalid: %s", result.Label, result.Problem)
	}
	if result.Normalized != "" && result.Normalized != result.Label {
		responseText += fmt.Sprintf("\nNormalized form: %s", result.Normalized)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()

	description := ""
	if v, ok := args["description"].(string); ok {
		description = v
	}
	contextText := ""
	if v, ok := args["context"].(string); ok {
		contextText = v
	}

	req := label.AddLabelRequest{
		Label:       name,
		Description: description,
		Context:     contextText,
	}

	result, err := s.labelService.AddLabel(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Added {
		responseText = fmt.Sprintf("Added label %q to the corpus (corpus size: %d)",
			result.Label, result.CorpusSize)
	} else {
		responseText = fmt.Sprintf("Label %q was not added: %s", result.Label, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelCorpusStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recent := 0
	if v, ok := request.GetArguments()["recent"].(float64); ok {
		recent = int(v)
	}

	req := label.CorpusStatsRequest{Recent: recent}
	result, err := s.labelService.CorpusStats(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatCorpusStatsResult(result)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFScanDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	directory := "" // empty means the configured input directory
	if dir, ok := args["directory"].(string); ok {
		directory = dir
	}

	query := ""
	if q, ok := args["query"].(string); ok {
		query = q
	}

	req := label.ScanDirectoryRequest{
		Directory: directory,
		Query:     query,
	}

	result, err := s.labelService.ScanDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = s.formatScanDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLabelerServerInfo(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	req := label.ServerInfoRequest{}
	result, err := s.labelService.ServerInfo(req, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatServerInfoResult(result)
	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatResolveDocumentResult(result *label.ResolveDocumentResult) string {
	if result.Error != "" {
		text := fmt.Sprintf("Labeling failed for %s: %s\n", result.Input, result.Error)
		text += fmt.Sprintf("Duration: %s\n", result.Duration)
		return text
	}

	text := fmt.Sprintf("Successfully labeled PDF: %s\n", result.Input)
	text += fmt.Sprintf("Output: %s\n", result.Output)
	text += fmt.Sprintf("Sidecar: %s\n", result.Sidecar)
	text += fmt.Sprintf("Fields: %d\n", result.Fields)
	text += fmt.Sprintf("Kept: %d, Matched: %d, Created: %d, Failed: %d\n",
		result.Report.Kept, result.Report.Matched, result.Report.Created, result.Report.Failed)
	text += fmt.Sprintf("Added to corpus: %d\n", result.Report.AddedToCorpus)
	text += fmt.Sprintf("Verified: %t\n", result.Verified)
	text += fmt.Sprintf("Duration: %s\n", result.Duration)

	if len(result.Report.Failures) > 0 {
		text += "\nField failures:\n"
		for _, failure := range result.Report.Failures {
			text += fmt.Sprintf("  %s: %s\n", failure.FieldID, failure.Error)
		}
	}
	if result.Report.Warning != "" {
		text += fmt.Sprintf("\n⚠️  WARNING: %s\n", result.Report.Warning)
	}

	return text
}

func (s *Server) formatSearchSimilarResult(result *label.SearchSimilarResult) string {
	text := fmt.Sprintf("Found %d similar label(s) for: %s\n", result.TotalCount, result.Context)
	text += fmt.Sprintf("Corpus size: %d\n", result.CorpusSize)
	text += "\nMatches:\n"

	for i, match := range result.Matches {
		text += fmt.Sprintf("%d. %s (score: %.3f)\n", i+1, match.Label, match.Score)
		if match.Description != "" {
			text += fmt.Sprintf("   Description: %s\n", match.Description)
		}
	}

	return text
}

func (s *Server) formatCheckLabelResult(result *label.CheckLabelResult) string {
	if !result.Exists {
		return fmt.Sprintf("Label %q is not in the corpus", result.Label)
	}

	text := fmt.Sprintf("Label %q exists in the corpus\n", result.Label)
	if result.Entry != nil && result.Entry.Description != "" {
		text += fmt.Sprintf("Description: %s\n", result.Entry.Description)
	}

	if len(result.Variations) > 0 {
		text += "\nNumbered variations:\n"
		for _, variation := range result.Variations {
			text += fmt.Sprintf("  %s (index %d)\n", variation.Label, variation.Index)
		}
	}
	if result.NextLabel != "" {
		text += fmt.Sprintf("\nNext available variation: %s\n", result.NextLabel)
	}

	return text
}

func (s *Server) formatCorpusStatsResult(result *label.CorpusStatsResult) string {
	text := "Label Corpus Statistics\n"
	text += fmt.Sprintf("Total labels: %d\n", result.TotalLabels)
	if result.StorePath != "" {
		text += fmt.Sprintf("Store: %s (%s)\n", result.StorePath, result.StoreDriver)
	}

	if len(result.RecentLabels) > 0 {
		text += "\nMost recent labels:\n"
		for i, name := range result.RecentLabels {
			text += fmt.Sprintf("%d. %s\n", i+1, name)
		}
	}

	return text
}

func (s *Server) formatScanDirectoryResult(result *label.ScanDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatServerInfoResult(result *label.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Input Directory: %s\n", result.InputDirectory)
	text += fmt.Sprintf("📁 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🏷️  Corpus: %d labels\n", result.CorpusSize)
	if result.OracleProvider != "" {
		text += fmt.Sprintf("🔮 Oracle: %s\n", result.OracleProvider)
	}
	text += "\n"

	// Pending documents
	if len(result.PendingDocuments) > 0 {
		text += fmt.Sprintf("📂 Pending Documents (%d listed):\n", len(result.PendingDocuments))
		for i, file := range result.PendingDocuments {
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		if result.PendingTruncated {
			text += "   ... more files not shown\n"
		}
		text += "\n"
	} else {
		text += "📂 Pending Documents: no unprocessed PDF files in input directory\n\n"
	}

	// Available tools
	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	// Usage guidance
	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF labeler MCP server in stdio mode")
		log.Printf("Input directory: %s", s.config.InputDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server over streamable HTTP until the context
// is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(s.config.Address())
	}()

	if s.config.IsDebug() {
		log.Printf("Starting PDF labeler MCP server on %s", s.config.Address())
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	}
}
