package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-labeler/internal/config"
	"github.com/a3tai/mcp-pdf-labeler/internal/label"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/oracle"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/variations"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
	"github.com/a3tai/mcp-pdf-labeler/internal/pipeline"
)

func newTestService(t *testing.T, inputDir string) *label.Service {
	t.Helper()
	svc, err := label.NewService(label.Config{
		Corpus:     corpus.New(),
		Oracle:     oracle.NewRulesOracle(0),
		OracleName: "rules",
		Pipeline: pipeline.Options{
			InputDir:  inputDir,
			OutputDir: t.TempDir(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to create label service: %v", err)
	}
	return svc
}

func addLabelArgs(t *testing.T, server *Server, name, description string) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"label":       name,
				"description": description,
			},
		},
	}
	result, err := server.handleLabelAdd(context.Background(), request)
	if err != nil {
		t.Fatalf("failed to seed label %q: %v", name, err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Added label") {
		t.Fatalf("failed to seed label %q: %s", name, text)
	}
}

func TestNewServer(t *testing.T) {
	tempDir := t.TempDir()
	labelService := newTestService(t, tempDir)

	tests := []struct {
		name        string
		config      *config.Config
		expectError bool
	}{
		{
			name: "valid stdio mode config",
			config: &config.Config{
				Mode:           "stdio",
				Host:           "127.0.0.1",
				Port:           8080,
				InputDirectory: tempDir,
				Version:        "1.0.0",
				ServerName:     "test-server",
				LogLevel:       "info",
				MaxFileSize:    1024 * 1024,
			},
			expectError: false,
		},
		{
			name: "valid server mode config",
			config: &config.Config{
				Mode:           "server",
				Host:           "127.0.0.1",
				Port:           8080,
				InputDirectory: tempDir,
				Version:        "1.0.0",
				ServerName:     "test-server",
				LogLevel:       "info",
				MaxFileSize:    1024 * 1024,
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, labelService)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.expectError {
				if server == nil {
					t.Fatal("server should not be nil")
				}
				if server.config != tt.config {
					t.Error("server config not set correctly")
				}
				if server.labelService != labelService {
					t.Error("server labelService not set correctly")
				}
				if server.mcpServer == nil {
					t.Error("mcpServer should be initialized")
				}
			}
		})
	}
}

func TestServer_HandleLabelAdd(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"label":       "First Name",
				"description": "Given name of the filer",
			},
		},
	}

	result, err := server.handleLabelAdd(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, `Added label "first_name"`) {
		t.Errorf("expected add confirmation, got: %s", resultText)
	}
	if !strings.Contains(resultText, "corpus size: 1") {
		t.Errorf("expected corpus size in response, got: %s", resultText)
	}

	// Adding the same label again should be refused, not duplicated.
	result, err = server.handleLabelAdd(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed on duplicate: %v", err)
	}
	resultText = extractTextFromResult(result)
	if !strings.Contains(resultText, "was not added") {
		t.Errorf("expected duplicate to be refused, got: %s", resultText)
	}
}

func TestServer_HandleLabelValidateFormat(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	tests := []struct {
		name     string
		label    string
		expected []string
	}{
		{
			name:     "valid label",
			label:    "first_name",
			expected: []string{`Label "first_name" is valid`},
		},
		{
			name:     "invalid label with normalized form",
			label:    "First Name",
			expected: []string{`Label "First Name" is invalid`, "Normalized form: first_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := mcp.CallToolRequest{
				Params: mcp.CallToolParams{
					Arguments: map[string]interface{}{
						"label": tt.label,
					},
				},
			}

			result, err := server.handleLabelValidateFormat(context.Background(), request)
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}

			resultText := extractTextFromResult(result)
			for _, want := range tt.expected {
				if !strings.Contains(resultText, want) {
					t.Errorf("expected %q in response, got: %s", want, resultText)
				}
			}
		})
	}
}

func TestServer_HandleLabelCheckExists(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	addLabelArgs(t, server, "employer_name", "Employer legal name")
	addLabelArgs(t, server, "employer_2_name", "Second employer legal name")

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"label": "employer_name",
			},
		},
	}

	result, err := server.handleLabelCheckExists(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, `Label "employer_name" exists in the corpus`) {
		t.Errorf("expected existence confirmation, got: %s", resultText)
	}
	if !strings.Contains(resultText, "employer_2_name") {
		t.Errorf("expected numbered variation in response, got: %s", resultText)
	}
	if !strings.Contains(resultText, "Next available variation: employer_1_name") {
		t.Errorf("expected next variation in response, got: %s", resultText)
	}

	// Unknown labels report absence rather than erroring.
	request = mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"label": "spouse_name",
			},
		},
	}
	result, err = server.handleLabelCheckExists(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	resultText = extractTextFromResult(result)
	if !strings.Contains(resultText, `Label "spouse_name" is not in the corpus`) {
		t.Errorf("expected absence message, got: %s", resultText)
	}
}

func TestServer_HandleLabelSearchSimilar(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	// Empty corpus reports zero matches instead of an error.
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"context": "employer name",
			},
		},
	}
	result, err := server.handleLabelSearchSimilar(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "No similar labels found") {
		t.Errorf("expected empty-corpus message, got: %s", resultText)
	}

	addLabelArgs(t, server, "employer_name", "Employer legal name")
	addLabelArgs(t, server, "first_name", "Given name of the filer")
	addLabelArgs(t, server, "city", "City of residence")

	result, err = server.handleLabelSearchSimilar(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText = extractTextFromResult(result)
	if !strings.Contains(resultText, "Found 3 similar label(s)") {
		t.Errorf("expected 3 matches, got: %s", resultText)
	}
	if !strings.Contains(resultText, "1. employer_name") {
		t.Errorf("expected employer_name as top match, got: %s", resultText)
	}
}

func TestServer_HandleLabelCorpusStats(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	addLabelArgs(t, server, "first_name", "Given name of the filer")
	addLabelArgs(t, server, "last_name", "Family name of the filer")

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	result, err := server.handleLabelCorpusStats(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "Total labels: 2") {
		t.Errorf("expected total label count, got: %s", resultText)
	}
	if !strings.Contains(resultText, "last_name") {
		t.Errorf("expected recent labels in response, got: %s", resultText)
	}
}

func TestServer_HandleLabelResolveDocument(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	// Create test file
	testFile := filepath.Join(tempDir, "form.pdf")
	if err := os.WriteFile(testFile, []byte("%PDF-1.4 not really"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": testFile,
			},
		},
	}

	result, err := server.handleLabelResolveDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	// The file is not a real PDF, so the run fails at the unlock stage
	// and the handler reports the failure as tool text.
	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "Labeling failed for") {
		t.Errorf("expected labeling failure message, got: %s", resultText)
	}
	if !strings.Contains(resultText, testFile) {
		t.Errorf("expected input path in response, got: %s", resultText)
	}
}

func TestServer_HandlePDFScanDirectory(t *testing.T) {
	tempDir := t.TempDir()

	// Create test PDF files
	testFiles := []string{"doc1.pdf", "doc2.pdf", "report.txt"}
	for _, filename := range testFiles {
		filePath := filepath.Join(tempDir, filename)
		if err := os.WriteFile(filePath, make([]byte, 1024), 0o644); err != nil {
			t.Fatalf("failed to create test file %s: %v", filename, err)
		}
	}

	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"directory": tempDir,
				"query":     "",
			},
		},
	}

	result, err := server.handlePDFScanDirectory(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if result == nil {
		t.Fatal("result should not be nil")
	}

	// Verify content mentions the found PDF files
	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "Found 2 PDF file(s)") {
		t.Errorf("content should mention 2 PDF files, got: %s", resultText)
	}
}

func TestServer_DefaultDirectory(t *testing.T) {
	tempDir := t.TempDir()

	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	// Create request without directory (should use input directory)
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"query": "",
			},
		},
	}

	result, err := server.handlePDFScanDirectory(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if result == nil {
		t.Fatal("result should not be nil")
	}

	// Verify it used the input directory
	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, tempDir) {
		t.Errorf("content should mention input directory %s, got: %s", tempDir, resultText)
	}
}

func TestServer_HandleLabelerServerInfo(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	result, err := server.handleLabelerServerInfo(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	resultText := extractTextFromResult(result)
	if !strings.Contains(resultText, "test-server v1.0.0") {
		t.Errorf("expected server identity in response, got: %s", resultText)
	}

	toolNames := []string{
		"label_resolve_document",
		"label_search_similar",
		"label_check_exists",
		"label_validate_format",
		"label_add",
		"label_corpus_stats",
		"pdf_scan_directory",
		"labeler_server_info",
	}
	for _, name := range toolNames {
		if !strings.Contains(resultText, name) {
			t.Errorf("expected tool %s in response", name)
		}
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	// Test with missing required arguments
	emptyRequest := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	// Test each handler that requires arguments
	handlers := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"LabelResolveDocument", server.handleLabelResolveDocument},
		{"LabelSearchSimilar", server.handleLabelSearchSimilar},
		{"LabelCheckExists", server.handleLabelCheckExists},
		{"LabelValidateFormat", server.handleLabelValidateFormat},
		{"LabelAdd", server.handleLabelAdd},
	}

	for _, h := range handlers {
		t.Run(h.name, func(t *testing.T) {
			result, err := h.handler(context.Background(), emptyRequest)
			if err != nil {
				t.Errorf("handler should not return error, got: %v", err)
			}
			if result == nil {
				t.Fatal("result should not be nil")
			}

			// Check if it's an error result
			resultText := extractTextFromResult(result)
			if !strings.Contains(resultText, "required") && !strings.Contains(resultText, "missing") &&
				!strings.Contains(resultText, "error") {
				t.Errorf("expected error message for missing arguments, got: %s", resultText)
			}
		})
	}
}

func TestFormatMethods(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &config.Config{
		Mode:           "stdio",
		InputDirectory: tempDir,
		Version:        "1.0.0",
		ServerName:     "test-server",
		MaxFileSize:    1024 * 1024,
	}
	server, err := NewServer(cfg, newTestService(t, tempDir))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	// Test formatScanDirectoryResult
	scanResult := &label.ScanDirectoryResult{
		Files: []pdf.FileInfo{
			{
				Name:         "form.pdf",
				Path:         "/tmp/form.pdf",
				Size:         1024,
				ModifiedTime: "2023-01-01 12:00:00",
			},
		},
		TotalCount:  1,
		Directory:   "/tmp",
		SearchQuery: "form",
	}

	formatted := server.formatScanDirectoryResult(scanResult)
	if !strings.Contains(formatted, "Found 1 PDF file(s)") {
		t.Error("formatted result should contain file count")
	}
	if !strings.Contains(formatted, "form.pdf") {
		t.Error("formatted result should contain filename")
	}

	// Test formatSearchSimilarResult
	searchResult := &label.SearchSimilarResult{
		Context: "employer name",
		Matches: []similarity.Match{
			{Label: "employer_name", Description: "Employer legal name", Score: 3.21},
		},
		TotalCount: 1,
		CorpusSize: 12,
	}

	formatted = server.formatSearchSimilarResult(searchResult)
	if !strings.Contains(formatted, "Found 1 similar label(s)") {
		t.Error("formatted result should contain match count")
	}
	if !strings.Contains(formatted, "employer_name (score: 3.210)") {
		t.Error("formatted result should contain scored match")
	}

	// Test formatResolveDocumentResult for a successful run
	resolveResult := &label.ResolveDocumentResult{
		Input:   "/tmp/form.pdf",
		Output:  "/tmp/form_refined.pdf",
		Sidecar: "/tmp/form_fields.json",
		Fields:  4,
		Report: resolve.Report{
			TotalFields: 4,
			Kept:        1,
			Matched:     2,
			Created:     1,
		},
		Verified: true,
		Duration: "120ms",
	}

	formatted = server.formatResolveDocumentResult(resolveResult)
	if !strings.Contains(formatted, "Successfully labeled PDF") {
		t.Error("formatted result should contain success message")
	}
	if !strings.Contains(formatted, "Kept: 1, Matched: 2, Created: 1") {
		t.Error("formatted result should contain resolution counts")
	}
	if !strings.Contains(formatted, "Verified: true") {
		t.Error("formatted result should contain verification state")
	}

	// Test formatResolveDocumentResult for a failed run
	failedResult := &label.ResolveDocumentResult{
		Input:    "/tmp/broken.pdf",
		Duration: "5ms",
		Error:    "unlock: not a PDF",
	}

	formatted = server.formatResolveDocumentResult(failedResult)
	if !strings.Contains(formatted, "Labeling failed for /tmp/broken.pdf") {
		t.Error("formatted result should contain failure message")
	}
	if !strings.Contains(formatted, "unlock: not a PDF") {
		t.Error("formatted result should contain the stage error")
	}

	// Test formatCheckLabelResult
	checkResult := &label.CheckLabelResult{
		Label:  "employer_name",
		Exists: true,
		Entry:  &corpus.Entry{Label: "employer_name", Description: "Employer legal name"},
		Variations: []variations.Variation{
			{Label: "employer_2_name", Index: 2},
		},
		NextLabel: "employer_1_name",
	}

	formatted = server.formatCheckLabelResult(checkResult)
	if !strings.Contains(formatted, `Label "employer_name" exists`) {
		t.Error("formatted result should contain existence message")
	}
	if !strings.Contains(formatted, "employer_2_name (index 2)") {
		t.Error("formatted result should contain variation")
	}
	if !strings.Contains(formatted, "Next available variation: employer_1_name") {
		t.Error("formatted result should contain next variation")
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	// Try to extract text content
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
