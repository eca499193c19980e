package label

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-labeler/internal/descriptions"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
)

// pendingPreviewLimit caps how many waiting documents server info
// lists inline.
const pendingPreviewLimit = 25

// ServerInfo returns server configuration, the available tools, and a
// preview of input documents that have no refined output yet.
func (s *Service) ServerInfo(req ServerInfoRequest, serverName, version string) (*ServerInfoResult, error) {
	opts := s.runner.Options()

	result := &ServerInfoResult{
		ServerName:      serverName,
		Version:         version,
		InputDirectory:  opts.InputDir,
		OutputDirectory: opts.OutputDir,
		MaxFileSize:     opts.MaxFileSize,
		CorpusSize:      s.corpus.Len(),
		OracleProvider:  s.oracleName,
		AvailableTools:  s.availableTools(),
		UsageGuidance:   s.usageGuidance(),
	}

	if opts.InputDir != "" {
		pending, err := s.scanner.PendingDocuments(opts.InputDir, opts.OutputDir)
		if err == nil {
			if len(pending) > pendingPreviewLimit {
				pending = pending[:pendingPreviewLimit]
				result.PendingTruncated = true
			}
			result.PendingDocuments = pending
		}
	}
	if result.PendingDocuments == nil {
		result.PendingDocuments = []pdf.FileInfo{}
	}

	return result, nil
}

// availableTools returns the list of available tools
func (s *Service) availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "label_resolve_document",
			Description: descriptions.GetToolDescription("label_resolve_document"),
			Usage: "Use this tool to label one PDF end to end: unlock, extract fields, " +
				"resolve labels against the corpus, and write the refined copy plus a JSON sidecar.",
			Parameters: "path (required): Full path to the input PDF (must be inside the configured input directory)",
		},
		{
			Name:        "label_search_similar",
			Description: descriptions.GetToolDescription("label_search_similar"),
			Usage:       "Use this tool to see which existing labels best match a field's surrounding text before deciding on a name.",
			Parameters:  "context (required): Field context text to rank against, top_k (optional): number of matches to return",
		},
		{
			Name:        "label_check_exists",
			Description: descriptions.GetToolDescription("label_check_exists"),
			Usage:       "Use this tool to check whether a label is already taken and what numbered variations of it exist.",
			Parameters:  "label (required): Label to look up",
		},
		{
			Name:        "label_validate_format",
			Description: descriptions.GetToolDescription("label_validate_format"),
			Usage:       "Use this tool to check label syntax before adding it. Returns the normalized form the corpus would accept.",
			Parameters:  "label (required): Label to validate, raw_name (optional): original field name, used for checkbox suffix hints",
		},
		{
			Name:        "label_add",
			Description: descriptions.GetToolDescription("label_add"),
			Usage:       "Use this tool to append a new canonical label to the corpus. Adding an existing label is reported, not failed.",
			Parameters:  "label (required): Label to add, description (optional): what the label means, context (optional): sample field context",
		},
		{
			Name:        "label_corpus_stats",
			Description: descriptions.GetToolDescription("label_corpus_stats"),
			Usage:       "Use this tool to see how many labels the corpus holds and which were added most recently.",
			Parameters:  "recent (optional): how many recent labels to include",
		},
		{
			Name:        "pdf_scan_directory",
			Description: descriptions.GetToolDescription("pdf_scan_directory"),
			Usage: "Use this tool to find labelable PDF files. Refined outputs and unlocked " +
				"intermediates are excluded automatically. Supports fuzzy search by filename.",
			Parameters: "directory (optional): Directory to scan (defaults to the input directory), query (optional): fuzzy filename filter",
		},
		{
			Name:        "labeler_server_info",
			Description: descriptions.GetToolDescription("labeler_server_info"),
			Usage:       "Use this tool to get server capabilities, configured directories, corpus size, and pending documents.",
			Parameters:  "No parameters required",
		},
	}
}

// usageGuidance returns comprehensive usage guidance
func (s *Service) usageGuidance() string {
	opts := s.runner.Options()
	maxFileSizeMB := opts.MaxFileSize / (1024 * 1024)

	return fmt.Sprintf(`PDF Labeler MCP Server Usage Guide:

1. START WITH DISCOVERY:
   - Use 'pdf_scan_directory' to find input PDFs that still need labeling
   - Use 'labeler_server_info' to see directories, corpus size, and pending documents

2. LABEL DOCUMENTS:
   - Use 'label_resolve_document' with a PDF path to run the full sequence:
     unlock, field extraction, label resolution, rename, verify
   - The refined copy is written next to the original name with a '_refined.pdf' suffix
   - A '<name>_fields.json' sidecar records every extracted field

3. WORK WITH THE CORPUS DIRECTLY:
   - Use 'label_search_similar' to rank existing labels against field context text
   - Use 'label_check_exists' before inventing a new label; it also reports
     numbered variations like 'employer_2_name'
   - Use 'label_validate_format' to check lower_snake_case syntax and see the
     normalized form
   - Use 'label_add' to append a new canonical label
   - Use 'label_corpus_stats' for counts and recent additions

LABEL RULES:
- Labels are lower_snake_case, %d to %d characters
- Labels are append-only and unique; repeated fields get numbered variations
- Checkbox fields conventionally end in '_checkbox'

IMPORTANT NOTES:
- Input PDFs must live inside the configured input directory
- The server can handle files up to %dMB
- Each document is processed independently; a failure in one never blocks others
- Verification re-reads the refined PDF and reports missing or duplicated labels`,
		corpus.MinLabelLength, corpus.MaxLabelLength, maxFileSizeMB)
}
