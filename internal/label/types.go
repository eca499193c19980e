package label

import (
	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/resolve"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/similarity"
	"github.com/a3tai/mcp-pdf-labeler/internal/label/variations"
	"github.com/a3tai/mcp-pdf-labeler/internal/pdf"
)

// Request Types

// ResolveDocumentRequest represents a request to run one PDF through
// the full labeling sequence
type ResolveDocumentRequest struct {
	Path string `json:"path"`
}

// ResolveFieldRequest represents a request to resolve a single form
// field against the corpus without touching any PDF
type ResolveFieldRequest struct {
	FieldID  string `json:"field_id,omitempty"`
	RawName  string `json:"raw_name"`
	Type     string `json:"field_type,omitempty"`
	Context  string `json:"context,omitempty"`
	Page     int    `json:"page,omitempty"`
	Position string `json:"position,omitempty"`
}

// SearchSimilarRequest represents a request to rank corpus labels
// against field context text
type SearchSimilarRequest struct {
	Context string `json:"context"`
	TopK    int    `json:"top_k,omitempty"`
}

// CheckLabelRequest represents a request to check whether a label
// exists in the corpus
type CheckLabelRequest struct {
	Label string `json:"label"`
}

// ValidateFormatRequest represents a request to validate label syntax
type ValidateFormatRequest struct {
	Label   string `json:"label"`
	RawName string `json:"raw_name,omitempty"`
}

// AddLabelRequest represents a request to append a new label to the
// corpus
type AddLabelRequest struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Context     string `json:"context,omitempty"`
}

// CorpusStatsRequest represents a request for corpus statistics
type CorpusStatsRequest struct {
	Recent int `json:"recent,omitempty"`
}

// ScanDirectoryRequest represents a request to list input PDFs
type ScanDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// ServerInfoRequest represents a request for server information and
// capabilities
type ServerInfoRequest struct {
	// No parameters needed for server info
}

// Response Types

// ResolveDocumentResult represents the outcome of one document run
type ResolveDocumentResult struct {
	Input    string         `json:"input"`
	Output   string         `json:"output,omitempty"`
	Sidecar  string         `json:"sidecar,omitempty"`
	Fields   int            `json:"fields"`
	Report   resolve.Report `json:"report"`
	Verified bool           `json:"verified"`
	Duration string         `json:"duration"`
	Error    string         `json:"error,omitempty"`
}

// ResolveFieldResult represents the committed label for one field
type ResolveFieldResult struct {
	Label      string `json:"label"`
	Action     string `json:"action"`
	Confidence int    `json:"confidence"`
	Created    bool   `json:"created"`
	Attempts   int    `json:"attempts"`
	Reasoning  string `json:"reasoning,omitempty"`
}

// SearchSimilarResult represents ranked corpus matches for a context
type SearchSimilarResult struct {
	Context    string             `json:"context"`
	Matches    []similarity.Match `json:"matches"`
	TotalCount int                `json:"total_count"`
	CorpusSize int                `json:"corpus_size"`
}

// CheckLabelResult represents the corpus state for one label
type CheckLabelResult struct {
	Label      string                 `json:"label"`
	Exists     bool                   `json:"exists"`
	Entry      *corpus.Entry          `json:"entry,omitempty"`
	Variations []variations.Variation `json:"variations,omitempty"`
	NextLabel  string                 `json:"next_label,omitempty"`
}

// ValidateFormatResult represents the result of a label syntax check
type ValidateFormatResult struct {
	Label      string `json:"label"`
	Valid      bool   `json:"valid"`
	Problem    string `json:"problem,omitempty"`
	Normalized string `json:"normalized"`
}

// AddLabelResult represents the result of a corpus append
type AddLabelResult struct {
	Label      string `json:"label"`
	Added      bool   `json:"added"`
	CorpusSize int    `json:"corpus_size"`
	Message    string `json:"message,omitempty"`
}

// CorpusStatsResult represents corpus statistics
type CorpusStatsResult struct {
	TotalLabels  int      `json:"total_labels"`
	StorePath    string   `json:"store_path,omitempty"`
	StoreDriver  string   `json:"store_driver,omitempty"`
	RecentLabels []string `json:"recent_labels,omitempty"`
}

// ScanDirectoryResult represents the input PDFs found by a scan
type ScanDirectoryResult struct {
	Files       []pdf.FileInfo `json:"files"`
	TotalCount  int            `json:"total_count"`
	Directory   string         `json:"directory"`
	SearchQuery string         `json:"search_query,omitempty"`
}

// ToolInfo represents information about an available MCP tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName       string         `json:"server_name"`
	Version          string         `json:"version"`
	InputDirectory   string         `json:"input_directory"`
	OutputDirectory  string         `json:"output_directory"`
	MaxFileSize      int64          `json:"max_file_size"`
	CorpusSize       int            `json:"corpus_size"`
	OracleProvider   string         `json:"oracle_provider,omitempty"`
	AvailableTools   []ToolInfo     `json:"available_tools"`
	PendingDocuments []pdf.FileInfo `json:"pending_documents"`
	PendingTruncated bool           `json:"pending_truncated,omitempty"`
	UsageGuidance    string         `json:"usage_guidance"`
}
