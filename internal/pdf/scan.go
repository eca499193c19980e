package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Suffixes of documents a labeling pass writes. Neither is ever an
// input, even when input and output directories are the same.
const (
	refinedSuffix  = "_refined.pdf"
	unlockedSuffix = "_unlocked.pdf"
)

// FileInfo describes a discovered PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// ScanResult contains the outcome of a directory scan
type ScanResult struct {
	Files      []FileInfo `json:"files"`
	TotalCount int        `json:"total_count"`
	Directory  string     `json:"directory"`
	Query      string     `json:"query,omitempty"`
}

// Scanner discovers input PDFs for labeling runs
type Scanner struct {
	maxFileSize int64
	validator   *Validator
}

// NewScanner creates a new directory scanner with the specified constraints
func NewScanner(maxFileSize int64) *Scanner {
	return &Scanner{
		maxFileSize: maxFileSize,
		validator:   NewValidator(maxFileSize),
	}
}

// IsRefined reports whether a filename is a relabeled output document
func IsRefined(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), refinedSuffix)
}

// isArtifact reports whether a filename is any intermediate or output
// of a labeling pass
func isArtifact(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, refinedSuffix) || strings.HasSuffix(lower, unlockedSuffix)
}

// ScanDirectory lists the input PDFs under directory in walk order.
// Relabeled outputs are never inputs and are skipped, as are files the
// validator rejects. A non-empty query filters by fuzzy filename match.
func (s *Scanner) ScanDirectory(directory, query string) (*ScanResult, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	var pdfFiles []FileInfo
	normQuery := strings.ToLower(strings.TrimSpace(query))

	err = filepath.WalkDir(absDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if a single entry fails
			return nil
		}

		withinDir, err := s.isPathWithinDirectory(path, absDirectory)
		if err != nil || !withinDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			return nil
		}

		if !isPDFFile(d.Name()) || isArtifact(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			// Skip invalid files but continue processing
			return nil
		}

		if normQuery != "" && !matchesQuery(d.Name(), normQuery) {
			return nil
		}

		pdfFiles = append(pdfFiles, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return &ScanResult{
		Files:      pdfFiles,
		TotalCount: len(pdfFiles),
		Directory:  absDirectory,
		Query:      query,
	}, nil
}

// PendingDocuments returns the input PDFs in inputDir that have no
// relabeled counterpart in outputDir yet.
func (s *Scanner) PendingDocuments(inputDir, outputDir string) ([]FileInfo, error) {
	result, err := s.ScanDirectory(inputDir, "")
	if err != nil {
		return nil, err
	}

	var pending []FileInfo
	for _, f := range result.Files {
		if _, err := os.Stat(RefinedPath(outputDir, f.Path)); err == nil {
			continue
		}
		pending = append(pending, f)
	}
	return pending, nil
}

// isPathWithinDirectory checks if a path is within the specified directory
func (s *Scanner) isPathWithinDirectory(path, directory string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	absDir, err := filepath.Abs(directory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve directory: %w", err)
	}

	// Evaluate any symlinks to get the real path
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// If the file doesn't exist yet, just use the absolute path
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		realPath = absPath
	}

	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate directory symlinks: %w", err)
	}

	realPath = filepath.Clean(realPath)
	realDir = filepath.Clean(realDir)

	if !strings.HasSuffix(realDir, string(filepath.Separator)) {
		realDir += string(filepath.Separator)
	}

	return strings.HasPrefix(realPath, realDir) || realPath == strings.TrimSuffix(realDir, string(filepath.Separator)), nil
}

// isPDFFile checks if a file has a PDF extension
func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// matchesQuery performs fuzzy matching on the filename
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	fileName := strings.ToLower(filename)

	// Exact substring match
	if strings.Contains(fileName, query) {
		return true
	}

	nameWithoutExt := strings.TrimSuffix(fileName, ".pdf")
	if strings.Contains(nameWithoutExt, query) {
		return true
	}

	// Word-based matching: every query word must appear in some
	// filename word
	words := splitIntoWords(nameWithoutExt)
	queryWords := splitIntoWords(query)

	for _, queryWord := range queryWords {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// splitIntoWords splits a string into words using common separators
func splitIntoWords(text string) []string {
	separators := []string{" ", "_", "-", ".", "(", ")", "[", "]"}

	words := []string{text}
	for _, sep := range separators {
		var newWords []string
		for _, word := range words {
			parts := strings.Split(word, sep)
			for _, part := range parts {
				if part != "" {
					newWords = append(newWords, strings.ToLower(part))
				}
			}
		}
		words = newWords
	}

	return words
}
