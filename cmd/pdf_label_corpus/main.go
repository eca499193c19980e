package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-labeler/internal/label/corpus"
)

var (
	corpusPath   = flag.String("corpus", "labels_corpus.json", "Path to the corpus store")
	corpusDriver = flag.String("driver", "", "Corpus driver: json, sqlite (default inferred from path)")
	targetPath   = flag.String("to-corpus", "", "Migration target store path")
	targetDriver = flag.String("to-driver", "", "Migration target driver: json, sqlite")
	outputFormat = flag.String("format", "text", "Output format: text, json")
	dryRun       = flag.Bool("dry-run", false, "Report what clean would change without rewriting the store")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

// statsRecentLimit bounds the recent-label listing in stats output.
const statsRecentLimit = 10

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: command required: stats, clean, or migrate\n\n")
		printUsage()
		os.Exit(1)
	}

	if *verbose {
		log.SetLevel(DebugLevel)
	}

	var (
		result interface{}
		err    error
	)
	switch command := flag.Arg(0); command {
	case "stats":
		result, err = runStats()
	case "clean":
		result, err = runClean()
	case "migrate":
		result, err = runMigrate()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := outputResult(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Label Corpus - Inspect and maintain label corpus stores")
	fmt.Println()
	fmt.Println("The corpus is the append-only list of canonical field labels shared by")
	fmt.Println("every labeling run. This tool reports its health, repairs malformed or")
	fmt.Println("duplicated entries, and moves the corpus between storage backends.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  stats      Report corpus size, recent labels, and store health")
	fmt.Println("  clean      Rewrite malformed labels, drop unfixable and duplicated ones")
	fmt.Println("  migrate    Copy the corpus into another store (-to-corpus, -to-driver)")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -corpus      Path to the corpus store (default labels_corpus.json)")
	fmt.Println("  -driver      Corpus driver: json, sqlite (default inferred from the path)")
	fmt.Println("  -to-corpus   Migration target store path")
	fmt.Println("  -to-driver   Migration target driver: json, sqlite")
	fmt.Println("  -format      Output format: text (default), json")
	fmt.Println("  -dry-run     Report what clean would change without rewriting the store")
	fmt.Println("  -verbose     Enable verbose output")
	fmt.Println("  -help        Show this help message")
	fmt.Println()
	fmt.Println("CLEAN:")
	fmt.Println("  The clean command re-baselines the corpus:")
	fmt.Println("  • Labels that fail lower_snake_case validation are auto-fixed")
	fmt.Println("  • Labels that stay invalid after fixing are dropped")
	fmt.Println("  • Duplicates introduced by fixing are collapsed to one entry")
	fmt.Println("  • Survivors are rewritten in alphabetical order")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_label_corpus stats")
	fmt.Println("  pdf_label_corpus -corpus labels_corpus.json -dry-run clean")
	fmt.Println("  pdf_label_corpus -corpus labels_corpus.json -to-corpus labels.db migrate")
	fmt.Println("  pdf_label_corpus -format json stats")
	fmt.Println()
	fmt.Println("STORE DRIVERS:")
	fmt.Println("  • json     Single JSON document, human-editable, the interchange default")
	fmt.Println("  • sqlite   SQLite database for corpora too large to rewrite as one file")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_label_corpus [OPTIONS] <command>")
}

// StatsReport summarizes the health of one corpus store.
type StatsReport struct {
	Path       string         `json:"path"`
	Driver     string         `json:"driver"`
	LabelCount int            `json:"label_count"`
	Invalid    []string       `json:"invalid,omitempty"`
	Duplicates []string       `json:"duplicates,omitempty"`
	Recent     []corpus.Entry `json:"recent,omitempty"`
}

// CleanReport records what a clean pass changed (or would change with
// -dry-run).
type CleanReport struct {
	Path              string              `json:"path"`
	Driver            string              `json:"driver"`
	Scanned           int                 `json:"scanned"`
	Kept              int                 `json:"kept"`
	Conversions       []corpus.Conversion `json:"conversions,omitempty"`
	Problematic       []corpus.Problem    `json:"problematic,omitempty"`
	DuplicatesRemoved int                 `json:"duplicates_removed"`
	Backup            string              `json:"backup,omitempty"`
	DryRun            bool                `json:"dry_run,omitempty"`
}

// MigrateReport records a corpus copy between stores.
type MigrateReport struct {
	From       string `json:"from"`
	FromDriver string `json:"from_driver"`
	To         string `json:"to"`
	ToDriver   string `json:"to_driver"`
	Migrated   int    `json:"migrated"`
}

// resolveDriver picks the store driver for a path. An explicit flag
// value wins; otherwise the file extension decides.
func resolveDriver(flagValue, path string) corpus.DriverType {
	if flagValue != "" {
		return corpus.DriverType(flagValue)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return corpus.DriverSQLite
	default:
		return corpus.DriverJSON
	}
}

func runStats() (*StatsReport, error) {
	driver := resolveDriver(*corpusDriver, *corpusPath)
	store, err := corpus.OpenStore(driver, *corpusPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	// Read the raw store rather than corpus.Load: stats must still
	// report on stores that Load would reject as duplicated.
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	log.Debug("loaded %d entries from %s", len(entries), *corpusPath)

	report := &StatsReport{
		Path:       *corpusPath,
		Driver:     string(driver),
		LabelCount: len(entries),
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := corpus.Validate(e.Label); err != nil {
			report.Invalid = append(report.Invalid, e.Label)
		}
		if seen[e.Label] {
			report.Duplicates = append(report.Duplicates, e.Label)
		}
		seen[e.Label] = true
	}

	recent := len(entries)
	if recent > statsRecentLimit {
		recent = statsRecentLimit
	}
	report.Recent = entries[len(entries)-recent:]

	return report, nil
}

func runClean() (*CleanReport, error) {
	driver := resolveDriver(*corpusDriver, *corpusPath)
	store, err := corpus.OpenStore(driver, *corpusPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	cleaned := corpus.Clean(entries)

	report := &CleanReport{
		Path:              *corpusPath,
		Driver:            string(driver),
		Scanned:           len(entries),
		Kept:              len(cleaned.Entries),
		Conversions:       cleaned.Conversions,
		Problematic:       cleaned.Problematic,
		DuplicatesRemoved: cleaned.DuplicatesRemoved,
		DryRun:            *dryRun,
	}

	if *dryRun {
		return report, nil
	}

	backup, err := backupStoreFile(*corpusPath)
	if err != nil {
		return nil, fmt.Errorf("back up corpus: %w", err)
	}
	report.Backup = backup

	if err := store.Rewrite(cleaned.Entries); err != nil {
		return nil, fmt.Errorf("rewrite corpus: %w", err)
	}
	log.Debug("rewrote %s with %d entries", *corpusPath, len(cleaned.Entries))

	return report, nil
}

// backupStoreFile copies the store file aside before a rewrite. Both
// drivers keep the corpus in a single file, so a byte copy suffices. A
// missing file is a fresh store and needs no backup.
func backupStoreFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backup := path + ".bak"
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", err
	}
	return backup, nil
}

func runMigrate() (*MigrateReport, error) {
	if *targetPath == "" {
		return nil, fmt.Errorf("migrate requires -to-corpus")
	}
	if *targetPath == *corpusPath {
		return nil, fmt.Errorf("migration target must differ from the source store")
	}

	fromDriver := resolveDriver(*corpusDriver, *corpusPath)
	toDriver := resolveDriver(*targetDriver, *targetPath)

	source, err := corpus.OpenStore(fromDriver, *corpusPath)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}
	defer source.Close()

	entries, err := source.Load()
	if err != nil {
		return nil, fmt.Errorf("load source corpus: %w", err)
	}

	target, err := corpus.OpenStore(toDriver, *targetPath)
	if err != nil {
		return nil, fmt.Errorf("open target store: %w", err)
	}
	defer target.Close()

	if err := target.Rewrite(entries); err != nil {
		return nil, fmt.Errorf("write target corpus: %w", err)
	}
	log.Debug("migrated %d entries to %s", len(entries), *targetPath)

	return &MigrateReport{
		From:       *corpusPath,
		FromDriver: string(fromDriver),
		To:         *targetPath,
		ToDriver:   string(toDriver),
		Migrated:   len(entries),
	}, nil
}

func outputResult(result interface{}) error {
	switch *outputFormat {
	case "json":
		return outputJSON(result)
	case "text":
		return outputText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputJSON(result interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result interface{}) error {
	switch r := result.(type) {
	case *StatsReport:
		outputStatsText(r)
	case *CleanReport:
		outputCleanText(r)
	case *MigrateReport:
		outputMigrateText(r)
	default:
		return fmt.Errorf("no text rendering for %T", result)
	}
	return nil
}

func outputStatsText(report *StatsReport) {
	fmt.Printf("📊 Corpus: %s (%s)\n", report.Path, report.Driver)
	fmt.Printf("   Labels: %d\n", report.LabelCount)

	if len(report.Invalid) > 0 {
		fmt.Printf("\n⚠️  %d label(s) fail format validation:\n", len(report.Invalid))
		for _, label := range report.Invalid {
			fmt.Printf("   • %s\n", label)
		}
	}

	if len(report.Duplicates) > 0 {
		fmt.Printf("\n⚠️  %d duplicated label(s):\n", len(report.Duplicates))
		for _, label := range report.Duplicates {
			fmt.Printf("   • %s\n", label)
		}
	}

	if len(report.Invalid) > 0 || len(report.Duplicates) > 0 {
		fmt.Println("\nRun the clean command to repair the store.")
	}

	if len(report.Recent) > 0 {
		fmt.Println("\nMost recent labels:")
		first := report.LabelCount - len(report.Recent)
		for i, entry := range report.Recent {
			fmt.Printf("  [%d] %s\n", first+i+1, entry.Label)
			if entry.Description != "" {
				fmt.Printf("      %s\n", entry.Description)
			}
		}
	}
}

func outputCleanText(report *CleanReport) {
	if report.DryRun {
		fmt.Println("🔍 Dry run: the store was not modified")
	}

	fmt.Printf("✅ Scanned %d label(s): kept %d, fixed %d, dropped %d, deduplicated %d\n",
		report.Scanned, report.Kept, len(report.Conversions),
		len(report.Problematic), report.DuplicatesRemoved)

	if report.Backup != "" {
		fmt.Printf("   Backup: %s\n", report.Backup)
	}

	if len(report.Conversions) > 0 {
		fmt.Println("\nFixed labels:")
		for _, conv := range report.Conversions {
			fmt.Printf("   %s -> %s\n", conv.Original, conv.Cleaned)
		}
	}

	if len(report.Problematic) > 0 {
		fmt.Println("\nDropped labels:")
		for _, problem := range report.Problematic {
			fmt.Printf("   • %s (%s)\n", problem.Original, problem.Reason)
		}
	}

	if len(report.Conversions) == 0 && len(report.Problematic) == 0 && report.DuplicatesRemoved == 0 {
		fmt.Println("   No malformed or duplicated labels found")
	}
}

func outputMigrateText(report *MigrateReport) {
	fmt.Printf("✅ Migrated %d label(s)\n", report.Migrated)
	fmt.Printf("   From: %s (%s)\n", report.From, report.FromDriver)
	fmt.Printf("   To:   %s (%s)\n", report.To, report.ToDriver)
}

// Minimal leveled logger for -verbose output
type LogLevel int

const (
	InfoLevel LogLevel = iota
	DebugLevel
)

var currentLogLevel = InfoLevel

type Logger struct{}

func (l *Logger) SetLevel(level LogLevel) {
	currentLogLevel = level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if currentLogLevel >= DebugLevel {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Printf("[INFO] "+format+"\n", args...)
}

var log = &Logger{}

func init() {
	// Custom flag usage
	flag.Usage = func() {
		printHelp()
	}
}
