package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeBatch  = "batch"

	// Oracle providers
	OracleGemini = "gemini"
	OracleRules  = "rules"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultCorpusPath  = "labels_corpus.json"
	DefaultRetryBound  = 2
	DefaultTopK        = 8
	MinTopK            = 5
	DefaultWorkers     = 4
	DefaultOracleTime  = 60 // seconds

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF labeler server
type Config struct {
	// Server configuration
	Mode string // "stdio", "server", or "batch"
	Host string
	Port int

	// Document configuration
	InputDirectory  string
	OutputDirectory string
	PDFFilter       string
	CheckOnly       bool

	// Corpus configuration
	CorpusPath   string
	CorpusDriver string // "json" or "sqlite"

	// Oracle configuration
	OracleProvider string // "gemini" or "rules"
	Model          string
	APIKey         string
	OracleTimeout  int // seconds

	// Resolution configuration
	RetryBound int
	TopK       int
	Workers    int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio, // Default to stdio mode for MCP compatibility
		Host:            DefaultHost,
		Port:            DefaultPort,
		InputDirectory:  currentDir,
		OutputDirectory: "", // empty means alongside the inputs
		CorpusPath:      DefaultCorpusPath,
		CorpusDriver:    "json",
		OracleProvider:  OracleGemini,
		Model:           "", // empty selects the oracle's default model
		OracleTimeout:   DefaultOracleTime,
		RetryBound:      DefaultRetryBound,
		TopK:            DefaultTopK,
		Workers:         DefaultWorkers,
		Version:         "1.0.0",
		ServerName:      "mcp-pdf-labeler",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.InputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.InputDirectory); err == nil {
			cfg.InputDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("PDF_LABELER")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("input", cfg.InputDirectory)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("filter", cfg.PDFFilter)
	viper.SetDefault("checkonly", cfg.CheckOnly)
	viper.SetDefault("corpus", cfg.CorpusPath)
	viper.SetDefault("corpusdriver", cfg.CorpusDriver)
	viper.SetDefault("oracle", cfg.OracleProvider)
	viper.SetDefault("model", cfg.Model)
	viper.SetDefault("oracletimeout", cfg.OracleTimeout)
	viper.SetDefault("retrybound", cfg.RetryBound)
	viper.SetDefault("topk", cfg.TopK)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for HTTP server, 'batch' for a one-shot labeling run")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("input", cfg.InputDirectory, "Directory containing input PDF files")
	pflag.String("output", cfg.OutputDirectory, "Directory for refined PDFs and sidecars (defaults to the input directory)")
	pflag.String("filter", cfg.PDFFilter, "Only process input files whose name contains this substring")
	pflag.Bool("checkonly", cfg.CheckOnly, "List pending documents without processing them (batch mode)")
	pflag.String("corpus", cfg.CorpusPath, "Path to the label corpus store")
	pflag.String("corpusdriver", cfg.CorpusDriver, "Corpus storage driver: 'json' or 'sqlite'")
	pflag.String("oracle", cfg.OracleProvider, "Decision oracle: 'gemini' or 'rules'")
	pflag.String("model", cfg.Model, "Gemini model name (gemini oracle only)")
	pflag.Int("oracletimeout", cfg.OracleTimeout, "Oracle request timeout in seconds")
	pflag.Int("retrybound", cfg.RetryBound, "Re-entries allowed per field before resolution fails")
	pflag.Int("topk", cfg.TopK, "Similar labels offered to the oracle per field")
	pflag.Int("workers", cfg.Workers, "Documents processed in parallel (batch mode)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("input", pflag.Lookup("input"))
	_ = viper.BindPFlag("output", pflag.Lookup("output"))
	_ = viper.BindPFlag("filter", pflag.Lookup("filter"))
	_ = viper.BindPFlag("checkonly", pflag.Lookup("checkonly"))
	_ = viper.BindPFlag("corpus", pflag.Lookup("corpus"))
	_ = viper.BindPFlag("corpusdriver", pflag.Lookup("corpusdriver"))
	_ = viper.BindPFlag("oracle", pflag.Lookup("oracle"))
	_ = viper.BindPFlag("model", pflag.Lookup("model"))
	_ = viper.BindPFlag("oracletimeout", pflag.Lookup("oracletimeout"))
	_ = viper.BindPFlag("retrybound", pflag.Lookup("retrybound"))
	_ = viper.BindPFlag("topk", pflag.Lookup("topk"))
	_ = viper.BindPFlag("workers", pflag.Lookup("workers"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Labeler - A Model Context Protocol server that standardizes PDF form field names\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=/path/to/pdfs                   "+
			"# stdio mode with custom input directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=batch --input=in --output=out    # label every pending PDF once\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=batch --oracle=rules --checkonly # list pending documents\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # HTTP server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_MODE          Run mode\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_INPUT         Input PDF directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_OUTPUT        Output directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_CORPUS        Corpus store path\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_CORPUSDRIVER  Corpus driver (json, sqlite)\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_ORACLE        Oracle provider (gemini, rules)\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_MODEL         Gemini model name\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  PDF_LABELER_MAXFILESIZE   Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY            Gemini API key\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.InputDirectory = viper.GetString("input")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.PDFFilter = viper.GetString("filter")
	cfg.CheckOnly = viper.GetBool("checkonly")
	cfg.CorpusPath = viper.GetString("corpus")
	cfg.CorpusDriver = viper.GetString("corpusdriver")
	cfg.OracleProvider = viper.GetString("oracle")
	cfg.Model = viper.GetString("model")
	cfg.OracleTimeout = viper.GetInt("oracletimeout")
	cfg.RetryBound = viper.GetInt("retrybound")
	cfg.TopK = viper.GetInt("topk")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	// The API key is deliberately not a flag so it never shows up in
	// process listings.
	cfg.APIKey = os.Getenv("GEMINI_API_KEY")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeBatch {
		return errors.New("mode must be 'stdio', 'server', or 'batch'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate input directory
	if c.InputDirectory == "" {
		return errors.New("input directory cannot be empty")
	}

	// Check if input directory exists, create if it doesn't
	if _, err := os.Stat(c.InputDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.InputDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create input directory %s: %w", c.InputDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDirectory, err)
	}

	// Validate corpus settings
	if c.CorpusPath == "" {
		return errors.New("corpus path cannot be empty")
	}
	if c.CorpusDriver != "json" && c.CorpusDriver != "sqlite" {
		return fmt.Errorf("invalid corpus driver: %s (must be 'json' or 'sqlite')", c.CorpusDriver)
	}

	// Validate oracle settings
	if c.OracleProvider != OracleGemini && c.OracleProvider != OracleRules {
		return fmt.Errorf("invalid oracle provider: %s (must be 'gemini' or 'rules')", c.OracleProvider)
	}
	if c.OracleTimeout <= 0 {
		return errors.New("oracle timeout must be positive")
	}

	// Validate resolution settings
	if c.RetryBound < 0 {
		return errors.New("retry bound cannot be negative")
	}
	if c.TopK < MinTopK {
		return fmt.Errorf("topk must be at least %d", MinTopK)
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EffectiveOutputDirectory returns the output directory, falling back
// to the input directory when none is configured.
func (c *Config) EffectiveOutputDirectory() string {
	if c.OutputDirectory != "" {
		return c.OutputDirectory
	}
	return c.InputDirectory
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Input: %s, Output: %s, Corpus: %s (%s), Oracle: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.InputDirectory, c.EffectiveOutputDirectory(),
		c.CorpusPath, c.CorpusDriver, c.OracleProvider, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsBatchMode returns true if a one-shot labeling run was requested
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}
