package app

import "time"

// Config holds runtime configuration for the assessment pipeline.
type Config struct {
	// Input is the report file to read; "" or "-" reads stdin.
	InputPath string
	// Format overrides the input format sniffed from InputPath.
	Format string
	// ReportType forces a report type instead of detecting one.
	ReportType string

	OutputPath      string
	OutputJSONPath  string
	OutputPDFPath   string
	OutputSARIFPath string

	// RegistryDir holds extra report type definitions (*.yaml).
	RegistryDir string

	StoreBackend string
	StoreDir     string

	// StrictRules rejects rules that have no evaluator instead of passing them.
	StrictRules bool
	// FailUnder is the overall score below which the run fails; 0 disables.
	FailUnder float64

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Advise enables model-written remediation notes.
	Advise             bool
	AdviseSystemPrompt string

	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}

// Flag defaults. ApplyFileConfig treats a field still holding its default
// as unset.
const (
	DefaultStoreBackend = "file"
	DefaultStoreDir     = ".goassess/store"
	DefaultCacheDir     = ".goassess/cache"
	DefaultLLMModel     = "gpt-4o-mini"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		StoreBackend: DefaultStoreBackend,
		StoreDir:     DefaultStoreDir,
		CacheDir:     DefaultCacheDir,
		LLMModel:     DefaultLLMModel,
	}
}
