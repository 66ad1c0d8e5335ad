package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goassess/internal/report"
	"github.com/hyperifyio/goassess/internal/store"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	Input      string `yaml:"input" json:"input" toml:"input"`
	Format     string `yaml:"format" json:"format" toml:"format"`
	ReportType string `yaml:"reportType" json:"reportType" toml:"reportType"`

	Output struct {
		Markdown string `yaml:"markdown" json:"markdown" toml:"markdown"`
		JSON     string `yaml:"json" json:"json" toml:"json"`
		PDF      string `yaml:"pdf" json:"pdf" toml:"pdf"`
		SARIF    string `yaml:"sarif" json:"sarif" toml:"sarif"`
	} `yaml:"output" json:"output" toml:"output"`

	Registry struct {
		Dir string `yaml:"dir" json:"dir" toml:"dir"`
	} `yaml:"registry" json:"registry" toml:"registry"`

	Store struct {
		Backend string `yaml:"backend" json:"backend" toml:"backend"`
		Dir     string `yaml:"dir" json:"dir" toml:"dir"`
	} `yaml:"store" json:"store" toml:"store"`

	Rules struct {
		Strict    bool    `yaml:"strict" json:"strict" toml:"strict"`
		FailUnder float64 `yaml:"failUnder" json:"failUnder" toml:"failUnder"`
	} `yaml:"rules" json:"rules" toml:"rules"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base" toml:"base"`
		Model   string `yaml:"model" json:"model" toml:"model"`
		APIKey  string `yaml:"key" json:"key" toml:"key"`
	} `yaml:"llm" json:"llm" toml:"llm"`

	Advise struct {
		Enable       bool   `yaml:"enable" json:"enable" toml:"enable"`
		SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt" toml:"systemPrompt"`
	} `yaml:"advise" json:"advise" toml:"advise"`

	Cache struct {
		Dir string `yaml:"dir" json:"dir" toml:"dir"`
		// MaxAge is a Go duration string such as "72h".
		MaxAge      string `yaml:"maxAge" json:"maxAge" toml:"maxAge"`
		Clear       bool   `yaml:"clear" json:"clear" toml:"clear"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms" toml:"strictPerms"`
	} `yaml:"cache" json:"cache" toml:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig. Unknown
// extensions are tried as YAML, then JSON, then TOML.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		yerr := yaml.Unmarshal(b, &fc)
		if yerr == nil {
			return fc, nil
		}
		fc = FileConfig{}
		jerr := json.Unmarshal(b, &fc)
		if jerr == nil {
			return fc, nil
		}
		fc = FileConfig{}
		if terr := toml.Unmarshal(b, &fc); terr != nil {
			return fc, fmt.Errorf("parse config: %v (yaml) / %v (json) / %v (toml)", yerr, jerr, terr)
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc onto fields of cfg that are unset
// or still hold their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	str := func(dst *string, v, def string) {
		if (*dst == "" || *dst == def) && v != "" {
			*dst = v
		}
	}
	str(&cfg.InputPath, fc.Input, "")
	str(&cfg.Format, fc.Format, "")
	str(&cfg.ReportType, fc.ReportType, "")
	str(&cfg.OutputPath, fc.Output.Markdown, "")
	str(&cfg.OutputJSONPath, fc.Output.JSON, "")
	str(&cfg.OutputPDFPath, fc.Output.PDF, "")
	str(&cfg.OutputSARIFPath, fc.Output.SARIF, "")
	str(&cfg.RegistryDir, fc.Registry.Dir, "")
	str(&cfg.StoreBackend, fc.Store.Backend, DefaultStoreBackend)
	str(&cfg.StoreDir, fc.Store.Dir, DefaultStoreDir)
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL, "")
	str(&cfg.LLMModel, fc.LLM.Model, DefaultLLMModel)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey, "")
	str(&cfg.AdviseSystemPrompt, fc.Advise.SystemPrompt, "")
	str(&cfg.CacheDir, fc.Cache.Dir, DefaultCacheDir)

	if cfg.FailUnder == 0 && fc.Rules.FailUnder > 0 {
		cfg.FailUnder = fc.Rules.FailUnder
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge != "" {
		d, err := time.ParseDuration(fc.Cache.MaxAge)
		if err != nil {
			return fmt.Errorf("cache.maxAge: %w", err)
		}
		cfg.CacheMaxAge = d
	}
	cfg.StrictRules = cfg.StrictRules || fc.Rules.Strict
	cfg.Advise = cfg.Advise || fc.Advise.Enable
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.Verbose = cfg.Verbose || fc.Verbose
	return nil
}

// ErrInvalidConfig wraps every ValidateConfig failure.
var ErrInvalidConfig = errors.New("invalid config")

// ValidateConfig reports settings the pipeline cannot run with.
func ValidateConfig(cfg Config) error {
	if cfg.FailUnder < 0 || cfg.FailUnder > 100 {
		return fmt.Errorf("%w: fail-under %.1f outside 0..100", ErrInvalidConfig, cfg.FailUnder)
	}
	switch cfg.StoreBackend {
	case "", store.BackendMemory, store.BackendFile, store.BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.StoreBackend)
	}
	if cfg.Format != "" && !report.Format(cfg.Format).Valid() {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}
	if cfg.CacheMaxAge < 0 {
		return fmt.Errorf("%w: negative cache max age", ErrInvalidConfig)
	}
	if cfg.Advise && cfg.LLMBaseURL == "" && cfg.LLMAPIKey == "" {
		return fmt.Errorf("%w: advise needs an LLM base URL or API key", ErrInvalidConfig)
	}
	return nil
}
