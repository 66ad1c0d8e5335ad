package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/goassess/internal/app"
)

// cli holds flag values for every command. Flags are bound to a scratch
// Config and only copied over env and file values when set explicitly.
type cli struct {
	flags      app.Config
	configPath string
	envFiles   []string
	stdin      io.Reader
}

func newCLI(stdin io.Reader) *cli {
	return &cli{stdin: stdin}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:   "goassess",
		Short: "Decompile and assess professional reports",
		Long: `goassess decompiles professional reports (arboricultural, ecological and
similar) into sections, detects the report type, maps the sections onto that
type and scores the report against weighted validation rules.

Configuration precedence is flags, then environment, then the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	d := app.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	pf.StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.BoolVarP(&c.flags.Verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&c.flags.StoreBackend, "store", d.StoreBackend, "Store backend: file, sqlite or memory")
	pf.StringVar(&c.flags.StoreDir, "store-dir", d.StoreDir, "Directory for the file and sqlite stores")
	pf.StringVar(&c.flags.RegistryDir, "registry-dir", "", "Directory of extra report type definitions (*.yaml)")
	pf.BoolVar(&c.flags.StrictRules, "strict-rules", false, "Reject rules that have no evaluator")
	pf.StringVar(&c.flags.LLMBaseURL, "llm-base", "", "OpenAI-compatible base URL for remediation advice")
	pf.StringVar(&c.flags.LLMModel, "llm-model", d.LLMModel, "Model for remediation advice")
	pf.StringVar(&c.flags.LLMAPIKey, "llm-key", "", "API key for the LLM endpoint")
	pf.StringVar(&c.flags.CacheDir, "cache-dir", d.CacheDir, "Directory for cached model responses")
	pf.DurationVar(&c.flags.CacheMaxAge, "cache-max-age", 0, "Purge cached responses older than this at startup")
	pf.BoolVar(&c.flags.CacheClear, "cache-clear", false, "Clear cached responses at startup")
	pf.BoolVar(&c.flags.CacheStrictPerms, "cache-strict-perms", false, "Restrict cache permissions to the current user")

	root.AddCommand(
		c.assessCmd(),
		c.decompileCmd(),
		c.validateCmd(),
		c.reportsCmd(),
		c.rulesCmd(),
		c.typesCmd(),
		c.watchCmd(),
		c.mcpCmd(),
		versionCmd(),
	)
	return root
}

// addAssessFlags registers the flags shared by commands that produce an
// assessment.
func (c *cli) addAssessFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.flags.OutputPath, "output", "o", "", "Markdown assessment path (\"-\" for stdout)")
	fs.StringVar(&c.flags.OutputJSONPath, "json", "", "JSON assessment path")
	fs.StringVar(&c.flags.OutputPDFPath, "pdf", "", "PDF assessment path")
	fs.StringVar(&c.flags.OutputSARIFPath, "sarif", "", "SARIF 2.1.0 findings path")
	fs.Float64Var(&c.flags.FailUnder, "fail-under", 0, "Exit with status 2 when the overall score is below this")
	fs.BoolVar(&c.flags.Advise, "advise", false, "Ask the LLM for remediation notes")
	fs.StringVar(&c.flags.AdviseSystemPrompt, "advise-prompt", "", "System prompt override for remediation notes")
}

// addInputFlags registers the flags shared by commands that read a report.
func (c *cli) addInputFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.flags.Format, "format", "f", "", "Input format: markdown, text, pdf_text or pasted (default: from extension)")
	fs.StringVarP(&c.flags.ReportType, "type", "t", "", "Report type id, name or alias to assess against instead of detecting it")
}

// config resolves the effective configuration for cmd.
func (c *cli) config(cmd *cobra.Command) (app.Config, error) {
	keys, err := app.LoadEnvFiles(c.envFiles...)
	if err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	if len(keys) > 0 {
		log.Debug().Strs("keys", keys).Msg("loaded dotenv")
	}
	cfg := app.DefaultConfig()
	if c.configPath != "" {
		fc, err := app.LoadConfigFile(c.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config %s: %w", c.configPath, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, fmt.Errorf("apply config %s: %w", c.configPath, err)
		}
	}
	app.ApplyEnvOverrides(&cfg)
	c.overlayFlags(cmd.Flags(), &cfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return cfg, app.ValidateConfig(cfg)
}

func (c *cli) overlayFlags(fs *pflag.FlagSet, cfg *app.Config) {
	f := c.flags
	set := map[string]func(){
		"verbose":            func() { cfg.Verbose = f.Verbose },
		"store":              func() { cfg.StoreBackend = f.StoreBackend },
		"store-dir":          func() { cfg.StoreDir = f.StoreDir },
		"registry-dir":       func() { cfg.RegistryDir = f.RegistryDir },
		"strict-rules":       func() { cfg.StrictRules = f.StrictRules },
		"llm-base":           func() { cfg.LLMBaseURL = f.LLMBaseURL },
		"llm-model":          func() { cfg.LLMModel = f.LLMModel },
		"llm-key":            func() { cfg.LLMAPIKey = f.LLMAPIKey },
		"cache-dir":          func() { cfg.CacheDir = f.CacheDir },
		"cache-max-age":      func() { cfg.CacheMaxAge = f.CacheMaxAge },
		"cache-clear":        func() { cfg.CacheClear = f.CacheClear },
		"cache-strict-perms": func() { cfg.CacheStrictPerms = f.CacheStrictPerms },
		"output":             func() { cfg.OutputPath = f.OutputPath },
		"json":               func() { cfg.OutputJSONPath = f.OutputJSONPath },
		"pdf":                func() { cfg.OutputPDFPath = f.OutputPDFPath },
		"sarif":              func() { cfg.OutputSARIFPath = f.OutputSARIFPath },
		"fail-under":         func() { cfg.FailUnder = f.FailUnder },
		"advise":             func() { cfg.Advise = f.Advise },
		"advise-prompt":      func() { cfg.AdviseSystemPrompt = f.AdviseSystemPrompt },
		"format":             func() { cfg.Format = f.Format },
		"type":               func() { cfg.ReportType = f.ReportType },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if apply, ok := set[fl.Name]; ok {
			apply()
		}
	})
}

// open resolves the configuration and builds an App. The caller closes it.
func (c *cli) open(cmd *cobra.Command) (*app.App, app.Config, error) {
	return c.openWithInput(cmd, nil)
}

// openWithInput is open with an optional positional input file overriding
// the configured one.
func (c *cli) openWithInput(cmd *cobra.Command, args []string) (*app.App, app.Config, error) {
	cfg, err := c.config(cmd)
	if err != nil {
		return nil, cfg, err
	}
	if len(args) == 1 {
		cfg.InputPath = args[0]
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}
