package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&cfg.LLMBaseURL, "LLM_BASE_URL")
	fill(&cfg.LLMModel, "LLM_MODEL")
	fill(&cfg.LLMAPIKey, "LLM_API_KEY")
	fill(&cfg.CacheDir, "CACHE_DIR")
	fill(&cfg.RegistryDir, "REGISTRY_DIR")
	fill(&cfg.StoreBackend, "STORE_BACKEND")
	fill(&cfg.StoreDir, "STORE_DIR")

	if cfg.FailUnder == 0 {
		if v, ok := envFloat("FAIL_UNDER"); ok {
			cfg.FailUnder = v
		}
	}
	if cfg.CacheMaxAge == 0 {
		if d, ok := envDuration("CACHE_MAX_AGE"); ok {
			cfg.CacheMaxAge = d
		}
	}
	if !cfg.StrictRules {
		cfg.StrictRules = envBool("STRICT_RULES")
	}
	if !cfg.Advise {
		cfg.Advise = envBool("ADVISE")
	}
	if !cfg.Verbose {
		cfg.Verbose = envBool("VERBOSE")
	}
	if !cfg.CacheClear {
		cfg.CacheClear = envBool("CACHE_CLEAR")
	}
	if !cfg.CacheStrictPerms {
		cfg.CacheStrictPerms = envBool("CACHE_STRICT_PERMS")
	}
}

// ApplyEnvOverrides applies environment values on top of cfg, replacing what
// a config file set. Flags are applied after this by the caller.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.LLMBaseURL, "LLM_BASE_URL")
	set(&cfg.LLMModel, "LLM_MODEL")
	set(&cfg.LLMAPIKey, "LLM_API_KEY")
	set(&cfg.CacheDir, "CACHE_DIR")
	set(&cfg.RegistryDir, "REGISTRY_DIR")
	set(&cfg.StoreBackend, "STORE_BACKEND")
	set(&cfg.StoreDir, "STORE_DIR")

	if v, ok := envFloat("FAIL_UNDER"); ok {
		cfg.FailUnder = v
	}
	if d, ok := envDuration("CACHE_MAX_AGE"); ok {
		cfg.CacheMaxAge = d
	}
	if v, ok := os.LookupEnv("STRICT_RULES"); ok {
		cfg.StrictRules = parseBool(v)
	}
	if v, ok := os.LookupEnv("ADVISE"); ok {
		cfg.Advise = parseBool(v)
	}
	if v, ok := os.LookupEnv("VERBOSE"); ok {
		cfg.Verbose = parseBool(v)
	}
	if v, ok := os.LookupEnv("CACHE_CLEAR"); ok {
		cfg.CacheClear = parseBool(v)
	}
	if v, ok := os.LookupEnv("CACHE_STRICT_PERMS"); ok {
		cfg.CacheStrictPerms = parseBool(v)
	}
}

func envBool(key string) bool { return parseBool(os.Getenv(key)) }

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
