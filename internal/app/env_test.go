package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnv(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return p
}

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	for _, k := range []string{"FOO", "BAR", "BAZ", "QUX", "ESC"} {
		t.Setenv(k, "")
	}
	p := writeEnv(t, t.TempDir(), ".env.test",
		"\n# sample dotenv file\nFOO=alpha # trailing comment\nexport BAR=\"beta gamma\"\nBAZ='x # kept'\nQUX=a#b\nESC=\"line\\nnext \\\"q\\\"\"\nnot a pair\nBAD KEY=1\n=novalue\n")
	keys, err := LoadEnvFiles(p)
	if err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if len(keys) != 5 {
		t.Fatalf("keys=%v", keys)
	}
	for k, want := range map[string]string{"FOO": "alpha", "BAR": "beta gamma", "BAZ": "x # kept", "QUX": "a#b", "ESC": "line\nnext \"q\""} {
		if got := os.Getenv(k); got != want {
			t.Fatalf("%s=%q, want %q", k, got, want)
		}
	}
}

func TestLoadEnvFiles_OverrideOrderAndMissing(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := writeEnv(t, dir, ".env.a", "K=first\n")
	b := writeEnv(t, dir, ".env.b", "K=second\n")
	keys, err := LoadEnvFiles(a, filepath.Join(dir, "missing"), "", b)
	if err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" || len(keys) != 1 {
		t.Fatalf("override order failed: got %q keys=%v, want second", got, keys)
	}
}

func TestLoadEnvFiles_ExportedEnvWins(t *testing.T) {
	t.Setenv("LLM_MODEL", "exported-model")
	t.Setenv("LLM_BASE_URL", "")
	p := writeEnv(t, t.TempDir(), ".env", "LLM_MODEL=dotenv-model\nLLM_BASE_URL=http://dotenv/v1\n")
	keys, err := LoadEnvFiles(p)
	if err != nil {
		t.Fatal(err)
	}
	if os.Getenv("LLM_MODEL") != "exported-model" || os.Getenv("LLM_BASE_URL") != "http://dotenv/v1" {
		t.Fatalf("model=%q base=%q", os.Getenv("LLM_MODEL"), os.Getenv("LLM_BASE_URL"))
	}
	if len(keys) != 1 || keys[0] != "LLM_BASE_URL" {
		t.Fatalf("keys=%v", keys)
	}
}

func TestApplyEnvToConfig_FillsUnsetOnly(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("FAIL_UNDER", "55.5")
	t.Setenv("CACHE_MAX_AGE", "48h")
	t.Setenv("STRICT_RULES", "yes")
	t.Setenv("ADVISE", "0")

	cfg := Config{LLMModel: "flag-model"}
	ApplyEnvToConfig(&cfg)
	if cfg.LLMBaseURL != "http://llm.local/v1" || cfg.LLMModel != "flag-model" {
		t.Fatalf("llm settings: %+v", cfg)
	}
	if cfg.StoreBackend != "sqlite" || cfg.FailUnder != 55.5 || cfg.CacheMaxAge != 48*time.Hour {
		t.Fatalf("env values not applied: %+v", cfg)
	}
	if !cfg.StrictRules || cfg.Advise {
		t.Fatalf("bools: strict=%v advise=%v", cfg.StrictRules, cfg.Advise)
	}
	ApplyEnvToConfig(nil)
}

func TestApplyEnvOverrides_ReplacesFileValues(t *testing.T) {
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("VERBOSE", "false")
	t.Setenv("FAIL_UNDER", "not-a-number")

	cfg := Config{LLMModel: "file-model", Verbose: true, FailUnder: 40}
	ApplyEnvOverrides(&cfg)
	if cfg.LLMModel != "env-model" {
		t.Fatalf("model=%q", cfg.LLMModel)
	}
	if cfg.Verbose {
		t.Fatalf("VERBOSE=false should override file value")
	}
	if cfg.FailUnder != 40 {
		t.Fatalf("unparseable FAIL_UNDER must be ignored, got %v", cfg.FailUnder)
	}
}
