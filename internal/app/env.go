package app

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadEnvFiles loads dotenv files into the process environment and returns
// the keys it set. Later files override earlier ones, but a key that is
// already set to a non-empty value in the environment is left alone so
// exported variables keep precedence over dotenv defaults. Missing files
// are skipped.
func LoadEnvFiles(paths ...string) ([]string, error) {
	loaded := make(map[string]bool)
	var keys []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		pairs, err := readEnvFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return keys, err
		}
		for _, kv := range pairs {
			if v, ok := os.LookupEnv(kv[0]); ok && v != "" && !loaded[kv[0]] {
				continue
			}
			if err := os.Setenv(kv[0], kv[1]); err != nil {
				return keys, fmt.Errorf("%s: set %s: %w", p, kv[0], err)
			}
			if !loaded[kv[0]] {
				loaded[kv[0]] = true
				keys = append(keys, kv[0])
			}
		}
	}
	return keys, nil
}

func readEnvFile(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out [][2]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if k, v, ok := parseEnvLine(scanner.Text()); ok {
			out = append(out, [2]string{k, v})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// parseEnvLine accepts KEY=VALUE with an optional "export " prefix.
// Double-quoted values understand \n, \t, \" and \\; single-quoted values
// are literal; unquoted values end at " #".
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	switch {
	case len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"':
		val = unescapeEnv(val[1 : len(val)-1])
	case len(val) >= 2 && val[0] == '\'' && val[len(val)-1] == '\'':
		val = val[1 : len(val)-1]
	default:
		if i := strings.Index(val, " #"); i >= 0 {
			val = strings.TrimSpace(val[:i])
		}
	}
	return key, val, true
}

func unescapeEnv(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
