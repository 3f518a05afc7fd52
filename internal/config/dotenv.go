package config

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// dotEnvDepth bounds how many parent directories are searched for .env.
const dotEnvDepth = 6

// LoadDotEnv seeds the process environment from the nearest .env file above
// the working directory. Variables already present are left alone, and a
// missing or unreadable file is logged and skipped.
func LoadDotEnv(logger *slog.Logger) {
	dir, err := os.Getwd()
	if err != nil {
		logger.Warn("failed to locate .env", "error", err)
		return
	}
	path := FindDotEnv(dir)
	if path == "" {
		logger.Debug(".env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open .env", "path", path, "error", err)
		return
	}
	defer file.Close()

	set := func(key, value string) {
		if err := os.Setenv(key, value); err != nil {
			logger.Warn("failed to set variable from .env", "key", key)
		}
	}
	if err := ParseDotEnv(file, os.LookupEnv, set); err != nil {
		logger.Warn("failed to load .env", "path", path, "error", err)
		return
	}
	logger.Info("loaded env", "path", path)
}

// FindDotEnv walks up from dir and returns the first .env path, or "".
func FindDotEnv(dir string) string {
	for i := 0; i < dotEnvDepth; i++ {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ParseDotEnv reads KEY=value lines from r and calls set for each key that
// lookup does not already know. Blank lines, comments and lines without "="
// are skipped; an optional "export " prefix and matching quotes are removed.
func ParseDotEnv(r io.Reader, lookup func(string) (string, bool), set func(key, value string)) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := lookup(key); exists {
			continue
		}
		set(key, trimQuotes(strings.TrimSpace(value)))
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
