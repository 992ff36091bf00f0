package source

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"pubsub-core/internal/config/schema"
	corelog "pubsub-core/internal/core/log"
)

// DotEnvSource loads .env files into the process environment
// The values are applied to the config by EnvSource, which runs after it
type DotEnvSource struct {
	dirs   []string // directories to search for .env files
	appEnv string   // application environment (e.g., production, development)
}

// NewDotEnvSource creates a new DotEnvSource
func NewDotEnvSource(dirs []string, appEnv string) *DotEnvSource {
	return &DotEnvSource{
		dirs:   dirs,
		appEnv: appEnv,
	}
}

// Name returns the source name
func (s *DotEnvSource) Name() string {
	return "dotenv"
}

// Priority returns the source priority
func (s *DotEnvSource) Priority() int {
	return PriorityDotEnv
}

// LoadInto loads .env files into the process environment
func (s *DotEnvSource) LoadInto(cfg *schema.Root) error {
	files := []string{".env", ".env.local"}
	if s.appEnv != "" {
		files = append(files, ".env."+s.appEnv, ".env."+s.appEnv+".local")
	}

	for _, dir := range s.dirs {
		for _, file := range files {
			path := filepath.Join(dir, file)
			if err := loadEnvFile(path); err != nil {
				corelog.Debugf("Failed to load %s: %v", path, err)
			}
		}
	}
	return nil
}

// loadEnvFile sets variables from one file; variables already set in the
// environment win over the file
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			corelog.Warnf("Failed to set env var %s from %s: %v", key, path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	corelog.Debugf("Loaded env file: %s", path)
	return nil
}

// parseEnvLine parses KEY=value, an optional "export " prefix and matching quotes are stripped
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimPrefix(line, "export ")
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}

	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// FindDotEnvDirs finds directories that might contain .env files
func FindDotEnvDirs(configFile string) []string {
	var dirs []string

	if configFile != "" {
		if dir := filepath.Dir(configFile); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".pubsub"))
	}

	return dirs
}
