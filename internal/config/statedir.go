package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// StateDirEnv overrides the state root.
const StateDirEnv = "BASHCLAW_STATE_DIR"

// StateDir resolves the state root: $BASHCLAW_STATE_DIR, else ~/.bashclaw.
func StateDir() string {
	if dir := strings.TrimSpace(os.Getenv(StateDirEnv)); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bashclaw"
	}
	return filepath.Join(home, ".bashclaw")
}

// stateSubdirs is the canonical layout under the state root.
var stateSubdirs = []string{"sessions", "memory", "cron", "spawn", "cache", "logs"}

// EnsureStateDir creates the state root and its subdirectories.
func EnsureStateDir(root string) error {
	for _, sub := range stateSubdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return fmt.Errorf("create state dir %s: %w", sub, err)
		}
	}
	return nil
}

// SessionsDir returns the session store root under the state dir.
func SessionsDir(root string) string { return filepath.Join(root, "sessions") }

// MemoryDir returns the memory tool's key-file directory.
func MemoryDir(root string) string { return filepath.Join(root, "memory") }

// CronDir returns the cron tool's directory.
func CronDir(root string) string { return filepath.Join(root, "cron") }

// SpawnDir returns the subagent spawn directory.
func SpawnDir(root string) string { return filepath.Join(root, "spawn") }

// EnvFile returns the persisted overrides file path.
func EnvFile(root string) string { return filepath.Join(root, ".env") }

// LoadEnvFile loads persisted overrides into the process environment without
// clobbering variables already set.
func LoadEnvFile(root string) error {
	path := EnvFile(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	for k, v := range vars {
		if _, exists := os.LookupEnv(k); !exists {
			os.Setenv(k, v)
		}
	}
	return nil
}

var envMu sync.Mutex

// SetEnvVar persists one override into the .env file with a lock-then-rename
// write, keeping the 0600 mode, and sets it in the current process.
func SetEnvVar(root, key, value string) error {
	envMu.Lock()
	defer envMu.Unlock()

	path := EnvFile(root)
	vars := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("read env file: %w", err)
		}
		vars = existing
	}
	vars[key] = value

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(quoteEnvValue(vars[k]))
		b.WriteString("\n")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".env-*")
	if err != nil {
		return fmt.Errorf("create env temp: %w", err)
	}
	RegisterTempFile(tmp.Name())
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write env temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close env temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod env temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace env file: %w", err)
	}
	return os.Setenv(key, value)
}

func quoteEnvValue(v string) string {
	if strings.ContainsAny(v, " \t\"'#\n") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

// tempFiles tracks temporary files for cleanup at process exit.
var (
	tempMu    sync.Mutex
	tempFiles []string
)

// RegisterTempFile records a temporary file for CleanupTempFiles.
func RegisterTempFile(path string) {
	tempMu.Lock()
	defer tempMu.Unlock()
	tempFiles = append(tempFiles, path)
}

// CleanupTempFiles removes every registered temporary file that still exists.
// Call it from the process exit path.
func CleanupTempFiles() {
	tempMu.Lock()
	files := tempFiles
	tempFiles = nil
	tempMu.Unlock()
	for _, f := range files {
		os.Remove(f)
	}
}
