package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxLineBytes bounds a single session line on read. Tool results are
// truncated well below this before they are appended.
const maxLineBytes = 1 << 20

// Manager hands out stores keyed by path so concurrent handlers for the same
// session share one in-process lock. Cross-process exclusion is the advisory
// file lock taken per mutation.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates an empty store manager.
func NewManager() *Manager {
	return &Manager{stores: make(map[string]*Store)}
}

// Open returns the store for path, creating it on first use. The file itself
// is created lazily on first append.
func (m *Manager) Open(path string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[path]; ok {
		return s
	}
	s := &Store{path: path}
	m.stores[path] = s
	return s
}

// Store is one append-only JSONL session log.
type Store struct {
	path string

	// turnMu serializes whole turns on this session. The runtime holds it
	// from PREPARE to FINALIZE.
	turnMu sync.Mutex

	// mu serializes individual mutations within this process.
	mu     sync.Mutex
	lastTS int64
}

// Path returns the session file path.
func (s *Store) Path() string { return s.path }

// Lock takes the per-session turn lock.
func (s *Store) Lock() { s.turnMu.Lock() }

// Unlock releases the per-session turn lock.
func (s *Store) Unlock() { s.turnMu.Unlock() }

// Append writes one entry as a single JSONL line under the advisory file
// lock. Timestamps are clamped so ts_ms never decreases within the file.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastTS == 0 {
		if last, ok := s.lastTimestampLocked(); ok {
			s.lastTS = last
		}
	}
	if e.TSMillis == 0 {
		e.TSMillis = time.Now().UnixMilli()
	}
	if e.TSMillis < s.lastTS {
		e.TSMillis = s.lastTS
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode session entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if err := flockExclusive(f); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer funlock(f)

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append session entry: %w", err)
	}
	s.lastTS = e.TSMillis
	return nil
}

// Load reads the last n entries in order, or all entries when n <= 0. Reads
// take no lock; a torn trailing line from a concurrent append is skipped.
func (s *Store) Load(n int) ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || !e.Type.valid() {
			// Tolerate a torn or corrupt line rather than failing the load.
			// The file is never auto-truncated over it.
			slog.Warn("skipping corrupt session line", "session", s.path)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Prune truncates the log to its last keep entries via write-temp + rename so
// readers never observe a partially written file.
func (s *Store) Prune(keep int) error {
	if keep <= 0 {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Hold the file lock across load and rename so a concurrent append from
	// another process cannot land between the read and the replacement.
	f, err := os.OpenFile(s.path, os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if err := flockExclusive(f); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer funlock(f)

	entries, err := s.Load(0)
	if err != nil {
		return err
	}
	if len(entries) <= keep {
		return nil
	}
	entries = entries[len(entries)-keep:]

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-prune-*")
	if err != nil {
		return fmt.Errorf("create prune temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encode session entry: %w", err)
		}
		if _, err := tmp.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("write prune temp: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prune temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod prune temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear truncates the session to zero entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if err := flockExclusive(f); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer funlock(f)

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate session file: %w", err)
	}
	s.lastTS = 0
	return nil
}

// Delete removes the session file.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session file: %w", err)
	}
	s.lastTS = 0
	return nil
}

// CheckIdleReset clears the session and reports true when its last entry is
// older than minutes. A non-positive minutes disables the check.
func (s *Store) CheckIdleReset(minutes int) (bool, error) {
	if minutes <= 0 {
		return false, nil
	}
	last, ok := s.lastTimestamp()
	if !ok {
		return false, nil
	}
	idle := time.Since(time.UnixMilli(last))
	if idle < time.Duration(minutes)*time.Minute {
		return false, nil
	}
	if err := s.Clear(); err != nil {
		return false, err
	}
	return true, nil
}

// MetaValue returns the most recent meta entry value for key.
func (s *Store) MetaValue(key string) (string, bool) {
	entries, err := s.Load(0)
	if err != nil {
		return "", false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == EntryMeta {
			if v, ok := entries[i].Meta[key]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// SetMeta appends a meta entry carrying one key/value pair.
func (s *Store) SetMeta(key, value string) error {
	return s.Append(MetaEntry(map[string]string{key: value}))
}

func (s *Store) lastTimestamp() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTimestampLocked()
}

func (s *Store) lastTimestampLocked() (int64, bool) {
	entries, err := s.Load(0)
	if err != nil || len(entries) == 0 {
		return 0, false
	}
	return entries[len(entries)-1].TSMillis, true
}
