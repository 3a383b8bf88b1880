// Package cache implements the optional cross-invocation result store. It is
// the only shared state in the tool: a directory of JSON entries keyed by a
// scan-target fingerprint, written atomically and guarded per key against
// concurrent writers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	consts "github.com/hoangtm-lab/r2s-detect/internal/shared/constants"
	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
)

// Entry wraps a stored result with its invalidation data.
type Entry struct {
	Fingerprint string          `json:"fingerprint"`
	Target      string          `json:"target"`
	RulesetHash string          `json:"ruleset_hash"`
	CachedAt    time.Time       `json:"cached_at"`
	Result      json.RawMessage `json:"result"`
}

// Store is a directory-backed cache. The caller owns its lifecycle: open at
// scan start, use, and let it go out of scope; there is nothing to flush.
type Store struct {
	dir string
	mu  sync.RWMutex
}

func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Fingerprint derives the cache key for one scan: the normalized target, the
// ruleset hash, and a content hash of every discovered source file. Content
// hashing was chosen over mtimes so a fresh checkout with identical files
// still hits the cache, and any edited manifest misses it.
func Fingerprint(target, rulesetHash string, sourceFiles []string) string {
	files := append([]string(nil), sourceFiles...)
	sort.Strings(files)

	h := sha256.New()
	fmt.Fprintf(h, "target:%s\nruleset:%s\n", target, rulesetHash)
	for _, f := range files {
		fmt.Fprintf(h, "%s:%s\n", f, fileDigest(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fileDigest(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "unreadable"
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "unreadable"
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the stored entry for a fingerprint, or ErrCacheMiss.
func (s *Store) Get(fingerprint string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.entryPath(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrCacheMiss
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A torn or corrupt entry is a miss, not a failure.
		return nil, errs.ErrCacheMiss
	}
	return &e, nil
}

// Put stores an entry under its fingerprint. The write goes to a temp file
// first and is renamed into place, so readers only ever see complete entries.
// A lock file enforces single-writer-at-a-time per key across processes.
func (s *Store) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath := s.entryPath(e.Fingerprint) + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, consts.DefaultFilePerm)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", errs.ErrCacheLocked, e.Fingerprint)
		}
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	lock.Close()
	defer os.Remove(lockPath)

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.entryPath(e.Fingerprint)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) entryPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+".json")
}
