package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	entry := Entry{
		Fingerprint: "abc123",
		Target:      "/project",
		RulesetHash: "hash",
		Result:      json.RawMessage(`{"status":"safe"}`),
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("abc123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Target != "/project" || string(got.Result) != `{"status":"safe"}` {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Get("missing"); !errors.Is(err, errs.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{torn"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := store.Get("bad"); !errors.Is(err, errs.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss for corrupt entry, got %v", err)
	}
}

func TestPutRefusesLockedKey(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// Simulate another writer holding the key.
	if err := os.WriteFile(filepath.Join(dir, "busy.json.lock"), nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	err = store.Put(Entry{Fingerprint: "busy", Result: json.RawMessage(`{}`)})
	if !errors.Is(err, errs.ErrCacheLocked) {
		t.Fatalf("expected ErrCacheLocked, got %v", err)
	}
}

func TestPutReplacesAtomically(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for _, payload := range []string{`{"n":1}`, `{"n":2}`} {
		if err := store.Put(Entry{Fingerprint: "key", Result: json.RawMessage(payload)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	got, err := store.Get("key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Result) != `{"n":2}` {
		t.Fatalf("expected latest payload, got %s", got.Result)
	}
}

func TestClear(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Put(Entry{Fingerprint: "key", Result: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Get("key"); !errors.Is(err, errs.ErrCacheMiss) {
		t.Fatalf("expected miss after Clear, got %v", err)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "package.json")
	if err := os.WriteFile(manifest, []byte(`{"dependencies":{}}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fp1 := Fingerprint("/project", "rules", []string{manifest})
	fp2 := Fingerprint("/project", "rules", []string{manifest})
	if fp1 != fp2 {
		t.Fatal("fingerprint of unchanged inputs differs")
	}

	if err := os.WriteFile(manifest, []byte(`{"dependencies":{"react":"19.0.0"}}`), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	if Fingerprint("/project", "rules", []string{manifest}) == fp1 {
		t.Fatal("fingerprint did not change with file content")
	}

	if Fingerprint("/project", "other-rules", []string{manifest}) == fp1 {
		t.Fatal("fingerprint did not change with ruleset")
	}
	if Fingerprint("/elsewhere", "rules", []string{manifest}) == fp1 {
		t.Fatal("fingerprint did not change with target")
	}
}
