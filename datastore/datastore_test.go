package datastore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openTemp(t *testing.T) (*DataStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	ds, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error = %v", err)
	}
	return ds, path
}

func TestCreatesEmptyFile(t *testing.T) {
	_, path := openTemp(t)
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "{}" {
		t.Fatalf("file = %q, %v", b, err)
	}
}

func TestRoundTripThroughDisk(t *testing.T) {
	ds, path := openTemp(t)
	if err := ds.Set("g1", entry{Name: "a", Count: 2}); err != nil {
		t.Fatal(err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0
	reopened, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	var got entry
	ok, err := reopened.Decode("g1", &got)
	if !ok || err != nil {
		t.Fatalf("Decode() = %v, %v", ok, err)
	}
	if got != (entry{Name: "a", Count: 2}) {
		t.Fatalf("got %+v", got)
	}
	if keys := reopened.Keys(); len(keys) != 1 || keys[0] != "g1" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestSaveSkipsUnchanged(t *testing.T) {
	ds, path := openTemp(t)
	defer ds.Close()
	_ = ds.Set("k", 1)
	if err := ds.Save(); err != nil {
		t.Fatal(err)
	}
	before, _ := os.Stat(path)
	// Remove the file: an unchanged store must not rewrite it.
	os.Remove(path)
	if err := ds.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unchanged save rewrote the file (was %d bytes)", before.Size())
	}
}

func TestClosedStore(t *testing.T) {
	ds, _ := openTemp(t)
	ds.Close()
	if err := ds.Set("k", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after Close = %v", err)
	}
	if _, ok := ds.Get("k"); ok {
		t.Fatal("Get after Close should miss")
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := New(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
