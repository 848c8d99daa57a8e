package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndLoadLatest(t *testing.T) {
	a := New(t.TempDir(), 5)

	t0 := time.Now().Add(-2 * time.Second)
	t1 := time.Now()
	if err := a.Write([]byte("old"), t0); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Write([]byte("new"), t1); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, ts, err := a.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if !bytes.Equal(data, []byte("new")) {
		t.Errorf("data = %q, want %q", data, "new")
	}
	if !ts.Equal(time.Unix(0, t1.UnixNano())) {
		t.Errorf("timestamp = %v, want %v", ts, t1)
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, 3)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 6; i++ {
		if err := a.Write([]byte{byte(i)}, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("archive has %d files after prune, want 3", len(entries))
	}

	// The newest file must have survived.
	data, _, err := a.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if !bytes.Equal(data, []byte{5}) {
		t.Errorf("latest data = %v, want [5]", data)
	}
}

func TestLoadLatest_Empty(t *testing.T) {
	a := New(t.TempDir(), 3)
	if _, _, err := a.LoadLatest(); err == nil {
		t.Fatal("expected error for empty archive")
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, 3)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "converted_garbage.csv"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := a.Write([]byte("real"), time.Now()); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, _, err := a.LoadLatest()
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}
	if !bytes.Equal(data, []byte("real")) {
		t.Errorf("data = %q, want %q", data, "real")
	}
}

func TestCheck(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "nested", "archive"), 3)
	if err := a.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
}
