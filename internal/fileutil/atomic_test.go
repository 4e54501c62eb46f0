package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func assertOnlyEntry(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != name {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "table.h")
	testData := []byte("const uint8_t blackjack_winrates[22][2][10][12] = {};\n")

	if err := WriteFileAtomic(testFile, testData, 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("File content mismatch: got %q, want %q", string(data), string(testData))
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("File permissions mismatch: got %o, want %o", info.Mode().Perm(), 0644)
	}

	assertOnlyEntry(t, tmpDir, "table.h")
}

func TestWriteFileAtomicOverwrite(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "policy.json")

	if err := WriteFileAtomic(testFile, []byte("initial"), 0644); err != nil {
		t.Fatalf("Initial write failed: %v", err)
	}
	newData := []byte("updated content")
	if err := WriteFileAtomic(testFile, newData, 0644); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != string(newData) {
		t.Errorf("File content mismatch: got %q, want %q", string(data), string(newData))
	}
}

func TestCreateAtomicInvalidDir(t *testing.T) {
	t.Parallel()

	if _, err := CreateAtomic("/nonexistent/dir/table.h", 0644); err == nil {
		t.Error("Expected error when creating in non-existent directory")
	}
}

func TestCreateAtomicRejectsDirectory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	if _, err := CreateAtomic(tmpDir, 0644); err == nil {
		t.Error("Expected error when destination is a directory")
	}
}

func TestCreateAtomicStreamsAndCommits(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "table.csv")

	f, err := CreateAtomic(path, 0600)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	defer f.Abort()

	for i := 0; i < 22; i++ {
		if _, err := fmt.Fprintf(f, "row %d\n", i); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Destination visible before commit: %v", err)
	}

	if err := f.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if len(data) == 0 || string(data[:6]) != "row 0\n" {
		t.Errorf("Unexpected content %q", string(data))
	}
	if _, err := f.Write([]byte("late")); err == nil {
		t.Error("Expected error writing after commit")
	}
	if err := f.Commit(); err == nil {
		t.Error("Expected error committing twice")
	}
	assertOnlyEntry(t, tmpDir, "table.csv")
}

func TestAbortLeavesNothing(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "table.h")

	f, err := CreateAtomic(path, 0644)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	if _, err := f.Write([]byte("partial")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f.Abort()
	f.Abort()

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory after abort, found %d entries", len(entries))
	}
}
