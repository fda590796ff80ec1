package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestArtifactName(t *testing.T) {
	moment := time.Date(2024, time.March, 5, 7, 8, 9, 123_000_000, time.FixedZone("plus2", 2*60*60))
	expected := "impromptu_prompt_2024_03_05T05_08_09_123Z.md"
	if name := ArtifactName(moment); name != expected {
		t.Fatalf("ArtifactName = %q, want %q", name, expected)
	}
}

func TestWriteArtifact(t *testing.T) {
	root := t.TempDir()
	moment := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

	path, err := WriteArtifact(root, "hello", moment)
	if err != nil {
		t.Fatalf("WriteArtifact error: %v", err)
	}
	if filepath.Dir(path) != root {
		t.Fatalf("artifact written outside root: %s", path)
	}
	data, readError := os.ReadFile(path)
	if readError != nil {
		t.Fatalf("read artifact: %v", readError)
	}
	if string(data) != "hello" {
		t.Fatalf("artifact content = %q", string(data))
	}
}

func TestWriteArtifactFailureNamesStep(t *testing.T) {
	missingRoot := filepath.Join(t.TempDir(), "missing")
	_, err := WriteArtifact(missingRoot, "hello", time.Now())
	if err == nil {
		t.Fatalf("expected error for missing root")
	}
	if !strings.HasPrefix(err.Error(), "write prompt artifact ") {
		t.Fatalf("error does not name the step: %v", err)
	}
}
