package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/temirov/impromptu/internal/utils"
)

type configTestCase struct {
	name             string
	globalContent    string
	localContent     string
	explicitPath     string
	explicitContent  string
	expectTemplate   string
	expectHeader     string
	expectIncludeOn  *bool
	expectExclude    []string
	expectModel      string
	expectClipboard  *bool
	expectLogLevel   string
	expectAddress    string
	expectStateDir   string
	expectConcurrent *int
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create config directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config %s: %v", path, err)
	}
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:            "local_overrides_global",
			globalContent:   "formatting:\n  file_content_template: \"# {filePath}\\n{fileContent}\"\n  start_of_files_header: \"Files:\"\nlogging:\n  level: debug\nclipboard:\n  enabled: true\n",
			localContent:    "formatting:\n  start_of_files_header: \"## Files\"\nclipboard:\n  enabled: false\nbridge:\n  address: 127.0.0.1:9000\n",
			expectTemplate:  "# {filePath}\n{fileContent}",
			expectHeader:    "## Files",
			expectLogLevel:  "debug",
			expectAddress:   "127.0.0.1:9000",
			expectClipboard: boolPointer(false),
		},
		{
			name:            "explicit_path_replaces_local",
			localContent:    "tokens:\n  model: ignored\n",
			explicitPath:    "custom.yaml",
			explicitContent: "tokens:\n  model: gpt-4\nformatting:\n  include_tree: true\n",
			expectModel:     "gpt-4",
			expectIncludeOn: boolPointer(true),
		},
		{
			name:             "paths_are_deduplicated",
			localContent:     "paths:\n  exclude:\n    - dist\n    - \" dist \"\n    - \"*.log\"\nstate:\n  directory: /tmp/impromptu-state\nassembly:\n  concurrency: 2\n",
			expectExclude:    []string{"dist", "*.log"},
			expectStateDir:   "/tmp/impromptu-state",
			expectConcurrent: intPointer(2),
		},
		{
			name: "no_files",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDirectory := t.TempDir()
			t.Setenv("HOME", homeDirectory)
			t.Setenv("USERPROFILE", homeDirectory)
			workingDirectory := t.TempDir()

			if testCase.globalContent != "" {
				writeConfigFile(t, filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), testCase.globalContent)
			}
			if testCase.localContent != "" {
				writeConfigFile(t, filepath.Join(workingDirectory, utils.ConfigFileName), testCase.localContent)
			}
			if testCase.explicitPath != "" {
				writeConfigFile(t, filepath.Join(workingDirectory, testCase.explicitPath), testCase.explicitContent)
			}

			loaded, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory, ExplicitFilePath: testCase.explicitPath})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}
			formatting := loaded.Formatting.FormattingConfig()
			if testCase.expectTemplate != "" && formatting.FileContentTemplate != testCase.expectTemplate {
				t.Fatalf("template = %q, want %q", formatting.FileContentTemplate, testCase.expectTemplate)
			}
			if formatting.StartOfFilesHeader != testCase.expectHeader {
				t.Fatalf("start header = %q, want %q", formatting.StartOfFilesHeader, testCase.expectHeader)
			}
			if !reflect.DeepEqual(loaded.Formatting.IncludeTree, testCase.expectIncludeOn) {
				t.Fatalf("include_tree = %v, want %v", loaded.Formatting.IncludeTree, testCase.expectIncludeOn)
			}
			if len(testCase.expectExclude) > 0 && !reflect.DeepEqual(loaded.Paths.Exclude, testCase.expectExclude) {
				t.Fatalf("exclude = %v, want %v", loaded.Paths.Exclude, testCase.expectExclude)
			}
			if loaded.Tokens.Model != testCase.expectModel {
				t.Fatalf("model = %q, want %q", loaded.Tokens.Model, testCase.expectModel)
			}
			if !reflect.DeepEqual(loaded.Clipboard.Enabled, testCase.expectClipboard) {
				t.Fatalf("clipboard = %v, want %v", loaded.Clipboard.Enabled, testCase.expectClipboard)
			}
			if loaded.Logging.Level != testCase.expectLogLevel {
				t.Fatalf("log level = %q, want %q", loaded.Logging.Level, testCase.expectLogLevel)
			}
			if loaded.Bridge.Address != testCase.expectAddress {
				t.Fatalf("address = %q, want %q", loaded.Bridge.Address, testCase.expectAddress)
			}
			if loaded.State.Directory != testCase.expectStateDir {
				t.Fatalf("state directory = %q, want %q", loaded.State.Directory, testCase.expectStateDir)
			}
			if !reflect.DeepEqual(loaded.Assembly.Concurrency, testCase.expectConcurrent) {
				t.Fatalf("concurrency = %v, want %v", loaded.Assembly.Concurrency, testCase.expectConcurrent)
			}
		})
	}
}

func TestLoadApplicationConfigurationMissingExplicitFile(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: t.TempDir(), ExplicitFilePath: "absent.yaml"})
	if err == nil || !strings.Contains(err.Error(), "read configuration from") {
		t.Fatalf("expected read configuration error, got %v", err)
	}
}

func TestLoadApplicationConfigurationRejectsInvalidYAML(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	workingDirectory := t.TempDir()
	writeConfigFile(t, filepath.Join(workingDirectory, utils.ConfigFileName), "formatting: [unterminated\n")
	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory})
	if err == nil || !strings.Contains(err.Error(), "read configuration from") {
		t.Fatalf("expected read configuration error, got %v", err)
	}
}

func TestMergeKeepsBaseWhenOverrideUnset(t *testing.T) {
	base := ApplicationConfiguration{
		Tokens:   TokenConfiguration{Enabled: boolPointer(true), Model: "gpt-4o"},
		Assembly: AssemblyConfiguration{Concurrency: intPointer(4)},
	}
	merged := base.Merge(ApplicationConfiguration{Tokens: TokenConfiguration{Enabled: boolPointer(false)}})
	if BoolOrDefault(merged.Tokens.Enabled, true) {
		t.Fatalf("expected override to disable tokens")
	}
	if merged.Tokens.Model != "gpt-4o" {
		t.Fatalf("model = %q, want gpt-4o", merged.Tokens.Model)
	}
	if IntOrDefault(merged.Assembly.Concurrency, 0) != 4 {
		t.Fatalf("concurrency = %v, want 4", merged.Assembly.Concurrency)
	}
	if merged.Tokens.Enabled == base.Tokens.Enabled {
		t.Fatalf("merge must not alias pointers")
	}
}
