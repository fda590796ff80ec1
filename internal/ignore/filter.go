// Package ignore decides which workspace paths are excluded from scanning and selection.
// Rules follow gitignore semantics: fixed defaults, then configured patterns, then the
// patterns of the workspace root .gitignore, with later patterns overriding earlier ones.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/utils"
)

const (
	directorySuffix        = "/"
	loadGitignoreErrorText = "load %s: %w"
)

// Options configures a Filter.
type Options struct {
	Logger             *zap.Logger
	AdditionalPatterns []string
	DisableGitignore   bool
}

// Filter answers "ignored?" for absolute paths under a workspace root.
type Filter struct {
	root    string
	options Options
	logger  *zap.Logger

	mutex    sync.RWMutex
	patterns []string
	matcher  *gitignore.GitIgnore
}

// NewFilter constructs a filter for root with only the default patterns compiled.
// Initialize loads the root .gitignore.
func NewFilter(root string, options Options) *Filter {
	filter := &Filter{
		root:    filepath.Clean(root),
		options: options,
		logger:  utils.LoggerOrNop(options.Logger),
	}
	filter.install(filter.basePatterns())
	return filter
}

// Root returns the workspace root the filter evaluates against.
func (filter *Filter) Root() string {
	return filter.root
}

// Initialize (re)reads <root>/.gitignore and recompiles the rule set.
// A missing .gitignore is not an error.
func (filter *Filter) Initialize() error {
	patterns := filter.basePatterns()
	if !filter.options.DisableGitignore {
		gitignorePath := filepath.Join(filter.root, utils.GitIgnoreFileName)
		gitignorePatterns, loadError := LoadIgnoreFilePatterns(gitignorePath, filter.logger)
		if loadError != nil {
			return fmt.Errorf(loadGitignoreErrorText, gitignorePath, loadError)
		}
		if gitignorePatterns == nil {
			filter.logger.Debug("no .gitignore found in workspace root", zap.String("root", filter.root))
		} else {
			filter.logger.Debug("loaded .gitignore rules", zap.Int("patterns", len(gitignorePatterns)))
		}
		patterns = append(patterns, gitignorePatterns...)
	}
	filter.install(patterns)
	return nil
}

// Patterns returns the ordered rule set currently in effect.
func (filter *Filter) Patterns() []string {
	filter.mutex.RLock()
	defer filter.mutex.RUnlock()
	return append([]string(nil), filter.patterns...)
}

// ShouldIgnore reports whether path is excluded. The root is never ignored and paths
// outside the root always are. A trailing separator marks path as a directory; otherwise
// the directory bit comes from the filesystem and a missing path is treated as a file.
func (filter *Filter) ShouldIgnore(path string) bool {
	isDirectory := strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, directorySuffix)
	if !isDirectory {
		if info, statError := os.Lstat(path); statError == nil {
			isDirectory = info.IsDir()
		}
	}
	return filter.ShouldIgnoreEntry(path, isDirectory)
}

// ShouldIgnoreEntry is the pure form of ShouldIgnore: the result depends only on the
// rule set, path and isDirectory.
func (filter *Filter) ShouldIgnoreEntry(path string, isDirectory bool) bool {
	cleanPath := filepath.Clean(path)
	if cleanPath == filter.root {
		return false
	}
	if !utils.IsWithinRoot(cleanPath, filter.root) {
		return true
	}
	relativePath := utils.RelativePathOrSelf(cleanPath, filter.root)
	if isDirectory {
		relativePath += directorySuffix
	}

	filter.mutex.RLock()
	matcher := filter.matcher
	filter.mutex.RUnlock()
	return matcher.MatchesPath(relativePath)
}

func (filter *Filter) basePatterns() []string {
	patterns := make([]string, 0, len(DefaultPatterns)+len(filter.options.AdditionalPatterns))
	patterns = append(patterns, DefaultPatterns...)
	patterns = append(patterns, filter.options.AdditionalPatterns...)
	return patterns
}

func (filter *Filter) install(patterns []string) {
	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, normalizePattern(trimmed))
	}
	matcher := gitignore.CompileIgnoreLines(normalized...)

	filter.mutex.Lock()
	filter.patterns = append([]string(nil), patterns...)
	filter.matcher = matcher
	filter.mutex.Unlock()
}
