// Package boundary manages the prepend and append files that bracket an assembled prompt.
package boundary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/utils"
)

// Kind names one of the two boundary files.
type Kind string

const (
	// KindPrepend is the file placed before the assembled files.
	KindPrepend Kind = "prepend"
	// KindAppend is the file placed after the assembled files.
	KindAppend Kind = "append"
)

const (
	// DefaultPrependContent seeds a newly created prepend file.
	DefaultPrependContent = "# Prepend Content\n\n"
	// DefaultAppendContent seeds a newly created append file.
	DefaultAppendContent = "\n\n# Append Content"

	boundaryFileMode = 0o644

	warningCreateBoundaryMessage = "unable to create boundary file"
	errorUnknownKindFormat       = "unknown boundary kind %q"
	errorReadBoundaryFormat      = "read boundary file %s: %w"
	errorCreateBoundaryFormat    = "create boundary file %s: %w"
)

// Content holds the text of both boundary files.
type Content struct {
	Prepend string
	Append  string
}

// Files resolves boundary files inside a workspace root.
type Files struct {
	Root   string
	Logger *zap.Logger
}

// ParseKind accepts "prepend" or "append".
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindPrepend, KindAppend:
		return Kind(value), nil
	default:
		return "", fmt.Errorf(errorUnknownKindFormat, value)
	}
}

// Path returns the absolute location of the boundary file of kind.
func (files Files) Path(kind Kind) string {
	if kind == KindAppend {
		return filepath.Join(files.Root, utils.AppendFileName)
	}
	return filepath.Join(files.Root, utils.PrependFileName)
}

// DefaultContent returns the seed text for kind.
func DefaultContent(kind Kind) string {
	if kind == KindAppend {
		return DefaultAppendContent
	}
	return DefaultPrependContent
}

// IsBoundaryPath reports whether path is one of the two boundary files.
func (files Files) IsBoundaryPath(path string) bool {
	cleaned := filepath.Clean(path)
	return cleaned == files.Path(KindPrepend) || cleaned == files.Path(KindAppend)
}

// Load reads both boundary files. A missing file yields its default content and is
// created on disk; failing to create it is only a warning.
func (files Files) Load() (Content, error) {
	prependContent, prependError := files.read(KindPrepend)
	if prependError != nil {
		return Content{}, prependError
	}
	appendContent, appendError := files.read(KindAppend)
	if appendError != nil {
		return Content{}, appendError
	}
	return Content{Prepend: prependContent, Append: appendContent}, nil
}

// Ensure creates the boundary file of kind with its default content when absent and returns its path.
func (files Files) Ensure(kind Kind) (string, error) {
	path := files.Path(kind)
	_, statError := os.Stat(path)
	if statError == nil {
		return path, nil
	}
	if !errors.Is(statError, fs.ErrNotExist) {
		return "", fmt.Errorf(errorReadBoundaryFormat, path, statError)
	}
	if writeError := os.WriteFile(path, []byte(DefaultContent(kind)), boundaryFileMode); writeError != nil {
		return "", fmt.Errorf(errorCreateBoundaryFormat, path, writeError)
	}
	return path, nil
}

func (files Files) read(kind Kind) (string, error) {
	path := files.Path(kind)
	data, readError := os.ReadFile(path)
	if readError == nil {
		return string(data), nil
	}
	if !errors.Is(readError, fs.ErrNotExist) {
		return "", fmt.Errorf(errorReadBoundaryFormat, path, readError)
	}
	if _, ensureError := files.Ensure(kind); ensureError != nil {
		utils.LoggerOrNop(files.Logger).Warn(warningCreateBoundaryMessage, zap.String("path", path), zap.Error(ensureError))
	}
	return DefaultContent(kind), nil
}
