package ignore

import (
	"bufio"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	negationPrefix       = "!"
	escapedNegation      = `\!`
	anchorPrefix         = "/"
	recursiveWildcardDir = "**/"
	trailingRecursiveDir = "/**/"
	directoryMarker      = "/"
	commentPrefix        = "#"
	escapeCharacter      = '\\'
	singleCharWildcard   = '?'
	// go-gitignore escapes a bare "?" and anchors any pattern holding "/" and "*.",
	// so the class spells "/" as a hex escape.
	singleCharClass = `[^\x2f]`
	literalQuestion = "[?]"
)

// DefaultPatterns always apply, ahead of configured and .gitignore patterns.
var DefaultPatterns = []string{
	// version control and editor directories
	".git",
	".svn",
	".hg",
	".vscode",
	".idea",
	// OS artifacts
	".DS_Store",
	"Thumbs.db",
	"node_modules",
	"*.log",
	// binary and image formats
	"*.jpeg",
	"*.jpg",
	"*.ico",
	"*.png",
	"*.svg",
	"*.gif",
	"*.webp",
	"*.pdf",
	"*.zip",
	"*.exe",
	// files owned by impromptu itself
	".prepend.md",
	".append.md",
	"impromptu_prompt_*.md",
	".impromptu.yaml",
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns in file order.
// Blank lines and comments are skipped. A missing file yields no patterns and no error.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string, logger *zap.Logger) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil && logger != nil {
			logger.Warn("failed to close ignore file", zap.String("path", ignoreFilePath), zap.Error(closeError))
		}
	}()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// normalizePattern rewrites a gitignore line into the form go-gitignore matches the way
// git does. A slash before the last character anchors the pattern to the root, a
// trailing "/**/" matches the directory itself, and "?" matches one non-slash character.
func normalizePattern(pattern string) string {
	prefix := ""
	body := pattern
	if strings.HasPrefix(body, negationPrefix) {
		prefix = negationPrefix
		body = body[len(negationPrefix):]
	} else if strings.HasPrefix(body, escapedNegation) {
		return pattern
	}
	if body == "" {
		return pattern
	}
	if !strings.HasPrefix(body, anchorPrefix) && !strings.HasPrefix(body, recursiveWildcardDir) &&
		strings.Contains(strings.TrimSuffix(body, directoryMarker), directoryMarker) {
		body = anchorPrefix + body
	}
	if len(body) > len(trailingRecursiveDir) && strings.HasSuffix(body, trailingRecursiveDir) {
		body = strings.TrimSuffix(body, trailingRecursiveDir) + directoryMarker
	}
	return prefix + rewriteSingleCharWildcards(body)
}

func rewriteSingleCharWildcards(body string) string {
	if !strings.ContainsRune(body, singleCharWildcard) {
		return body
	}
	var builder strings.Builder
	for index := 0; index < len(body); index++ {
		character := body[index]
		switch {
		case character == escapeCharacter && index+1 < len(body) && body[index+1] == singleCharWildcard:
			builder.WriteString(literalQuestion)
			index++
		case character == escapeCharacter && index+1 < len(body):
			builder.WriteByte(character)
			builder.WriteByte(body[index+1])
			index++
		case character == singleCharWildcard:
			builder.WriteString(singleCharClass)
		default:
			builder.WriteByte(character)
		}
	}
	return builder.String()
}
