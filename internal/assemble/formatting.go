// Package assemble builds the merged prompt document and estimates its size.
package assemble

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// PathPlaceholder is replaced by the root-relative path of each file.
	PathPlaceholder = "{filePath}"
	// ContentPlaceholder is replaced by the contents of each file.
	ContentPlaceholder = "{fileContent}"
	// DefaultFileContentTemplate renders the path on one line followed by the contents.
	DefaultFileContentTemplate = PathPlaceholder + "\n" + ContentPlaceholder

	fileContentTemplateSetting   = "file_content_template"
	configurationErrorFormat     = "invalid %s: missing placeholder %s"
	blockSeparator               = "\n\n"
	treeFenceOpening             = "```\n"
	treeFenceClosing             = "```"
	invalidUTF8Replacement       = "\uFFFD"
	blockSeparatorCharacterCount = 2
)

// FormattingConfig holds the user-controlled strings that shape the document.
type FormattingConfig struct {
	FileContentTemplate    string
	StartOfFilesHeader     string
	ProjectStructureHeader string
}

// DefaultFormattingConfig returns the default template with no headers.
func DefaultFormattingConfig() FormattingConfig {
	return FormattingConfig{FileContentTemplate: DefaultFileContentTemplate}
}

// ConfigurationError reports a formatting setting that cannot be used.
type ConfigurationError struct {
	Setting             string
	MissingPlaceholders []string
}

func (configurationError *ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorFormat, configurationError.Setting, strings.Join(configurationError.MissingPlaceholders, ", "))
}

// Validate checks that the file template carries both placeholders.
func (config FormattingConfig) Validate() error {
	var missing []string
	if !strings.Contains(config.FileContentTemplate, PathPlaceholder) {
		missing = append(missing, PathPlaceholder)
	}
	if !strings.Contains(config.FileContentTemplate, ContentPlaceholder) {
		missing = append(missing, ContentPlaceholder)
	}
	if len(missing) > 0 {
		return &ConfigurationError{Setting: fileContentTemplateSetting, MissingPlaceholders: missing}
	}
	return nil
}

// fileTemplate is a validated template split around the first occurrence of each placeholder.
// Later occurrences stay literal.
type fileTemplate struct {
	leading     string
	middle      string
	trailing    string
	pathIsFirst bool
	fixedLength int
}

func compileFileTemplate(rawTemplate string) fileTemplate {
	template := normalizeText(rawTemplate)
	pathIndex := strings.Index(template, PathPlaceholder)
	contentIndex := strings.Index(template, ContentPlaceholder)
	compiled := fileTemplate{pathIsFirst: pathIndex < contentIndex}
	if compiled.pathIsFirst {
		compiled.leading = template[:pathIndex]
		compiled.middle = template[pathIndex+len(PathPlaceholder) : contentIndex]
		compiled.trailing = template[contentIndex+len(ContentPlaceholder):]
	} else {
		compiled.leading = template[:contentIndex]
		compiled.middle = template[contentIndex+len(ContentPlaceholder) : pathIndex]
		compiled.trailing = template[pathIndex+len(PathPlaceholder):]
	}
	compiled.fixedLength = runeCount(compiled.leading) + runeCount(compiled.middle) + runeCount(compiled.trailing)
	return compiled
}

func (template fileTemplate) render(relativePath string, content string) string {
	if template.pathIsFirst {
		return template.leading + relativePath + template.middle + content + template.trailing
	}
	return template.leading + content + template.middle + relativePath + template.trailing
}

func (template fileTemplate) length(relativePath string, contentCharacters int) int {
	return template.fixedLength + runeCount(relativePath) + contentCharacters
}

// shell renders the template without content, used for token estimates.
func (template fileTemplate) shell(relativePath string) string {
	return template.render(relativePath, "")
}

func normalizeText(text string) string {
	return strings.ToValidUTF8(text, invalidUTF8Replacement)
}

func runeCount(text string) int {
	return utf8.RuneCountInString(text)
}

func fenceTree(tree string) string {
	return treeFenceOpening + tree + treeFenceClosing
}
