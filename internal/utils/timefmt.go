package utils

import (
	"strings"
	"time"
)

const (
	// artifactTimestampLayout mirrors an ISO-8601 UTC timestamp with millisecond precision.
	artifactTimestampLayout = "2006-01-02T15:04:05.000Z"
)

var artifactTimestampReplacer = strings.NewReplacer(":", "_", ".", "_", "-", "_")

// FormatArtifactTimestamp renders value in UTC with every ':', '.' and '-' replaced by '_',
// producing a file-name-safe stamp such as 2024_01_02T15_04_05_000Z.
func FormatArtifactTimestamp(value time.Time) string {
	return artifactTimestampReplacer.Replace(value.UTC().Format(artifactTimestampLayout))
}
