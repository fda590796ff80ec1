package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/temirov/impromptu/internal/utils"
)

const (
	artifactFileMode          = 0o644
	errorWriteArtifactMessage = "write prompt artifact %s: %w"
)

// ArtifactName returns the file name of a prompt generated at now.
func ArtifactName(now time.Time) string {
	return utils.ArtifactFilePrefix + utils.FormatArtifactTimestamp(now) + utils.ArtifactFileExtension
}

// WriteArtifact writes content to a timestamped prompt file inside root and returns its path.
func WriteArtifact(root string, content string, now time.Time) (string, error) {
	artifactPath := filepath.Join(root, ArtifactName(now))
	if writeError := os.WriteFile(artifactPath, []byte(content), artifactFileMode); writeError != nil {
		return "", fmt.Errorf(errorWriteArtifactMessage, artifactPath, writeError)
	}
	return artifactPath, nil
}
