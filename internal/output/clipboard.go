package output

import (
	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// ClipboardPublisher implements Copier using github.com/atotto/clipboard.
type ClipboardPublisher struct{}

// NewClipboardPublisher constructs the system clipboard publisher.
func NewClipboardPublisher() *ClipboardPublisher {
	return &ClipboardPublisher{}
}

// Copy writes text to the system clipboard.
func (publisher *ClipboardPublisher) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// ClipboardAvailable reports whether a clipboard utility was found on this system.
func ClipboardAvailable() bool {
	return !clipboard.Unsupported
}

var _ Copier = (*ClipboardPublisher)(nil)
