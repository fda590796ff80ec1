package workspace

// FileEventKind classifies a filesystem notification.
type FileEventKind int

const (
	// FileCreated reports a new file or directory.
	FileCreated FileEventKind = iota
	// FileChanged reports modified contents of an existing entry.
	FileChanged
	// FileDeleted reports a removed or renamed-away entry.
	FileDeleted
)

var fileEventKindNames = map[FileEventKind]string{
	FileCreated: "create",
	FileChanged: "change",
	FileDeleted: "delete",
}

func (kind FileEventKind) String() string {
	if name, known := fileEventKindNames[kind]; known {
		return name
	}
	return "unknown"
}

// FileEvent is one discrete change to a path under the workspace root.
type FileEvent struct {
	Path string
	Kind FileEventKind
}
