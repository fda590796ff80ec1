package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

// Workspace file names shared by the filter, boundary files and the artifact writer.
const (
	// GitIgnoreFileName is the name of the Git ignore file read from the workspace root.
	GitIgnoreFileName = ".gitignore"
	// PrependFileName is the boundary file placed before the assembled files.
	PrependFileName = ".prepend.md"
	// AppendFileName is the boundary file placed after the assembled files.
	AppendFileName = ".append.md"
	// ArtifactFilePrefix starts the name of every generated prompt file.
	ArtifactFilePrefix = "impromptu_prompt_"
	// ArtifactFileExtension ends the name of every generated prompt file.
	ArtifactFileExtension = ".md"
	// ConfigFileName is the workspace-local configuration file.
	ConfigFileName = ".impromptu.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".impromptu"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// StateDirectoryName is the directory under the user cache directory holding persisted selections.
	StateDirectoryName = "impromptu"
)

// Process level messages used by the entry point.
const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes a fatal command failure.
	ApplicationExecutionFailedMessage = "impromptu failed"
)
