// Package config loads impromptu settings from the global and workspace YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/impromptu/internal/assemble"
	"github.com/temirov/impromptu/internal/utils"
)

const configurationFileType = "yaml"

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the merged settings. Pointer and empty fields mean "unset".
type ApplicationConfiguration struct {
	Formatting FormattingConfiguration `mapstructure:"formatting"`
	Paths      PathConfiguration       `mapstructure:"paths"`
	State      StateConfiguration      `mapstructure:"state"`
	Tokens     TokenConfiguration      `mapstructure:"tokens"`
	Assembly   AssemblyConfiguration   `mapstructure:"assembly"`
	Clipboard  ClipboardConfiguration  `mapstructure:"clipboard"`
	Logging    LoggingConfiguration    `mapstructure:"logging"`
	Bridge     BridgeConfiguration     `mapstructure:"bridge"`
}

// FormattingConfiguration mirrors assemble.FormattingConfig plus the tree toggle.
type FormattingConfiguration struct {
	FileContentTemplate    *string `mapstructure:"file_content_template"`
	StartOfFilesHeader     *string `mapstructure:"start_of_files_header"`
	ProjectStructureHeader *string `mapstructure:"project_structure_header"`
	IncludeTree            *bool   `mapstructure:"include_tree"`
}

// PathConfiguration configures extra ignore rules.
type PathConfiguration struct {
	Exclude      []string `mapstructure:"exclude"`
	UseGitignore *bool    `mapstructure:"use_gitignore"`
}

// StateConfiguration locates the selection database.
type StateConfiguration struct {
	Directory string `mapstructure:"directory"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// AssemblyConfiguration tunes content assembly.
type AssemblyConfiguration struct {
	Concurrency *int `mapstructure:"concurrency"`
}

// ClipboardConfiguration controls whether generate copies by default.
type ClipboardConfiguration struct {
	Enabled *bool `mapstructure:"enabled"`
}

// LoggingConfiguration selects the zap level.
type LoggingConfiguration struct {
	Level string `mapstructure:"level"`
}

// BridgeConfiguration configures the local HTTP bridge.
type BridgeConfiguration struct {
	Address string `mapstructure:"address"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if options.ExplicitFilePath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Paths.Exclude = utils.DeduplicatePatterns(merged.Paths.Exclude)
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	absolute, err := filepath.Abs(filepath.Join(workingDirectory, explicitPath))
	if err != nil {
		return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
	}
	return absolute, nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType(configurationFileType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Formatting = result.Formatting.merge(override.Formatting)
	if len(override.Paths.Exclude) > 0 {
		result.Paths.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Paths.Exclude)...)
	}
	if override.Paths.UseGitignore != nil {
		result.Paths.UseGitignore = cloneBool(override.Paths.UseGitignore)
	}
	if override.State.Directory != "" {
		result.State.Directory = override.State.Directory
	}
	if override.Tokens.Enabled != nil {
		result.Tokens.Enabled = cloneBool(override.Tokens.Enabled)
	}
	if override.Tokens.Model != "" {
		result.Tokens.Model = override.Tokens.Model
	}
	if override.Assembly.Concurrency != nil {
		result.Assembly.Concurrency = cloneInt(override.Assembly.Concurrency)
	}
	if override.Clipboard.Enabled != nil {
		result.Clipboard.Enabled = cloneBool(override.Clipboard.Enabled)
	}
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Bridge.Address != "" {
		result.Bridge.Address = override.Bridge.Address
	}
	return result
}

func (config FormattingConfiguration) merge(override FormattingConfiguration) FormattingConfiguration {
	result := config
	if override.FileContentTemplate != nil {
		result.FileContentTemplate = cloneString(override.FileContentTemplate)
	}
	if override.StartOfFilesHeader != nil {
		result.StartOfFilesHeader = cloneString(override.StartOfFilesHeader)
	}
	if override.ProjectStructureHeader != nil {
		result.ProjectStructureHeader = cloneString(override.ProjectStructureHeader)
	}
	if override.IncludeTree != nil {
		result.IncludeTree = cloneBool(override.IncludeTree)
	}
	return result
}

// FormattingConfig resolves the assembler formatting, falling back to the defaults per field.
func (config FormattingConfiguration) FormattingConfig() assemble.FormattingConfig {
	resolved := assemble.DefaultFormattingConfig()
	if config.FileContentTemplate != nil {
		resolved.FileContentTemplate = *config.FileContentTemplate
	}
	if config.StartOfFilesHeader != nil {
		resolved.StartOfFilesHeader = *config.StartOfFilesHeader
	}
	if config.ProjectStructureHeader != nil {
		resolved.ProjectStructureHeader = *config.ProjectStructureHeader
	}
	return resolved
}

// BoolOrDefault dereferences value or returns fallback when unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// IntOrDefault dereferences value or returns fallback when unset.
func IntOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
