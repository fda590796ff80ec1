package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/impromptu/internal/assemble"
	"github.com/temirov/impromptu/internal/tokenizer"
	"github.com/temirov/impromptu/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes <root>/.impromptu.yaml.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes ~/.impromptu/config.yaml.
	InitTargetGlobal InitTarget = "global"

	// DefaultBridgeAddress is the listen address written by init.
	DefaultBridgeAddress       = "127.0.0.1:7766"
	defaultAssemblyConcurrency = 8
	configurationDirectoryMode = 0o755
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// DefaultSettings returns every setting init writes, keyed by its dotted path. The
// values are the ones the workspace falls back to when a key is absent.
func DefaultSettings() map[string]interface{} {
	formatting := assemble.DefaultFormattingConfig()
	return map[string]interface{}{
		"formatting.file_content_template":    formatting.FileContentTemplate,
		"formatting.start_of_files_header":    formatting.StartOfFilesHeader,
		"formatting.project_structure_header": formatting.ProjectStructureHeader,
		"formatting.include_tree":             false,
		"paths.exclude":                       []string{},
		"paths.use_gitignore":                 true,
		"state.directory":                     "",
		"tokens.enabled":                      false,
		"tokens.model":                        tokenizer.DefaultModel,
		"assembly.concurrency":                defaultAssemblyConcurrency,
		"clipboard.enabled":                   false,
		"logging.level":                       utils.DefaultLogLevel,
		"bridge.address":                      DefaultBridgeAddress,
	}
}

// InitializeConfiguration writes DefaultSettings to the requested target and returns the
// file path. An existing file is replaced only with Force.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, resolveErr := initDestination(options)
	if resolveErr != nil {
		return "", resolveErr
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	writer := viper.New()
	writer.SetConfigType(configurationFileType)
	for key, value := range DefaultSettings() {
		writer.Set(key, value)
	}
	if err := writer.WriteConfigAs(destinationPath); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}
	return destinationPath, nil
}

func initDestination(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, configurationDirectoryMode); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		return filepath.Join(configurationDirectory, utils.GlobalConfigFileName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
