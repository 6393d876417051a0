package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"patrol.module/internal/errors"
)

// Validate runs ValidateConfig and reports a failure as a configuration
// fault, keeping the ConfigError as its cause.
func Validate(cfg *Config) error {
	err := ValidateConfig(cfg)
	if ce, ok := err.(*ConfigError); ok {
		return errors.NewConfigValidationError(ce.Field, ce.Value, ce.Message).WithCause(ce)
	}
	return err
}

// ValidateConfig checks the loaded configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.Verbosity < 0 {
		return NewConfigError("verbosity", fmt.Sprint(cfg.Verbosity), "cannot be negative")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return NewConfigError("log_format", cfg.LogFormat, "must be one of: text, json")
	}
	if cfg.MaxLogEntries <= 0 {
		return NewConfigError("max_log_entries", fmt.Sprint(cfg.MaxLogEntries), "must be positive")
	}
	if cfg.CrashReporting {
		if err := ValidateDirectoryPath(cfg.DumpPath, "dump"); err != nil {
			return NewConfigError("dump_path", cfg.DumpPath, err.Error())
		}
	}
	if cfg.LogFile != "" {
		if err := ValidateFilePath(cfg.LogFile, "log file"); err != nil {
			return NewConfigError("log_file", cfg.LogFile, err.Error())
		}
	}
	return nil
}

// ValidateFilePath checks that a file path is usable: no traversal elements
// and an existing parent directory.
func ValidateFilePath(filePath string, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	cleanPath := filepath.Clean(filePath)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%s path contains invalid path traversal elements", description)
	}

	stat, err := os.Stat(cleanPath)
	if err == nil {
		if stat.IsDir() {
			return fmt.Errorf("%s path points to a directory, not a file: %s", description, cleanPath)
		}
		return nil
	}

	dirPath := filepath.Dir(cleanPath)
	if _, dirErr := os.Stat(dirPath); os.IsNotExist(dirErr) {
		return fmt.Errorf("%s directory does not exist: %s", description, dirPath)
	}
	return nil
}

// ValidateDirectoryPath checks that a directory exists, or can be created
// inside an existing parent.
func ValidateDirectoryPath(dirPath string, description string) error {
	if dirPath == "" {
		return fmt.Errorf("%s directory path cannot be empty", description)
	}

	cleanPath := filepath.Clean(dirPath)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%s directory path contains invalid path traversal elements", description)
	}

	stat, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		if _, parentErr := os.Stat(filepath.Dir(cleanPath)); parentErr != nil {
			return fmt.Errorf("%s directory does not exist: %s", description, cleanPath)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access %s directory: %v", description, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s path is not a directory: %s", description, cleanPath)
	}
	return nil
}
