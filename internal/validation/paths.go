package validation

import (
	"os"
	"path/filepath"
)

// PathHandler provides secure path operations with validation
type PathHandler struct {
	validator *FilePathValidator
}

// NewSecurePathHandler creates a path handler with secure validation
func NewSecurePathHandler() *PathHandler {
	return &PathHandler{
		validator: NewFilePathValidator(),
	}
}

// NewPermissivePathHandler creates a path handler for user-supplied locations
func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{
		validator: NewPermissiveFilePathValidator(),
	}
}

func defaultPath(elem ...string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}

// GetSecureDBPath returns a validated database path, defaulting to ~/.fbrowse.db
func (ph *PathHandler) GetSecureDBPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".fbrowse.db")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// GetSecureConfigPath returns a validated configuration path
func (ph *PathHandler) GetSecureConfigPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".config", "fbrowse", "config.toml")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// GetSecureLogPath returns a validated log file path
func (ph *PathHandler) GetSecureLogPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".fbrowse", "fbrowse.log")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// ScratchDir returns (and creates) the directory used for files handed to
// external programs.
func (ph *PathHandler) ScratchDir() (string, error) {
	return ph.validator.ValidateDirectory(filepath.Join(os.TempDir(), "fbrowse"), true)
}

// ValidateImportDir validates a directory that records will be read from
func (ph *PathHandler) ValidateImportDir(path string) (string, error) {
	return ph.validator.ValidateExistingDirectory(path)
}

// EnsureSecureDirectory creates a directory safely after validation
func (ph *PathHandler) EnsureSecureDirectory(path string) (string, error) {
	return ph.validator.ValidateDirectory(path, true)
}
