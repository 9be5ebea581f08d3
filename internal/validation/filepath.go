package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilePathValidator provides secure file path validation and sanitization
type FilePathValidator struct {
	// AllowedBaseDirs restricts file operations to specific base directories
	AllowedBaseDirs []string
	// AllowHomeExpansion determines if tilde expansion is permitted
	AllowHomeExpansion bool
	// AllowRelativePaths determines if relative paths are permitted
	AllowRelativePaths bool
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

// NewFilePathValidator creates a new validator with secure defaults
func NewFilePathValidator() *FilePathValidator {
	homeDir, _ := os.UserHomeDir()
	return &FilePathValidator{
		AllowedBaseDirs: []string{
			filepath.Join(homeDir, ".fbrowse"),
			filepath.Join(homeDir, ".config", "fbrowse"),
			os.TempDir(),
		},
		AllowHomeExpansion: true,
		AllowRelativePaths: false,
		MaxPathLength:      4096,
	}
}

// NewPermissiveFilePathValidator creates a validator for development/testing
func NewPermissiveFilePathValidator() *FilePathValidator {
	return &FilePathValidator{
		AllowedBaseDirs:    []string{}, // Empty means allow all directories
		AllowHomeExpansion: true,
		AllowRelativePaths: true,
		MaxPathLength:      4096,
	}
}

// dangerousSequences are rejected anywhere in a raw path.
var dangerousSequences = []string{"../", "..\\", "./", "//", "\\\\"}

// ValidateAndSanitize checks path and returns it cleaned, with a leading
// ~/ expanded and, unless relative paths are allowed, made absolute.
func (v *FilePathValidator) ValidateAndSanitize(path string) (string, error) {
	switch {
	case path == "":
		return "", errors.New("path cannot be empty")
	case len(path) > v.MaxPathLength:
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	case strings.ContainsRune(path, 0):
		return "", errors.New("path contains null bytes")
	case strings.ContainsFunc(path, func(r rune) bool { return r < 32 && r != '\t' }):
		return "", errors.New("path contains control characters")
	}
	for _, seq := range dangerousSequences {
		if strings.Contains(path, seq) {
			return "", fmt.Errorf("path contains dangerous sequence: %s", seq)
		}
	}

	expanded, err := v.expand(path)
	if err != nil {
		return "", fmt.Errorf("path normalization failed: %w", err)
	}
	clean := filepath.Clean(expanded)

	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return "", errors.New("directory traversal not allowed")
		}
	}

	if err := v.validateBaseDirs(clean); err != nil {
		return "", err
	}
	return clean, nil
}

func (v *FilePathValidator) expand(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		if !v.AllowHomeExpansion || !strings.HasPrefix(path, "~/") {
			return "", errors.New("tilde expansion not allowed or invalid tilde usage")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if !v.AllowRelativePaths && !filepath.IsAbs(path) {
		return filepath.Abs(path)
	}
	return path, nil
}

// validateBaseDirs requires path to sit under one of AllowedBaseDirs. An
// empty list allows everything.
func (v *FilePathValidator) validateBaseDirs(path string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	for _, base := range v.AllowedBaseDirs {
		baseAbs, err := filepath.Abs(base)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(baseAbs, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return nil
		}
	}
	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}

// ValidateDirectory ensures a directory path is safe. A missing directory is
// created when createIfNotExist is set and accepted as-is otherwise.
func (v *FilePathValidator) ValidateDirectory(path string, createIfNotExist bool) (string, error) {
	validatedPath, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(validatedPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !createIfNotExist {
			return validatedPath, nil
		}
		if mkErr := os.MkdirAll(validatedPath, 0o755); mkErr != nil {
			return "", fmt.Errorf("failed to create directory: %w", mkErr)
		}
	case err != nil:
		return "", fmt.Errorf("checking directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", validatedPath)
	}

	return validatedPath, nil
}

// ValidateExistingDirectory is ValidateDirectory for a directory that must
// already exist, such as the source of an import.
func (v *FilePathValidator) ValidateExistingDirectory(path string) (string, error) {
	validatedPath, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(validatedPath)
	if err != nil {
		return "", fmt.Errorf("checking directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path exists but is not a directory: %s", validatedPath)
	}
	return validatedPath, nil
}

// ValidateFile ensures a file path is safe for read/write operations
func (v *FilePathValidator) ValidateFile(path string) (string, error) {
	validatedPath, err := v.ValidateAndSanitize(path)
	if err != nil {
		return "", err
	}

	// Ensure parent directory is also within allowed paths
	parentDir := filepath.Dir(validatedPath)
	// Just validate the parent path is within allowed directories
	if err := v.validateBaseDirs(parentDir); err != nil {
		return "", fmt.Errorf("parent directory not allowed: %w", err)
	}

	// Check if file exists and is actually a file (not a directory)
	if info, err := os.Stat(validatedPath); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("path is a directory, not a file: %s", validatedPath)
		}
	}

	return validatedPath, nil
}

// SanitizeFileName reduces a record name to a single safe path element.
// Separators, control characters and leading dots are replaced; an empty
// result becomes "untitled".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(filepath.ToSlash(name)))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 32 || r == 0x7f:
			continue
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "untitled"
	}
	const maxName = 200
	if len(out) > maxName {
		ext := filepath.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:maxName-len(ext)] + ext
	}
	return out
}
