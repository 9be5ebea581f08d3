// Package opener hands a record's content to an external program.
package opener

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pders01/fbrowse/internal/config"
	"github.com/pders01/fbrowse/internal/debuglog"
	"github.com/pders01/fbrowse/internal/storage"
	"github.com/pders01/fbrowse/internal/validation"
)

var ErrNoProgram = errors.New("no application found to open file")

type Launcher struct {
	programs      map[Kind]string
	defaultOpener string
	detector      *Detector

	scratchDir func() (string, error)
	start      func(name string, args ...string) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	detector, err := NewDetector()
	if err != nil {
		debuglog.Warnf("opener: %v, using built-in defaults", err)
		detector = &Detector{kinds: map[Kind][]string{}, languages: map[string]string{}, platforms: map[string]platformDef{}}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, ".config", "fbrowse", "kinds.toml")); err == nil {
			if err := detector.Merge(data); err != nil {
				debuglog.Warnf("opener: ignoring user kinds.toml: %v", err)
			}
		}
	}

	defaultOpener := cfg.Opener.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = detector.DefaultOpener()
	}

	l := &Launcher{
		programs:      make(map[Kind]string),
		defaultOpener: defaultOpener,
		detector:      detector,
		scratchDir:    validation.NewSecurePathHandler().ScratchDir,
		start:         startDetached,
	}

	candidates := map[Kind][]string{
		KindHTML:     cfg.Opener.HTML,
		KindMarkdown: cfg.Opener.Markdown,
		KindText:     cfg.Opener.Text,
	}
	for kind, names := range candidates {
		if program := findCommand(names...); program != "" {
			l.programs[kind] = program
		} else {
			l.programs[kind] = defaultOpener
		}
	}

	return l
}

// Detector exposes the kind table for callers that render content.
func (l *Launcher) Detector() *Detector {
	return l.detector
}

// Program returns the program that would open a record with this name.
func (l *Launcher) Program(name string) string {
	if p := l.programs[l.detector.Detect(name)]; p != "" {
		return p
	}
	return l.defaultOpener
}

// Open writes the record's content to a scratch file and starts the
// program for its kind on that file. It returns the file path.
func (l *Launcher) Open(rec storage.Record) (string, error) {
	program := l.Program(rec.Name)
	if program == "" {
		return "", ErrNoProgram
	}

	dir, err := l.scratchDir()
	if err != nil {
		return "", fmt.Errorf("preparing scratch directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "*-"+validation.SanitizeFileName(rec.Name))
	if err != nil {
		return "", fmt.Errorf("creating scratch file: %w", err)
	}
	path := f.Name()
	if _, err := f.WriteString(rec.Content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing scratch file: %w", err)
	}

	debuglog.WithFields(map[string]interface{}{
		"record":  rec.ID,
		"program": program,
	}).Debugf("opening %s", path)

	if err := l.start(program, path); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", program, err)
	}
	return path, nil
}

// startDetached starts a GUI program without waiting for it.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
