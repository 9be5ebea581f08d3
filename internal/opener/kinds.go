package opener

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed kinds.toml
var kindsTOML []byte

type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindMarkdown
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindMarkdown:
		return "markdown"
	default:
		return "text"
	}
}

type kindDef struct {
	Extensions []string `toml:"extensions"`
}

type platformDef struct {
	DefaultOpener string `toml:"default_opener"`
}

type kindsFile struct {
	Kinds     map[string]kindDef     `toml:"kinds"`
	Languages map[string]string      `toml:"languages"`
	Platforms map[string]platformDef `toml:"platforms"`
}

// Detector maps record names to content kinds and highlight languages.
type Detector struct {
	kinds     map[Kind][]string
	languages map[string]string
	platforms map[string]platformDef
}

// NewDetector loads the built-in kinds table.
func NewDetector() (*Detector, error) {
	d := &Detector{
		kinds:     make(map[Kind][]string),
		languages: make(map[string]string),
		platforms: make(map[string]platformDef),
	}
	if err := d.Merge(kindsTOML); err != nil {
		return nil, fmt.Errorf("parsing kinds.toml: %w", err)
	}
	return d, nil
}

// Merge layers another kinds table over the current one. Entries in data
// replace existing entries with the same key.
func (d *Detector) Merge(data []byte) error {
	var file kindsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return err
	}
	for name, def := range file.Kinds {
		kind, ok := parseKind(name)
		if !ok {
			return fmt.Errorf("unknown kind %q", name)
		}
		exts := make([]string, 0, len(def.Extensions))
		for _, e := range def.Extensions {
			exts = append(exts, normalizeExt(e))
		}
		d.kinds[kind] = exts
	}
	for ext, lang := range file.Languages {
		d.languages[normalizeExt(ext)] = lang
	}
	for name, p := range file.Platforms {
		d.platforms[name] = p
	}
	return nil
}

func parseKind(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "html":
		return KindHTML, true
	case "markdown":
		return KindMarkdown, true
	case "text":
		return KindText, true
	}
	return KindText, false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func extOf(name string) string {
	return normalizeExt(filepath.Ext(name))
}

// Detect returns the kind for a record name. Unknown extensions are text.
func (d *Detector) Detect(name string) Kind {
	ext := extOf(name)
	if ext == "" {
		return KindText
	}
	for _, kind := range []Kind{KindHTML, KindMarkdown, KindText} {
		if slices.Contains(d.kinds[kind], ext) {
			return kind
		}
	}
	return KindText
}

// Language returns the highlight language for a record name, or "".
func (d *Detector) Language(name string) string {
	return d.languages[extOf(name)]
}

func (d *Detector) DefaultOpener() string {
	if p, ok := d.platforms[runtime.GOOS]; ok && p.DefaultOpener != "" {
		return p.DefaultOpener
	}
	if p, ok := d.platforms["fallback"]; ok && p.DefaultOpener != "" {
		return p.DefaultOpener
	}
	return "open"
}
