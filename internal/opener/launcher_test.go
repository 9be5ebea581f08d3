package opener

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/fbrowse/internal/config"
	"github.com/pders01/fbrowse/internal/storage"
)

func TestDetect(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	tests := []struct {
		name string
		want Kind
	}{
		{"index.html", KindHTML},
		{"INDEX.HTM", KindHTML},
		{"README.md", KindMarkdown},
		{"notes.markdown", KindMarkdown},
		{"server.log", KindText},
		{"style.css", KindText},
		{"Makefile", KindText},
		{"archive.tar.gz", KindText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Detect(tt.name), tt.name)
	}
}

func TestLanguage(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	assert.Equal(t, "html", d.Language("page.HTML"))
	assert.Equal(t, "javascript", d.Language("app.js"))
	assert.Equal(t, "markdown", d.Language("doc.md"))
	assert.Empty(t, d.Language("unknown.xyz"))
	assert.Empty(t, d.Language("noext"))
}

func TestMerge(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	require.NoError(t, d.Merge([]byte(`
[kinds.markdown]
extensions = [".md", "rst"]

[languages]
rst = "rst"
`)))
	assert.Equal(t, KindMarkdown, d.Detect("guide.rst"))
	assert.Equal(t, "rst", d.Language("guide.rst"))
	assert.Equal(t, KindHTML, d.Detect("index.html"), "other kinds are untouched")

	assert.Error(t, d.Merge([]byte("[kinds.video]\nextensions = [\"mp4\"]\n")))
	assert.Error(t, d.Merge([]byte("not = [valid")))
}

func TestDefaultOpener(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	want := map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "start"}
	if expected, ok := want[runtime.GOOS]; ok {
		assert.Equal(t, expected, d.DefaultOpener())
	} else {
		assert.Equal(t, "open", d.DefaultOpener())
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "html", KindHTML.String())
	assert.Equal(t, "markdown", KindMarkdown.String())
	assert.Equal(t, "text", KindText.String())
}

type startCall struct {
	name string
	args []string
}

func newTestLauncher(t *testing.T) (*Launcher, *[]startCall) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := config.TestConfig()
	cfg.Opener.HTML = []string{"definitely-not-installed-browser"}
	cfg.Opener.Markdown = nil
	cfg.Opener.DefaultOpener = "test-opener"

	l := NewLauncher(cfg)
	dir := t.TempDir()
	l.scratchDir = func() (string, error) { return dir, nil }

	var calls []startCall
	l.start = func(name string, args ...string) error {
		calls = append(calls, startCall{name: name, args: args})
		return nil
	}
	return l, &calls
}

func TestLauncher_ProgramFallsBackToDefault(t *testing.T) {
	l, _ := newTestLauncher(t)

	assert.Equal(t, "test-opener", l.Program("index.html"))
	assert.Equal(t, "test-opener", l.Program("notes.md"))
	assert.Equal(t, "test-opener", l.Program("plain"))
}

func TestLauncher_Open(t *testing.T) {
	l, calls := newTestLauncher(t)

	rec := storage.Record{ID: "42", Name: "../reports/q1.html", Content: "<h1>Q1</h1>"}
	path, err := l.Open(rec)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "-q1.html"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Content, string(data))

	require.Len(t, *calls, 1)
	assert.Equal(t, "test-opener", (*calls)[0].name)
	assert.Equal(t, []string{path}, (*calls)[0].args)
}

func TestLauncher_OpenStartFailure(t *testing.T) {
	l, _ := newTestLauncher(t)
	l.start = func(string, ...string) error { return errors.New("exec: not found") }

	_, err := l.Open(storage.Record{ID: "1", Name: "a.txt", Content: "x"})
	assert.ErrorContains(t, err, "failed to start test-opener")
}

func TestLauncher_ScratchDirFailure(t *testing.T) {
	l, calls := newTestLauncher(t)
	l.scratchDir = func() (string, error) { return "", errors.New("read-only") }

	_, err := l.Open(storage.Record{ID: "1", Name: "a.txt"})
	assert.Error(t, err)
	assert.Empty(t, *calls)
}

func TestLauncher_UserKindsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "fbrowse")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kinds.toml"), []byte("[kinds.html]\nextensions = [\"page\"]\n"), 0o644))

	l := NewLauncher(config.TestConfig())
	assert.Equal(t, KindHTML, l.Detector().Detect("home.page"))
}
