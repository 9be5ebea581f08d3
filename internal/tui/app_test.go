package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/fbrowse/internal/config"
	"github.com/pders01/fbrowse/internal/opener"
	"github.com/pders01/fbrowse/internal/storage"
)

type fakeSource struct {
	records []storage.Record
	pageErr error
	gate    chan struct{}
}

func newFakeSource(n int) *fakeSource {
	records := make([]storage.Record, n)
	for i := range records {
		records[i] = storage.Record{
			ID:      fmt.Sprintf("id-%02d", i+1),
			Name:    fmt.Sprintf("page-%02d.html", i+1),
			Content: fmt.Sprintf("<h1>Page %d</h1>", i+1),
		}
	}
	return &fakeSource{records: records}
}

func (f *fakeSource) Count(ctx context.Context) (int, error) {
	return len(f.records), nil
}

func (f *fakeSource) ReadPage(ctx context.Context, offset, limit int) ([]storage.Record, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if offset >= len(f.records) {
		return []storage.Record{}, nil
	}
	end := min(offset+limit, len(f.records))
	return append([]storage.Record(nil), f.records[offset:end]...), nil
}

// appLoop drives an App the way the Bubble Tea runtime would.
type appLoop struct {
	t    *testing.T
	app  *App
	msgs chan tea.Msg
}

func newTestApp(t *testing.T, src *fakeSource) *appLoop {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	app := NewApp(src, config.TestConfig())
	t.Cleanup(app.fetcher.Dispose)

	l := &appLoop{t: t, app: app, msgs: make(chan tea.Msg, 256)}
	l.send(tea.WindowSizeMsg{Width: 120, Height: 30})
	return l
}

func (l *appLoop) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, sub := range batch {
				l.run(sub)
			}
			return
		}
		if msg != nil {
			l.msgs <- msg
		}
	}()
}

func (l *appLoop) send(msg tea.Msg) {
	_, cmd := l.app.Update(msg)
	l.run(cmd)
}

func (l *appLoop) key(msg tea.KeyMsg) {
	l.send(msg)
}

// until applies messages until cond holds.
func (l *appLoop) until(cond func() bool) {
	l.t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case msg := <-l.msgs:
			l.send(msg)
		case <-deadline:
			l.t.Fatal("timed out waiting for the app to settle")
		}
	}
}

func (l *appLoop) settled() bool {
	st := l.app.fetcher.State()
	if st.Loading {
		return false
	}
	return st.Selected == nil || l.app.renderedID == st.Selected.ID
}

func (l *appLoop) start() {
	l.run(l.app.Init())
	l.until(l.settled)
}

func TestApp_InitialLoad(t *testing.T) {
	l := newTestApp(t, newFakeSource(7))
	l.start()

	st := l.app.fetcher.State()
	require.Len(t, st.Records, 5)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "page-01.html", st.Selected.Name)
	assert.Len(t, l.app.fileList.Items(), 5)

	view := l.app.View()
	assert.Contains(t, view, "Showing 1-5 of 7")
	assert.Contains(t, view, "Page 1 of 2")
	assert.Contains(t, view, "page-01.html")
	assert.NotContains(t, view, MsgLoadingFiles)
}

func TestApp_LoadingView(t *testing.T) {
	src := newFakeSource(3)
	src.gate = make(chan struct{})
	l := newTestApp(t, src)

	l.run(l.app.Init())

	view := l.app.View()
	assert.Contains(t, view, MsgLoadingFiles)
	assert.Contains(t, view, "Time remaining: 2s")

	close(src.gate)
	l.until(l.settled)
	assert.NotContains(t, l.app.View(), MsgLoadingFiles)
}

func TestApp_EmptyStore(t *testing.T) {
	l := newTestApp(t, newFakeSource(0))
	l.start()

	view := l.app.View()
	assert.Contains(t, view, MsgNoFiles)
	assert.Contains(t, view, "Press ctrl+u to upload your first file.")
	assert.Nil(t, l.app.Selected())
}

func TestApp_ErrorView(t *testing.T) {
	src := newFakeSource(3)
	src.pageErr = errors.New("relation does not exist")
	l := newTestApp(t, src)
	l.start()

	view := l.app.View()
	assert.Contains(t, view, "Error: Could not fetch files.")
	assert.Contains(t, view, "Press ctrl+r to try again")
}

func TestApp_NextAndPrevPage(t *testing.T) {
	l := newTestApp(t, newFakeSource(7))
	l.start()

	l.key(tea.KeyMsg{Type: tea.KeyRight})
	assert.True(t, l.app.fetcher.State().Loading)
	l.until(l.settled)

	st := l.app.fetcher.State()
	assert.Equal(t, 1, st.Page.Index)
	require.Len(t, st.Records, 2)
	assert.Equal(t, "page-06.html", st.Selected.Name)
	assert.Contains(t, l.app.View(), "Showing 6-7 of 7")

	// already on the last page
	l.key(tea.KeyMsg{Type: tea.KeyRight})
	assert.False(t, l.app.fetcher.State().Loading)

	l.key(tea.KeyMsg{Type: tea.KeyLeft})
	l.until(l.settled)
	assert.Equal(t, 0, l.app.fetcher.State().Page.Index)
}

func TestApp_CursorSelectsRecord(t *testing.T) {
	l := newTestApp(t, newFakeSource(3))
	l.start()

	l.key(tea.KeyMsg{Type: tea.KeyDown})
	l.until(l.settled)

	require.NotNil(t, l.app.Selected())
	assert.Equal(t, "page-02.html", l.app.Selected().Name)
	assert.Equal(t, "id-02", l.app.renderedID)
}

func TestApp_StaleRenderIgnored(t *testing.T) {
	l := newTestApp(t, newFakeSource(3))
	l.start()

	l.send(recordRenderedMsg{id: "id-03", width: l.app.rendererWidth, content: "stale"})
	assert.Equal(t, "id-01", l.app.renderedID)
	assert.NotContains(t, l.app.viewport.View(), "stale")
}

func TestApp_QuitDisposesController(t *testing.T) {
	src := newFakeSource(3)
	src.gate = make(chan struct{})
	l := newTestApp(t, src)
	l.run(l.app.Init())

	_, cmd := l.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, l.app.fetcher.LoadPage(0), "disposed controller starts no sessions")
}

func TestApp_OpenResult(t *testing.T) {
	l := newTestApp(t, newFakeSource(1))
	l.start()

	l.send(recordOpenedMsg{record: l.app.fetcher.State().Records[0], path: "/tmp/fbrowse/123-page-01.html"})
	assert.Equal(t, StatusSuccess, l.app.statusKind)
	assert.Contains(t, l.app.View(), "Opened page-01.html (123-page-01.html)")

	l.send(recordOpenedMsg{err: wrapErr("opening page-01.html", opener.ErrNoProgram)})
	assert.Equal(t, StatusError, l.app.statusKind)
	assert.Contains(t, l.app.status, "set opener.default_opener")
}

func TestApp_SpinnerStopsAfterLoad(t *testing.T) {
	l := newTestApp(t, newFakeSource(1))
	l.start()

	_, cmd := l.app.Update(l.app.spinner.Tick())
	assert.Nil(t, cmd)
}

func TestDocument(t *testing.T) {
	l := newTestApp(t, newFakeSource(0))

	md := storage.Record{Name: "README.md", Content: "# Title"}
	assert.Equal(t, "# Title", l.app.document(md))

	html := storage.Record{Name: "index.html", Content: "<p>hi</p>"}
	doc := l.app.document(html)
	assert.True(t, strings.HasPrefix(doc, "```html\n"), doc)
	assert.True(t, strings.HasSuffix(doc, "<p>hi</p>\n```\n"), doc)

	l.app.config.UI.Content.Highlight = false
	assert.True(t, strings.HasPrefix(l.app.document(html), "```\n"))
}

func TestFenceFor(t *testing.T) {
	assert.Equal(t, "```", fenceFor("plain"))
	assert.Equal(t, "```", fenceFor("a `b` c"))
	assert.Equal(t, "````", fenceFor("```go\nx\n```"))
	assert.Equal(t, "``````", fenceFor("`````"))
}
