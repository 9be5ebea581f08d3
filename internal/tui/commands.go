package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/fbrowse/internal/debuglog"
	"github.com/pders01/fbrowse/internal/opener"
	"github.com/pders01/fbrowse/internal/storage"
)

// renderRecord renders rec off the event loop. Renders are serialized
// because a TermRenderer keeps per-render state.
func (a *App) renderRecord(rec storage.Record, r *glamour.TermRenderer) tea.Cmd {
	width := a.rendererWidth
	doc := a.document(rec)

	return func() tea.Msg {
		a.renderMu.Lock()
		defer a.renderMu.Unlock()

		rendered, err := r.Render(doc)
		if err != nil {
			debuglog.WithFields(map[string]interface{}{
				"record": rec.ID,
				"name":   rec.Name,
			}).Warnf("render failed: %v", err)
			return recordRenderedMsg{id: rec.ID, width: width, content: rec.Content}
		}
		return recordRenderedMsg{id: rec.ID, width: width, content: rendered}
	}
}

// document builds the markdown shown for rec. Markdown files render as
// themselves; everything else is shown verbatim in a code block.
func (a *App) document(rec storage.Record) string {
	detector := a.launcher.Detector()
	if detector.Detect(rec.Name) == opener.KindMarkdown {
		return rec.Content
	}

	lang := ""
	if a.config.UI.Content.Highlight {
		lang = detector.Language(rec.Name)
	}

	fence := fenceFor(rec.Content)
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", fence, lang)
	b.WriteString(rec.Content)
	if !strings.HasSuffix(rec.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)
	b.WriteString("\n")
	return b.String()
}

// fenceFor returns a backtick fence longer than any run inside content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func (a *App) openSelected() tea.Cmd {
	sel := a.fetcher.State().Selected
	if sel == nil {
		a.setStatus(MsgNothingSelected, StatusWarn)
		return nil
	}
	a.setStatus(fmt.Sprintf("Opening %s…", sel.Name), StatusInfo)
	return a.openRecord(*sel)
}

func (a *App) openRecord(rec storage.Record) tea.Cmd {
	return func() tea.Msg {
		path, err := a.launcher.Open(rec)
		if err != nil {
			return recordOpenedMsg{record: rec, err: wrapErr("opening "+rec.Name, err)}
		}
		return recordOpenedMsg{record: rec, path: path}
	}
}
