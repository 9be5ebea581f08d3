package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/fbrowse/internal/config"
	"github.com/pders01/fbrowse/internal/fetch"
	"github.com/pders01/fbrowse/internal/opener"
	"github.com/pders01/fbrowse/internal/storage"
)

const (
	statusBarHeight = 2 // separator + status line
	sidebarChrome   = 5 // header, subtitle, gap, page line, nav line
	contentChrome   = 3 // title, subtitle, gap
)

type App struct {
	config     *config.Config
	fetcher    *fetch.Controller
	launcher   *opener.Launcher
	keyHandler *KeyHandler

	fileList list.Model
	viewport viewport.Model
	spinner  spinner.Model

	focus         Pane
	width         int
	height        int
	sidebarWidth  int
	status        string
	statusKind    StatusKind
	renderedID    string
	rendering     bool
	renderMu      sync.Mutex
	rendererWidth int

	glamourRenderer *glamour.TermRenderer
}

func NewApp(source fetch.Source, cfg *config.Config) *App {
	ApplyTheme(cfg.UI.Colors)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(AccentColor).
		BorderForeground(AccentColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(MutedColor).
		BorderForeground(AccentColor)

	fileList := list.New([]list.Item{}, delegate, 0, 0)
	fileList.SetShowTitle(false)
	fileList.SetShowStatusBar(false)
	fileList.SetShowPagination(false)
	fileList.SetShowHelp(false)
	fileList.SetFilteringEnabled(false)
	fileList.DisableQuitKeybindings()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SecondaryColor)

	app := &App{
		config: cfg,
		fetcher: fetch.New(source, fetch.Options{
			PageSize:     cfg.Fetch.PageSize,
			Timeout:      cfg.Fetch.Timeout,
			TickInterval: cfg.Fetch.TickInterval,
		}),
		launcher: opener.NewLauncher(cfg),
		fileList: fileList,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		focus:    PaneSidebar,
	}
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.startLoading(a.fetcher.LoadPage(0)),
		tea.EnterAltScreen,
	)
}

// startLoading pairs a fetch command with the loading spinner.
func (a *App) startLoading(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, a.renderSelected(true)

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.fetcher.State().Loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case recordRenderedMsg:
		if msg.width != a.rendererWidth {
			return a, nil
		}
		if sel := a.fetcher.State().Selected; sel != nil && sel.ID == msg.id {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.renderedID = msg.id
			a.rendering = false
		}
		return a, nil

	case recordOpenedMsg:
		if msg.err != nil {
			text := msg.err.Error()
			if hint := openFailureHint(msg.err); hint != "" {
				text += " (" + hint + ")"
			}
			a.setStatus(text, StatusError)
		} else {
			a.setStatus(MsgOpened(msg.record.Name, msg.path), StatusSuccess)
		}
		return a, nil

	case errorMsg:
		a.setStatus(msg.err.Error(), StatusError)
		return a, nil
	}

	if fetch.Handles(msg) {
		wasLoading := a.fetcher.State().Loading
		cmd := a.fetcher.Update(msg)
		if wasLoading && !a.fetcher.State().Loading {
			return a, tea.Batch(cmd, a.syncRecords())
		}
		return a, cmd
	}

	return a, nil
}

// layout sizes the panes from the window size.
func (a *App) layout() {
	bodyHeight := max(a.height-statusBarHeight, 1)

	a.sidebarWidth = a.config.UI.Content.SidebarWidth
	if a.sidebarWidth <= 0 || a.sidebarWidth > a.width/2 {
		a.sidebarWidth = max(a.width/3, 16)
	}
	a.fileList.SetSize(a.sidebarWidth, max(bodyHeight-sidebarChrome, 1))

	a.viewport.Width = max(a.contentWidth(), 1)
	a.viewport.Height = max(bodyHeight-contentChrome, 1)
}

func (a *App) contentWidth() int {
	// sidebar border and padding
	return a.width - a.sidebarWidth - 3
}

// syncRecords mirrors the controller's page into the list and renders the
// selection.
func (a *App) syncRecords() tea.Cmd {
	st := a.fetcher.State()
	detector := a.launcher.Detector()

	items := make([]list.Item, len(st.Records))
	selected := 0
	for i, rec := range st.Records {
		items[i] = recordItem{record: rec, kind: detector.Detect(rec.Name)}
		if st.Selected != nil && st.Selected.ID == rec.ID {
			selected = i
		}
	}
	setItems := a.fileList.SetItems(items)
	a.fileList.Select(selected)

	return tea.Batch(setItems, a.renderSelected(false))
}

// selectFromList moves the controller's selection to the list cursor.
func (a *App) selectFromList() tea.Cmd {
	idx := a.fileList.Index()
	st := a.fetcher.State()
	if idx < 0 || idx >= len(st.Records) {
		return nil
	}
	if st.Selected != nil && st.Selected.ID == st.Records[idx].ID {
		return nil
	}
	a.fetcher.SelectIndex(idx)
	return a.renderSelected(false)
}

func (a *App) renderSelected(force bool) tea.Cmd {
	sel := a.fetcher.State().Selected
	if sel == nil {
		a.renderedID = ""
		a.viewport.SetContent("")
		return nil
	}
	if !force && sel.ID == a.renderedID {
		return nil
	}
	if a.width == 0 {
		return nil
	}

	r, err := a.getRenderer()
	if err != nil {
		a.viewport.SetContent(sel.Content)
		a.renderedID = sel.ID
		return func() tea.Msg { return errorMsg{err: wrapErr("initializing renderer", err)} }
	}

	a.rendering = true
	return a.renderRecord(*sel, r)
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	cc := a.config.UI.Content
	wordWrapWidth := a.contentWidth() - 2
	if cc.WordWrapMaxWidth > 0 && wordWrapWidth > cc.WordWrapMaxWidth {
		wordWrapWidth = cc.WordWrapMaxWidth
	}
	if wordWrapWidth < cc.WordWrapMinWidth {
		wordWrapWidth = cc.WordWrapMinWidth
	}
	if wordWrapWidth < 20 {
		wordWrapWidth = 20
	}

	if a.glamourRenderer == nil || a.rendererWidth != wordWrapWidth {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) clearStatus() {
	a.status = ""
	a.statusKind = StatusInfo
}

// quit disposes the controller so no fetch outlives the program.
func (a *App) quit() tea.Cmd {
	a.fetcher.Dispose()
	return tea.Quit
}

func (a *App) View() string {
	bodyHeight := max(a.height-statusBarHeight, 1)

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.sidebarView(bodyHeight),
		" ",
		a.contentView(bodyHeight),
	)

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))

	return lipgloss.JoinVertical(lipgloss.Top, body, separator, a.statusBarView())
}

func (a *App) sidebarView(height int) string {
	st := a.fetcher.State()
	width := a.sidebarWidth

	subtitle := ""
	if from, to := st.Page.Range(); to > 0 {
		subtitle = MsgShowing(from, to, st.Page.Total)
	}
	header := renderHeader("Files", subtitle, width)

	var listView string
	if len(st.Records) == 0 {
		listView = ContentWrapper(width, max(height-sidebarChrome, 1)).Render(renderMuted(MsgNoFiles))
	} else {
		listView = ContentWrapper(width, max(height-sidebarChrome, 1)).Render(a.fileList.View())
	}

	var footer string
	if pages := st.Page.TotalPages(); pages > 1 {
		prev := renderMuted("← prev")
		if st.Page.HasPrev() {
			prev = HeaderStyle.Render("← prev")
		}
		next := renderMuted("next →")
		if st.Page.HasNext() {
			next = HeaderStyle.Render("next →")
		}
		footer = lipgloss.JoinVertical(
			lipgloss.Left,
			renderMuted(MsgPageOf(st.Page.Index+1, pages)),
			prev+"  "+next,
		)
	}

	style := SidebarStyle
	if a.focus == PaneSidebar {
		style = FocusedPaneStyle
	}
	return style.
		Width(width).
		Height(height).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, "", listView, footer))
}

func (a *App) contentView(height int) string {
	st := a.fetcher.State()
	width := max(a.contentWidth(), 1)

	switch {
	case st.Loading:
		return renderCentered(width, height, lipgloss.JoinVertical(
			lipgloss.Center,
			a.spinner.View()+" "+MsgLoadingFiles,
			"",
			renderMuted(MsgTimeRemaining(st.TimeRemaining)),
		))

	case st.Err != nil:
		rows := []string{ErrorMessageStyle.Render(MsgError(st.Err))}
		if retryable(st.Err) {
			rows = append(rows, "", renderHelp(fmt.Sprintf("Press %s%s to try again", a.keyHandler.modifierKey, a.config.Keys.Bindings.Reload)))
		}
		return renderCentered(width, height, lipgloss.JoinVertical(lipgloss.Center, rows...))

	case len(st.Records) == 0:
		return renderCentered(width, height, GetCompactBanner(
			MsgNoFiles+" "+fmt.Sprintf(MsgUploadHint, a.keyHandler.modifierKey+a.config.Keys.Bindings.Upload),
		))

	case st.Selected == nil:
		return renderCentered(width, height, renderMuted(MsgSelectFile))
	}

	sel := st.Selected
	kind := a.launcher.Detector().Detect(sel.Name)
	header := renderHeader(truncateMiddle(sel.Name, width-2), kind.String()+" • "+humanSize(len(sel.Content)), width)

	body := a.viewport.View()
	if a.rendering && a.renderedID != sel.ID {
		body = renderMuted(MsgRendering)
	}

	return ContentWrapper(width, height).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

func (a *App) statusBarView() string {
	if a.status != "" {
		kind := a.statusKind
		return StatusBarStyle.Width(a.width).Render(kind.style().Render(kind.prefix() + a.status))
	}

	commands := a.keyHandler.GetHelpForCurrentView()
	return StatusBarStyle.Width(a.width).Render(strings.Join(commands, " • "))
}

// Selected returns the record shown in the content pane, if any.
func (a *App) Selected() *storage.Record {
	return a.fetcher.State().Selected
}
