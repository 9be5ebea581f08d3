package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/fbrowse/internal/config"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	kh.app.clearStatus()

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.config.Keys.Bindings

	switch key {
	case "ctrl+c", b.Quit:
		return kh.app, kh.app.quit(), true
	case b.Back:
		kh.app.focus = PaneSidebar
		return kh.app, nil, true
	case b.Focus:
		kh.toggleFocus()
		return kh.app, nil, true
	case b.NextPage, "l":
		return kh.app, kh.app.startLoading(kh.app.fetcher.NextPage()), true
	case b.PrevPage, "h":
		return kh.app, kh.app.startLoading(kh.app.fetcher.PrevPage()), true
	case kh.modifierKey + b.Reload:
		return kh.app, kh.app.startLoading(kh.app.fetcher.Reload()), true
	case kh.modifierKey + b.Open:
		return kh.app, kh.app.openSelected(), true
	case kh.modifierKey + b.Upload:
		kh.app.setStatus(MsgUploadDisabled, StatusWarn)
		return kh.app, nil, true
	case "enter":
		if kh.app.focus == PaneSidebar && kh.app.fetcher.State().Selected != nil {
			kh.app.focus = PaneContent
		}
		return kh.app, nil, true
	}

	return kh.app, nil, false
}

func (kh *KeyHandler) toggleFocus() {
	if kh.app.focus == PaneSidebar && kh.app.fetcher.State().Selected != nil {
		kh.app.focus = PaneContent
		return
	}
	kh.app.focus = PaneSidebar
}

// delegateToCharm passes navigation keys to the focused bubble.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.focus {
	case PaneContent:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd
	default:
		if len(kh.app.fileList.Items()) == 0 {
			return kh.app, nil
		}
		kh.app.fileList, cmd = kh.app.fileList.Update(msg)
		return kh.app, tea.Batch(cmd, kh.app.selectFromList())
	}
}

// GetHelpForCurrentView returns the key hints for the focused pane.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.config.Keys.Bindings
	st := kh.app.fetcher.State()

	var commands []string
	switch kh.app.focus {
	case PaneContent:
		commands = append(commands,
			"↑/↓: scroll",
			b.Back+": files",
		)
	default:
		commands = append(commands, "↑/↓: select")
		if st.Page.TotalPages() > 1 {
			commands = append(commands, b.PrevPage+"/"+b.NextPage+": page")
		}
		if st.Selected != nil {
			commands = append(commands, b.Focus+": content")
		}
	}

	commands = append(commands, kh.modifierKey+b.Reload+": reload")
	if st.Selected != nil {
		commands = append(commands, kh.modifierKey+b.Open+": open")
	}
	commands = append(commands, b.Quit+": quit")

	return commands
}
