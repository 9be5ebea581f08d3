package tui

import "github.com/pders01/fbrowse/internal/storage"

// Pane is the part of the screen that receives navigation keys.
type Pane int

const (
	PaneSidebar Pane = iota
	PaneContent
)

func (p Pane) String() string {
	if p == PaneContent {
		return "content"
	}
	return "files"
}

// recordRenderedMsg carries rendered content for the record with id. It is
// dropped if the selection has moved on.
type recordRenderedMsg struct {
	id      string
	width   int
	content string
}

type recordOpenedMsg struct {
	record storage.Record
	path   string
	err    error
}

type errorMsg struct {
	err error
}
