package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Canonical short status and placeholder messages used across the app.
const (
	MsgLoadingFiles    = "Loading files..."
	MsgNoFiles         = "No files found."
	MsgSelectFile      = "Select a file to view its content"
	MsgUploadHint      = "Press %s to upload your first file."
	MsgUploadDisabled  = "Uploading is not available in this client"
	MsgNothingSelected = "No file selected"
	MsgRendering       = "Rendering…"
)

func MsgTimeRemaining(d time.Duration) string {
	return fmt.Sprintf("Time remaining: %ds", int(d.Round(time.Second)/time.Second))
}

func MsgError(err error) string {
	return "Error: " + err.Error()
}

func MsgShowing(from, to, total int) string {
	return fmt.Sprintf("Showing %d-%d of %d", from, to, total)
}

func MsgPageOf(page, pages int) string {
	return fmt.Sprintf("Page %d of %d", page, pages)
}

func MsgOpened(name, path string) string {
	return fmt.Sprintf("Opened %s (%s)", strings.TrimSpace(name), filepath.Base(path))
}
