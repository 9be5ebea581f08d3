package fetch

import "github.com/pders01/fbrowse/internal/storage"

// Every message carries the id of the session that produced it. Update
// drops messages whose session is no longer the active one.

type countdownTickMsg struct {
	seq uint64
}

type pageFetchedMsg struct {
	seq     uint64
	total   int
	records []storage.Record
	err     error
}

type fetchTimeoutMsg struct {
	seq uint64
}
