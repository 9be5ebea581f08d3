// Package fetch loads pages of records from a store under a time budget.
//
// A Controller runs inside a Bubble Tea program. Methods that start work
// return a tea.Cmd; the resulting messages must be passed back through
// Update, which is the only place state changes. Each page load is a
// session with its own cancellation token: the countdown, the deadline
// and the store queries all stop when the session settles or is
// superseded, and whichever of the page result or the deadline reaches
// Update first decides the outcome.
package fetch

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/pders01/fbrowse/internal/debuglog"
	"github.com/pders01/fbrowse/internal/storage"
)

const (
	DefaultPageSize     = 5
	DefaultTimeout      = 60 * time.Second
	DefaultTickInterval = time.Second
)

// Source is a record store that can count its records and read a slice of
// them ordered by name ascending.
type Source interface {
	Count(ctx context.Context) (int, error)
	ReadPage(ctx context.Context, offset, limit int) ([]storage.Record, error)
}

type Options struct {
	PageSize     int
	Timeout      time.Duration
	TickInterval time.Duration
	// Logger defaults to the debuglog logger.
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Logger == nil {
		l := debuglog.Logger().With().Str("component", "fetch").Logger()
		o.Logger = &l
	}
	return o
}

// PageState is the current page position. Index*PerPage < Total holds once
// Total > 0, except while a load for a new index is in flight.
type PageState struct {
	Index   int
	PerPage int
	Total   int
}

// Range returns the 1-based positions of the first and last record on the
// page, or 0, 0 when there is nothing to show.
func (p PageState) Range() (from, to int) {
	if p.Total == 0 {
		return 0, 0
	}
	from = p.Index*p.PerPage + 1
	to = min((p.Index+1)*p.PerPage, p.Total)
	if from > to {
		return 0, 0
	}
	return from, to
}

func (p PageState) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p PageState) HasNext() bool {
	return (p.Index+1)*p.PerPage < p.Total
}

func (p PageState) HasPrev() bool {
	return p.Index > 0
}

// ViewState is what the presentation layer renders.
type ViewState struct {
	Loading       bool
	Err           error
	Records       []storage.Record
	Selected      *storage.Record
	TimeRemaining time.Duration
	Page          PageState
}

type Controller struct {
	source Source
	opts   Options
	log    zerolog.Logger

	page      PageState
	records   []storage.Record
	selected  *storage.Record
	loading   bool
	err       error
	remaining int

	active   *session
	seq      uint64
	disposed bool
}

func New(source Source, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		source: source,
		opts:   opts,
		log:    *opts.Logger,
		page:   PageState{PerPage: opts.PageSize},
	}
	c.remaining = c.budget()
	return c
}

// budget is the countdown length in ticks.
func (c *Controller) budget() int {
	n := int(c.opts.Timeout / c.opts.TickInterval)
	if n < 1 {
		n = 1
	}
	return n
}

// LoadPage starts a new session for pageIndex, superseding any session in
// flight. Negative indexes load page 0.
func (c *Controller) LoadPage(pageIndex int) tea.Cmd {
	if c.disposed {
		return nil
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	if c.active != nil {
		c.log.Debug().Uint64("session", c.active.seq).Msg("superseding session")
		c.active.cancel()
	}
	c.seq++
	s := newSession(c.seq, pageIndex, c.opts.Timeout)
	c.active = s

	c.page.Index = pageIndex
	c.remaining = c.budget()
	c.loading = true
	c.err = nil

	c.log.Debug().Uint64("session", s.seq).Int("page", pageIndex).Msg("loading page")

	offset := pageIndex * c.opts.PageSize
	return tea.Batch(
		s.tick(c.opts.TickInterval),
		s.load(c.source, offset, c.opts.PageSize, c.log),
		s.expire(),
	)
}

// Update applies a controller message and returns any follow-up command.
// Messages from superseded or settled sessions are ignored, as is
// everything after Dispose.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	if c.disposed {
		return nil
	}

	switch msg := msg.(type) {
	case countdownTickMsg:
		s := c.current(msg.seq)
		if s == nil {
			return nil
		}
		if c.remaining > 0 {
			c.remaining--
		}
		if c.remaining > 0 {
			return s.tick(c.opts.TickInterval)
		}
		return nil

	case pageFetchedMsg:
		s := c.current(msg.seq)
		if s == nil {
			return nil
		}
		c.settle()
		if msg.err != nil {
			c.log.Error().Err(msg.err).Uint64("session", s.seq).Int("page", s.page).Msg("page query failed")
			c.err = &StoreQueryError{Err: msg.err}
			return nil
		}
		c.page.Total = msg.total
		c.records = msg.records
		if len(c.records) > 0 {
			first := c.records[0]
			c.selected = &first
		} else {
			c.selected = nil
		}
		c.log.Debug().Uint64("session", s.seq).Int("page", s.page).Int("records", len(msg.records)).Int("total", msg.total).Msg("page loaded")

	case fetchTimeoutMsg:
		s := c.current(msg.seq)
		if s == nil {
			return nil
		}
		c.settle()
		c.err = &TimeoutError{Timeout: c.opts.Timeout}
		c.log.Warn().Uint64("session", s.seq).Int("page", s.page).Dur("timeout", c.opts.Timeout).Msg("page load timed out")
	}

	return nil
}

// Handles reports whether msg is one of the controller's own messages.
func Handles(msg tea.Msg) bool {
	switch msg.(type) {
	case countdownTickMsg, pageFetchedMsg, fetchTimeoutMsg:
		return true
	}
	return false
}

func (c *Controller) current(seq uint64) *session {
	if c.active == nil || c.active.seq != seq {
		return nil
	}
	return c.active
}

// settle ends the active session on every exit path.
func (c *Controller) settle() {
	c.active.cancel()
	c.active = nil
	c.loading = false
	c.remaining = c.budget()
}

func (c *Controller) Select(r storage.Record) {
	c.selected = &r
}

// SelectIndex selects the i-th record on the current page.
func (c *Controller) SelectIndex(i int) bool {
	if i < 0 || i >= len(c.records) {
		return false
	}
	c.Select(c.records[i])
	return true
}

func (c *Controller) NextPage() tea.Cmd {
	if c.disposed || !c.page.HasNext() {
		return nil
	}
	return c.LoadPage(c.page.Index + 1)
}

func (c *Controller) PrevPage() tea.Cmd {
	if c.disposed || !c.page.HasPrev() {
		return nil
	}
	return c.LoadPage(c.page.Index - 1)
}

// Reload loads the current page again.
func (c *Controller) Reload() tea.Cmd {
	return c.LoadPage(c.page.Index)
}

// Dispose cancels the active session. The controller is inert afterwards.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
	c.disposed = true
}

func (c *Controller) State() ViewState {
	return ViewState{
		Loading:       c.loading,
		Err:           c.err,
		Records:       c.records,
		Selected:      c.selected,
		TimeRemaining: time.Duration(c.remaining) * c.opts.TickInterval,
		Page:          c.page,
	}
}
