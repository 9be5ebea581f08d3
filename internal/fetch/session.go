package fetch

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/fbrowse/internal/storage"
)

// session is one attempt to load a page. Its context is the cancellation
// token shared by the countdown, the deadline and the store queries.
type session struct {
	seq      uint64
	page     int
	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time
}

func newSession(seq uint64, page int, timeout time.Duration) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		seq:      seq,
		page:     page,
		ctx:      ctx,
		cancel:   cancel,
		deadline: time.Now().Add(timeout),
	}
}

func (s *session) active() bool {
	return s.ctx.Err() == nil
}

// after returns a command that yields msg once d elapses, or nil if the
// session is cancelled first.
func (s *session) after(d time.Duration, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-s.ctx.Done():
			return nil
		case <-t.C:
			return msg
		}
	}
}

func (s *session) tick(interval time.Duration) tea.Cmd {
	return s.after(interval, countdownTickMsg{seq: s.seq})
}

func (s *session) expire() tea.Cmd {
	return s.after(time.Until(s.deadline), fetchTimeoutMsg{seq: s.seq})
}

// load runs the count and page queries concurrently. A failed count is
// logged and reported as zero; a failed page query fails the load.
func (s *session) load(src Source, offset, limit int, log zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		var (
			total   int
			records []storage.Record
		)

		g, ctx := errgroup.WithContext(s.ctx)
		g.Go(func() error {
			n, err := src.Count(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().Err(err).Uint64("session", s.seq).Msg("count query failed, assuming 0")
				}
				return nil
			}
			total = n
			return nil
		})
		g.Go(func() error {
			page, err := src.ReadPage(ctx, offset, limit)
			if err != nil {
				return err
			}
			records = page
			return nil
		})
		err := g.Wait()

		if !s.active() {
			return nil
		}
		return pageFetchedMsg{seq: s.seq, total: total, records: records, err: err}
	}
}
