package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/sitepulse/crawler"
	"github.com/lukemcguire/sitepulse/engine"
	"github.com/lukemcguire/sitepulse/result"
)

// SiteMsg reports a site starting or finishing a checker.
type SiteMsg engine.Event

// LinkMsg reports one probed hyperlink.
type LinkMsg crawler.LinkEvent

// RunDoneMsg signals the run has completed.
type RunDoneMsg struct {
	Report *result.Report
}

// Progress funnels engine and crawler callbacks into the TUI. Its methods
// block until the TUI takes the update or ctx is done, so a quitting UI
// never stalls the run.
type Progress struct {
	ctx  context.Context
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewProgress creates a Progress bound to ctx.
func NewProgress(ctx context.Context) *Progress {
	return &Progress{ctx: ctx, ch: make(chan tea.Msg, 64), done: make(chan struct{})}
}

// Stop releases any sender still waiting. Updates after Stop are dropped.
func (p *Progress) Stop() {
	p.once.Do(func() { close(p.done) })
}

// OnEvent is an engine.Config.OnEvent callback.
func (p *Progress) OnEvent(evt engine.Event) { p.send(SiteMsg(evt)) }

// OnLink is a crawler.Config.OnLink callback.
func (p *Progress) OnLink(evt crawler.LinkEvent) { p.send(LinkMsg(evt)) }

func (p *Progress) send(msg tea.Msg) {
	select {
	case p.ch <- msg:
	case <-p.ctx.Done():
	case <-p.done:
	}
}

// wait returns a tea.Cmd that delivers the next progress update.
func (p *Progress) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.ch:
			return msg
		case <-p.ctx.Done():
			return nil
		case <-p.done:
			return nil
		}
	}
}
