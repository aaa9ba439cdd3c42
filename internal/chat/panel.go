// Package chat implements the assistant conversation panel.
package chat

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptodash/internal/instrumentation"
	"cryptodash/internal/models"
	"cryptodash/internal/prompts"
)

var (
	ErrPanelClosed  = errors.New("chat panel is closed")
	ErrBusy         = errors.New("a reply is still streaming")
	ErrEmptyMessage = errors.New("message is empty")
)

// Session is one conversation with the model. SendStream yields the reply
// in fragments; an error ends the stream.
type Session interface {
	SendStream(ctx context.Context, text string) iter.Seq2[string, error]
}

// SessionFactory opens sessions seeded with a system preamble.
type SessionFactory interface {
	NewSession(ctx context.Context, system string) (Session, error)
}

// Notifier is told whenever the transcript changes.
type Notifier interface {
	Notify()
}

type nopNotifier struct{}

func (nopNotifier) Notify() {}

// State is a copy of the panel for presentation.
type State struct {
	Open     bool                 `json:"open"`
	Busy     bool                 `json:"busy"`
	Messages []models.ChatMessage `json:"messages"`
}

// Panel holds the transcript and the live session. Closing discards both;
// replies still streaming for an earlier session are dropped.
type Panel struct {
	factory   SessionFactory
	catalogue *prompts.Catalogue
	notifier  Notifier
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       func() time.Time

	mu         sync.Mutex
	open       bool
	busy       bool
	gen        uint64
	session    Session
	ready      chan struct{} // closed once Open has a session or gave up
	transcript []models.ChatMessage
}

// NewPanel creates a closed panel. notifier and metrics may be nil.
func NewPanel(factory SessionFactory, catalogue *prompts.Catalogue, notifier Notifier, logger *slog.Logger, metrics *instrumentation.Metrics) *Panel {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Panel{
		factory:   factory,
		catalogue: catalogue,
		notifier:  notifier,
		logger:    logger.With("component", "chat"),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Open starts a session and seeds the greeting. Opening an open panel is a
// no-op. A nil selected asset gives the generic greeting.
func (p *Panel) Open(ctx context.Context, selected *models.Asset) {
	name := ""
	if selected != nil {
		name = selected.Name
	}

	p.mu.Lock()
	if p.open {
		p.mu.Unlock()
		return
	}
	p.open = true
	p.gen++
	gen := p.gen
	ready := make(chan struct{})
	p.ready = ready
	p.transcript = []models.ChatMessage{p.message(models.RoleAssistant, p.catalogue.GreetingFor(name))}
	p.mu.Unlock()

	p.logger.Info("chat_opened", "asset", name, "session", gen)

	session, err := p.factory.NewSession(ctx, p.catalogue.ChatSystemFor(name))
	if err != nil {
		p.logger.Error("chat_session_failed", "error", err)
		p.metrics.RecordChatError()
	}

	p.mu.Lock()
	if p.gen == gen {
		p.session = session
	}
	p.mu.Unlock()
	close(ready)

	p.notifier.Notify()
}

// Close discards the transcript and releases the session.
func (p *Panel) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	p.open = false
	p.busy = false
	p.gen++
	p.session = nil
	p.transcript = nil
	p.mu.Unlock()

	p.logger.Info("chat_closed")
	p.notifier.Notify()
}

// Send appends the user's message and streams the reply into a single
// trailing assistant message. onUpdate, if set, receives the user message
// and then the reply after each fragment. A stream failure appends one
// apology instead of returning an error.
func (p *Panel) Send(ctx context.Context, text string, onUpdate func(models.ChatMessage)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return ErrPanelClosed
	}
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.busy = true
	gen := p.gen
	ready := p.ready
	userMsg := p.message(models.RoleUser, text)
	p.transcript = append(p.transcript, userMsg)
	p.mu.Unlock()

	p.notifier.Notify()
	emit(onUpdate, userMsg)

	defer func() {
		p.mu.Lock()
		if p.gen == gen {
			p.busy = false
		}
		p.mu.Unlock()
		p.notifier.Notify()
	}()

	// A send right after Open waits for the session being created.
	select {
	case <-ready:
	case <-ctx.Done():
		p.fail(gen, ctx.Err(), onUpdate)
		return nil
	}

	p.mu.Lock()
	session, current := p.session, p.gen == gen
	p.mu.Unlock()

	if !current {
		p.logger.Info("chat_reply_discarded", "session", gen)
		return nil
	}
	if session == nil {
		p.fail(gen, errors.New("no session"), onUpdate)
		return nil
	}

	start := time.Now()
	reply := -1
	fragments := 0

	for fragment, err := range session.SendStream(ctx, text) {
		if err != nil {
			p.fail(gen, err, onUpdate)
			return nil
		}
		if fragment == "" {
			continue
		}

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			p.logger.Info("chat_reply_discarded", "session", gen)
			return nil
		}
		if reply < 0 {
			p.transcript = append(p.transcript, p.message(models.RoleAssistant, ""))
			reply = len(p.transcript) - 1
		}
		p.transcript[reply].Text += fragment
		msg := p.transcript[reply]
		p.mu.Unlock()

		fragments++
		p.metrics.RecordChatFragment()
		p.notifier.Notify()
		emit(onUpdate, msg)
	}

	p.logger.Info("chat_reply_completed",
		"session", gen,
		"fragments", fragments,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail appends the apology unless the panel moved on to another session.
func (p *Panel) fail(gen uint64, cause error, onUpdate func(models.ChatMessage)) {
	p.logger.Error("chat_stream_failed", "session", gen, "error", cause)
	p.metrics.RecordChatError()

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	msg := p.message(models.RoleAssistant, p.catalogue.ChatError)
	p.transcript = append(p.transcript, msg)
	p.mu.Unlock()

	emit(onUpdate, msg)
}

// Transcript returns a copy of the messages.
func (p *Panel) Transcript() []models.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ChatMessage, len(p.transcript))
	copy(out, p.transcript)
	return out
}

// State returns a copy of the panel.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := make([]models.ChatMessage, len(p.transcript))
	copy(msgs, p.transcript)
	return State{Open: p.open, Busy: p.busy, Messages: msgs}
}

func (p *Panel) message(role, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: p.now().UTC(),
	}
}

func emit(onUpdate func(models.ChatMessage), msg models.ChatMessage) {
	if onUpdate != nil {
		onUpdate(msg)
	}
}
