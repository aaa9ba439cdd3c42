package chat

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"cryptodash/internal/models"
	"cryptodash/internal/prompts"
)

type scriptedSession struct {
	fragments []string
	failAfter int // -1 never
	gate      chan struct{}
	received  []string
}

func (s *scriptedSession) SendStream(ctx context.Context, text string) iter.Seq2[string, error] {
	s.received = append(s.received, text)
	return func(yield func(string, error) bool) {
		for i, f := range s.fragments {
			if s.failAfter >= 0 && i == s.failAfter {
				yield("", errors.New("connection reset"))
				return
			}
			if s.gate != nil && i > 0 {
				<-s.gate
			}
			if !yield(f, nil) {
				return
			}
		}
		if s.failAfter >= len(s.fragments) {
			yield("", errors.New("connection reset"))
		}
	}
}

type fakeFactory struct {
	mu      sync.Mutex
	session *scriptedSession
	systems []string
	err     error
}

func (f *fakeFactory) NewSession(ctx context.Context, system string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newTestPanel(factory SessionFactory) *Panel {
	return NewPanel(factory, prompts.Default(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestOpen_GreetingNamesSelectedAsset(t *testing.T) {
	factory := &fakeFactory{session: &scriptedSession{failAfter: -1}}
	p := newTestPanel(factory)

	p.Open(context.Background(), &models.Asset{ID: "sol", Name: "Solana"})

	msgs := p.Transcript()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleAssistant || !strings.Contains(msgs[0].Text, "Solana") {
		t.Errorf("Expected greeting mentioning Solana, got %+v", msgs[0])
	}
	if msgs[0].ID == "" || msgs[0].Timestamp.IsZero() {
		t.Error("Expected id and timestamp on the greeting")
	}
	if len(factory.systems) != 1 || !strings.Contains(factory.systems[0], "Solana") {
		t.Errorf("Expected system preamble naming Solana, got %v", factory.systems)
	}
}

func TestOpen_WithoutSelection(t *testing.T) {
	factory := &fakeFactory{session: &scriptedSession{failAfter: -1}}
	p := newTestPanel(factory)

	p.Open(context.Background(), nil)

	msgs := p.Transcript()
	if len(msgs) != 1 || msgs[0].Text != prompts.Default().GreetingDefault {
		t.Errorf("Expected the default greeting, got %+v", msgs)
	}
	if !strings.Contains(factory.systems[0], "the dashboard") {
		t.Errorf("Expected default subject in preamble, got %q", factory.systems[0])
	}
}

func TestCloseAndReopen_DiscardsTranscript(t *testing.T) {
	factory := &fakeFactory{session: &scriptedSession{fragments: []string{"Hi"}, failAfter: -1}}
	p := newTestPanel(factory)
	solana := &models.Asset{ID: "sol", Name: "Solana"}

	p.Open(context.Background(), solana)
	if err := p.Send(context.Background(), "what is it?", nil); err != nil {
		t.Fatal(err)
	}
	if n := len(p.Transcript()); n != 3 {
		t.Fatalf("Expected 3 messages before close, got %d", n)
	}

	p.Close()
	if n := len(p.Transcript()); n != 0 {
		t.Errorf("Expected empty transcript after close, got %d", n)
	}

	p.Open(context.Background(), solana)
	msgs := p.Transcript()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Solana") {
		t.Errorf("Expected exactly the fresh greeting, got %+v", msgs)
	}
}

func TestSend_FoldsFragmentsIntoOneMessage(t *testing.T) {
	session := &scriptedSession{fragments: []string{"Bitcoin ", "is ", "", "a coin."}, failAfter: -1}
	p := newTestPanel(&fakeFactory{session: session})
	p.Open(context.Background(), nil)

	var updates []string
	err := p.Send(context.Background(), "  what is bitcoin?  ", func(m models.ChatMessage) {
		updates = append(updates, m.Role+":"+m.Text)
	})
	if err != nil {
		t.Fatal(err)
	}

	msgs := p.Transcript()
	if len(msgs) != 3 {
		t.Fatalf("Expected greeting, user and reply, got %d", len(msgs))
	}
	if msgs[1].Role != models.RoleUser || msgs[1].Text != "what is bitcoin?" {
		t.Errorf("Unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != models.RoleAssistant || msgs[2].Text != "Bitcoin is a coin." {
		t.Errorf("Unexpected reply: %+v", msgs[2])
	}
	if session.received[0] != "what is bitcoin?" {
		t.Errorf("Expected trimmed text sent, got %q", session.received[0])
	}

	want := []string{"user:what is bitcoin?", "assistant:Bitcoin ", "assistant:Bitcoin is ", "assistant:Bitcoin is a coin."}
	if strings.Join(updates, "|") != strings.Join(want, "|") {
		t.Errorf("Expected incremental updates %v, got %v", want, updates)
	}
	if p.State().Busy {
		t.Error("Panel should not stay busy after the reply")
	}
}

func TestSend_StreamFailureAppendsApology(t *testing.T) {
	session := &scriptedSession{fragments: []string{"Partial", "never"}, failAfter: 1}
	p := newTestPanel(&fakeFactory{session: session})
	p.Open(context.Background(), nil)

	if err := p.Send(context.Background(), "hello", nil); err != nil {
		t.Fatal(err)
	}

	msgs := p.Transcript()
	last := msgs[len(msgs)-1]
	if last.Text != prompts.Default().ChatError {
		t.Errorf("Expected apology, got %q", last.Text)
	}
	apologies := 0
	for _, m := range msgs {
		if m.Text == prompts.Default().ChatError {
			apologies++
		}
	}
	if apologies != 1 {
		t.Errorf("Expected exactly one apology, got %d", apologies)
	}
	if p.State().Busy {
		t.Error("Panel should accept input after a failure")
	}

	session.failAfter = -1
	session.fragments = []string{"ok"}
	if err := p.Send(context.Background(), "again", nil); err != nil {
		t.Errorf("Conversation should remain usable, got %v", err)
	}
}

func TestSend_SessionCreationFailureApologises(t *testing.T) {
	p := newTestPanel(&fakeFactory{err: errors.New("no key")})
	p.Open(context.Background(), nil)

	if err := p.Send(context.Background(), "hello", nil); err != nil {
		t.Fatal(err)
	}
	msgs := p.Transcript()
	if msgs[len(msgs)-1].Text != prompts.Default().ChatError {
		t.Errorf("Expected apology, got %+v", msgs[len(msgs)-1])
	}
}

func TestSend_Rejections(t *testing.T) {
	gate := make(chan struct{})
	session := &scriptedSession{fragments: []string{"a", "b"}, failAfter: -1, gate: gate}
	p := newTestPanel(&fakeFactory{session: session})

	if err := p.Send(context.Background(), "hi", nil); !errors.Is(err, ErrPanelClosed) {
		t.Errorf("Expected ErrPanelClosed, got %v", err)
	}

	p.Open(context.Background(), nil)
	if err := p.Send(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}

	first := make(chan struct{})
	done := make(chan error)
	go func() {
		var once sync.Once
		done <- p.Send(context.Background(), "first", func(m models.ChatMessage) {
			if m.Role == models.RoleAssistant {
				once.Do(func() { close(first) })
			}
		})
	}()
	<-first

	if err := p.Send(context.Background(), "second", nil); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestSend_ReplyDiscardedAfterClose(t *testing.T) {
	gate := make(chan struct{})
	session := &scriptedSession{fragments: []string{"a", "b"}, failAfter: -1, gate: gate}
	p := newTestPanel(&fakeFactory{session: session})
	p.Open(context.Background(), nil)

	first := make(chan struct{})
	done := make(chan error)
	go func() {
		var once sync.Once
		done <- p.Send(context.Background(), "question", func(m models.ChatMessage) {
			if m.Role == models.RoleAssistant {
				once.Do(func() { close(first) })
			}
		})
	}()
	<-first

	p.Close()
	p.Open(context.Background(), nil)
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	msgs := p.Transcript()
	if len(msgs) != 1 {
		t.Errorf("Expected only the new greeting, got %+v", msgs)
	}
	if p.State().Busy {
		t.Error("Reopened panel should not be busy")
	}
}

// slowFactory hands out its session only after release is closed.
type slowFactory struct {
	entered chan struct{}
	release chan struct{}
	session Session
}

func (f *slowFactory) NewSession(ctx context.Context, system string) (Session, error) {
	close(f.entered)
	<-f.release
	return f.session, nil
}

func TestSend_WaitsForSessionBeingCreated(t *testing.T) {
	factory := &slowFactory{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		session: &scriptedSession{fragments: []string{"Hello", " there"}, failAfter: -1},
	}
	p := newTestPanel(factory)

	opened := make(chan struct{})
	go func() {
		defer close(opened)
		p.Open(context.Background(), nil)
	}()
	<-factory.entered

	sent := make(chan error, 1)
	go func() {
		sent <- p.Send(context.Background(), "hi", nil)
	}()

	close(factory.release)
	<-opened
	if err := <-sent; err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msgs := p.Transcript()
	if len(msgs) != 3 {
		t.Fatalf("Expected greeting, question and reply, got %+v", msgs)
	}
	if msgs[2].Text != "Hello there" {
		t.Errorf("Expected the streamed reply, got %q", msgs[2].Text)
	}
	if msgs[2].Text == prompts.Default().ChatError {
		t.Error("Send during session creation must not apologise")
	}
}

func TestSend_CancelledWhileWaitingForSession(t *testing.T) {
	factory := &slowFactory{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		session: &scriptedSession{fragments: []string{"late"}, failAfter: -1},
	}
	p := newTestPanel(factory)

	opened := make(chan struct{})
	go func() {
		defer close(opened)
		p.Open(context.Background(), nil)
	}()
	<-factory.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Send(ctx, "hi", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	close(factory.release)
	<-opened

	msgs := p.Transcript()
	if last := msgs[len(msgs)-1]; last.Text != prompts.Default().ChatError {
		t.Errorf("Expected an apology after cancellation, got %+v", last)
	}
	if p.State().Busy {
		t.Error("Expected the panel to be free after the cancelled send")
	}
}
