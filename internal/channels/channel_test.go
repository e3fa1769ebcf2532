package channels

import (
	"context"
	"testing"
	"time"
)

type stubChannel struct {
	name     string
	incoming chan *InboundMessage
	sent     []string
}

func newStubChannel(name string) *stubChannel {
	return &stubChannel{name: name, incoming: make(chan *InboundMessage, 4)}
}

func (s *stubChannel) Name() string                     { return s.name }
func (s *stubChannel) Start(ctx context.Context) error  { return nil }
func (s *stubChannel) Incoming() <-chan *InboundMessage { return s.incoming }

func (s *stubChannel) Stop() error {
	close(s.incoming)
	return nil
}

func (s *stubChannel) SendMessage(id, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func TestRouterAggregatesChannels(t *testing.T) {
	r := NewRouter()
	a := newStubChannel("a")
	b := newStubChannel("b")
	r.Register(a)
	r.Register(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}

	a.incoming <- &InboundMessage{ID: "1", ChannelName: "a", Text: "from a"}
	b.incoming <- &InboundMessage{ID: "2", ChannelName: "b", Text: "from b"}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-r.Incoming():
			seen[msg.ChannelName] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for aggregated message")
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("aggregated channels = %v, want both", seen)
	}
}

func TestRouterReply(t *testing.T) {
	r := NewRouter()
	a := newStubChannel("a")
	r.Register(a)

	if err := r.Reply("a", "C1", "hello"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if len(a.sent) != 1 || a.sent[0] != "hello" {
		t.Errorf("sent = %v", a.sent)
	}
	if err := r.Reply("missing", "C1", "hello"); err != ErrChannelNotFound {
		t.Errorf("Reply() to unknown channel = %v, want ErrChannelNotFound", err)
	}
}
