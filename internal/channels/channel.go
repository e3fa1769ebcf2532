// Package channels provides the messaging channel abstraction Valet
// receives user messages through and replies on.
package channels

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrChannelNotFound = errors.New("channel not found")

// InboundMessage is an incoming user message from any channel.
type InboundMessage struct {
	ID          string
	UserID      string
	ChannelName string
	ChannelID   string
	Text        string
	ReceivedAt  time.Time
}

// Channel is a messaging platform adapter. Implementations publish
// incoming messages on Incoming and deliver replies via SendMessage.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Incoming() <-chan *InboundMessage

	// SendMessage delivers text to the platform channel the inbound
	// message arrived on.
	SendMessage(channelID, text string) error
}

// Router aggregates the incoming streams of all registered channels and
// routes replies back to the channel a message arrived on.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Channel
	incoming chan *InboundMessage
	done     chan struct{}
}

// NewRouter creates a channel router.
func NewRouter() *Router {
	return &Router{
		channels: make(map[string]Channel),
		incoming: make(chan *InboundMessage, 100),
		done:     make(chan struct{}),
	}
}

// Register adds a channel to the router.
func (r *Router) Register(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Name()] = ch
}

// Incoming returns the unified stream of messages from all channels.
func (r *Router) Incoming() <-chan *InboundMessage {
	return r.incoming
}

// StartAll starts every registered channel and begins aggregation.
func (r *Router) StartAll(ctx context.Context) error {
	r.mu.RLock()
	chans := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		chans = append(chans, ch)
	}
	r.mu.RUnlock()

	for _, ch := range chans {
		if err := ch.Start(ctx); err != nil {
			return err
		}
	}
	for _, ch := range chans {
		go r.aggregate(ctx, ch)
	}
	return nil
}

func (r *Router) aggregate(ctx context.Context, ch Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case msg, ok := <-ch.Incoming():
			if !ok {
				return
			}
			select {
			case r.incoming <- msg:
			case <-ctx.Done():
				return
			case <-r.done:
				return
			}
		}
	}
}

// StopAll stops aggregation and every registered channel.
func (r *Router) StopAll() error {
	close(r.done)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var lastErr error
	for _, ch := range r.channels {
		if err := ch.Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Reply sends text back on the named channel.
func (r *Router) Reply(channelName, channelID, text string) error {
	r.mu.RLock()
	ch, ok := r.channels[channelName]
	r.mu.RUnlock()
	if !ok {
		return ErrChannelNotFound
	}
	return ch.SendMessage(channelID, text)
}
