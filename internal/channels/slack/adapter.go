// Package slack provides the Slack channel adapter, connected over
// socket mode.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/valethq/valet/internal/channels"
	"github.com/valethq/valet/internal/config"
)

// Adapter implements channels.Channel for Slack.
type Adapter struct {
	config   config.SlackConfig
	client   *slack.Client
	socket   *socketmode.Client
	log      *slog.Logger
	incoming chan *channels.InboundMessage

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	botUserID string
}

// New creates a Slack adapter.
func New(cfg config.SlackConfig, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		config:   cfg,
		log:      log.With("channel", "slack"),
		incoming: make(chan *channels.InboundMessage, 100),
	}
}

func (a *Adapter) Name() string { return "slack" }

func (a *Adapter) Incoming() <-chan *channels.InboundMessage { return a.incoming }

// Start connects to Slack and begins consuming events.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}
	if a.config.Token == "" {
		return fmt.Errorf("slack bot token is required")
	}
	if a.config.AppToken == "" {
		return fmt.Errorf("slack app token is required for socket mode")
	}

	a.client = slack.New(
		a.config.Token,
		slack.OptionAppLevelToken(a.config.AppToken),
	)
	a.socket = socketmode.New(a.client, socketmode.OptionDebug(false))

	auth, err := a.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	a.botUserID = auth.UserID

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	go a.consumeEvents(runCtx)
	go func() {
		if err := a.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Error("socket mode stopped", "error", err)
		}
	}()

	a.log.Info("slack adapter started", "bot_user", a.botUserID)
	return nil
}

// Stop disconnects from Slack.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.cancel()
	a.running = false
	close(a.incoming)
	return nil
}

// SendMessage posts text to a Slack channel.
func (a *Adapter) SendMessage(channelID, text string) error {
	_, _, err := a.client.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	return nil
}

func (a *Adapter) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			a.handleEvent(evt)
		}
	}
}

func (a *Adapter) handleEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		payload, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		a.socket.Ack(*evt.Request)
		a.handleEventsAPI(payload)

	case socketmode.EventTypeConnectionError:
		a.log.Warn("slack connection error", "data", evt.Data)
	}
}

func (a *Adapter) handleEventsAPI(payload slackevents.EventsAPIEvent) {
	if payload.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := payload.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Ignore our own messages and edits, joins and other subtypes.
		if ev.User == "" || ev.User == a.botUserID || ev.SubType != "" {
			return
		}
		a.enqueue(ev.User, ev.Channel, ev.TimeStamp, ev.Text)

	case *slackevents.AppMentionEvent:
		if ev.User == "" || ev.User == a.botUserID {
			return
		}
		a.enqueue(ev.User, ev.Channel, ev.TimeStamp, a.stripMention(ev.Text))
	}
}

// stripMention removes the leading bot mention from app_mention text.
func (a *Adapter) stripMention(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, fmt.Sprintf("<@%s>", a.botUserID), ""))
}

func (a *Adapter) enqueue(userID, channelID, ts, text string) {
	msg := &channels.InboundMessage{
		ID:          ts,
		UserID:      userID,
		ChannelName: "slack",
		ChannelID:   channelID,
		Text:        text,
		ReceivedAt:  time.Now(),
	}
	select {
	case a.incoming <- msg:
	default:
		a.log.Warn("incoming queue full, dropping message", "user", userID)
	}
}
