package main

import (
	"log"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const alertCooldown = 15 * time.Minute

// Notifier posts operational notices (catalog load failure, upstream
// outages, quality summaries) to a Slack channel. A nil Notifier is
// valid and does nothing, so callers never check for configuration.
type Notifier struct {
	api     *slack.Client
	channel string

	mu        sync.Mutex
	lastAlert time.Time
}

// NewNotifier returns nil unless both a bot token and a channel are
// configured.
func NewNotifier(token, channel string) *Notifier {
	if token == "" || channel == "" {
		return nil
	}
	return &Notifier{
		api:     slack.New(token),
		channel: channel,
	}
}

// Post sends a message to the alert channel.
func (n *Notifier) Post(text string) {
	if n == nil {
		return
	}
	if _, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("notify: failed to post to %s: %v", n.channel, err)
	}
}

// Alert posts like Post but rate-limits to one message per cooldown
// window, for noisy conditions such as a flapping upstream.
func (n *Notifier) Alert(text string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	if time.Since(n.lastAlert) < alertCooldown {
		n.mu.Unlock()
		return
	}
	n.lastAlert = time.Now()
	n.mu.Unlock()

	n.Post(text)
}
