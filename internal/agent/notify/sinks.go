package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/dmitrijs2005/storysync/internal/logging"
)

type LogSink struct {
	log logging.Logger
}

func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log.With("sink", "log")}
}

func (s *LogSink) Deliver(ctx context.Context, n Notification) error {
	s.log.Info(ctx, "notification", "id", n.ID, "tag", n.Tag, "title", n.Title, "body", n.Body, "url", n.Target())
	return nil
}

// SlackSink posts notifications to a Slack incoming webhook.
type SlackSink struct {
	webhookURL string
	channel    string
}

func NewSlackSink(webhookURL, channel string) *SlackSink {
	return &SlackSink{webhookURL: webhookURL, channel: channel}
}

func (s *SlackSink) Deliver(ctx context.Context, n Notification) error {
	msg := &slack.WebhookMessage{
		Channel: s.channel,
		Text:    fmt.Sprintf("*%s*\n%s", n.Title, n.Body),
	}
	if len(n.Actions) > 0 {
		names := make([]string, 0, len(n.Actions))
		for _, a := range n.Actions {
			names = append(names, a.Title)
		}
		msg.Attachments = []slack.Attachment{{
			Fallback:  n.Title,
			Footer:    strings.Join(names, " | "),
			TitleLink: n.Target(),
		}}
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
