package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"limitguard/internal/alert"
	"limitguard/internal/domain"
)

// PostFunc posts a webhook message. slacklib.PostWebhookContext satisfies it.
type PostFunc func(ctx context.Context, url string, msg *slacklib.WebhookMessage) error

// Notifier posts limit alerts to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	post       PostFunc
}

// NewNotifier creates a Notifier for webhookURL.
func NewNotifier(webhookURL string) *Notifier {
	return NewNotifierWithPoster(webhookURL, slacklib.PostWebhookContext)
}

// NewNotifierWithPoster creates a Notifier with a custom post function.
func NewNotifierWithPoster(webhookURL string, post PostFunc) *Notifier {
	return &Notifier{webhookURL: webhookURL, post: post}
}

func (n *Notifier) NotifyLimitState(ctx context.Context, a domain.LimitAlert) error {
	msg := &slacklib.WebhookMessage{
		Text: alert.Subject(a),
		Attachments: []slacklib.Attachment{{
			Color: color(a.State),
			Fields: []slacklib.AttachmentField{
				{Title: "Accumulated", Value: a.Accumulated.StringFixed(2), Short: true},
				{Title: "Forecast", Value: a.Forecast.StringFixed(2), Short: true},
			},
		}},
	}
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("slack.Notifier.NotifyLimitState: %w", err)
	}
	return nil
}

func color(s domain.DashboardState) string {
	switch s {
	case domain.StateExceeded:
		return "danger"
	case domain.StateAtLimit, domain.StateNearLimit:
		return "warning"
	default:
		return "good"
	}
}
