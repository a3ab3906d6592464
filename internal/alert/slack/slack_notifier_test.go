package slack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limitguard/internal/alert/slack"
	"limitguard/internal/domain"
)

func TestNotifier_PostsWebhook(t *testing.T) {
	var gotURL string
	var got *slacklib.WebhookMessage
	n := slack.NewNotifierWithPoster("https://hooks.example.com/x", func(_ context.Context, url string, msg *slacklib.WebhookMessage) error {
		gotURL, got = url, msg
		return nil
	})

	err := n.NotifyLimitState(context.Background(), domain.LimitAlert{
		TenantID: "t1", Year: 2024, State: domain.StateAtLimit,
		Accumulated: decimal.NewFromInt(100), Forecast: decimal.NewFromInt(100),
	})

	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/x", gotURL)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "warning", got.Attachments[0].Color)
	assert.Equal(t, "100.00", got.Attachments[0].Fields[0].Value)
}

func TestNotifier_WrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	n := slack.NewNotifierWithPoster("u", func(context.Context, string, *slacklib.WebhookMessage) error { return boom })
	assert.ErrorIs(t, n.NotifyLimitState(context.Background(), domain.LimitAlert{}), boom)
}
