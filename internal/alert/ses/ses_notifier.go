package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"limitguard/internal/alert"
	"limitguard/internal/domain"
)

// EmailAPI is the subset of the SES v2 client used by Notifier.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier emails limit alerts through Amazon SES.
type Notifier struct {
	client      EmailAPI
	fromAddress string
	fromName    string
	recipients  []string
}

// NewNotifier creates an SES-backed Notifier in region.
func NewNotifier(ctx context.Context, region, fromAddress, fromName string, recipients []string) (*Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewNotifierWithClient(sesv2.NewFromConfig(cfg), fromAddress, fromName, recipients), nil
}

// NewNotifierWithClient creates a Notifier over an existing client.
func NewNotifierWithClient(client EmailAPI, fromAddress, fromName string, recipients []string) *Notifier {
	return &Notifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		recipients:  recipients,
	}
}

func (s *Notifier) NotifyLimitState(ctx context.Context, a domain.LimitAlert) error {
	if len(s.recipients) == 0 {
		return nil
	}
	subject := alert.Subject(a)
	textBody := alert.Body(a)
	htmlBody := buildAlertHTML(subject, textBody)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildAlertHTML(subject, body string) string {
	var rows strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		k, v, _ := strings.Cut(line, ": ")
		fmt.Fprintf(&rows, `<tr><td style="color: #666; padding-right: 12px;">%s</td><td>%s</td></tr>`,
			html.EscapeString(k), html.EscapeString(v))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s</h2>
  <table>%s</table>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">LimitGuard compliance alerts</p>
</body>
</html>`, html.EscapeString(subject), rows.String())
}
