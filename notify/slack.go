package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"qapages/config"
	"qapages/errors"
)

const slackTimeout = 10 * time.Second

// Slack posts messages through an incoming webhook and falls back to the
// chat.postMessage Web API when the webhook is unset or fails.
type Slack struct {
	WebhookURL string
	Token      string
	Channel    string
	Username   string
	IconEmoji  string

	// APIURL overrides the Slack Web API base URL.
	APIURL     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewSlack builds a Slack notifier from configuration.
func NewSlack(cfg config.SlackConfig, project string, logger zerolog.Logger) *Slack {
	username := cfg.Username
	if username == "" && project != "" {
		username = project + "-Bot"
	}
	icon := cfg.IconEmoji
	if icon == "" {
		icon = ":robot_face:"
	}
	return &Slack{
		WebhookURL: cfg.WebhookURL,
		Token:      cfg.Token,
		Channel:    cfg.Channel,
		Username:   username,
		IconEmoji:  icon,
		Logger:     logger,
	}
}

// Enabled reports whether either delivery path is configured.
func (s *Slack) Enabled() bool {
	return s.WebhookURL != "" || s.Token != ""
}

// Send posts msg.Text to Slack.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: slack webhook_url and token are empty", errors.ErrNotificationDisabled)
	}

	if s.WebhookURL != "" {
		err := s.sendWebhook(ctx, msg.Text)
		if err == nil {
			return nil
		}
		if s.Token == "" {
			return errors.Wrap(err, "slack webhook")
		}
		s.Logger.Warn().Err(err).Msg("slack webhook failed, falling back to web api")
	} else {
		s.Logger.Debug().Msg("slack webhook not configured, using web api")
	}
	return s.sendAPI(ctx, msg.Text)
}

func (s *Slack) sendWebhook(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, slackTimeout)
	defer cancel()

	return slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, s.httpClient(), &slack.WebhookMessage{
		Text:      text,
		Username:  s.Username,
		IconEmoji: s.IconEmoji,
	})
}

func (s *Slack) sendAPI(ctx context.Context, text string) error {
	opts := []slack.Option{slack.OptionHTTPClient(s.httpClient())}
	if s.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(s.APIURL))
	}
	api := slack.New(s.Token, opts...)

	ctx, cancel := context.WithTimeout(ctx, slackTimeout)
	defer cancel()

	_, _, err := api.PostMessageContext(ctx, s.Channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(s.Username),
		slack.MsgOptionIconEmoji(s.IconEmoji),
	)
	return errors.Wrap(err, "slack chat.postMessage")
}

func (s *Slack) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: slackTimeout}
}
