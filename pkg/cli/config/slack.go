package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	clientID      string
	clientSecret  string
	signingSecret string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-client-id",
			Usage:       "Slack OAuth client ID",
			Category:    "Slack",
			Destination: &x.clientID,
			Sources:     cli.EnvVars("BAMBOOSLACK_SLACK_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-client-secret",
			Usage:       "Slack OAuth client secret",
			Category:    "Slack",
			Destination: &x.clientSecret,
			Sources:     cli.EnvVars("BAMBOOSLACK_SLACK_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for request verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("BAMBOOSLACK_SLACK_SIGNING_SECRET"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("client-id.len", len(x.clientID)),
		slog.Int("client-secret.len", len(x.clientSecret)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
	)
}

// Fill takes values missing from flags out of the configuration file
func (x *Slack) Fill(v *FileValues) {
	fill(&x.clientID, v.SlackClientID)
	fill(&x.clientSecret, v.SlackClientSecret)
	fill(&x.signingSecret, v.SlackSigningSecret)
}

// ClientID returns the Slack OAuth client ID
func (x *Slack) ClientID() string {
	return x.clientID
}

// SigningSecret returns the Slack signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// Configure creates the Slack API service. redirectURI may be empty.
func (x *Slack) Configure(redirectURI string) (slack.Service, error) {
	if x.clientID == "" || x.clientSecret == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "Slack OAuth configuration is required: set --slack-client-id and --slack-client-secret")
	}

	var opts []slack.Option
	if redirectURI != "" {
		opts = append(opts, slack.WithRedirectURI(redirectURI))
	}

	svc, err := slack.New(x.clientID, x.clientSecret, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
