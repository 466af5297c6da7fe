package usecase

import (
	"time"

	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/service/bamboohr"
	"github.com/secmon-lab/bambooslack/pkg/service/slack"
	"github.com/secmon-lab/bambooslack/pkg/utils/async"
)

type UseCases struct {
	repo      interfaces.Repository
	slack     slack.Service
	directory bamboohr.Service
	clock     func() time.Time
	dispatch  async.Dispatcher
	clientID  string
	baseURL   string
	Install   *InstallUseCase
	Command   *CommandUseCase
	Reconcile *ReconcileUseCase
}

type Option func(*UseCases)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

// WithDispatcher sets how detached work (install command, OAuth resume) is run
func WithDispatcher(d async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatch = d
	}
}

// WithClientID sets the Slack OAuth client ID used in re-authorization links
func WithClientID(clientID string) Option {
	return func(uc *UseCases) {
		uc.clientID = clientID
	}
}

// WithBaseURL sets the public URL of this service. The OAuth redirect_uri is derived from it.
func WithBaseURL(baseURL string) Option {
	return func(uc *UseCases) {
		uc.baseURL = baseURL
	}
}

func New(repo interfaces.Repository, slackService slack.Service, directory bamboohr.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		slack:     slackService,
		directory: directory,
		clock:     time.Now,
		dispatch:  async.Dispatch,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Install = &InstallUseCase{
		repo:      repo,
		slack:     slackService,
		directory: directory,
		clock:     uc.clock,
		dispatch:  uc.dispatch,
		clientID:  uc.clientID,
		baseURL:   uc.baseURL,
	}
	uc.Command = &CommandUseCase{
		repo:     repo,
		install:  uc.Install,
		dispatch: uc.dispatch,
	}
	uc.Reconcile = &ReconcileUseCase{
		repo:      repo,
		slack:     slackService,
		directory: directory,
		clock:     uc.clock,
	}

	return uc
}
