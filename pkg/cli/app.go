package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/cli/config"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/service/bamboohr"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// appConfig gathers the configuration shared by serve and sync
type appConfig struct {
	file       config.File
	cipher     config.Cipher
	repository config.Repository
	slack      config.Slack
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.file.Flags()...)
	flags = append(flags, x.cipher.Flags()...)
	flags = append(flags, x.repository.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	return flags
}

type filler interface {
	Fill(*config.FileValues)
}

// load reads the configuration file and fills every value not given by flag
func (x *appConfig) load(extra ...filler) error {
	values, err := x.file.Load()
	if err != nil {
		return err
	}
	x.cipher.Fill(values)
	x.slack.Fill(values)
	for _, e := range extra {
		e.Fill(values)
	}
	return nil
}

// build wires the ledger, the external services and the use cases.
// The caller is responsible for calling Close() on the returned repository.
func (x *appConfig) build(ctx context.Context, baseURL string, opts ...usecase.Option) (*usecase.UseCases, interfaces.Repository, error) {
	cipher, err := x.cipher.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure cipher")
	}

	var redirectURI string
	if baseURL != "" {
		redirectURI = usecase.RedirectURI(baseURL)
	}
	slackSvc, err := x.slack.Configure(redirectURI)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure slack")
	}

	repo, err := x.repository.Configure(ctx, cipher)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}

	ucOpts := []usecase.Option{
		usecase.WithClientID(x.slack.ClientID()),
		usecase.WithBaseURL(baseURL),
	}
	ucOpts = append(ucOpts, opts...)

	uc := usecase.New(repo, slackSvc, bamboohr.New(), ucOpts...)
	return uc, repo, nil
}
