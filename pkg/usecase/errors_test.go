package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/slack-go/slack"
)

func TestCredentialError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"revoked token", slack.SlackErrorResponse{Err: "token_revoked"}, usecase.ErrCredentialInvalid},
		{"invalid auth", slack.SlackErrorResponse{Err: "invalid_auth"}, usecase.ErrCredentialInvalid},
		{"rate limited", slack.SlackErrorResponse{Err: "ratelimited"}, usecase.ErrUpstreamUnavailable},
		{"network", errors.New("connection reset"), usecase.ErrUpstreamUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := usecase.CredentialError(tc.err, "failed to call slack")
			gt.Error(t, err).Is(tc.want)
		})
	}
}

func TestAuthorizeInstaller(t *testing.T) {
	gt.NoError(t, usecase.AuthorizeInstaller(&model.Person{SlackID: "U1", IsPrivileged: true}))
	gt.Error(t, usecase.AuthorizeInstaller(&model.Person{SlackID: "U2"})).Is(usecase.ErrAuthorizationDenied)
}
