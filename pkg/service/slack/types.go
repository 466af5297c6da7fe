package slack

import (
	"context"

	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Service provides the Slack Web API calls the integration makes.
// Every call except ExchangeCode and PostResponse authenticates with the given user token.
type Service interface {
	// ListMembers returns active members whose email is a key of employees.
	// EmployeeID of each person is taken from employees.
	ListMembers(ctx context.Context, token string, employees map[string]string) ([]*model.Person, error)

	// GetUser returns the member userID
	GetUser(ctx context.Context, token string, userID types.UserID) (*model.Person, error)

	// SetProfileStatus writes the status of userID
	SetProfileStatus(ctx context.Context, token string, userID types.UserID, profile model.StatusProfile, expiration int64) error

	// GetGrantedScopes returns the OAuth scopes granted to token
	GetGrantedScopes(ctx context.Context, token string) ([]string, error)

	// ExchangeCode trades an OAuth code for a user token
	ExchangeCode(ctx context.Context, code string) (*model.UserToken, error)

	// PostResponse posts msg to a slash command response URL
	PostResponse(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error
}
