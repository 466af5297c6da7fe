package model

import "github.com/secmon-lab/bambooslack/pkg/domain/types"

// UserToken is the OAuth grant a Slack user approved for this application.
// It is stored as the provider's token payload.
type UserToken struct {
	TeamID      types.TeamID `json:"team_id"`
	UserID      types.UserID `json:"user_id"`
	AccessToken string       `json:"access_token" masq:"secret"`
	Scope       string       `json:"scope,omitempty"`
}
