package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var (
	slackIDPattern     = regexp.MustCompile(`(?i)^[a-z0-9]+$`)
	triggerIDPattern   = regexp.MustCompile(`(?i)^[a-z0-9_.]+$`)
	responseURLPattern = regexp.MustCompile(`^https://.+`)
)

// TeamID is a Slack workspace identifier and the tenant key
type TeamID string

// Validate checks if the TeamID is valid
func (t TeamID) Validate() error {
	if !slackIDPattern.MatchString(string(t)) {
		return goerr.New("team ID must be nonempty alphanumeric", goerr.V("id", t))
	}
	return nil
}

// String returns the string representation of TeamID
func (t TeamID) String() string {
	return string(t)
}

// UserID is a Slack member identifier
type UserID string

// Validate checks if the UserID is valid
func (u UserID) Validate() error {
	if !slackIDPattern.MatchString(string(u)) {
		return goerr.New("user ID must be nonempty alphanumeric", goerr.V("id", u))
	}
	return nil
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// TriggerID correlates an install command with its OAuth redirect
type TriggerID string

// Validate checks if the TriggerID is valid
func (t TriggerID) Validate() error {
	if !triggerIDPattern.MatchString(string(t)) {
		return goerr.New("trigger ID must be nonempty alphanumeric", goerr.V("id", t))
	}
	return nil
}

// String returns the string representation of TriggerID
func (t TriggerID) String() string {
	return string(t)
}

// ResponseURL is the Slack webhook a slash command answers through
type ResponseURL string

// Validate checks if the ResponseURL is an https URL
func (r ResponseURL) Validate() error {
	if !responseURLPattern.MatchString(string(r)) {
		return goerr.New("invalid response URL")
	}
	return nil
}

// String returns the string representation of ResponseURL
func (r ResponseURL) String() string {
	return string(r)
}
