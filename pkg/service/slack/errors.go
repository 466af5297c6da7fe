package slack

import (
	"errors"
	"net/http"

	"github.com/slack-go/slack"
)

// Slack error codes meaning the token must be granted again
var invalidCredentialErrors = map[string]struct{}{
	"not_authed":       {},
	"invalid_auth":     {},
	"token_revoked":    {},
	"token_expired":    {},
	"no_permission":    {},
	"missing_scope":    {},
	"account_inactive": {},
}

// IsInvalidCredential reports whether err means the token is unusable
func IsInvalidCredential(err error) bool {
	if err == nil {
		return false
	}

	var se slack.SlackErrorResponse
	if errors.As(err, &se) {
		_, ok := invalidCredentialErrors[se.Err]
		return ok
	}

	var sc slack.StatusCodeError
	if errors.As(err, &sc) {
		return sc.Code == http.StatusUnauthorized || sc.Code == http.StatusForbidden
	}

	return false
}
