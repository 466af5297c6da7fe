package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/service/bamboohr"
	slacksvc "github.com/secmon-lab/bambooslack/pkg/service/slack"
	"github.com/secmon-lab/bambooslack/pkg/utils/async"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// Messages posted to the slash command response URL during installation
const (
	MsgPermissionPrompt     = "To allow application to change user's statuses it needs to request some additional permissions."
	MsgPermissionFallback   = "Adding this command requires an official Slack client."
	MsgPermissionButton     = "Review Permissions"
	MsgReauthUnavailable    = "Sorry, I couldn't process your request because of unexpected error. "
	MsgInternalError        = "Sorry, internal error occurred. Please try again later."
	MsgNotAdmin             = "Sorry you're not workspace admin in Slack."
	MsgDirectoryUnavailable = "Could not retrieve a list of users from BambooHR API with the specified organization name and token."
	MsgMembersUnavailable   = "Could not retrieve Slack users list."
	MsgNoMatchingUsers      = "Could not find anyone from BambooHR in Slack. Users should have the same emails in both applications."
	MsgOrganizationSave     = "Could not save API token due to internal error. Please try later."
	MsgInstalled            = "Congratulations! Now your team profile statuses will be synchronizing with BambooHR."
)

// Locations the OAuth redirect sends the browser to
const (
	RedirectUserDenial = "/?error=user_denial"
	RedirectOAuthError = "/?error=oauth_error"
	RedirectDBError    = "/?error=db_error"
	RedirectSuccess    = "/?success=1"
)

const slackAuthorizeURL = "https://slack.com/oauth/authorize"

// requiredScopes is sorted
var requiredScopes = []string{
	"commands",
	"users.profile:read",
	"users.profile:write",
	"users:read",
	"users:read.email",
}

// requestedScopes is the scope parameter of the authorization link
const requestedScopes = "users.profile:write,users.profile:read,users:read.email,users:read,commands"

// InstallRequest is a validated `/whoisout install` command
type InstallRequest struct {
	ResponseURL     types.ResponseURL
	TriggerID       types.TriggerID
	TeamID          types.TeamID
	UserID          types.UserID
	DirectoryOrg    types.DirectoryOrg
	DirectorySecret types.DirectorySecret `masq:"secret"`
}

// RedirectRequest holds the query of the OAuth redirect
type RedirectRequest struct {
	Code  string
	State string
	Error string
}

type InstallUseCase struct {
	repo      interfaces.Repository
	slack     slacksvc.Service
	directory bamboohr.Service
	clock     func() time.Time
	dispatch  async.Dispatcher
	clientID  string
	baseURL   string
}

// MissingScopes returns the required scopes not present in granted, in sorted order
func MissingScopes(granted []string) []string {
	sorted := slices.Clone(granted)
	slices.Sort(sorted)

	var missing []string
	for _, s := range requiredScopes {
		if _, found := slices.BinarySearch(sorted, s); !found {
			missing = append(missing, s)
		}
	}
	return missing
}

// HandleInstallCommand runs ProcessInstall and reports any unhandled failure to the user.
// It never returns an error so it can be dispatched detached from the request.
func (uc *InstallUseCase) HandleInstallCommand(ctx context.Context, req *InstallRequest) error {
	if err := uc.ProcessInstall(ctx, req, true); err != nil {
		errutil.Handle(ctx, err, "unable to process install command")
		if postErr := uc.reply(ctx, req.ResponseURL, MsgInternalError); postErr != nil {
			errutil.Handle(ctx, postErr, "failed to report install failure")
		}
	}
	return nil
}

// ProcessInstall checks the caller's token and the BambooHR credential, then saves the organization.
// Outcomes the user can act on are posted to the response URL and return nil.
// When allowReauthorization is false a missing or insufficient token is reported instead of prompting.
func (uc *InstallUseCase) ProcessInstall(ctx context.Context, req *InstallRequest, allowReauthorization bool) error {
	logger := logging.From(ctx).With(
		TeamIDKey, req.TeamID,
		UserIDKey, req.UserID,
		TriggerIDKey, req.TriggerID,
	)
	ctx = logging.With(ctx, logger)
	logger.Debug("processing install command", "allow_reauthorization", allowReauthorization)

	token, err := uc.repo.GetUserToken(ctx, req.TeamID, req.UserID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			errutil.Handle(ctx, err, "failed to read user token")
		}
		return uc.requestAuthorization(ctx, req, allowReauthorization, "Token does not exist.")
	}

	scopes, err := uc.slack.GetGrantedScopes(ctx, token.AccessToken)
	if err != nil {
		if err := credentialError(err, "failed to get granted scopes"); !errors.Is(err, ErrCredentialInvalid) {
			return err
		}
		return uc.requestAuthorization(ctx, req, allowReauthorization, "Slack API rejected the token.")
	}
	if missing := MissingScopes(scopes); len(missing) > 0 {
		return uc.requestAuthorization(ctx, req, allowReauthorization,
			"Following scopes are missing: "+strings.Join(missing, ", "))
	}

	user, err := uc.slack.GetUser(ctx, token.AccessToken, req.UserID)
	if err != nil {
		if err := credentialError(err, "failed to get user info"); !errors.Is(err, ErrCredentialInvalid) {
			return err
		}
		return uc.requestAuthorization(ctx, req, allowReauthorization, "Slack API rejected the token.")
	}
	if err := authorizeInstaller(user); err != nil {
		logger.Info("install denied", "error", err)
		return uc.reply(ctx, req.ResponseURL, MsgNotAdmin)
	}

	cred := model.DirectoryCredential{Org: req.DirectoryOrg, Secret: req.DirectorySecret}
	employees, err := uc.directory.ListActiveEmployees(ctx, cred)
	if err != nil {
		logger.Warn("BambooHR credential validation failed", "error", err, "org", req.DirectoryOrg)
		msg := MsgDirectoryUnavailable
		var apiErr *bamboohr.APIError
		if errors.As(err, &apiErr) {
			msg = fmt.Sprintf("%s HTTP status: %d.", msg, apiErr.StatusCode)
		}
		return uc.reply(ctx, req.ResponseURL, msg)
	}

	persons, err := uc.slack.ListMembers(ctx, token.AccessToken, employees)
	if err != nil {
		if !slacksvc.IsInvalidCredential(err) {
			errutil.Handle(ctx, err, "could not retrieve Slack users list")
		}
		return uc.reply(ctx, req.ResponseURL, MsgMembersUnavailable)
	}
	if len(persons) == 0 {
		return uc.reply(ctx, req.ResponseURL, MsgNoMatchingUsers)
	}

	org := &model.Organization{
		TeamID:          req.TeamID,
		DirectorySecret: req.DirectorySecret,
		DirectoryOrg:    req.DirectoryOrg,
		AdminUserID:     req.UserID,
	}
	if err := uc.repo.PutOrganization(ctx, org); err != nil {
		errutil.Handle(ctx, goerr.Wrap(ErrStorageFailure, "failed to save organization", goerr.V("error", err)), "install failed")
		return uc.reply(ctx, req.ResponseURL, MsgOrganizationSave)
	}

	logger.Info("organization installed", "org", req.DirectoryOrg, "matched_members", len(persons))
	return uc.reply(ctx, req.ResponseURL, MsgInstalled)
}

// credentialError classifies a Slack failure: ErrCredentialInvalid when the token
// itself was rejected, ErrUpstreamUnavailable otherwise
func credentialError(err error, msg string) error {
	if slacksvc.IsInvalidCredential(err) {
		return goerr.Wrap(ErrCredentialInvalid, msg, goerr.V("error", err))
	}
	return goerr.Wrap(ErrUpstreamUnavailable, msg, goerr.V("error", err))
}

// authorizeInstaller allows workspace admins and owners only
func authorizeInstaller(user *model.Person) error {
	if !user.IsPrivileged {
		return goerr.Wrap(ErrAuthorizationDenied, "installer is not a workspace admin", goerr.V(UserIDKey, user.SlackID))
	}
	return nil
}

func (uc *InstallUseCase) requestAuthorization(ctx context.Context, req *InstallRequest, allow bool, reason string) error {
	logging.From(ctx).Debug("starting request token workflow", "reason", reason, "allowed", allow)

	if !allow {
		return uc.reply(ctx, req.ResponseURL, MsgReauthUnavailable+reason)
	}

	cb := &model.InstallCallback{
		TriggerID:       req.TriggerID,
		ResponseURL:     req.ResponseURL,
		AdminUserID:     req.UserID,
		DirectoryOrg:    req.DirectoryOrg,
		DirectorySecret: req.DirectorySecret,
		CreatedAt:       uc.clock().Unix(),
	}
	if err := uc.repo.PutInstallCallback(ctx, cb); err != nil {
		errutil.Handle(ctx, goerr.Wrap(ErrStorageFailure, "could not store install callback", goerr.V("error", err)), "install failed")
		return uc.reply(ctx, req.ResponseURL, MsgInternalError)
	}

	return uc.post(ctx, req.ResponseURL, &slack.WebhookMessage{
		Text: MsgPermissionPrompt,
		Attachments: []slack.Attachment{
			{
				Fallback: MsgPermissionFallback,
				Actions: []slack.AttachmentAction{
					{
						Type: "button",
						Text: MsgPermissionButton,
						URL:  uc.AuthorizeURL(req.TriggerID),
					},
				},
			},
		},
	})
}

// AuthorizeURL returns the Slack authorization link carrying triggerID as state
func (uc *InstallUseCase) AuthorizeURL(triggerID types.TriggerID) string {
	var b strings.Builder
	b.WriteString(slackAuthorizeURL)
	b.WriteString("?client_id=")
	b.WriteString(url.QueryEscape(uc.clientID))
	b.WriteString("&state=")
	b.WriteString(url.QueryEscape(triggerID.String()))
	b.WriteString("&scope=")
	b.WriteString(requestedScopes)
	if uc.baseURL != "" {
		b.WriteString("&redirect_uri=")
		b.WriteString(url.QueryEscape(RedirectURI(uc.baseURL)))
	}
	return b.String()
}

// RedirectURI is the OAuth redirect endpoint under baseURL
func RedirectURI(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/redirect"
}

func (uc *InstallUseCase) reply(ctx context.Context, responseURL types.ResponseURL, text string) error {
	return uc.post(ctx, responseURL, &slack.WebhookMessage{Text: text})
}

func (uc *InstallUseCase) post(ctx context.Context, responseURL types.ResponseURL, msg *slack.WebhookMessage) error {
	if err := uc.slack.PostResponse(ctx, responseURL.String(), msg); err != nil {
		return goerr.Wrap(err, "unable to post to response URL")
	}
	return nil
}

func trimControl(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// HandleRedirect completes the OAuth flow and returns where the browser goes next.
// A pending install callback for the state never survives this call: it is deleted
// here on failure, or after the resumed install when the token was saved.
func (uc *InstallUseCase) HandleRedirect(ctx context.Context, req *RedirectRequest) (string, error) {
	logger := logging.From(ctx)
	state := types.TriggerID(trimControl(req.State))
	code := trimControl(req.Code)

	if state != "" {
		if err := state.Validate(); err != nil {
			logger.Warn("ignoring malformed OAuth state", "state", state)
			state = ""
		}
	}

	if req.Error != "" {
		logger.Info("user declined authorization", "error", req.Error)
		uc.discardCallback(ctx, state)
		return RedirectUserDenial, nil
	}
	if code == "" {
		return "", goerr.Wrap(ErrValidationFailure, "OAuth redirect without code")
	}

	token, err := uc.slack.ExchangeCode(ctx, code)
	if err != nil {
		errutil.Handle(ctx, err, "OAuth code exchange failed")
		uc.discardCallback(ctx, state)
		return RedirectOAuthError, nil
	}

	if err := uc.repo.PutUserToken(ctx, token); err != nil {
		errutil.Handle(ctx, goerr.Wrap(ErrStorageFailure, "failed to save user token",
			goerr.V("error", err),
			goerr.V(TeamIDKey, token.TeamID),
			goerr.V(UserIDKey, token.UserID)), "OAuth redirect failed")
		uc.discardCallback(ctx, state)
		return RedirectDBError, nil
	}
	logger.Info("user installed application", TeamIDKey, token.TeamID, UserIDKey, token.UserID)

	if state != "" {
		uc.dispatch(ctx, func(ctx context.Context) error {
			return uc.resumeInstall(ctx, state, token)
		})
	}

	return RedirectSuccess, nil
}

// resumeInstall finishes an install that waited for authorization, acting as the
// user who actually authorized
func (uc *InstallUseCase) resumeInstall(ctx context.Context, triggerID types.TriggerID, token *model.UserToken) error {
	defer uc.discardCallback(ctx, triggerID)

	cb, err := uc.repo.GetInstallCallback(ctx, triggerID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			errutil.Handle(ctx, err, "failed to read install callback")
		}
		return nil
	}

	logging.From(ctx).Debug("install callback found, processing install command again", TriggerIDKey, triggerID)
	req := &InstallRequest{
		ResponseURL:     cb.ResponseURL,
		TriggerID:       triggerID,
		TeamID:          token.TeamID,
		UserID:          token.UserID,
		DirectoryOrg:    cb.DirectoryOrg,
		DirectorySecret: cb.DirectorySecret,
	}
	if err := uc.ProcessInstall(ctx, req, false); err != nil {
		return goerr.Wrap(err, "unable to reprocess install command", goerr.V(TriggerIDKey, triggerID))
	}
	return nil
}

func (uc *InstallUseCase) discardCallback(ctx context.Context, triggerID types.TriggerID) {
	if triggerID == "" {
		return
	}
	if err := uc.repo.DeleteInstallCallback(ctx, triggerID); err != nil {
		errutil.Handle(ctx, err, "failed to delete install callback")
	}
}
