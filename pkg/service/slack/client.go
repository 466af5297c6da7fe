package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/utils/safe"
	"github.com/slack-go/slack"
)

const (
	// DefaultAPIURL is the Slack Web API endpoint
	DefaultAPIURL = "https://slack.com/api/"

	listMembersLimit = 1000
)

// httpDoer is what slack.OptionHTTPClient accepts
type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// client implements Service interface
type client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	apiURL       string
	httpClient   *http.Client
}

var _ Service = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithRedirectURI sets the redirect_uri sent with the code exchange
func WithRedirectURI(uri string) Option {
	return func(c *client) {
		c.redirectURI = uri
	}
}

// WithAPIURL overrides the Web API endpoint. It must end with a slash.
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// WithHTTPClient sets the HTTP client for every Slack call
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// New creates a Slack service for the OAuth app identified by clientID
func New(clientID, clientSecret string, opts ...Option) (Service, error) {
	if clientID == "" || clientSecret == "" {
		return nil, goerr.New("Slack client ID and client secret are required")
	}

	c := &client{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       DefaultAPIURL,
		httpClient:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) api(token string, hc httpDoer) *slack.Client {
	if hc == nil {
		hc = c.httpClient
	}
	return slack.New(token,
		slack.OptionHTTPClient(hc),
		slack.OptionAPIURL(c.apiURL),
	)
}

func toPerson(u *slack.User) *model.Person {
	return &model.Person{
		SlackID:          types.UserID(u.ID),
		Email:            strings.ToLower(u.Profile.Email),
		Name:             u.Name,
		RealName:         u.Profile.RealName,
		StatusText:       u.Profile.StatusText,
		StatusEmoji:      u.Profile.StatusEmoji,
		StatusExpiration: int64(u.Profile.StatusExpiration),
		TZOffset:         u.TZOffset,
		IsPrivileged:     u.IsAdmin || u.IsOwner || u.IsPrimaryOwner,
	}
}

// ListMembers pages through users.list and keeps members found in employees
func (c *client) ListMembers(ctx context.Context, token string, employees map[string]string) ([]*model.Person, error) {
	users, err := c.api(token, nil).GetUsersContext(ctx, slack.GetUsersOptionLimit(listMembersLimit))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	var persons []*model.Person
	for i := range users {
		u := &users[i]
		if u.Deleted || u.Profile.Email == "" {
			continue
		}

		p := toPerson(u)
		employeeID, ok := employees[p.Email]
		if !ok {
			continue
		}
		p.EmployeeID = employeeID
		persons = append(persons, p)
	}

	return persons, nil
}

// GetUser retrieves member information for the given user ID
func (c *client) GetUser(ctx context.Context, token string, userID types.UserID) (*model.Person, error) {
	user, err := c.api(token, nil).GetUserInfoContext(ctx, userID.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}
	return toPerson(user), nil
}

type profileStatus struct {
	StatusText          string `json:"status_text"`
	StatusEmoji         string `json:"status_emoji"`
	StatusTextCanonical string `json:"status_text_canonical"`
	StatusExpiration    int64  `json:"status_expiration"`
}

type profileSetRequest struct {
	User    string        `json:"user"`
	Profile profileStatus `json:"profile"`
}

// SetProfileStatus calls users.profile.set directly because slack-go does not send status_text_canonical
func (c *client) SetProfileStatus(ctx context.Context, token string, userID types.UserID, profile model.StatusProfile, expiration int64) error {
	body, err := json.Marshal(profileSetRequest{
		User: userID.String(),
		Profile: profileStatus{
			StatusText:          profile.Text,
			StatusEmoji:         profile.Emoji,
			StatusTextCanonical: profile.Canonical,
			StatusExpiration:    expiration,
		},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal profile")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"users.profile.set", bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to create users.profile.set request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call users.profile.set", goerr.V("user_id", userID))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		safe.Drain(ctx, resp.Body)
		return goerr.Wrap(slack.StatusCodeError{Code: resp.StatusCode, Status: resp.Status},
			"users.profile.set failed", goerr.V("user_id", userID))
	}

	var result slack.SlackResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return goerr.Wrap(err, "failed to decode users.profile.set response")
	}
	if err := result.Err(); err != nil {
		return goerr.Wrap(err, "users.profile.set rejected", goerr.V("user_id", userID))
	}

	return nil
}

// scopeRecorder keeps the granted scopes Slack reports in a response header
type scopeRecorder struct {
	inner  httpDoer
	scopes string
}

func (r *scopeRecorder) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.inner.Do(req)
	if resp != nil {
		r.scopes = resp.Header.Get("X-OAuth-Scopes")
	}
	return resp, err
}

// GetGrantedScopes calls auth.test and reads X-OAuth-Scopes
func (c *client) GetGrantedScopes(ctx context.Context, token string) ([]string, error) {
	rec := &scopeRecorder{inner: c.httpClient}
	if _, err := c.api(token, rec).AuthTestContext(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to call auth.test")
	}

	var scopes []string
	for _, s := range strings.Split(rec.scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes, nil
}

// ExchangeCode exchanges an OAuth code through oauth.access
func (c *client) ExchangeCode(ctx context.Context, code string) (*model.UserToken, error) {
	resp, err := slack.GetOAuthResponseContext(ctx, c.httpClient, c.clientID, c.clientSecret, code, c.redirectURI)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange OAuth code")
	}
	if resp.AccessToken == "" || resp.TeamID == "" || resp.UserID == "" {
		return nil, goerr.New("incomplete OAuth response",
			goerr.V("team_id", resp.TeamID),
			goerr.V("user_id", resp.UserID))
	}

	return &model.UserToken{
		TeamID:      types.TeamID(resp.TeamID),
		UserID:      types.UserID(resp.UserID),
		AccessToken: resp.AccessToken,
		Scope:       resp.Scope,
	}, nil
}

// PostResponse posts msg to a slash command response URL
func (c *client) PostResponse(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, c.httpClient, msg); err != nil {
		return goerr.Wrap(err, "failed to post to response URL")
	}
	return nil
}
