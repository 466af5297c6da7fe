package slack_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

func newTestService(t *testing.T, mux *http.ServeMux, opts ...slack.Option) slack.Service {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	opts = append([]slack.Option{
		slack.WithAPIURL(srv.URL + "/api/"),
		slack.WithHTTPClient(srv.Client()),
	}, opts...)
	svc, err := slack.New("client-id", "client-secret", opts...)
	gt.NoError(t, err).Required()
	return svc
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	gt.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := slack.New("", "secret")
	gt.Value(t, err).NotNil()
}

func TestListMembers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"ok": true,
			"members": []map[string]any{
				{
					"id": "U1", "name": "ada", "tz_offset": 3600, "is_admin": true,
					"profile": map[string]any{
						"email": "Ada@example.com", "real_name": "Ada Lovelace",
						"status_text": "On holiday", "status_emoji": ":palm_tree:", "status_expiration": 1700000000,
					},
				},
				{"id": "U2", "name": "gone", "deleted": true, "profile": map[string]any{"email": "gone@example.com"}},
				{"id": "U3", "name": "bot", "profile": map[string]any{}},
				{"id": "U4", "name": "carol", "profile": map[string]any{"email": "carol@example.com"}},
				{"id": "U5", "name": "outsider", "profile": map[string]any{"email": "outsider@example.com"}},
			},
			"response_metadata": map[string]any{"next_cursor": ""},
		})
	})
	svc := newTestService(t, mux)

	persons, err := svc.ListMembers(context.Background(), "xoxp-admin", map[string]string{
		"ada@example.com":   "101",
		"carol@example.com": "103",
		"gone@example.com":  "102",
	})
	gt.NoError(t, err).Required()
	gt.Array(t, persons).Length(2).Required()

	gt.Value(t, persons[0]).Equal(&model.Person{
		SlackID:          "U1",
		Email:            "ada@example.com",
		Name:             "ada",
		RealName:         "Ada Lovelace",
		StatusText:       "On holiday",
		StatusEmoji:      ":palm_tree:",
		StatusExpiration: 1700000000,
		EmployeeID:       "101",
		TZOffset:         3600,
		IsPrivileged:     true,
	})
	gt.Value(t, persons[1].SlackID.String()).Equal("U4")
	gt.Bool(t, persons[1].IsPrivileged).False()
}

func TestSetProfileStatus(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.profile.set", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer xoxp-admin")
		body, err := io.ReadAll(r.Body)
		gt.NoError(t, err).Required()
		gt.NoError(t, json.Unmarshal(body, &got)).Required()
		writeJSON(t, w, map[string]any{"ok": true})
	})
	svc := newTestService(t, mux)

	err := svc.SetProfileStatus(context.Background(), "xoxp-admin", "U1", model.TimeOffVacation.Profile(), 1700003599)
	gt.NoError(t, err).Required()

	gt.Value(t, got["user"]).Equal("U1")
	profile, ok := got["profile"].(map[string]any)
	gt.Bool(t, ok).True()
	gt.Value(t, profile["status_text"]).Equal("On holiday")
	gt.Value(t, profile["status_emoji"]).Equal(":palm_tree:")
	gt.Value(t, profile["status_text_canonical"]).Equal("Vacationing")
	gt.Value(t, profile["status_expiration"]).Equal(float64(1700003599))
}

func TestSetProfileStatusRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.profile.set", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"ok": false, "error": "token_revoked"})
	})
	svc := newTestService(t, mux)

	err := svc.SetProfileStatus(context.Background(), "xoxp-old", "U1", model.TimeOffSick.Profile(), 0)
	gt.Value(t, err).NotNil()
	gt.Bool(t, slack.IsInvalidCredential(err)).True()
}

func TestGetGrantedScopes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth.test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OAuth-Scopes", "commands, users:read,users.profile:write")
		writeJSON(t, w, map[string]any{"ok": true, "team_id": "T1", "user_id": "U1"})
	})
	svc := newTestService(t, mux)

	scopes, err := svc.GetGrantedScopes(context.Background(), "xoxp-user")
	gt.NoError(t, err).Required()
	gt.Value(t, scopes).Equal([]string{"commands", "users:read", "users.profile:write"})
}

func TestGetUserInvalidAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"ok": false, "error": "invalid_auth"})
	})
	svc := newTestService(t, mux)

	_, err := svc.GetUser(context.Background(), "xoxp-bad", "U1")
	gt.Value(t, err).NotNil()
	gt.Bool(t, slack.IsInvalidCredential(err)).True()
}

func TestGetUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.info", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm()).Required()
		gt.Value(t, r.Form.Get("user")).Equal("U1")
		writeJSON(t, w, map[string]any{
			"ok":   true,
			"user": map[string]any{"id": "U1", "name": "ada", "is_primary_owner": true, "profile": map[string]any{"email": "ada@example.com"}},
		})
	})
	svc := newTestService(t, mux)

	p, err := svc.GetUser(context.Background(), "xoxp-user", "U1")
	gt.NoError(t, err).Required()
	gt.Bool(t, p.IsPrivileged).True()
	gt.Value(t, p.Email).Equal("ada@example.com")
}

// rewriteTransport sends every request to target regardless of the requested host
type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth.access", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm()).Required()
		gt.Value(t, r.Form.Get("code")).Equal("the-code")
		gt.Value(t, r.Form.Get("redirect_uri")).Equal("https://example.com/redirect")
		writeJSON(t, w, map[string]any{
			"ok": true, "access_token": "xoxp-new", "scope": "commands,users:read",
			"team_id": "T1", "user_id": "U7",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	gt.NoError(t, err).Required()

	svc, err := slack.New("client-id", "client-secret",
		slack.WithRedirectURI("https://example.com/redirect"),
		slack.WithHTTPClient(&http.Client{Transport: &rewriteTransport{target: target}}),
	)
	gt.NoError(t, err).Required()

	token, err := svc.ExchangeCode(context.Background(), "the-code")
	gt.NoError(t, err).Required()
	gt.Value(t, token).Equal(&model.UserToken{
		TeamID: "T1", UserID: "U7", AccessToken: "xoxp-new", Scope: "commands,users:read",
	})
}

func TestPostResponse(t *testing.T) {
	var got goslack.WebhookMessage
	mux := http.NewServeMux()
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&got)).Required()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc, err := slack.New("client-id", "client-secret", slack.WithHTTPClient(srv.Client()))
	gt.NoError(t, err).Required()

	gt.NoError(t, svc.PostResponse(context.Background(), srv.URL+"/hook", &goslack.WebhookMessage{Text: "hello"})).Required()
	gt.Value(t, got.Text).Equal("hello")

	gt.Value(t, svc.PostResponse(context.Background(), srv.URL+"/gone", &goslack.WebhookMessage{Text: "x"})).NotNil()
}

func TestIsInvalidCredential(t *testing.T) {
	gt.Bool(t, slack.IsInvalidCredential(nil)).False()
	gt.Bool(t, slack.IsInvalidCredential(goslack.SlackErrorResponse{Err: "missing_scope"})).True()
	gt.Bool(t, slack.IsInvalidCredential(goslack.SlackErrorResponse{Err: "ratelimited"})).False()
	gt.Bool(t, slack.IsInvalidCredential(goslack.StatusCodeError{Code: http.StatusUnauthorized})).True()
	gt.Bool(t, slack.IsInvalidCredential(goslack.StatusCodeError{Code: http.StatusBadGateway})).False()
}
