package bamboohr

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/utils/safe"
)

const (
	DefaultBaseURL = "https://api.bamboohr.com/"
	userAgent      = "bambooslack"
)

// Service is the subset of the BambooHR API the integration needs
type Service interface {
	// ListActiveEmployees returns lower-cased email to employee ID for enabled users
	ListActiveEmployees(ctx context.Context, cred model.DirectoryCredential) (map[string]string, error)

	// ListApprovedTimeOff returns approved time-off between start and end (inclusive, YYYY-MM-DD)
	ListApprovedTimeOff(ctx context.Context, cred model.DirectoryCredential, start, end string) (model.TimeOffSchedule, error)
}

// APIError is returned when BambooHR answers with a non-200 status
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bamboohr API returned status %d", e.StatusCode)
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Service = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

func New(opts ...Option) Service {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

func (c *client) get(ctx context.Context, cred model.DirectoryCredential, path string, query url.Values, out any) error {
	u := c.baseURL + "/api/gateway.php/" + url.PathEscape(cred.Org.String()) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create bamboohr request", goerr.V("path", path))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "utf-8")
	req.Header.Set("User-Agent", userAgent)
	// BambooHR takes the API key as user name with any password
	req.SetBasicAuth(cred.Secret.String(), "x")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call bamboohr", goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		safe.Drain(ctx, resp.Body)
		return goerr.Wrap(&APIError{StatusCode: resp.StatusCode}, "bamboohr request failed",
			goerr.V("path", path),
			goerr.V("org", cred.Org))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode bamboohr response", goerr.V("path", path))
	}
	return nil
}

type metaUser struct {
	EmployeeID json.Number `json:"employeeId"`
	Email      string      `json:"email"`
	Status     string      `json:"status"`
}

func (c *client) ListActiveEmployees(ctx context.Context, cred model.DirectoryCredential) (map[string]string, error) {
	var users map[string]metaUser
	if err := c.get(ctx, cred, "/v1/meta/users/", nil, &users); err != nil {
		return nil, err
	}

	employees := make(map[string]string, len(users))
	for _, u := range users {
		// Disabled accounts belong to people who left
		if u.Status != "enabled" || u.Email == "" || u.EmployeeID == "" {
			continue
		}
		employees[strings.ToLower(u.Email)] = u.EmployeeID.String()
	}
	return employees, nil
}

type timeOffRequest struct {
	EmployeeID json.Number `json:"employeeId"`
	Type       struct {
		Name string `json:"name"`
	} `json:"type"`
	Dates map[string]json.RawMessage `json:"dates"`
}

func (c *client) ListApprovedTimeOff(ctx context.Context, cred model.DirectoryCredential, start, end string) (model.TimeOffSchedule, error) {
	if start == "" || end == "" {
		return nil, goerr.New("time-off window must be set", goerr.V("start", start), goerr.V("end", end))
	}
	if start > end {
		return nil, goerr.New("time-off window starts after it ends", goerr.V("start", start), goerr.V("end", end))
	}

	query := url.Values{}
	query.Set("status", "approved")
	query.Set("start", start)
	query.Set("end", end)

	var requests []timeOffRequest
	if err := c.get(ctx, cred, "/v1/time_off/requests/", query, &requests); err != nil {
		return nil, err
	}

	schedule := model.TimeOffSchedule{}
	for _, r := range requests {
		for _, date := range slices.Sorted(maps.Keys(r.Dates)) {
			if start <= date && date <= end {
				schedule.Add(r.EmployeeID.String(), date, r.Type.Name)
			}
		}
	}
	return schedule, nil
}
