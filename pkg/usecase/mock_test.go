package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/repository/ledger"
	"github.com/secmon-lab/bambooslack/pkg/repository/memory"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/secmon-lab/bambooslack/pkg/utils/async"
	"github.com/secmon-lab/bambooslack/pkg/utils/crypt"
	"github.com/slack-go/slack"
)

const (
	testSecret      = "0123456789abcdef0123456789abcdef01234567"
	testResponseURL = "https://hooks.slack.test/commands/T1/1/abc"
	testClientID    = "1234.5678"
	testBaseURL     = "https://whoisout.example.com"
)

var allScopes = []string{"commands", "users.profile:read", "users.profile:write", "users:read", "users:read.email"}

// mockSlackService is a mock implementation of slack.Service for testing
type mockSlackService struct {
	mu sync.Mutex

	// members are returned by ListMembers for every token unless listMembersFn is set
	members       []*model.Person
	listMembersFn func(ctx context.Context, token string, employees map[string]string) ([]*model.Person, error)
	getUserFn     func(ctx context.Context, token string, userID types.UserID) (*model.Person, error)
	scopesFn      func(ctx context.Context, token string) ([]string, error)
	exchangeFn    func(ctx context.Context, code string) (*model.UserToken, error)
	setStatusFn   func(ctx context.Context, token string, userID types.UserID) error
	postFn        func(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error

	statusCalls   []statusCall
	posts         []postCall
	exchangeCalls []string
}

type statusCall struct {
	Token      string
	UserID     types.UserID
	Profile    model.StatusProfile
	Expiration int64
}

type postCall struct {
	URL string
	Msg *slack.WebhookMessage
}

func (m *mockSlackService) ListMembers(ctx context.Context, token string, employees map[string]string) ([]*model.Person, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, token, employees)
	}

	var persons []*model.Person
	for _, p := range m.members {
		id, ok := employees[p.Email]
		if !ok {
			continue
		}
		cp := *p
		cp.EmployeeID = id
		persons = append(persons, &cp)
	}
	return persons, nil
}

func (m *mockSlackService) GetUser(ctx context.Context, token string, userID types.UserID) (*model.Person, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, token, userID)
	}
	return &model.Person{SlackID: userID, IsPrivileged: true}, nil
}

func (m *mockSlackService) SetProfileStatus(ctx context.Context, token string, userID types.UserID, profile model.StatusProfile, expiration int64) error {
	m.mu.Lock()
	m.statusCalls = append(m.statusCalls, statusCall{Token: token, UserID: userID, Profile: profile, Expiration: expiration})
	m.mu.Unlock()

	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, token, userID)
	}
	return nil
}

func (m *mockSlackService) GetGrantedScopes(ctx context.Context, token string) ([]string, error) {
	if m.scopesFn != nil {
		return m.scopesFn(ctx, token)
	}
	return allScopes, nil
}

func (m *mockSlackService) ExchangeCode(ctx context.Context, code string) (*model.UserToken, error) {
	m.mu.Lock()
	m.exchangeCalls = append(m.exchangeCalls, code)
	m.mu.Unlock()

	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code)
	}
	return &model.UserToken{TeamID: "T1", UserID: "U1", AccessToken: "xoxp-" + code}, nil
}

func (m *mockSlackService) PostResponse(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	m.mu.Lock()
	m.posts = append(m.posts, postCall{URL: responseURL, Msg: msg})
	m.mu.Unlock()

	if m.postFn != nil {
		return m.postFn(ctx, responseURL, msg)
	}
	return nil
}

func (m *mockSlackService) postedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	texts := make([]string, 0, len(m.posts))
	for _, p := range m.posts {
		texts = append(texts, p.Msg.Text)
	}
	return texts
}

// mockDirectoryService is a mock implementation of bamboohr.Service keyed by organization name
type mockDirectoryService struct {
	mu sync.Mutex

	employees map[types.DirectoryOrg]map[string]string
	schedules map[types.DirectoryOrg]model.TimeOffSchedule
	errs      map[types.DirectoryOrg]error

	employeeCalls int
	timeOffCalls  []timeOffCall
}

type timeOffCall struct {
	Org   types.DirectoryOrg
	Start string
	End   string
}

func newMockDirectory() *mockDirectoryService {
	return &mockDirectoryService{
		employees: make(map[types.DirectoryOrg]map[string]string),
		schedules: make(map[types.DirectoryOrg]model.TimeOffSchedule),
		errs:      make(map[types.DirectoryOrg]error),
	}
}

func (m *mockDirectoryService) ListActiveEmployees(ctx context.Context, cred model.DirectoryCredential) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employeeCalls++
	if err := m.errs[cred.Org]; err != nil {
		return nil, err
	}
	return m.employees[cred.Org], nil
}

func (m *mockDirectoryService) ListApprovedTimeOff(ctx context.Context, cred model.DirectoryCredential, start, end string) (model.TimeOffSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeOffCalls = append(m.timeOffCalls, timeOffCall{Org: cred.Org, Start: start, End: end})
	if err := m.errs[cred.Org]; err != nil {
		return nil, err
	}
	if s, ok := m.schedules[cred.Org]; ok {
		return s, nil
	}
	return model.TimeOffSchedule{}, nil
}

type testEnv struct {
	repo      *ledger.Ledger
	slack     *mockSlackService
	directory *mockDirectoryService
	uc        *usecase.UseCases
	now       time.Time
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	c, err := crypt.New([]byte("usecase-test-key"))
	gt.NoError(t, err).Required()

	env := &testEnv{
		repo:      ledger.New(memory.New(), c),
		slack:     &mockSlackService{},
		directory: newMockDirectory(),
		now:       now,
	}
	env.uc = usecase.New(env.repo, env.slack, env.directory,
		usecase.WithClock(func() time.Time { return env.now }),
		usecase.WithDispatcher(async.Inline),
		usecase.WithClientID(testClientID),
		usecase.WithBaseURL(testBaseURL),
	)
	return env
}

// installOrg stores an installed organization and its admin token
func (env *testEnv) installOrg(t *testing.T, teamID types.TeamID, org types.DirectoryOrg, adminID types.UserID) {
	t.Helper()
	ctx := context.Background()

	gt.NoError(t, env.repo.PutOrganization(ctx, &model.Organization{
		TeamID:          teamID,
		DirectoryOrg:    org,
		DirectorySecret: testSecret,
		AdminUserID:     adminID,
	})).Required()
	gt.NoError(t, env.repo.PutUserToken(ctx, &model.UserToken{
		TeamID:      teamID,
		UserID:      adminID,
		AccessToken: "xoxp-admin-" + teamID.String(),
	})).Required()
}
