package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/service/bamboohr"
	slacksvc "github.com/secmon-lab/bambooslack/pkg/service/slack"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// timeOffWindow approximates "yesterday to tomorrow" around the current instant
const timeOffWindow = 90000 * time.Second

type ReconcileUseCase struct {
	repo      interfaces.Repository
	slack     slacksvc.Service
	directory bamboohr.Service
	clock     func() time.Time
}

// StatusTarget is the status a person should have right now
type StatusTarget struct {
	Category   model.TimeOffCategory
	Profile    model.StatusProfile
	LocalDate  string
	Expiration int64
}

// LocalDate returns the calendar date at now for someone tzOffset seconds east of UTC
func LocalDate(now time.Time, tzOffset int) string {
	return now.UTC().Add(time.Duration(tzOffset) * time.Second).Format(model.DateLayout)
}

// EndOfLocalDay returns the UTC instant of 23:59:59 on date in a zone tzOffset seconds east of UTC
func EndOfLocalDay(date string, tzOffset int) (int64, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, time.UTC)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid date", goerr.V("date", date))
	}
	end := day.Add(24*time.Hour - time.Second)
	return end.Unix() - int64(tzOffset), nil
}

// ResolveStatus finds the time-off status of p at now, or false when p has none today
func ResolveStatus(p *model.Person, schedule model.TimeOffSchedule, now time.Time) (*StatusTarget, bool) {
	date := LocalDate(now, p.TZOffset)
	category, ok := model.SelectCategory(schedule.Lookup(p.EmployeeID, date))
	if !ok {
		return nil, false
	}

	expiration, err := EndOfLocalDay(date, p.TZOffset)
	if err != nil {
		return nil, false
	}

	return &StatusTarget{
		Category:   category,
		Profile:    category.Profile(),
		LocalDate:  date,
		Expiration: expiration,
	}, true
}

// Run reconciles every installed organization once. A failing organization is
// logged and does not stop the others.
func (uc *ReconcileUseCase) Run(ctx context.Context) error {
	logger := logging.From(ctx).With("run_id", uuid.NewString())
	ctx = logging.With(ctx, logger)

	orgs, err := uc.repo.GetAllOrganizations(ctx)
	if err != nil {
		return goerr.Wrap(ErrStorageFailure, "could not retrieve a list of organizations", goerr.V("error", err))
	}

	now := uc.clock()
	var failed int
	for _, org := range orgs {
		if err := uc.reconcileTeam(ctx, org, now); err != nil {
			errutil.Handle(ctx, err, "failed to reconcile team")
			failed++
		}
	}

	logger.Info("reconciliation finished", "teams", len(orgs), "failed", failed)
	return nil
}

func (uc *ReconcileUseCase) reconcileTeam(ctx context.Context, org *model.OrganizationWithToken, now time.Time) error {
	logger := logging.From(ctx).With(TeamIDKey, org.TeamID)
	ctx = logging.With(ctx, logger)

	cred := org.Credential()
	start := now.Add(-timeOffWindow).UTC().Format(model.DateLayout)
	end := now.Add(timeOffWindow).UTC().Format(model.DateLayout)

	var (
		employees map[string]string
		schedule  model.TimeOffSchedule
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		if employees, err = uc.directory.ListActiveEmployees(egCtx, cred); err != nil {
			return goerr.Wrap(ErrUpstreamUnavailable, "failed to list BambooHR employees",
				goerr.V("error", err), goerr.V(TeamIDKey, org.TeamID))
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		if schedule, err = uc.directory.ListApprovedTimeOff(egCtx, cred, start, end); err != nil {
			return goerr.Wrap(ErrUpstreamUnavailable, "failed to list BambooHR time off",
				goerr.V("error", err), goerr.V(TeamIDKey, org.TeamID))
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	persons, err := uc.slack.ListMembers(ctx, org.AdminToken.AccessToken, employees)
	if err != nil {
		return goerr.Wrap(credentialError(err, "failed to list Slack members"), "team skipped", goerr.V(TeamIDKey, org.TeamID))
	}
	slices.SortFunc(persons, func(a, b *model.Person) int {
		return strings.Compare(a.Email, b.Email)
	})

	var lines []string
	for _, p := range persons {
		target, ok := ResolveStatus(p, schedule, now)
		if !ok {
			continue
		}
		lines = append(lines, model.SummaryLine(p, target.Profile))

		attrs := []any{
			"slack_id", p.SlackID,
			"employee_id", p.EmployeeID,
			"tz_offset", p.TZOffset,
			"emoji", target.Profile.Emoji,
			"date", target.LocalDate,
			"expiration", target.Expiration,
			"old_text", p.StatusText,
			"old_emoji", p.StatusEmoji,
			"old_expiration", p.StatusExpiration,
		}
		if p.StatusEmoji == target.Profile.Emoji && p.StatusExpiration == target.Expiration {
			logger.Debug("status is up to date", attrs...)
			continue
		}

		logger.Info("setting status", append(attrs, "text", target.Profile.Text)...)
		token := uc.mutationToken(ctx, org, p)
		if err := uc.slack.SetProfileStatus(ctx, token, p.SlackID, target.Profile, target.Expiration); err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to set profile status",
				goerr.V(UserIDKey, p.SlackID)), "status update failed")
		}
	}

	if len(lines) == 0 {
		logger.Info("no time off found")
	}
	summary := &model.Summary{TeamID: org.TeamID, Text: model.RenderSummary(lines)}
	if err := uc.repo.PutSummary(ctx, summary); err != nil {
		return goerr.Wrap(ErrStorageFailure, "unable to store who-is-out summary",
			goerr.V("error", err), goerr.V(TeamIDKey, org.TeamID))
	}

	return nil
}

// mutationToken picks the credential to change p's status with. Privileged members
// other than the admin can only be changed with their own token when they have one.
func (uc *ReconcileUseCase) mutationToken(ctx context.Context, org *model.OrganizationWithToken, p *model.Person) string {
	if !p.IsPrivileged || org.IsAdmin(p.SlackID) {
		return org.AdminToken.AccessToken
	}

	own, err := uc.repo.GetUserToken(ctx, org.TeamID, p.SlackID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			errutil.Handle(ctx, err, "failed to read privileged user token")
		}
		return org.AdminToken.AccessToken
	}
	return own.AccessToken
}
