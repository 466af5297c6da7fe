package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/service/bamboohr"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
)

var reconcileNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestLocalDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)

	gt.Value(t, usecase.LocalDate(now, 0)).Equal("2024-03-15")
	gt.Value(t, usecase.LocalDate(now, 3600)).Equal("2024-03-16")
	gt.Value(t, usecase.LocalDate(time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC), -5*3600)).Equal("2024-03-14")
}

func TestEndOfLocalDay(t *testing.T) {
	got, err := usecase.EndOfLocalDay("2024-03-15", 3600)
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal(time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC).Unix() - 3600)

	// 23:59:59 at UTC-8 is 07:59:59 UTC the next day
	got, err = usecase.EndOfLocalDay("2024-03-15", -8*3600)
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal(time.Date(2024, 3, 16, 7, 59, 59, 0, time.UTC).Unix())

	_, err = usecase.EndOfLocalDay("15/03/2024", 0)
	gt.Value(t, err).NotNil()
}

func TestResolveStatus(t *testing.T) {
	schedule := model.TimeOffSchedule{}
	schedule.Add("101", "2024-03-15", "Sick")
	schedule.Add("101", "2024-03-15", "Overtime Work")
	schedule.Add("102", "2024-03-16", "Vacation")

	t.Run("highest priority wins", func(t *testing.T) {
		target, ok := usecase.ResolveStatus(&model.Person{EmployeeID: "101"}, schedule, reconcileNow)
		gt.Bool(t, ok).True()
		gt.Value(t, target.Category).Equal(model.TimeOffOvertime)
		gt.Value(t, target.Profile.Emoji).Equal(":bee:")
	})

	t.Run("uses the person's local date", func(t *testing.T) {
		_, ok := usecase.ResolveStatus(&model.Person{EmployeeID: "102"}, schedule, reconcileNow)
		gt.Bool(t, ok).False()

		late := time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
		target, ok := usecase.ResolveStatus(&model.Person{EmployeeID: "102", TZOffset: 9 * 3600}, schedule, late)
		gt.Bool(t, ok).True()
		gt.Value(t, target.LocalDate).Equal("2024-03-16")
		gt.Value(t, target.Expiration).Equal(time.Date(2024, 3, 16, 23, 59, 59, 0, time.UTC).Unix() - 9*3600)
	})

	t.Run("no entry", func(t *testing.T) {
		_, ok := usecase.ResolveStatus(&model.Person{EmployeeID: "999"}, schedule, reconcileNow)
		gt.Bool(t, ok).False()
	})
}

func vacationEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, reconcileNow)
	env.installOrg(t, "T1", "acme", "UADMIN")

	env.directory.employees["acme"] = map[string]string{"ada@example.com": "101"}
	schedule := model.TimeOffSchedule{}
	schedule.Add("101", "2024-03-15", "Vacation")
	env.directory.schedules["acme"] = schedule

	env.slack.members = []*model.Person{
		{SlackID: "U1", Email: "ada@example.com", RealName: "Ada Lovelace", TZOffset: 3600},
	}
	return env
}

func TestReconcileSetsVacationStatus(t *testing.T) {
	env := vacationEnv(t)
	ctx := context.Background()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()

	gt.Array(t, env.slack.statusCalls).Length(1).Required()
	call := env.slack.statusCalls[0]
	gt.Value(t, call.Token).Equal("xoxp-admin-T1")
	gt.Value(t, call.UserID).Equal("U1")
	gt.Value(t, call.Profile).Equal(model.StatusProfile{Text: "On holiday", Emoji: ":palm_tree:", Canonical: "Vacationing"})
	gt.Value(t, call.Expiration).Equal(time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC).Unix() - 3600)

	summary, err := env.repo.GetSummary(ctx, "T1")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Text).Equal("<@U1> (Ada Lovelace) On holiday :palm_tree:")

	t.Run("time off window spans now plus and minus 90000 seconds", func(t *testing.T) {
		gt.Array(t, env.directory.timeOffCalls).Length(1).Required()
		gt.Value(t, env.directory.timeOffCalls[0].Start).Equal("2024-03-14")
		gt.Value(t, env.directory.timeOffCalls[0].End).Equal("2024-03-16")
	})
}

func TestReconcileTimeOffWindowIsUTC(t *testing.T) {
	// 2024-03-15 01:00 in UTC+9 is 2024-03-14 16:00 UTC
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.FixedZone("UTC+9", 9*3600))
	env := newTestEnv(t, now)
	env.installOrg(t, "T1", "acme", "UADMIN")
	env.directory.employees["acme"] = map[string]string{}
	env.directory.schedules["acme"] = model.TimeOffSchedule{}

	gt.NoError(t, env.uc.Reconcile.Run(context.Background())).Required()

	gt.Array(t, env.directory.timeOffCalls).Length(1).Required()
	gt.Value(t, env.directory.timeOffCalls[0].Start).Equal("2024-03-13")
	gt.Value(t, env.directory.timeOffCalls[0].End).Equal("2024-03-15")
}

func TestReconcileIsIdempotent(t *testing.T) {
	env := vacationEnv(t)
	env.slack.members[0].StatusEmoji = ":palm_tree:"
	env.slack.members[0].StatusExpiration = time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC).Unix() - 3600
	ctx := context.Background()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()
	gt.Array(t, env.slack.statusCalls).Length(0)

	// still listed as out
	summary, err := env.repo.GetSummary(ctx, "T1")
	gt.NoError(t, err).Required()
	gt.String(t, summary.Text).Contains("<@U1>")
}

func TestReconcileUpdatesStaleExpiration(t *testing.T) {
	env := vacationEnv(t)
	env.slack.members[0].StatusEmoji = ":palm_tree:"
	env.slack.members[0].StatusExpiration = 1

	gt.NoError(t, env.uc.Reconcile.Run(context.Background())).Required()
	gt.Array(t, env.slack.statusCalls).Length(1)
}

func TestReconcileEverybodyOnBoard(t *testing.T) {
	env := vacationEnv(t)
	env.directory.schedules["acme"] = model.TimeOffSchedule{}
	ctx := context.Background()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()
	gt.Array(t, env.slack.statusCalls).Length(0)

	summary, err := env.repo.GetSummary(ctx, "T1")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Text).Equal("Everybody is on board.")
}

func TestReconcileUnknownCategory(t *testing.T) {
	env := vacationEnv(t)
	schedule := model.TimeOffSchedule{}
	schedule.Add("101", "2024-03-15", "Jury Duty")
	env.directory.schedules["acme"] = schedule

	gt.NoError(t, env.uc.Reconcile.Run(context.Background())).Required()
	gt.Array(t, env.slack.statusCalls).Length(1).Required()
	gt.Value(t, env.slack.statusCalls[0].Profile).Equal(model.StatusProfile{
		Text: "Jury Duty", Emoji: ":grey_question:", Canonical: "Jury Duty",
	})
}

func TestReconcileRoutesPrivilegedUsers(t *testing.T) {
	env := newTestEnv(t, reconcileNow)
	env.installOrg(t, "T1", "acme", "UADMIN")
	ctx := context.Background()

	env.directory.employees["acme"] = map[string]string{
		"admin@example.com": "1",
		"owner@example.com": "2",
		"other@example.com": "3",
		"staff@example.com": "4",
	}
	schedule := model.TimeOffSchedule{}
	for _, id := range []string{"1", "2", "3", "4"} {
		schedule.Add(id, "2024-03-15", "Sick")
	}
	env.directory.schedules["acme"] = schedule
	env.slack.members = []*model.Person{
		{SlackID: "UADMIN", Email: "admin@example.com", IsPrivileged: true},
		{SlackID: "UOWNER", Email: "owner@example.com", IsPrivileged: true},
		{SlackID: "UOTHER", Email: "other@example.com", IsPrivileged: true},
		{SlackID: "USTAFF", Email: "staff@example.com"},
	}
	gt.NoError(t, env.repo.PutUserToken(ctx, &model.UserToken{TeamID: "T1", UserID: "UOWNER", AccessToken: "xoxp-owner"})).Required()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()

	tokens := map[string]string{}
	for _, c := range env.slack.statusCalls {
		tokens[c.UserID.String()] = c.Token
	}
	gt.Value(t, tokens).Equal(map[string]string{
		"UADMIN": "xoxp-admin-T1",
		"UOWNER": "xoxp-owner",
		"UOTHER": "xoxp-admin-T1",
		"USTAFF": "xoxp-admin-T1",
	})
}

func TestReconcileIsolatesTenants(t *testing.T) {
	env := newTestEnv(t, reconcileNow)
	env.installOrg(t, "T1", "broken", "UA")
	env.installOrg(t, "T2", "acme", "UB")
	ctx := context.Background()

	env.directory.errs["broken"] = &bamboohr.APIError{StatusCode: 503}
	env.directory.employees["acme"] = map[string]string{"ada@example.com": "101"}
	env.slack.members = []*model.Person{{SlackID: "U1", Email: "ada@example.com"}}

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()

	_, err := env.repo.GetSummary(ctx, "T1")
	gt.Value(t, err).NotNil()

	summary, err := env.repo.GetSummary(ctx, "T2")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Text).Equal(model.EmptySummaryText)
}

func TestReconcileContinuesAfterStatusFailure(t *testing.T) {
	env := vacationEnv(t)
	env.directory.employees["acme"]["bob@example.com"] = "102"
	env.directory.schedules["acme"].Add("102", "2024-03-15", "Remote Work")
	env.slack.members = append(env.slack.members, &model.Person{SlackID: "U2", Email: "bob@example.com", RealName: "Bob"})
	env.slack.setStatusFn = func(ctx context.Context, token string, userID types.UserID) error {
		if userID == "U1" {
			return errors.New("ratelimited")
		}
		return nil
	}
	ctx := context.Background()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()
	gt.Array(t, env.slack.statusCalls).Length(2)

	summary, err := env.repo.GetSummary(ctx, "T1")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Text).Equal("<@U1> (Ada Lovelace) On holiday :palm_tree:\n<@U2> (Bob) Working remotely :house_with_garden:")
}

func TestReconcileSlackFailureSkipsTenant(t *testing.T) {
	env := vacationEnv(t)
	env.slack.listMembersFn = func(ctx context.Context, token string, employees map[string]string) ([]*model.Person, error) {
		return nil, errors.New("slack is down")
	}
	ctx := context.Background()

	gt.NoError(t, env.uc.Reconcile.Run(ctx)).Required()
	_, err := env.repo.GetSummary(ctx, "T1")
	gt.Value(t, err).NotNil()
}
