package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/utils/async"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
)

const CommandName = "/whoisout"

// CommandUsage is the reply to any command that is not understood
const CommandUsage = "These are available whoisout commands:\n" +
	"`/whoisout` Get information about teammates who are out today.\n" +
	"`/whoisout install <org name> <api secret>` Install BambooHR API token for your team. " +
	"`<org name>` is the name of your organization as it is used in the BambooHR API."

// SlashCommand is a signed `/whoisout` request whose identifiers are already validated
type SlashCommand struct {
	TeamID      types.TeamID
	UserID      types.UserID
	TriggerID   types.TriggerID
	ResponseURL types.ResponseURL
	Text        string
}

// ReplyFormat is how the synchronous command answer is encoded
type ReplyFormat int

const (
	// ReplyEmpty is an empty 200; the real answer goes to the response URL
	ReplyEmpty ReplyFormat = iota
	// ReplyPlain is a text/plain body
	ReplyPlain
	// ReplyJSON is a message object {"text": ...}
	ReplyJSON
)

type CommandReply struct {
	Format ReplyFormat
	Text   string
}

type CommandUseCase struct {
	repo     interfaces.Repository
	install  *InstallUseCase
	dispatch async.Dispatcher
}

// splitArgs splits on every space and tab. Repeated separators yield empty arguments.
func splitArgs(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\t", " "), " ")
}

// HandleCommand answers a slash command. The summary is served from the ledger;
// install runs detached and reports through the response URL.
func (uc *CommandUseCase) HandleCommand(ctx context.Context, cmd *SlashCommand) *CommandReply {
	logger := logging.From(ctx).With(TeamIDKey, cmd.TeamID, UserIDKey, cmd.UserID)
	ctx = logging.With(ctx, logger)

	input := trimControl(cmd.Text)
	if input == "" {
		logger.Debug("responding to command", "command", CommandName)
		return &CommandReply{Format: ReplyJSON, Text: uc.summaryText(ctx, cmd.TeamID)}
	}

	args := splitArgs(input)
	if args[0] != "install" {
		return &CommandReply{Format: ReplyPlain, Text: CommandUsage}
	}

	req, ok := parseInstallArgs(cmd, args)
	if !ok {
		return &CommandReply{Format: ReplyPlain, Text: CommandUsage}
	}

	logger.Debug("starting install command", "org", req.DirectoryOrg)
	uc.dispatch(ctx, func(ctx context.Context) error {
		return uc.install.HandleInstallCommand(ctx, req)
	})
	return &CommandReply{Format: ReplyEmpty}
}

func parseInstallArgs(cmd *SlashCommand, args []string) (*InstallRequest, bool) {
	if len(args) != 3 {
		return nil, false
	}

	org := types.DirectoryOrg(args[1])
	secret := types.DirectorySecret(args[2])
	if org.Validate() != nil || secret.Validate() != nil {
		return nil, false
	}

	return &InstallRequest{
		ResponseURL:     cmd.ResponseURL,
		TriggerID:       cmd.TriggerID,
		TeamID:          cmd.TeamID,
		UserID:          cmd.UserID,
		DirectoryOrg:    org,
		DirectorySecret: secret,
	}, true
}

func (uc *CommandUseCase) summaryText(ctx context.Context, teamID types.TeamID) string {
	summary, err := uc.repo.GetSummary(ctx, teamID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			errutil.Handle(ctx, err, "failed to read who-is-out summary")
		}
		return model.MissingSummaryText
	}
	if summary.Text == "" {
		return model.MissingSummaryText
	}
	return summary.Text
}
