package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSync() *cli.Command {
	var appCfg appConfig

	return &cli.Command{
		Name:  "sync",
		Usage: "Run one status reconciliation for every installed team and exit",
		Flags: appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := appCfg.load(); err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			uc, repo, err := appCfg.build(ctx, "")
			if err != nil {
				return err
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			if err := uc.Reconcile.Run(ctx); err != nil {
				return goerr.Wrap(err, "failed to reconcile statuses")
			}

			logging.Default().Info("Reconciliation completed")
			return nil
		},
	}
}
