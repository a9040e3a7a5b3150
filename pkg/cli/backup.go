package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/backup"
	"github.com/urfave/cli/v3"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Copy the whole dataset to or from an object store",
		Commands: []*cli.Command{
			backupPushCommand(),
			backupPullCommand(),
		},
	}
}

func backupPushCommand() *cli.Command {
	var (
		cfg config
		bc  backupConfig
	)

	flags := backupFlags(&bc)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "push",
		Usage: "Upload the dataset",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			storage, err := bc.newStorage(ctx)
			if err != nil {
				return err
			}

			summary, err := backup.New(repo, storage).Push(ctx, bc.key)
			if err != nil {
				return goerr.Wrap(err, "failed to push backup")
			}
			fmt.Fprintf(c.Root().Writer, "Pushed %d records and %d relations to %s\n",
				summary.Records, summary.Relations, summary.Key)
			return nil
		},
	}
}

func backupPullCommand() *cli.Command {
	var (
		cfg config
		bc  backupConfig
	)

	flags := backupFlags(&bc)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "pull",
		Usage: "Replace the dataset with a backup",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.prepare(ctx, c)
			defer cfg.close(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			storage, err := bc.newStorage(ctx)
			if err != nil {
				return err
			}

			summary, err := backup.New(repo, storage).Pull(ctx, bc.key)
			if err != nil {
				return goerr.Wrap(err, "failed to pull backup")
			}
			fmt.Fprintf(c.Root().Writer, "Restored %d records and %d relations from %s\n",
				summary.Records, summary.Relations, summary.Key)
			return nil
		},
	}
}
